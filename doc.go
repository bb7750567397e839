// Package pagepool provides a disk-backed buffer pool of fixed-size pages.
// Pages are addressed by byte offset in a single backing file, cached in a
// bounded number of independently locked shards, and written back to the
// file when they are evicted or when the pool is flushed/closed.
//
// The library is organised into several files for clarity:
//
//	options.go      – Config struct & defaults
//	config.go       – YAML config loading & validation
//	errors.go       – sentinel errors
//	backend.go      – Backend interface & file backend (pread/pwrite)
//	pool.go         – constructors & core fields
//	shard.go        – shard table, eviction & write-back
//	shard_lookup.go – key to shard routing
//	buffer.go       – cache entry, page slot & latch helpers
//	io.go           – public Put/Get
//	stats.go        – lightweight stats accessors
//	metrics.go      – OpenTelemetry instruments & spans
//	flush_close.go  – flush & close helpers
//
// Basic usage
//
//	pool, err := pagepool.New("data/pages.db")
//	if err != nil {
//	    return err
//	}
//	defer pool.Close()
//
//	var p pagepool.Page
//	copy(p[:], "hello")
//	if err := pool.Put(&p, 0); err != nil {
//	    return err
//	}
//	var out pagepool.Page
//	if err := pool.Get(&out, 0); err != nil {
//	    return err
//	}
//
// All methods on BufferPool are safe for concurrent use.
package pagepool
