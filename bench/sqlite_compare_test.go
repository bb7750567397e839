package bench_test

import (
	"context"
	"database/sql"
	"encoding/binary"
	"math/rand"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	pagepool "github.com/luhtfiimanal/go-page-pool"
)

// pageFor mengisi page secara deterministik dari seed: 8 byte pertama
// menyimpan seed, sisanya byte acak dari rand dengan seed yang sama.
func pageFor(p *pagepool.Page, seed int64) {
	r := rand.New(rand.NewSource(seed))
	r.Read(p[8:])
	binary.LittleEndian.PutUint64(p[:8], uint64(seed))
}

// openPool membuat pool di direktori temporary.
func openPool(tb testing.TB, shards, perShard int) *pagepool.BufferPool {
	tb.Helper()
	cfg := pagepool.DefaultConfig()
	cfg.ShardCount = shards
	cfg.MaxEntriesPerShard = perShard
	cfg.SyncOnFlush = false
	pool, err := pagepool.NewWithConfig(filepath.Join(tb.TempDir(), "pages.db"), cfg)
	require.NoError(tb, err)
	tb.Cleanup(func() { _ = pool.Close() })
	return pool
}

// openSQLite membuat tabel blob 4 KiB in-memory.
func openSQLite(tb testing.TB) *sql.DB {
	tb.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(tb, err)
	// satu koneksi supaya :memory: tidak terpecah per koneksi
	db.SetMaxOpenConns(1)
	tb.Cleanup(func() { _ = db.Close() })
	_, err = db.Exec(`CREATE TABLE pages (off INTEGER PRIMARY KEY, data BLOB NOT NULL);`)
	require.NoError(tb, err)
	return db
}

// TestCompareWithSQLite menulis page yang sama ke pool dan SQLite lalu
// membandingkan hasil baca acak, termasuk setelah pool dibuka ulang.
func TestCompareWithSQLite(t *testing.T) {
	const total = 500

	dir := t.TempDir()
	path := filepath.Join(dir, "pages.db")
	cfg := pagepool.DefaultConfig()
	cfg.ShardCount = 4
	cfg.MaxEntriesPerShard = 16 // jauh lebih kecil dari total, eviction pasti terjadi
	cfg.SyncOnFlush = false
	pool, err := pagepool.NewWithConfig(path, cfg)
	require.NoError(t, err)

	db := openSQLite(t)
	ctx := context.Background()
	stmt, err := db.PrepareContext(ctx, `INSERT INTO pages (off, data) VALUES (?, ?);`)
	require.NoError(t, err)
	defer stmt.Close()

	var page pagepool.Page
	for i := int64(0); i < total; i++ {
		off := uint64(i) * pagepool.PageSize
		pageFor(&page, i)
		require.NoError(t, pool.Put(&page, off))
		_, err := stmt.ExecContext(ctx, int64(off), page[:])
		require.NoError(t, err)
	}

	check := func(p *pagepool.BufferPool) {
		rng := rand.New(rand.NewSource(7))
		var got pagepool.Page
		for i := 0; i < 100; i++ {
			idx := rng.Int63n(total)
			off := uint64(idx) * pagepool.PageSize
			require.NoError(t, p.Get(&got, off))

			var blob []byte
			err := db.QueryRowContext(ctx, `SELECT data FROM pages WHERE off=?;`, int64(off)).Scan(&blob)
			require.NoError(t, err)
			require.Len(t, blob, pagepool.PageSize)
			require.Equal(t, blob, got[:], "page %d berbeda", idx)
		}
	}

	check(pool)
	require.NoError(t, pool.Close())

	reopened, err := pagepool.NewWithConfig(path, cfg)
	require.NoError(t, err)
	defer reopened.Close()
	check(reopened)
}

// BenchmarkWrite membandingkan throughput tulis page antara pool dan SQLite.
func BenchmarkWrite(b *testing.B) {
	var page pagepool.Page
	pageFor(&page, 42)

	b.Run("pagepool", func(bb *testing.B) {
		pool := openPool(bb, 8, 128)
		bb.SetBytes(pagepool.PageSize)
		bb.ResetTimer()
		for i := 0; i < bb.N; i++ {
			off := uint64(i%4096) * pagepool.PageSize
			if err := pool.Put(&page, off); err != nil {
				bb.Fatalf("put: %v", err)
			}
		}
	})

	b.Run("sqlite", func(bb *testing.B) {
		db := openSQLite(bb)
		stmt, err := db.Prepare(`INSERT OR REPLACE INTO pages (off, data) VALUES (?, ?);`)
		require.NoError(bb, err)
		defer stmt.Close()
		bb.SetBytes(pagepool.PageSize)
		bb.ResetTimer()
		for i := 0; i < bb.N; i++ {
			off := int64(i%4096) * pagepool.PageSize
			if _, err := stmt.Exec(off, page[:]); err != nil {
				bb.Fatalf("insert: %v", err)
			}
		}
	})
}
