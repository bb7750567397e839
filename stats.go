package pagepool

import "sync/atomic"

// Stats menyimpan statistik cache.
// HitRatio dalam persentase (0-100), dihitung dari Get saja.
type Stats struct {
	Hits       uint64
	Misses     uint64
	Evictions  uint64
	WriteBacks uint64
	IOErrors   uint64
	HitRatio   float64
}

// counters dinaikkan secara atomik oleh shard.
type counters struct {
	hits       uint64
	misses     uint64
	evictions  uint64
	writeBacks uint64
	ioErrors   uint64
}

// GetStats mengambil snapshot statistik tanpa lock berat.
func (p *BufferPool) GetStats() Stats {
	c := &p.obs.stats
	hits := atomic.LoadUint64(&c.hits)
	misses := atomic.LoadUint64(&c.misses)
	total := hits + misses
	ratio := 0.0
	if total > 0 {
		ratio = float64(hits) / float64(total) * 100.0
	}
	return Stats{
		Hits:       hits,
		Misses:     misses,
		Evictions:  atomic.LoadUint64(&c.evictions),
		WriteBacks: atomic.LoadUint64(&c.writeBacks),
		IOErrors:   atomic.LoadUint64(&c.ioErrors),
		HitRatio:   ratio,
	}
}

// ResetStats mengatur ulang semua penghitung.
func (p *BufferPool) ResetStats() {
	c := &p.obs.stats
	atomic.StoreUint64(&c.hits, 0)
	atomic.StoreUint64(&c.misses, 0)
	atomic.StoreUint64(&c.evictions, 0)
	atomic.StoreUint64(&c.writeBacks, 0)
	atomic.StoreUint64(&c.ioErrors, 0)
}

// Resident mengembalikan jumlah page yang sedang ada di memori.
func (p *BufferPool) Resident() int {
	n := 0
	for _, s := range p.shards {
		n += s.resident()
	}
	return n
}

// Capacity mengembalikan batas jumlah page di memori (ShardCount x
// MaxEntriesPerShard).
func (p *BufferPool) Capacity() int {
	return p.config.ShardCount * p.config.MaxEntriesPerShard
}

// ShardCount mengembalikan jumlah shard.
func (p *BufferPool) ShardCount() int { return len(p.shards) }
