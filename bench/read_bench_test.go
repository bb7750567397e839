package bench_test

import (
	"database/sql"
	"math/rand"
	"testing"

	pagepool "github.com/luhtfiimanal/go-page-pool"
)

// prepareTestStores membuat pool dan sqlite berisi 'total' page.
func prepareTestStores(b *testing.B, total int64, shards, perShard int) (*pagepool.BufferPool, *sql.DB) {
	b.Helper()
	pool := openPool(b, shards, perShard)
	db := openSQLite(b)

	stmt, err := db.Prepare(`INSERT INTO pages (off, data) VALUES (?, ?);`)
	if err != nil {
		b.Fatalf("prepare: %v", err)
	}
	defer stmt.Close()

	var page pagepool.Page
	for i := int64(0); i < total; i++ {
		off := uint64(i) * pagepool.PageSize
		pageFor(&page, i)
		if err := pool.Put(&page, off); err != nil {
			b.Fatalf("pool put: %v", err)
		}
		if _, err := stmt.Exec(int64(off), page[:]); err != nil {
			b.Fatalf("sqlite insert: %v", err)
		}
	}
	if err := pool.Flush(); err != nil {
		b.Fatalf("flush: %v", err)
	}
	return pool, db
}

func benchRead(b *testing.B, total int64, shards, perShard int) {
	pool, db := prepareTestStores(b, total, shards, perShard)

	b.Run("pagepool", func(bb *testing.B) {
		rng := rand.New(rand.NewSource(42))
		var page pagepool.Page
		bb.SetBytes(pagepool.PageSize)
		bb.ResetTimer()
		for i := 0; i < bb.N; i++ {
			off := uint64(rng.Int63n(total)) * pagepool.PageSize
			if err := pool.Get(&page, off); err != nil {
				bb.Fatalf("get: %v", err)
			}
		}
		bb.ReportMetric(pool.GetStats().HitRatio, "hit-ratio")
	})

	b.Run("sqlite", func(bb *testing.B) {
		rng := rand.New(rand.NewSource(42))
		stmt, err := db.Prepare(`SELECT data FROM pages WHERE off=?;`)
		if err != nil {
			bb.Fatalf("prepare: %v", err)
		}
		defer stmt.Close()
		var blob []byte
		bb.SetBytes(pagepool.PageSize)
		bb.ResetTimer()
		for i := 0; i < bb.N; i++ {
			off := rng.Int63n(total) * pagepool.PageSize
			if err := stmt.QueryRow(off).Scan(&blob); err != nil {
				bb.Fatalf("sqlite read: %v", err)
			}
		}
	})
}

// BenchmarkReadResident: semua page muat di pool, setiap Get adalah hit.
func BenchmarkReadResident(b *testing.B) {
	benchRead(b, 512, 8, 128)
}

// BenchmarkReadEvicting: working set 4x kapasitas, sebagian besar Get
// melakukan read-through dari file.
func BenchmarkReadEvicting(b *testing.B) {
	benchRead(b, 2048, 8, 64)
}

// BenchmarkReadParallel membaca page acak dari banyak goroutine sekaligus.
func BenchmarkReadParallel(b *testing.B) {
	const total = 1024
	pool, _ := prepareTestStores(b, total, 8, 64)
	b.SetBytes(pagepool.PageSize)
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		rng := rand.New(rand.NewSource(rand.Int63()))
		var page pagepool.Page
		for pb.Next() {
			off := uint64(rng.Int63n(total)) * pagepool.PageSize
			if err := pool.Get(&page, off); err != nil {
				b.Errorf("get: %v", err)
				return
			}
		}
	})
}
