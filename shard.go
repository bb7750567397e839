package pagepool

import (
	"sync"

	"github.com/hashicorp/golang-lru/v2/simplelru"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// shard merepresentasikan satu bagian cache yang punya lock sendiri.
//
// mu melindungi struktur tabel (sisip, evict, hapus) dan urutan LRU; isi
// setiap page dilindungi latch milik entry masing-masing, sehingga copy data
// untuk key berbeda di shard yang sama bisa berjalan paralel.
//
// Kebijakan eviksi: LRU ketat. Victim dengan data dirty selalu ditulis ke
// backend sebelum slot-nya dipakai ulang.
type shard struct {
	id       int
	mu       sync.Mutex
	table    *simplelru.LRU[uint64, *entry]
	capacity int
	gen      uint64
	closed   bool

	backend Backend
	obs     *observer
	attrs   metric.MeasurementOption
	log     *zap.Logger
}

func newShard(id, capacity int, b Backend, obs *observer, log *zap.Logger) (*shard, error) {
	table, err := simplelru.NewLRU[uint64, *entry](capacity, nil)
	if err != nil {
		return nil, err
	}
	return &shard{
		id:       id,
		table:    table,
		capacity: capacity,
		backend:  b,
		obs:      obs,
		attrs:    obs.shardAttrs(id),
		log:      log.With(zap.Int("shard", id)),
	}, nil
}

// put menimpa page untuk key. Miss tidak membaca backend karena seluruh page
// ditimpa.
func (s *shard) put(p *Page, key uint64) error {
	var e *entry
	for e == nil {
		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			return ErrClosed
		}

		if cur, ok := s.table.Get(key); ok {
			if !cur.latch.TryLock() {
				// Entry sedang di-load atau dibaca: tunggu tanpa memegang
				// s.mu, lalu ulangi dari awal.
				s.mu.Unlock()
				cur.latch.Lock()
				cur.latch.Unlock()
				continue
			}
			if !cur.stale {
				e = cur
			} else {
				cur.latch.Unlock()
				s.table.Remove(key)
			}
		}
		if e == nil {
			var err error
			if e, err = s.slot(key); err != nil {
				s.mu.Unlock()
				return err
			}
		}
		s.mu.Unlock()
	}

	e.data = *p
	e.dirty = true
	e.latch.Unlock()
	return nil
}

// get mengisi buf dengan page untuk key, membaca dari backend bila belum ada
// di tabel.
func (s *shard) get(buf *Page, key uint64) error {
	for {
		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			return ErrClosed
		}

		cur, ok := s.table.Get(key)
		if !ok {
			break
		}
		if cur.latch.TryRLock() {
			if !cur.stale {
				s.mu.Unlock()
				*buf = cur.data
				cur.latch.RUnlock()
				s.obs.hit(s.attrs)
				return nil
			}
			cur.latch.RUnlock()
			s.table.Remove(key)
			break
		}

		// Key sedang di-load (atau ditulis). Tunggu latch tanpa s.mu supaya
		// key lain di shard ini tetap dilayani. gen yang sama dan tidak stale
		// berarti slot belum dipakai ulang, karena reset butuh latch eksklusif.
		gen := cur.gen
		s.mu.Unlock()
		cur.latch.RLock()
		if cur.gen == gen && !cur.stale {
			*buf = cur.data
			cur.latch.RUnlock()
			s.obs.hit(s.attrs)
			return nil
		}
		cur.latch.RUnlock()
	}

	// s.mu masih dipegang di sini.
	e, err := s.slot(key)
	s.mu.Unlock()
	if err != nil {
		return err
	}
	s.obs.miss(s.attrs)

	// Slot sudah terlihat di tabel tetapi latch eksklusif masih dipegang,
	// jadi pembaca lain untuk key ini menunggu, bukan membaca ulang.
	err = s.obs.io(opReadThrough, s.id, s.attrs, key, func() error {
		return s.backend.ReadPage(&e.data, key)
	})
	if err != nil {
		e.stale = true
		gen := e.gen
		e.latch.Unlock()
		s.log.Error("read-through failed", zap.Uint64("key", key), zap.Error(err))
		s.discard(key, e, gen)
		return err
	}

	*buf = e.data
	e.latch.Unlock()
	return nil
}

// slot menyisipkan slot untuk key (yang belum ada di tabel) dan
// mengembalikannya dengan latch eksklusif dipegang. Bila tabel penuh, victim
// LRU di-evict dan slot-nya dipakai ulang. s.mu harus dipegang.
func (s *shard) slot(key uint64) (*entry, error) {
	var e *entry
	if s.table.Len() < s.capacity {
		e = newLatchedEntry()
	} else {
		victim, err := s.evictOldest()
		if err != nil {
			return nil, err
		}
		e = victim
	}
	s.gen++
	e.reset(key, s.gen)
	s.table.Add(key, e)
	return e, nil
}

// evictOldest mengeluarkan entry paling lama tidak dipakai dan
// mengembalikannya dengan latch eksklusif dipegang. Bila write-back gagal,
// victim tetap di tabel (masih dirty) dan error dikembalikan. s.mu harus
// dipegang.
func (s *shard) evictOldest() (*entry, error) {
	key, victim, ok := s.table.GetOldest()
	if !ok {
		return newLatchedEntry(), nil
	}

	victim.latch.Lock()
	dirty := victim.dirty
	if dirty {
		if err := s.writeBack(victim); err != nil {
			victim.latch.Unlock()
			return nil, err
		}
	}
	s.table.Remove(key)
	s.obs.evicted(s.attrs)
	s.log.Debug("evicted page", zap.Uint64("key", key), zap.Bool("dirty", dirty))
	return victim, nil
}

// writeBack menulis entry dirty ke backend. Latch eksklusif harus dipegang.
func (s *shard) writeBack(e *entry) error {
	err := s.obs.io(opWriteBack, s.id, s.attrs, e.key, func() error {
		return s.backend.WritePage(&e.data, e.key)
	})
	if err != nil {
		s.log.Error("write-back failed", zap.Uint64("key", e.key), zap.Error(err))
		return err
	}
	e.dirty = false
	s.obs.wroteBack(s.attrs)
	return nil
}

// discard membuang slot hasil read-through yang gagal, kecuali slot itu
// sudah dibuang atau dipakai ulang oleh goroutine lain.
func (s *shard) discard(key uint64, e *entry, gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.table.Peek(key); ok && cur == e && cur.gen == gen {
		s.table.Remove(key)
	}
}

// flush menulis semua entry dirty tanpa mengeluarkannya dari tabel.
func (s *shard) flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	return s.flushLocked()
}

func (s *shard) flushLocked() error {
	var firstErr error
	for _, key := range s.table.Keys() {
		e, ok := s.table.Peek(key)
		if !ok {
			continue
		}
		e.latch.Lock()
		if e.dirty {
			if err := s.writeBack(e); err != nil && firstErr == nil {
				firstErr = err
			}
		}
		e.latch.Unlock()
	}
	return firstErr
}

// close melakukan flush terakhir lalu menolak operasi berikutnya.
func (s *shard) close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	err := s.flushLocked()
	s.closed = true
	return err
}

// resident mengembalikan jumlah page di memori.
func (s *shard) resident() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.table.Len()
}
