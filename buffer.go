package pagepool

import "sync"

// entry adalah satu slot page di dalam tabel shard.
//
// latch melindungi data, dirty dan stale. key dan gen hanya diubah saat
// shard.mu dan latch eksklusif sama-sama dipegang, jadi boleh dibaca di bawah
// salah satunya.
// Urutan lock selalu shard.mu -> latch; pemegang latch tidak pernah menunggu
// shard.mu.
type entry struct {
	latch sync.RWMutex
	key   uint64
	gen   uint64 // inkarnasi slot, naik setiap kali slot dipakai ulang
	dirty bool   // data lebih baru dari isi file
	stale bool   // read-through gagal, slot harus dibuang
	data  Page
}

// newLatchedEntry mengalokasikan slot baru dengan latch eksklusif sudah
// dipegang.
func newLatchedEntry() *entry {
	e := &entry{}
	e.latch.Lock()
	return e
}

// reset menyiapkan slot (latch eksklusif dipegang) untuk key baru. Isi data
// dibiarkan; pemanggil selalu menimpanya penuh.
func (e *entry) reset(key, gen uint64) {
	e.key = key
	e.gen = gen
	e.dirty = false
	e.stale = false
}
