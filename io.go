package pagepool

// Put menulis page sebagai nilai terbaru untuk key (offset byte di file).
//
// Nilai baru langsung terlihat oleh Get berikutnya dari goroutine mana pun.
// Error hanya muncul bila pool sudah ditutup, key di luar jangkauan, atau
// write-back dari eviksi yang dipicu oleh panggilan ini gagal; dalam kasus
// terakhir cache tetap konsisten dan Put boleh diulang.
func (p *BufferPool) Put(page *Page, key uint64) error {
	if err := checkOffset(key); err != nil {
		return err
	}
	return p.findShard(key).put(page, key)
}

// Get mengisi buf dengan nilai terbaru untuk key. Bila key belum ada di cache,
// page dibaca dari file (nol bila belum pernah ditulis) lalu disimpan di
// cache.
func (p *BufferPool) Get(buf *Page, key uint64) error {
	if err := checkOffset(key); err != nil {
		return err
	}
	return p.findShard(key).get(buf, key)
}
