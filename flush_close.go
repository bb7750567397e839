package pagepool

import (
	"fmt"

	"go.uber.org/zap"
)

// Flush menulis semua page dirty ke file tanpa mengeluarkannya dari cache,
// lalu fsync bila SyncOnFlush aktif.
func (p *BufferPool) Flush() error {
	var firstErr error
	for i, s := range p.shards {
		if err := s.flush(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("gagal flush shard %d: %w", i, err)
		}
	}
	if firstErr != nil {
		return firstErr
	}
	if p.config.SyncOnFlush {
		if err := p.backend.Sync(); err != nil {
			return fmt.Errorf("gagal sync file: %w", err)
		}
	}
	return nil
}

// Close melakukan flush terakhir, menutup file, dan membuat semua operasi
// berikutnya gagal dengan ErrClosed. Memanggil Close lebih dari sekali aman;
// panggilan berikutnya mengembalikan hasil panggilan pertama.
func (p *BufferPool) Close() error {
	p.closeOnce.Do(func() {
		p.closeErr = p.close()
	})
	return p.closeErr
}

func (p *BufferPool) close() error {
	var firstErr error
	for i, s := range p.shards {
		if err := s.close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("gagal menutup shard %d: %w", i, err)
		}
	}
	if p.config.SyncOnFlush {
		if err := p.backend.Sync(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("gagal sync file: %w", err)
		}
	}
	if err := p.backend.Close(); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("gagal menutup file: %w", err)
	}
	p.obs.unregister()

	if firstErr != nil {
		p.log.Error("buffer pool closed with error", zap.Error(firstErr))
	} else {
		p.log.Info("buffer pool closed", zap.Uint64("writebacks", p.GetStats().WriteBacks))
	}
	return firstErr
}
