package pagepool

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// BufferPool menyediakan cache page berukuran tetap di atas satu file
// backing, dipecah menjadi beberapa shard yang masing-masing punya lock
// sendiri.
//
// Semua operasi aman untuk goroutine.
type BufferPool struct {
	shards  []*shard // selalu >= 1, tidak berubah setelah New
	backend Backend  // dipakai bersama oleh semua shard
	config  Config
	log     *zap.Logger
	obs     *observer

	closeOnce sync.Once
	closeErr  error
}

// New membuat pool dengan konfigurasi default (lihat DefaultConfig).
func New(path string) (*BufferPool, error) {
	return NewWithConfig(path, DefaultConfig())
}

// NewWithConfig membuka atau membuat file di path lalu membuat pool dengan
// konfigurasi kustom. Tidak ada pool yang dikembalikan bila file gagal dibuka.
func NewWithConfig(path string, cfg Config) (*BufferPool, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	b, err := openFileBackend(path, cfg.LockFile)
	if err != nil {
		return nil, err
	}
	p, err := newPool(b, cfg, zap.String("path", path))
	if err != nil {
		b.Close()
		return nil, err
	}
	return p, nil
}

// NewWithBackend membuat pool di atas Backend milik pemanggil. Pool mengambil
// alih backend: Close pada pool juga menutup backend.
func NewWithBackend(b Backend, cfg Config) (*BufferPool, error) {
	if b == nil {
		return nil, fmt.Errorf("%w: backend is nil", ErrInvalidConfig)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return newPool(b, cfg)
}

func newPool(b Backend, cfg Config, fields ...zap.Field) (*BufferPool, error) {
	cfg = cfg.withDefaults()

	logger := cfg.Logger.Named("pagepool").With(fields...).With(
		zap.Int("shards", cfg.ShardCount),
		zap.Int("capacity", cfg.MaxEntriesPerShard),
	)

	p := &BufferPool{
		backend: b,
		config:  cfg,
		log:     logger,
	}

	obs, err := newObserver(cfg.Meter, cfg.Tracer)
	if err != nil {
		return nil, fmt.Errorf("gagal membuat instrumen metrik: %w", err)
	}
	p.obs = obs

	p.shards = make([]*shard, cfg.ShardCount)
	for i := range p.shards {
		s, err := newShard(i, cfg.MaxEntriesPerShard, b, obs, logger)
		if err != nil {
			return nil, fmt.Errorf("gagal membuat shard %d: %w", i, err)
		}
		p.shards[i] = s
	}

	if err := obs.observeResident(p.Resident); err != nil {
		return nil, fmt.Errorf("gagal mendaftarkan gauge resident: %w", err)
	}

	logger.Info("buffer pool opened", zap.Int("page_size", PageSize))
	return p, nil
}
