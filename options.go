package pagepool

import (
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// PageSize adalah ukuran tetap setiap page (byte). Semua Put/Get memindahkan
// tepat satu page.
const PageSize = 4096

// Page adalah satu blok data berukuran PageSize.
type Page [PageSize]byte

const (
	defaultShardCount         = 8
	defaultMaxEntriesPerShard = 128
)

// Config menyediakan opsi konfigurasi untuk BufferPool.
//
//   - ShardCount:         jumlah shard (0 = default)
//   - MaxEntriesPerShard: jumlah page maksimal per shard (0 = default)
//   - LockFile:           kunci file backing secara eksklusif (flock)
//   - SyncOnFlush:        fsync file setelah Flush/Close
//
// Logger, Meter dan Tracer boleh nil; nilai nil diganti dengan no-op.
// Config tidak bisa diubah setelah pool dibuat.
type Config struct {
	ShardCount         int  `yaml:"shard_count"`
	MaxEntriesPerShard int  `yaml:"max_entries_per_shard"`
	LockFile           bool `yaml:"lock_file"`
	SyncOnFlush        bool `yaml:"sync_on_flush"`

	Logger *zap.Logger  `yaml:"-"`
	Meter  metric.Meter `yaml:"-"`
	Tracer trace.Tracer `yaml:"-"`
}

// DefaultConfig mengembalikan konfigurasi default yang digunakan New.
func DefaultConfig() Config {
	return Config{
		ShardCount:         defaultShardCount,
		MaxEntriesPerShard: defaultMaxEntriesPerShard,
		LockFile:           true,
		SyncOnFlush:        true,
	}
}
