package pagepool

import (
	"errors"
	"fmt"
	"io"
	"os"

	"go.opentelemetry.io/otel/metric/noop"
	nooptrace "go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// LoadConfig reads a YAML config file on top of DefaultConfig. Keys that are
// absent from the file keep their default value.
//
//	shard_count: 16
//	max_entries_per_shard: 512
//	lock_file: true
//	sync_on_flush: false
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	f, err := os.Open(path)
	if err != nil {
		return cfg, fmt.Errorf("open config file: %w", err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	// empty file: defaults
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return cfg, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate rejects negative sizes. Zero sizes are valid and mean "use the
// default".
func (c Config) Validate() error {
	if c.ShardCount < 0 {
		return fmt.Errorf("%w: shard_count must be positive, got %d", ErrInvalidConfig, c.ShardCount)
	}
	if c.MaxEntriesPerShard < 0 {
		return fmt.Errorf("%w: max_entries_per_shard must be positive, got %d", ErrInvalidConfig, c.MaxEntriesPerShard)
	}
	return nil
}

// withDefaults fills zero values. Validate must have passed.
func (c Config) withDefaults() Config {
	if c.ShardCount == 0 {
		c.ShardCount = defaultShardCount
	}
	if c.MaxEntriesPerShard == 0 {
		c.MaxEntriesPerShard = defaultMaxEntriesPerShard
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
	if c.Meter == nil {
		c.Meter = noop.NewMeterProvider().Meter("")
	}
	if c.Tracer == nil {
		c.Tracer = nooptrace.NewTracerProvider().Tracer("")
	}
	return c
}
