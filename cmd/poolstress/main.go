// Command poolstress hammers a page pool file from many goroutines and checks
// that no read ever sees a torn or foreign page.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	pagepool "github.com/luhtfiimanal/go-page-pool"
	"github.com/luhtfiimanal/go-page-pool/internal/logger"
	"github.com/luhtfiimanal/go-page-pool/internal/telemetry"
)

func main() {
	if err := realMain(); err != nil {
		fmt.Fprintln(os.Stderr, "poolstress:", err)
		os.Exit(1)
	}
}

func realMain() error {
	path := flag.String("path", "poolstress.db", "backing file")
	configPath := flag.String("config", "", "pool config (YAML); empty uses defaults")
	workers := flag.Int("workers", 8, "number of goroutines")
	keys := flag.Int("keys", 50, "keys per worker (disjoint) or shared keys (mixed)")
	iters := flag.Int("iters", 100, "rounds per worker")
	mode := flag.String("mode", modeDisjoint, "disjoint | mixed | same")
	logLevel := flag.String("log-level", "info", "debug | info | warn | error")
	metricsPort := flag.Int("metrics-port", 0, "serve Prometheus /metrics on this port; 0 disables")
	traceOut := flag.String("trace-out", "", "write sampled spans as JSON to this file (or stdout/stderr)")
	flag.Parse()

	if *workers <= 0 || *keys <= 0 || *iters <= 0 {
		return fmt.Errorf("workers, keys and iters must be positive")
	}

	log, err := logger.New(logger.Config{Level: *logLevel, Format: "console", OutputFile: "stderr"})
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	telCfg := telemetry.Config{
		Enabled:     *metricsPort > 0 || *traceOut != "",
		ServiceName: "poolstress",
		TraceOutput: *traceOut,
	}
	if *metricsPort > 0 {
		telCfg.MetricsAddr = fmt.Sprintf(":%d", *metricsPort)
	}
	tel, shutdown, err := telemetry.New(telCfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := shutdown(context.Background()); err != nil {
			log.Warn("telemetry shutdown failed", zap.Error(err))
		}
	}()
	if tel.Addr != "" {
		log.Info("serving metrics", zap.String("addr", tel.Addr))
	}

	cfg := pagepool.DefaultConfig()
	if *configPath != "" {
		cfg, err = pagepool.LoadConfig(*configPath)
		if err != nil {
			return err
		}
	}
	cfg.Logger = log
	cfg.Meter = tel.Meter
	cfg.Tracer = tel.Tracer

	pool, err := pagepool.NewWithConfig(*path, cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rep, runErr := run(ctx, pool, options{Mode: *mode, Workers: *workers, Keys: *keys, Iters: *iters})
	st := pool.GetStats()
	closeErr := pool.Close()

	log.Info("stress run finished",
		zap.String("mode", *mode),
		zap.Int("workers", *workers),
		zap.Int64("ops", rep.Ops),
		zap.Duration("elapsed", rep.Elapsed),
		zap.Int64("torn", rep.Torn),
		zap.Int64("mismatches", rep.Mismatches),
		zap.Uint64("hits", st.Hits),
		zap.Uint64("misses", st.Misses),
		zap.Uint64("evictions", st.Evictions),
		zap.Uint64("write_backs", st.WriteBacks),
		zap.Float64("hit_ratio", st.HitRatio),
	)

	switch {
	case runErr != nil:
		return runErr
	case closeErr != nil:
		return closeErr
	case rep.Torn > 0 || rep.Mismatches > 0:
		return fmt.Errorf("%d torn and %d mismatched pages", rep.Torn, rep.Mismatches)
	}
	return nil
}
