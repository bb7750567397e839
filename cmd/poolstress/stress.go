package main

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	pagepool "github.com/luhtfiimanal/go-page-pool"
)

const (
	modeDisjoint = "disjoint"
	modeMixed    = "mixed"
	modeSame     = "same"
)

type options struct {
	Mode    string
	Workers int
	Keys    int // keys per worker (disjoint) or shared key set (mixed)
	Iters   int
}

type report struct {
	Ops        int64
	Torn       int64 // pages mixing bytes of two writes
	Mismatches int64 // disjoint mode: page differs from what the worker wrote
	Elapsed    time.Duration
}

// run drives pool with opts.Workers goroutines. The first I/O error stops
// all workers and is returned.
func run(ctx context.Context, pool *pagepool.BufferPool, opts options) (report, error) {
	var rep report
	var ops, torn, mismatches atomic.Int64

	g, ctx := errgroup.WithContext(ctx)
	start := time.Now()

	for w := 0; w < opts.Workers; w++ {
		w := w
		g.Go(func() error {
			var err error
			switch opts.Mode {
			case modeDisjoint:
				err = disjointWorker(ctx, pool, w, opts, &ops, &mismatches)
			case modeMixed:
				err = mixedWorker(ctx, pool, w, opts, &ops, &torn)
			case modeSame:
				err = sameKeyWorker(ctx, pool, w, opts, &ops, &torn)
			default:
				err = fmt.Errorf("unknown mode %q", opts.Mode)
			}
			return err
		})
	}

	err := g.Wait()
	rep.Ops = ops.Load()
	rep.Torn = torn.Load()
	rep.Mismatches = mismatches.Load()
	rep.Elapsed = time.Since(start)
	return rep, err
}

// disjointKey: worker w owns slot w*1000+i. Slots are one page apart so
// write-back of one key never touches the bytes of another.
func disjointKey(w, i int) uint64 { return uint64(w*1000+i) * pagepool.PageSize }

// sharedKey is the i-th key of the shared set used by mixed mode.
func sharedKey(i int) uint64 { return uint64(i) * pagepool.PageSize }

func stamp(p *pagepool.Page, key uint64, round int) {
	slot := key / pagepool.PageSize
	for i := range p {
		p[i] = byte(slot) ^ byte(round)
	}
	p[0] = byte(slot)
	p[1] = byte(slot >> 8)
}

func disjointWorker(ctx context.Context, pool *pagepool.BufferPool, w int, opts options, ops, mismatches *atomic.Int64) error {
	var page, want pagepool.Page
	for round := 0; round < opts.Iters; round++ {
		for i := 0; i < opts.Keys; i++ {
			if err := ctx.Err(); err != nil {
				return err
			}
			key := disjointKey(w, i)
			stamp(&page, key, round)
			if err := pool.Put(&page, key); err != nil {
				return fmt.Errorf("worker %d put %d: %w", w, key, err)
			}
			ops.Add(1)
		}
		for i := 0; i < opts.Keys; i++ {
			key := disjointKey(w, i)
			if err := pool.Get(&page, key); err != nil {
				return fmt.Errorf("worker %d get %d: %w", w, key, err)
			}
			ops.Add(1)
			stamp(&want, key, round)
			if page != want {
				mismatches.Add(1)
			}
		}
	}
	return nil
}

func fill(p *pagepool.Page, v byte) {
	for i := range p {
		p[i] = v
	}
}

func uniform(p *pagepool.Page) bool {
	for _, b := range p {
		if b != p[0] {
			return false
		}
	}
	return true
}

// mixedWorker: even workers write, odd workers read, over a shared key set.
func mixedWorker(ctx context.Context, pool *pagepool.BufferPool, w int, opts options, ops, torn *atomic.Int64) error {
	var page pagepool.Page
	for round := 0; round < opts.Iters; round++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		slot := (w + round) % opts.Keys
		key := sharedKey(slot)
		if w%2 == 0 {
			fill(&page, byte(slot+round))
			if err := pool.Put(&page, key); err != nil {
				return fmt.Errorf("worker %d put %d: %w", w, key, err)
			}
		} else {
			if err := pool.Get(&page, key); err != nil {
				return fmt.Errorf("worker %d get %d: %w", w, key, err)
			}
			if !uniform(&page) {
				torn.Add(1)
			}
		}
		ops.Add(1)
	}
	return nil
}

// sameKeyWorker hammers key 0.
func sameKeyWorker(ctx context.Context, pool *pagepool.BufferPool, w int, opts options, ops, torn *atomic.Int64) error {
	var page pagepool.Page
	for i := 0; i < opts.Iters; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if w%2 == 0 {
			fill(&page, byte(i))
			if err := pool.Put(&page, 0); err != nil {
				return fmt.Errorf("worker %d put: %w", w, err)
			}
		} else {
			if err := pool.Get(&page, 0); err != nil {
				return fmt.Errorf("worker %d get: %w", w, err)
			}
			if !uniform(&page) {
				torn.Add(1)
			}
		}
		ops.Add(1)
	}
	return nil
}
