package pagepool

import (
	"errors"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

var errInjected = errors.New("injected fault")

// newTestPool creates a file-backed pool in a temporary directory. The pool
// is closed when the test ends.
func newTestPool(t *testing.T, cfg Config) (*BufferPool, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pages.db")
	cfg.SyncOnFlush = false
	p, err := NewWithConfig(path, cfg)
	require.NoError(t, err, "failed to create pool")
	t.Cleanup(func() { _ = p.Close() })
	return p, path
}

// newMemPool creates a pool over an in-memory backend with fault injection.
func newMemPool(t *testing.T, cfg Config) (*BufferPool, *memBackend) {
	t.Helper()
	b := newMemBackend()
	p, err := NewWithBackend(b, cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close() })
	return p, b
}

func filledPage(v byte) *Page {
	var p Page
	for i := range p {
		p[i] = v
	}
	return &p
}

func isUniform(p *Page) bool {
	for _, b := range p {
		if b != p[0] {
			return false
		}
	}
	return true
}

// memBackend stores pages by key in memory. Overlapping keys are not
// modelled; every key is its own page.
type memBackend struct {
	mu    sync.Mutex
	pages map[uint64]Page

	reads     atomic.Int64
	writes    atomic.Int64
	failRead  atomic.Bool
	failWrite atomic.Bool
	closed    atomic.Bool
}

func newMemBackend() *memBackend {
	return &memBackend{pages: make(map[uint64]Page)}
}

func (b *memBackend) ReadPage(p *Page, off uint64) error {
	if b.failRead.Load() {
		return errInjected
	}
	b.reads.Add(1)
	b.mu.Lock()
	defer b.mu.Unlock()
	*p = b.pages[off]
	return nil
}

func (b *memBackend) WritePage(p *Page, off uint64) error {
	if b.failWrite.Load() {
		return errInjected
	}
	b.writes.Add(1)
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pages[off] = *p
	return nil
}

func (b *memBackend) stored(off uint64) (Page, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	p, ok := b.pages[off]
	return p, ok
}

func (b *memBackend) Sync() error { return nil }

func (b *memBackend) Close() error {
	b.closed.Store(true)
	return nil
}
