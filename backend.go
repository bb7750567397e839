package pagepool

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
)

// Backend is the persistent store underneath the pool. Implementations must
// allow concurrent calls at distinct offsets.
//
// ReadPage fills p with the PageSize bytes at off; bytes past the end of the
// store, or never written, read as zero. WritePage stores p at off and grows
// the store when needed.
type Backend interface {
	ReadPage(p *Page, off uint64) error
	WritePage(p *Page, off uint64) error
	Sync() error
	Close() error
}

// maxOffset is the largest key whose page still fits in an int64 file offset.
const maxOffset = math.MaxInt64 - PageSize

func checkOffset(off uint64) error {
	if off > maxOffset {
		return fmt.Errorf("%w: %d (max: %d)", ErrOffsetRange, off, uint64(maxOffset))
	}
	return nil
}

// fileBackend menyimpan page langsung di satu file memakai pread/pwrite,
// sehingga tidak ada seek bersama dan panggilan paralel aman.
type fileBackend struct {
	file     *os.File
	fd       int
	filePath string
}

// openFileBackend membuka atau membuat file backing. Bila lock true, file
// dikunci eksklusif (flock) agar dua pool tidak berbagi file yang sama.
func openFileBackend(path string, lock bool) (*fileBackend, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("gagal membuat direktori: %w", err)
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o666)
	if err != nil {
		return nil, fmt.Errorf("gagal membuka file %s: %w", path, err)
	}
	fd := int(f.Fd())

	if lock {
		if err := unix.Flock(fd, unix.LOCK_EX|unix.LOCK_NB); err != nil {
			f.Close()
			if errors.Is(err, unix.EWOULDBLOCK) {
				return nil, fmt.Errorf("%w: %s", ErrFileLocked, path)
			}
			return nil, fmt.Errorf("gagal mengunci file %s: %w", path, err)
		}
	}

	return &fileBackend{file: f, fd: fd, filePath: path}, nil
}

func (b *fileBackend) ReadPage(p *Page, off uint64) error {
	if err := checkOffset(off); err != nil {
		return err
	}
	n := 0
	for n < PageSize {
		m, err := unix.Pread(b.fd, p[n:], int64(off)+int64(n))
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return fmt.Errorf("%w: pread %s at %d: %v", ErrIO, b.filePath, off, err)
		}
		if m == 0 {
			// past EOF
			clear(p[n:])
			return nil
		}
		n += m
	}
	return nil
}

func (b *fileBackend) WritePage(p *Page, off uint64) error {
	if err := checkOffset(off); err != nil {
		return err
	}
	n := 0
	for n < PageSize {
		m, err := unix.Pwrite(b.fd, p[n:], int64(off)+int64(n))
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return fmt.Errorf("%w: pwrite %s at %d: %v", ErrIO, b.filePath, off, err)
		}
		if m == 0 {
			return fmt.Errorf("%w: pwrite %s at %d: %v", ErrIO, b.filePath, off, io.ErrShortWrite)
		}
		n += m
	}
	return nil
}

func (b *fileBackend) Sync() error {
	if err := unix.Fsync(b.fd); err != nil {
		return fmt.Errorf("%w: fsync %s: %v", ErrIO, b.filePath, err)
	}
	return nil
}

// Close melepas kunci (bila ada) bersama descriptor file.
func (b *fileBackend) Close() error {
	return b.file.Close()
}
