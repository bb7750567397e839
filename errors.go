package pagepool

import "errors"

var (
	ErrClosed        = errors.New("buffer pool is closed")
	ErrOffsetRange   = errors.New("page offset out of addressable range")
	ErrInvalidConfig = errors.New("invalid buffer pool config")
	ErrFileLocked    = errors.New("backing file is locked by another pool")
	ErrIO            = errors.New("i/o error")
)
