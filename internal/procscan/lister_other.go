//go:build !linux

package procscan

import (
	"context"
	"errors"
)

// ErrUnsupported is returned on platforms without a process-table reader.
// The scanner logs it once and idles; the other sources are unaffected.
var ErrUnsupported = errors.New("process enumeration not supported on this platform")

type unsupportedLister struct{}

// NewPlatformLister returns a Lister that reports ErrUnsupported.
func NewPlatformLister() Lister {
	return unsupportedLister{}
}

func (unsupportedLister) Processes(ctx context.Context) ([]Process, error) {
	return nil, ErrUnsupported
}

func (unsupportedLister) OpenFiles(ctx context.Context, pid int) ([]string, error) {
	return nil, ErrUnsupported
}
