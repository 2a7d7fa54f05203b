package host

import (
	"context"
	"errors"
	"sync"

	"github.com/reglet-dev/interop/domain/entities"
	"github.com/reglet-dev/interop/domain/ports"
)

// FormatString calls format_string, copies the result and frees it.
// The handle is freed exactly once, also when reading fails.
func FormatString(ctx context.Context, lib ports.Library, n uint32) (string, error) {
	s, err := NewOwnedString(ctx, lib, n)
	if err != nil {
		return "", err
	}
	text, readErr := s.Read(ctx)
	freeErr := s.Free(ctx)
	if readErr != nil {
		return "", errors.Join(readErr, freeErr)
	}
	return text, freeErr
}

// OwnedString is a library string held by the host. Free releases it and
// is safe to call more than once.
type OwnedString struct {
	lib    ports.Library
	handle entities.StringHandle

	once    sync.Once
	freeErr error
}

// NewOwnedString calls format_string and wraps the returned handle.
func NewOwnedString(ctx context.Context, lib ports.Library, n uint32) (*OwnedString, error) {
	h, err := lib.FormatString(ctx, n)
	if err != nil {
		return nil, err
	}
	return &OwnedString{lib: lib, handle: h}, nil
}

// Handle returns the underlying handle.
func (s *OwnedString) Handle() entities.StringHandle {
	return s.handle
}

// Read copies the string contents.
func (s *OwnedString) Read(ctx context.Context) (string, error) {
	return s.lib.ReadString(ctx, s.handle)
}

// Free releases the string. Later calls return the first result.
func (s *OwnedString) Free(ctx context.Context) error {
	s.once.Do(func() {
		s.freeErr = s.lib.FreeString(ctx, s.handle)
	})
	return s.freeErr
}
