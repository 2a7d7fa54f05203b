// Package errors provides the error types returned by interop hosts.
// All error types support error unwrapping via errors.As() and errors.Is().
package errors

import (
	stdErrors "errors"
	"fmt"

	"github.com/reglet-dev/interop/domain/entities"
)

// ErrorDetail is an alias to entities.ErrorDetail for convenience.
type ErrorDetail = entities.ErrorDetail

// ErrHandleNotOwned is returned when a string handle is freed that the
// caller does not currently own: never issued, or already freed.
var ErrHandleNotOwned = stdErrors.New("string handle not owned by caller")

// ErrClosed is returned by calls on a library that has been closed.
var ErrClosed = stdErrors.New("library closed")

// DetailedError is implemented by error types that can convert themselves
// to a structured ErrorDetail.
type DetailedError interface {
	error
	ToErrorDetail() *entities.ErrorDetail
}

// ToErrorDetail converts a Go error to our structured ErrorDetail.
func ToErrorDetail(err error) *entities.ErrorDetail {
	if err == nil {
		return nil
	}

	var e *entities.ErrorDetail
	if stdErrors.As(err, &e) {
		return e
	}

	var de DetailedError
	if stdErrors.As(err, &de) {
		return de.ToErrorDetail()
	}

	return &entities.ErrorDetail{
		Message: err.Error(),
		Type:    "internal",
	}
}

// detail builds the ErrorDetail for err. A cause that carries its own
// structure is kept as the wrapped detail.
func detail(typ string, err error, code string, cause error) *entities.ErrorDetail {
	d := entities.NewErrorDetail(typ, err.Error()).WithCode(code)
	var de DetailedError
	if cause != nil && stdErrors.As(cause, &de) {
		d.Wrapped = de.ToErrorDetail()
	}
	return d
}

// LoadError represents a library that could not be opened or instantiated.
type LoadError struct {
	Err     error
	Backend string
	Path    string
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("%s: failed to load %q: %v", e.Backend, e.Path, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// ToErrorDetail implements DetailedError.
func (e *LoadError) ToErrorDetail() *entities.ErrorDetail {
	return detail("load", e, e.Backend, e.Err).WithDetails(map[string]any{"path": e.Path})
}

// SymbolError represents an export that is missing or whose call
// interface could not be prepared.
type SymbolError struct {
	Err    error
	Symbol string
}

func (e *SymbolError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("export %q unavailable: %v", e.Symbol, e.Err)
	}
	return fmt.Sprintf("export %q not found", e.Symbol)
}

func (e *SymbolError) Unwrap() error {
	return e.Err
}

// ToErrorDetail implements DetailedError.
func (e *SymbolError) ToErrorDetail() *entities.ErrorDetail {
	return detail("symbol", e, e.Symbol, e.Err)
}

// LayoutError reports a fixed-layout type whose compiled layout does not
// match the boundary contract.
type LayoutError struct {
	Type   string
	Reason string
}

func (e *LayoutError) Error() string {
	return fmt.Sprintf("layout of %s breaks the boundary contract: %s", e.Type, e.Reason)
}

// ToErrorDetail implements DetailedError.
func (e *LayoutError) ToErrorDetail() *entities.ErrorDetail {
	return detail("layout", e, e.Type, nil)
}

// ABIVersionError reports a library built against a different ABI version.
type ABIVersionError struct {
	Want uint32
	Got  uint32
}

func (e *ABIVersionError) Error() string {
	return fmt.Sprintf("library ABI version %d, host expects %d", e.Got, e.Want)
}

// ToErrorDetail implements DetailedError.
func (e *ABIVersionError) ToErrorDetail() *entities.ErrorDetail {
	return detail("abi_version", e, "", nil).WithDetails(map[string]any{"want": e.Want, "got": e.Got})
}

// BufferError reports a caller-allocated buffer that cannot satisfy a call.
// It is raised on the host before crossing the boundary.
type BufferError struct {
	Export string
	Need   int
	Have   int
}

func (e *BufferError) Error() string {
	return fmt.Sprintf("%s: output buffer holds %d bytes, need %d", e.Export, e.Have, e.Need)
}

// ToErrorDetail implements DetailedError.
func (e *BufferError) ToErrorDetail() *entities.ErrorDetail {
	return detail("buffer", e, e.Export, nil).WithDetails(map[string]any{"need": e.Need, "have": e.Have})
}

// HandleError reports misuse of a string handle.
type HandleError struct {
	Err    error
	Handle entities.StringHandle
	Op     string
}

func (e *HandleError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Handle, e.Err)
}

func (e *HandleError) Unwrap() error {
	return e.Err
}

// ToErrorDetail implements DetailedError.
func (e *HandleError) ToErrorDetail() *entities.ErrorDetail {
	return detail("handle", e, e.Op, e.Err).WithDetails(map[string]any{"handle": e.Handle.String()})
}

// MemoryError reports an allocation or memory access that failed. Refused
// is set when the library itself declined the allocation and returned a
// null pointer.
type MemoryError struct {
	Op      string
	Offset  uint32
	Length  uint32
	Limit   int
	Refused bool
}

func (e *MemoryError) Error() string {
	if e.Refused {
		return fmt.Sprintf("%s: library declined the allocation", e.Op)
	}
	if e.Limit > 0 {
		return fmt.Sprintf("%s of %d bytes exceeds allocation limit of %d bytes", e.Op, e.Length, e.Limit)
	}
	return fmt.Sprintf("%s out of range (offset %d, length %d)", e.Op, e.Offset, e.Length)
}

// ToErrorDetail implements DetailedError.
func (e *MemoryError) ToErrorDetail() *entities.ErrorDetail {
	d := detail("memory", e, e.Op, nil)
	switch {
	case e.Refused:
		return d.WithDetails(map[string]any{"refused": true})
	case e.Limit > 0:
		return d.WithDetails(map[string]any{"length": e.Length, "limit": e.Limit})
	}
	return d.WithDetails(map[string]any{"offset": e.Offset, "length": e.Length})
}

// CallError wraps a failure raised while executing an export, such as a
// WASM trap.
type CallError struct {
	Err    error
	Export string
}

func (e *CallError) Error() string {
	return fmt.Sprintf("call to %s failed: %v", e.Export, e.Err)
}

func (e *CallError) Unwrap() error {
	return e.Err
}

// ToErrorDetail implements DetailedError.
func (e *CallError) ToErrorDetail() *entities.ErrorDetail {
	return detail("call", e, e.Export, e.Err)
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Err   error
	Field string
}

func (e *ConfigError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("config validation failed for field '%s': %v", e.Field, e.Err)
	}
	return fmt.Sprintf("config validation failed: %v", e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// ToErrorDetail implements DetailedError.
func (e *ConfigError) ToErrorDetail() *entities.ErrorDetail {
	return detail("config", e, e.Field, e.Err)
}
