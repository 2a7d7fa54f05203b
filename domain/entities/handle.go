package entities

import "fmt"

// StringHandle names one string allocated by the library and owned by the
// caller until it is passed back to free_string.
//
// The value is backend specific: a C pointer for the native library, a
// packed ptr<<32|len for the WASM guest. Zero is never a valid handle.
type StringHandle uint64

// IsZero reports whether h is the null handle.
func (h StringHandle) IsZero() bool {
	return h == 0
}

func (h StringHandle) String() string {
	return fmt.Sprintf("0x%x", uint64(h))
}
