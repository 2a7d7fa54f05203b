// Package host loads an interop library and calls across its boundary.
//
// Three loaders implement ports.Loader: NativeLoader opens a C shared
// library through libffi, WasmLoader instantiates the WASI build of the
// library under wazero, and InProcessLoader calls the Go export table
// directly as a reference. Run performs the flat call sequence against any
// of them and reports what crossed the boundary intact.
package host
