// Package entities provides the value types that cross the interop boundary
// and the host-side records built around them.
// The vector types are fixed-layout: their in-memory form is the contract
// shared with the native library and the WASM guest.
package entities
