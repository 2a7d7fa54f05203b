// Package ports defines the interfaces between the host and its infrastructure.
// Hosts depend on these abstractions; the native, WASM and in-process
// loaders and the config parser implement them.
package ports
