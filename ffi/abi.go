// Package ffi is the C ABI surface from spec §4.12: opaque handles for
// Client/Operation/Batch, a registry mapping handle to owned object,
// numeric result codes mapping 1:1 onto anerr.Kind, and paired
// allocate/free functions. This is deliberately "shape, not code": the
// functions here are ordinary exported Go functions following the ABI
// discipline (handle in, result code out, no Go pointers escaping);
// wrapping them with `//export` comments in a `package main`
// `-buildmode=c-shared` target is a packaging concern for whatever
// consumes this module from C, not something this library build
// produces itself.
package ffi

// ABIVersion is the compile-time ABI version; consumers must match it
// against AbiVersion() at init, per spec §4.12.
const ABIVersion = 1

// AbiVersion is the runtime counterpart to ABIVersion, for a dynamically
// loaded consumer that can't see the compile-time constant.
func AbiVersion() int { return ABIVersion }
