//go:build wasip1

// Command reverse is the reverse unit as a WebAssembly reactor module. It must be
// built with -buildmode=c-shared so the runtime can call _initialize once and
// receive afterwards; a default build exits when main returns and the module
// is closed after the first call:
//
//	GOOS=wasip1 GOARCH=wasm go build -buildmode=c-shared -o reverse.wasm ./cmd/units/reverse
package main

import (
	"github.com/GabrielNunesIT/plugin-pipeline/internal/transfer"
	"github.com/GabrielNunesIT/plugin-pipeline/internal/unit"
)

//go:wasmexport receive
func receive(length uint32) {
	transfer.Serve(transfer.ABIHost{}, int(length), unit.Reverse)
}

// main is never called in a c-shared build.
func main() {}
