//go:build wasip1

// Command nginx-parser is the nginx-parser unit as a WebAssembly reactor module. It must be
// built with -buildmode=c-shared so the runtime can call _initialize once and
// receive afterwards; a default build exits when main returns and the module
// is closed after the first call:
//
//	GOOS=wasip1 GOARCH=wasm go build -buildmode=c-shared -o nginx-parser.wasm ./cmd/units/nginx-parser
package main

import (
	"github.com/GabrielNunesIT/plugin-pipeline/internal/transfer"
	"github.com/GabrielNunesIT/plugin-pipeline/internal/unit"
)

//go:wasmexport receive
func receive(length uint32) {
	transfer.Serve(transfer.ABIHost{}, int(length), unit.NginxParser)
}

// main is never called in a c-shared build.
func main() {}
