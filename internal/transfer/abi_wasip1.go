//go:build wasip1

package transfer

import "unsafe"

//go:wasmimport env get_data
func hostGetData(ptr unsafe.Pointer)

//go:wasmimport env send
func hostSend(ptr unsafe.Pointer, size uint32) uint32

//go:wasmimport env error
func hostError(ptr unsafe.Pointer, size uint32)

// ABIHost is the Host implemented by the functions the runtime imports into
// the module under the "env" namespace.
type ABIHost struct{}

// RequestBytes asks the runtime to copy the pending message into a buffer
// sized exactly to length.
func (ABIHost) RequestBytes(length int) []byte {
	buf := make([]byte, length)
	if length > 0 {
		hostGetData(unsafe.Pointer(&buf[0]))
	}
	return buf
}

// DeliverOutput passes data to the runtime, which copies it out of module memory.
func (ABIHost) DeliverOutput(data []byte) bool {
	return hostSend(unsafe.Pointer(unsafe.SliceData(data)), uint32(len(data))) != 0
}

// ReportError passes msg to the runtime's error channel.
func (ABIHost) ReportError(msg string) {
	hostError(unsafe.Pointer(unsafe.StringData(msg)), uint32(len(msg)))
}
