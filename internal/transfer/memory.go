package transfer

// MemoryHost is a Host backed by process memory. It serves as the in-process
// host of the pipeline and as the test double of the boundary.
type MemoryHost struct {
	data   []byte
	reject bool

	requests int
	sent     [][]byte
	errors   []string
}

// NewMemoryHost creates a host whose pending input is data.
func NewMemoryHost(data []byte) *MemoryHost {
	return &MemoryHost{data: data}
}

// RejectDeliveries makes every later DeliverOutput call return false.
func (m *MemoryHost) RejectDeliveries() {
	m.reject = true
}

// RequestBytes copies the pending input into a new buffer of exactly length
// bytes. Missing bytes are left zero.
func (m *MemoryHost) RequestBytes(length int) []byte {
	m.requests++
	buf := make([]byte, length)
	copy(buf, m.data)
	return buf
}

// DeliverOutput records a copy of data.
func (m *MemoryHost) DeliverOutput(data []byte) bool {
	cp := make([]byte, len(data))
	copy(cp, data)
	m.sent = append(m.sent, cp)
	return !m.reject
}

// ReportError records msg.
func (m *MemoryHost) ReportError(msg string) {
	m.errors = append(m.errors, msg)
}

// Requests returns how many times input was requested.
func (m *MemoryHost) Requests() int {
	return m.requests
}

// Sent returns every buffer delivered so far, in order.
func (m *MemoryHost) Sent() [][]byte {
	return m.sent
}

// Errors returns every error message reported so far, in order.
func (m *MemoryHost) Errors() []string {
	return m.errors
}
