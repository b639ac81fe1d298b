// Package transfer implements the buffer exchange between a transformation unit
// and the host that invokes it.
//
// Every unit follows the same sequence for one invocation: request the pending
// input of a known length, run exactly one transformation, then either deliver
// an output buffer or report an error. Nothing is retained between invocations.
package transfer

// Host is the boundary a unit talks to.
type Host interface {
	// RequestBytes returns exactly length bytes of pending input.
	RequestBytes(length int) []byte

	// DeliverOutput hands a result buffer to the host.
	// It reports whether the host accepted the buffer.
	DeliverOutput(data []byte) bool

	// ReportError signals that the invocation produced no result.
	ReportError(msg string)
}

// TransformFunc is one deterministic transformation over a complete buffer.
type TransformFunc func(input []byte) Outcome

// Kind distinguishes the three results a transformation can have.
type Kind uint8

const (
	// KindDeliver carries a new output buffer.
	KindDeliver Kind = iota
	// KindPassThrough means nothing applied; the input is delivered unchanged.
	KindPassThrough
	// KindFail means the input could not be processed; nothing is delivered.
	KindFail
)

func (k Kind) String() string {
	switch k {
	case KindDeliver:
		return "deliver"
	case KindPassThrough:
		return "passthrough"
	case KindFail:
		return "fail"
	default:
		return "unknown"
	}
}

// Outcome is the result of a transformation and, after Serve, of its delivery.
type Outcome struct {
	Kind Kind
	Data []byte
	Err  error

	// Rejected is set by Serve when the host refused the delivered buffer.
	Rejected bool
}

// Deliver returns an outcome that delivers data.
func Deliver(data []byte) Outcome {
	return Outcome{Kind: KindDeliver, Data: data}
}

// PassThrough returns an outcome that delivers the original input.
func PassThrough() Outcome {
	return Outcome{Kind: KindPassThrough}
}

// Fail returns an outcome that reports err to the host.
func Fail(err error) Outcome {
	return Outcome{Kind: KindFail, Err: err}
}

// Serve performs one invocation against h: it requests length bytes, applies fn
// and delivers the output or reports the error. A rejected delivery does not
// turn into an error; it is only recorded on the returned outcome.
func Serve(h Host, length int, fn TransformFunc) Outcome {
	input := h.RequestBytes(length)

	out := fn(input)
	switch out.Kind {
	case KindDeliver:
		out.Rejected = !h.DeliverOutput(out.Data)
	case KindPassThrough:
		out.Data = input
		out.Rejected = !h.DeliverOutput(input)
	case KindFail:
		msg := "transformation failed"
		if out.Err != nil {
			msg = out.Err.Error()
		}
		h.ReportError(msg)
	}
	return out
}
