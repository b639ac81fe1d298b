// Package emitter defines the interface and implementations for record destinations.
package emitter

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"time"
	"unicode/utf8"

	"github.com/GabrielNunesIT/plugin-pipeline/internal/model"
)

// Emitter defines the contract for record destinations.
type Emitter interface {
	// Start initializes the emitter (connections, buffers, etc.).
	// Called once before Emit is called.
	Start(ctx context.Context) error

	// Emit sends a record to the destination.
	// Must be safe to call concurrently.
	Emit(ctx context.Context, rec *model.Record) error

	// Stop gracefully shuts down the emitter.
	// Should flush any buffered data before returning.
	Stop(ctx context.Context) error

	// Name returns a unique identifier for this emitter.
	Name() string
}

// Output formats shared by the line-oriented emitters.
const (
	FormatRaw  = "raw"
	FormatJSON = "json"
)

// Payload encodings used in envelopes.
const (
	EncodingUTF8   = "utf8"
	EncodingBase64 = "base64"
)

// Envelope wraps a payload with its host-side context. Units may produce
// arbitrary bytes (MessagePack, for instance), so payloads that are not valid
// UTF-8 are base64 encoded.
type Envelope struct {
	Timestamp string            `json:"timestamp"`
	Source    string            `json:"source"`
	Encoding  string            `json:"encoding"`
	Payload   string            `json:"payload"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// NewEnvelope builds the envelope for rec.
func NewEnvelope(rec *model.Record) Envelope {
	env := Envelope{
		Timestamp: rec.Timestamp.UTC().Format(time.RFC3339Nano),
		Source:    rec.Source,
		Encoding:  EncodingUTF8,
		Metadata:  rec.Metadata,
	}
	if utf8.Valid(rec.Data) {
		env.Payload = string(rec.Data)
	} else {
		env.Encoding = EncodingBase64
		env.Payload = base64.StdEncoding.EncodeToString(rec.Data)
	}
	return env
}

// formatLine renders rec in format followed by a newline.
func formatLine(format string, rec *model.Record) ([]byte, error) {
	if format == FormatRaw {
		line := make([]byte, 0, len(rec.Data)+1)
		line = append(line, rec.Data...)
		return append(line, '\n'), nil
	}

	out, err := json.Marshal(NewEnvelope(rec))
	if err != nil {
		return nil, err
	}
	return append(out, '\n'), nil
}
