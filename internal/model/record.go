// Package model defines the data structures that flow through the host pipeline.
package model

import (
	"time"
)

// Record is one message travelling through the pipeline. Each stage invocation
// receives Data as its input buffer and replaces it with the delivered output.
type Record struct {
	// Timestamp is when the record was ingested.
	Timestamp time.Time

	// Source identifies which ingestor produced this record.
	Source string

	// Data is the current payload.
	Data []byte

	// Metadata carries host-side annotations such as the origin file or
	// enrichment labels. Units never see it.
	Metadata map[string]string
}

// NewRecord creates a Record with initialized metadata and the current timestamp.
func NewRecord(source string, data []byte) *Record {
	return &Record{
		Timestamp: time.Now(),
		Source:    source,
		Data:      data,
		Metadata:  make(map[string]string),
	}
}

// Clone creates a deep copy of the Record.
// Fan-out hands each emitter its own copy.
func (r *Record) Clone() *Record {
	clone := &Record{
		Timestamp: r.Timestamp,
		Source:    r.Source,
		Data:      make([]byte, len(r.Data)),
		Metadata:  make(map[string]string, len(r.Metadata)),
	}
	copy(clone.Data, r.Data)
	for k, v := range r.Metadata {
		clone.Metadata[k] = v
	}
	return clone
}
