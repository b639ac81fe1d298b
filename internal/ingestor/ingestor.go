// Package ingestor defines the interface and implementations for record sources.
package ingestor

import (
	"context"

	"github.com/GabrielNunesIT/plugin-pipeline/internal/model"
)

// Ingestor defines the contract for record sources.
// Each ingestor runs in its own goroutine and pushes records to the output channel.
type Ingestor interface {
	// Start begins ingesting and sends records to the output channel.
	// It blocks until the context is cancelled, the source is exhausted or an
	// unrecoverable error occurs. The implementation must close out when done.
	Start(ctx context.Context, out chan<- *model.Record) error

	// Name returns a unique identifier for this ingestor instance.
	Name() string
}
