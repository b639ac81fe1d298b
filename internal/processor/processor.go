// Package processor defines the per-record transformation chain run by the host.
package processor

import (
	"context"
	"errors"

	"github.com/GabrielNunesIT/plugin-pipeline/internal/model"
)

// ErrDropped marks a record that must not reach any emitter.
var ErrDropped = errors.New("record dropped")

// Processor defines the contract for record transformations.
// Processors modify the Record in place.
type Processor interface {
	// Process transforms a Record in place.
	// An error means the record should be dropped.
	Process(ctx context.Context, rec *model.Record) error

	// Name returns a unique identifier for this processor.
	Name() string
}

// Chain composes multiple processors into a sequential pipeline.
type Chain struct {
	processors []Processor
}

// NewChain creates a new processor chain.
func NewChain(processors ...Processor) *Chain {
	return &Chain{processors: processors}
}

// Process applies all processors in sequence, stopping at the first error.
func (c *Chain) Process(ctx context.Context, rec *model.Record) error {
	for _, p := range c.processors {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err := p.Process(ctx, rec); err != nil {
			return err
		}
	}
	return nil
}

// Name returns the chain identifier.
func (c *Chain) Name() string {
	return "chain"
}

// Add appends a processor to the chain.
func (c *Chain) Add(p Processor) {
	c.processors = append(c.processors, p)
}

// Len returns the number of processors in the chain.
func (c *Chain) Len() int {
	return len(c.processors)
}

// Names lists the processors in order.
func (c *Chain) Names() []string {
	names := make([]string, len(c.processors))
	for i, p := range c.processors {
		names[i] = p.Name()
	}
	return names
}
