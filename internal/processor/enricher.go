package processor

import (
	"context"
	"os"
	"time"

	"github.com/GabrielNunesIT/plugin-pipeline/internal/config"
	"github.com/GabrielNunesIT/plugin-pipeline/internal/model"
)

// Metadata keys written by the Enricher.
const (
	MetaHostname    = "hostname"
	MetaProcessedAt = "processed_at"
)

// EnricherOption configures the Enricher.
type EnricherOption func(*Enricher)

// WithHostname overrides the detected hostname.
func WithHostname(hostname string) EnricherOption {
	return func(e *Enricher) {
		e.hostname = hostname
	}
}

// WithClock replaces time.Now for the processed_at label.
func WithClock(now func() time.Time) EnricherOption {
	return func(e *Enricher) {
		e.now = now
	}
}

// Enricher adds host-side metadata to records. It never touches the payload,
// so units further down the chain see the same bytes.
type Enricher struct {
	cfg      config.EnricherConfig
	hostname string
	now      func() time.Time
}

// NewEnricher creates a new enrichment processor.
func NewEnricher(cfg config.EnricherConfig, opts ...EnricherOption) *Enricher {
	e := &Enricher{cfg: cfg, now: time.Now}
	if cfg.AddHostname {
		e.hostname, _ = os.Hostname()
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name returns the processor identifier.
func (e *Enricher) Name() string {
	return "enricher"
}

// Process writes the configured labels into rec.Metadata.
func (e *Enricher) Process(_ context.Context, rec *model.Record) error {
	if !e.cfg.Enabled {
		return nil
	}
	if rec.Metadata == nil {
		rec.Metadata = make(map[string]string)
	}

	if e.cfg.AddHostname && e.hostname != "" {
		rec.Metadata[MetaHostname] = e.hostname
	}
	if e.cfg.AddTimestamp {
		rec.Metadata[MetaProcessedAt] = e.now().UTC().Format(time.RFC3339Nano)
	}
	for k, v := range e.cfg.StaticLabels {
		rec.Metadata[k] = v
	}

	return nil
}
