package processor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/GabrielNunesIT/go-libs/logger"

	"github.com/GabrielNunesIT/plugin-pipeline/internal/metrics"
	"github.com/GabrielNunesIT/plugin-pipeline/internal/model"
	"github.com/GabrielNunesIT/plugin-pipeline/internal/transfer"
	"github.com/GabrielNunesIT/plugin-pipeline/internal/unit"
)

// Stage runs one unit over the record payload. Every invocation gets a fresh
// MemoryHost so no state leaks between records.
type Stage struct {
	unit     unit.Unit
	recorder metrics.Recorder
	logger   logger.ILogger
}

// NewStage wraps u. A nil recorder discards observations.
func NewStage(u unit.Unit, recorder metrics.Recorder, log logger.ILogger) *Stage {
	if recorder == nil {
		recorder = metrics.Nop{}
	}
	return &Stage{
		unit:     u,
		recorder: recorder,
		logger:   log.SubLogger("Stage." + u.Name),
	}
}

// Name returns the unit name.
func (s *Stage) Name() string {
	return s.unit.Name
}

// Process invokes the unit once. The record is dropped when the unit reports
// an error or does not deliver exactly one buffer.
func (s *Stage) Process(ctx context.Context, rec *model.Record) error {
	host := transfer.NewMemoryHost(rec.Data)

	start := time.Now()
	outcome := s.unit.Receive(host, len(rec.Data))
	elapsed := time.Since(start)

	if errs := host.Errors(); len(errs) > 0 {
		s.recorder.Observe(s.unit.Name, metrics.OutcomeError, elapsed)
		s.logger.Debugf("unit reported error: %s", strings.Join(errs, "; "))
		return fmt.Errorf("%w: %s: %s", ErrDropped, s.unit.Name, strings.Join(errs, "; "))
	}

	sent := host.Sent()
	if len(sent) != 1 {
		s.recorder.Observe(s.unit.Name, metrics.OutcomeDropped, elapsed)
		return fmt.Errorf("%w: %s delivered %d buffers", ErrDropped, s.unit.Name, len(sent))
	}

	switch {
	case outcome.Rejected:
		s.recorder.Observe(s.unit.Name, metrics.OutcomeRejected, elapsed)
	case outcome.Kind == transfer.KindPassThrough:
		s.recorder.Observe(s.unit.Name, metrics.OutcomeUnchanged, elapsed)
	default:
		s.recorder.Observe(s.unit.Name, metrics.OutcomeDelivered, elapsed)
	}

	rec.Data = sent[0]
	return nil
}
