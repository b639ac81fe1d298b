package ingestor

import (
	"bufio"
	"context"
	"io"
	"os"

	"github.com/GabrielNunesIT/go-libs/logger"

	"github.com/GabrielNunesIT/plugin-pipeline/internal/model"
)

// maxLineSize bounds a single stdin record.
const maxLineSize = 1024 * 1024

// StdinOption configures the StdinIngestor.
type StdinOption func(*StdinIngestor)

// WithReader replaces os.Stdin, mainly for tests.
func WithReader(r io.Reader) StdinOption {
	return func(s *StdinIngestor) {
		s.reader = r
	}
}

// StdinIngestor turns every non-empty line of standard input into one record.
type StdinIngestor struct {
	name   string
	reader io.Reader
	logger logger.ILogger
}

// NewStdinIngestor creates a new stdin ingestor.
func NewStdinIngestor(log logger.ILogger, opts ...StdinOption) *StdinIngestor {
	s := &StdinIngestor{
		name:   "stdin",
		reader: os.Stdin,
		logger: log.SubLogger("StdinIngestor"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns the ingestor identifier.
func (s *StdinIngestor) Name() string {
	return s.name
}

// Start reads lines until EOF or cancellation.
func (s *StdinIngestor) Start(ctx context.Context, out chan<- *model.Record) error {
	defer close(out)

	s.logger.Info("reading from stdin")

	scanner := bufio.NewScanner(s.reader)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)

	lines := 0
	for scanner.Scan() {
		if ctx.Err() != nil {
			s.logger.Debugf("stdin ingestor stopped: lines_read=%d", lines)
			return ctx.Err()
		}

		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		// The scanner reuses its buffer.
		data := make([]byte, len(line))
		copy(data, line)
		lines++

		select {
		case out <- model.NewRecord(s.name, data):
		case <-ctx.Done():
			s.logger.Debugf("stdin ingestor stopped: lines_read=%d", lines)
			return ctx.Err()
		}
	}

	if err := scanner.Err(); err != nil {
		s.logger.Errorf("stdin read error: %v", err)
		return err
	}

	s.logger.Infof("EOF reached: lines_read=%d", lines)
	return nil
}
