package emitter

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/GabrielNunesIT/go-libs/logger"
	"github.com/natefinch/lumberjack"

	"github.com/GabrielNunesIT/plugin-pipeline/internal/config"
	"github.com/GabrielNunesIT/plugin-pipeline/internal/model"
)

// WriterFactory creates a new WriteCloser.
type WriterFactory func(cfg config.FileEmitterConfig) (io.WriteCloser, error)

// FileOption configures the FileEmitter.
type FileOption func(*FileEmitter)

// WithWriterFactory sets a custom factory for creating the writer.
func WithWriterFactory(f WriterFactory) FileOption {
	return func(e *FileEmitter) {
		e.factory = f
	}
}

// FileEmitter writes records to a size-rotated file.
type FileEmitter struct {
	cfg     config.FileEmitterConfig
	factory WriterFactory
	writer  io.WriteCloser
	mu      sync.Mutex
	logger  logger.ILogger
}

// NewFileEmitter creates a new file emitter backed by lumberjack.
func NewFileEmitter(cfg config.FileEmitterConfig, log logger.ILogger, opts ...FileOption) *FileEmitter {
	e := &FileEmitter{
		cfg:    cfg,
		logger: log.SubLogger("FileEmitter"),
		factory: func(cfg config.FileEmitterConfig) (io.WriteCloser, error) {
			return &lumberjack.Logger{
				Filename:   cfg.Path,
				MaxSize:    cfg.MaxSizeMB,
				MaxBackups: cfg.MaxBackups,
				MaxAge:     cfg.MaxAgeDays,
				Compress:   cfg.Compress,
			}, nil
		},
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Name returns the emitter identifier.
func (f *FileEmitter) Name() string {
	return "file"
}

// Start opens the rotating writer.
func (f *FileEmitter) Start(ctx context.Context) error {
	w, err := f.factory(f.cfg)
	if err != nil {
		return fmt.Errorf("opening %s: %w", f.cfg.Path, err)
	}

	f.mu.Lock()
	f.writer = w
	f.mu.Unlock()

	f.logger.Debugf("file emitter started: path=%s format=%s", f.cfg.Path, f.cfg.Format)
	return nil
}

// Stop closes the writer.
func (f *FileEmitter) Stop(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.writer == nil {
		return nil
	}
	err := f.writer.Close()
	f.writer = nil
	return err
}

// Emit appends rec to the file. Records emitted before Start or after Stop
// are discarded.
func (f *FileEmitter) Emit(ctx context.Context, rec *model.Record) error {
	line, err := formatLine(f.cfg.Format, rec)
	if err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.writer == nil {
		return nil
	}
	_, err = f.writer.Write(line)
	return err
}
