package emitter

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/GabrielNunesIT/go-libs/logger"

	"github.com/GabrielNunesIT/plugin-pipeline/internal/model"
)

// HTTPDoer abstracts HTTP client operations for testing.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

var _ HTTPDoer = (*http.Client)(nil)

// defaultHTTPTimeout bounds one push request.
const defaultHTTPTimeout = 10 * time.Second

// requestFunc builds the push request for one batch.
type requestFunc func(ctx context.Context, batch []*model.Record) (*http.Request, error)

// pushBatcher collects records and posts them in batches, when the batch is
// full, on every tick of the flush interval and on Stop. A failed push keeps
// the batch for the next attempt.
type pushBatcher struct {
	client    HTTPDoer
	batchSize int
	interval  time.Duration
	request   requestFunc
	logger    logger.ILogger

	mu      sync.Mutex
	pending []*model.Record
	done    chan struct{}
	stop    sync.Once
}

func newPushBatcher(batchSize int, interval time.Duration, request requestFunc, log logger.ILogger) *pushBatcher {
	if batchSize <= 0 {
		batchSize = 1
	}
	return &pushBatcher{
		client:    &http.Client{Timeout: defaultHTTPTimeout},
		batchSize: batchSize,
		interval:  interval,
		request:   request,
		logger:    log,
		done:      make(chan struct{}),
	}
}

func (b *pushBatcher) start(ctx context.Context) {
	if b.interval <= 0 {
		return
	}
	go b.flushLoop(ctx)
}

func (b *pushBatcher) flushLoop(ctx context.Context) {
	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-b.done:
			return
		case <-ticker.C:
			if err := b.flush(ctx); err != nil {
				b.logger.Debugf("flush error: %v", err)
			}
		}
	}
}

func (b *pushBatcher) add(ctx context.Context, rec *model.Record) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.pending = append(b.pending, rec)
	if len(b.pending) >= b.batchSize {
		return b.flushLocked(ctx)
	}
	return nil
}

func (b *pushBatcher) close(ctx context.Context) error {
	b.stop.Do(func() { close(b.done) })
	return b.flush(ctx)
}

func (b *pushBatcher) flush(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.flushLocked(ctx)
}

// flushLocked posts the pending batch; the caller holds mu.
func (b *pushBatcher) flushLocked(ctx context.Context) error {
	if len(b.pending) == 0 {
		return nil
	}

	req, err := b.request(ctx, b.pending)
	if err != nil {
		return err
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return fmt.Errorf("push failed: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 400 {
		return fmt.Errorf("push failed with status: %d", resp.StatusCode)
	}

	b.logger.Debugf("pushed %d records", len(b.pending))
	b.pending = b.pending[:0]
	return nil
}

// size returns the number of records waiting for a push.
func (b *pushBatcher) size() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending)
}
