package emitter

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"unicode/utf8"

	"github.com/GabrielNunesIT/go-libs/logger"

	"github.com/GabrielNunesIT/plugin-pipeline/internal/config"
	"github.com/GabrielNunesIT/plugin-pipeline/internal/model"
)

// lokiPushPath is the Loki push API endpoint.
const lokiPushPath = "/loki/api/v1/push"

// lokiPushRequest is the Loki push API request format.
type lokiPushRequest struct {
	Streams []lokiStream `json:"streams"`
}

// lokiStream is one label set and its entries. An entry is
// [unix-nanos, line] or [unix-nanos, line, structured-metadata].
type lokiStream struct {
	Stream map[string]string `json:"stream"`
	Values [][]any           `json:"values"`
}

// LokiOption configures a LokiEmitter.
type LokiOption func(*LokiEmitter)

// WithLokiHTTPClient sets a custom HTTP client for testing.
func WithLokiHTTPClient(client HTTPDoer) LokiOption {
	return func(l *LokiEmitter) {
		l.batcher.client = client
	}
}

// LokiEmitter pushes records to Grafana Loki. Records are grouped into one
// stream per source; the configured labels are added to every stream and the
// record metadata travels as structured metadata so it never becomes a label.
type LokiEmitter struct {
	cfg     config.LokiEmitterConfig
	batcher *pushBatcher
	logger  logger.ILogger
}

// NewLokiEmitter creates a new Loki emitter.
func NewLokiEmitter(cfg config.LokiEmitterConfig, log logger.ILogger, opts ...LokiOption) *LokiEmitter {
	l := &LokiEmitter{
		cfg:    cfg,
		logger: log.SubLogger("LokiEmitter"),
	}
	l.batcher = newPushBatcher(cfg.BatchSize, cfg.FlushInterval, l.pushRequest, l.logger)
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Name returns the emitter identifier.
func (l *LokiEmitter) Name() string {
	return "loki"
}

// Start begins the background flush loop.
func (l *LokiEmitter) Start(ctx context.Context) error {
	l.logger.Infof("pushing to Loki: url=%s", l.cfg.URL)
	l.batcher.start(ctx)
	return nil
}

// Stop pushes what is left and stops the flush loop.
func (l *LokiEmitter) Stop(ctx context.Context) error {
	return l.batcher.close(ctx)
}

// Emit queues rec for the next push.
func (l *LokiEmitter) Emit(ctx context.Context, rec *model.Record) error {
	return l.batcher.add(ctx, rec)
}

func (l *LokiEmitter) pushRequest(ctx context.Context, batch []*model.Record) (*http.Request, error) {
	body, err := json.Marshal(l.streams(batch))
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, l.cfg.URL+lokiPushPath, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if l.cfg.TenantID != "" {
		req.Header.Set("X-Scope-OrgID", l.cfg.TenantID)
	}
	return req, nil
}

// streams groups batch by source, in order of first appearance.
func (l *LokiEmitter) streams(batch []*model.Record) lokiPushRequest {
	var push lokiPushRequest
	index := make(map[string]int)

	for _, rec := range batch {
		i, ok := index[rec.Source]
		if !ok {
			labels := make(map[string]string, len(l.cfg.Labels)+1)
			for k, v := range l.cfg.Labels {
				labels[k] = v
			}
			labels["source"] = rec.Source

			i = len(push.Streams)
			index[rec.Source] = i
			push.Streams = append(push.Streams, lokiStream{Stream: labels})
		}

		entry := []any{strconv.FormatInt(rec.Timestamp.UnixNano(), 10), lokiLine(rec)}
		if len(rec.Metadata) > 0 {
			entry = append(entry, rec.Metadata)
		}
		push.Streams[i].Values = append(push.Streams[i].Values, entry)
	}
	return push
}

// lokiLine is the payload itself when it is text, otherwise its envelope.
func lokiLine(rec *model.Record) string {
	if utf8.Valid(rec.Data) {
		return string(rec.Data)
	}
	out, err := json.Marshal(NewEnvelope(rec))
	if err != nil {
		return ""
	}
	return string(out)
}
