package emitter

import (
	"bytes"
	"context"
	"net/http"
	"net/url"
	"slices"
	"time"

	"github.com/GabrielNunesIT/go-libs/logger"

	"github.com/GabrielNunesIT/plugin-pipeline/internal/config"
	"github.com/GabrielNunesIT/plugin-pipeline/internal/jsonvalue"
	"github.com/GabrielNunesIT/plugin-pipeline/internal/model"
)

// victoriaInsertPath is the VictoriaLogs JSON lines ingestion endpoint.
const victoriaInsertPath = "/insert/jsonline"

// VictoriaLogsOption configures a VictoriaLogsEmitter.
type VictoriaLogsOption func(*VictoriaLogsEmitter)

// WithVictoriaLogsHTTPClient sets a custom HTTP client for testing.
func WithVictoriaLogsHTTPClient(client HTTPDoer) VictoriaLogsOption {
	return func(v *VictoriaLogsEmitter) {
		v.batcher.client = client
	}
}

// VictoriaLogsEmitter pushes records to VictoriaLogs as JSON lines. A payload
// that is a JSON object keeps its fields; anything else is stored as the
// message text, base64 encoded when it is not UTF-8.
type VictoriaLogsEmitter struct {
	cfg     config.VictoriaLogsEmitterConfig
	batcher *pushBatcher
	logger  logger.ILogger
}

// NewVictoriaLogsEmitter creates a new VictoriaLogs emitter.
func NewVictoriaLogsEmitter(cfg config.VictoriaLogsEmitterConfig, log logger.ILogger, opts ...VictoriaLogsOption) *VictoriaLogsEmitter {
	v := &VictoriaLogsEmitter{
		cfg:    cfg,
		logger: log.SubLogger("VictoriaLogsEmitter"),
	}
	v.batcher = newPushBatcher(cfg.BatchSize, cfg.FlushInterval, v.pushRequest, v.logger)
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Name returns the emitter identifier.
func (v *VictoriaLogsEmitter) Name() string {
	return "victorialogs"
}

// Start begins the background flush loop.
func (v *VictoriaLogsEmitter) Start(ctx context.Context) error {
	v.logger.Infof("pushing to VictoriaLogs: url=%s", v.cfg.URL)
	v.batcher.start(ctx)
	return nil
}

// Stop pushes what is left and stops the flush loop.
func (v *VictoriaLogsEmitter) Stop(ctx context.Context) error {
	return v.batcher.close(ctx)
}

// Emit queues rec for the next push.
func (v *VictoriaLogsEmitter) Emit(ctx context.Context, rec *model.Record) error {
	return v.batcher.add(ctx, rec)
}

func (v *VictoriaLogsEmitter) pushRequest(ctx context.Context, batch []*model.Record) (*http.Request, error) {
	var body bytes.Buffer
	for _, rec := range batch {
		line, err := victoriaDocument(rec)
		if err != nil {
			v.logger.Debugf("skipping record from %s: %v", rec.Source, err)
			continue
		}
		body.Write(line)
		body.WriteByte('\n')
	}

	query := url.Values{}
	query.Set("_msg_field", "_msg")
	query.Set("_time_field", "_time")
	query.Set("_stream_fields", "source")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.cfg.URL+victoriaInsertPath+"?"+query.Encode(), &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/stream+json")
	return req, nil
}

// victoriaDocument renders rec as one JSON line with _msg, _time and source.
// Metadata is added under keys the payload does not already use.
func victoriaDocument(rec *model.Record) ([]byte, error) {
	var obj *jsonvalue.Object
	if v, err := jsonvalue.Parse(rec.Data); err == nil && v.Kind == jsonvalue.KindObject {
		obj = v.Object
		msg := string(rec.Data)
		if m, ok := obj.Get("message"); ok && m.Kind == jsonvalue.KindString {
			msg = m.String
		}
		obj.Set("_msg", jsonvalue.String(msg))
	} else {
		env := NewEnvelope(rec)
		obj = jsonvalue.NewObject()
		obj.Set("_msg", jsonvalue.String(env.Payload))
		if env.Encoding != EncodingUTF8 {
			obj.Set("encoding", jsonvalue.String(env.Encoding))
		}
	}

	obj.Set("_time", jsonvalue.String(rec.Timestamp.UTC().Format(time.RFC3339Nano)))
	obj.Set("source", jsonvalue.String(rec.Source))

	keys := make([]string, 0, len(rec.Metadata))
	for k := range rec.Metadata {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		if _, taken := obj.Get(k); !taken {
			obj.Set(k, jsonvalue.String(rec.Metadata[k]))
		}
	}

	return jsonvalue.Marshal(jsonvalue.ObjectValue(obj))
}
