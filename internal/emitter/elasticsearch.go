package emitter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/GabrielNunesIT/go-libs/logger"
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esutil"

	"github.com/GabrielNunesIT/plugin-pipeline/internal/config"
	"github.com/GabrielNunesIT/plugin-pipeline/internal/jsonvalue"
	"github.com/GabrielNunesIT/plugin-pipeline/internal/model"
)

// timestampField is added to indexed documents that do not carry one.
const timestampField = "@timestamp"

// IndexerFactory creates a new BulkIndexer.
type IndexerFactory func(cfg config.ElasticsearchEmitterConfig) (esutil.BulkIndexer, error)

// ElasticsearchOption configures the ElasticsearchEmitter.
type ElasticsearchOption func(*ElasticsearchEmitter)

// WithIndexerFactory sets a custom factory for creating the BulkIndexer.
func WithIndexerFactory(f IndexerFactory) ElasticsearchOption {
	return func(e *ElasticsearchEmitter) {
		e.factory = f
	}
}

// ElasticsearchEmitter bulk-indexes records. Payloads that are JSON objects
// become documents directly; anything else is indexed as an Envelope.
type ElasticsearchEmitter struct {
	cfg     config.ElasticsearchEmitterConfig
	factory IndexerFactory
	indexer esutil.BulkIndexer
	mu      sync.Mutex
	logger  logger.ILogger
}

// NewElasticsearchEmitter creates a new Elasticsearch emitter.
func NewElasticsearchEmitter(cfg config.ElasticsearchEmitterConfig, log logger.ILogger, opts ...ElasticsearchOption) *ElasticsearchEmitter {
	e := &ElasticsearchEmitter{
		cfg:     cfg,
		factory: newBulkIndexer,
		logger:  log.SubLogger("ElasticsearchEmitter"),
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

func newBulkIndexer(cfg config.ElasticsearchEmitterConfig) (esutil.BulkIndexer, error) {
	esCfg := elasticsearch.Config{
		Addresses: cfg.Addresses,
	}
	if cfg.Username != "" {
		esCfg.Username = cfg.Username
		esCfg.Password = cfg.Password
	}

	client, err := elasticsearch.NewClient(esCfg)
	if err != nil {
		return nil, fmt.Errorf("creating elasticsearch client: %w", err)
	}

	return esutil.NewBulkIndexer(esutil.BulkIndexerConfig{
		Client:        client,
		Index:         cfg.Index,
		NumWorkers:    2,
		FlushBytes:    5e+6,
		FlushInterval: cfg.FlushInterval,
	})
}

// Name returns the emitter identifier.
func (e *ElasticsearchEmitter) Name() string {
	return "elasticsearch"
}

// Start initializes the client and bulk indexer.
func (e *ElasticsearchEmitter) Start(ctx context.Context) error {
	indexer, err := e.factory(e.cfg)
	if err != nil {
		return err
	}

	e.mu.Lock()
	e.indexer = indexer
	e.mu.Unlock()
	return nil
}

// Stop flushes and closes the bulk indexer.
func (e *ElasticsearchEmitter) Stop(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.indexer == nil {
		return nil
	}
	err := e.indexer.Close(ctx)
	stats := e.indexer.Stats()
	e.logger.Infof("elasticsearch emitter stopped: indexed=%d failed=%d", stats.NumIndexed, stats.NumFailed)
	e.indexer = nil
	return err
}

// Emit queues rec on the bulk indexer.
func (e *ElasticsearchEmitter) Emit(ctx context.Context, rec *model.Record) error {
	doc, err := document(rec)
	if err != nil {
		return err
	}

	e.mu.Lock()
	indexer := e.indexer
	e.mu.Unlock()
	if indexer == nil {
		return fmt.Errorf("elasticsearch emitter not started")
	}

	return indexer.Add(ctx, esutil.BulkIndexerItem{
		Action: "index",
		Body:   bytes.NewReader(doc),
		OnFailure: func(ctx context.Context, item esutil.BulkIndexerItem, res esutil.BulkIndexerResponseItem, err error) {
			if err != nil {
				e.logger.Errorf("indexing failed: %v", err)
				return
			}
			e.logger.Errorf("indexing failed: %s: %s", res.Error.Type, res.Error.Reason)
		},
	})
}

// document returns the body indexed for rec.
func document(rec *model.Record) ([]byte, error) {
	v, err := jsonvalue.Parse(rec.Data)
	if err == nil && v.Kind == jsonvalue.KindObject {
		if _, ok := v.Object.Get(timestampField); !ok {
			v.Object.Set(timestampField, jsonvalue.String(rec.Timestamp.UTC().Format(time.RFC3339Nano)))
		}
		return jsonvalue.Marshal(v)
	}
	return json.Marshal(NewEnvelope(rec))
}
