package emitter

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"

	"github.com/elastic/go-elasticsearch/v8/esutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/GabrielNunesIT/plugin-pipeline/internal/config"
	"github.com/GabrielNunesIT/plugin-pipeline/internal/testutil/mocks"
)

func TestElasticsearchEmitter_Start(t *testing.T) {
	tests := []struct {
		name          string
		cfg           config.ElasticsearchEmitterConfig
		factoryMock   func(*testing.T) IndexerFactory
		expectedError string
	}{
		{
			name: "Success",
			cfg: config.ElasticsearchEmitterConfig{
				Enabled:   true,
				Addresses: []string{"http://localhost:9200"},
				Index:     "test-index",
			},
			factoryMock: func(t *testing.T) IndexerFactory {
				mockIndexer := mocks.NewBulkIndexer(t)
				return func(c config.ElasticsearchEmitterConfig) (esutil.BulkIndexer, error) {
					return mockIndexer, nil
				}
			},
		},
		{
			name: "Factory Error",
			cfg:  config.ElasticsearchEmitterConfig{Enabled: true},
			factoryMock: func(t *testing.T) IndexerFactory {
				return func(c config.ElasticsearchEmitterConfig) (esutil.BulkIndexer, error) {
					return nil, errors.New("factory failure")
				}
			},
			expectedError: "factory failure",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewElasticsearchEmitter(tt.cfg, testLogger(), WithIndexerFactory(tt.factoryMock(t)))
			err := e.Start(context.Background())
			if tt.expectedError != "" {
				assert.ErrorContains(t, err, tt.expectedError)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestElasticsearchEmitter_Emit(t *testing.T) {
	tests := []struct {
		name  string
		data  []byte
		check func(t *testing.T, body map[string]any)
	}{
		{
			name: "json object indexed as document",
			data: []byte(`{"remote":"127.0.0.1","code":"200"}`),
			check: func(t *testing.T, body map[string]any) {
				assert.Equal(t, "127.0.0.1", body["remote"])
				assert.Equal(t, "200", body["code"])
				assert.Equal(t, "2026-01-18T12:00:00Z", body["@timestamp"])
			},
		},
		{
			name: "existing timestamp kept",
			data: []byte(`{"@timestamp":"2020-01-01T00:00:00Z"}`),
			check: func(t *testing.T, body map[string]any) {
				assert.Equal(t, "2020-01-01T00:00:00Z", body["@timestamp"])
			},
		},
		{
			name: "plain text wrapped in envelope",
			data: []byte("just text"),
			check: func(t *testing.T, body map[string]any) {
				assert.Equal(t, "just text", body["payload"])
				assert.Equal(t, EncodingUTF8, body["encoding"])
				assert.Equal(t, "test", body["source"])
			},
		},
		{
			name: "msgpack wrapped as base64",
			data: []byte{0x80},
			check: func(t *testing.T, body map[string]any) {
				assert.Equal(t, EncodingBase64, body["encoding"])
				assert.Equal(t, "gA==", body["payload"])
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockIndexer := mocks.NewBulkIndexer(t)
			mockIndexer.On("Add", mock.Anything, mock.MatchedBy(func(item esutil.BulkIndexerItem) bool {
				return item.Action == "index"
			})).Return(nil).Run(func(args mock.Arguments) {
				item := args.Get(1).(esutil.BulkIndexerItem)
				bodyBytes, err := io.ReadAll(item.Body)
				require.NoError(t, err)
				var body map[string]any
				require.NoError(t, json.Unmarshal(bodyBytes, &body))
				tt.check(t, body)
			})

			factory := func(c config.ElasticsearchEmitterConfig) (esutil.BulkIndexer, error) {
				return mockIndexer, nil
			}

			e := NewElasticsearchEmitter(config.ElasticsearchEmitterConfig{Enabled: true, Index: "test-index"}, testLogger(), WithIndexerFactory(factory))
			require.NoError(t, e.Start(context.Background()))
			assert.NoError(t, e.Emit(context.Background(), testRecord(tt.data)))
		})
	}
}

func TestElasticsearchEmitter_EmitBeforeStart(t *testing.T) {
	e := NewElasticsearchEmitter(config.ElasticsearchEmitterConfig{}, testLogger())
	assert.Error(t, e.Emit(context.Background(), testRecord([]byte("x"))))
}

func TestElasticsearchEmitter_Stop(t *testing.T) {
	mockIndexer := mocks.NewBulkIndexer(t)
	mockIndexer.On("Close", mock.Anything).Return(nil)
	mockIndexer.On("Stats").Return(esutil.BulkIndexerStats{NumIndexed: 3})

	factory := func(c config.ElasticsearchEmitterConfig) (esutil.BulkIndexer, error) {
		return mockIndexer, nil
	}

	e := NewElasticsearchEmitter(config.ElasticsearchEmitterConfig{Enabled: true}, testLogger(), WithIndexerFactory(factory))
	require.NoError(t, e.Start(context.Background()))
	assert.NoError(t, e.Stop(context.Background()))
}
