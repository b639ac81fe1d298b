package emitter

import (
	"encoding/base64"
	"encoding/json"
	"testing"
	"time"

	"github.com/GabrielNunesIT/go-libs/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GabrielNunesIT/plugin-pipeline/internal/model"
	"github.com/GabrielNunesIT/plugin-pipeline/internal/testutil"
)

// testLogger returns a logger for tests that discards output.
func testLogger() logger.ILogger {
	return testutil.NewTestLogger()
}

func testRecord(data []byte) *model.Record {
	return &model.Record{
		Timestamp: time.Date(2026, 1, 18, 12, 0, 0, 0, time.UTC),
		Source:    "test",
		Data:      data,
		Metadata:  map[string]string{"hostname": "localhost"},
	}
}

func TestNewEnvelope(t *testing.T) {
	t.Run("utf8 payload", func(t *testing.T) {
		env := NewEnvelope(testRecord([]byte("hello 🙂")))
		assert.Equal(t, EncodingUTF8, env.Encoding)
		assert.Equal(t, "hello 🙂", env.Payload)
		assert.Equal(t, "2026-01-18T12:00:00Z", env.Timestamp)
		assert.Equal(t, "test", env.Source)
		assert.Equal(t, "localhost", env.Metadata["hostname"])
	})

	t.Run("binary payload", func(t *testing.T) {
		data := []byte{0x81, 0xa1, 'a', 0xcb, 0x40, 0x45, 0, 0, 0, 0, 0, 0}
		env := NewEnvelope(testRecord(data))
		assert.Equal(t, EncodingBase64, env.Encoding)

		decoded, err := base64.StdEncoding.DecodeString(env.Payload)
		require.NoError(t, err)
		assert.Equal(t, data, decoded)
	})
}

func TestFormatLine(t *testing.T) {
	rec := testRecord([]byte(`{"a":1}`))

	line, err := formatLine(FormatRaw, rec)
	require.NoError(t, err)
	assert.Equal(t, "{\"a\":1}\n", string(line))

	line, err = formatLine(FormatJSON, rec)
	require.NoError(t, err)
	assert.Equal(t,
		`{"timestamp":"2026-01-18T12:00:00Z","source":"test","encoding":"utf8","payload":"{\"a\":1}","metadata":{"hostname":"localhost"}}`+"\n",
		string(line))

	var env Envelope
	require.NoError(t, json.Unmarshal(line, &env))
	assert.Equal(t, `{"a":1}`, env.Payload)
}
