package emitter

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GabrielNunesIT/plugin-pipeline/internal/config"
)

func TestStdoutEmitter_JSON(t *testing.T) {
	var buf bytes.Buffer
	e := NewStdoutEmitterWithWriter(config.StdoutEmitterConfig{Enabled: true, Format: FormatJSON}, &buf, testLogger())
	assert.Equal(t, "stdout", e.Name())

	require.NoError(t, e.Start(context.Background()))
	require.NoError(t, e.Emit(context.Background(), testRecord([]byte("test message"))))
	require.NoError(t, e.Stop(context.Background()))

	var env Envelope
	require.NoError(t, json.Unmarshal(buf.Bytes(), &env), "output is not valid JSON")
	assert.Equal(t, "test", env.Source)
	assert.Equal(t, "test message", env.Payload)
	assert.Equal(t, "localhost", env.Metadata["hostname"])
}

func TestStdoutEmitter_Raw(t *testing.T) {
	var buf bytes.Buffer
	e := NewStdoutEmitterWithWriter(config.StdoutEmitterConfig{Enabled: true, Format: FormatRaw}, &buf, testLogger())

	require.NoError(t, e.Emit(context.Background(), testRecord([]byte(`{"📨":"hi"}`))))
	require.NoError(t, e.Emit(context.Background(), testRecord([]byte("second"))))

	assert.Equal(t, "{\"📨\":\"hi\"}\nsecond\n", buf.String())
}
