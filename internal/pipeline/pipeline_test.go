package pipeline

import (
	"context"
	"errors"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/GabrielNunesIT/go-libs/logger"
	"github.com/prometheus/client_golang/prometheus"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/GabrielNunesIT/plugin-pipeline/internal/config"
	"github.com/GabrielNunesIT/plugin-pipeline/internal/emitter"
	"github.com/GabrielNunesIT/plugin-pipeline/internal/ingestor"
	"github.com/GabrielNunesIT/plugin-pipeline/internal/metrics"
	"github.com/GabrielNunesIT/plugin-pipeline/internal/model"
	"github.com/GabrielNunesIT/plugin-pipeline/internal/testutil"
	"github.com/GabrielNunesIT/plugin-pipeline/internal/testutil/mocks"
)

// mockEmitter implements emitter.Emitter for testing.
type mockEmitter struct {
	name     string
	mu       sync.Mutex
	received []*model.Record
	started  bool
	stopped  bool
}

func (m *mockEmitter) Name() string { return m.name }

func (m *mockEmitter) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.started = true
	return nil
}

func (m *mockEmitter) Stop(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopped = true
	return nil
}

func (m *mockEmitter) Emit(ctx context.Context, rec *model.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.received = append(m.received, rec)
	return nil
}

func (m *mockEmitter) payloads() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.received))
	for i, rec := range m.received {
		out[i] = string(rec.Data)
	}
	return out
}

// chanIngestor forwards records pushed by the test until ctx is done.
type chanIngestor struct {
	name string
	in   chan *model.Record
}

func (c *chanIngestor) Name() string { return c.name }

func (c *chanIngestor) Start(ctx context.Context, out chan<- *model.Record) error {
	defer close(out)
	for {
		select {
		case rec := <-c.in:
			out <- rec
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func baseConfig() *config.Config {
	return &config.Config{
		Pipeline: config.PipelineConfig{
			BufferSize:      100,
			ShutdownTimeout: time.Second,
		},
		Ingestors: config.IngestorConfig{
			Stdin: config.StdinIngestorConfig{Enabled: true},
		},
		Emitters: config.EmitterConfig{
			Stdout: config.StdoutEmitterConfig{Enabled: true, Format: emitter.FormatRaw},
		},
	}
}

func stdinFactory(input string) IngestorFactory {
	return func(name string, cfg *config.Config, log logger.ILogger) (ingestor.Ingestor, error) {
		if name == "stdin" {
			return ingestor.NewStdinIngestor(log, ingestor.WithReader(strings.NewReader(input))), nil
		}
		return defaultIngestor(name, cfg, log)
	}
}

func emitterFactory(em emitter.Emitter) EmitterFactory {
	return func(name string, cfg *config.Config, log logger.ILogger) (emitter.Emitter, error) {
		return em, nil
	}
}

func TestPipeline_New_NoIngestors(t *testing.T) {
	cfg := baseConfig()
	cfg.Ingestors.Stdin.Enabled = false

	_, err := New(cfg, testutil.NewTestLogger())
	assert.ErrorContains(t, err, "no ingestors enabled")
}

func TestPipeline_New_NoEmitters(t *testing.T) {
	cfg := baseConfig()
	cfg.Emitters.Stdout.Enabled = false

	_, err := New(cfg, testutil.NewTestLogger())
	assert.ErrorContains(t, err, "no emitters enabled")
}

func TestPipeline_New_UnknownStage(t *testing.T) {
	cfg := baseConfig()
	cfg.Ingestors.Stdin.Processor.Stages = []string{"missing"}

	_, err := New(cfg, testutil.NewTestLogger())
	assert.ErrorContains(t, err, `unknown stage "missing"`)
}

func TestPipeline_Counts(t *testing.T) {
	cfg := baseConfig()
	cfg.Ingestors.File = config.FileIngestorConfig{Enabled: true, Paths: []string{"/tmp/test.log"}}
	cfg.Emitters.File = config.FileEmitterConfig{Enabled: true, Path: "/tmp/out.log", Format: emitter.FormatJSON}

	p, err := New(cfg, testutil.NewTestLogger())
	require.NoError(t, err)

	assert.Equal(t, 2, p.IngestorCount())
	assert.Equal(t, 2, p.EmitterCount())
}

func TestPipeline_Run_AppliesStagesInOrder(t *testing.T) {
	cfg := baseConfig()
	cfg.Ingestors.Stdin.Processor.Stages = []string{"nginx-parser", "status-emoji"}

	line := `{"message":"127.0.0.1 - - [10/Oct/2023:13:55:36 -0700] \"GET / HTTP/1.1\" 404 0 \"-\" \"curl\""}`
	input := line + "\nnot json\n" + `[1]` + "\n"

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	em := &mockEmitter{name: "stdout"}

	p, err := New(cfg, testutil.NewTestLogger(),
		WithIngestorFactory(stdinFactory(input)),
		WithEmitterFactory(emitterFactory(em)),
		WithRecorder(m),
	)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// stdin reaches EOF, so Run returns on its own.
	require.NoError(t, p.Run(ctx))

	got := em.payloads()
	require.Len(t, got, 2, "the malformed line is dropped")
	assert.Contains(t, got[0], `"code":"404"`)
	assert.Contains(t, got[0], `"time":"1696971336"`)
	assert.Contains(t, got[0], `"status_emoji":"`+"\U0001F641"+`"`)
	assert.Equal(t, `[1]`, got[1])

	assert.True(t, em.started)
	assert.True(t, em.stopped)

	assert.Equal(t, 1.0, promtestutil.ToFloat64(m.Invocations().WithLabelValues("nginx-parser", metrics.OutcomeDelivered)))
	assert.Equal(t, 1.0, promtestutil.ToFloat64(m.Invocations().WithLabelValues("nginx-parser", metrics.OutcomeError)))
	assert.Equal(t, 1.0, promtestutil.ToFloat64(m.Invocations().WithLabelValues("nginx-parser", metrics.OutcomeUnchanged)))
}

func TestPipeline_Run_SyslogAccessLog(t *testing.T) {
	datagram := []byte(`<190>Oct 11 22:14:15 web01 nginx: 127.0.0.1 - - [10/Oct/2023:13:55:36 -0700] "GET /index.html HTTP/1.1" 200 612 "-" "curl/8.0"`)

	closed := make(chan struct{})
	var once sync.Once
	pc := mocks.NewPacketConn(t)
	pc.On("ReadFrom", mock.Anything).Run(func(args mock.Arguments) {
		copy(args.Get(0).([]byte), datagram)
	}).Return(len(datagram), &net.UDPAddr{IP: net.ParseIP("192.0.2.10"), Port: 514}, nil).Once()
	pc.On("ReadFrom", mock.Anything).Run(func(mock.Arguments) { <-closed }).Return(0, nil, net.ErrClosed)
	pc.On("Close").Run(func(mock.Arguments) { once.Do(func() { close(closed) }) }).Return(nil)

	cfg := baseConfig()
	cfg.Ingestors.Stdin.Enabled = false
	cfg.Ingestors.Syslog = config.SyslogIngestorConfig{
		Enabled:   true,
		Protocol:  "udp",
		Address:   ":514",
		Processor: config.ProcessorConfig{Stages: []string{"nginx-parser", "status-emoji"}},
	}

	em := &mockEmitter{name: "stdout"}
	p, err := New(cfg, testutil.NewTestLogger(),
		WithIngestorFactory(func(name string, cfg *config.Config, log logger.ILogger) (ingestor.Ingestor, error) {
			return ingestor.NewSyslogIngestor(cfg.Ingestors.Syslog, log,
				ingestor.WithUDPListenerFactory(func(string, string) (net.PacketConn, error) { return pc, nil })), nil
		}),
		WithEmitterFactory(emitterFactory(em)),
	)
	require.NoError(t, err)
	assert.Equal(t, []string{"nginx-parser", "status-emoji"}, p.Stages("syslog"))

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- p.Run(ctx) }()

	require.Eventually(t, func() bool { return len(em.payloads()) == 1 }, 2*time.Second, 10*time.Millisecond)
	got := em.payloads()[0]
	assert.Contains(t, got, `"tag":"nginx"`)
	assert.Contains(t, got, `"remote":"127.0.0.1"`)
	assert.Contains(t, got, `"path":"/index.html"`)
	assert.Contains(t, got, `"code":"200"`)
	assert.Contains(t, got, `"time":"1696971336"`)
	assert.Contains(t, got, `"agent":"curl/8.0"`)
	assert.Contains(t, got, `"status_emoji":"`+"\U0001F642"+`"`)

	cancel()
	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestPipeline_Run_Cancel(t *testing.T) {
	src := &chanIngestor{name: "stdin", in: make(chan *model.Record)}
	em := &mockEmitter{name: "stdout"}
	cfg := baseConfig()
	cfg.Ingestors.Stdin.Processor.Stages = []string{"reverse"}

	p, err := New(cfg, testutil.NewTestLogger(),
		WithIngestorFactory(func(string, *config.Config, logger.ILogger) (ingestor.Ingestor, error) { return src, nil }),
		WithEmitterFactory(emitterFactory(em)),
	)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- p.Run(ctx) }()

	src.in <- model.NewRecord("stdin", []byte("abc"))
	require.Eventually(t, func() bool { return len(em.payloads()) == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{"cba"}, em.payloads())

	cancel()
	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	assert.True(t, em.stopped)
}

func TestPipeline_Run_IngestorError(t *testing.T) {
	cfg := baseConfig()
	cfg.Ingestors.Stdin.Enabled = false
	cfg.Ingestors.File = config.FileIngestorConfig{Enabled: true, Paths: []string{t.TempDir() + "/*.log"}}

	p, err := New(cfg, testutil.NewTestLogger(), WithEmitterFactory(emitterFactory(&mockEmitter{name: "stdout"})))
	require.NoError(t, err)

	err = p.Run(context.Background())
	assert.ErrorContains(t, err, "no files matched")
}

func TestPipeline_Run_EmitterStartError(t *testing.T) {
	failing := &failingEmitter{}
	p, err := New(baseConfig(), testutil.NewTestLogger(),
		WithIngestorFactory(stdinFactory("")),
		WithEmitterFactory(emitterFactory(failing)),
	)
	require.NoError(t, err)

	err = p.Run(context.Background())
	assert.ErrorContains(t, err, "starting emitter stdout")
}

type failingEmitter struct{ mockEmitter }

func (f *failingEmitter) Start(context.Context) error { return errors.New("boom") }

func TestPipeline_Reconfigure_SwapsStages(t *testing.T) {
	src := &chanIngestor{name: "stdin", in: make(chan *model.Record)}
	em := &mockEmitter{name: "stdout"}
	cfg := baseConfig()
	cfg.Ingestors.Stdin.Processor.Stages = []string{"reverse"}

	p, err := New(cfg, testutil.NewTestLogger(),
		WithIngestorFactory(func(string, *config.Config, logger.ILogger) (ingestor.Ingestor, error) { return src, nil }),
		WithEmitterFactory(emitterFactory(em)),
	)
	require.NoError(t, err)
	assert.Equal(t, []string{"reverse"}, p.Stages("stdin"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = p.Run(ctx) }()

	src.in <- model.NewRecord("stdin", []byte("abc"))
	require.Eventually(t, func() bool { return len(em.payloads()) == 1 }, 2*time.Second, 10*time.Millisecond)

	next := baseConfig()
	next.Ingestors.Stdin.Processor.Stages = []string{"emojify"}
	require.NoError(t, p.Reconfigure(next))
	assert.Equal(t, []string{"emojify"}, p.Stages("stdin"))

	src.in <- model.NewRecord("stdin", []byte("abc"))
	require.Eventually(t, func() bool { return len(em.payloads()) == 2 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{"cba", "abc"}, em.payloads())

	bad := baseConfig()
	bad.Ingestors.Stdin.Processor.Stages = []string{"nope"}
	assert.Error(t, p.Reconfigure(bad))
	assert.Equal(t, []string{"emojify"}, p.Stages("stdin"))
}

func TestPipeline_Reconfigure_Emitters(t *testing.T) {
	cfg := baseConfig()
	p, err := New(cfg, testutil.NewTestLogger(), WithIngestorFactory(stdinFactory("")))
	require.NoError(t, err)

	next := baseConfig()
	next.Emitters.File = config.FileEmitterConfig{Enabled: true, Path: t.TempDir() + "/out.log", Format: emitter.FormatRaw}
	require.NoError(t, p.Reconfigure(next))
	assert.Equal(t, 2, p.EmitterCount())

	require.NoError(t, p.Reconfigure(baseConfig()))
	assert.Equal(t, 1, p.EmitterCount())
}
