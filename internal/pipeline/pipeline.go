// Package pipeline moves records from ingestors through their unit chains to
// every emitter.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"sync/atomic"

	"github.com/GabrielNunesIT/go-libs/logger"
	"golang.org/x/sync/errgroup"

	"github.com/GabrielNunesIT/plugin-pipeline/internal/config"
	"github.com/GabrielNunesIT/plugin-pipeline/internal/emitter"
	"github.com/GabrielNunesIT/plugin-pipeline/internal/ingestor"
	"github.com/GabrielNunesIT/plugin-pipeline/internal/metrics"
	"github.com/GabrielNunesIT/plugin-pipeline/internal/model"
	"github.com/GabrielNunesIT/plugin-pipeline/internal/processor"
)

// Component names, shared by config sections, factories and logs.
var (
	ingestorNames = []string{"file", "syslog", "journal", "stdin"}
	emitterNames  = []string{"stdout", "file", "elasticsearch", "loki", "victorialogs"}
)

// IngestorFactory builds the named ingestor from cfg.
type IngestorFactory func(name string, cfg *config.Config, log logger.ILogger) (ingestor.Ingestor, error)

// EmitterFactory builds the named emitter from cfg.
type EmitterFactory func(name string, cfg *config.Config, log logger.ILogger) (emitter.Emitter, error)

// Option configures the Pipeline.
type Option func(*Pipeline)

// WithRecorder sets where stage outcomes are reported.
func WithRecorder(r metrics.Recorder) Option {
	return func(p *Pipeline) {
		p.recorder = r
	}
}

// WithIngestorFactory replaces the built-in ingestor constructors.
func WithIngestorFactory(f IngestorFactory) Option {
	return func(p *Pipeline) {
		p.newIngestor = f
	}
}

// WithEmitterFactory replaces the built-in emitter constructors.
func WithEmitterFactory(f EmitterFactory) Option {
	return func(p *Pipeline) {
		p.newEmitter = f
	}
}

// managedIngestor wraps an ingestor with its lifecycle management.
type managedIngestor struct {
	ingestor ingestor.Ingestor
	procCfg  config.ProcessorConfig
	chain    atomic.Pointer[processor.Chain]
	cancel   context.CancelFunc
	done     chan struct{}
}

// Pipeline coordinates ingestors, stage chains and emitters.
type Pipeline struct {
	cfg         *config.Config
	logger      logger.ILogger
	recorder    metrics.Recorder
	newIngestor IngestorFactory
	newEmitter  EmitterFactory

	mu        sync.RWMutex
	ingestors map[string]*managedIngestor
	emitters  map[string]emitter.Emitter

	// active counts running ingestor goroutines; the last one to exit closes
	// fanoutChan.
	active int
	closed bool

	// fanoutChan receives processed records for distribution to emitters.
	fanoutChan chan *model.Record

	runCtx context.Context
}

// New creates a new pipeline from configuration.
func New(cfg *config.Config, log logger.ILogger, opts ...Option) (*Pipeline, error) {
	p := &Pipeline{
		cfg:         cfg,
		logger:      log.SubLogger("Pipeline"),
		recorder:    metrics.Nop{},
		newIngestor: defaultIngestor,
		newEmitter:  defaultEmitter,
		ingestors:   make(map[string]*managedIngestor),
		emitters:    make(map[string]emitter.Emitter),
		fanoutChan:  make(chan *model.Record, cfg.Pipeline.BufferSize),
	}
	for _, opt := range opts {
		opt(p)
	}

	if err := p.buildIngestors(); err != nil {
		return nil, fmt.Errorf("building ingestors: %w", err)
	}
	if err := p.buildEmitters(); err != nil {
		return nil, fmt.Errorf("building emitters: %w", err)
	}

	return p, nil
}

func defaultIngestor(name string, cfg *config.Config, log logger.ILogger) (ingestor.Ingestor, error) {
	switch name {
	case "file":
		return ingestor.NewFileIngestor(cfg.Ingestors.File, log), nil
	case "syslog":
		return ingestor.NewSyslogIngestor(cfg.Ingestors.Syslog, log), nil
	case "journal":
		return ingestor.NewJournalIngestor(cfg.Ingestors.Journal, log), nil
	case "stdin":
		return ingestor.NewStdinIngestor(log), nil
	default:
		return nil, fmt.Errorf("unknown ingestor: %s", name)
	}
}

func defaultEmitter(name string, cfg *config.Config, log logger.ILogger) (emitter.Emitter, error) {
	switch name {
	case "stdout":
		return emitter.NewStdoutEmitter(cfg.Emitters.Stdout, log), nil
	case "file":
		return emitter.NewFileEmitter(cfg.Emitters.File, log), nil
	case "elasticsearch":
		return emitter.NewElasticsearchEmitter(cfg.Emitters.Elasticsearch, log), nil
	case "loki":
		return emitter.NewLokiEmitter(cfg.Emitters.Loki, log), nil
	case "victorialogs":
		return emitter.NewVictoriaLogsEmitter(cfg.Emitters.VictoriaLogs, log), nil
	default:
		return nil, fmt.Errorf("unknown emitter: %s", name)
	}
}

// ingestorSettings returns whether name is enabled in cfg and its chain config.
func ingestorSettings(cfg *config.Config, name string) (bool, config.ProcessorConfig) {
	switch name {
	case "file":
		return cfg.Ingestors.File.Enabled, cfg.Ingestors.File.Processor
	case "syslog":
		return cfg.Ingestors.Syslog.Enabled, cfg.Ingestors.Syslog.Processor
	case "journal":
		return cfg.Ingestors.Journal.Enabled, cfg.Ingestors.Journal.Processor
	case "stdin":
		return cfg.Ingestors.Stdin.Enabled, cfg.Ingestors.Stdin.Processor
	}
	return false, config.ProcessorConfig{}
}

func emitterEnabled(cfg *config.Config, name string) bool {
	switch name {
	case "stdout":
		return cfg.Emitters.Stdout.Enabled
	case "file":
		return cfg.Emitters.File.Enabled
	case "elasticsearch":
		return cfg.Emitters.Elasticsearch.Enabled
	case "loki":
		return cfg.Emitters.Loki.Enabled
	case "victorialogs":
		return cfg.Emitters.VictoriaLogs.Enabled
	}
	return false
}

func (p *Pipeline) buildIngestors() error {
	for _, name := range ingestorNames {
		enabled, procCfg := ingestorSettings(p.cfg, name)
		if !enabled {
			continue
		}
		mi, err := p.buildIngestor(name, p.cfg, procCfg)
		if err != nil {
			return err
		}
		p.ingestors[name] = mi
	}

	if len(p.ingestors) == 0 {
		return fmt.Errorf("no ingestors enabled")
	}

	p.logger.Debugf("built %d ingestors", len(p.ingestors))
	return nil
}

func (p *Pipeline) buildIngestor(name string, cfg *config.Config, procCfg config.ProcessorConfig) (*managedIngestor, error) {
	ing, err := p.newIngestor(name, cfg, p.logger)
	if err != nil {
		return nil, err
	}
	chain, err := processor.Build(procCfg, p.recorder, p.logger)
	if err != nil {
		return nil, fmt.Errorf("ingestor %s: %w", name, err)
	}

	mi := &managedIngestor{
		ingestor: ing,
		procCfg:  procCfg,
		done:     make(chan struct{}),
	}
	mi.chain.Store(chain)
	return mi, nil
}

func (p *Pipeline) buildEmitters() error {
	for _, name := range emitterNames {
		if !emitterEnabled(p.cfg, name) {
			continue
		}
		em, err := p.newEmitter(name, p.cfg, p.logger)
		if err != nil {
			return err
		}
		p.emitters[name] = em
	}

	if len(p.emitters) == 0 {
		return fmt.Errorf("no emitters enabled")
	}

	p.logger.Debugf("built %d emitters", len(p.emitters))
	return nil
}

// Run starts the pipeline and blocks until ctx is cancelled or every
// ingestor has stopped. Records already processed are still emitted.
func (p *Pipeline) Run(ctx context.Context) error {
	p.mu.Lock()
	for name, em := range p.emitters {
		if err := em.Start(ctx); err != nil {
			p.mu.Unlock()
			return fmt.Errorf("starting emitter %s: %w", name, err)
		}
		p.logger.Debugf("started emitter: %s", name)
	}

	g, gCtx := errgroup.WithContext(ctx)
	p.runCtx = gCtx

	for name, mi := range p.ingestors {
		ingestorCtx, cancel := context.WithCancel(gCtx)
		mi.cancel = cancel
		p.active++

		g.Go(func() error {
			return p.runIngestor(ingestorCtx, name, mi)
		})
	}
	p.mu.Unlock()

	// Emitting outlives cancellation so buffered records are flushed.
	g.Go(func() error {
		p.runFanout(context.WithoutCancel(ctx))
		return nil
	})

	err := g.Wait()
	p.shutdown()

	if errors.Is(err, context.Canceled) && ctx.Err() != nil {
		return nil
	}
	return err
}

// runIngestor runs one ingestor until it stops, then retires it.
func (p *Pipeline) runIngestor(ctx context.Context, name string, mi *managedIngestor) error {
	defer func() {
		// done must close before taking the lock: removeIngestor waits on it
		// while holding p.mu.
		close(mi.done)

		p.mu.Lock()
		p.active--
		if p.active == 0 && !p.closed {
			p.closed = true
			close(p.fanoutChan)
		}
		p.mu.Unlock()
	}()

	p.logger.Debugf("started ingestor: %s", name)
	return p.runIngestorPipeline(ctx, name, mi)
}

// shutdown gracefully stops all emitters.
func (p *Pipeline) shutdown() {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), p.cfg.Pipeline.ShutdownTimeout)
	defer cancel()

	p.mu.RLock()
	defer p.mu.RUnlock()

	for name, em := range p.emitters {
		if err := em.Stop(shutdownCtx); err != nil {
			p.logger.Warningf("emitter stop error: name=%s, error=%v", name, err)
		}
	}
	p.logger.Debug("all emitters stopped")
}

// runIngestorPipeline runs a single ingestor and feeds its records through the
// current chain.
func (p *Pipeline) runIngestorPipeline(ctx context.Context, name string, mi *managedIngestor) error {
	rawChan := make(chan *model.Record, p.cfg.Pipeline.BufferSize)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for rec := range rawChan {
			if err := mi.chain.Load().Process(ctx, rec); err != nil {
				p.logger.Debugf("record dropped: ingestor=%s, error=%v", name, err)
				continue
			}

			select {
			case p.fanoutChan <- rec:
				continue
			default:
			}

			if p.cfg.Pipeline.DropOnFullBuffer {
				p.logger.Debug("buffer full, dropping record")
				continue
			}
			select {
			case p.fanoutChan <- rec:
			case <-ctx.Done():
			}
		}
	}()

	err := mi.ingestor.Start(ctx, rawChan)

	// Start closes rawChan; wait for the chain to drain it.
	wg.Wait()

	p.logger.Debugf("ingestor stopped: name=%s", name)
	return err
}

// runFanout distributes records to all emitters until fanoutChan closes.
func (p *Pipeline) runFanout(ctx context.Context) {
	for rec := range p.fanoutChan {
		p.emitToAll(ctx, rec)
	}
}

// emitToAll sends a copy of rec to every emitter.
func (p *Pipeline) emitToAll(ctx context.Context, rec *model.Record) {
	p.mu.RLock()
	emitters := make([]emitter.Emitter, 0, len(p.emitters))
	for _, em := range p.emitters {
		emitters = append(emitters, em)
	}
	p.mu.RUnlock()

	var wg sync.WaitGroup
	for _, em := range emitters {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := em.Emit(ctx, rec.Clone()); err != nil {
				p.logger.Warningf("emit error: emitter=%s, error=%v", em.Name(), err)
			}
		}()
	}
	wg.Wait()
}

// Reconfigure applies a new configuration: ingestors and emitters are added or
// removed, and chains of ingestors that stay enabled are swapped when their
// stages changed. Records already inside a chain finish on the old one.
func (p *Pipeline) Reconfigure(newCfg *config.Config) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	oldCfg := p.cfg
	p.cfg = newCfg

	if err := p.reconfigureIngestors(oldCfg, newCfg); err != nil {
		return fmt.Errorf("reconfiguring ingestors: %w", err)
	}
	if err := p.reconfigureEmitters(oldCfg, newCfg); err != nil {
		return fmt.Errorf("reconfiguring emitters: %w", err)
	}

	p.logger.Infof("configuration applied: ingestors=%d, emitters=%d",
		len(p.ingestors), len(p.emitters))
	return nil
}

func (p *Pipeline) reconfigureIngestors(oldCfg, newCfg *config.Config) error {
	for _, name := range ingestorNames {
		wasEnabled, _ := ingestorSettings(oldCfg, name)
		enabled, procCfg := ingestorSettings(newCfg, name)

		switch {
		case wasEnabled && !enabled:
			p.removeIngestor(name)
		case enabled && !wasEnabled:
			if err := p.addIngestor(name, newCfg, procCfg); err != nil {
				return err
			}
		case enabled:
			if err := p.swapChain(name, procCfg); err != nil {
				return err
			}
		}
	}
	return nil
}

// swapChain replaces the chain of a running ingestor when procCfg differs.
func (p *Pipeline) swapChain(name string, procCfg config.ProcessorConfig) error {
	mi, ok := p.ingestors[name]
	if !ok || reflect.DeepEqual(mi.procCfg, procCfg) {
		return nil
	}

	chain, err := processor.Build(procCfg, p.recorder, p.logger)
	if err != nil {
		return fmt.Errorf("ingestor %s: %w", name, err)
	}
	mi.chain.Store(chain)
	mi.procCfg = procCfg

	p.logger.Infof("stages replaced: ingestor=%s, stages=%v", name, chain.Names())
	return nil
}

// addIngestor adds a new ingestor at runtime.
func (p *Pipeline) addIngestor(name string, cfg *config.Config, procCfg config.ProcessorConfig) error {
	if p.closed {
		return fmt.Errorf("pipeline is shutting down")
	}

	mi, err := p.buildIngestor(name, cfg, procCfg)
	if err != nil {
		return err
	}
	p.ingestors[name] = mi

	// Not running yet: Run starts it.
	if p.runCtx == nil {
		return nil
	}

	ctx, cancel := context.WithCancel(p.runCtx)
	mi.cancel = cancel
	p.active++

	go func() {
		if err := p.runIngestor(ctx, name, mi); err != nil && !errors.Is(err, context.Canceled) {
			p.logger.Warningf("ingestor error: name=%s, error=%v", name, err)
		}
	}()

	p.logger.Infof("ingestor added: %s", name)
	return nil
}

// removeIngestor stops and removes an ingestor.
func (p *Pipeline) removeIngestor(name string) {
	mi, ok := p.ingestors[name]
	if !ok {
		return
	}

	if mi.cancel != nil {
		mi.cancel()
		<-mi.done
	}

	delete(p.ingestors, name)
	p.logger.Infof("ingestor removed: %s", name)
}

func (p *Pipeline) reconfigureEmitters(oldCfg, newCfg *config.Config) error {
	for _, name := range emitterNames {
		wasEnabled := emitterEnabled(oldCfg, name)
		enabled := emitterEnabled(newCfg, name)

		switch {
		case wasEnabled && !enabled:
			p.removeEmitter(name)
		case enabled && !wasEnabled:
			if err := p.addEmitter(name, newCfg); err != nil {
				return err
			}
		}
	}
	return nil
}

// addEmitter adds a new emitter at runtime.
func (p *Pipeline) addEmitter(name string, cfg *config.Config) error {
	em, err := p.newEmitter(name, cfg, p.logger)
	if err != nil {
		return err
	}

	if p.runCtx != nil {
		if err := em.Start(p.runCtx); err != nil {
			return fmt.Errorf("starting emitter %s: %w", name, err)
		}
	}

	p.emitters[name] = em
	p.logger.Infof("emitter added: %s", name)
	return nil
}

// removeEmitter stops and removes an emitter.
func (p *Pipeline) removeEmitter(name string) {
	em, ok := p.emitters[name]
	if !ok {
		return
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), p.cfg.Pipeline.ShutdownTimeout)
	defer cancel()

	if err := em.Stop(shutdownCtx); err != nil {
		p.logger.Warningf("emitter stop error: name=%s, error=%v", name, err)
	}

	delete(p.emitters, name)
	p.logger.Infof("emitter removed: %s", name)
}

// IngestorCount returns the number of enabled ingestors.
func (p *Pipeline) IngestorCount() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.ingestors)
}

// EmitterCount returns the number of enabled emitters.
func (p *Pipeline) EmitterCount() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.emitters)
}

// Stages returns the current chain of the named ingestor.
func (p *Pipeline) Stages(name string) []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	mi, ok := p.ingestors[name]
	if !ok {
		return nil
	}
	return mi.chain.Load().Names()
}
