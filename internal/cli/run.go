package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/GabrielNunesIT/go-libs/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/GabrielNunesIT/plugin-pipeline/internal/config"
	"github.com/GabrielNunesIT/plugin-pipeline/internal/metrics"
	"github.com/GabrielNunesIT/plugin-pipeline/internal/pipeline"
	"github.com/GabrielNunesIT/plugin-pipeline/internal/unit"
)

// NewRunCmd creates the run command.
func NewRunCmd(cfgFile, logLevel *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start the record pipeline",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPipeline(cmd, cfgFile, logLevel)
		},
	}

	// Ingestor flags
	cmd.Flags().Bool("stdin", false, "enable stdin ingestor")
	cmd.Flags().StringSlice("file", nil, "file globs to tail (enables file ingestor)")
	cmd.Flags().String("syslog", "", "listen for syslog on this address (enables syslog ingestor)")
	cmd.Flags().String("syslog-protocol", "", "syslog transport (udp, tcp)")
	cmd.Flags().Bool("journal", false, "enable systemd journal ingestor")
	cmd.Flags().StringSlice("stages", nil, "units applied by every enabled ingestor, in order")

	// Emitter flags
	cmd.Flags().Bool("stdout", false, "enable stdout emitter")
	cmd.Flags().String("stdout-format", "", "stdout output format (raw, json)")

	cmd.Flags().String("metrics-address", "", "serve Prometheus metrics on this address (enables metrics)")
	cmd.Flags().Bool("hot-reload", true, "enable hot-reload of config file")

	return cmd
}

// knownUnit reports whether name is a registered unit.
func knownUnit(name string) bool {
	_, ok := unit.Lookup(name)
	return ok
}

// loadConfig loads, overrides and validates the configuration.
func loadConfig(cmd *cobra.Command, cfgFile string) (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	applyCLIOverrides(cmd, cfg)
	if err := cfg.Validate(knownUnit); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runPipeline(cmd *cobra.Command, cfgFile, logLevel *string) error {
	cfg, err := loadConfig(cmd, *cfgFile)
	if err != nil {
		return err
	}

	log := SetupLogging(resolveLevel(*logLevel, cfg.LogLevel))

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	p, err := pipeline.New(cfg, log, pipeline.WithRecorder(m))
	if err != nil {
		return fmt.Errorf("creating pipeline: %w", err)
	}

	log.Infof("starting plugin pipeline: ingestors=%d, emitters=%d",
		p.IngestorCount(), p.EmitterCount())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Metrics.Enabled {
		srv := metrics.NewServer(cfg.Metrics.Address, cfg.Metrics.Path, reg, log)
		srv.Start()
		defer func() {
			stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer stopCancel()
			_ = srv.Stop(stopCtx)
		}()
	}

	var watcher *config.ConfigWatcher
	if *cfgFile != "" {
		watcher = startConfigWatcher(ctx, cmd, *cfgFile, p, log)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigChan)

	go handleSignals(ctx, cancel, sigChan, watcher, log)

	if err := p.Run(ctx); err != nil {
		return fmt.Errorf("pipeline error: %w", err)
	}

	log.Info("plugin pipeline stopped")
	return nil
}

// startConfigWatcher applies every valid config revision to p. File events
// are only followed with --hot-reload; SIGHUP works either way.
func startConfigWatcher(ctx context.Context, cmd *cobra.Command, cfgFile string, p *pipeline.Pipeline, log logger.ILogger) *config.ConfigWatcher {
	watcher := config.NewConfigWatcher(cfgFile, func(cfg *config.Config) error {
		applyCLIOverrides(cmd, cfg)
		return cfg.Validate(knownUnit)
	}, log)

	if hotReload, _ := cmd.Flags().GetBool("hot-reload"); hotReload {
		if err := watcher.Start(ctx); err != nil {
			log.Warningf("failed to start config watcher: %v", err)
		} else {
			log.Infof("hot-reload enabled: config=%s", cfgFile)
		}
	}

	go func() {
		for {
			select {
			case newCfg := <-watcher.Changes():
				if err := p.Reconfigure(newCfg); err != nil {
					log.Errorf("reconfigure failed: %v", err)
				}
			case err := <-watcher.Errors():
				log.Errorf("config watcher error: %v", err)
			case <-ctx.Done():
				return
			}
		}
	}()

	return watcher
}

func handleSignals(ctx context.Context, cancel context.CancelFunc, sigChan <-chan os.Signal, watcher *config.ConfigWatcher, log logger.ILogger) {
	for {
		select {
		case sig := <-sigChan:
			switch sig {
			case syscall.SIGHUP:
				if watcher == nil {
					log.Warning("received SIGHUP without a config file, ignoring")
					continue
				}
				log.Info("received SIGHUP, reloading config")
				watcher.Reload()
			case syscall.SIGINT, syscall.SIGTERM:
				log.Infof("received shutdown signal: %v", sig)
				cancel()
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

func applyCLIOverrides(cmd *cobra.Command, cfg *config.Config) {
	if v, _ := cmd.Flags().GetBool("stdin"); v {
		cfg.Ingestors.Stdin.Enabled = true
	}
	if addr, _ := cmd.Flags().GetString("syslog"); addr != "" {
		cfg.Ingestors.Syslog.Enabled = true
		cfg.Ingestors.Syslog.Address = addr
	}
	if proto, _ := cmd.Flags().GetString("syslog-protocol"); proto != "" {
		cfg.Ingestors.Syslog.Protocol = proto
	}
	if v, _ := cmd.Flags().GetBool("journal"); v {
		cfg.Ingestors.Journal.Enabled = true
	}
	if files, _ := cmd.Flags().GetStringSlice("file"); len(files) > 0 {
		cfg.Ingestors.File.Enabled = true
		cfg.Ingestors.File.Paths = files
	}
	if cmd.Flags().Changed("stages") {
		stages, _ := cmd.Flags().GetStringSlice("stages")
		cfg.Ingestors.File.Processor.Stages = stages
		cfg.Ingestors.Syslog.Processor.Stages = stages
		cfg.Ingestors.Journal.Processor.Stages = stages
		cfg.Ingestors.Stdin.Processor.Stages = stages
	}
	if v, _ := cmd.Flags().GetBool("stdout"); v {
		cfg.Emitters.Stdout.Enabled = true
	}
	if format, _ := cmd.Flags().GetString("stdout-format"); format != "" {
		cfg.Emitters.Stdout.Format = format
	}
	if addr, _ := cmd.Flags().GetString("metrics-address"); addr != "" {
		cfg.Metrics.Enabled = true
		cfg.Metrics.Address = addr
	}
}
