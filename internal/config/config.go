// Package config provides configuration loading with layered overrides.
// Load order: defaults -> YAML file -> environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	configloader "github.com/GabrielNunesIT/go-libs/config-loader"
)

// EnvPrefix is the prefix for environment variable overrides.
const EnvPrefix = "PLUGIN_PIPELINE_"

// ErrInvalidConfig is returned by Validate for semantically wrong configurations.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config is the root configuration structure for the plugin pipeline host.
type Config struct {
	LogLevel  string         `koanf:"loglevel" yaml:"log_level" json:"log_level"`
	Pipeline  PipelineConfig `koanf:"pipeline"`
	Ingestors IngestorConfig `koanf:"ingestors"`
	Emitters  EmitterConfig  `koanf:"emitters"`
	Metrics   MetricsConfig  `koanf:"metrics"`
}

// PipelineConfig controls the pipeline behavior.
type PipelineConfig struct {
	BufferSize       int           `koanf:"buffersize" yaml:"buffer_size" json:"buffer_size"`
	ShutdownTimeout  time.Duration `koanf:"shutdowntimeout" yaml:"shutdown_timeout" json:"shutdown_timeout"`
	DropOnFullBuffer bool          `koanf:"droponbufferfull" yaml:"drop_on_full_buffer" json:"drop_on_full_buffer"`
}

// IngestorConfig holds configuration for all ingestors.
type IngestorConfig struct {
	File    FileIngestorConfig    `koanf:"file"`
	Syslog  SyslogIngestorConfig  `koanf:"syslog"`
	Journal JournalIngestorConfig `koanf:"journal"`
	Stdin   StdinIngestorConfig   `koanf:"stdin"`
}

// FileIngestorConfig configures the file tailing ingestor.
type FileIngestorConfig struct {
	Enabled   bool            `koanf:"enabled"`
	Paths     []string        `koanf:"paths"`
	Exclude   []string        `koanf:"exclude"`
	Processor ProcessorConfig `koanf:"processor"`
}

// SyslogIngestorConfig configures the syslog listener.
type SyslogIngestorConfig struct {
	Enabled   bool            `koanf:"enabled"`
	Protocol  string          `koanf:"protocol"` // "udp" or "tcp"
	Address   string          `koanf:"address"`
	Processor ProcessorConfig `koanf:"processor"`
}

// JournalIngestorConfig configures the systemd journal ingestor.
type JournalIngestorConfig struct {
	Enabled   bool            `koanf:"enabled"`
	Units     []string        `koanf:"units"`
	Processor ProcessorConfig `koanf:"processor"`
}

// StdinIngestorConfig configures the stdin ingestor.
type StdinIngestorConfig struct {
	Enabled   bool            `koanf:"enabled"`
	Processor ProcessorConfig `koanf:"processor"`
}

// ProcessorConfig holds the stage chain configuration per ingestor.
type ProcessorConfig struct {
	// Stages lists unit names applied in order to every record.
	Stages   []string       `koanf:"stages"`
	Enricher EnricherConfig `koanf:"enricher"`
}

// EnricherConfig configures the enrichment processor.
type EnricherConfig struct {
	Enabled      bool              `koanf:"enabled"`
	AddHostname  bool              `koanf:"addhostname" yaml:"add_hostname" json:"add_hostname"`
	AddTimestamp bool              `koanf:"addtimestamp" yaml:"add_timestamp" json:"add_timestamp"`
	StaticLabels map[string]string `koanf:"staticlabels" yaml:"static_labels" json:"static_labels"`
}

// EmitterConfig holds configuration for all emitters.
type EmitterConfig struct {
	Stdout        StdoutEmitterConfig        `koanf:"stdout"`
	File          FileEmitterConfig          `koanf:"file"`
	Elasticsearch ElasticsearchEmitterConfig `koanf:"elasticsearch"`
	Loki          LokiEmitterConfig          `koanf:"loki"`
	VictoriaLogs  VictoriaLogsEmitterConfig  `koanf:"victorialogs"`
}

// StdoutEmitterConfig configures the stdout emitter.
type StdoutEmitterConfig struct {
	Enabled bool   `koanf:"enabled"`
	Format  string `koanf:"format"` // "json" or "raw"
}

// FileEmitterConfig configures the file emitter.
type FileEmitterConfig struct {
	Enabled    bool   `koanf:"enabled"`
	Path       string `koanf:"path"`
	Format     string `koanf:"format"` // "json" or "raw"
	MaxSizeMB  int    `koanf:"maxsizemb" yaml:"max_size_mb" json:"max_size_mb"`
	MaxBackups int    `koanf:"maxbackups" yaml:"max_backups" json:"max_backups"`
	MaxAgeDays int    `koanf:"maxagedays" yaml:"max_age_days" json:"max_age_days"`
	Compress   bool   `koanf:"compress"`
}

// ElasticsearchEmitterConfig configures the Elasticsearch emitter.
type ElasticsearchEmitterConfig struct {
	Enabled       bool          `koanf:"enabled"`
	Addresses     []string      `koanf:"addresses"`
	Index         string        `koanf:"index"`
	Username      string        `koanf:"username"`
	Password      string        `koanf:"password"`
	BatchSize     int           `koanf:"batchsize" yaml:"batch_size" json:"batch_size"`
	FlushInterval time.Duration `koanf:"flushinterval" yaml:"flush_interval" json:"flush_interval"`
}

// LokiEmitterConfig configures the Loki emitter.
type LokiEmitterConfig struct {
	Enabled       bool              `koanf:"enabled"`
	URL           string            `koanf:"url"`
	TenantID      string            `koanf:"tenantid" yaml:"tenant_id" json:"tenant_id"`
	Labels        map[string]string `koanf:"labels"`
	BatchSize     int               `koanf:"batchsize" yaml:"batch_size" json:"batch_size"`
	FlushInterval time.Duration     `koanf:"flushinterval" yaml:"flush_interval" json:"flush_interval"`
}

// VictoriaLogsEmitterConfig configures the VictoriaLogs emitter.
type VictoriaLogsEmitterConfig struct {
	Enabled       bool          `koanf:"enabled"`
	URL           string        `koanf:"url"`
	BatchSize     int           `koanf:"batchsize" yaml:"batch_size" json:"batch_size"`
	FlushInterval time.Duration `koanf:"flushinterval" yaml:"flush_interval" json:"flush_interval"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `koanf:"enabled"`
	Address string `koanf:"address"`
	Path    string `koanf:"path"`
}

// defaults returns the default configuration values.
func defaults() Config {
	return Config{
		LogLevel: "info",
		Pipeline: PipelineConfig{
			BufferSize:       1000,
			ShutdownTimeout:  30 * time.Second,
			DropOnFullBuffer: false,
		},
		Ingestors: IngestorConfig{
			File: FileIngestorConfig{
				Enabled: false,
				Processor: ProcessorConfig{
					Stages: []string{"nginx-parser", "agent-emoji", "status-emoji"},
					Enricher: EnricherConfig{
						Enabled:      true,
						AddHostname:  true,
						AddTimestamp: true,
					},
				},
			},
			Syslog: SyslogIngestorConfig{
				Enabled:  false,
				Protocol: "udp",
				Address:  ":514",
				Processor: ProcessorConfig{
					Stages: []string{"nginx-parser", "agent-emoji", "status-emoji"},
					Enricher: EnricherConfig{
						Enabled:     true,
						AddHostname: true,
					},
				},
			},
			Journal: JournalIngestorConfig{
				Enabled: false,
				Processor: ProcessorConfig{
					Enricher: EnricherConfig{Enabled: true},
				},
			},
			Stdin: StdinIngestorConfig{
				Enabled: false,
				Processor: ProcessorConfig{
					Stages:   []string{"emojify"},
					Enricher: EnricherConfig{Enabled: true},
				},
			},
		},
		Emitters: EmitterConfig{
			Stdout: StdoutEmitterConfig{
				Enabled: true,
				Format:  "raw",
			},
			File: FileEmitterConfig{
				Enabled:    false,
				Format:     "json",
				MaxSizeMB:  100,
				MaxBackups: 3,
				MaxAgeDays: 7,
				Compress:   true,
			},
			Elasticsearch: ElasticsearchEmitterConfig{
				Enabled:       false,
				Index:         "plugin-pipeline",
				BatchSize:     100,
				FlushInterval: 5 * time.Second,
			},
			Loki: LokiEmitterConfig{
				Enabled:       false,
				BatchSize:     100,
				FlushInterval: time.Second,
			},
			VictoriaLogs: VictoriaLogsEmitterConfig{
				Enabled:       false,
				BatchSize:     100,
				FlushInterval: time.Second,
			},
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Address: ":9464",
			Path:    "/metrics",
		},
	}
}

// Load reads configuration from all sources with proper override order.
// Order: defaults -> config file -> environment variables.
func Load(configPath string) (*Config, error) {
	opts := []configloader.Option[Config]{
		configloader.WithDefaults[Config](defaults()),
	}

	// Add file source if path provided or if default config exists
	if configPath != "" {
		opts = append(opts, configloader.WithFile[Config](configPath))
	} else {
		for _, path := range []string{"./config.yaml", "/etc/plugin-pipeline/config.yaml"} {
			if _, err := os.Stat(path); err == nil {
				opts = append(opts, configloader.WithFile[Config](path))
				break
			}
		}
	}

	opts = append(opts, configloader.WithEnv[Config](EnvPrefix))

	loader := configloader.NewConfigLoader[Config](opts...)
	cfg, err := loader.Load()
	if err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks the parts of the configuration the loader cannot type-check:
// stage names must be known to lookup, formats must be recognised and at
// least one emitter must be enabled.
func (c *Config) Validate(lookup func(name string) bool) error {
	chains := map[string]ProcessorConfig{
		"file":    c.Ingestors.File.Processor,
		"syslog":  c.Ingestors.Syslog.Processor,
		"journal": c.Ingestors.Journal.Processor,
		"stdin":   c.Ingestors.Stdin.Processor,
	}
	for source, pc := range chains {
		for _, stage := range pc.Stages {
			if !lookup(stage) {
				return fmt.Errorf("%w: ingestor %s: unknown stage %q", ErrInvalidConfig, source, stage)
			}
		}
	}

	if c.Ingestors.Syslog.Enabled {
		if p := strings.ToLower(c.Ingestors.Syslog.Protocol); p != "udp" && p != "tcp" {
			return fmt.Errorf("%w: syslog protocol %q", ErrInvalidConfig, c.Ingestors.Syslog.Protocol)
		}
		if c.Ingestors.Syslog.Address == "" {
			return fmt.Errorf("%w: syslog ingestor requires an address", ErrInvalidConfig)
		}
	}

	if c.Pipeline.BufferSize < 0 {
		return fmt.Errorf("%w: pipeline buffer size must not be negative", ErrInvalidConfig)
	}

	if c.Emitters.Stdout.Enabled && !validFormat(c.Emitters.Stdout.Format) {
		return fmt.Errorf("%w: stdout format %q", ErrInvalidConfig, c.Emitters.Stdout.Format)
	}
	if c.Emitters.File.Enabled {
		if c.Emitters.File.Path == "" {
			return fmt.Errorf("%w: file emitter requires a path", ErrInvalidConfig)
		}
		if !validFormat(c.Emitters.File.Format) {
			return fmt.Errorf("%w: file format %q", ErrInvalidConfig, c.Emitters.File.Format)
		}
	}
	if c.Emitters.Elasticsearch.Enabled && len(c.Emitters.Elasticsearch.Addresses) == 0 {
		return fmt.Errorf("%w: elasticsearch emitter requires at least one address", ErrInvalidConfig)
	}

	if c.Emitters.Loki.Enabled && c.Emitters.Loki.URL == "" {
		return fmt.Errorf("%w: loki emitter requires a url", ErrInvalidConfig)
	}
	if c.Emitters.VictoriaLogs.Enabled && c.Emitters.VictoriaLogs.URL == "" {
		return fmt.Errorf("%w: victorialogs emitter requires a url", ErrInvalidConfig)
	}

	e := c.Emitters
	if !e.Stdout.Enabled && !e.File.Enabled && !e.Elasticsearch.Enabled && !e.Loki.Enabled && !e.VictoriaLogs.Enabled {
		return fmt.Errorf("%w: no emitters enabled", ErrInvalidConfig)
	}

	return nil
}

func validFormat(format string) bool {
	return format == "json" || format == "raw"
}
