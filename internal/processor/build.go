package processor

import (
	"fmt"

	"github.com/GabrielNunesIT/go-libs/logger"

	"github.com/GabrielNunesIT/plugin-pipeline/internal/config"
	"github.com/GabrielNunesIT/plugin-pipeline/internal/metrics"
	"github.com/GabrielNunesIT/plugin-pipeline/internal/unit"
)

// Build assembles the chain for one ingestor: the configured stages in order,
// followed by the enricher when enabled.
func Build(cfg config.ProcessorConfig, recorder metrics.Recorder, log logger.ILogger) (*Chain, error) {
	chain := NewChain()
	for _, name := range cfg.Stages {
		u, ok := unit.Lookup(name)
		if !ok {
			return nil, fmt.Errorf("unknown stage %q", name)
		}
		chain.Add(NewStage(u, recorder, log))
	}
	if cfg.Enricher.Enabled {
		chain.Add(NewEnricher(cfg.Enricher))
	}
	return chain, nil
}
