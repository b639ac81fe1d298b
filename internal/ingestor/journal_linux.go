//go:build linux && cgo

package ingestor

import (
	"context"
	"fmt"
	"time"

	"github.com/GabrielNunesIT/go-libs/logger"
	"github.com/coreos/go-systemd/v22/sdjournal"

	"github.com/GabrielNunesIT/plugin-pipeline/internal/config"
	"github.com/GabrielNunesIT/plugin-pipeline/internal/model"
)

// journalWait bounds a single wait so cancellation is noticed.
const journalWait = time.Second

// JournalIngestor reads new entries from the systemd journal.
type JournalIngestor struct {
	cfg    config.JournalIngestorConfig
	name   string
	logger logger.ILogger
}

// NewJournalIngestor creates a new systemd journal ingestor.
func NewJournalIngestor(cfg config.JournalIngestorConfig, log logger.ILogger) *JournalIngestor {
	return &JournalIngestor{
		cfg:    cfg,
		name:   "journal",
		logger: log.SubLogger("JournalIngestor"),
	}
}

// Name returns the ingestor identifier.
func (j *JournalIngestor) Name() string {
	return j.name
}

// Start follows the journal tail until ctx is done.
func (j *JournalIngestor) Start(ctx context.Context, out chan<- *model.Record) error {
	defer close(out)

	journal, err := sdjournal.NewJournal()
	if err != nil {
		return fmt.Errorf("opening journal: %w", err)
	}
	defer journal.Close()

	for _, unit := range j.cfg.Units {
		if err := journal.AddMatch(sdjournal.SD_JOURNAL_FIELD_SYSTEMD_UNIT + "=" + unit); err != nil {
			return fmt.Errorf("adding unit filter %q: %w", unit, err)
		}
	}

	if err := journal.SeekTail(); err != nil {
		return fmt.Errorf("seeking to journal tail: %w", err)
	}
	// Step back so the first Next lands on the first new entry.
	if _, err := journal.Previous(); err != nil {
		return fmt.Errorf("moving to previous entry: %w", err)
	}

	j.logger.Infof("following journal: units=%v", j.cfg.Units)

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		for {
			n, err := journal.Next()
			if err != nil {
				return fmt.Errorf("reading next entry: %w", err)
			}
			if n == 0 {
				break
			}

			rec, err := j.toRecord(journal)
			if err != nil {
				j.logger.Debugf("skipping journal entry: %v", err)
				continue
			}

			select {
			case out <- rec:
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		journal.Wait(journalWait)
	}
}

func (j *JournalIngestor) toRecord(journal *sdjournal.Journal) (*model.Record, error) {
	entry, err := journal.GetEntry()
	if err != nil {
		return nil, err
	}

	payload, err := journalPayload(entry.Fields)
	if err != nil {
		return nil, err
	}

	rec := model.NewRecord(j.name, payload)
	// RealtimeTimestamp is in microseconds.
	rec.Timestamp = time.UnixMicro(int64(entry.RealtimeTimestamp))
	rec.Metadata["cursor"] = entry.Cursor
	return rec, nil
}
