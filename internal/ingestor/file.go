package ingestor

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/GabrielNunesIT/go-libs/logger"
	"github.com/fsnotify/fsnotify"

	"github.com/GabrielNunesIT/plugin-pipeline/internal/config"
	"github.com/GabrielNunesIT/plugin-pipeline/internal/model"
)

// MetaFile is the metadata key holding the path a record was read from.
const MetaFile = "file"

// FileIngestor tails files matching configured globs. Each complete line
// appended after start-up becomes one record.
type FileIngestor struct {
	cfg    config.FileIngestorConfig
	name   string
	logger logger.ILogger

	// positions holds the offset just past the last complete line per file.
	positions map[string]int64
}

// NewFileIngestor creates a new file tailing ingestor.
func NewFileIngestor(cfg config.FileIngestorConfig, log logger.ILogger) *FileIngestor {
	return &FileIngestor{
		cfg:       cfg,
		name:      "file",
		logger:    log.SubLogger("FileIngestor"),
		positions: make(map[string]int64),
	}
}

// Name returns the ingestor identifier.
func (f *FileIngestor) Name() string {
	return f.name
}

// Start watches the matched files and their directories until ctx is done.
func (f *FileIngestor) Start(ctx context.Context, out chan<- *model.Record) error {
	defer close(out)

	var files []string
	for _, pattern := range f.cfg.Paths {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return fmt.Errorf("invalid glob pattern %q: %w", pattern, err)
		}
		files = append(files, matches...)
	}
	files = f.filterExcluded(files)
	if len(files) == 0 {
		return fmt.Errorf("no files matched patterns: %v", f.cfg.Paths)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating file watcher: %w", err)
	}
	defer watcher.Close()

	// Existing content is skipped; only appended lines are ingested.
	dirs := make(map[string]struct{})
	for _, file := range files {
		info, err := os.Stat(file)
		if err != nil {
			f.logger.Warningf("skipping %s: %v", file, err)
			continue
		}
		f.positions[file] = info.Size()
		dirs[filepath.Dir(file)] = struct{}{}
	}
	for dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			return fmt.Errorf("watching directory %q: %w", dir, err)
		}
	}

	f.logger.Infof("tailing %d files", len(f.positions))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !f.tracks(event.Name) {
				continue
			}

			switch {
			case event.Op&fsnotify.Create != 0:
				// Rotation: a fresh file replaced the one we were tailing.
				f.positions[event.Name] = 0
				if err := f.drain(ctx, event.Name, out); err != nil {
					return err
				}
			case event.Op&fsnotify.Write != 0:
				if err := f.drain(ctx, event.Name, out); err != nil {
					return err
				}
			case event.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
				delete(f.positions, event.Name)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			f.logger.Errorf("fsnotify error: %v", err)
		}
	}
}

// drain reads new lines of path and only returns an error on cancellation.
func (f *FileIngestor) drain(ctx context.Context, path string, out chan<- *model.Record) error {
	pos, err := f.readNewLines(ctx, path, f.positions[path], out)
	f.positions[path] = pos
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		f.logger.Warningf("reading %s: %v", path, err)
	}
	return nil
}

// readNewLines sends every complete line after pos and returns the offset just
// past the last one. A trailing partial line is left for the next event.
func (f *FileIngestor) readNewLines(ctx context.Context, path string, pos int64, out chan<- *model.Record) (int64, error) {
	file, err := os.Open(path)
	if err != nil {
		return pos, err
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return pos, err
	}
	if info.Size() < pos {
		// Truncated in place.
		pos = 0
	}

	if _, err := file.Seek(pos, io.SeekStart); err != nil {
		return pos, err
	}

	reader := bufio.NewReader(file)
	for {
		line, err := reader.ReadBytes('\n')
		if errors.Is(err, io.EOF) {
			return pos, nil
		}
		if err != nil {
			return pos, err
		}
		pos += int64(len(line))

		line = bytes.TrimRight(line, "\r\n")
		if len(line) == 0 {
			continue
		}

		rec := model.NewRecord(f.name, line)
		rec.Metadata[MetaFile] = path

		select {
		case out <- rec:
		case <-ctx.Done():
			return pos, ctx.Err()
		}
	}
}

// tracks reports whether path is (or should become) a tailed file.
func (f *FileIngestor) tracks(path string) bool {
	if _, ok := f.positions[path]; ok {
		return true
	}
	return f.matchesPatterns(path) && !f.isExcluded(path)
}

// filterExcluded removes files matching exclude patterns.
func (f *FileIngestor) filterExcluded(files []string) []string {
	if len(f.cfg.Exclude) == 0 {
		return files
	}

	var result []string
	for _, file := range files {
		if !f.isExcluded(file) {
			result = append(result, file)
		}
	}
	return result
}

// isExcluded checks the base name against the exclude patterns.
func (f *FileIngestor) isExcluded(file string) bool {
	for _, pattern := range f.cfg.Exclude {
		if matched, _ := filepath.Match(pattern, filepath.Base(file)); matched {
			return true
		}
	}
	return false
}

// matchesPatterns checks if a file matches any configured path pattern.
func (f *FileIngestor) matchesPatterns(file string) bool {
	for _, pattern := range f.cfg.Paths {
		if matched, _ := filepath.Match(pattern, file); matched {
			return true
		}
	}
	return false
}
