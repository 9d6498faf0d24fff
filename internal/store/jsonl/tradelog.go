// Package jsonl is a file-backed trade log: one JSON decision record per
// line, fsynced on every append.
package jsonl

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/alanyoungcy/polycopy/internal/domain"
)

// maxLine bounds a single record.
const maxLine = 1 << 20

// TradeLog implements domain.TradeLog on an append-only file.
type TradeLog struct {
	path   string
	logger *slog.Logger

	mu   sync.Mutex
	file *os.File
}

// Open creates or opens the log at path. A partial last line left by a
// crash is cut off so later appends start on a clean line.
func Open(path string, logger *slog.Logger) (*TradeLog, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("jsonl: mkdir: %w", err)
	}
	l := &TradeLog{
		path:   path,
		logger: logger.With(slog.String("component", "trade_log")),
	}
	if err := l.repairTail(); err != nil {
		return nil, err
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("jsonl: open %s: %w", path, err)
	}
	l.file = file
	return l, nil
}

// Path returns the file location.
func (l *TradeLog) Path() string { return l.path }

// Append writes rec as one line and fsyncs before returning.
func (l *TradeLog) Append(_ context.Context, rec domain.DecisionRecord) error {
	b, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("jsonl: marshal: %w", err)
	}
	b = append(b, '\n')

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return fmt.Errorf("jsonl: append: %w", os.ErrClosed)
	}
	if _, err := l.file.Write(b); err != nil {
		return fmt.Errorf("jsonl: write: %w", err)
	}
	if err := l.file.Sync(); err != nil {
		return fmt.Errorf("jsonl: sync: %w", err)
	}
	return nil
}

// Replay calls fn for each record in file order. A malformed final line is
// skipped with a warning; a malformed line anywhere else is an error.
func (l *TradeLog) Replay(ctx context.Context, fn func(domain.DecisionRecord) error) error {
	f, err := os.Open(l.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("jsonl: open for replay: %w", err)
	}
	defer f.Close()
	return replay(ctx, f, l.logger, fn)
}

// Snapshot returns the current file contents.
func (l *TradeLog) Snapshot(_ context.Context) ([]byte, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	b, err := os.ReadFile(l.path)
	if err != nil {
		return nil, fmt.Errorf("jsonl: snapshot: %w", err)
	}
	return b, nil
}

// Close releases the file handle.
func (l *TradeLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}

func replay(ctx context.Context, r io.Reader, logger *slog.Logger, fn func(domain.DecisionRecord) error) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), maxLine)

	var (
		line    int
		badLine int
		badErr  error
	)
	for sc.Scan() {
		line++
		if err := ctx.Err(); err != nil {
			return err
		}
		raw := bytes.TrimSpace(sc.Bytes())
		if len(raw) == 0 {
			continue
		}
		if badErr != nil {
			return fmt.Errorf("jsonl: line %d: %w", badLine, badErr)
		}
		var rec domain.DecisionRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			badLine, badErr = line, err
			continue
		}
		if err := fn(rec); err != nil {
			return err
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("jsonl: scan: %w", err)
	}
	if badErr != nil {
		logger.Warn("skipping torn last line in trade log",
			slog.Int("line", badLine),
			slog.String("error", badErr.Error()),
		)
	}
	return nil
}

// repairTail truncates the file after its last newline.
func (l *TradeLog) repairTail() error {
	f, err := os.OpenFile(l.path, os.O_RDWR, 0)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("jsonl: open for repair: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return fmt.Errorf("jsonl: read for repair: %w", err)
	}
	if len(data) == 0 || data[len(data)-1] == '\n' {
		return nil
	}
	keep := int64(bytes.LastIndexByte(data, '\n') + 1)
	l.logger.Warn("truncating torn tail of trade log",
		slog.String("path", l.path),
		slog.Int64("bytes", int64(len(data))-keep),
	)
	if err := f.Truncate(keep); err != nil {
		return fmt.Errorf("jsonl: truncate: %w", err)
	}
	return f.Sync()
}
