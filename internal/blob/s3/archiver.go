package s3blob

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/alanyoungcy/polycopy/internal/domain"
)

// ArchivePrefix is the key prefix for trade log snapshots.
const ArchivePrefix = "decisions/"

// Snapshotter renders the trade log as JSON lines.
type Snapshotter interface {
	Snapshot(ctx context.Context) ([]byte, error)
}

// Archiver uploads trade log snapshots. Snapshots are full copies; nothing
// is deleted from the primary log.
type Archiver struct {
	writer domain.BlobWriter
	source Snapshotter
	audit  domain.AuditStore
	logger *slog.Logger
	now    func() time.Time
}

// NewArchiver creates an Archiver. audit may be nil.
func NewArchiver(writer domain.BlobWriter, source Snapshotter, audit domain.AuditStore, logger *slog.Logger) *Archiver {
	return &Archiver{
		writer: writer,
		source: source,
		audit:  audit,
		logger: logger.With(slog.String("component", "archiver")),
		now:    time.Now,
	}
}

// ArchiveKey is where a snapshot taken at t is stored.
func ArchiveKey(t time.Time) string {
	t = t.UTC()
	return fmt.Sprintf("%s%04d/%02d/%02d/%d.jsonl", ArchivePrefix, t.Year(), int(t.Month()), t.Day(), t.Unix())
}

// Archive uploads the current snapshot and returns its key. An empty log
// uploads nothing and returns "".
func (a *Archiver) Archive(ctx context.Context) (string, error) {
	data, err := a.source.Snapshot(ctx)
	if err != nil {
		return "", fmt.Errorf("s3blob: snapshot trade log: %w", err)
	}
	if len(data) == 0 {
		return "", nil
	}

	key := ArchiveKey(a.now())
	if int64(len(data)) > minPartSize {
		err = a.writer.PutMultipart(ctx, key, bytes.NewReader(data), minPartSize)
	} else {
		err = a.writer.Put(ctx, key, bytes.NewReader(data), "application/x-ndjson")
	}
	if err != nil {
		return "", err
	}

	a.logger.InfoContext(ctx, "trade log archived",
		slog.String("key", key),
		slog.Int("bytes", len(data)),
	)
	if a.audit != nil {
		if err := a.audit.Log(ctx, "trade_log_archived", map[string]any{"key": key, "bytes": len(data)}); err != nil {
			a.logger.WarnContext(ctx, "audit write failed", slog.String("error", err.Error()))
		}
	}
	return key, nil
}

// Latest returns the most recent snapshot under ArchivePrefix.
func Latest(ctx context.Context, lister domain.BlobLister) (domain.BlobInfo, error) {
	infos, err := lister.List(ctx, ArchivePrefix)
	if err != nil {
		return domain.BlobInfo{}, err
	}
	if len(infos) == 0 {
		return domain.BlobInfo{}, domain.ErrNotFound
	}
	sort.Slice(infos, func(i, j int) bool {
		if infos[i].LastModified.Equal(infos[j].LastModified) {
			return infos[i].Path < infos[j].Path
		}
		return infos[i].LastModified.Before(infos[j].LastModified)
	})
	return infos[len(infos)-1], nil
}
