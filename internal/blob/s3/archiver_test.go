package s3blob

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/polycopy/internal/domain"
)

type put struct {
	path        string
	body        []byte
	contentType string
	partSize    int64
}

type fakeWriter struct {
	puts []put
	err  error
}

func (w *fakeWriter) Put(_ context.Context, path string, data io.Reader, contentType string) error {
	if w.err != nil {
		return w.err
	}
	b, _ := io.ReadAll(data)
	w.puts = append(w.puts, put{path: path, body: b, contentType: contentType})
	return nil
}

func (w *fakeWriter) PutMultipart(_ context.Context, path string, data io.Reader, partSize int64) error {
	if w.err != nil {
		return w.err
	}
	b, _ := io.ReadAll(data)
	w.puts = append(w.puts, put{path: path, body: b, partSize: partSize})
	return nil
}

type fakeSnapshot struct {
	data []byte
	err  error
}

func (s fakeSnapshot) Snapshot(context.Context) ([]byte, error) { return s.data, s.err }

type fakeAudit struct{ events []string }

func (a *fakeAudit) Log(_ context.Context, event string, _ map[string]any) error {
	a.events = append(a.events, event)
	return nil
}

func (a *fakeAudit) List(context.Context, time.Time, int) ([]domain.AuditEntry, error) {
	return nil, nil
}

type fakeLister struct{ infos []domain.BlobInfo }

func (l fakeLister) List(_ context.Context, prefix string) ([]domain.BlobInfo, error) {
	var out []domain.BlobInfo
	for _, i := range l.infos {
		if len(i.Path) >= len(prefix) && i.Path[:len(prefix)] == prefix {
			out = append(out, i)
		}
	}
	return out, nil
}

var archivedAt = time.Date(2026, 1, 17, 3, 0, 0, 0, time.UTC)

func newArchiver(w domain.BlobWriter, s Snapshotter, audit domain.AuditStore) *Archiver {
	a := NewArchiver(w, s, audit, slog.New(slog.NewTextHandler(io.Discard, nil)))
	a.now = func() time.Time { return archivedAt }
	return a
}

func TestArchiveKey(t *testing.T) {
	assert.Equal(t, "decisions/2026/01/17/1768618800.jsonl", ArchiveKey(archivedAt))
	est := time.FixedZone("EST", -5*3600)
	assert.Equal(t, "decisions/2026/01/17/1768618800.jsonl", ArchiveKey(archivedAt.In(est)))
}

func TestArchiveUploadsSnapshot(t *testing.T) {
	w := &fakeWriter{}
	audit := &fakeAudit{}
	data := []byte(`{"origin_id":"a"}` + "\n")

	key, err := newArchiver(w, fakeSnapshot{data: data}, audit).Archive(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ArchiveKey(archivedAt), key)

	require.Len(t, w.puts, 1)
	assert.Equal(t, key, w.puts[0].path)
	assert.Equal(t, data, w.puts[0].body)
	assert.Equal(t, "application/x-ndjson", w.puts[0].contentType)
	assert.Equal(t, []string{"trade_log_archived"}, audit.events)
}

func TestArchiveLargeSnapshotUsesMultipart(t *testing.T) {
	w := &fakeWriter{}
	data := bytes.Repeat([]byte("x"), int(minPartSize)+1)

	_, err := newArchiver(w, fakeSnapshot{data: data}, nil).Archive(context.Background())
	require.NoError(t, err)
	require.Len(t, w.puts, 1)
	assert.Equal(t, int64(minPartSize), w.puts[0].partSize)
	assert.Len(t, w.puts[0].body, len(data))
}

func TestArchiveEmptyLogIsNoop(t *testing.T) {
	w := &fakeWriter{}
	key, err := newArchiver(w, fakeSnapshot{}, nil).Archive(context.Background())
	require.NoError(t, err)
	assert.Empty(t, key)
	assert.Empty(t, w.puts)
}

func TestArchiveErrors(t *testing.T) {
	boom := errors.New("boom")

	_, err := newArchiver(&fakeWriter{}, fakeSnapshot{err: boom}, nil).Archive(context.Background())
	assert.ErrorIs(t, err, boom)

	audit := &fakeAudit{}
	_, err = newArchiver(&fakeWriter{err: boom}, fakeSnapshot{data: []byte("x\n")}, audit).Archive(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, audit.events, "failed uploads are not audited")
}

func TestLatest(t *testing.T) {
	_, err := Latest(context.Background(), fakeLister{})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	info, err := Latest(context.Background(), fakeLister{infos: []domain.BlobInfo{
		{Path: "decisions/2026/01/16/1.jsonl", LastModified: archivedAt.Add(-time.Hour)},
		{Path: "decisions/2026/01/17/2.jsonl", LastModified: archivedAt},
		{Path: "other/3.jsonl", LastModified: archivedAt.Add(time.Hour)},
		{Path: "decisions/2026/01/15/0.jsonl", LastModified: archivedAt.Add(-48 * time.Hour)},
	}})
	require.NoError(t, err)
	assert.Equal(t, "decisions/2026/01/17/2.jsonl", info.Path)
}
