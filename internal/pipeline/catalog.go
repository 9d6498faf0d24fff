package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/alanyoungcy/polycopy/internal/domain"
	"github.com/alanyoungcy/polycopy/internal/matcher"
)

// IndexRecorder receives index rebuild metrics.
type IndexRecorder interface {
	RecordIndex(size int, builtAt time.Time)
}

// IndexRefresher rebuilds the match index from the destination catalog.
type IndexRefresher struct {
	catalog domain.MarketCatalog
	index   *matcher.Index
	metrics IndexRecorder
	logger  *slog.Logger
}

// NewIndexRefresher creates an IndexRefresher. metrics may be nil.
func NewIndexRefresher(catalog domain.MarketCatalog, index *matcher.Index, metrics IndexRecorder, logger *slog.Logger) *IndexRefresher {
	return &IndexRefresher{
		catalog: catalog,
		index:   index,
		metrics: metrics,
		logger:  logger.With(slog.String("component", "index_refresher")),
	}
}

// Refresh fetches the catalog and swaps in a new index. On a fetch error the
// previous index stays in place.
func (r *IndexRefresher) Refresh(ctx context.Context) (int, error) {
	start := time.Now()
	instruments, err := r.catalog.Instruments(ctx)
	if err != nil {
		return r.index.Size(), fmt.Errorf("pipeline: fetch catalog: %w", err)
	}

	n := r.index.Build(instruments)
	if r.metrics != nil {
		r.metrics.RecordIndex(n, r.index.BuiltAt())
	}
	if n == 0 {
		r.logger.WarnContext(ctx, "catalog returned no indexable instruments",
			slog.Int("fetched", len(instruments)),
		)
	}
	r.logger.InfoContext(ctx, "index rebuilt",
		slog.Int("fetched", len(instruments)),
		slog.Int("indexed", n),
		slog.Duration("took", time.Since(start)),
	)
	return n, nil
}

// RunLoop refreshes on every tick until ctx is cancelled. The caller is
// expected to have run the initial Refresh.
func (r *IndexRefresher) RunLoop(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("index refresh loop stopped")
			return ctx.Err()
		case <-ticker.C:
			if _, err := r.Refresh(ctx); err != nil && ctx.Err() == nil {
				r.logger.ErrorContext(ctx, "index refresh failed", slog.String("error", err.Error()))
			}
		}
	}
}
