package postgres

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/polycopy/internal/domain"
)

// DecisionStore implements domain.TradeLog on the copy_decisions table.
// origin_id is unique, so a second decision for the same origin is dropped.
type DecisionStore struct {
	pool *pgxpool.Pool
}

// NewDecisionStore creates a DecisionStore backed by pool.
func NewDecisionStore(pool *pgxpool.Pool) *DecisionStore {
	return &DecisionStore{pool: pool}
}

const decisionColumns = `id, origin_id, trader, outcome, reasons, category, market_type, entities,
	instrument_id, market_key, side, proposed, amount, confidence, match_type, order_id, dry_run, decided_at`

// Append inserts rec.
func (s *DecisionStore) Append(ctx context.Context, rec domain.DecisionRecord) error {
	query := `INSERT INTO copy_decisions (` + decisionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		ON CONFLICT (origin_id) DO NOTHING`

	reasons := rec.Reasons
	if reasons == nil {
		reasons = []string{}
	}
	entities := rec.Entities
	if entities == nil {
		entities = []string{}
	}

	_, err := s.pool.Exec(ctx, query,
		rec.ID, rec.OriginID, rec.Trader, string(rec.Outcome), reasons, rec.Category,
		string(rec.MarketType), entities, rec.InstrumentID, rec.MarketKey, string(rec.Side),
		rec.Proposed, rec.Amount, rec.Confidence, rec.MatchType, rec.OrderID, rec.DryRun, rec.DecidedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: append decision %s: %w", rec.OriginID, err)
	}
	return nil
}

// Replay streams every decision ordered by decided_at, id.
func (s *DecisionStore) Replay(ctx context.Context, fn func(domain.DecisionRecord) error) error {
	rows, err := s.pool.Query(ctx, `SELECT `+decisionColumns+` FROM copy_decisions ORDER BY decided_at, id`)
	if err != nil {
		return fmt.Errorf("postgres: replay decisions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var rec domain.DecisionRecord
		var outcome, marketType, side string
		if err := rows.Scan(
			&rec.ID, &rec.OriginID, &rec.Trader, &outcome, &rec.Reasons, &rec.Category,
			&marketType, &rec.Entities, &rec.InstrumentID, &rec.MarketKey, &side,
			&rec.Proposed, &rec.Amount, &rec.Confidence, &rec.MatchType, &rec.OrderID, &rec.DryRun, &rec.DecidedAt,
		); err != nil {
			return fmt.Errorf("postgres: scan decision: %w", err)
		}
		rec.Outcome = domain.OutcomeKind(outcome)
		rec.MarketType = domain.MarketType(marketType)
		rec.Side = domain.Side(side)
		if err := fn(rec); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("postgres: replay decisions rows: %w", err)
	}
	return nil
}

// Snapshot renders the whole table as JSON lines, in replay order.
func (s *DecisionStore) Snapshot(ctx context.Context) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	err := s.Replay(ctx, func(rec domain.DecisionRecord) error {
		return enc.Encode(rec)
	})
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
