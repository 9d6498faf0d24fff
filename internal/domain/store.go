package domain

import (
	"context"
	"time"
)

// OriginFeed yields raw trade payloads made by a watched address.
type OriginFeed interface {
	Activity(ctx context.Context, address string, limit int) ([]map[string]any, error)
}

// MarketCatalog yields the destination venue's currently tradable instruments.
type MarketCatalog interface {
	Instruments(ctx context.Context) ([]DestinationInstrument, error)
}

// ExchangeClient submits copy orders to the destination venue.
type ExchangeClient interface {
	Submit(ctx context.Context, intent OrderIntent) (ExecutionReceipt, error)
	Balance(ctx context.Context) (float64, error)
}

// TradeLog is the append-only durable record of terminal decisions.
type TradeLog interface {
	Append(ctx context.Context, rec DecisionRecord) error
	// Replay calls fn for every stored record in append order.
	Replay(ctx context.Context, fn func(DecisionRecord) error) error
}

// AuditEntry is one row of the audit log.
type AuditEntry struct {
	ID        int64
	Event     string
	Detail    map[string]any
	CreatedAt time.Time
}

// AuditStore records operational events that are not terminal decisions,
// such as exchange failures.
type AuditStore interface {
	Log(ctx context.Context, event string, detail map[string]any) error
	List(ctx context.Context, since time.Time, limit int) ([]AuditEntry, error)
}
