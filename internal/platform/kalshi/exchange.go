package kalshi

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/polycopy/internal/domain"
)

// DefaultLimitPrice is the limit price in cents used when none is
// configured. 99 crosses any resting ask.
const DefaultLimitPrice int64 = 99

// OrderPlacer is the slice of Client the exchange needs.
type OrderPlacer interface {
	PlaceOrder(ctx context.Context, order Order) (OrderResponse, error)
	GetBalance(ctx context.Context) (int64, error)
}

// Exchange implements domain.ExchangeClient against the live API.
type Exchange struct {
	client     OrderPlacer
	limitPrice int64
	logger     *slog.Logger
}

// NewExchange creates an Exchange. limitPrice outside 1..99 falls back to
// DefaultLimitPrice.
func NewExchange(client OrderPlacer, limitPrice int64, logger *slog.Logger) *Exchange {
	if limitPrice < 1 || limitPrice > 99 {
		limitPrice = DefaultLimitPrice
	}
	return &Exchange{
		client:     client,
		limitPrice: limitPrice,
		logger:     logger.With(slog.String("component", "kalshi_exchange")),
	}
}

// Contracts converts a dollar amount into a whole contract count at price
// cents: floor(amount*100/price).
func Contracts(amount float64, price int64) int64 {
	if price <= 0 {
		return 0
	}
	return decimal.NewFromFloat(amount).
		Mul(decimal.NewFromInt(100)).
		Div(decimal.NewFromInt(price)).
		Floor().
		IntPart()
}

// Cost is the dollar value of count contracts at price cents.
func Cost(count, price int64) float64 {
	return decimal.NewFromInt(count).
		Mul(decimal.NewFromInt(price)).
		Div(decimal.NewFromInt(100)).
		InexactFloat64()
}

// ClientOrderID derives a stable client order id from the origin trade, so
// a resubmission of the same copy is recognisable on the exchange side.
func ClientOrderID(originID string) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte("polycopy:"+originID)).String()
}

// Submit places a buy limit order for intent on the chosen side.
func (e *Exchange) Submit(ctx context.Context, intent domain.OrderIntent) (domain.ExecutionReceipt, error) {
	count := Contracts(intent.Amount, e.limitPrice)
	if count <= 0 {
		return domain.ExecutionReceipt{}, fmt.Errorf("kalshi: $%.2f buys no contracts at %d cents", intent.Amount, e.limitPrice)
	}

	price := e.limitPrice
	order := Order{
		Ticker:        intent.InstrumentID,
		ClientOrderID: ClientOrderID(intent.OriginID),
		Action:        "buy",
		Side:          string(intent.Side),
		Type:          "limit",
		Count:         count,
	}
	if intent.Side == domain.SideNo {
		order.NoPrice = &price
	} else {
		order.YesPrice = &price
	}

	resp, err := e.client.PlaceOrder(ctx, order)
	if err != nil {
		return domain.ExecutionReceipt{}, err
	}

	e.logger.InfoContext(ctx, "order placed",
		slog.String("origin_id", intent.OriginID),
		slog.String("ticker", intent.InstrumentID),
		slog.String("side", string(intent.Side)),
		slog.Int64("count", count),
		slog.String("order_id", resp.Order.OrderID),
		slog.String("status", resp.Order.Status),
	)
	return domain.ExecutionReceipt{
		OrderID:   resp.Order.OrderID,
		Status:    resp.Order.Status,
		Contracts: count,
		Cost:      Cost(count, price),
	}, nil
}

// Balance returns the portfolio balance in dollars.
func (e *Exchange) Balance(ctx context.Context) (float64, error) {
	cents, err := e.client.GetBalance(ctx)
	if err != nil {
		return 0, err
	}
	return decimal.New(cents, -2).InexactFloat64(), nil
}

// DryRunExchange logs intents instead of placing them. Balance reports the
// configured bankroll.
type DryRunExchange struct {
	bankroll   float64
	limitPrice int64
	logger     *slog.Logger
}

// NewDryRunExchange creates a DryRunExchange.
func NewDryRunExchange(bankroll float64, limitPrice int64, logger *slog.Logger) *DryRunExchange {
	if limitPrice < 1 || limitPrice > 99 {
		limitPrice = DefaultLimitPrice
	}
	return &DryRunExchange{
		bankroll:   bankroll,
		limitPrice: limitPrice,
		logger:     logger.With(slog.String("component", "dry_run_exchange")),
	}
}

// Submit returns a synthetic receipt with a dry-run-<uuid> order id.
func (d *DryRunExchange) Submit(ctx context.Context, intent domain.OrderIntent) (domain.ExecutionReceipt, error) {
	count := Contracts(intent.Amount, d.limitPrice)
	orderID := "dry-run-" + uuid.NewString()
	d.logger.InfoContext(ctx, "dry run order",
		slog.String("origin_id", intent.OriginID),
		slog.String("ticker", intent.InstrumentID),
		slog.String("side", string(intent.Side)),
		slog.Float64("amount", intent.Amount),
		slog.Int64("count", count),
		slog.String("order_id", orderID),
	)
	return domain.ExecutionReceipt{
		OrderID:   orderID,
		Status:    "dry_run",
		Contracts: count,
		Cost:      Cost(count, d.limitPrice),
		DryRun:    true,
	}, nil
}

// Balance returns the configured bankroll.
func (d *DryRunExchange) Balance(context.Context) (float64, error) {
	return d.bankroll, nil
}

var (
	_ domain.ExchangeClient = (*Exchange)(nil)
	_ domain.ExchangeClient = (*DryRunExchange)(nil)
)
