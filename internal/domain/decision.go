package domain

import "time"

// SizingDecision is the output of a sizing strategy.
type SizingDecision struct {
	Proposed float64
	Average  float64
	Ratio    float64
	Strategy string
	// Skip is non-empty when the trade is too small to copy.
	Skip string
}

// RiskVerdict is the output of the risk manager.
type RiskVerdict struct {
	Approved    bool
	FinalAmount float64
	Reasons     []string
}

// ExposureView is the exposure already committed or reserved against the
// keys a candidate trade would touch.
type ExposureView struct {
	Total        float64
	Counterparty float64
	Market       float64
	MarketSide   float64
}

// OutcomeKind names where a trade left the pipeline.
type OutcomeKind string

const (
	OutcomeUnparseable     OutcomeKind = "unparseable"
	OutcomeDuplicate       OutcomeKind = "duplicate"
	OutcomeUnmatched       OutcomeKind = "unmatched"
	OutcomeSkipped         OutcomeKind = "skipped"
	OutcomeRejected        OutcomeKind = "rejected"
	OutcomeExecuted        OutcomeKind = "executed"
	OutcomeExecutionFailed OutcomeKind = "execution_failed"
)

// Terminal reports whether no further attempt will ever be made for the
// origin trade. Only execution failures are retried.
func (k OutcomeKind) Terminal() bool {
	return k != OutcomeExecutionFailed
}

// Outcome is the result of processing one raw origin trade.
type Outcome struct {
	Kind     OutcomeKind
	OriginID string
	Reasons  []string
	Err      error

	Signal  *TradeSignal
	Match   *MatchResult
	Sizing  *SizingDecision
	Verdict *RiskVerdict
	OrderID string
	// Amount is the dollar exposure committed for an executed trade.
	Amount float64
}

// OrderIntent is what the orchestrator asks the exchange to do.
type OrderIntent struct {
	OriginID     string
	InstrumentID string
	Side         Side
	Amount       float64
}

// ExecutionReceipt is the exchange's acknowledgement of an accepted order.
type ExecutionReceipt struct {
	OrderID   string
	Status    string
	Contracts int64
	// Cost is the dollar value of the filled contracts at the limit price.
	// Zero when the exchange does not report it.
	Cost   float64
	DryRun bool
}

// DecisionRecord is one row of the trade log. Every terminal decision is
// recorded, and replaying the log rebuilds the ledger.
type DecisionRecord struct {
	ID           string      `json:"id"`
	OriginID     string      `json:"origin_id"`
	Trader       string      `json:"trader,omitempty"`
	Outcome      OutcomeKind `json:"outcome"`
	Reasons      []string    `json:"reasons,omitempty"`
	Category     string      `json:"category,omitempty"`
	MarketType   MarketType  `json:"market_type,omitempty"`
	Entities     []string    `json:"entities,omitempty"`
	InstrumentID string      `json:"instrument_id,omitempty"`
	MarketKey    string      `json:"market_key,omitempty"`
	Side         Side        `json:"side,omitempty"`
	Proposed     float64     `json:"proposed,omitempty"`
	Amount       float64     `json:"amount,omitempty"`
	Confidence   float64     `json:"confidence,omitempty"`
	MatchType    string      `json:"match_type,omitempty"`
	OrderID      string      `json:"order_id,omitempty"`
	DryRun       bool        `json:"dry_run,omitempty"`
	DecidedAt    time.Time   `json:"decided_at"`
}

// Status summarises ledger state.
type Status struct {
	ProcessedCount    int                `json:"processed_count"`
	TotalExposure     float64            `json:"total_exposure"`
	PerMarketExposure map[string]float64 `json:"per_market_exposure"`
}
