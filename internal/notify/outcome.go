package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/alanyoungcy/polycopy/internal/domain"
)

// Notification event types.
const (
	EventCopyExecuted = "copy_executed"
	EventCopyFailed   = "copy_failed"
	EventCopyRejected = "copy_rejected"
)

// EventFor maps an outcome kind to its event type. Kinds without an event
// are never notified.
func EventFor(kind domain.OutcomeKind) (string, bool) {
	switch kind {
	case domain.OutcomeExecuted:
		return EventCopyExecuted, true
	case domain.OutcomeExecutionFailed:
		return EventCopyFailed, true
	case domain.OutcomeRejected:
		return EventCopyRejected, true
	}
	return "", false
}

// NotifyOutcome formats o and sends it when its event is enabled.
func (n *Notifier) NotifyOutcome(ctx context.Context, o domain.Outcome) error {
	event, ok := EventFor(o.Kind)
	if !ok || !n.Enabled(event) {
		return nil
	}
	title, message := FormatOutcome(o)
	return n.dispatch(ctx, title, message)
}

// FormatOutcome renders the title and body for an outcome.
func FormatOutcome(o domain.Outcome) (string, string) {
	var title string
	switch o.Kind {
	case domain.OutcomeExecuted:
		title = "Copy executed"
	case domain.OutcomeExecutionFailed:
		title = "Copy failed"
	case domain.OutcomeRejected:
		title = "Copy rejected"
	default:
		title = "Copy " + string(o.Kind)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "origin: %s\n", o.OriginID)
	if s := o.Signal; s != nil {
		fmt.Fprintf(&b, "trader: %s\n", s.Trader)
		fmt.Fprintf(&b, "market: %s (%s %s)\n", s.Title, s.Category, s.MarketType)
		fmt.Fprintf(&b, "origin size: $%.2f\n", s.NotionalSize)
	}
	if m := o.Match; m != nil {
		fmt.Fprintf(&b, "destination: %s %s\n", m.Instrument.ID, strings.ToUpper(string(m.DestinationSide)))
	}
	switch {
	case o.Amount > 0:
		fmt.Fprintf(&b, "amount: $%.2f\n", o.Amount)
	case o.Verdict != nil && o.Verdict.FinalAmount > 0:
		fmt.Fprintf(&b, "amount: $%.2f\n", o.Verdict.FinalAmount)
	}
	if o.OrderID != "" {
		fmt.Fprintf(&b, "order: %s\n", o.OrderID)
	}
	if len(o.Reasons) > 0 {
		fmt.Fprintf(&b, "reasons: %s\n", strings.Join(o.Reasons, "; "))
	}
	if o.Err != nil {
		fmt.Fprintf(&b, "error: %v\n", o.Err)
	}
	return title, strings.TrimRight(b.String(), "\n")
}
