package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrLockHeld        = errors.New("lock already held")
	ErrUnparseable     = errors.New("unparseable trade")
	ErrNoMatch         = errors.New("no destination market")
	ErrTooSmall        = errors.New("below minimum trade size")
	ErrRiskRejected    = errors.New("rejected by risk limits")
	ErrExecution       = errors.New("execution failed")
	ErrDuplicateSignal = errors.New("duplicate signal")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrRateLimited     = errors.New("rate limited")
)

// ParseError reports a raw payload that cannot become a TradeSignal.
// OriginID is set when the payload carried one.
type ParseError struct {
	OriginID string
	Reason   string
	Cause    error
}

func (e *ParseError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("parse: %s: %v", e.Reason, e.Cause)
	}
	return "parse: " + e.Reason
}

func (e *ParseError) Is(target error) bool { return target == ErrUnparseable }
func (e *ParseError) Unwrap() error        { return e.Cause }

// RiskRejection carries the reasons the risk manager gave.
type RiskRejection struct {
	Reasons []string
}

func (e *RiskRejection) Error() string {
	return "risk: " + strings.Join(e.Reasons, "; ")
}

func (e *RiskRejection) Is(target error) bool { return target == ErrRiskRejected }

// ExecutionError wraps a failure returned by the exchange client.
type ExecutionError struct {
	InstrumentID string
	Cause        error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("execute %s: %v", e.InstrumentID, e.Cause)
}

func (e *ExecutionError) Is(target error) bool { return target == ErrExecution }
func (e *ExecutionError) Unwrap() error        { return e.Cause }

// Retryable reports whether err leaves the origin trade eligible for another
// attempt. Only execution failures qualify; nothing was committed for them.
func Retryable(err error) bool {
	return errors.Is(err, ErrExecution)
}
