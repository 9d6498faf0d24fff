package sizing

import (
	"log/slog"
	"sync"

	"github.com/alanyoungcy/polycopy/internal/domain"
)

// DefaultAverage is assumed for traders with no history.
const DefaultAverage = 100.0

// EngineConfig configures an Engine.
type EngineConfig struct {
	Bankroll       float64
	WindowSize     int
	DefaultAverage float64
}

// Engine keeps per-trader size history and delegates the stake calculation
// to a Strategy. It is safe for concurrent use.
type Engine struct {
	strategy Strategy
	cfg      EngineConfig
	logger   *slog.Logger

	mu      sync.Mutex
	windows map[string]*window
}

// NewEngine creates an Engine sizing with s.
func NewEngine(s Strategy, cfg EngineConfig, logger *slog.Logger) *Engine {
	if cfg.WindowSize <= 0 {
		cfg.WindowSize = DefaultWindowSize
	}
	if cfg.DefaultAverage <= 0 {
		cfg.DefaultAverage = DefaultAverage
	}
	return &Engine{
		strategy: s,
		cfg:      cfg,
		logger:   logger.With(slog.String("component", "sizing")),
		windows:  make(map[string]*window),
	}
}

// Strategy returns the active strategy's name.
func (e *Engine) Strategy() string { return e.strategy.Name() }

// Size proposes a stake for sig against the trader's history as it stands;
// sig itself is not part of the average.
func (e *Engine) Size(sig domain.TradeSignal) domain.SizingDecision {
	avg := e.Average(sig.Trader)
	d := e.strategy.Size(Input{Signal: sig, Average: avg, Bankroll: e.cfg.Bankroll})
	e.logger.Debug("sized signal",
		slog.String("origin_id", sig.OriginID),
		slog.String("strategy", d.Strategy),
		slog.Float64("size", sig.NotionalSize),
		slog.Float64("average", d.Average),
		slog.Float64("proposed", d.Proposed),
		slog.String("skip", d.Skip),
	)
	return d
}

// Observe records sig's size in its trader's window.
func (e *Engine) Observe(sig domain.TradeSignal) {
	if sig.NotionalSize <= 0 {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	w, ok := e.windows[sig.Trader]
	if !ok {
		w = newWindow(e.cfg.WindowSize)
		e.windows[sig.Trader] = w
	}
	w.add(sig.NotionalSize)
}

// Average is the trader's rolling mean size, or the default when the trader
// has no history.
func (e *Engine) Average(trader string) float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	if w, ok := e.windows[trader]; ok {
		if m, ok := w.mean(); ok {
			return m
		}
	}
	return e.cfg.DefaultAverage
}

// History returns how many sizes are retained for trader.
func (e *Engine) History(trader string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	if w, ok := e.windows[trader]; ok {
		return w.len()
	}
	return 0
}
