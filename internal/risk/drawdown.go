package risk

import "sync"

// Drawdown tracks peak equity and the current fall from it. It is safe for
// concurrent use.
type Drawdown struct {
	mu      sync.RWMutex
	peak    float64
	current float64
}

// NewDrawdown returns a tracker seeded with the starting equity.
func NewDrawdown(start float64) *Drawdown {
	return &Drawdown{peak: start, current: start}
}

// Observe records the latest equity. Non-positive readings are ignored.
func (d *Drawdown) Observe(equity float64) {
	if equity <= 0 {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.current = equity
	if equity > d.peak {
		d.peak = equity
	}
}

// Drawdown returns (peak - current) / peak, or 0 before any equity is known.
func (d *Drawdown) Drawdown() float64 {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.peak <= 0 || d.current >= d.peak {
		return 0
	}
	return (d.peak - d.current) / d.peak
}

// Peak returns the highest equity observed.
func (d *Drawdown) Peak() float64 {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.peak
}
