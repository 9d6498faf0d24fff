package sizing

// DefaultWindowSize is how many recent trades per trader feed the average.
const DefaultWindowSize = 50

// window is a fixed-capacity ring of recent trade sizes. The oldest entry is
// overwritten first.
type window struct {
	buf  []float64
	next int
	n    int
	sum  float64
}

func newWindow(capacity int) *window {
	if capacity <= 0 {
		capacity = DefaultWindowSize
	}
	return &window{buf: make([]float64, capacity)}
}

func (w *window) add(v float64) {
	if w.n == len(w.buf) {
		w.sum -= w.buf[w.next]
	} else {
		w.n++
	}
	w.buf[w.next] = v
	w.sum += v
	w.next = (w.next + 1) % len(w.buf)
}

// mean returns the average of the retained sizes, or false when empty.
func (w *window) mean() (float64, bool) {
	if w.n == 0 {
		return 0, false
	}
	return w.sum / float64(w.n), true
}

func (w *window) len() int { return w.n }
