package window

import (
	"sync"
	"time"
)

const (
	// DefaultSpan is the trailing duration a window covers.
	DefaultSpan = 30 * time.Minute
	// DefaultSeriesLimit caps the number of points returned by Snapshot.
	DefaultSeriesLimit = 180
)

// Point is the display form of a sample.
type Point struct {
	ISO string  `json:"iso"`
	Kt  float64 `json:"kt"`
}

// Window keeps samples for a trailing time span. Stale entries are evicted
// on Push only; reads may therefore return entries up to one push interval
// older than the span.
type Window struct {
	mu      sync.Mutex
	span    time.Duration
	samples []Sample
}

// New creates a window covering span. A non-positive span falls back to DefaultSpan.
func New(span time.Duration) *Window {
	if span <= 0 {
		span = DefaultSpan
	}
	return &Window{span: span}
}

// Span returns the trailing duration the window covers.
func (w *Window) Span() time.Duration {
	return w.span
}

// Push appends a sample and evicts entries captured before now-span.
// Malformed samples and samples repeating the latest source timestamp are
// not appended; eviction still runs. It reports whether the sample was added.
func (w *Window) Push(s Sample, now time.Time) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	added := false
	if s.Valid() && !w.repeatsLatest(s) {
		w.samples = append(w.samples, s)
		added = true
	}

	w.evict(now.Add(-w.span))
	return added
}

// evict drops every sample captured before cutoff. Samples normally arrive in
// chronological order, so stale entries sit at the front, but an upstream that
// republishes an older observation can leave one further back.
func (w *Window) evict(cutoff time.Time) {
	stale := 0
	for _, s := range w.samples {
		if s.CapturedAt.Before(cutoff) {
			stale++
		}
	}
	if stale == 0 {
		return
	}

	kept := make([]Sample, 0, len(w.samples)-stale)
	for _, s := range w.samples {
		if !s.CapturedAt.Before(cutoff) {
			kept = append(kept, s)
		}
	}
	w.samples = kept
}

func (w *Window) repeatsLatest(s Sample) bool {
	if len(w.samples) == 0 {
		return false
	}
	return w.samples[len(w.samples)-1].SourceTimestamp == s.SourceTimestamp
}

// Snapshot returns up to limit of the most recent points in chronological order.
func (w *Window) Snapshot(limit int) []Point {
	w.mu.Lock()
	defer w.mu.Unlock()
	return Points(w.samples, limit)
}

// Points converts the last limit samples into series points. A non-positive
// limit uses DefaultSeriesLimit. The result is never nil.
func Points(samples []Sample, limit int) []Point {
	if limit <= 0 {
		limit = DefaultSeriesLimit
	}

	start := len(samples) - limit
	if start < 0 {
		start = 0
	}

	points := make([]Point, 0, len(samples)-start)
	for _, s := range samples[start:] {
		points = append(points, Point{ISO: s.SourceTimestamp, Kt: s.SpeedKt})
	}
	return points
}

// All returns a copy of the current contents.
func (w *Window) All() []Sample {
	w.mu.Lock()
	defer w.mu.Unlock()

	out := make([]Sample, len(w.samples))
	copy(out, w.samples)
	return out
}

// Len returns the number of retained samples.
func (w *Window) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.samples)
}
