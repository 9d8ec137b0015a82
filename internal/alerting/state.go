package alerting

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"windwatch/internal/window"
)

// Decision is the outcome of evaluating a sample against the alert state.
type Decision int

const (
	Suppress Decision = iota
	Fire
)

func (d Decision) String() string {
	if d == Fire {
		return "fire"
	}
	return "suppress"
}

// Suppression reasons.
const (
	ReasonBelowThreshold = "below_threshold"
	ReasonDuplicate      = "duplicate"
	ReasonCooldown       = "cooldown"
)

// Verdict is the tagged result of an evaluation.
type Verdict struct {
	Decision Decision
	Key      string
	Reason   string
}

// Key identifies an upstream reading: source timestamp plus speed at two decimals.
func Key(s window.Sample) string {
	return s.SourceTimestamp + "|" + decimal.NewFromFloat(s.SpeedKt).StringFixed(2)
}

// State records the last fired alert. A zero LastAlertAt means none fired yet.
type State struct {
	LastAlertAt  time.Time
	LastAlertKey string
}

// Evaluate decides whether sample warrants an alert. It does not mutate s.
// The cooldown is global: any earlier alert suppresses, whatever its key.
func (s State) Evaluate(sample window.Sample, now time.Time, thresholdKt float64, cooldown time.Duration) Verdict {
	key := Key(sample)

	switch {
	case sample.SpeedKt < thresholdKt:
		return Verdict{Decision: Suppress, Key: key, Reason: ReasonBelowThreshold}
	case key == s.LastAlertKey:
		return Verdict{Decision: Suppress, Key: key, Reason: ReasonDuplicate}
	case !s.LastAlertAt.IsZero() && now.Sub(s.LastAlertAt) < cooldown:
		return Verdict{Decision: Suppress, Key: key, Reason: ReasonCooldown}
	}
	return Verdict{Decision: Fire, Key: key}
}

// Record commits a fired alert.
func (s *State) Record(now time.Time, key string) {
	s.LastAlertAt = now
	s.LastAlertKey = key
}

// Gate serialises evaluate+record so concurrent callers cannot both fire.
type Gate struct {
	mu          sync.Mutex
	state       State
	thresholdKt float64
	cooldown    time.Duration
}

// NewGate creates a gate with the storm threshold and cooldown.
func NewGate(thresholdKt float64, cooldown time.Duration) *Gate {
	return &Gate{thresholdKt: thresholdKt, cooldown: cooldown}
}

// Admit evaluates sample and, on Fire, records it before returning. The
// caller sends the notification afterwards; a failed send is not rolled back.
func (g *Gate) Admit(sample window.Sample, now time.Time) Verdict {
	g.mu.Lock()
	defer g.mu.Unlock()

	v := g.state.Evaluate(sample, now, g.thresholdKt, g.cooldown)
	if v.Decision == Fire {
		g.state.Record(now, v.Key)
	}
	return v
}

// State returns a copy of the current alert state.
func (g *Gate) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}
