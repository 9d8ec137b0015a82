package units

import "math"

// KnotsPerMeterPerSecond converts m/s readings to knots.
const KnotsPerMeterPerSecond = 0.51444

// Label is the categorical wind classification shown to users.
type Label string

const (
	LabelUnknown     Label = "Unknown"
	LabelNormal      Label = "Normal"
	LabelStorm       Label = "Storm"
	LabelStrongStorm Label = "Strong Storm"
)

// Thresholds hold the configured classification boundaries in knots.
type Thresholds struct {
	StormKt       float64 `json:"stormKt"`
	StrongStormKt float64 `json:"strongStormKt"`
}

// ToKnots converts a wind speed in metres per second. A nil or non-finite
// reading yields nil.
func ToKnots(ms *float64) *float64 {
	if ms == nil || math.IsNaN(*ms) || math.IsInf(*ms, 0) {
		return nil
	}
	kt := *ms * KnotsPerMeterPerSecond
	return &kt
}

// Classify labels a wind speed against the thresholds. Boundaries are inclusive.
func Classify(kt *float64, t Thresholds) Label {
	switch {
	case kt == nil:
		return LabelUnknown
	case *kt >= t.StrongStormKt:
		return LabelStrongStorm
	case *kt >= t.StormKt:
		return LabelStorm
	default:
		return LabelNormal
	}
}
