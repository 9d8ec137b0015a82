package window

import (
	"github.com/montanaflynn/stats"
)

// Stats summarises a window. Pointer fields are nil only for an empty window.
type Stats struct {
	MaxKt       *float64
	MaxAt       *string
	AvgKt       *float64
	SampleCount int
}

// Compute derives max (first occurrence wins ties), its source timestamp,
// mean and count.
func Compute(samples []Sample) Stats {
	if len(samples) == 0 {
		return Stats{}
	}

	speeds := make(stats.Float64Data, len(samples))
	maxIdx := 0
	for i, s := range samples {
		speeds[i] = s.SpeedKt
		if s.SpeedKt > samples[maxIdx].SpeedKt {
			maxIdx = i
		}
	}

	maxKt := samples[maxIdx].SpeedKt
	maxAt := samples[maxIdx].SourceTimestamp
	out := Stats{MaxKt: &maxKt, MaxAt: &maxAt, SampleCount: len(samples)}

	if avg, err := speeds.Mean(); err == nil {
		out.AvgKt = &avg
	}
	return out
}
