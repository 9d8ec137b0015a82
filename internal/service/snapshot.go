package service

import (
	"windwatch/internal/fetcher"
	"windwatch/internal/units"
	"windwatch/internal/window"
)

// Snapshot is the query read model: the raw station record plus derived
// classification, window statistics and the recent series.
type Snapshot struct {
	fetcher.StationRecord
	Derived Derived    `json:"derived"`
	Stats   StatsView  `json:"stats"`
	Series  SeriesView `json:"series"`
}

// Derived holds values computed from the current reading.
type Derived struct {
	CurrentWindKt *float64         `json:"currentWindKt"`
	Label         units.Label      `json:"label"`
	Thresholds    units.Thresholds `json:"thresholds"`
}

// StatsView renders window statistics.
type StatsView struct {
	MaxWindKt       *float64 `json:"maxWindKtLast30m"`
	MaxWindAt       *string  `json:"maxWindAtIsoLast30m"`
	AvgWindKt       *float64 `json:"avgWindKtLast30m"`
	SamplesInWindow int      `json:"samplesInWindow"`
}

// SeriesView renders the recent series.
type SeriesView struct {
	WindKt []window.Point `json:"windKtLast30m"`
}
