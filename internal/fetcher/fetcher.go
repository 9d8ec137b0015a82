package fetcher

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/spf13/cast"
)

var (
	// ErrNoPayload indicates the upstream page did not embed a station array.
	ErrNoPayload = errors.New("station array not found in upstream response")
	// ErrStationNotFound indicates the configured station is missing from the array.
	ErrStationNotFound = errors.New("station not found")
	// ErrCircuitOpen indicates upstream calls are short-circuited after repeated failures.
	ErrCircuitOpen = errors.New("upstream circuit open")
)

// Upstream field names in the station object.
const (
	fieldStationName   = "istAd"
	fieldWindSpeed     = "ruzgarHiz"
	fieldWindDirection = "ruzgarYon"
	fieldObservedAt    = "denizVeriZamani"
)

// StationRecord is the upstream observation for the monitored station.
type StationRecord struct {
	StationName string         `json:"station_name"`
	Data        map[string]any `json:"data"`
	FetchedAt   time.Time      `json:"fetched_at"`
	SourceURL   string         `json:"source_url"`
}

// StationProvider retrieves the current station record.
type StationProvider interface {
	FetchStation(ctx context.Context) (StationRecord, error)
}

// ReportedName returns the station name as published upstream, falling back
// to the configured name.
func (r StationRecord) ReportedName() string {
	if name := cast.ToString(r.Data[fieldStationName]); name != "" {
		return name
	}
	return r.StationName
}

// WindSpeedMS returns the wind speed in m/s, or nil when absent or non-numeric.
func (r StationRecord) WindSpeedMS() *float64 {
	return numberField(r.Data, fieldWindSpeed)
}

// WindDirection returns the wind direction in degrees, or nil when absent.
func (r StationRecord) WindDirection() *float64 {
	return numberField(r.Data, fieldWindDirection)
}

// ObservedAt returns the raw observation timestamp reported upstream.
func (r StationRecord) ObservedAt() string {
	return cast.ToString(r.Data[fieldObservedAt])
}

func numberField(data map[string]any, key string) *float64 {
	raw, ok := data[key]
	if !ok || raw == nil {
		return nil
	}
	if s, isString := raw.(string); isString && s == "" {
		return nil
	}
	v, err := cast.ToFloat64E(raw)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}
