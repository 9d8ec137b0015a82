package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"windwatch/internal/alerting"
	"windwatch/internal/fetcher"
	"windwatch/internal/metrics"
	"windwatch/internal/units"
)

var t0 = time.Date(2025, 1, 10, 12, 0, 0, 0, time.UTC)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

type stubProvider struct {
	mu    sync.Mutex
	data  map[string]any
	err   error
	calls int
}

func (p *stubProvider) set(speedMS any, observedAt string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.data = map[string]any{
		"istAd":           "TRABZON LİMANI ANA MENDİREK FENERİ",
		"ruzgarHiz":       speedMS,
		"ruzgarYon":       270.0,
		"denizVeriZamani": observedAt,
	}
	p.err = nil
}

func (p *stubProvider) fail(err error) {
	p.mu.Lock()
	p.err = err
	p.mu.Unlock()
}

func (p *stubProvider) FetchStation(context.Context) (fetcher.StationRecord, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	if p.err != nil {
		return fetcher.StationRecord{}, p.err
	}
	data := make(map[string]any, len(p.data))
	for k, v := range p.data {
		data[k] = v
	}
	return fetcher.StationRecord{StationName: "TRABZON", Data: data, SourceURL: "http://upstream"}, nil
}

type recordingNotifier struct {
	mu    sync.Mutex
	notes []alerting.Notification
	err   error
}

func (n *recordingNotifier) Notify(_ context.Context, note alerting.Notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notes = append(n.notes, note)
	return n.err
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.notes)
}

func newTestService(p fetcher.StationProvider, n alerting.Notifier, c *clock) *Service {
	return New(Options{
		Thresholds:  units.Thresholds{StormKt: 34, StrongStormKt: 48},
		Cooldown:    time.Hour,
		SeriesLimit: 180,
		Location:    time.UTC,
		Now:         c.Now,
	}, nil, p, n, metrics.New(), zerolog.Nop())
}

// speedFor returns the m/s reading that converts to kt.
func speedFor(kt float64) float64 { return kt / units.KnotsPerMeterPerSecond }

func TestEndToEndDuplicateTimestampIsNoNewInformation(t *testing.T) {
	p := &stubProvider{}
	n := &recordingNotifier{}
	c := &clock{now: t0}
	svc := newTestService(p, n, c)

	p.set(20.0, "2025-01-10T12:00:00Z")
	require.NoError(t, svc.PollOnce(context.Background()))
	assert.Equal(t, 0, n.count())

	snap, err := svc.QuerySnapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, snap.Stats.SamplesInWindow)
	assert.InDelta(t, 10.2888, *snap.Stats.MaxWindKt, 1e-9)
	assert.InDelta(t, 10.2888, *snap.Stats.AvgWindKt, 1e-9)

	c.Set(t0.Add(60 * time.Second))
	require.NoError(t, svc.PollOnce(context.Background()))
	assert.Equal(t, 0, n.count())

	snap, err = svc.QuerySnapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, snap.Stats.SamplesInWindow, "same source timestamp must not add a sample")
	assert.Len(t, snap.Series.WindKt, 1)
}

func TestPollFiresOnceAndRespectsCooldown(t *testing.T) {
	p := &stubProvider{}
	n := &recordingNotifier{}
	c := &clock{now: t0}
	svc := newTestService(p, n, c)

	p.set(speedFor(40), "2025-01-10T12:00:00Z")
	require.NoError(t, svc.PollOnce(context.Background()))
	require.Equal(t, 1, n.count())

	note := n.notes[0]
	assert.Equal(t, units.LabelStorm, note.Label)
	assert.Equal(t, "TRABZON LİMANI ANA MENDİREK FENERİ", note.StationName)
	assert.InDelta(t, 40, note.WindKt, 1e-9)
	require.NotNil(t, note.DirectionDeg)
	assert.Equal(t, 270.0, *note.DirectionDeg)
	assert.Equal(t, "2025-01-10T12:00:00Z", note.ObservedAt)
	assert.NotEmpty(t, note.ID)

	c.Set(t0.Add(time.Second))
	p.set(speedFor(45), "2025-01-10T12:00:01Z")
	require.NoError(t, svc.PollOnce(context.Background()))
	assert.Equal(t, 1, n.count(), "cooldown suppresses a different key")

	c.Set(t0.Add(time.Hour + time.Millisecond))
	p.set(speedFor(36), "2025-01-10T13:00:01Z")
	require.NoError(t, svc.PollOnce(context.Background()))
	assert.Equal(t, 2, n.count())
}

func TestNotifierFailureKeepsRecordedState(t *testing.T) {
	p := &stubProvider{}
	n := &recordingNotifier{err: errors.New("telegram down")}
	c := &clock{now: t0}
	svc := newTestService(p, n, c)

	p.set(speedFor(50), "2025-01-10T12:00:00Z")
	require.NoError(t, svc.PollOnce(context.Background()))
	require.Equal(t, 1, n.count())

	st := svc.AlertState()
	assert.Equal(t, t0, st.LastAlertAt)
	assert.Equal(t, "2025-01-10T12:00:00Z|50.00", st.LastAlertKey)

	// same reading two hours later: dedup key still blocks a retry
	c.Set(t0.Add(2 * time.Hour))
	require.NoError(t, svc.PollOnce(context.Background()))
	assert.Equal(t, 1, n.count())
}

func TestPollFetchFailureLeavesStateUntouched(t *testing.T) {
	p := &stubProvider{}
	n := &recordingNotifier{}
	c := &clock{now: t0}
	svc := newTestService(p, n, c)

	p.set(speedFor(10), "2025-01-10T12:00:00Z")
	require.NoError(t, svc.PollOnce(context.Background()))

	p.fail(errors.New("upstream unreachable"))
	err := svc.PollOnce(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "upstream unreachable")

	assert.Len(t, svc.WindowSeries(), 1)
	assert.True(t, svc.AlertState().LastAlertAt.IsZero())
}

func TestPollSkipsMissingOrMalformedReadings(t *testing.T) {
	p := &stubProvider{}
	n := &recordingNotifier{}
	c := &clock{now: t0}
	svc := newTestService(p, n, c)

	p.set(nil, "2025-01-10T12:00:00Z")
	require.NoError(t, svc.PollOnce(context.Background()))

	p.set(speedFor(60), "yesterday-ish")
	require.NoError(t, svc.PollOnce(context.Background()))

	assert.Equal(t, 0, n.count())
	assert.Empty(t, svc.WindowSeries())
}

func TestQueryNeverFires(t *testing.T) {
	p := &stubProvider{}
	n := &recordingNotifier{}
	c := &clock{now: t0}
	svc := newTestService(p, n, c)

	p.set(speedFor(55), "2025-01-10T12:00:00Z")
	snap, err := svc.QuerySnapshot(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 0, n.count())
	assert.Equal(t, units.LabelStrongStorm, snap.Derived.Label)
	assert.Equal(t, 1, snap.Stats.SamplesInWindow, "query path contributes to history")
}

func TestQueryFailurePropagates(t *testing.T) {
	p := &stubProvider{}
	p.fail(fetcher.ErrStationNotFound)
	svc := newTestService(p, &recordingNotifier{}, &clock{now: t0})

	_, err := svc.QuerySnapshot(context.Background())
	require.ErrorIs(t, err, fetcher.ErrStationNotFound)
}

func TestSnapshotJSONShape(t *testing.T) {
	p := &stubProvider{}
	svc := newTestService(p, &recordingNotifier{}, &clock{now: t0})

	p.set(nil, "2025-01-10T12:00:00Z")
	snap, err := svc.QuerySnapshot(context.Background())
	require.NoError(t, err)

	raw, err := json.Marshal(snap)
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(raw, &doc))

	assert.Equal(t, "TRABZON", doc["station_name"])
	assert.Equal(t, "http://upstream", doc["source_url"])
	assert.Contains(t, doc, "data")

	derived := doc["derived"].(map[string]any)
	assert.Nil(t, derived["currentWindKt"])
	assert.Equal(t, "Unknown", derived["label"])
	assert.Equal(t, map[string]any{"stormKt": 34.0, "strongStormKt": 48.0}, derived["thresholds"])

	stats := doc["stats"].(map[string]any)
	assert.Nil(t, stats["maxWindKtLast30m"])
	assert.Nil(t, stats["maxWindAtIsoLast30m"])
	assert.Nil(t, stats["avgWindKtLast30m"])
	assert.Equal(t, 0.0, stats["samplesInWindow"])

	series := doc["series"].(map[string]any)
	assert.Equal(t, []any{}, series["windKtLast30m"])
}

func TestSnapshotStatsAndSeriesAgreeUnderConcurrentPolls(t *testing.T) {
	p := &stubProvider{}
	svc := newTestService(p, &recordingNotifier{}, &clock{now: t0})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 100; i++ {
			p.set(speedFor(10), t0.Add(-time.Duration(100-i)*time.Second).Format(time.RFC3339))
			_ = svc.PollOnce(context.Background())
		}
	}()

	for i := 0; i < 100; i++ {
		snap, err := svc.QuerySnapshot(context.Background())
		if err != nil {
			continue
		}
		require.Equal(t, snap.Stats.SamplesInWindow, len(snap.Series.WindKt))
	}
	wg.Wait()
}

func TestConcurrentPollAndQuery(t *testing.T) {
	p := &stubProvider{}
	n := &recordingNotifier{}
	c := &clock{now: t0}
	svc := newTestService(p, n, c)
	p.set(speedFor(40), "2025-01-10T12:00:00Z")

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = svc.PollOnce(context.Background())
		}()
		go func(i int) {
			defer wg.Done()
			if i%5 == 0 {
				p.set(speedFor(40), fmt.Sprintf("2025-01-10T12:%02d:00Z", i))
			}
			_, _ = svc.QuerySnapshot(context.Background())
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, n.count(), "cooldown allows one alert across concurrent polls")
	assert.NotEmpty(t, svc.WindowSeries())
}
