package app

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"windwatch/internal/alerting"
	"windwatch/internal/units"
)

// ErrNoNotifier is returned when a test alert has nowhere to go.
var ErrNoNotifier = errors.New("no notification channel configured")

// SimulateAlert sends a formatted test alert for the given wind speed through
// the configured notifier. It bypasses the cooldown and dedup state.
func (a *App) SimulateAlert(ctx context.Context, windKt float64, directionDeg *float64) error {
	if !a.Config.Alerting.Enabled {
		return errors.New("alerting is disabled")
	}

	notifier := a.newNotifier()
	if notifier == nil {
		return ErrNoNotifier
	}

	loc, err := a.Config.Station.Location()
	if err != nil {
		return err
	}

	note := alerting.Notification{
		ID:           uuid.NewString(),
		Label:        units.Classify(&windKt, a.thresholds()),
		StationName:  a.Config.Station.Name,
		WindKt:       windKt,
		DirectionDeg: directionDeg,
		ObservedAt:   time.Now().In(loc).Format(time.RFC3339),
	}

	ctx, cancel := context.WithTimeout(ctx, a.Config.Alerting.NotifyTimeout)
	defer cancel()

	if err := notifier.Notify(ctx, note); err != nil {
		return err
	}

	a.Logger.Info().Str("alert_id", note.ID).Str("label", string(note.Label)).Msg("test alert sent")
	return nil
}
