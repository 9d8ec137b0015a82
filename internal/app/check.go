package app

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/shopspring/decimal"

	"windwatch/internal/service"
)

// Check performs one upstream query and prints the snapshot.
func (a *App) Check(ctx context.Context) error {
	svc, err := a.newService(nil, a.newSource(), nil, nil)
	if err != nil {
		return err
	}

	snap, err := svc.QuerySnapshot(ctx)
	if err != nil {
		return fmt.Errorf("query station: %w", err)
	}

	writeSnapshot(a.Out, snap)
	return nil
}

func writeSnapshot(out io.Writer, snap service.Snapshot) {
	writer := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)

	fmt.Fprintf(writer, "Station\t%s\n", sanitizeInline(snap.ReportedName()))
	fmt.Fprintf(writer, "Observed\t%s\n", orDash(snap.ObservedAt()))
	fmt.Fprintf(writer, "Wind (kt)\t%s\n", formatKt(snap.Derived.CurrentWindKt))
	fmt.Fprintf(writer, "Direction\t%s\n", formatDirection(snap.WindDirection()))
	fmt.Fprintf(writer, "Label\t%s\n", snap.Derived.Label)
	fmt.Fprintf(writer, "Thresholds (kt)\t%s / %s\n",
		decimal.NewFromFloat(snap.Derived.Thresholds.StormKt).String(),
		decimal.NewFromFloat(snap.Derived.Thresholds.StrongStormKt).String())
	fmt.Fprintf(writer, "Max 30m (kt)\t%s\n", formatKt(snap.Stats.MaxWindKt))
	fmt.Fprintf(writer, "Avg 30m (kt)\t%s\n", formatKt(snap.Stats.AvgWindKt))
	fmt.Fprintf(writer, "Samples\t%d\n", snap.Stats.SamplesInWindow)
	fmt.Fprintf(writer, "Source\t%s\n", snap.SourceURL)

	writer.Flush()
}

func formatKt(v *float64) string {
	if v == nil {
		return "-"
	}
	return decimal.NewFromFloat(*v).StringFixed(1)
}

func formatDirection(v *float64) string {
	if v == nil {
		return "-"
	}
	return decimal.NewFromFloat(*v).String() + "°"
}

func orDash(v string) string {
	if v == "" {
		return "-"
	}
	return sanitizeInline(v)
}

func sanitizeInline(v string) string {
	cleaned := strings.ReplaceAll(v, "\n", " ")
	cleaned = strings.ReplaceAll(cleaned, "\r", " ")
	return cleaned
}
