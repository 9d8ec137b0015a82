package api

import (
	"bytes"
	"context"
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"windwatch/internal/report"
	"windwatch/internal/service"
	"windwatch/internal/units"
	"windwatch/internal/window"
)

// StationService is the read side of the monitor used by the HTTP layer.
type StationService interface {
	QuerySnapshot(ctx context.Context) (service.Snapshot, error)
	RecentSamples() []window.Sample
	Thresholds() units.Thresholds
}

// RegisterRoutes wires the station handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, svc StationService, metrics http.Handler) {
	app.Get("/api/station", func(c *fiber.Ctx) error {
		snap, err := svc.QuerySnapshot(c.UserContext())
		if err != nil {
			return fiber.NewError(fiber.StatusBadGateway, err.Error())
		}
		return c.JSON(snap)
	})

	// chart and csv render the retained window only; they never reach upstream
	app.Get("/api/station/chart.png", func(c *fiber.Ctx) error {
		var buf bytes.Buffer
		if err := report.RenderSeriesPNG(&buf, svc.RecentSamples(), svc.Thresholds()); err != nil {
			if errors.Is(err, report.ErrNoSamples) {
				return fiber.NewError(fiber.StatusNotFound, err.Error())
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to render chart: "+err.Error())
		}
		c.Set(fiber.HeaderContentType, "image/png")
		c.Set(fiber.HeaderCacheControl, "no-store")
		return c.Send(buf.Bytes())
	})

	app.Get("/api/station/series.csv", func(c *fiber.Ctx) error {
		var buf bytes.Buffer
		if err := report.WriteSeriesCSV(&buf, svc.RecentSamples()); err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "failed to write csv: "+err.Error())
		}
		c.Set(fiber.HeaderContentType, "text/csv; charset=utf-8")
		return c.Send(buf.Bytes())
	})

	if metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(metrics))
	}
}
