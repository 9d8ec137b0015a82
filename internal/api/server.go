package api

import (
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/rs/zerolog"
)

// ServerOptions configure the fiber application.
type ServerOptions struct {
	Name         string
	StaticDir    string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	// Metrics is mounted at /metrics when non-nil.
	Metrics http.Handler
}

// NewServer builds the fiber app with middleware and all routes registered.
func NewServer(opts ServerOptions, svc StationService, logger zerolog.Logger) *fiber.App {
	logger = logger.With().Str("component", "http").Logger()

	app := fiber.New(fiber.Config{
		AppName:               opts.Name,
		DisableStartupMessage: true,
		ReadTimeout:           opts.ReadTimeout,
		WriteTimeout:          opts.WriteTimeout,
		ErrorHandler:          errorHandler,
	})

	app.Use(recover.New())
	app.Use(helmet.New())
	app.Use(requestLogger(logger))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": opts.Name,
		})
	})

	RegisterRoutes(app, svc, opts.Metrics)

	if opts.StaticDir != "" {
		if info, err := os.Stat(opts.StaticDir); err == nil && info.IsDir() {
			app.Static("/", opts.StaticDir)
		} else {
			logger.Debug().Str("dir", opts.StaticDir).Msg("static directory not found; not serving files")
		}
	}

	return app
}

// errorHandler renders every error as {"error": message}.
func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}
	return c.Status(code).JSON(fiber.Map{"error": err.Error()})
}

func requestLogger(logger zerolog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			status = fiber.StatusInternalServerError
			var fe *fiber.Error
			if errors.As(err, &fe) {
				status = fe.Code
			}
		}

		event := logger.Debug()
		if status >= fiber.StatusInternalServerError {
			event = logger.Warn().Err(err)
		}
		event.Str("method", c.Method()).
			Str("path", c.Path()).
			Int("status", status).
			Dur("took", time.Since(start)).
			Msg("request")
		return err
	}
}
