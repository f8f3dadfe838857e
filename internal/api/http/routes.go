package httpapi

import (
	"context"
	"errors"
	"io"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/i474232898/weather-tool-server/internal/store"
	"github.com/i474232898/weather-tool-server/internal/weather"
)

var validate = validator.New()

// WeatherService is the subset of weather.Service the HTTP surface needs.
type WeatherService interface {
	GetWeather(ctx context.Context, city string) (weather.WeatherSummary, error)
	LatestProbe(city string) (weather.ProbeResult, error)
	ProbeHistory(city string, from, to time.Time) ([]weather.ProbeResult, error)
}

// NewApp builds the Fiber app with the shared error handler and middleware.
// Access logs go to logOut; stdout belongs to the tool protocol.
func NewApp(name string, logOut io.Writer) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               name,
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          30 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			// Centralized error response
			code := fiber.StatusInternalServerError
			var e *fiber.Error
			if errors.As(err, &e) {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error":   true,
				"message": err.Error(),
			})
		},
	})

	app.Use(logger.New(logger.Config{Output: logOut}))
	app.Use(recover.New())
	return app
}

// RegisterRoutes wires the HTTP handlers into the Fiber app. probeCity is the
// city whose latest probe backs /health.
func RegisterRoutes(app *fiber.App, service WeatherService, probeCity string) {
	app.Get("/health", func(c *fiber.Ctx) error {
		body := fiber.Map{
			"status":  "ok",
			"service": app.Config().AppName,
		}
		probe, err := service.LatestProbe(probeCity)
		switch {
		case err == nil:
			body["probe"] = probe
			if !probe.OK {
				body["status"] = "degraded"
			}
		case errors.Is(err, store.ErrNotFound), errors.Is(err, weather.ErrNoProbeStore):
		default:
			return fiber.NewError(fiber.StatusInternalServerError, "failed to read probe status")
		}
		return c.JSON(body)
	})

	v1 := app.Group("/api/v1")

	v1.Get("/weather", func(c *fiber.Ctx) error {
		q, err := parseCityQuery(c)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		summary, err := service.GetWeather(c.UserContext(), q.City)
		if err != nil {
			code := fiber.StatusBadGateway
			if weather.IsNotFound(err) {
				code = fiber.StatusNotFound
			}
			return fiber.NewError(code, weather.FormatError(q.City, err))
		}

		return c.JSON(fiber.Map{
			"city":    q.City,
			"summary": summary,
			"text":    weather.FormatSummary(summary),
		})
	})

	v1.Get("/probes", func(c *fiber.Ctx) error {
		var req historyQuery
		if err := req.bind(c); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		probes, err := service.ProbeHistory(req.City.City, req.From, req.To)
		if err != nil {
			switch {
			case errors.Is(err, store.ErrNotFound):
				return fiber.NewError(fiber.StatusNotFound, "no probe history for requested range")
			case errors.Is(err, weather.ErrNoProbeStore):
				return fiber.NewError(fiber.StatusServiceUnavailable, err.Error())
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to fetch probe history")
		}

		return c.JSON(fiber.Map{
			"city":   req.City.City,
			"from":   req.From,
			"to":     req.To,
			"probes": probes,
			"stats":  weather.AggregateProbes(req.City.City, probes),
		})
	})
}

// cityQuery holds the query parameter naming a city.
type cityQuery struct {
	City string `validate:"required"`
}

func parseCityQuery(c *fiber.Ctx) (cityQuery, error) {
	q := cityQuery{City: c.Query("city")}
	if err := validate.Struct(q); err != nil {
		return q, err
	}
	return q, nil
}

// historyQuery holds query parameters for the probe history endpoint.
type historyQuery struct {
	City cityQuery
	From time.Time `validate:"required"`
	To   time.Time `validate:"required,gtefield=From"`
}

func (h *historyQuery) bind(c *fiber.Ctx) error {
	city, err := parseCityQuery(c)
	if err != nil {
		return err
	}
	h.City = city

	fromStr := c.Query("from")
	toStr := c.Query("to")
	if fromStr == "" || toStr == "" {
		return errors.New("from and to query parameters are required")
	}

	from, err := parseTime(fromStr)
	if err != nil {
		return err
	}
	to, err := parseTime(toStr)
	if err != nil {
		return err
	}

	h.From = from
	h.To = to
	return nil
}

// parseTime tries to parse either RFC3339 or Unix seconds.
func parseTime(s string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339, s); err == nil {
		return ts, nil
	}
	if unix, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(unix, 0).UTC(), nil
	}
	return time.Time{}, errors.New("invalid time format; use RFC3339 or unix seconds")
}
