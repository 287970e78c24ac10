package httpapi

import (
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/sst-timeseries-graph/internal/sst"
	"github.com/i474232898/sst-timeseries-graph/internal/sst/providers"
)

var validate = validator.New()

// NewApp returns a Fiber app that encodes JSON with go-json and reports
// errors in the same envelope as application failures.
func NewApp(appName string) *fiber.App {
	return fiber.New(fiber.Config{
		AppName:               appName,
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          10 * time.Second,
		JSONEncoder:           json.Marshal,
		JSONDecoder:           json.Unmarshal,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			var e *fiber.Error
			if errors.As(err, &e) {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"status": "error",
				"detail": err.Error(),
			})
		},
	})
}

// RegisterRoutes wires the mock SST point endpoint into the Fiber app. When
// apiKey is non-empty every request must present it in X-API-Key.
func RegisterRoutes(app *fiber.App, dataset Dataset, apiKey string) {
	app.Get(providers.PointPath, func(c *fiber.Ctx) error {
		if apiKey != "" && c.Get("X-API-Key") != apiKey {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"status": "error",
				"detail": "invalid or missing API key",
			})
		}

		var q pointQuery
		if err := q.bind(c); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if err := validate.Struct(q); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		metric, err := sst.ParseDataType(q.DataType)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		date, err := time.Parse(sst.DateLayout, q.Date)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "date must be YYYY-MM-DD")
		}

		value, ok := dataset.Point(sst.Location{Lat: q.Lat, Lon: q.Lon}, metric, date)
		if !ok {
			return c.JSON(fiber.Map{
				"status": "error",
				"detail": "no data available for " + q.Date,
			})
		}

		field := "temperature"
		if metric == sst.MetricAnomaly {
			field = "anomaly"
		}
		return c.JSON(fiber.Map{
			"status": "success",
			"data": fiber.Map{
				field:  value,
				"lat":  q.Lat,
				"lon":  q.Lon,
				"date": q.Date,
			},
		})
	})
}

// pointQuery holds the query parameters of a point lookup.
type pointQuery struct {
	Lat       float64 `query:"lat" validate:"gte=-90,lte=90"`
	Lon       float64 `query:"lon" validate:"gte=-180,lte=180"`
	DataType  string  `query:"data_type" validate:"required,oneof=mean anomaly"`
	Date      string  `query:"date" validate:"required,datetime=2006-01-02"`
	MaxPoints int     `query:"max_points" validate:"omitempty,gte=1"`
	Radius    float64 `query:"radius" validate:"omitempty,gt=0"`
}

func (q *pointQuery) bind(c *fiber.Ctx) error {
	if c.Query("lat") == "" || c.Query("lon") == "" {
		return fiber.NewError(fiber.StatusBadRequest, "lat and lon query parameters are required")
	}
	return c.QueryParser(q)
}
