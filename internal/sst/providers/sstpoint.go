package providers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/sony/gobreaker"

	"github.com/i474232898/sst-timeseries-graph/internal/sst"
)

const (
	// DefaultBaseURL is the production SST point service.
	DefaultBaseURL = "https://api.deepearth.digital"
	// PointPath is the point lookup endpoint relative to the base URL.
	PointPath = "/api/sst/point"

	// Fixed search parameters sent with every request.
	dataSource = "timeseries-graph"
	zoomLevel  = "5"
	maxPoints  = "4000"
	radius     = "2.0"

	statusSuccess = "success"
)

// SSTPointProvider implements sst.PointSource over the HTTP point endpoint.
type SSTPointProvider struct {
	name    string
	apiKey  string
	baseURL string
	client  *http.Client
	circuit *gobreaker.CircuitBreaker
	logger  *slog.Logger

	breaker BreakerConfig
}

// Option configures an SSTPointProvider.
type Option func(*SSTPointProvider)

// WithLogger sets the logger used for failure warnings.
func WithLogger(logger *slog.Logger) Option {
	return func(p *SSTPointProvider) {
		p.logger = logger
	}
}

// WithBreaker enables the circuit breaker.
func WithBreaker(cfg BreakerConfig) Option {
	return func(p *SSTPointProvider) {
		p.breaker = cfg
	}
}

// NewSSTPointProvider creates a provider for the service at baseURL.
func NewSSTPointProvider(client *http.Client, baseURL, apiKey string, opts ...Option) *SSTPointProvider {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	p := &SSTPointProvider{
		name:    "sst-point",
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.circuit = newCircuitBreaker(p.name, p.breaker, p.logger)

	return p
}

func (p *SSTPointProvider) Name() string {
	return p.name
}

// pointResponse is the JSON shape returned by the point endpoint.
type pointResponse struct {
	Status string `json:"status"`
	Data   *struct {
		Temperature *float64 `json:"temperature"`
		Anomaly     *float64 `json:"anomaly"`
	} `json:"data"`
	Detail string `json:"detail"`
}

func (p *SSTPointProvider) buildRequest(ctx context.Context, loc sst.Location, metric sst.MetricKind, date time.Time) (*http.Request, error) {
	values := url.Values{}
	values.Set("lat", strconv.FormatFloat(loc.Lat, 'f', -1, 64))
	values.Set("lon", strconv.FormatFloat(loc.Lon, 'f', -1, 64))
	values.Set("data_type", metric.DataType())
	values.Set("date", date.Format(sst.DateLayout))
	values.Set("data_source", dataSource)
	values.Set("zoom_level", zoomLevel)
	values.Set("max_points", maxPoints)
	values.Set("radius", radius)

	u := fmt.Sprintf("%s%s?%s", p.baseURL, PointPath, values.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-API-Key", p.apiKey)
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

// FetchPoint requests one value. It never retries; any failure is logged as
// a warning and returned as an absent observation. Requests aborted by a
// cancelled ctx are not logged.
func (p *SSTPointProvider) FetchPoint(ctx context.Context, loc sst.Location, metric sst.MetricKind, date time.Time) sst.Observation {
	obs := p.fetch(ctx, loc, metric, date)
	if !obs.Present && ctx.Err() == nil {
		p.logger.Warn("sst point unavailable",
			"date", date.Format(sst.DateLayout),
			"metric", metric.DataType(),
			"reason", obs.Reason.String(),
			"err", obs.Err,
		)
	}
	return obs
}

func (p *SSTPointProvider) fetch(ctx context.Context, loc sst.Location, metric sst.MetricKind, date time.Time) sst.Observation {
	req, err := p.buildRequest(ctx, loc, metric, date)
	if err != nil {
		return sst.Absent(sst.ReasonTransportFailure, fmt.Errorf("build request: %w", err))
	}

	body, err := doRequest(p.client, p.circuit, req)
	if err != nil {
		return sst.Absent(sst.ReasonTransportFailure, err)
	}

	var payload pointResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return sst.Absent(sst.ReasonApplicationFailure, fmt.Errorf("%w: %v", ErrMalformedPayload, err))
	}

	if payload.Status != statusSuccess {
		detail := payload.Detail
		if detail == "" {
			detail = "Unknown error"
		}
		return sst.Absent(sst.ReasonApplicationFailure, fmt.Errorf("%w %q: %s", ErrApplication, payload.Status, detail))
	}

	value, err := extract(payload, metric)
	if err != nil {
		return sst.Absent(sst.ReasonDataAbsent, err)
	}
	return sst.Present(value)
}

func extract(payload pointResponse, metric sst.MetricKind) (float64, error) {
	if payload.Data == nil {
		return 0, fmt.Errorf("%w: data", ErrFieldMissing)
	}

	var field *float64
	var name string
	switch metric {
	case sst.MetricTemperature:
		field, name = payload.Data.Temperature, "temperature"
	case sst.MetricAnomaly:
		field, name = payload.Data.Anomaly, "anomaly"
	default:
		return 0, errors.New("unsupported metric")
	}

	if field == nil {
		return 0, fmt.Errorf("%w: %s", ErrFieldMissing, name)
	}
	return *field, nil
}
