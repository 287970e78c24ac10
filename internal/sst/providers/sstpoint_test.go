package providers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/i474232898/sst-timeseries-graph/internal/sst"
)

var (
	testLoc  = sst.Location{Lat: 38.13, Lon: 4.13}
	testDate = time.Date(2020, time.July, 1, 0, 0, 0, 0, time.UTC)
)

func newTestProvider(t *testing.T, handler http.HandlerFunc, opts ...Option) (*SSTPointProvider, *recordingHandler) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	logger, rec := newRecordingLogger()
	opts = append([]Option{WithLogger(logger)}, opts...)
	return NewSSTPointProvider(&http.Client{Timeout: 5 * time.Second}, server.URL, "test-key", opts...), rec
}

func respond(status int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write([]byte(body))
	}
}

func TestNewSSTPointProvider(t *testing.T) {
	t.Run("default base URL", func(t *testing.T) {
		p := NewSSTPointProvider(http.DefaultClient, "", "key")
		if p.baseURL != DefaultBaseURL {
			t.Errorf("baseURL = %q, want %q", p.baseURL, DefaultBaseURL)
		}
		if p.circuit != nil {
			t.Error("breaker should be disabled by default")
		}
		if p.logger == nil {
			t.Error("logger should not be nil")
		}
	})

	t.Run("trailing slash trimmed", func(t *testing.T) {
		p := NewSSTPointProvider(http.DefaultClient, "http://localhost:9000/", "key")
		if p.baseURL != "http://localhost:9000" {
			t.Errorf("baseURL = %q, want %q", p.baseURL, "http://localhost:9000")
		}
	})

	t.Run("with breaker", func(t *testing.T) {
		p := NewSSTPointProvider(http.DefaultClient, "", "key", WithBreaker(BreakerConfig{Threshold: 3}))
		if p.circuit == nil {
			t.Error("breaker should be enabled")
		}
	})
}

func TestFetchPointRequest(t *testing.T) {
	p, _ := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("method = %s, want GET", r.Method)
		}
		if r.URL.Path != PointPath {
			t.Errorf("path = %q, want %q", r.URL.Path, PointPath)
		}
		if got := r.Header.Get("X-API-Key"); got != "test-key" {
			t.Errorf("X-API-Key = %q, want %q", got, "test-key")
		}
		if got := r.Header.Get("Content-Type"); got != "application/json" {
			t.Errorf("Content-Type = %q, want application/json", got)
		}

		want := map[string]string{
			"lat":         "38.13",
			"lon":         "4.13",
			"data_type":   "anomaly",
			"date":        "2020-07-01",
			"data_source": "timeseries-graph",
			"zoom_level":  "5",
			"max_points":  "4000",
			"radius":      "2.0",
		}
		q := r.URL.Query()
		for k, v := range want {
			if q.Get(k) != v {
				t.Errorf("%s = %q, want %q", k, q.Get(k), v)
			}
		}

		w.Write([]byte(`{"status":"success","data":{"anomaly":0.42}}`))
	})

	obs := p.FetchPoint(context.Background(), testLoc, sst.MetricAnomaly, testDate)
	if v, ok := obs.Float(); !ok || v != 0.42 {
		t.Errorf("FetchPoint = %v, %v; want 0.42, true", v, ok)
	}
}

func TestFetchPointSuccessPayload(t *testing.T) {
	body := `{"status":"success","data":{"temperature":17.5}}`

	t.Run("temperature present", func(t *testing.T) {
		p, rec := newTestProvider(t, respond(http.StatusOK, body))
		obs := p.FetchPoint(context.Background(), testLoc, sst.MetricTemperature, testDate)
		if v, ok := obs.Float(); !ok || v != 17.5 {
			t.Errorf("FetchPoint = %v, %v; want 17.5, true", v, ok)
		}
		if n := rec.count(slog.LevelWarn); n != 0 {
			t.Errorf("warnings = %d, want 0", n)
		}
	})

	t.Run("anomaly missing", func(t *testing.T) {
		p, rec := newTestProvider(t, respond(http.StatusOK, body))
		obs := p.FetchPoint(context.Background(), testLoc, sst.MetricAnomaly, testDate)
		if obs.Present {
			t.Fatalf("expected absent, got %v", obs.Value)
		}
		if obs.Reason != sst.ReasonDataAbsent {
			t.Errorf("Reason = %v, want %v", obs.Reason, sst.ReasonDataAbsent)
		}
		if !errors.Is(obs.Err, ErrFieldMissing) {
			t.Errorf("Err = %v, want ErrFieldMissing", obs.Err)
		}
		if n := rec.count(slog.LevelWarn); n != 1 {
			t.Errorf("warnings = %d, want 1", n)
		}
	})

	t.Run("null value", func(t *testing.T) {
		p, _ := newTestProvider(t, respond(http.StatusOK, `{"status":"success","data":{"temperature":null}}`))
		obs := p.FetchPoint(context.Background(), testLoc, sst.MetricTemperature, testDate)
		if obs.Present || obs.Reason != sst.ReasonDataAbsent {
			t.Errorf("got %+v, want absent data", obs)
		}
	})

	t.Run("zero is a value", func(t *testing.T) {
		p, _ := newTestProvider(t, respond(http.StatusOK, `{"status":"success","data":{"anomaly":0}}`))
		obs := p.FetchPoint(context.Background(), testLoc, sst.MetricAnomaly, testDate)
		if v, ok := obs.Float(); !ok || v != 0 {
			t.Errorf("FetchPoint = %v, %v; want 0, true", v, ok)
		}
	})
}

func TestFetchPointFailures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		reason  sst.AbsentReason
		wantErr error
	}{
		{
			name:    "server error",
			handler: respond(http.StatusInternalServerError, `internal error`),
			reason:  sst.ReasonTransportFailure,
			wantErr: ErrUnexpectedStatus,
		},
		{
			name:    "unauthorized",
			handler: respond(http.StatusUnauthorized, `{"detail":"invalid api key"}`),
			reason:  sst.ReasonTransportFailure,
			wantErr: ErrUnexpectedStatus,
		},
		{
			name:    "application error",
			handler: respond(http.StatusOK, `{"status":"error","detail":"no data for date"}`),
			reason:  sst.ReasonApplicationFailure,
			wantErr: ErrApplication,
		},
		{
			name:    "malformed payload",
			handler: respond(http.StatusOK, `{"status":`),
			reason:  sst.ReasonApplicationFailure,
			wantErr: ErrMalformedPayload,
		},
		{
			name:    "missing data object",
			handler: respond(http.StatusOK, `{"status":"success"}`),
			reason:  sst.ReasonDataAbsent,
			wantErr: ErrFieldMissing,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, rec := newTestProvider(t, tt.handler)

			obs := p.FetchPoint(context.Background(), testLoc, sst.MetricTemperature, testDate)
			if obs.Present {
				t.Fatalf("expected absent, got %v", obs.Value)
			}
			if obs.Reason != tt.reason {
				t.Errorf("Reason = %v, want %v", obs.Reason, tt.reason)
			}
			if !errors.Is(obs.Err, tt.wantErr) {
				t.Errorf("Err = %v, want %v", obs.Err, tt.wantErr)
			}
			if n := rec.count(slog.LevelWarn); n != 1 {
				t.Errorf("warnings = %d, want 1", n)
			}
			if got := rec.attr("date"); got != "2020-07-01" {
				t.Errorf("logged date = %q, want 2020-07-01", got)
			}
			if got := rec.attr("metric"); got != "mean" {
				t.Errorf("logged metric = %q, want mean", got)
			}
		})
	}
}

func TestFetchPointApplicationDetailDefault(t *testing.T) {
	p, _ := newTestProvider(t, respond(http.StatusOK, `{"status":"failed"}`))
	obs := p.FetchPoint(context.Background(), testLoc, sst.MetricTemperature, testDate)
	if obs.Err == nil || obs.Err.Error() != `non-success status "failed": Unknown error` {
		t.Errorf("Err = %v", obs.Err)
	}
}

func TestFetchPointNetworkError(t *testing.T) {
	server := httptest.NewServer(respond(http.StatusOK, `{}`))
	url := server.URL
	server.Close()

	logger, rec := newRecordingLogger()
	p := NewSSTPointProvider(&http.Client{Timeout: time.Second}, url, "key", WithLogger(logger))

	obs := p.FetchPoint(context.Background(), testLoc, sst.MetricTemperature, testDate)
	if obs.Present || obs.Reason != sst.ReasonTransportFailure {
		t.Errorf("got %+v, want transport failure", obs)
	}
	if n := rec.count(slog.LevelWarn); n != 1 {
		t.Errorf("warnings = %d, want 1", n)
	}
}

func TestFetchPointTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))
	defer server.Close()

	logger, _ := newRecordingLogger()
	p := NewSSTPointProvider(&http.Client{Timeout: 50 * time.Millisecond}, server.URL, "key", WithLogger(logger))

	obs := p.FetchPoint(context.Background(), testLoc, sst.MetricTemperature, testDate)
	if obs.Present || obs.Reason != sst.ReasonTransportFailure {
		t.Errorf("got %+v, want transport failure", obs)
	}
}

func TestFetchPointCancelledIsQuiet(t *testing.T) {
	started := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(started)
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))
	defer server.Close()

	logger, rec := newRecordingLogger()
	p := NewSSTPointProvider(&http.Client{Timeout: 5 * time.Second}, server.URL, "key", WithLogger(logger))

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-started
		cancel()
	}()

	obs := p.FetchPoint(ctx, testLoc, sst.MetricTemperature, testDate)
	if obs.Present || obs.Reason != sst.ReasonTransportFailure {
		t.Errorf("got %+v, want transport failure", obs)
	}
	if !errors.Is(obs.Err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", obs.Err)
	}
	if n := rec.count(slog.LevelWarn); n != 0 {
		t.Errorf("warnings = %d, want 0", n)
	}
}

func TestFetchPointCircuitBreaker(t *testing.T) {
	var hits int32
	p, _ := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}, WithBreaker(BreakerConfig{Threshold: 2, Timeout: time.Minute}))

	for i := 0; i < 5; i++ {
		obs := p.FetchPoint(context.Background(), testLoc, sst.MetricTemperature, testDate)
		if obs.Present {
			t.Fatalf("call %d: expected absent", i)
		}
		if i >= 2 && !errors.Is(obs.Err, ErrCircuitOpen) {
			t.Errorf("call %d: Err = %v, want ErrCircuitOpen", i, obs.Err)
		}
	}

	if got := atomic.LoadInt32(&hits); got != 2 {
		t.Errorf("server hits = %d, want 2", got)
	}
}

func TestFetchPointApplicationFailuresDoNotTrip(t *testing.T) {
	var hits int32
	p, _ := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.Write([]byte(`{"status":"error","detail":"no data"}`))
	}, WithBreaker(BreakerConfig{Threshold: 1}))

	for i := 0; i < 3; i++ {
		p.FetchPoint(context.Background(), testLoc, sst.MetricAnomaly, testDate)
	}
	if got := atomic.LoadInt32(&hits); got != 3 {
		t.Errorf("server hits = %d, want 3", got)
	}
}
