package providers

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
)

var (
	// ErrUnexpectedStatus is returned for any non-2xx HTTP status.
	ErrUnexpectedStatus = errors.New("unexpected status code")
	// ErrApplication is returned when the payload reports a non-success status.
	ErrApplication = errors.New("non-success status")
	// ErrMalformedPayload is returned when the body cannot be decoded.
	ErrMalformedPayload = errors.New("malformed payload")
	// ErrFieldMissing is returned when a success payload lacks the requested value.
	ErrFieldMissing = errors.New("field missing from payload")
	// ErrCircuitOpen is returned while the breaker rejects calls.
	ErrCircuitOpen = errors.New("circuit breaker open")

	errNoHTTPClient = errors.New("http client not configured")
)

// BreakerConfig controls the optional circuit breaker. A zero Threshold
// disables it.
type BreakerConfig struct {
	// Threshold is the number of consecutive transport failures that opens the breaker.
	Threshold uint32
	// Timeout is how long the breaker stays open before letting a trial request through.
	Timeout time.Duration
}

func newCircuitBreaker(name string, cfg BreakerConfig, logger *slog.Logger) *gobreaker.CircuitBreaker {
	if cfg.Threshold == 0 {
		return nil
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = time.Minute
	}

	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.Threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
	})
}

// doRequest executes req exactly once and returns the response body. Network
// errors and non-2xx statuses count as breaker failures when cb is set.
func doRequest(client *http.Client, cb *gobreaker.CircuitBreaker, req *http.Request) ([]byte, error) {
	if client == nil {
		return nil, errNoHTTPClient
	}

	call := func() (interface{}, error) {
		resp, err := client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			// Drain so the connection can be reused.
			_, _ = io.Copy(io.Discard, resp.Body)
			return nil, fmt.Errorf("%w: HTTP %d", ErrUnexpectedStatus, resp.StatusCode)
		}

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("read response: %w", err)
		}
		return body, nil
	}

	if cb == nil {
		result, err := call()
		if err != nil {
			return nil, err
		}
		return result.([]byte), nil
	}

	result, err := cb.Execute(call)
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: %v", ErrCircuitOpen, err)
		}
		return nil, err
	}

	body, ok := result.([]byte)
	if !ok {
		return nil, fmt.Errorf("unexpected result type from circuit breaker")
	}
	return body, nil
}
