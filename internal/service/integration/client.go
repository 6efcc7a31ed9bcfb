package integration

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sony/gobreaker"

	"github.com/tinoosan/finledger/internal/errs"
)

// HTTPFetcher issues GET requests through a shared circuit breaker.
type HTTPFetcher struct {
	client *http.Client
	cb     *gobreaker.CircuitBreaker
}

// NewHTTPFetcher opens the breaker after maxFailures consecutive failed
// calls and probes again after openTimeout.
func NewHTTPFetcher(timeout time.Duration, maxFailures uint32, openTimeout time.Duration) *HTTPFetcher {
	if maxFailures == 0 {
		maxFailures = 3
	}
	st := gobreaker.Settings{
		Name:    "integration-sync",
		Timeout: openTimeout,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= maxFailures
		},
	}
	return &HTTPFetcher{
		client: &http.Client{Timeout: timeout},
		cb:     gobreaker.NewCircuitBreaker(st),
	}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, endpoint string) error {
	_, err := f.cb.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, err
		}
		resp, err := f.client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<20))
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return nil, fmt.Errorf("endpoint answered %d", resp.StatusCode)
		}
		return nil, nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", errs.ErrUpstream, err)
	}
	return nil
}
