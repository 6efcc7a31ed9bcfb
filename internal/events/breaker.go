package events

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sony/gobreaker"
)

var publishTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "ledger",
		Name:      "events_published_total",
		Help:      "Domain events handed to the transport, by type and result",
	},
	[]string{"type", "result"},
)

// BreakerSettings trips the breaker after MaxFailures consecutive errors
// and keeps it open for OpenTimeout.
type BreakerSettings struct {
	Name        string
	MaxFailures uint32
	OpenTimeout time.Duration
}

// Breaker guards a Publisher so a dead broker fails fast instead of
// stalling every post.
type Breaker struct {
	next Publisher
	cb   *gobreaker.CircuitBreaker
}

// NewBreaker wraps next.
func NewBreaker(next Publisher, st BreakerSettings, log *slog.Logger) *Breaker {
	if st.MaxFailures == 0 {
		st.MaxFailures = 3
	}
	if st.Name == "" {
		st.Name = "events"
	}
	settings := gobreaker.Settings{
		Name:    st.Name,
		Timeout: st.OpenTimeout,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= st.MaxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("circuit breaker state change", "breaker", name, "from", from.String(), "to", to.String())
		},
	}
	return &Breaker{next: next, cb: gobreaker.NewCircuitBreaker(settings)}
}

func (b *Breaker) Publish(ctx context.Context, e Event) error {
	_, err := b.cb.Execute(func() (interface{}, error) {
		return nil, b.next.Publish(ctx, e)
	})
	result := "ok"
	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		result = "rejected"
	case err != nil:
		result = "error"
	}
	publishTotal.WithLabelValues(e.Type, result).Inc()
	return err
}

// State reports the breaker state, mainly for readiness output.
func (b *Breaker) State() gobreaker.State { return b.cb.State() }

func (b *Breaker) Close() error { return b.next.Close() }
