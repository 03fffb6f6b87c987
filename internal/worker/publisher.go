package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"cloud.google.com/go/pubsub/v2"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"

	"github.com/breatheroute/raptor/internal/resilience"
)

// ErrPublisherUnavailable indicates that the result publisher's breaker is open.
var ErrPublisherUnavailable = errors.New("result publisher unavailable")

// SendFunc sends one message and returns its server id.
type SendFunc func(ctx context.Context, msg *pubsub.Message) (string, error)

// ResultPublisher publishes plan results.
type ResultPublisher interface {
	Publish(ctx context.Context, res PlanResult) error
}

// PublisherConfig holds configuration for the result publisher.
type PublisherConfig struct {
	// Client and Topic select the Pub/Sub topic results go to.
	Client *pubsub.Client
	Topic  string

	// Send replaces the Pub/Sub topic when set.
	Send SendFunc

	// Breaker configures the circuit breaker (default: resilience.DefaultBreakerConfig).
	Breaker *resilience.BreakerConfig

	// Registry receives the breaker and call outcomes when set.
	Registry *resilience.Registry

	Logger zerolog.Logger
}

// Publisher publishes plan results to Pub/Sub behind a circuit breaker.
type Publisher struct {
	send     SendFunc
	stop     func()
	cb       *gobreaker.CircuitBreaker[string]
	registry *resilience.Registry
	logger   zerolog.Logger
}

// NewPublisher creates a result publisher.
func NewPublisher(cfg PublisherConfig) (*Publisher, error) {
	p := &Publisher{send: cfg.Send, stop: func() {}, registry: cfg.Registry, logger: cfg.Logger}
	if p.send == nil {
		if cfg.Client == nil || cfg.Topic == "" {
			return nil, errors.New("publisher needs a client and topic or a send function")
		}
		topic := cfg.Client.Publisher(cfg.Topic)
		p.send = func(ctx context.Context, msg *pubsub.Message) (string, error) {
			return topic.Publish(ctx, msg).Get(ctx)
		}
		p.stop = topic.Stop
	}

	bc := resilience.DefaultBreakerConfig("pubsub-results")
	if cfg.Breaker != nil {
		bc = *cfg.Breaker
	}
	logger := cfg.Logger
	bc.OnStateChange = func(name string, from, to gobreaker.State) {
		logger.Warn().
			Str("breaker", name).
			Str("from", from.String()).
			Str("to", to.String()).
			Msg("circuit breaker state changed")
	}
	p.cb = resilience.NewBreaker[string](bc)
	if p.registry != nil {
		p.registry.Register(p.cb)
	}
	return p, nil
}

// Publish sends res as JSON, with the request id and status as attributes.
func (p *Publisher) Publish(ctx context.Context, res PlanResult) error {
	data, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("encoding plan result: %w", err)
	}
	msg := &pubsub.Message{
		Data: data,
		Attributes: map[string]string{
			"request_id": res.RequestID,
			"status":     res.Status,
		},
	}

	id, err := p.cb.Execute(func() (string, error) {
		return p.send(ctx, msg)
	})
	if err != nil {
		if p.registry != nil {
			p.registry.RecordFailure(p.cb.Name(), err)
		}
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return fmt.Errorf("%w: %w", ErrPublisherUnavailable, err)
		}
		return fmt.Errorf("publishing plan result: %w", err)
	}

	if p.registry != nil {
		p.registry.RecordSuccess(p.cb.Name())
	}
	p.logger.Debug().
		Str("request_id", res.RequestID).
		Str("server_id", id).
		Msg("published plan result")
	return nil
}

// Stop flushes pending messages and stops the topic publisher.
func (p *Publisher) Stop() {
	p.stop()
}
