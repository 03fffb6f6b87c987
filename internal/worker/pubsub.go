package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/pubsub/v2"
	"github.com/rs/zerolog"

	"github.com/breatheroute/raptor/internal/search"
)

// Outcome tells the subscriber what to do with a message.
type Outcome int

const (
	// Ack removes the message.
	Ack Outcome = iota
	// Nack asks for redelivery.
	Nack
)

func (o Outcome) String() string {
	if o == Ack {
		return "ack"
	}
	return "nack"
}

// Handler plans the jobs carried by Pub/Sub messages.
type Handler struct {
	planner   Planner
	batch     *BatchPlanner
	publisher ResultPublisher
	timeout   time.Duration
	logger    zerolog.Logger
}

// HandlerConfig holds configuration for the plan handler.
type HandlerConfig struct {
	Planner   Planner
	Batch     BatchConfig
	Publisher ResultPublisher
	Logger    zerolog.Logger
}

// NewHandler creates a plan handler.
func NewHandler(cfg HandlerConfig) *Handler {
	batch := cfg.Batch.withDefaults()
	return &Handler{
		planner: cfg.Planner,
		batch: NewBatchPlanner(BatchPlannerConfig{
			Planner: cfg.Planner,
			Config:  batch,
			Logger:  cfg.Logger,
		}),
		publisher: cfg.Publisher,
		timeout:   batch.Timeout,
		logger:    cfg.Logger,
	}
}

// Batch returns the batch planner used for plan_batch jobs.
func (h *Handler) Batch() *BatchPlanner {
	return h.batch
}

// Handle processes one message body. Undecodable messages are nacked and
// unknown job types acked. A request rejected as invalid is answered with an
// error result and acked; other failures are nacked for redelivery.
func (h *Handler) Handle(ctx context.Context, data []byte) Outcome {
	var msg PlanMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		h.logger.Error().Err(err).Msg("failed to parse message")
		return Nack
	}

	var err error
	switch msg.JobType {
	case JobPlan:
		err = h.handlePlan(ctx, msg)
	case JobPlanBatch:
		err = h.handleBatch(ctx, msg)
	default:
		h.logger.Warn().Str("job_type", msg.JobType).Msg("unknown job type")
		return Ack
	}

	if err != nil {
		h.logger.Error().Err(err).Str("job_type", msg.JobType).Msg("job failed")
		return Nack
	}
	return Ack
}

func (h *Handler) handlePlan(ctx context.Context, msg PlanMessage) error {
	if msg.Request == nil {
		return h.publisher.Publish(ctx, NewErrorResult("", fmt.Errorf("%w: plan job without request", search.ErrInvalidRequest)))
	}

	reqCtx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	resp, err := h.planner.Route(reqCtx, *msg.Request)
	if err != nil && !answered(err) {
		return err
	}
	if err != nil {
		h.logger.Warn().Err(err).Str("request_id", msg.Request.RequestID).Msg("answering failed plan request")
	}
	return h.publisher.Publish(ctx, resultFor(*msg.Request, resp, err))
}

func (h *Handler) handleBatch(ctx context.Context, msg PlanMessage) error {
	result := h.batch.Run(ctx, msg.Requests)

	var errs []error
	for _, res := range result.Results {
		if err := h.publisher.Publish(ctx, res); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// PubSubHandler receives plan jobs from a Pub/Sub subscription.
type PubSubHandler struct {
	client           *pubsub.Client
	subscriber       *pubsub.Subscriber
	subscriptionName string
	handler          *Handler
	logger           zerolog.Logger
}

// PubSubConfig holds configuration for the Pub/Sub handler.
type PubSubConfig struct {
	Client           *pubsub.Client
	SubscriptionName string
	MaxOutstanding   int
	Handler          *Handler
	Logger           zerolog.Logger
}

// NewPubSubHandler creates a new Pub/Sub handler.
func NewPubSubHandler(cfg PubSubConfig) *PubSubHandler {
	subscriber := cfg.Client.Subscriber(cfg.SubscriptionName)

	maxOutstanding := cfg.MaxOutstanding
	if maxOutstanding <= 0 {
		maxOutstanding = 10
	}
	subscriber.ReceiveSettings.MaxOutstandingMessages = maxOutstanding
	subscriber.ReceiveSettings.MaxExtension = 10 * time.Minute

	return &PubSubHandler{
		client:           cfg.Client,
		subscriber:       subscriber,
		subscriptionName: cfg.SubscriptionName,
		handler:          cfg.Handler,
		logger:           cfg.Logger,
	}
}

// Start processes messages until ctx is cancelled.
func (h *PubSubHandler) Start(ctx context.Context) error {
	h.logger.Info().
		Str("subscription", h.subscriptionName).
		Msg("starting pubsub handler")

	return h.subscriber.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		h.handleMessage(ctx, msg)
	})
}

func (h *PubSubHandler) handleMessage(ctx context.Context, msg *pubsub.Message) {
	startTime := time.Now()

	logger := h.logger.With().
		Str("message_id", msg.ID).
		Str("publish_time", msg.PublishTime.Format(time.RFC3339)).
		Logger()

	outcome := h.handler.Handle(ctx, msg.Data)
	if outcome == Ack {
		msg.Ack()
	} else {
		msg.Nack()
	}

	logger.Info().
		Str("outcome", outcome.String()).
		Dur("duration", time.Since(startTime)).
		Msg("message handled")
}
