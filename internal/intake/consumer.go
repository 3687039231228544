package intake

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/IBM/sarama"

	"storyreel/internal/config"
	"storyreel/internal/logging"
	"storyreel/internal/services"
	"storyreel/internal/workflow"
)

// Submitter queues a render request.
type Submitter interface {
	Submit(ctx context.Context, req workflow.Request) (string, error)
}

// Handler decides what to do with one message. The returned bool reports
// whether the message offset should be committed.
type Handler struct {
	submitter Submitter
	logger    *slog.Logger
}

// NewHandler returns a Handler submitting to s.
func NewHandler(s Submitter, logger *slog.Logger) *Handler {
	return &Handler{submitter: s, logger: logging.NewComponentLogger(logger, "intake")}
}

// HandleMessage decodes and submits one message.
func (h *Handler) HandleMessage(ctx context.Context, key, value []byte) (bool, error) {
	var req workflow.Request
	if err := json.Unmarshal(value, &req); err != nil {
		logging.WarnWithContext(h.logger, "skipping undecodable render request", "intake_decode_failed",
			logging.String("key", string(key)),
			logging.Error(err),
			logging.String(logging.FieldImpact, "message dropped"),
		)
		return true, nil
	}
	if err := req.Validate(); err != nil {
		logging.WarnWithContext(h.logger, "skipping invalid render request", "intake_invalid",
			logging.String("key", string(key)),
			logging.Error(err),
			logging.String(logging.FieldImpact, "message dropped"),
		)
		return true, nil
	}
	req.Source = "kafka"
	if len(key) > 0 {
		req.Source = "kafka:" + string(key)
	}

	id, err := h.submitter.Submit(ctx, req)
	if err != nil {
		// Requests naming stories or configs that do not exist will never
		// succeed; everything else is retried.
		if errors.Is(err, services.ErrNotFound) || errors.Is(err, services.ErrValidation) {
			logging.WarnWithContext(h.logger, "render request rejected", "intake_rejected",
				logging.Error(err),
				logging.String(logging.FieldImpact, "message dropped"),
			)
			return true, nil
		}
		return false, err
	}
	h.logger.Info("render request accepted",
		logging.String(logging.FieldEventType, "intake_accepted"),
		logging.String("job_id", id),
		logging.String("source", req.Source),
	)
	return true, nil
}

// Consumer runs a Kafka consumer group over the intake topic.
type Consumer struct {
	group   sarama.ConsumerGroup
	handler *Handler
	topic   string
	groupID string
	logger  *slog.Logger
	backoff time.Duration

	wg sync.WaitGroup
}

// NewConsumer connects to the configured brokers.
func NewConsumer(cfg config.Intake, handler *Handler, logger *slog.Logger) (*Consumer, error) {
	saramaCfg := sarama.NewConfig()
	saramaCfg.Version = sarama.V3_6_0_0
	saramaCfg.Consumer.Group.Rebalance.GroupStrategies = []sarama.BalanceStrategy{sarama.NewBalanceStrategyRoundRobin()}
	saramaCfg.Consumer.Offsets.Initial = sarama.OffsetNewest
	saramaCfg.Consumer.Return.Errors = true

	group, err := sarama.NewConsumerGroup(cfg.Brokers, cfg.GroupID, saramaCfg)
	if err != nil {
		return nil, services.Wrap(services.ErrExternalService, "intake", "connect", fmt.Sprintf("brokers %v", cfg.Brokers), err)
	}
	return NewConsumerWithGroup(group, cfg, handler, logger), nil
}

// NewConsumerWithGroup wraps an existing consumer group.
func NewConsumerWithGroup(group sarama.ConsumerGroup, cfg config.Intake, handler *Handler, logger *slog.Logger) *Consumer {
	return &Consumer{
		group:   group,
		handler: handler,
		topic:   cfg.Topic,
		groupID: cfg.GroupID,
		logger:  logging.NewComponentLogger(logger, "intake"),
		backoff: 5 * time.Second,
	}
}

// Start consumes until ctx is canceled. It returns once the consume loop is
// running.
func (c *Consumer) Start(ctx context.Context) {
	c.wg.Add(2)
	go func() {
		defer c.wg.Done()
		gh := &groupHandler{handler: c.handler, logger: c.logger}
		for {
			if err := c.group.Consume(ctx, []string{c.topic}, gh); err != nil {
				if errors.Is(err, sarama.ErrClosedConsumerGroup) || ctx.Err() != nil {
					return
				}
				logging.WarnWithContext(c.logger, "kafka consume failed", "intake_consume_failed",
					logging.Error(err),
					logging.String(logging.FieldErrorHint, "check intake.brokers and broker health"),
				)
				select {
				case <-ctx.Done():
					return
				case <-time.After(c.backoff):
				}
			}
			if ctx.Err() != nil {
				return
			}
		}
	}()
	go func() {
		defer c.wg.Done()
		for err := range c.group.Errors() {
			logging.WarnWithContext(c.logger, "kafka consumer error", "intake_error", logging.Error(err))
		}
	}()
	c.logger.Info("kafka intake started",
		logging.String("topic", c.topic),
		logging.String("group", c.groupID),
	)
}

// Close shuts the consumer group down and waits for the loops to exit.
func (c *Consumer) Close() error {
	err := c.group.Close()
	c.wg.Wait()
	return err
}

type groupHandler struct {
	handler *Handler
	logger  *slog.Logger
}

func (h *groupHandler) Setup(sarama.ConsumerGroupSession) error   { return nil }
func (h *groupHandler) Cleanup(sarama.ConsumerGroupSession) error { return nil }

func (h *groupHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case message, ok := <-claim.Messages():
			if !ok || message == nil {
				return nil
			}
			mark, err := h.handler.HandleMessage(session.Context(), message.Key, message.Value)
			if mark {
				session.MarkMessage(message, "")
			}
			if err != nil {
				logging.WarnWithContext(h.logger, "render request not submitted", "intake_retry",
					logging.Int64("offset", message.Offset),
					logging.Int("partition", int(message.Partition)),
					logging.Error(err),
					logging.String(logging.FieldImpact, "session restarts and the message is redelivered"),
				)
				return err
			}
		case <-session.Context().Done():
			return nil
		}
	}
}
