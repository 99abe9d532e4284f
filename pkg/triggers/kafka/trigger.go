// Package kafka provides a Kafka topic trigger backed by a consumer group.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/IBM/sarama"

	"github.com/taskmaster-io/taskmaster/pkg/protocol"
)

const (
	kafkaSessionTimeout    = 10 * time.Second
	kafkaHeartbeatInterval = 3 * time.Second
	kafkaRetryInterval     = 5 * time.Second
)

type Trigger struct {
	ID            string
	WorkflowID    string
	Topic         string
	ConsumerGroup string
	Brokers       []string
	Enabled       bool

	mu       sync.Mutex
	running  bool
	cancel   context.CancelFunc
	consumer sarama.ConsumerGroup
	callback protocol.TriggerCallback
	logger   *slog.Logger
}

func NewTrigger(config map[string]any, logger *slog.Logger) (*Trigger, error) {
	id, _ := config["id"].(string)
	workflowID, _ := config["workflow_id"].(string)
	topic, _ := config["topic"].(string)

	consumerGroup, _ := config["consumer_group"].(string)
	if consumerGroup == "" {
		consumerGroup = "taskmaster-triggers-" + id
	}

	// Brokers come from config or environment
	brokersStr, _ := config["brokers"].(string)
	if brokersStr == "" {
		brokersStr = os.Getenv("KAFKA_BROKERS")
		if brokersStr == "" {
			brokersStr = "localhost:9092"
		}
	}

	brokers := strings.Split(brokersStr, ",")
	for i, broker := range brokers {
		brokers[i] = strings.TrimSpace(broker)
	}

	enabled := true
	if enabledVal, ok := config["enabled"].(bool); ok {
		enabled = enabledVal
	}

	trigger := &Trigger{
		ID:            id,
		WorkflowID:    workflowID,
		Topic:         topic,
		ConsumerGroup: consumerGroup,
		Brokers:       brokers,
		Enabled:       enabled,
		logger: logger.With(
			"module", "kafka_trigger",
			"trigger_id", id,
			"topic", topic,
			"consumer_group", consumerGroup,
		),
	}

	err := trigger.Validate()
	if err != nil {
		return nil, err
	}

	return trigger, nil
}

func (t *Trigger) Validate() error {
	if t.ID == "" {
		return errors.New("kafka trigger ID is required")
	}

	if t.Topic == "" {
		return errors.New("kafka trigger topic is required")
	}

	if len(t.Brokers) == 0 {
		return errors.New("kafka trigger brokers are required")
	}

	return nil
}

func (t *Trigger) Start(ctx context.Context, callback protocol.TriggerCallback) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.Enabled {
		t.logger.InfoContext(ctx, "Kafka trigger is disabled")

		return nil
	}

	if t.running {
		return nil
	}

	t.logger.InfoContext(ctx, "Starting Kafka trigger")
	t.callback = callback

	config := sarama.NewConfig()
	config.Version = sarama.V2_6_0_0
	config.Consumer.Group.Session.Timeout = kafkaSessionTimeout
	config.Consumer.Group.Heartbeat.Interval = kafkaHeartbeatInterval
	config.Consumer.Offsets.Initial = sarama.OffsetNewest
	config.Consumer.Return.Errors = true

	consumer, err := sarama.NewConsumerGroup(t.Brokers, t.ConsumerGroup, config)
	if err != nil {
		return fmt.Errorf("failed to create Kafka consumer group: %w", err)
	}

	consumeCtx, cancel := context.WithCancel(ctx)

	t.consumer = consumer
	t.cancel = cancel
	t.running = true

	go t.consuming(consumeCtx)
	go t.monitorConsumerErrors(consumeCtx, consumer)

	return nil
}

func (t *Trigger) consuming(ctx context.Context) {
	handler := &consumerGroupHandler{trigger: t}

	for {
		select {
		case <-ctx.Done():
			t.logger.InfoContext(ctx, "Kafka trigger context cancelled")

			return
		default:
			err := t.consumer.Consume(ctx, []string{t.Topic}, handler)
			if err != nil {
				if errors.Is(err, sarama.ErrClosedConsumerGroup) {
					return
				}

				t.logger.ErrorContext(ctx, "Kafka consumer error", "error", err)
				time.Sleep(kafkaRetryInterval)
			}
		}
	}
}

func (t *Trigger) monitorConsumerErrors(ctx context.Context, consumer sarama.ConsumerGroup) {
	for {
		select {
		case err := <-consumer.Errors():
			if err != nil {
				t.logger.ErrorContext(ctx, "Kafka consumer group error", "error", err)
			}
		case <-ctx.Done():
			return
		}
	}
}

// Stop cancels the consume loop and closes the consumer group. Stopping a
// trigger that is not running is a no-op.
func (t *Trigger) Stop(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.running {
		return nil
	}

	t.logger.InfoContext(ctx, "Stopping Kafka trigger")

	t.cancel()
	t.running = false

	err := t.consumer.Close()
	t.consumer = nil

	if err != nil {
		return fmt.Errorf("failed to close Kafka consumer: %w", err)
	}

	return nil
}

type consumerGroupHandler struct {
	trigger *Trigger
}

func (h *consumerGroupHandler) Setup(session sarama.ConsumerGroupSession) error {
	h.trigger.logger.InfoContext(session.Context(), "Kafka consumer group session started")

	return nil
}

func (h *consumerGroupHandler) Cleanup(session sarama.ConsumerGroupSession) error {
	h.trigger.logger.InfoContext(session.Context(), "Kafka consumer group session ended")

	return nil
}

func (h *consumerGroupHandler) ConsumeClaim(
	session sarama.ConsumerGroupSession,
	claim sarama.ConsumerGroupClaim,
) error {
	ctx := session.Context()

	for message := range claim.Messages() {
		h.trigger.logger.DebugContext(ctx, "Received Kafka message",
			"topic", message.Topic,
			"partition", message.Partition,
			"offset", message.Offset,
		)

		var (
			messageData any
			messageKey  string
		)

		if message.Key != nil {
			messageKey = string(message.Key)
		}

		if len(message.Value) > 0 {
			var jsonData any

			err := json.Unmarshal(message.Value, &jsonData)
			if err != nil {
				messageData = map[string]any{
					"raw_message": string(message.Value),
				}
			} else {
				messageData = jsonData
			}
		}

		headers := make(map[string]string)
		for _, header := range message.Headers {
			headers[string(header.Key)] = string(header.Value)
		}

		triggerData := map[string]any{
			"topic":     message.Topic,
			"partition": message.Partition,
			"offset":    message.Offset,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"key":       messageKey,
			"message":   messageData,
			"headers":   headers,
		}

		go func(data map[string]any) {
			err := h.trigger.callback(ctx, data)
			if err != nil {
				h.trigger.logger.ErrorContext(ctx, "Error executing workflow for Kafka trigger", "error", err)
			}
		}(triggerData)

		session.MarkMessage(message, "")
	}

	return nil
}
