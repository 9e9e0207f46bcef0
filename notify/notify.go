// Package notify delivers email-style notifications (welcome mail, intake
// confirmation, access requests) to whatever sends the actual mail.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
	"github.com/validtech/valid_backend/config"
)

const (
	BackendPubSub = "pubsub"
	BackendKafka  = "kafka"
	BackendLog    = "log"
)

type Message struct {
	Kind          string          `json:"kind"`
	Recipient     string          `json:"recipient"`
	ReferenceId   string          `json:"reference_id,omitempty"`
	CorrelationId string          `json:"correlation_id,omitempty"`
	Payload       json.RawMessage `json:"payload,omitempty"`
}

func (m Message) attributes() map[string]string {
	attrs := map[string]string{"kind": m.Kind}
	if m.CorrelationId != "" {
		attrs["correlation_id"] = m.CorrelationId
	}
	return attrs
}

// Notifier hands a message off and returns the backend's message id.
type Notifier interface {
	Notify(ctx context.Context, msg Message) (string, error)
}

// New builds the notifier named by NOTIFY_BACKEND (default pubsub).
func New() (Notifier, error) {
	switch strings.ToLower(strings.TrimSpace(os.Getenv("NOTIFY_BACKEND"))) {
	case "", BackendPubSub:
		return PubSubNotifier{}, nil
	case BackendKafka:
		brokers := strings.Split(os.Getenv("KAFKA_BROKERS"), ",")
		topic := strings.TrimSpace(os.Getenv("KAFKA_TOPIC"))
		if strings.TrimSpace(brokers[0]) == "" || topic == "" {
			return nil, fmt.Errorf("KAFKA_BROKERS and KAFKA_TOPIC are required for the kafka backend")
		}
		return NewKafkaNotifier(brokers, topic), nil
	case BackendLog:
		return LogNotifier{Logger: config.GetLogger()}, nil
	default:
		return nil, fmt.Errorf("unknown NOTIFY_BACKEND %q", os.Getenv("NOTIFY_BACKEND"))
	}
}

// PubSubNotifier publishes to PUBSUB_TOPIC.
type PubSubNotifier struct{}

func (PubSubNotifier) Notify(ctx context.Context, msg Message) (string, error) {
	data, err := json.Marshal(msg)
	if err != nil {
		return "", err
	}
	return config.PublishPubSub(ctx, data, msg.attributes())
}

type KafkaNotifier struct {
	writer *kafka.Writer
}

func NewKafkaNotifier(brokers []string, topic string) *KafkaNotifier {
	for i := range brokers {
		brokers[i] = strings.TrimSpace(brokers[i])
	}
	return &KafkaNotifier{writer: &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		AllowAutoTopicCreation: true,
		RequiredAcks:           kafka.RequireAll,
		MaxAttempts:            3,
		WriteBackoffMin:        100 * time.Millisecond,
		WriteBackoffMax:        time.Second,
	}}
}

func (k *KafkaNotifier) Notify(ctx context.Context, msg Message) (string, error) {
	data, err := json.Marshal(msg)
	if err != nil {
		return "", err
	}
	id := uuid.NewString()
	headers := []kafka.Header{{Key: "message_id", Value: []byte(id)}}
	for key, v := range msg.attributes() {
		headers = append(headers, kafka.Header{Key: key, Value: []byte(v)})
	}
	err = k.writer.WriteMessages(ctx, kafka.Message{
		Key:     []byte(msg.Recipient),
		Value:   data,
		Headers: headers,
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

func (k *KafkaNotifier) Close() error {
	return k.writer.Close()
}

// LogNotifier only logs; for local development.
type LogNotifier struct {
	Logger *logrus.Logger
}

func (l LogNotifier) Notify(ctx context.Context, msg Message) (string, error) {
	id := uuid.NewString()
	if l.Logger != nil {
		l.Logger.WithFields(logrus.Fields{
			"field":          "Notify",
			"kind":           msg.Kind,
			"recipient":      msg.Recipient,
			"reference_id":   msg.ReferenceId,
			"correlation_id": msg.CorrelationId,
			"message_id":     id,
		}).Info("notification")
	}
	return id, nil
}
