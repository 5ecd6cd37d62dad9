package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"bikeshare-backend/internal/domain"
	"bikeshare-backend/internal/logger"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

const HandoffEventType = "bike.handed_off"

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// HandoffEvent is the payload written to the hand-off topic.
type HandoffEvent struct {
	Type           string    `json:"type"`
	NotificationID int64     `json:"notification_id"`
	EntryID        int64     `json:"waiting_list_entry_id"`
	CustomerID     uuid.UUID `json:"customer_id"`
	BikeID         int64     `json:"bike_id"`
	Message        string    `json:"message"`
	SentAt         time.Time `json:"sent_at"`
}

// KafkaChannel publishes hand-off events keyed by bike id so every event for
// one bike lands on the same partition.
type KafkaChannel struct {
	writer messageWriter
	topic  string
}

func NewKafkaChannel(brokers []string, topic string) *KafkaChannel {
	return newKafkaChannel(&kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
	}, topic)
}

func newKafkaChannel(w messageWriter, topic string) *KafkaChannel {
	return &KafkaChannel{writer: w, topic: topic}
}

func (c *KafkaChannel) Name() string { return "kafka" }

func (c *KafkaChannel) Deliver(ctx context.Context, note domain.Notification, _ *domain.Customer) error {
	body, err := json.Marshal(HandoffEvent{
		Type:           HandoffEventType,
		NotificationID: note.ID,
		EntryID:        note.EntryID,
		CustomerID:     note.CustomerID,
		BikeID:         note.BikeID,
		Message:        note.Message,
		SentAt:         note.SentAt,
	})
	if err != nil {
		return fmt.Errorf("marshal hand-off event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(strconv.FormatInt(note.BikeID, 10)),
		Value: body,
		Headers: []kafka.Header{
			{Key: "event-type", Value: []byte(HandoffEventType)},
		},
	}

	logger.ExternalServiceCall("Kafka", "WriteMessages", "topic", c.topic, "notificationID", note.ID)
	err = c.writer.WriteMessages(ctx, msg)
	logger.ExternalServiceResult("Kafka", "WriteMessages", err, "topic", c.topic)
	if err != nil {
		return fmt.Errorf("kafka publish to %s: %w", c.topic, err)
	}
	return nil
}

func (c *KafkaChannel) Close() error {
	return c.writer.Close()
}
