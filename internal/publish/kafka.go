// Package publish fans published snapshots out to Kafka.
package publish

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"

	"github.com/tejusbharadwaj/smardexporter/internal/models"
	"github.com/tejusbharadwaj/smardexporter/internal/snapshot"
)

// MessageWriter is the subset of *kafka.Writer the publisher needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Message is the JSON value of one published sample.
type Message struct {
	CycleID    string    `json:"cycle_id"`
	ObservedAt time.Time `json:"observed_at"`
	models.MetricSample
}

// KafkaPublisher writes one message per sample, keyed by module id.
type KafkaPublisher struct {
	writer MessageWriter
	logger logrus.FieldLogger
}

// NewKafkaPublisher creates a publisher writing to topic on brokers.
func NewKafkaPublisher(brokers []string, topic string, logger logrus.FieldLogger) (*KafkaPublisher, error) {
	if len(brokers) == 0 {
		return nil, errors.New("at least one broker is required")
	}
	if strings.TrimSpace(topic) == "" {
		return nil, errors.New("kafka topic must not be empty")
	}
	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 50 * time.Millisecond,
	}
	return NewKafkaPublisherWithWriter(w, logger), nil
}

// NewKafkaPublisherWithWriter wraps an existing writer.
func NewKafkaPublisherWithWriter(w MessageWriter, logger logrus.FieldLogger) *KafkaPublisher {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &KafkaPublisher{writer: w, logger: logger}
}

// Publish writes every sample of snap. An empty snapshot writes nothing.
func (p *KafkaPublisher) Publish(ctx context.Context, snap *snapshot.Snapshot) error {
	if snap == nil || len(snap.Samples) == 0 {
		return nil
	}

	msgs := make([]kafka.Message, 0, len(snap.Samples))
	for _, s := range snap.Samples {
		value, err := json.Marshal(Message{CycleID: snap.CycleID, ObservedAt: snap.ObservedAt, MetricSample: s})
		if err != nil {
			return fmt.Errorf("encode sample %d: %w", s.ID, err)
		}
		msgs = append(msgs, kafka.Message{
			Key:   []byte(strconv.Itoa(s.ID)),
			Value: value,
			Time:  time.Unix(s.TimestampSeconds, 0),
		})
	}

	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("write %d messages: %w", len(msgs), err)
	}
	p.logger.WithFields(logrus.Fields{
		"cycle_id": snap.CycleID,
		"messages": len(msgs),
	}).Debug("Published snapshot to kafka")
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
