// Package feed is the durable message-event stream. Every persisted
// message is published here best-effort so downstream consumers (the
// archiver's conversation and unread-count projections) can follow the
// message flow without sitting on the delivery path. The feed is not a
// live-broadcast backbone: real-time fan-out happens in-process.
package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/rish4987/chat-app-backend/pkg/model"
)

type Producer struct {
	writer *kafka.Writer
}

func NewProducer(brokers []string, topic string) *Producer {
	return &Producer{
		writer: &kafka.Writer{
			Addr:     kafka.TCP(brokers...),
			Topic:    topic,
			Balancer: &kafka.Hash{},
		},
	}
}

// Publish writes the message to the feed, keyed by chat id so events for
// one chat stay ordered within a partition.
func (p *Producer) Publish(ctx context.Context, msg *model.Message) error {
	value, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal feed event: %w", err)
	}
	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(msg.ChatID),
		Value: value,
		Time:  time.Now(),
	})
	if err != nil {
		return fmt.Errorf("write feed event: %w", err)
	}
	return nil
}

func (p *Producer) Close() error {
	return p.writer.Close()
}

type Consumer struct {
	reader *kafka.Reader
}

func NewConsumer(brokers []string, topic, groupID string) *Consumer {
	return &Consumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:  brokers,
			Topic:    topic,
			GroupID:  groupID,
			MinBytes: 10e3,
			MaxBytes: 10e6,
		}),
	}
}

// Next blocks until the next message event arrives.
func (c *Consumer) Next(ctx context.Context) (*model.Message, error) {
	raw, err := c.reader.ReadMessage(ctx)
	if err != nil {
		return nil, err
	}
	var msg model.Message
	if err := json.Unmarshal(raw.Value, &msg); err != nil {
		return nil, fmt.Errorf("unmarshal feed event: %w", err)
	}
	return &msg, nil
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}
