package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	"dispatch-service/internal/logging"
	"dispatch-service/internal/models"
)

// AlertQueue accepts alert requests for asynchronous dispatch.
type AlertQueue interface {
	QueueAlert(req models.SendAlertRequest) error
}

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Consumer reads alert requests from a topic and queues them for dispatch.
type Consumer struct {
	reader messageReader
	queue  AlertQueue
	logger *logging.Logger
}

func NewConsumer(brokers []string, topic, groupID string, queue AlertQueue, logger *logging.Logger) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 1,
		MaxBytes: 10e6,
	})
	return &Consumer{reader: r, queue: queue, logger: logger}
}

// Start consumes until ctx is cancelled.
func (c *Consumer) Start(ctx context.Context, wg *sync.WaitGroup) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		c.logger.Infof("Kafka consumer started")
		c.run(ctx)
		c.logger.Infof("Kafka consumer stopped")
	}()
}

func (c *Consumer) run(ctx context.Context) {
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.logger.Errorf("Read message failed: %v", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}

		req, err := DecodeAlert(msg.Value)
		if err != nil {
			c.logger.Errorf("Skipping message at offset %d: %v", msg.Offset, err)
		} else if err := c.queue.QueueAlert(req); err != nil {
			c.logger.Errorf("Failed to queue alert from offset %d: %v", msg.Offset, err)
		}

		if err := c.reader.CommitMessages(ctx, msg); err != nil && !errors.Is(err, context.Canceled) {
			c.logger.Errorf("Commit failed at offset %d: %v", msg.Offset, err)
		}
	}
}

// DecodeAlert parses one message value. Field validation is left to the
// dispatcher so both inbound paths reject bad alerts the same way.
func DecodeAlert(value []byte) (models.SendAlertRequest, error) {
	var req models.SendAlertRequest
	if err := json.Unmarshal(value, &req); err != nil {
		return req, fmt.Errorf("failed to unmarshal alert request: %w", err)
	}
	if req.RequesterID == "" {
		return req, fmt.Errorf("alert request without requesterId")
	}
	return req, nil
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}
