package broker

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/segmentio/kafka-go"
)

// 使用するトピック名
const (
	TopicTextRequests  = "text-processing-requests"
	TopicTextResponses = "text-processing-response"
	TopicNewUser       = "new-user"
)

// Publisherは1トピックへの書き込み。
type Publisher struct {
	writer *kafka.Writer
}

// DI
func NewPublisher(brokers []string, topic string) *Publisher {
	return &Publisher{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Topic:                  topic,
			Balancer:               &kafka.LeastBytes{},
			AllowAutoTopicCreation: true,
		},
	}
}

func (p *Publisher) Publish(ctx context.Context, key string, value []byte) error {
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(key),
		Value: value,
	})
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

// Consumerは1トピックの読み取りループ。
type Consumer struct {
	reader *kafka.Reader
	logger *slog.Logger
}

// DI
func NewConsumer(brokers []string, topic string, groupID string, logger *slog.Logger) *Consumer {
	return &Consumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:  brokers,
			Topic:    topic,
			GroupID:  groupID,
			MinBytes: 1,
			MaxBytes: 10e6,
		}),
		logger: logger,
	}
}

// Runはctxが切れるまでメッセージを1件ずつhandleに渡す。
// handle内のエラーはhandle側でログする（ループは止めない）。
func (c *Consumer) Run(ctx context.Context, handle func(value []byte)) error {
	defer c.reader.Close()

	for {
		m, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, io.EOF) {
				return nil
			}
			c.logger.Error("kafka read failed", slog.String("error", err.Error()))
			return err
		}
		handle(m.Value)
	}
}
