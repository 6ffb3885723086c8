package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

// MessageWriter is the part of kafka.Writer the publisher needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher 封装了向 Kafka 发送审计事件的逻辑。
type KafkaPublisher struct {
	writer MessageWriter
}

// NewKafkaPublisher 为指定主题创建 writer。主题不存在时由 broker 自动创建。
func NewKafkaPublisher(brokers []string, topic string) (*KafkaPublisher, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("未配置 Kafka brokers")
	}
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		BatchTimeout:           10 * time.Millisecond,
		BatchSize:              100,
		AllowAutoTopicCreation: true,
	}
	return &KafkaPublisher{writer: writer}, nil
}

// Publish 将事件序列化为 JSON 并发送，以文档路径作为消息键保证同一文档的事件有序。
func (p *KafkaPublisher) Publish(ctx context.Context, e Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to marshal audit event: %w", err)
	}
	key := e.Document
	if key == "" {
		key = e.Tool
	}
	if err := p.writer.WriteMessages(ctx, kafka.Message{Key: []byte(key), Value: data}); err != nil {
		return fmt.Errorf("failed to write message to kafka: %w", err)
	}
	return nil
}

// Close 关闭底层的 writer 连接。
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
