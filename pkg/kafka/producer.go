package kafka

import (
	"context"
	"encoding/json"

	"problem-search-go/internal/config"
	"problem-search-go/pkg/events"
	"problem-search-go/pkg/log"

	"github.com/segmentio/kafka-go"
)

// NewWriter 创建写入指定主题的生产者。按消息 key 哈希分区，同一道题的事件保持顺序。
func NewWriter(brokers, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(SplitBrokers(brokers)...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
	}
}

// Publisher 发布题目生命周期事件。
type Publisher struct {
	writer MessageWriter
}

// NewPublisher 创建题目事件的发布者。
func NewPublisher(cfg config.KafkaConfig) *Publisher {
	log.Info("Kafka 生产者初始化成功")
	return &Publisher{writer: NewWriter(cfg.Brokers, cfg.Topic)}
}

// PublishProblemEvent 发送一个题目事件，消息 key 为事件对应的 IndexKey。
func (p *Publisher) PublishProblemEvent(ctx context.Context, event events.ProblemEvent) error {
	eventBytes, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.Key()),
		Value: eventBytes,
	})
}

// Close 刷出缓冲中的消息并关闭生产者。
func (p *Publisher) Close() error {
	if c, ok := p.writer.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}
