// Package kafka 提供了与 Kafka 消息队列交互的功能：消费题目事件并同步到索引，以及发布题目事件。
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"problem-search-go/internal/config"
	"problem-search-go/internal/metrics"
	"problem-search-go/internal/pipeline"
	"problem-search-go/pkg/events"
	"problem-search-go/pkg/log"
	"problem-search-go/pkg/searchindex"

	"github.com/segmentio/kafka-go"
)

const (
	defaultMaxAttempts  = 3
	defaultRetryBackoff = 500 * time.Millisecond

	headerError           = "x-error"
	headerOriginTopic     = "x-origin-topic"
	headerOriginPartition = "x-origin-partition"
	headerOriginOffset    = "x-origin-offset"
)

// EventProcessor 处理一条题目事件，由 *pipeline.Syncer 实现。
// 这样 Kafka 消费者不依赖具体的同步实现。
type EventProcessor interface {
	Process(ctx context.Context, event events.ProblemEvent) error
}

// MessageWriter 是写消息的能力，*kafka.Writer 满足该接口。
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// messageReader 是 *kafka.Reader 中消费者需要的部分。
type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Consumer 从 Kafka 读取题目事件并交给 EventProcessor。
type Consumer struct {
	reader       messageReader
	topic        string
	processor    EventProcessor
	attempts     AttemptCounter
	deadLetter   MessageWriter
	maxAttempts  int64
	retryBackoff time.Duration
}

// NewConsumer 创建一个消费者。attempts 和 deadLetter 可以为 nil：
// 没有计数器时只在进程内计数，没有死信队列时失败消息只记录日志后提交。
func NewConsumer(cfg config.KafkaConfig, processor EventProcessor, attempts AttemptCounter, deadLetter MessageWriter) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  SplitBrokers(cfg.Brokers),
		Topic:    cfg.Topic,
		GroupID:  cfg.GroupID,
		MinBytes: 1,    // 事件很小，不等待攒批
		MaxBytes: 10e6, // 10MB
	})
	return newConsumer(r, cfg.Topic, cfg.MaxAttempts, processor, attempts, deadLetter)
}

func newConsumer(r messageReader, topic string, maxAttempts int64, processor EventProcessor, attempts AttemptCounter, deadLetter MessageWriter) *Consumer {
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}
	return &Consumer{
		reader:       r,
		topic:        topic,
		processor:    processor,
		attempts:     attempts,
		deadLetter:   deadLetter,
		maxAttempts:  maxAttempts,
		retryBackoff: defaultRetryBackoff,
	}
}

// SplitBrokers 把逗号分隔的 broker 列表拆开。
func SplitBrokers(brokers string) []string {
	var out []string
	for _, b := range strings.Split(brokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}

// Run 循环消费直到 ctx 被取消。取消时返回 nil，读取失败时返回错误。
func (c *Consumer) Run(ctx context.Context) error {
	log.Infof("Kafka 消费者已启动，正在监听主题 '%s'", c.topic)
	defer func() {
		if err := c.reader.Close(); err != nil {
			log.Errorf("关闭 Kafka 消费者失败: %v", err)
		}
	}()

	for {
		m, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				log.Info("Kafka 消费者已停止")
				return nil
			}
			log.Error("从 Kafka 读取消息失败", err)
			return err
		}

		if !c.handle(ctx, m) {
			// 只有 ctx 被取消时才会走到这里，offset 不提交，重启后重新投递
			continue
		}
		if err := c.reader.CommitMessages(ctx, m); err != nil {
			log.Errorf("提交 Kafka 消息 offset 失败: %v", err)
		}
	}
}

// handle 处理一条消息，返回是否应该提交 offset。
func (c *Consumer) handle(ctx context.Context, m kafka.Message) bool {
	var event events.ProblemEvent
	if err := json.Unmarshal(m.Value, &event); err != nil {
		// 消息格式错误，直接提交，避免阻塞队列
		log.Errorf("无法解析 Kafka 消息: %v, value: %s", err, string(m.Value))
		metrics.SyncEventsTotal.WithLabelValues("unknown", metrics.ResultMalformed).Inc()
		c.sendToDeadLetter(ctx, m, err)
		return true
	}

	key := attemptsKey(m)
	var local int64
	for {
		err := c.processor.Process(ctx, event)
		if err == nil {
			metrics.SyncEventsTotal.WithLabelValues(event.Type, metrics.ResultOK).Inc()
			c.resetAttempts(ctx, key)
			return true
		}

		switch {
		case errors.Is(err, searchindex.ErrNotFound):
			// 删除的题目不在索引中，说明增量同步已与数据库不一致，重试无意义
			log.Errorw("删除的题目不在索引中, 转入死信队列", "key", event.Key(), "error", err)
			metrics.SyncEventsTotal.WithLabelValues(event.Type, metrics.ResultDeadLetter).Inc()
			c.sendToDeadLetter(ctx, m, err)
			c.resetAttempts(ctx, key)
			return true
		case errors.Is(err, pipeline.ErrUnknownEvent), errors.Is(err, pipeline.ErrMissingProblem):
			log.Errorf("无法处理的题目事件: %v", err)
			metrics.SyncEventsTotal.WithLabelValues(event.Type, metrics.ResultDeadLetter).Inc()
			c.sendToDeadLetter(ctx, m, err)
			return true
		}

		local++
		attempts := c.incrAttempts(ctx, key, local)
		log.Errorf("处理题目事件失败: %s %s, 第 %d 次, Error: %v", event.Type, event.Key(), attempts, err)
		if attempts >= c.maxAttempts {
			log.Errorw("题目事件多次失败，转入死信队列并提交 offset",
				"key", event.Key(), "attempts", attempts,
				"topic", m.Topic, "partition", m.Partition, "offset", m.Offset)
			metrics.SyncEventsTotal.WithLabelValues(event.Type, metrics.ResultDeadLetter).Inc()
			c.sendToDeadLetter(ctx, m, err)
			c.resetAttempts(ctx, key)
			return true
		}

		metrics.SyncEventsTotal.WithLabelValues(event.Type, metrics.ResultRetry).Inc()
		select {
		case <-ctx.Done():
			return false
		case <-time.After(c.retryBackoff):
		}
	}
}

func attemptsKey(m kafka.Message) string {
	return fmt.Sprintf("kafka:attempts:%s:%d:%d", m.Topic, m.Partition, m.Offset)
}

// incrAttempts 优先使用 Redis 计数，使重启前的失败次数也被计入；Redis 异常时退回进程内计数。
func (c *Consumer) incrAttempts(ctx context.Context, key string, local int64) int64 {
	if c.attempts == nil {
		return local
	}
	n, err := c.attempts.Incr(ctx, key)
	if err != nil {
		log.Warnf("Redis 计数失败, 使用本地计数: %v", err)
		return local
	}
	return max(n, local)
}

func (c *Consumer) resetAttempts(ctx context.Context, key string) {
	if c.attempts == nil {
		return
	}
	if err := c.attempts.Reset(ctx, key); err != nil {
		log.Warnf("清理失败计数失败: %v", err)
	}
}

func (c *Consumer) sendToDeadLetter(ctx context.Context, m kafka.Message, cause error) {
	if c.deadLetter == nil {
		return
	}
	dlq := kafka.Message{
		Key:   m.Key,
		Value: m.Value,
		Headers: []kafka.Header{
			{Key: headerError, Value: []byte(cause.Error())},
			{Key: headerOriginTopic, Value: []byte(m.Topic)},
			{Key: headerOriginPartition, Value: []byte(strconv.Itoa(m.Partition))},
			{Key: headerOriginOffset, Value: []byte(strconv.FormatInt(m.Offset, 10))},
		},
	}
	if err := c.deadLetter.WriteMessages(ctx, dlq); err != nil {
		log.Errorf("写入死信队列失败, offset %d: %v", m.Offset, err)
	}
}
