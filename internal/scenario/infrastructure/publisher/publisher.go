// Package publisher 提供领域事件发布实现：Kafka 与仅日志两种
package publisher

import (
	"context"

	"github.com/segmentio/kafka-go"
	"github.com/wyfcoding/scenariosim/pkg/logger"
)

// MessageSender pkg/mq.KafkaProducer 满足该接口
type MessageSender interface {
	SendMessage(ctx context.Context, topic string, key string, value any, headers ...kafka.Header) error
}

// KafkaEventPublisher 以事件类型为 topic（可加前缀）写入 Kafka
type KafkaEventPublisher struct {
	sender      MessageSender
	topicPrefix string
}

// NewKafkaEventPublisher topicPrefix 可为空
func NewKafkaEventPublisher(sender MessageSender, topicPrefix string) *KafkaEventPublisher {
	return &KafkaEventPublisher{sender: sender, topicPrefix: topicPrefix}
}

// Publish 实现 domain.EventPublisher
func (p *KafkaEventPublisher) Publish(ctx context.Context, topic, key string, event any) error {
	headers := []kafka.Header{{Key: "event_type", Value: []byte(topic)}}
	if traceID := logger.TraceID(ctx); traceID != "" {
		headers = append(headers, kafka.Header{Key: "trace_id", Value: []byte(traceID)})
	}
	return p.sender.SendMessage(ctx, p.topicPrefix+topic, key, event, headers...)
}

// LogEventPublisher 未配置 Kafka 时使用，只记录日志
type LogEventPublisher struct{}

// NewLogEventPublisher 创建日志发布器
func NewLogEventPublisher() *LogEventPublisher { return &LogEventPublisher{} }

// Publish 实现 domain.EventPublisher
func (LogEventPublisher) Publish(ctx context.Context, topic, key string, event any) error {
	logger.Info(ctx, "domain event", "topic", topic, "key", key, "event", event)
	return nil
}
