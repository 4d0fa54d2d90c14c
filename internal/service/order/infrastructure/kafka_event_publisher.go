package infrastructure

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"

	"omnia/internal/pkg/mq"
	"omnia/internal/service/order/domain"
)

const eventNameHeader = "event-name"

// KafkaEventPublisher 把领域事件外发到订单事件主题。
// 消息 Key 为聚合根 ID，配合 Hash 均衡器保证同一订单的事件顺序。
type KafkaEventPublisher struct {
	writer  *kafka.Writer
	metrics *Metrics
}

func NewKafkaEventPublisher(writer *kafka.Writer, metrics *Metrics) *KafkaEventPublisher {
	return &KafkaEventPublisher{writer: writer, metrics: metrics}
}

// Publish 逐条发送事件。任一事件发送失败即返回错误，
// 由调用方决定是否重试；已发送的事件不会回滚。
func (p *KafkaEventPublisher) Publish(ctx context.Context, events []domain.DomainEvent) error {
	for _, event := range events {
		payload, err := json.Marshal(event)
		if err != nil {
			return errors.Wrapf(err, "marshal event %s", event.EventName())
		}

		header := kafka.Header{Key: eventNameHeader, Value: []byte(event.EventName())}
		if err := mq.ProduceMessage(ctx, p.writer, []byte(event.AggregateID().String()), payload, header); err != nil {
			return errors.Wrapf(err, "produce event %s for order %s", event.EventName(), event.AggregateID())
		}

		p.observe(event)
		log.Debug().
			Str("event", event.EventName()).
			Str("order_id", event.AggregateID().String()).
			Msg("domain event published")
	}
	return nil
}

func (p *KafkaEventPublisher) observe(event domain.DomainEvent) {
	if p.metrics == nil {
		return
	}
	p.metrics.EventsPublished.WithLabelValues(event.EventName()).Inc()
	if sc, ok := event.(domain.OrderStatusChanged); ok {
		p.metrics.StatusTransitions.WithLabelValues(string(sc.Context), string(sc.From), string(sc.To)).Inc()
	}
}
