package port

import (
	"context"

	"omnia/internal/service/order/domain"
)

// EventPublisher 是领域事件外发通道的端口。
// 实现方必须保证同一订单的事件不被乱序投递；
// 至少一次投递等更强的语义由外部事件通道自己负责。
type EventPublisher interface {
	Publish(ctx context.Context, events []domain.DomainEvent) error
}
