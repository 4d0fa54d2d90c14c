package domain

import (
	"context"

	"github.com/google/uuid"
)

// OrderRepository 定义了订单聚合的持久化接口。
// 它位于领域层，但由基础设施层实现。
type OrderRepository interface {
	// Save 保存一个订单聚合（用于创建或更新）。
	// 更新时必须基于版本号做乐观并发校验：版本过期返回 ErrConcurrencyConflict，
	// 由外部驱动方决定是否重试，本核心不做内部重试。
	Save(ctx context.Context, order *Order) error

	// FindByID 根据ID加载订单聚合，不存在返回 ErrOrderNotFound。
	FindByID(ctx context.Context, id uuid.UUID) (*Order, error)

	// FindByNumber 根据业务订单号加载订单聚合。
	// 订单号的全局唯一性由存储层的唯一约束保证，本核心只假设而不自行校验。
	FindByNumber(ctx context.Context, orderNumber string) (*Order, error)
}
