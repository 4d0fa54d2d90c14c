package port

import "context"

// OrderNumberGenerator 是外部订单号序列生成器的端口。
// 订单号必须在 Order 创建之前生成，对聚合而言是不透明的必填字符串。
type OrderNumberGenerator interface {
	Next(ctx context.Context) (string, error)
}
