package domain

import (
	"time"

	"github.com/google/uuid"
)

// DomainEvent 是描述"聚合上已经发生的事实"的不可变事件。
// 事件先缓存在聚合内部，持久化成功后由外部驱动方一次性取走并投递，
// 同一订单的事件投递顺序不得被打乱。
type DomainEvent interface {
	// EventName 返回事件类型名，用作消息路由的依据。
	EventName() string
	// AggregateID 返回所属订单的ID，投递时作为分区键保证单聚合有序。
	AggregateID() uuid.UUID
	// OccurredAt 返回事件发生时刻。
	OccurredAt() time.Time
}

// eventBase 承载所有事件共有的订单ID与发生时刻。
type eventBase struct {
	OrderID uuid.UUID `json:"orderId"`
	At      time.Time `json:"occurredAt"`
}

func newEventBase(orderID uuid.UUID) eventBase {
	return eventBase{OrderID: orderID, At: time.Now()}
}

func (e eventBase) AggregateID() uuid.UUID { return e.OrderID }
func (e eventBase) OccurredAt() time.Time  { return e.At }

// OrderCreated 在订单聚合创建成功时发布。
type OrderCreated struct {
	eventBase
	OrderNumber string          `json:"orderNumber"`
	CustomerID  string          `json:"customerId"`
	Context     BusinessContext `json:"context"`
}

func (OrderCreated) EventName() string { return "order.created" }

// OrderItemAdded 在订单新增一条行项目时发布。
type OrderItemAdded struct {
	eventBase
	ProductID   string `json:"productId"`
	ProductName string `json:"productName"`
	Quantity    int    `json:"quantity"`
	UnitPrice   Money  `json:"unitPrice"`
}

func (OrderItemAdded) EventName() string { return "order.item_added" }

// OrderItemQuantityChanged 在已有行项目数量变化（含同商品合并）时发布。
type OrderItemQuantityChanged struct {
	eventBase
	ProductID   string `json:"productId"`
	OldQuantity int    `json:"oldQuantity"`
	NewQuantity int    `json:"newQuantity"`
}

func (OrderItemQuantityChanged) EventName() string { return "order.item_quantity_changed" }

// OrderItemRemoved 在行项目被移除（整行或部分数量）时发布，携带实际移除的数量。
type OrderItemRemoved struct {
	eventBase
	ProductID       string `json:"productId"`
	QuantityRemoved int    `json:"quantityRemoved"`
}

func (OrderItemRemoved) EventName() string { return "order.item_removed" }

// OrderStatusChanged 在订单状态流转成功时发布，取消时 Reason 携带取消原因。
type OrderStatusChanged struct {
	eventBase
	Context BusinessContext `json:"context"`
	From    OrderStatus     `json:"from"`
	To      OrderStatus     `json:"to"`
	Reason  string          `json:"reason,omitempty"`
}

func (OrderStatusChanged) EventName() string { return "order.status_changed" }
