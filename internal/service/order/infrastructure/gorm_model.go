package infrastructure

import (
	"database/sql"
	"time"

	"github.com/shopspring/decimal"
)

// OrderModel 对应数据库中的 orders 表。
// 客户、地址、服务方式等值对象整体序列化为JSON列存储，
// 金额组成部分各占一列；总额永远现算，表里没有 total_amount 列。
type OrderModel struct {
	ID          string `gorm:"primaryKey;size:36"`
	OrderNumber string `gorm:"uniqueIndex;size:32"`
	CustomerID  string `gorm:"index;size:64"`

	CustomerJSON       string         `gorm:"type:text"`
	ShippingAddrJSON   string         `gorm:"type:text"`
	BillingAddrJSON    sql.NullString `gorm:"type:text"`
	ServiceJSON        string         `gorm:"type:text"`

	Status   string `gorm:"size:32;index"`
	Currency string `gorm:"size:3"`

	TaxAmount      decimal.Decimal `gorm:"type:decimal(12,2)"`
	ShippingCost   decimal.Decimal `gorm:"type:decimal(12,2)"`
	DiscountAmount decimal.Decimal `gorm:"type:decimal(12,2)"`

	CreatedAt          time.Time
	ConfirmedAt        sql.NullTime
	ShippedAt          sql.NullTime
	DeliveredAt        sql.NullTime
	CancelledAt        sql.NullTime
	CancellationReason string `gorm:"size:255"`

	// 乐观锁版本号：更新必须带上旧版本作为条件
	Version int `gorm:"not null;default:0"`

	Items    []OrderItemModel `gorm:"foreignKey:OrderID;references:ID"`
	Payments []PaymentModel   `gorm:"foreignKey:OrderID;references:ID"`
}

// TableName 指定 GORM 应该使用的表名
func (OrderModel) TableName() string {
	return "orders"
}

// OrderItemModel 对应数据库中的 order_items 表。
// 行项目归订单独占，保存时随订单整体替换，没有独立的仓储。
type OrderItemModel struct {
	ID          string `gorm:"primaryKey;size:36"`
	OrderID     string `gorm:"index;size:36"`
	ProductID   string `gorm:"size:64"`
	ProductName string `gorm:"size:255"`
	ProductSKU  string `gorm:"size:64"`
	Quantity    int

	UnitPrice decimal.Decimal `gorm:"type:decimal(12,2)"`
	Currency  string          `gorm:"size:3"`
}

// TableName 指定 GORM 应该使用的表名
func (OrderItemModel) TableName() string {
	return "order_items"
}

// PaymentModel 对应数据库中的 order_payments 表。
type PaymentModel struct {
	ID      string `gorm:"primaryKey;size:36"`
	OrderID string `gorm:"index;size:36"`
	Method  string `gorm:"size:32"`
	Status  string `gorm:"size:32"`

	Amount         decimal.Decimal `gorm:"type:decimal(12,2)"`
	RefundedAmount decimal.Decimal `gorm:"type:decimal(12,2)"`
	Currency       string          `gorm:"size:3"`

	TransactionID     string `gorm:"size:128"`
	ProviderReference string `gorm:"size:128"`
	FailureReason     string `gorm:"size:255"`
	RefundReason      string `gorm:"size:255"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName 指定 GORM 应该使用的表名
func (PaymentModel) TableName() string {
	return "order_payments"
}
