package domain

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// OrderItem 是订单的行项目，由所属 Order 独占管理，没有独立的生命周期。
// 单价是加入时刻的快照；合并判定依据 ProductID 而不是行ID。
type OrderItem struct {
	ID          uuid.UUID
	OrderID     uuid.UUID
	ProductID   string
	ProductName string
	ProductSKU  string
	Quantity    int
	UnitPrice   Money
}

// newOrderItem 是包内工厂：行项目只能经由 Order.AddItem 产生。
func newOrderItem(orderID uuid.UUID, productID, productName, productSKU string, quantity int, unitPrice Money) (*OrderItem, error) {
	productID = strings.TrimSpace(productID)
	productName = strings.TrimSpace(productName)

	if productID == "" {
		return nil, fmt.Errorf("%w: product id is required", ErrInvalidArgument)
	}
	if productName == "" {
		return nil, fmt.Errorf("%w: product name is required", ErrInvalidArgument)
	}
	if quantity <= 0 {
		return nil, fmt.Errorf("%w: quantity must be positive, got %d", ErrInvalidArgument, quantity)
	}
	if !unitPrice.IsPositive() {
		return nil, fmt.Errorf("%w: unit price must be positive, got %s", ErrInvalidArgument, unitPrice)
	}

	return &OrderItem{
		ID:          uuid.New(),
		OrderID:     orderID,
		ProductID:   productID,
		ProductName: productName,
		ProductSKU:  strings.TrimSpace(productSKU),
		Quantity:    quantity,
		UnitPrice:   unitPrice,
	}, nil
}

// TotalPrice 返回行项目小计：单价 × 数量。
func (i *OrderItem) TotalPrice() Money {
	return i.UnitPrice.Multiply(int64(i.Quantity))
}

// UpdateQuantity 更新数量，必须为正数；移除是独立操作，不用零数量表达。
func (i *OrderItem) UpdateQuantity(newQuantity int) error {
	if newQuantity <= 0 {
		return fmt.Errorf("%w: quantity must be positive, got %d", ErrInvalidArgument, newQuantity)
	}
	i.Quantity = newQuantity
	return nil
}

// UpdatePrice 更新单价，新价格必须与当前价格同币种且为正。
func (i *OrderItem) UpdatePrice(newUnitPrice Money) error {
	if err := i.UnitPrice.sameCurrency(newUnitPrice); err != nil {
		return err
	}
	if !newUnitPrice.IsPositive() {
		return fmt.Errorf("%w: unit price must be positive, got %s", ErrInvalidArgument, newUnitPrice)
	}
	i.UnitPrice = newUnitPrice
	return nil
}

// IsSameProduct 是合并判定：同一商品多次加入同一订单时累加数量而不是新增行。
func (i *OrderItem) IsSameProduct(productID string) bool {
	return i.ProductID == strings.TrimSpace(productID)
}
