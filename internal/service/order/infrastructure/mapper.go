package infrastructure

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"omnia/internal/service/order/domain"
)

// FromDomainOrder 将聚合快照转换为数据库模型（用于插入或更新）。
func FromDomainOrder(s domain.OrderSnapshot) (*OrderModel, error) {
	customerJSON, err := json.Marshal(s.Customer)
	if err != nil {
		return nil, errors.Wrap(err, "marshal customer info")
	}
	shippingJSON, err := json.Marshal(s.ShippingAddress)
	if err != nil {
		return nil, errors.Wrap(err, "marshal shipping address")
	}
	serviceJSON, err := json.Marshal(s.Service)
	if err != nil {
		return nil, errors.Wrap(err, "marshal service info")
	}

	model := &OrderModel{
		ID:                 s.ID.String(),
		OrderNumber:        s.OrderNumber,
		CustomerID:         s.CustomerID,
		CustomerJSON:       string(customerJSON),
		ShippingAddrJSON:   string(shippingJSON),
		ServiceJSON:        string(serviceJSON),
		Status:             string(s.Status),
		Currency:           s.Currency,
		TaxAmount:          s.TaxAmount.Amount,
		ShippingCost:       s.ShippingCost.Amount,
		DiscountAmount:     s.DiscountAmount.Amount,
		CreatedAt:          s.CreatedAt,
		ConfirmedAt:        toNullTime(s.ConfirmedAt),
		ShippedAt:          toNullTime(s.ShippedAt),
		DeliveredAt:        toNullTime(s.DeliveredAt),
		CancelledAt:        toNullTime(s.CancelledAt),
		CancellationReason: s.CancellationReason,
		Version:            s.Version,
	}

	if s.BillingAddress != nil {
		billingJSON, err := json.Marshal(s.BillingAddress)
		if err != nil {
			return nil, errors.Wrap(err, "marshal billing address")
		}
		model.BillingAddrJSON = sql.NullString{String: string(billingJSON), Valid: true}
	}

	model.Items = make([]OrderItemModel, len(s.Items))
	for i, item := range s.Items {
		model.Items[i] = OrderItemModel{
			ID:          item.ID.String(),
			OrderID:     s.ID.String(),
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			ProductSKU:  item.ProductSKU,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice.Amount,
			Currency:    item.UnitPrice.Currency,
		}
	}

	model.Payments = make([]PaymentModel, len(s.Payments))
	for i, p := range s.Payments {
		model.Payments[i] = PaymentModel{
			ID:                p.ID.String(),
			OrderID:           s.ID.String(),
			Method:            string(p.Method),
			Status:            string(p.Status),
			Amount:            p.Amount.Amount,
			RefundedAmount:    p.RefundedAmount.Amount,
			Currency:          p.Amount.Currency,
			TransactionID:     p.TransactionID,
			ProviderReference: p.ProviderReference,
			FailureReason:     p.FailureReason,
			RefundReason:      p.RefundReason,
			CreatedAt:         p.CreatedAt,
			UpdatedAt:         p.UpdatedAt,
		}
	}

	return model, nil
}

// ToDomainOrder 将数据库模型还原为聚合。重建不触发业务校验也不产生事件。
func ToDomainOrder(model *OrderModel) (*domain.Order, error) {
	id, err := uuid.Parse(model.ID)
	if err != nil {
		return nil, errors.Wrapf(err, "parse order id %q", model.ID)
	}

	var customer domain.CustomerInfo
	if err := json.Unmarshal([]byte(model.CustomerJSON), &customer); err != nil {
		return nil, errors.Wrap(err, "unmarshal customer info")
	}
	var shipping domain.Address
	if err := json.Unmarshal([]byte(model.ShippingAddrJSON), &shipping); err != nil {
		return nil, errors.Wrap(err, "unmarshal shipping address")
	}
	var service domain.ServiceInfo
	if err := json.Unmarshal([]byte(model.ServiceJSON), &service); err != nil {
		return nil, errors.Wrap(err, "unmarshal service info")
	}

	snapshot := domain.OrderSnapshot{
		ID:                 id,
		OrderNumber:        model.OrderNumber,
		CustomerID:         model.CustomerID,
		Customer:           customer,
		ShippingAddress:    shipping,
		Service:            service,
		Status:             domain.OrderStatus(model.Status),
		Currency:           model.Currency,
		TaxAmount:          domain.Money{Amount: model.TaxAmount, Currency: model.Currency},
		ShippingCost:       domain.Money{Amount: model.ShippingCost, Currency: model.Currency},
		DiscountAmount:     domain.Money{Amount: model.DiscountAmount, Currency: model.Currency},
		CreatedAt:          model.CreatedAt,
		ConfirmedAt:        fromNullTime(model.ConfirmedAt),
		ShippedAt:          fromNullTime(model.ShippedAt),
		DeliveredAt:        fromNullTime(model.DeliveredAt),
		CancelledAt:        fromNullTime(model.CancelledAt),
		CancellationReason: model.CancellationReason,
		Version:            model.Version,
	}

	if model.BillingAddrJSON.Valid {
		var billing domain.Address
		if err := json.Unmarshal([]byte(model.BillingAddrJSON.String), &billing); err != nil {
			return nil, errors.Wrap(err, "unmarshal billing address")
		}
		snapshot.BillingAddress = &billing
	}

	snapshot.Items = make([]domain.OrderItem, len(model.Items))
	for i, item := range model.Items {
		itemID, err := uuid.Parse(item.ID)
		if err != nil {
			return nil, errors.Wrapf(err, "parse item id %q", item.ID)
		}
		snapshot.Items[i] = domain.OrderItem{
			ID:          itemID,
			OrderID:     id,
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			ProductSKU:  item.ProductSKU,
			Quantity:    item.Quantity,
			UnitPrice:   domain.Money{Amount: item.UnitPrice, Currency: item.Currency},
		}
	}

	snapshot.Payments = make([]domain.Payment, len(model.Payments))
	for i, p := range model.Payments {
		paymentID, err := uuid.Parse(p.ID)
		if err != nil {
			return nil, errors.Wrapf(err, "parse payment id %q", p.ID)
		}
		snapshot.Payments[i] = domain.Payment{
			ID:                paymentID,
			OrderID:           id,
			Method:            domain.PaymentMethod(p.Method),
			Status:            domain.PaymentStatus(p.Status),
			Amount:            domain.Money{Amount: p.Amount, Currency: p.Currency},
			RefundedAmount:    domain.Money{Amount: p.RefundedAmount, Currency: p.Currency},
			TransactionID:     p.TransactionID,
			ProviderReference: p.ProviderReference,
			FailureReason:     p.FailureReason,
			RefundReason:      p.RefundReason,
			CreatedAt:         p.CreatedAt,
			UpdatedAt:         p.UpdatedAt,
		}
	}

	return domain.ReconstituteOrder(snapshot), nil
}

func toNullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func fromNullTime(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	c := t.Time
	return &c
}
