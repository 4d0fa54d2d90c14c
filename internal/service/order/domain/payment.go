package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// PaymentMethod 定义支付方式。
type PaymentMethod string

const (
	PaymentCash          PaymentMethod = "CASH"
	PaymentCreditCard    PaymentMethod = "CREDIT_CARD"
	PaymentDebitCard     PaymentMethod = "DEBIT_CARD"
	PaymentBankTransfer  PaymentMethod = "BANK_TRANSFER"
	PaymentMobilePayment PaymentMethod = "MOBILE_PAYMENT"
)

// PaymentStatus 定义了支付记录自身的小状态机。
type PaymentStatus string

const (
	PaymentPending           PaymentStatus = "PENDING"            // 已登记，未提交处理
	PaymentProcessing        PaymentStatus = "PROCESSING"         // 处理中
	PaymentCompleted         PaymentStatus = "COMPLETED"          // 已完成
	PaymentFailed            PaymentStatus = "FAILED"             // 已失败
	PaymentPartiallyRefunded PaymentStatus = "PARTIALLY_REFUNDED" // 部分退款
	PaymentRefunded          PaymentStatus = "REFUNDED"           // 全额退款
)

// Payment 是订单的支付记录，由所属 Order 独占管理。
// 这里只建模支付这一事实及其状态流转，不涉及任何支付网关I/O。
type Payment struct {
	ID                uuid.UUID
	OrderID           uuid.UUID
	Method            PaymentMethod
	Status            PaymentStatus
	Amount            Money
	RefundedAmount    Money
	TransactionID     string
	ProviderReference string
	FailureReason     string
	RefundReason      string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// newPayment 是包内工厂：支付记录只能经由 Order.AddPayment 产生，金额为下单总额。
func newPayment(orderID uuid.UUID, method PaymentMethod, amount Money) (*Payment, error) {
	if method == "" {
		return nil, fmt.Errorf("%w: payment method is required", ErrInvalidArgument)
	}
	if !amount.IsPositive() {
		return nil, fmt.Errorf("%w: payment amount must be positive, got %s", ErrInvalidArgument, amount)
	}
	now := time.Now()
	return &Payment{
		ID:             uuid.New(),
		OrderID:        orderID,
		Method:         method,
		Status:         PaymentPending,
		Amount:         amount,
		RefundedAmount: ZeroMoney(amount.Currency),
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

// MarkAsProcessing 将支付置为处理中，只允许从 Pending 进入。
func (p *Payment) MarkAsProcessing(transactionID string) error {
	if p.Status != PaymentPending {
		return fmt.Errorf("%w: payment %s cannot start processing from %s", ErrInvalidState, p.ID, p.Status)
	}
	p.Status = PaymentProcessing
	p.TransactionID = strings.TrimSpace(transactionID)
	p.UpdatedAt = time.Now()
	return nil
}

// MarkAsCompleted 将支付置为已完成，只允许从 Processing 进入。
func (p *Payment) MarkAsCompleted(providerReference string) error {
	if p.Status != PaymentProcessing {
		return fmt.Errorf("%w: payment %s cannot complete from %s", ErrInvalidState, p.ID, p.Status)
	}
	p.Status = PaymentCompleted
	p.ProviderReference = strings.TrimSpace(providerReference)
	p.UpdatedAt = time.Now()
	return nil
}

// MarkAsFailed 将支付置为失败，已完成或已退款的支付不允许再失败，原因必填。
func (p *Payment) MarkAsFailed(reason string) error {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return fmt.Errorf("%w: failure reason is required", ErrInvalidArgument)
	}
	switch p.Status {
	case PaymentCompleted, PaymentPartiallyRefunded, PaymentRefunded:
		return fmt.Errorf("%w: payment %s cannot fail from %s", ErrInvalidState, p.ID, p.Status)
	}
	p.Status = PaymentFailed
	p.FailureReason = reason
	p.UpdatedAt = time.Now()
	return nil
}

// ProcessRefund 登记一笔退款。只有已完成（含部分退款）的支付可退；
// 金额必须为正、与支付同币种，且累计退款不得超过原支付金额。
// 恰好退完转入 Refunded，否则转入 PartiallyRefunded。
func (p *Payment) ProcessRefund(amount Money, reason string) error {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return fmt.Errorf("%w: refund reason is required", ErrInvalidArgument)
	}
	if !p.CanBeRefunded() {
		return fmt.Errorf("%w: payment %s in status %s cannot be refunded", ErrInvalidState, p.ID, p.Status)
	}
	if !amount.IsPositive() {
		return fmt.Errorf("%w: refund amount must be positive, got %s", ErrInvalidArgument, amount)
	}

	newRefunded, err := p.RefundedAmount.Add(amount)
	if err != nil {
		return err
	}
	exceeds, err := newRefunded.GreaterThan(p.Amount)
	if err != nil {
		return err
	}
	if exceeds {
		return fmt.Errorf("%w: refunded %s + %s exceeds payment amount %s",
			ErrRefundExceedsPayment, p.RefundedAmount, amount, p.Amount)
	}

	p.RefundedAmount = newRefunded
	p.RefundReason = reason
	if p.RefundedAmount.Equals(p.Amount) {
		p.Status = PaymentRefunded
	} else {
		p.Status = PaymentPartiallyRefunded
	}
	p.UpdatedAt = time.Now()
	return nil
}

// CanBeRefunded 判断当前是否还能退款：已完成且仍有未退余额。
func (p *Payment) CanBeRefunded() bool {
	if p.Status != PaymentCompleted && p.Status != PaymentPartiallyRefunded {
		return false
	}
	return !p.IsFullyRefunded()
}

// IsFullyRefunded 判断是否已全额退款。
func (p *Payment) IsFullyRefunded() bool {
	return p.RefundedAmount.Equals(p.Amount)
}

// RemainingAmount 返回尚未退款的净额：支付金额 - 累计退款。
func (p *Payment) RemainingAmount() Money {
	remaining, _ := p.Amount.Subtract(p.RefundedAmount)
	return remaining
}
