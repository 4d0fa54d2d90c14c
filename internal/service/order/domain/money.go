package domain

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Money 是带币种的金额值对象，不可变。
// 金额使用 decimal 表示以避免浮点精度丢失，构造时统一舍入到两位小数。
type Money struct {
	Amount   decimal.Decimal
	Currency string
}

// NewMoney 构造一个金额。币种不能为空，统一转为大写；金额舍入到两位小数。
// 负数金额在这里是允许的（减法的中间结果可能为负），
// 价格、税费等业务入口处的非负校验由 Order / OrderItem 负责。
func NewMoney(amount decimal.Decimal, currency string) (Money, error) {
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if currency == "" {
		return Money{}, fmt.Errorf("%w: currency is required", ErrInvalidArgument)
	}
	return Money{Amount: amount.Round(2), Currency: currency}, nil
}

// NewMoneyFromFloat 从浮点数构造金额，仅作为便捷入口，内部仍走 NewMoney 的舍入规则。
func NewMoneyFromFloat(amount float64, currency string) (Money, error) {
	return NewMoney(decimal.NewFromFloat(amount), currency)
}

// ZeroMoney 返回指定币种的零金额，是加法的单位元。
func ZeroMoney(currency string) Money {
	return Money{Amount: decimal.Zero, Currency: strings.ToUpper(strings.TrimSpace(currency))}
}

// sameCurrency 校验两个金额币种一致，不一致返回 ErrCurrencyMismatch。
func (m Money) sameCurrency(other Money) error {
	if m.Currency != other.Currency {
		return fmt.Errorf("%w: %s vs %s", ErrCurrencyMismatch, m.Currency, other.Currency)
	}
	return nil
}

// Add 返回两个同币种金额之和。
func (m Money) Add(other Money) (Money, error) {
	if err := m.sameCurrency(other); err != nil {
		return Money{}, err
	}
	return Money{Amount: m.Amount.Add(other.Amount), Currency: m.Currency}, nil
}

// Subtract 返回两个同币种金额之差，结果可能为负。
func (m Money) Subtract(other Money) (Money, error) {
	if err := m.sameCurrency(other); err != nil {
		return Money{}, err
	}
	return Money{Amount: m.Amount.Sub(other.Amount), Currency: m.Currency}, nil
}

// Multiply 返回金额乘以整数倍数的结果，用于单价 × 数量。
func (m Money) Multiply(factor int64) Money {
	return Money{Amount: m.Amount.Mul(decimal.NewFromInt(factor)), Currency: m.Currency}
}

// GreaterThanOrEqual 比较两个同币种金额的大小。
func (m Money) GreaterThanOrEqual(other Money) (bool, error) {
	if err := m.sameCurrency(other); err != nil {
		return false, err
	}
	return m.Amount.GreaterThanOrEqual(other.Amount), nil
}

// GreaterThan 判断 m 是否严格大于 other。
func (m Money) GreaterThan(other Money) (bool, error) {
	if err := m.sameCurrency(other); err != nil {
		return false, err
	}
	return m.Amount.GreaterThan(other.Amount), nil
}

// IsZero 判断金额是否为零。
func (m Money) IsZero() bool {
	return m.Amount.IsZero()
}

// IsNegative 判断金额是否为负。
func (m Money) IsNegative() bool {
	return m.Amount.IsNegative()
}

// IsPositive 判断金额是否严格为正。
func (m Money) IsPositive() bool {
	return m.Amount.IsPositive()
}

// Equals 按结构相等比较：币种相同且数值相等。
func (m Money) Equals(other Money) bool {
	return m.Currency == other.Currency && m.Amount.Equal(other.Amount)
}

// String 输出形如 "20.00 EUR" 的展示格式。
func (m Money) String() string {
	return m.Amount.StringFixed(2) + " " + m.Currency
}
