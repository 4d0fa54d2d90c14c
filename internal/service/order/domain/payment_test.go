package domain

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPayment(t *testing.T, amount float64) *Payment {
	t.Helper()
	p, err := newPayment(uuid.New(), PaymentCreditCard, mustMoney(t, amount, "EUR"))
	require.NoError(t, err)
	return p
}

func completedPayment(t *testing.T, amount float64) *Payment {
	t.Helper()
	p := testPayment(t, amount)
	require.NoError(t, p.MarkAsProcessing("tx-1"))
	require.NoError(t, p.MarkAsCompleted("ref-1"))
	return p
}

func TestNewPayment_Validation(t *testing.T) {
	_, err := newPayment(uuid.New(), "", mustMoney(t, 10, "EUR"))
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = newPayment(uuid.New(), PaymentCash, ZeroMoney("EUR"))
	assert.ErrorIs(t, err, ErrInvalidArgument)

	p := testPayment(t, 50)
	assert.Equal(t, PaymentPending, p.Status)
	assert.True(t, p.RefundedAmount.IsZero())
	assert.Equal(t, "50.00 EUR", p.RemainingAmount().String())
}

func TestPayment_HappyPath(t *testing.T) {
	p := testPayment(t, 50)

	require.NoError(t, p.MarkAsProcessing("tx-42"))
	assert.Equal(t, PaymentProcessing, p.Status)
	assert.Equal(t, "tx-42", p.TransactionID)

	require.NoError(t, p.MarkAsCompleted("psp-99"))
	assert.Equal(t, PaymentCompleted, p.Status)
	assert.Equal(t, "psp-99", p.ProviderReference)
}

func TestPayment_IllegalTransitions(t *testing.T) {
	p := testPayment(t, 50)

	// Pending 不能直接完成
	assert.ErrorIs(t, p.MarkAsCompleted("ref"), ErrInvalidState)

	require.NoError(t, p.MarkAsProcessing("tx"))
	// Processing 不能重复进入
	assert.ErrorIs(t, p.MarkAsProcessing("tx2"), ErrInvalidState)

	require.NoError(t, p.MarkAsCompleted("ref"))
	// 已完成的支付不允许再失败
	assert.ErrorIs(t, p.MarkAsFailed("too late"), ErrInvalidState)
}

func TestPayment_MarkAsFailed(t *testing.T) {
	t.Run("from_pending", func(t *testing.T) {
		p := testPayment(t, 50)
		require.NoError(t, p.MarkAsFailed("card declined"))
		assert.Equal(t, PaymentFailed, p.Status)
		assert.Equal(t, "card declined", p.FailureReason)
	})

	t.Run("from_processing", func(t *testing.T) {
		p := testPayment(t, 50)
		require.NoError(t, p.MarkAsProcessing("tx"))
		require.NoError(t, p.MarkAsFailed("timeout"))
		assert.Equal(t, PaymentFailed, p.Status)
	})

	t.Run("reason_required", func(t *testing.T) {
		p := testPayment(t, 50)
		assert.ErrorIs(t, p.MarkAsFailed("  "), ErrInvalidArgument)
	})

	t.Run("not_from_refunded", func(t *testing.T) {
		p := completedPayment(t, 50)
		require.NoError(t, p.ProcessRefund(mustMoney(t, 50, "EUR"), "broken goods"))
		assert.ErrorIs(t, p.MarkAsFailed("nope"), ErrInvalidState)
	})
}

// 规格场景：50.00 EUR 已完成支付，退30 → 部分退款，剩20；
// 再退20.01失败；退20成功 → 全额退款。
func TestPayment_RefundScenario(t *testing.T) {
	p := completedPayment(t, 50)

	require.NoError(t, p.ProcessRefund(mustMoney(t, 30, "EUR"), "damaged item"))
	assert.Equal(t, PaymentPartiallyRefunded, p.Status)
	assert.Equal(t, "20.00 EUR", p.RemainingAmount().String())

	err := p.ProcessRefund(mustMoney(t, 20.01, "EUR"), "goodwill")
	assert.ErrorIs(t, err, ErrRefundExceedsPayment)
	// 失败的退款不得留下任何部分变更
	assert.Equal(t, "30.00 EUR", p.RefundedAmount.String())

	require.NoError(t, p.ProcessRefund(mustMoney(t, 20, "EUR"), "remainder"))
	assert.Equal(t, PaymentRefunded, p.Status)
	assert.True(t, p.IsFullyRefunded())
	assert.True(t, p.RemainingAmount().IsZero())
	assert.False(t, p.CanBeRefunded())
}

func TestPayment_RefundGuards(t *testing.T) {
	t.Run("only_completed_can_refund", func(t *testing.T) {
		p := testPayment(t, 50)
		assert.ErrorIs(t, p.ProcessRefund(mustMoney(t, 10, "EUR"), "r"), ErrInvalidState)
	})

	t.Run("rejects_non_positive_amount", func(t *testing.T) {
		p := completedPayment(t, 50)
		assert.ErrorIs(t, p.ProcessRefund(ZeroMoney("EUR"), "r"), ErrInvalidArgument)
	})

	t.Run("rejects_currency_mismatch", func(t *testing.T) {
		p := completedPayment(t, 50)
		assert.ErrorIs(t, p.ProcessRefund(mustMoney(t, 10, "USD"), "r"), ErrCurrencyMismatch)
	})

	t.Run("reason_required", func(t *testing.T) {
		p := completedPayment(t, 50)
		assert.ErrorIs(t, p.ProcessRefund(mustMoney(t, 10, "EUR"), " "), ErrInvalidArgument)
	})
}
