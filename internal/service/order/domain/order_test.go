package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func restaurantOrder(t *testing.T) *Order {
	t.Helper()
	service, err := NewRestaurantService(ServiceDineIn, 15)
	require.NoError(t, err)
	o, err := NewOrder("ORD-20260901-000042", "C-1", testCustomer(t), testAddress(t), nil, service)
	require.NoError(t, err)
	return o
}

func ecommerceOrder(t *testing.T) *Order {
	t.Helper()
	service, err := NewECommerceService(ServiceDelivery, testAddress(t), testCustomer(t))
	require.NoError(t, err)
	o, err := NewOrder("ORD-20260901-000043", "C-2", testCustomer(t), testAddress(t), nil, service)
	require.NoError(t, err)
	return o
}

func eventNames(events []DomainEvent) []string {
	names := make([]string, len(events))
	for i, e := range events {
		names[i] = e.EventName()
	}
	return names
}

func TestNewOrder(t *testing.T) {
	t.Run("validates_required_fields", func(t *testing.T) {
		service, err := NewBoutiqueService("T1")
		require.NoError(t, err)

		_, err = NewOrder("  ", "C-1", testCustomer(t), testAddress(t), nil, service)
		assert.ErrorIs(t, err, ErrInvalidArgument)

		_, err = NewOrder("ORD-1", "", testCustomer(t), testAddress(t), nil, service)
		assert.ErrorIs(t, err, ErrInvalidArgument)

		_, err = NewOrder("ORD-1", "C-1", testCustomer(t), testAddress(t), nil, ServiceInfo{})
		assert.ErrorIs(t, err, ErrInvalidArgument)
	})

	t.Run("starts_pending_and_raises_created", func(t *testing.T) {
		o := restaurantOrder(t)
		assert.Equal(t, StatusPending, o.Status())

		events := o.PullEvents()
		require.Len(t, events, 1)
		created, ok := events[0].(OrderCreated)
		require.True(t, ok)
		assert.Equal(t, o.ID(), created.AggregateID())
		assert.Equal(t, ContextRestaurant, created.Context)

		// 事件缓冲只能被取走一次
		assert.Empty(t, o.PullEvents())
	})
}

func TestOrder_AddItem_MergesSameProduct(t *testing.T) {
	o := restaurantOrder(t)
	o.PullEvents()

	require.NoError(t, o.AddItem("P1", "Margherita", "", 2, mustMoney(t, 10, "EUR")))
	require.NoError(t, o.AddItem("P1", "Margherita", "", 3, mustMoney(t, 10, "EUR")))

	// 同一商品合并为一行，数量累加，绝不出现重复行
	items := o.Items()
	require.Len(t, items, 1)
	assert.Equal(t, 5, items[0].Quantity)
	assert.Equal(t, "50.00 EUR", o.SubTotal().String())

	assert.Equal(t,
		[]string{"order.item_added", "order.item_quantity_changed"},
		eventNames(o.PullEvents()))
}

func TestOrder_AddItem_ValidatesMergeInput(t *testing.T) {
	o := restaurantOrder(t)
	require.NoError(t, o.AddItem("P1", "Margherita", "", 5, mustMoney(t, 10, "EUR")))
	o.PullEvents()

	// 合并路径同样拒绝非正数量，已有行数量不受影响
	err := o.AddItem("P1", "Margherita", "", -2, mustMoney(t, 10, "EUR"))
	assert.ErrorIs(t, err, ErrInvalidArgument)
	assert.Equal(t, 5, o.Items()[0].Quantity)

	err = o.AddItem("P1", "Margherita", "", 0, mustMoney(t, 10, "EUR"))
	assert.ErrorIs(t, err, ErrInvalidArgument)
	assert.Equal(t, 5, o.Items()[0].Quantity)

	// 合并路径同样拒绝异币种与非正单价
	err = o.AddItem("P1", "Margherita", "", 3, mustMoney(t, 10, "USD"))
	assert.ErrorIs(t, err, ErrCurrencyMismatch)
	assert.Equal(t, 5, o.Items()[0].Quantity)

	err = o.AddItem("P1", "Margherita", "", 3, ZeroMoney("EUR"))
	assert.ErrorIs(t, err, ErrInvalidArgument)
	assert.Equal(t, 5, o.Items()[0].Quantity)

	// 被拒绝的调用不产生事件
	assert.Empty(t, o.PullEvents())
}

func TestOrder_AddItem_LocksCurrency(t *testing.T) {
	o := restaurantOrder(t)
	require.NoError(t, o.AddItem("P1", "Margherita", "", 1, mustMoney(t, 10, "EUR")))

	err := o.AddItem("P2", "Tiramisu", "", 1, mustMoney(t, 6, "USD"))
	assert.ErrorIs(t, err, ErrCurrencyMismatch)
	assert.Len(t, o.Items(), 1)
}

func TestOrder_RemoveItem(t *testing.T) {
	t.Run("not_found", func(t *testing.T) {
		o := restaurantOrder(t)
		assert.ErrorIs(t, o.RemoveItem("P404", 0), ErrItemNotFound)
	})

	t.Run("partial_removal_decrements", func(t *testing.T) {
		o := restaurantOrder(t)
		require.NoError(t, o.AddItem("P1", "Margherita", "", 5, mustMoney(t, 10, "EUR")))
		o.PullEvents()

		require.NoError(t, o.RemoveItem("P1", 2))
		items := o.Items()
		require.Len(t, items, 1)
		assert.Equal(t, 3, items[0].Quantity)

		events := o.PullEvents()
		require.Len(t, events, 1)
		removed := events[0].(OrderItemRemoved)
		assert.Equal(t, 2, removed.QuantityRemoved)
	})

	t.Run("removing_at_least_quantity_deletes_row", func(t *testing.T) {
		o := restaurantOrder(t)
		require.NoError(t, o.AddItem("P1", "Margherita", "", 2, mustMoney(t, 10, "EUR")))
		o.PullEvents()

		require.NoError(t, o.RemoveItem("P1", 7))
		assert.Empty(t, o.Items())

		events := o.PullEvents()
		removed := events[0].(OrderItemRemoved)
		assert.Equal(t, 2, removed.QuantityRemoved, "event carries the quantity actually removed")
	})

	t.Run("zero_means_remove_all", func(t *testing.T) {
		o := restaurantOrder(t)
		require.NoError(t, o.AddItem("P1", "Margherita", "", 4, mustMoney(t, 10, "EUR")))
		require.NoError(t, o.RemoveItem("P1", 0))
		assert.Empty(t, o.Items())
	})
}

func TestOrder_UpdateItemQuantity(t *testing.T) {
	o := restaurantOrder(t)
	require.NoError(t, o.AddItem("P1", "Margherita", "", 2, mustMoney(t, 10, "EUR")))
	o.PullEvents()

	require.NoError(t, o.UpdateItemQuantity("P1", 6))
	assert.Equal(t, 6, o.Items()[0].Quantity)

	// 非正数量委托给移除
	require.NoError(t, o.UpdateItemQuantity("P1", 0))
	assert.Empty(t, o.Items())

	assert.ErrorIs(t, o.UpdateItemQuantity("P404", 3), ErrItemNotFound)
}

// 任何一串操作之后总额都等于 小计 + 税 + 运费 - 折扣，永远现算。
func TestOrder_TotalRecomputation(t *testing.T) {
	o := ecommerceOrder(t)

	require.NoError(t, o.AddItem("P1", "Keyboard", "SKU-K", 2, mustMoney(t, 49.99, "EUR")))
	assert.Equal(t, "99.98 EUR", o.TotalAmount().String())

	require.NoError(t, o.SetTax(mustMoney(t, 20, "EUR")))
	assert.Equal(t, "119.98 EUR", o.TotalAmount().String())

	require.NoError(t, o.SetShippingCost(mustMoney(t, 5.50, "EUR")))
	assert.Equal(t, "125.48 EUR", o.TotalAmount().String())

	require.NoError(t, o.ApplyDiscount(mustMoney(t, 10, "EUR")))
	assert.Equal(t, "115.48 EUR", o.TotalAmount().String())

	require.NoError(t, o.RemoveItem("P1", 1))
	assert.Equal(t, "65.49 EUR", o.TotalAmount().String())
}

func TestOrder_MonetaryGuards(t *testing.T) {
	o := ecommerceOrder(t)
	require.NoError(t, o.AddItem("P1", "Keyboard", "", 1, mustMoney(t, 50, "EUR")))

	neg, err := mustMoney(t, 1, "EUR").Subtract(mustMoney(t, 2, "EUR"))
	require.NoError(t, err)

	assert.ErrorIs(t, o.SetTax(neg), ErrInvalidArgument)
	assert.ErrorIs(t, o.SetShippingCost(neg), ErrInvalidArgument)
	assert.ErrorIs(t, o.ApplyDiscount(neg), ErrInvalidArgument)

	// 折扣不得超过商品小计
	assert.ErrorIs(t, o.ApplyDiscount(mustMoney(t, 50.01, "EUR")), ErrInvalidArgument)
	require.NoError(t, o.ApplyDiscount(mustMoney(t, 50, "EUR")))

	assert.ErrorIs(t, o.SetTax(mustMoney(t, 5, "USD")), ErrCurrencyMismatch)
}

// 被拒绝的折扣不得留下任何痕迹，尤其不能提前锁定订单币种。
func TestOrder_ApplyDiscount_RejectionLeavesNoTrace(t *testing.T) {
	o := ecommerceOrder(t)

	assert.ErrorIs(t, o.ApplyDiscount(mustMoney(t, 10, "USD")), ErrInvalidArgument)
	assert.Empty(t, o.Currency())

	// 订单币种仍未锁定，首个商品决定币种
	require.NoError(t, o.AddItem("P1", "Keyboard", "", 1, mustMoney(t, 50, "EUR")))
	assert.Equal(t, "EUR", o.Currency())

	// 锁定之后异币种折扣被拒绝，已有折扣不变
	require.NoError(t, o.ApplyDiscount(mustMoney(t, 5, "EUR")))
	assert.ErrorIs(t, o.ApplyDiscount(mustMoney(t, 5, "USD")), ErrCurrencyMismatch)
	assert.Equal(t, "5.00 EUR", o.DiscountAmount().String())

	// 超额折扣被拒绝后折扣同样保持原值
	assert.ErrorIs(t, o.ApplyDiscount(mustMoney(t, 50.01, "EUR")), ErrInvalidArgument)
	assert.Equal(t, "5.00 EUR", o.DiscountAmount().String())
}

func TestOrder_Confirm(t *testing.T) {
	t.Run("requires_items", func(t *testing.T) {
		o := restaurantOrder(t)
		assert.ErrorIs(t, o.Confirm(), ErrInvalidState)
	})

	t.Run("freezes_items_after_confirm", func(t *testing.T) {
		o := restaurantOrder(t)
		require.NoError(t, o.AddItem("P1", "Margherita", "", 2, mustMoney(t, 10, "EUR")))
		require.NoError(t, o.Confirm())

		assert.Equal(t, StatusConfirmed, o.Status())
		require.NotNil(t, o.ConfirmedAt())

		assert.ErrorIs(t, o.AddItem("P2", "Tiramisu", "", 1, mustMoney(t, 6, "EUR")), ErrInvalidState)
		assert.ErrorIs(t, o.RemoveItem("P1", 1), ErrInvalidState)
		assert.ErrorIs(t, o.UpdateItemQuantity("P1", 3), ErrInvalidState)
		assert.ErrorIs(t, o.Confirm(), ErrInvalidState)
	})
}

// 规格场景：餐厅15号桌，P1 x2 @ 10.00 EUR → 小计20.00；
// 确认后进后厨队列合法，Shipped 非法。
func TestOrder_RestaurantScenario(t *testing.T) {
	o := restaurantOrder(t)
	require.NoError(t, o.AddItem("P1", "Margherita", "", 2, mustMoney(t, 10, "EUR")))
	assert.Equal(t, "20.00 EUR", o.SubTotal().String())

	require.NoError(t, o.Confirm())
	require.NoError(t, o.TransitionTo(StatusKitchenQueue))
	assert.ErrorIs(t, o.TransitionTo(StatusShipped), ErrInvalidStateTransition)

	assert.True(t, o.RequiresKitchenIntegration())
	assert.False(t, o.RequiresShippingManagement())
}

// 规格场景：精品店T1终端，15.99 x1，Scanned→Paid→Receipted 顺序全部成功，Cooking 非法。
func TestOrder_BoutiqueScenario(t *testing.T) {
	service, err := NewBoutiqueService("T1")
	require.NoError(t, err)
	o, err := NewOrder("ORD-20260901-000044", "C-3", testCustomer(t), testAddress(t), nil, service)
	require.NoError(t, err)

	require.NoError(t, o.AddItem("P9", "Silk scarf", "SKU-S", 1, mustMoney(t, 15.99, "EUR")))
	require.NoError(t, o.Confirm())
	require.NoError(t, o.TransitionTo(StatusScanned))
	require.NoError(t, o.TransitionTo(StatusPaid))
	require.NoError(t, o.TransitionTo(StatusReceipted))

	assert.ErrorIs(t, o.TransitionTo(StatusCooking), ErrInvalidStateTransition)
	assert.Empty(t, o.ValidTransitions())
}

func TestOrder_TransitionTimestamps(t *testing.T) {
	o := ecommerceOrder(t)
	require.NoError(t, o.AddItem("P1", "Keyboard", "", 1, mustMoney(t, 50, "EUR")))
	require.NoError(t, o.Confirm())
	require.NoError(t, o.TransitionTo(StatusProcessing))
	assert.True(t, o.RequiresShippingManagement())

	require.NoError(t, o.TransitionTo(StatusShipped))
	require.NotNil(t, o.ShippedAt())

	require.NoError(t, o.TransitionTo(StatusDelivered))
	require.NotNil(t, o.DeliveredAt())
}

func TestOrder_Cancel(t *testing.T) {
	t.Run("reason_required", func(t *testing.T) {
		o := restaurantOrder(t)
		assert.ErrorIs(t, o.Cancel("  "), ErrInvalidArgument)
	})

	t.Run("from_any_non_terminal_status", func(t *testing.T) {
		o := restaurantOrder(t)
		require.NoError(t, o.AddItem("P1", "Margherita", "", 1, mustMoney(t, 10, "EUR")))
		require.NoError(t, o.Confirm())
		require.NoError(t, o.TransitionTo(StatusKitchenQueue))
		o.PullEvents()

		require.NoError(t, o.Cancel("customer left"))
		assert.Equal(t, StatusCancelled, o.Status())
		assert.Equal(t, "customer left", o.CancellationReason())
		require.NotNil(t, o.CancelledAt())

		events := o.PullEvents()
		require.Len(t, events, 1)
		changed := events[0].(OrderStatusChanged)
		assert.Equal(t, StatusKitchenQueue, changed.From)
		assert.Equal(t, StatusCancelled, changed.To)
		assert.Equal(t, "customer left", changed.Reason)
	})

	t.Run("terminal_statuses_cannot_be_exited", func(t *testing.T) {
		o := restaurantOrder(t)
		require.NoError(t, o.AddItem("P1", "Margherita", "", 1, mustMoney(t, 10, "EUR")))
		require.NoError(t, o.Cancel("out of stock"))

		assert.ErrorIs(t, o.Cancel("again"), ErrInvalidState)
		assert.ErrorIs(t, o.TransitionTo(StatusConfirmed), ErrInvalidStateTransition)
	})

	t.Run("transition_to_cancelled_demands_a_reason", func(t *testing.T) {
		o := restaurantOrder(t)
		o.PullEvents()

		// Cancelled 在合法目标集合里，但没有原因的流转必须被拒绝且不留痕迹
		assert.Contains(t, o.ValidTransitions(), StatusCancelled)
		err := o.TransitionTo(StatusCancelled)
		assert.ErrorIs(t, err, ErrInvalidArgument)
		assert.ErrorContains(t, err, "reason")
		assert.Equal(t, StatusPending, o.Status())
		assert.Empty(t, o.PullEvents())

		require.NoError(t, o.Cancel("customer walked out"))
		assert.Equal(t, StatusCancelled, o.Status())
	})
}

func TestOrder_Payments(t *testing.T) {
	t.Run("rejects_zero_total", func(t *testing.T) {
		o := restaurantOrder(t)
		_, err := o.AddPayment(PaymentCash)
		assert.ErrorIs(t, err, ErrInvalidState)
	})

	t.Run("full_payment_lifecycle_through_root", func(t *testing.T) {
		o := restaurantOrder(t)
		require.NoError(t, o.AddItem("P1", "Margherita", "", 2, mustMoney(t, 10, "EUR")))

		payment, err := o.AddPayment(PaymentCreditCard)
		require.NoError(t, err)
		assert.Equal(t, "20.00 EUR", payment.Amount.String())
		assert.False(t, o.IsFullyPaid())

		require.NoError(t, o.MarkPaymentProcessing(payment.ID, "tx-1"))
		require.NoError(t, o.MarkPaymentCompleted(payment.ID, "psp-1"))
		assert.Equal(t, "20.00 EUR", o.PaidAmount().String())
		assert.True(t, o.IsFullyPaid())

		require.NoError(t, o.RefundPayment(payment.ID, mustMoney(t, 5, "EUR"), "late delivery"))
		refreshed := o.Payments()[0]
		assert.Equal(t, PaymentPartiallyRefunded, refreshed.Status)
	})

	t.Run("unknown_payment", func(t *testing.T) {
		o := restaurantOrder(t)
		require.NoError(t, o.AddItem("P1", "Margherita", "", 1, mustMoney(t, 10, "EUR")))
		_, err := o.AddPayment(PaymentCash)
		require.NoError(t, err)

		other := restaurantOrder(t)
		require.NoError(t, other.AddItem("P1", "Margherita", "", 1, mustMoney(t, 10, "EUR")))
		otherPayment, err := other.AddPayment(PaymentCash)
		require.NoError(t, err)

		assert.ErrorIs(t, o.MarkPaymentProcessing(otherPayment.ID, "tx"), ErrPaymentNotFound)
	})
}

func TestOrder_AssignWaiter(t *testing.T) {
	o := restaurantOrder(t)
	require.NoError(t, o.AssignWaiter("W-7"))
	assert.Equal(t, "W-7", o.Service().WaiterID)

	ec := ecommerceOrder(t)
	assert.ErrorIs(t, ec.AssignWaiter("W-7"), ErrInvalidOperation)
}

func TestOrder_DisplayContext(t *testing.T) {
	o := restaurantOrder(t)
	require.NoError(t, o.AddItem("P1", "Margherita", "", 1, mustMoney(t, 10, "EUR")))
	require.NoError(t, o.Confirm())
	require.NoError(t, o.TransitionTo(StatusKitchenQueue))

	dc := o.DisplayContext()
	assert.Equal(t, o.OrderNumber(), dc.OrderNumber)
	assert.Equal(t, StatusKitchenQueue, dc.Status)
	assert.Equal(t, ContextRestaurant, dc.Context)
	assert.Equal(t, "orange", dc.StatusColor)
	assert.True(t, dc.RequiresAction)
}

// 对外暴露的集合是副本，外部修改不会穿透到聚合内部。
func TestOrder_CollectionsAreReadOnlyViews(t *testing.T) {
	o := restaurantOrder(t)
	require.NoError(t, o.AddItem("P1", "Margherita", "", 2, mustMoney(t, 10, "EUR")))

	items := o.Items()
	items[0].Quantity = 99
	assert.Equal(t, 2, o.Items()[0].Quantity)

	_, err := o.AddPayment(PaymentCash)
	require.NoError(t, err)
	payments := o.Payments()
	payments[0].Status = PaymentCompleted
	assert.Equal(t, PaymentPending, o.Payments()[0].Status)
}

func TestOrder_SnapshotRoundTrip(t *testing.T) {
	o := restaurantOrder(t)
	require.NoError(t, o.AddItem("P1", "Margherita", "SKU-1", 2, mustMoney(t, 10, "EUR")))
	require.NoError(t, o.SetTax(mustMoney(t, 2, "EUR")))
	require.NoError(t, o.Confirm())
	payment, err := o.AddPayment(PaymentCash)
	require.NoError(t, err)

	restored := ReconstituteOrder(o.Snapshot())

	assert.Equal(t, o.ID(), restored.ID())
	assert.Equal(t, o.Status(), restored.Status())
	assert.Equal(t, o.TotalAmount().String(), restored.TotalAmount().String())
	assert.Equal(t, o.Items(), restored.Items())
	require.Len(t, restored.Payments(), 1)
	assert.Equal(t, payment.ID, restored.Payments()[0].ID)

	// 重建不产生事件，业务规则在重建后的聚合上照常生效
	assert.Empty(t, restored.PullEvents())
	require.NoError(t, restored.TransitionTo(StatusKitchenQueue))
	assert.ErrorIs(t, restored.TransitionTo(StatusShipped), ErrInvalidStateTransition)
}
