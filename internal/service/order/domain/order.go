package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Order 是订单聚合的根实体：独占管理行项目与支付记录，
// 承载按业务上下文查表的状态机，派生金额永远现算，领域事件缓存在聚合内部。
// 字段全部不导出，一切修改必须经由聚合方法完成；
// 持久化层通过 Snapshot / ReconstituteOrder 往返。
type Order struct {
	id              uuid.UUID
	orderNumber     string
	customerID      string
	customer        CustomerInfo
	shippingAddress Address
	billingAddress  *Address
	service         ServiceInfo

	status   OrderStatus
	currency string // 首个金额入账时锁定，此后所有金额必须同币种

	taxAmount      Money
	shippingCost   Money
	discountAmount Money

	items    []*OrderItem
	payments []*Payment

	createdAt          time.Time
	confirmedAt        *time.Time
	shippedAt          *time.Time
	deliveredAt        *time.Time
	cancelledAt        *time.Time
	cancellationReason string

	// version 是乐观并发控制的版本号，由持久化层维护，聚合自身从不修改。
	version int

	// events 是待投递的领域事件缓冲，持久化成功后由驱动方 PullEvents 一次性取走。
	events []DomainEvent
}

// NewOrder 是订单聚合的工厂函数。订单号由外部序列生成器预先产生，这里视为不透明字符串；
// ServiceInfo 必须已经通过各自上下文的构造校验。初始状态为 Pending，并发布 OrderCreated。
func NewOrder(orderNumber, customerID string, customer CustomerInfo, shippingAddress Address, billingAddress *Address, service ServiceInfo) (*Order, error) {
	orderNumber = strings.TrimSpace(orderNumber)
	customerID = strings.TrimSpace(customerID)

	if orderNumber == "" {
		return nil, fmt.Errorf("%w: order number is required", ErrInvalidArgument)
	}
	if customerID == "" {
		return nil, fmt.Errorf("%w: customer id is required", ErrInvalidArgument)
	}
	if service.Context == "" {
		return nil, fmt.Errorf("%w: service info is required", ErrInvalidArgument)
	}

	o := &Order{
		id:              uuid.New(),
		orderNumber:     orderNumber,
		customerID:      customerID,
		customer:        customer,
		shippingAddress: shippingAddress,
		status:          StatusPending,
		service:         service,
		createdAt:       time.Now(),
	}
	if billingAddress != nil {
		addr := *billingAddress
		o.billingAddress = &addr
	}

	o.record(OrderCreated{
		eventBase:   newEventBase(o.id),
		OrderNumber: o.orderNumber,
		CustomerID:  o.customerID,
		Context:     o.service.Context,
	})
	return o, nil
}

// record 将事件追加到聚合的事件缓冲，只追加不清空，清空只发生在 PullEvents。
func (o *Order) record(event DomainEvent) {
	o.events = append(o.events, event)
}

// PullEvents 取走并清空缓冲中的领域事件。
// 驱动方必须在持久化成功之后恰好调用一次；保存失败则不得调用，事件随聚合一起丢弃。
func (o *Order) PullEvents() []DomainEvent {
	events := o.events
	o.events = nil
	return events
}

// ensureCurrency 在首个金额入账时锁定订单币种，此后拒绝任何异币种金额。
func (o *Order) ensureCurrency(m Money) error {
	if o.currency == "" {
		o.currency = m.Currency
		return nil
	}
	if o.currency != m.Currency {
		return fmt.Errorf("%w: order is in %s, got %s", ErrCurrencyMismatch, o.currency, m.Currency)
	}
	return nil
}

// AddItem 向订单加入商品。只有 Pending 状态可编辑明细；
// 同一 ProductID 重复加入时合并到已有行并累加数量，而不是插入重复行。
func (o *Order) AddItem(productID, productName, productSKU string, quantity int, unitPrice Money) error {
	if o.status != StatusPending {
		return fmt.Errorf("%w: items can only be modified while pending, current status %s", ErrInvalidState, o.status)
	}
	// 合并路径不经过行项目工厂，数量与单价必须在分支前统一校验
	if quantity <= 0 {
		return fmt.Errorf("%w: quantity must be positive, got %d", ErrInvalidArgument, quantity)
	}
	if !unitPrice.IsPositive() {
		return fmt.Errorf("%w: unit price must be positive, got %s", ErrInvalidArgument, unitPrice)
	}

	for _, item := range o.items {
		if item.IsSameProduct(productID) {
			// 已有行存在，订单币种必然已锁定，这里只做一致性校验
			if err := o.ensureCurrency(unitPrice); err != nil {
				return err
			}
			oldQuantity := item.Quantity
			if err := item.UpdateQuantity(oldQuantity + quantity); err != nil {
				return err
			}
			o.record(OrderItemQuantityChanged{
				eventBase:   newEventBase(o.id),
				ProductID:   item.ProductID,
				OldQuantity: oldQuantity,
				NewQuantity: item.Quantity,
			})
			return nil
		}
	}

	item, err := newOrderItem(o.id, productID, productName, productSKU, quantity, unitPrice)
	if err != nil {
		return err
	}
	if err := o.ensureCurrency(unitPrice); err != nil {
		return err
	}

	o.items = append(o.items, item)
	o.record(OrderItemAdded{
		eventBase:   newEventBase(o.id),
		ProductID:   item.ProductID,
		ProductName: item.ProductName,
		Quantity:    item.Quantity,
		UnitPrice:   item.UnitPrice,
	})
	return nil
}

// RemoveItem 从订单移除商品。quantity <= 0 表示整行移除；
// 移除数量达到当前数量时整行删除，否则只扣减。事件携带实际移除的数量。
func (o *Order) RemoveItem(productID string, quantity int) error {
	if o.status != StatusPending {
		return fmt.Errorf("%w: items can only be modified while pending, current status %s", ErrInvalidState, o.status)
	}

	for idx, item := range o.items {
		if !item.IsSameProduct(productID) {
			continue
		}

		removed := quantity
		if quantity <= 0 || quantity >= item.Quantity {
			removed = item.Quantity
			o.items = append(o.items[:idx], o.items[idx+1:]...)
		} else {
			if err := item.UpdateQuantity(item.Quantity - quantity); err != nil {
				return err
			}
		}

		o.record(OrderItemRemoved{
			eventBase:       newEventBase(o.id),
			ProductID:       item.ProductID,
			QuantityRemoved: removed,
		})
		return nil
	}
	return fmt.Errorf("%w: product %s", ErrItemNotFound, productID)
}

// UpdateItemQuantity 将商品数量调整为指定值；非正数量等同于整行移除。
func (o *Order) UpdateItemQuantity(productID string, newQuantity int) error {
	if o.status != StatusPending {
		return fmt.Errorf("%w: items can only be modified while pending, current status %s", ErrInvalidState, o.status)
	}
	if newQuantity <= 0 {
		return o.RemoveItem(productID, 0)
	}

	for _, item := range o.items {
		if !item.IsSameProduct(productID) {
			continue
		}
		oldQuantity := item.Quantity
		if oldQuantity == newQuantity {
			return nil
		}
		if err := item.UpdateQuantity(newQuantity); err != nil {
			return err
		}
		o.record(OrderItemQuantityChanged{
			eventBase:   newEventBase(o.id),
			ProductID:   item.ProductID,
			OldQuantity: oldQuantity,
			NewQuantity: newQuantity,
		})
		return nil
	}
	return fmt.Errorf("%w: product %s", ErrItemNotFound, productID)
}

// SetTax 设置税额，拒绝负数。
func (o *Order) SetTax(amount Money) error {
	if amount.IsNegative() {
		return fmt.Errorf("%w: tax amount cannot be negative, got %s", ErrInvalidArgument, amount)
	}
	if err := o.ensureCurrency(amount); err != nil {
		return err
	}
	o.taxAmount = amount
	return nil
}

// SetShippingCost 设置运费，拒绝负数。
func (o *Order) SetShippingCost(amount Money) error {
	if amount.IsNegative() {
		return fmt.Errorf("%w: shipping cost cannot be negative, got %s", ErrInvalidArgument, amount)
	}
	if err := o.ensureCurrency(amount); err != nil {
		return err
	}
	o.shippingCost = amount
	return nil
}

// ApplyDiscount 应用折扣，拒绝负数以及超过商品小计的折扣。
// 全部校验通过之后才锁定币种，被拒绝的折扣不留下任何痕迹。
func (o *Order) ApplyDiscount(amount Money) error {
	if amount.IsNegative() {
		return fmt.Errorf("%w: discount amount cannot be negative, got %s", ErrInvalidArgument, amount)
	}
	if o.currency != "" && o.currency != amount.Currency {
		return fmt.Errorf("%w: order is in %s, got %s", ErrCurrencyMismatch, o.currency, amount.Currency)
	}
	// 币种已一致（或订单尚未锁定币种，此时小计必为零），比较裸数值即可
	if amount.Amount.GreaterThan(o.SubTotal().Amount) {
		return fmt.Errorf("%w: discount %s exceeds subtotal %s", ErrInvalidArgument, amount, o.SubTotal())
	}
	if err := o.ensureCurrency(amount); err != nil {
		return err
	}
	o.discountAmount = amount
	return nil
}

// SubTotal 返回全部行项目小计之和，空订单返回零金额。
func (o *Order) SubTotal() Money {
	sum := ZeroMoney(o.currency)
	for _, item := range o.items {
		sum.Amount = sum.Amount.Add(item.TotalPrice().Amount)
	}
	return sum
}

// TotalAmount 返回订单总额：小计 + 税 + 运费 - 折扣。
// 总额永远现算，绝不落库，防止与组成部分发散。
func (o *Order) TotalAmount() Money {
	total := o.SubTotal()
	total.Amount = total.Amount.
		Add(o.taxAmount.Amount).
		Add(o.shippingCost.Amount).
		Sub(o.discountAmount.Amount)
	return total
}

// Confirm 确认订单：只有带明细的 Pending 订单可以确认，确认后明细冻结。
func (o *Order) Confirm() error {
	if o.status != StatusPending {
		return fmt.Errorf("%w: only pending orders can be confirmed, current status %s", ErrInvalidState, o.status)
	}
	if len(o.items) == 0 {
		return fmt.Errorf("%w: cannot confirm an order without items", ErrInvalidState)
	}
	o.applyStatus(StatusConfirmed, "")
	return nil
}

// TransitionTo 按当前业务上下文的转移表推进订单状态。
// 目标不在 (当前状态, 上下文) 的合法集合中即失败。
// Cancelled 是合法目标但原因必填，统一交给 Cancel 的校验路径处理。
func (o *Order) TransitionTo(newStatus OrderStatus) error {
	if newStatus == StatusCancelled {
		return o.Cancel("")
	}
	if !CanTransition(o.service.Context, o.status, newStatus) {
		return fmt.Errorf("%w: %s -> %s is not allowed in %s context",
			ErrInvalidStateTransition, o.status, newStatus, o.service.Context)
	}
	if newStatus == StatusConfirmed && len(o.items) == 0 {
		return fmt.Errorf("%w: cannot confirm an order without items", ErrInvalidState)
	}
	o.applyStatus(newStatus, "")
	return nil
}

// applyStatus 执行状态落位：打时间戳并发布 OrderStatusChanged。
// 合法性校验由调用方（Confirm / TransitionTo / Cancel）完成。
func (o *Order) applyStatus(newStatus OrderStatus, reason string) {
	oldStatus := o.status
	o.status = newStatus

	now := time.Now()
	switch newStatus {
	case StatusConfirmed:
		o.confirmedAt = &now
	case StatusShipped:
		o.shippedAt = &now
	case StatusDelivered:
		o.deliveredAt = &now
	case StatusCancelled:
		o.cancelledAt = &now
	}

	o.record(OrderStatusChanged{
		eventBase: newEventBase(o.id),
		Context:   o.service.Context,
		From:      oldStatus,
		To:        newStatus,
		Reason:    reason,
	})
}

// ValidTransitions 返回当前 (状态, 上下文) 下的合法目标状态集合，
// 供调用方构建操作入口，也供测试断言转移表本身。
func (o *Order) ValidTransitions() []OrderStatus {
	return ValidTransitionsFor(o.service.Context, o.status)
}

// Cancel 取消订单。终态不可取消；取消是状态流转而非删除，原因必填。
func (o *Order) Cancel(reason string) error {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return fmt.Errorf("%w: cancellation reason is required", ErrInvalidArgument)
	}
	if IsTerminalStatus(o.service.Context, o.status) {
		return fmt.Errorf("%w: order in terminal status %s cannot be cancelled", ErrInvalidState, o.status)
	}
	o.cancellationReason = reason
	o.applyStatus(StatusCancelled, reason)
	return nil
}

// AddPayment 为订单登记一笔全额支付记录。总额必须为正；
// 登记支付本身不驱动订单状态流转。返回支付记录的副本。
func (o *Order) AddPayment(method PaymentMethod) (Payment, error) {
	total := o.TotalAmount()
	if !total.IsPositive() {
		return Payment{}, fmt.Errorf("%w: cannot add a payment to an order with total %s", ErrInvalidState, total)
	}
	payment, err := newPayment(o.id, method, total)
	if err != nil {
		return Payment{}, err
	}
	o.payments = append(o.payments, payment)
	return *payment, nil
}

// findPayment 按ID定位聚合内的支付记录。
func (o *Order) findPayment(paymentID uuid.UUID) (*Payment, error) {
	for _, p := range o.payments {
		if p.ID == paymentID {
			return p, nil
		}
	}
	return nil, fmt.Errorf("%w: payment %s", ErrPaymentNotFound, paymentID)
}

// MarkPaymentProcessing 将指定支付置为处理中。支付记录归聚合独占，修改必须经由聚合根。
func (o *Order) MarkPaymentProcessing(paymentID uuid.UUID, transactionID string) error {
	payment, err := o.findPayment(paymentID)
	if err != nil {
		return err
	}
	return payment.MarkAsProcessing(transactionID)
}

// MarkPaymentCompleted 将指定支付置为已完成。
func (o *Order) MarkPaymentCompleted(paymentID uuid.UUID, providerReference string) error {
	payment, err := o.findPayment(paymentID)
	if err != nil {
		return err
	}
	return payment.MarkAsCompleted(providerReference)
}

// MarkPaymentFailed 将指定支付置为失败。
func (o *Order) MarkPaymentFailed(paymentID uuid.UUID, reason string) error {
	payment, err := o.findPayment(paymentID)
	if err != nil {
		return err
	}
	return payment.MarkAsFailed(reason)
}

// RefundPayment 在指定支付上登记退款。
func (o *Order) RefundPayment(paymentID uuid.UUID, amount Money, reason string) error {
	payment, err := o.findPayment(paymentID)
	if err != nil {
		return err
	}
	return payment.ProcessRefund(amount, reason)
}

// PaidAmount 返回已完成支付的净额合计（扣除退款后），未完成与失败的支付不计入。
func (o *Order) PaidAmount() Money {
	paid := ZeroMoney(o.currency)
	for _, p := range o.payments {
		if p.Status == PaymentCompleted {
			paid.Amount = paid.Amount.Add(p.RemainingAmount().Amount)
		}
	}
	return paid
}

// IsFullyPaid 判断已支付净额是否覆盖订单总额。
func (o *Order) IsFullyPaid() bool {
	ok, err := o.PaidAmount().GreaterThanOrEqual(o.TotalAmount())
	if err != nil {
		return false
	}
	return ok
}

// AssignWaiter 指派服务员，仅餐厅上下文合法。
// ServiceInfo 是不可变值，这里用新值整体替换引用。
func (o *Order) AssignWaiter(waiterID string) error {
	updated, err := o.service.WithWaiter(waiterID)
	if err != nil {
		return err
	}
	o.service = updated
	return nil
}

// UpdateServiceNotes 替换服务备注。
func (o *Order) UpdateServiceNotes(notes string) {
	o.service = o.service.WithServiceNotes(notes)
}

// RequiresKitchenIntegration 判断订单是否需要对接后厨：
// 餐厅上下文的堂食/外带单，在确认之后、取消之前为真。
func (o *Order) RequiresKitchenIntegration() bool {
	if o.service.Context != ContextRestaurant {
		return false
	}
	if o.service.Type != ServiceDineIn && o.service.Type != ServiceTakeAway {
		return false
	}
	return o.status != StatusPending && o.status != StatusCancelled
}

// RequiresShippingManagement 判断订单是否已进入需要物流管理的阶段：
// 电商/批发上下文，状态到达 Processing 及其后。
func (o *Order) RequiresShippingManagement() bool {
	if o.service.Context != ContextECommerce && o.service.Context != ContextWholesale {
		return false
	}
	switch o.status {
	case StatusProcessing, StatusShipped, StatusDelivered:
		return true
	}
	return false
}

// DisplayContext 返回状态与上下文合成的只读展示投影。
func (o *Order) DisplayContext() DisplayContext {
	attr := statusAttributes[o.status]
	return DisplayContext{
		OrderNumber:    o.orderNumber,
		Status:         o.status,
		Context:        o.service.Context,
		StatusColor:    attr.Color,
		RequiresAction: attr.RequiresAction,
	}
}

// ---- 只读访问器：集合一律返回副本，保证单写者不变量 ----

func (o *Order) ID() uuid.UUID            { return o.id }
func (o *Order) OrderNumber() string      { return o.orderNumber }
func (o *Order) CustomerID() string       { return o.customerID }
func (o *Order) Customer() CustomerInfo   { return o.customer }
func (o *Order) ShippingAddress() Address { return o.shippingAddress }
func (o *Order) Service() ServiceInfo     { return o.service }
func (o *Order) Status() OrderStatus      { return o.status }
func (o *Order) Context() BusinessContext { return o.service.Context }
func (o *Order) Currency() string         { return o.currency }
func (o *Order) TaxAmount() Money         { return o.taxAmount }
func (o *Order) ShippingCost() Money      { return o.shippingCost }
func (o *Order) DiscountAmount() Money    { return o.discountAmount }
func (o *Order) CreatedAt() time.Time     { return o.createdAt }
func (o *Order) Version() int             { return o.version }

func (o *Order) BillingAddress() *Address {
	if o.billingAddress == nil {
		return nil
	}
	addr := *o.billingAddress
	return &addr
}

func (o *Order) ConfirmedAt() *time.Time { return copyTime(o.confirmedAt) }
func (o *Order) ShippedAt() *time.Time   { return copyTime(o.shippedAt) }
func (o *Order) DeliveredAt() *time.Time { return copyTime(o.deliveredAt) }
func (o *Order) CancelledAt() *time.Time { return copyTime(o.cancelledAt) }

func (o *Order) CancellationReason() string { return o.cancellationReason }

// Items 返回行项目的副本切片，调用方的修改不会影响聚合。
func (o *Order) Items() []OrderItem {
	items := make([]OrderItem, len(o.items))
	for idx, item := range o.items {
		items[idx] = *item
	}
	return items
}

// Payments 返回支付记录的副本切片。
func (o *Order) Payments() []Payment {
	payments := make([]Payment, len(o.payments))
	for idx, p := range o.payments {
		payments[idx] = *p
	}
	return payments
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}

// OrderSnapshot 是聚合的全量状态快照，仅供持久化层往返使用，不承载任何业务规则。
type OrderSnapshot struct {
	ID                 uuid.UUID
	OrderNumber        string
	CustomerID         string
	Customer           CustomerInfo
	ShippingAddress    Address
	BillingAddress     *Address
	Service            ServiceInfo
	Status             OrderStatus
	Currency           string
	TaxAmount          Money
	ShippingCost       Money
	DiscountAmount     Money
	Items              []OrderItem
	Payments           []Payment
	CreatedAt          time.Time
	ConfirmedAt        *time.Time
	ShippedAt          *time.Time
	DeliveredAt        *time.Time
	CancelledAt        *time.Time
	CancellationReason string
	Version            int
}

// Snapshot 导出聚合当前状态的快照，集合均为副本。事件缓冲不属于快照。
func (o *Order) Snapshot() OrderSnapshot {
	return OrderSnapshot{
		ID:                 o.id,
		OrderNumber:        o.orderNumber,
		CustomerID:         o.customerID,
		Customer:           o.customer,
		ShippingAddress:    o.shippingAddress,
		BillingAddress:     o.BillingAddress(),
		Service:            o.service,
		Status:             o.status,
		Currency:           o.currency,
		TaxAmount:          o.taxAmount,
		ShippingCost:       o.shippingCost,
		DiscountAmount:     o.discountAmount,
		Items:              o.Items(),
		Payments:           o.Payments(),
		CreatedAt:          o.createdAt,
		ConfirmedAt:        o.ConfirmedAt(),
		ShippedAt:          o.ShippedAt(),
		DeliveredAt:        o.DeliveredAt(),
		CancelledAt:        o.CancelledAt(),
		CancellationReason: o.cancellationReason,
		Version:            o.version,
	}
}

// ReconstituteOrder 从持久化快照重建聚合，不做业务校验、不发布事件。
// 只允许持久化层在加载时使用。
func ReconstituteOrder(s OrderSnapshot) *Order {
	o := &Order{
		id:                 s.ID,
		orderNumber:        s.OrderNumber,
		customerID:         s.CustomerID,
		customer:           s.Customer,
		shippingAddress:    s.ShippingAddress,
		service:            s.Service,
		status:             s.Status,
		currency:           s.Currency,
		taxAmount:          s.TaxAmount,
		shippingCost:       s.ShippingCost,
		discountAmount:     s.DiscountAmount,
		createdAt:          s.CreatedAt,
		confirmedAt:        copyTime(s.ConfirmedAt),
		shippedAt:          copyTime(s.ShippedAt),
		deliveredAt:        copyTime(s.DeliveredAt),
		cancelledAt:        copyTime(s.CancelledAt),
		cancellationReason: s.CancellationReason,
		version:            s.Version,
	}
	if s.BillingAddress != nil {
		addr := *s.BillingAddress
		o.billingAddress = &addr
	}
	o.items = make([]*OrderItem, len(s.Items))
	for idx := range s.Items {
		item := s.Items[idx]
		o.items[idx] = &item
	}
	o.payments = make([]*Payment, len(s.Payments))
	for idx := range s.Payments {
		payment := s.Payments[idx]
		o.payments[idx] = &payment
	}
	return o
}
