package application

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"omnia/internal/service/order/domain"
	"omnia/internal/service/order/domain/port"
)

// OrderApplicationService 负责业务流程编排：加载聚合、调用领域操作、
// 持久化、在保存成功后把缓冲的领域事件交给外发通道。
// 它不包含任何业务规则，规则全部在领域层。
type OrderApplicationService struct {
	orderRepo domain.OrderRepository
	numbers   port.OrderNumberGenerator
	publisher port.EventPublisher
	tracer    trace.Tracer
}

func NewOrderApplicationService(orderRepo domain.OrderRepository, numbers port.OrderNumberGenerator, publisher port.EventPublisher, tracer trace.Tracer) *OrderApplicationService {
	return &OrderApplicationService{
		orderRepo: orderRepo,
		numbers:   numbers,
		publisher: publisher,
		tracer:    tracer,
	}
}

// CreateOrder 创建一个新的订单聚合：先向外部序列生成器取订单号，
// 再经领域工厂创建并持久化，最后外发 OrderCreated。
func (s *OrderApplicationService) CreateOrder(ctx context.Context, cmd CreateOrderCommand) (*CreateOrderResult, error) {
	ctx, span := s.tracer.Start(ctx, "app.CreateOrder")
	defer span.End()

	customer, err := toCustomerInfo(cmd.Customer)
	if err != nil {
		return nil, s.fail(span, err, "invalid customer info")
	}
	shipping, err := toAddress(cmd.ShippingAddress)
	if err != nil {
		return nil, s.fail(span, err, "invalid shipping address")
	}
	var billing *domain.Address
	if cmd.BillingAddress != nil {
		addr, err := toAddress(*cmd.BillingAddress)
		if err != nil {
			return nil, s.fail(span, err, "invalid billing address")
		}
		billing = &addr
	}
	service, err := toServiceInfo(cmd.Service)
	if err != nil {
		return nil, s.fail(span, err, "invalid service info")
	}

	orderNumber, err := s.numbers.Next(ctx)
	if err != nil {
		return nil, s.fail(span, err, "order number generation failed")
	}

	order, err := domain.NewOrder(orderNumber, cmd.CustomerID, customer, shipping, billing, service)
	if err != nil {
		return nil, s.fail(span, err, "order creation rejected")
	}

	if err := s.orderRepo.Save(ctx, order); err != nil {
		return nil, s.fail(span, err, "failed to save new order")
	}
	s.publishEvents(ctx, order)

	log.Info().
		Str("order_id", order.ID().String()).
		Str("order_number", order.OrderNumber()).
		Str("context", string(order.Context())).
		Msg("order created")

	return &CreateOrderResult{
		OrderID:     order.ID().String(),
		OrderNumber: order.OrderNumber(),
		Status:      order.Status(),
	}, nil
}

// AddItem 向订单加入商品（同商品合并累加）。
func (s *OrderApplicationService) AddItem(ctx context.Context, orderID uuid.UUID, productID, productName, productSKU string, quantity int, unitPrice domain.Money) error {
	return s.mutate(ctx, "app.AddItem", orderID, func(order *domain.Order) error {
		return order.AddItem(productID, productName, productSKU, quantity, unitPrice)
	})
}

// RemoveItem 从订单移除商品，quantity <= 0 表示整行移除。
func (s *OrderApplicationService) RemoveItem(ctx context.Context, orderID uuid.UUID, productID string, quantity int) error {
	return s.mutate(ctx, "app.RemoveItem", orderID, func(order *domain.Order) error {
		return order.RemoveItem(productID, quantity)
	})
}

// UpdateItemQuantity 调整商品数量，非正数量等同移除。
func (s *OrderApplicationService) UpdateItemQuantity(ctx context.Context, orderID uuid.UUID, productID string, newQuantity int) error {
	return s.mutate(ctx, "app.UpdateItemQuantity", orderID, func(order *domain.Order) error {
		return order.UpdateItemQuantity(productID, newQuantity)
	})
}

// SetTax 设置订单税额。
func (s *OrderApplicationService) SetTax(ctx context.Context, orderID uuid.UUID, amount domain.Money) error {
	return s.mutate(ctx, "app.SetTax", orderID, func(order *domain.Order) error {
		return order.SetTax(amount)
	})
}

// SetShippingCost 设置订单运费。
func (s *OrderApplicationService) SetShippingCost(ctx context.Context, orderID uuid.UUID, amount domain.Money) error {
	return s.mutate(ctx, "app.SetShippingCost", orderID, func(order *domain.Order) error {
		return order.SetShippingCost(amount)
	})
}

// ApplyDiscount 应用订单折扣。
func (s *OrderApplicationService) ApplyDiscount(ctx context.Context, orderID uuid.UUID, amount domain.Money) error {
	return s.mutate(ctx, "app.ApplyDiscount", orderID, func(order *domain.Order) error {
		return order.ApplyDiscount(amount)
	})
}

// Confirm 确认订单，确认后明细冻结。
func (s *OrderApplicationService) Confirm(ctx context.Context, orderID uuid.UUID) error {
	return s.mutate(ctx, "app.Confirm", orderID, func(order *domain.Order) error {
		return order.Confirm()
	})
}

// TransitionStatus 按订单所属上下文的转移表推进状态。
func (s *OrderApplicationService) TransitionStatus(ctx context.Context, orderID uuid.UUID, target domain.OrderStatus) error {
	return s.mutate(ctx, "app.TransitionStatus", orderID, func(order *domain.Order) error {
		return order.TransitionTo(target)
	})
}

// Cancel 取消订单，原因必填。
func (s *OrderApplicationService) Cancel(ctx context.Context, orderID uuid.UUID, reason string) error {
	return s.mutate(ctx, "app.Cancel", orderID, func(order *domain.Order) error {
		return order.Cancel(reason)
	})
}

// AssignWaiter 指派服务员（仅餐厅上下文）。
func (s *OrderApplicationService) AssignWaiter(ctx context.Context, orderID uuid.UUID, waiterID string) error {
	return s.mutate(ctx, "app.AssignWaiter", orderID, func(order *domain.Order) error {
		return order.AssignWaiter(waiterID)
	})
}

// AddPayment 为订单登记一笔全额支付记录，返回记录的副本。
func (s *OrderApplicationService) AddPayment(ctx context.Context, orderID uuid.UUID, method domain.PaymentMethod) (domain.Payment, error) {
	var payment domain.Payment
	err := s.mutate(ctx, "app.AddPayment", orderID, func(order *domain.Order) error {
		p, err := order.AddPayment(method)
		if err != nil {
			return err
		}
		payment = p
		return nil
	})
	return payment, err
}

// MarkPaymentProcessing 将支付置为处理中。
func (s *OrderApplicationService) MarkPaymentProcessing(ctx context.Context, orderID, paymentID uuid.UUID, transactionID string) error {
	return s.mutate(ctx, "app.MarkPaymentProcessing", orderID, func(order *domain.Order) error {
		return order.MarkPaymentProcessing(paymentID, transactionID)
	})
}

// MarkPaymentCompleted 将支付置为已完成。
func (s *OrderApplicationService) MarkPaymentCompleted(ctx context.Context, orderID, paymentID uuid.UUID, providerReference string) error {
	return s.mutate(ctx, "app.MarkPaymentCompleted", orderID, func(order *domain.Order) error {
		return order.MarkPaymentCompleted(paymentID, providerReference)
	})
}

// MarkPaymentFailed 将支付置为失败。
func (s *OrderApplicationService) MarkPaymentFailed(ctx context.Context, orderID, paymentID uuid.UUID, reason string) error {
	return s.mutate(ctx, "app.MarkPaymentFailed", orderID, func(order *domain.Order) error {
		return order.MarkPaymentFailed(paymentID, reason)
	})
}

// RefundPayment 在指定支付上登记退款。
func (s *OrderApplicationService) RefundPayment(ctx context.Context, orderID, paymentID uuid.UUID, amount domain.Money, reason string) error {
	return s.mutate(ctx, "app.RefundPayment", orderID, func(order *domain.Order) error {
		return order.RefundPayment(paymentID, amount, reason)
	})
}

// GetOrder 加载订单聚合（只读）。
func (s *OrderApplicationService) GetOrder(ctx context.Context, orderID uuid.UUID) (*domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "app.GetOrder")
	defer span.End()
	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, s.fail(span, err, "failed to load order")
	}
	return order, nil
}

// GetDisplayContext 返回订单的UI展示投影。
func (s *OrderApplicationService) GetDisplayContext(ctx context.Context, orderID uuid.UUID) (domain.DisplayContext, error) {
	order, err := s.GetOrder(ctx, orderID)
	if err != nil {
		return domain.DisplayContext{}, err
	}
	return order.DisplayContext(), nil
}

// GetValidTransitions 返回订单当前可用的目标状态集合。
func (s *OrderApplicationService) GetValidTransitions(ctx context.Context, orderID uuid.UUID) ([]domain.OrderStatus, error) {
	order, err := s.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return order.ValidTransitions(), nil
}

// mutate 是所有修改型用例的公共骨架：加载 → 领域操作 → 保存 → 外发事件。
// 领域操作失败时聚合未持久化，事件缓冲随之丢弃，不会有半成品落库。
// 乐观锁冲突 (ErrConcurrencyConflict) 原样上抛，由外部驱动方决定是否重试。
func (s *OrderApplicationService) mutate(ctx context.Context, spanName string, orderID uuid.UUID, op func(*domain.Order) error) error {
	ctx, span := s.tracer.Start(ctx, spanName)
	defer span.End()

	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return s.fail(span, err, "failed to load order")
	}
	if err := op(order); err != nil {
		return s.fail(span, err, "domain operation rejected")
	}
	if err := s.orderRepo.Save(ctx, order); err != nil {
		return s.fail(span, err, "failed to save order")
	}
	s.publishEvents(ctx, order)
	return nil
}

// publishEvents 在保存成功之后恰好取走一次事件缓冲并投递。
// 外发失败只记录日志：消息通道自身负责重投语义，命令本身已经成功。
func (s *OrderApplicationService) publishEvents(ctx context.Context, order *domain.Order) {
	events := order.PullEvents()
	if len(events) == 0 {
		return
	}
	if err := s.publisher.Publish(ctx, events); err != nil {
		log.Error().Err(err).
			Str("order_id", order.ID().String()).
			Int("event_count", len(events)).
			Msg("failed to publish domain events")
	}
}

// fail 统一做 span 标记与错误透传。
func (s *OrderApplicationService) fail(span trace.Span, err error, msg string) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, msg)
	return err
}
