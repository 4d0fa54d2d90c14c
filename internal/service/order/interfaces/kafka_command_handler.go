package interfaces

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"

	"omnia/internal/pkg/mq"
	"omnia/internal/service/order/application"
	"omnia/internal/service/order/domain"
	"omnia/internal/service/order/infrastructure"
)

// 命令类型，与消息封包里的 type 字段一一对应。
const (
	CommandCreateOrder           = "order.create"
	CommandAddItem               = "order.add_item"
	CommandRemoveItem            = "order.remove_item"
	CommandUpdateItemQuantity    = "order.update_item_quantity"
	CommandSetTax                = "order.set_tax"
	CommandSetShippingCost       = "order.set_shipping_cost"
	CommandApplyDiscount         = "order.apply_discount"
	CommandConfirm               = "order.confirm"
	CommandTransitionStatus      = "order.transition_status"
	CommandCancel                = "order.cancel"
	CommandAssignWaiter          = "order.assign_waiter"
	CommandAddPayment            = "order.add_payment"
	CommandMarkPaymentProcessing = "order.mark_payment_processing"
	CommandMarkPaymentCompleted  = "order.mark_payment_completed"
	CommandMarkPaymentFailed     = "order.mark_payment_failed"
	CommandRefundPayment         = "order.refund_payment"
)

// commandEnvelope 是命令主题上的统一封包。
// payload 的结构随 type 变化，延迟到分派时再解析。
type commandEnvelope struct {
	Type    string          `json:"type"`
	OrderID string          `json:"orderId,omitempty"`
	Payload json.RawMessage `json:"payload"`
}

type moneyPayload struct {
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
}

func (p moneyPayload) toDomain() (domain.Money, error) {
	return domain.NewMoney(p.Amount, p.Currency)
}

type itemPayload struct {
	ProductID   string       `json:"productId"`
	ProductName string       `json:"productName"`
	ProductSKU  string       `json:"productSku"`
	Quantity    int          `json:"quantity"`
	UnitPrice   moneyPayload `json:"unitPrice"`
}

type quantityPayload struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

type transitionPayload struct {
	Target string `json:"target"`
}

type reasonPayload struct {
	Reason string `json:"reason"`
}

type waiterPayload struct {
	WaiterID string `json:"waiterId"`
}

type paymentPayload struct {
	Method string `json:"method"`
}

type paymentRefPayload struct {
	PaymentID     string `json:"paymentId"`
	TransactionID string `json:"transactionId,omitempty"`
	Reference     string `json:"reference,omitempty"`
	Reason        string `json:"reason,omitempty"`
}

type refundPayload struct {
	PaymentID string       `json:"paymentId"`
	Amount    moneyPayload `json:"amount"`
	Reason    string       `json:"reason"`
}

// OrderCommandHandler 是驱动适配器：监听命令主题并驱动应用服务。
// 乐观锁冲突不在这里重试，命令生产方自己决定是否重发。
type OrderCommandHandler struct {
	reader  *kafka.Reader
	appSvc  *application.OrderApplicationService
	metrics *infrastructure.Metrics
	wg      sync.WaitGroup
	stopped atomic.Bool
}

func NewOrderCommandHandler(reader *kafka.Reader, appSvc *application.OrderApplicationService, metrics *infrastructure.Metrics) *OrderCommandHandler {
	return &OrderCommandHandler{
		reader:  reader,
		appSvc:  appSvc,
		metrics: metrics,
	}
}

// Start 开始消费命令主题，长期运行直到 ctx 取消或 Stop 被调用。
func (h *OrderCommandHandler) Start(ctx context.Context) {
	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		log.Info().Str("topic", h.reader.Config().Topic).Msg("order command handler started")
		for {
			if h.stopped.Load() {
				return
			}
			msg, err := h.reader.FetchMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					log.Info().Msg("order command handler shutting down")
					return
				}
				log.Error().Err(err).Msg("could not fetch command message, retrying")
				time.Sleep(time.Second)
				continue
			}

			msgCtx := mq.ExtractTraceContext(ctx, msg.Headers)
			if err := h.handle(msgCtx, msg); err != nil {
				// 业务拒绝与基础设施错误都只记录：封包不可能变得合法，
				// 重试留给命令生产方。
				log.Error().Err(err).
					Str("topic", msg.Topic).
					Int64("offset", msg.Offset).
					Msg("command handling failed")
			}

			if err := h.reader.CommitMessages(ctx, msg); err != nil {
				log.Error().Err(err).Msg("failed to commit command offset")
			}
		}
	}()
}

// Stop 优雅停机：关闭读取器并等待处理循环退出。
func (h *OrderCommandHandler) Stop() {
	h.stopped.Store(true)
	h.reader.Close()
	h.wg.Wait()
	log.Info().Msg("order command handler stopped")
}

// handle 解析封包并分派到应用服务，同时记录命令维度的指标。
func (h *OrderCommandHandler) handle(ctx context.Context, msg kafka.Message) error {
	var envelope commandEnvelope
	if err := json.Unmarshal(msg.Value, &envelope); err != nil {
		h.observe("malformed", time.Time{}, err)
		return fmt.Errorf("unmarshal command envelope: %w", err)
	}

	started := time.Now()
	err := h.dispatch(ctx, envelope)
	h.observe(envelope.Type, started, err)
	return err
}

func (h *OrderCommandHandler) observe(command string, started time.Time, err error) {
	if h.metrics == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	h.metrics.CommandsTotal.WithLabelValues(command, outcome).Inc()
	if !started.IsZero() {
		h.metrics.CommandDuration.WithLabelValues(command).Observe(time.Since(started).Seconds())
	}
}

func (h *OrderCommandHandler) dispatch(ctx context.Context, envelope commandEnvelope) error {
	if envelope.Type == CommandCreateOrder {
		var cmd application.CreateOrderCommand
		if err := json.Unmarshal(envelope.Payload, &cmd); err != nil {
			return fmt.Errorf("unmarshal %s payload: %w", envelope.Type, err)
		}
		result, err := h.appSvc.CreateOrder(ctx, cmd)
		if err != nil {
			return err
		}
		log.Info().
			Str("order_id", result.OrderID).
			Str("order_number", result.OrderNumber).
			Msg("order created from command")
		return nil
	}

	orderID, err := uuid.Parse(envelope.OrderID)
	if err != nil {
		return fmt.Errorf("parse order id %q: %w", envelope.OrderID, err)
	}

	switch envelope.Type {
	case CommandAddItem:
		var p itemPayload
		if err := json.Unmarshal(envelope.Payload, &p); err != nil {
			return fmt.Errorf("unmarshal %s payload: %w", envelope.Type, err)
		}
		price, err := p.UnitPrice.toDomain()
		if err != nil {
			return err
		}
		return h.appSvc.AddItem(ctx, orderID, p.ProductID, p.ProductName, p.ProductSKU, p.Quantity, price)

	case CommandRemoveItem:
		var p quantityPayload
		if err := json.Unmarshal(envelope.Payload, &p); err != nil {
			return fmt.Errorf("unmarshal %s payload: %w", envelope.Type, err)
		}
		return h.appSvc.RemoveItem(ctx, orderID, p.ProductID, p.Quantity)

	case CommandUpdateItemQuantity:
		var p quantityPayload
		if err := json.Unmarshal(envelope.Payload, &p); err != nil {
			return fmt.Errorf("unmarshal %s payload: %w", envelope.Type, err)
		}
		return h.appSvc.UpdateItemQuantity(ctx, orderID, p.ProductID, p.Quantity)

	case CommandSetTax, CommandSetShippingCost, CommandApplyDiscount:
		var p moneyPayload
		if err := json.Unmarshal(envelope.Payload, &p); err != nil {
			return fmt.Errorf("unmarshal %s payload: %w", envelope.Type, err)
		}
		amount, err := p.toDomain()
		if err != nil {
			return err
		}
		switch envelope.Type {
		case CommandSetTax:
			return h.appSvc.SetTax(ctx, orderID, amount)
		case CommandSetShippingCost:
			return h.appSvc.SetShippingCost(ctx, orderID, amount)
		default:
			return h.appSvc.ApplyDiscount(ctx, orderID, amount)
		}

	case CommandConfirm:
		return h.appSvc.Confirm(ctx, orderID)

	case CommandTransitionStatus:
		var p transitionPayload
		if err := json.Unmarshal(envelope.Payload, &p); err != nil {
			return fmt.Errorf("unmarshal %s payload: %w", envelope.Type, err)
		}
		return h.appSvc.TransitionStatus(ctx, orderID, domain.OrderStatus(p.Target))

	case CommandCancel:
		var p reasonPayload
		if err := json.Unmarshal(envelope.Payload, &p); err != nil {
			return fmt.Errorf("unmarshal %s payload: %w", envelope.Type, err)
		}
		return h.appSvc.Cancel(ctx, orderID, p.Reason)

	case CommandAssignWaiter:
		var p waiterPayload
		if err := json.Unmarshal(envelope.Payload, &p); err != nil {
			return fmt.Errorf("unmarshal %s payload: %w", envelope.Type, err)
		}
		return h.appSvc.AssignWaiter(ctx, orderID, p.WaiterID)

	case CommandAddPayment:
		var p paymentPayload
		if err := json.Unmarshal(envelope.Payload, &p); err != nil {
			return fmt.Errorf("unmarshal %s payload: %w", envelope.Type, err)
		}
		payment, err := h.appSvc.AddPayment(ctx, orderID, domain.PaymentMethod(p.Method))
		if err != nil {
			return err
		}
		log.Info().
			Str("order_id", orderID.String()).
			Str("payment_id", payment.ID.String()).
			Msg("payment recorded")
		return nil

	case CommandMarkPaymentProcessing, CommandMarkPaymentCompleted, CommandMarkPaymentFailed:
		var p paymentRefPayload
		if err := json.Unmarshal(envelope.Payload, &p); err != nil {
			return fmt.Errorf("unmarshal %s payload: %w", envelope.Type, err)
		}
		paymentID, err := uuid.Parse(p.PaymentID)
		if err != nil {
			return fmt.Errorf("parse payment id %q: %w", p.PaymentID, err)
		}
		switch envelope.Type {
		case CommandMarkPaymentProcessing:
			return h.appSvc.MarkPaymentProcessing(ctx, orderID, paymentID, p.TransactionID)
		case CommandMarkPaymentCompleted:
			return h.appSvc.MarkPaymentCompleted(ctx, orderID, paymentID, p.Reference)
		default:
			return h.appSvc.MarkPaymentFailed(ctx, orderID, paymentID, p.Reason)
		}

	case CommandRefundPayment:
		var p refundPayload
		if err := json.Unmarshal(envelope.Payload, &p); err != nil {
			return fmt.Errorf("unmarshal %s payload: %w", envelope.Type, err)
		}
		paymentID, err := uuid.Parse(p.PaymentID)
		if err != nil {
			return fmt.Errorf("parse payment id %q: %w", p.PaymentID, err)
		}
		amount, err := p.Amount.toDomain()
		if err != nil {
			return err
		}
		return h.appSvc.RefundPayment(ctx, orderID, paymentID, amount, p.Reason)
	}

	return errors.New("unknown command type: " + envelope.Type)
}
