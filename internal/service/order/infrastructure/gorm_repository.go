package infrastructure

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"omnia/internal/service/order/domain"
)

// GormOrderRepository 是 domain.OrderRepository 的 GORM/MySQL 实现。
// 并发控制采用乐观锁：orders 表带 version 列，更新以旧版本为条件，
// 条件不中即说明有并发写入者抢先提交，返回 domain.ErrConcurrencyConflict。
type GormOrderRepository struct {
	db *gorm.DB
}

// NewGormOrderRepository 创建一个新的 GORM 仓储实例
func NewGormOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

// Migrate 建表。orders.order_number 上的唯一索引同时承担了
// 订单号全局唯一性的约束，这是领域层假设而不自行校验的部分。
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&OrderModel{}, &OrderItemModel{}, &PaymentModel{})
}

// Save 保存订单聚合。version == 0 视为新聚合走插入；
// 否则走条件更新并整体替换子表（行项目与支付归订单独占，没有独立生命周期）。
func (r *GormOrderRepository) Save(ctx context.Context, order *domain.Order) error {
	snapshot := order.Snapshot()
	model, err := FromDomainOrder(snapshot)
	if err != nil {
		return err
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if snapshot.Version == 0 {
			model.Version = 1
			if err := tx.Create(model).Error; err != nil {
				if errors.Is(err, gorm.ErrDuplicatedKey) {
					return fmt.Errorf("%w: order %s already exists", domain.ErrConcurrencyConflict, model.ID)
				}
				return err
			}
			return nil
		}

		items := model.Items
		payments := model.Payments
		model.Items = nil
		model.Payments = nil

		res := tx.Model(&OrderModel{}).
			Where("id = ? AND version = ?", model.ID, snapshot.Version).
			Updates(map[string]interface{}{
				"order_number":        model.OrderNumber,
				"customer_id":         model.CustomerID,
				"customer_json":       model.CustomerJSON,
				"shipping_addr_json":  model.ShippingAddrJSON,
				"billing_addr_json":   model.BillingAddrJSON,
				"service_json":        model.ServiceJSON,
				"status":              model.Status,
				"currency":            model.Currency,
				"tax_amount":          model.TaxAmount,
				"shipping_cost":       model.ShippingCost,
				"discount_amount":     model.DiscountAmount,
				"confirmed_at":        model.ConfirmedAt,
				"shipped_at":          model.ShippedAt,
				"delivered_at":        model.DeliveredAt,
				"cancelled_at":        model.CancelledAt,
				"cancellation_reason": model.CancellationReason,
				"version":             snapshot.Version + 1,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%w: order %s at version %d was modified concurrently",
				domain.ErrConcurrencyConflict, model.ID, snapshot.Version)
		}

		// 子表整体替换：聚合是唯一写入方，差量比对不值得
		if err := tx.Where("order_id = ?", model.ID).Delete(&OrderItemModel{}).Error; err != nil {
			return err
		}
		if len(items) > 0 {
			if err := tx.Create(&items).Error; err != nil {
				return err
			}
		}
		if err := tx.Where("order_id = ?", model.ID).Delete(&PaymentModel{}).Error; err != nil {
			return err
		}
		if len(payments) > 0 {
			if err := tx.Create(&payments).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// FindByID 根据ID加载订单聚合，子表一并预加载。
func (r *GormOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	return r.findOne(ctx, "id = ?", id.String())
}

// FindByNumber 根据业务订单号加载订单聚合。
func (r *GormOrderRepository) FindByNumber(ctx context.Context, orderNumber string) (*domain.Order, error) {
	return r.findOne(ctx, "order_number = ?", orderNumber)
}

func (r *GormOrderRepository) findOne(ctx context.Context, query string, arg interface{}) (*domain.Order, error) {
	var model OrderModel
	err := r.db.WithContext(ctx).
		Preload("Items").
		Preload("Payments").
		Where(query, arg).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrOrderNotFound
		}
		return nil, err
	}
	return ToDomainOrder(&model)
}
