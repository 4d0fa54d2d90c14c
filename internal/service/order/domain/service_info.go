package domain

import (
	"fmt"
	"strings"
	"time"
)

// BusinessContext 标识订单来源的业务上下文，每个上下文有自己独立的履约流程。
type BusinessContext string

const (
	ContextRestaurant BusinessContext = "RESTAURANT" // 餐厅堂食/外带
	ContextBoutique   BusinessContext = "BOUTIQUE"   // 精品店POS
	ContextECommerce  BusinessContext = "ECOMMERCE"  // 电商
	ContextWholesale  BusinessContext = "WHOLESALE"  // 批发
)

// ServiceType 标识订单的服务方式。
type ServiceType string

const (
	ServiceDineIn   ServiceType = "DINE_IN"
	ServiceTakeAway ServiceType = "TAKE_AWAY"
	ServiceInStore  ServiceType = "IN_STORE"
	ServiceDelivery ServiceType = "DELIVERY"
	ServicePickup   ServiceType = "PICKUP"
)

// ServiceInfo 描述订单的服务方式（桌号、终端、配送地址等），是不可变值对象。
// 各业务上下文的必填字段在构造时即刻校验，而不是等到状态流转时才发现缺失。
// 所有"更新"都通过 WithX 方法返回新值，旧值若被他处持有不受影响。
type ServiceInfo struct {
	Context           BusinessContext
	Type              ServiceType
	TableNumber       int
	TerminalID        string
	WaiterID          string
	DeliveryAddress   *Address
	Customer          *CustomerInfo
	ServiceNotes      string
	ReservationTime   *time.Time
	EstimatedDuration time.Duration
}

// NewRestaurantService 构造餐厅上下文的服务信息。
// 堂食必须提供桌号；服务方式只能是堂食或外带。
func NewRestaurantService(serviceType ServiceType, tableNumber int) (ServiceInfo, error) {
	if serviceType != ServiceDineIn && serviceType != ServiceTakeAway {
		return ServiceInfo{}, fmt.Errorf("%w: restaurant service type must be dine-in or take-away, got %s", ErrInvalidArgument, serviceType)
	}
	if serviceType == ServiceDineIn && tableNumber <= 0 {
		return ServiceInfo{}, fmt.Errorf("%w: dine-in requires a table number", ErrInvalidArgument)
	}
	return ServiceInfo{
		Context:     ContextRestaurant,
		Type:        serviceType,
		TableNumber: tableNumber,
	}, nil
}

// NewBoutiqueService 构造精品店上下文的服务信息，终端ID必填。
func NewBoutiqueService(terminalID string) (ServiceInfo, error) {
	terminalID = strings.TrimSpace(terminalID)
	if terminalID == "" {
		return ServiceInfo{}, fmt.Errorf("%w: boutique requires a terminal id", ErrInvalidArgument)
	}
	return ServiceInfo{
		Context:    ContextBoutique,
		Type:       ServiceInStore,
		TerminalID: terminalID,
	}, nil
}

// NewECommerceService 构造电商上下文的服务信息，配送地址与客户信息均必填。
func NewECommerceService(serviceType ServiceType, deliveryAddress Address, customer CustomerInfo) (ServiceInfo, error) {
	if serviceType != ServiceDelivery && serviceType != ServicePickup {
		return ServiceInfo{}, fmt.Errorf("%w: e-commerce service type must be delivery or pickup, got %s", ErrInvalidArgument, serviceType)
	}
	if deliveryAddress == (Address{}) {
		return ServiceInfo{}, fmt.Errorf("%w: e-commerce requires a delivery address", ErrInvalidArgument)
	}
	if customer == (CustomerInfo{}) {
		return ServiceInfo{}, fmt.Errorf("%w: e-commerce requires customer info", ErrInvalidArgument)
	}
	addr := deliveryAddress
	cust := customer
	return ServiceInfo{
		Context:         ContextECommerce,
		Type:            serviceType,
		DeliveryAddress: &addr,
		Customer:        &cust,
	}, nil
}

// NewWholesaleService 构造批发上下文的服务信息，客户信息必填，配送地址可选。
func NewWholesaleService(customer CustomerInfo, deliveryAddress *Address) (ServiceInfo, error) {
	if customer == (CustomerInfo{}) {
		return ServiceInfo{}, fmt.Errorf("%w: wholesale requires customer info", ErrInvalidArgument)
	}
	cust := customer
	info := ServiceInfo{
		Context:  ContextWholesale,
		Type:     ServiceDelivery,
		Customer: &cust,
	}
	if deliveryAddress != nil {
		addr := *deliveryAddress
		info.DeliveryAddress = &addr
	}
	return info, nil
}

// WithWaiter 返回指派了服务员后的新 ServiceInfo。
// 只有餐厅上下文才存在服务员的概念。
func (s ServiceInfo) WithWaiter(waiterID string) (ServiceInfo, error) {
	if s.Context != ContextRestaurant {
		return ServiceInfo{}, fmt.Errorf("%w: waiter assignment only applies to restaurant orders", ErrInvalidOperation)
	}
	waiterID = strings.TrimSpace(waiterID)
	if waiterID == "" {
		return ServiceInfo{}, fmt.Errorf("%w: waiter id is required", ErrInvalidArgument)
	}
	updated := s
	updated.WaiterID = waiterID
	return updated, nil
}

// WithServiceNotes 返回替换了备注后的新 ServiceInfo。
func (s ServiceInfo) WithServiceNotes(notes string) ServiceInfo {
	updated := s
	updated.ServiceNotes = strings.TrimSpace(notes)
	return updated
}

// WithEstimatedDuration 返回替换了预计时长后的新 ServiceInfo。
func (s ServiceInfo) WithEstimatedDuration(d time.Duration) ServiceInfo {
	updated := s
	updated.EstimatedDuration = d
	return updated
}

// RequiresDeliveryTracking 判断该服务方式是否需要配送跟踪：
// 仅电商/批发上下文的配送单需要。
func (s ServiceInfo) RequiresDeliveryTracking() bool {
	if s.Type != ServiceDelivery {
		return false
	}
	return s.Context == ContextECommerce || s.Context == ContextWholesale
}
