package application

import (
	"fmt"

	"omnia/internal/service/order/domain"
)

// CustomerDTO 是客户信息的传输形态。
type CustomerDTO struct {
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	Email       string `json:"email"`
	PhoneNumber string `json:"phoneNumber,omitempty"`
}

// AddressDTO 是地址的传输形态。
type AddressDTO struct {
	Street       string `json:"street"`
	City         string `json:"city"`
	PostalCode   string `json:"postalCode"`
	Country      string `json:"country"`
	AddressLine2 string `json:"addressLine2,omitempty"`
}

// ServiceDTO 是服务方式的传输形态，按 Context 决定哪些字段必填。
type ServiceDTO struct {
	Context         string       `json:"context"`
	Type            string       `json:"type,omitempty"`
	TableNumber     int          `json:"tableNumber,omitempty"`
	TerminalID      string       `json:"terminalId,omitempty"`
	DeliveryAddress *AddressDTO  `json:"deliveryAddress,omitempty"`
	Customer        *CustomerDTO `json:"customer,omitempty"`
}

// CreateOrderCommand 是创建订单用例的输入数据。
type CreateOrderCommand struct {
	CustomerID      string      `json:"customerId"`
	Customer        CustomerDTO `json:"customer"`
	ShippingAddress AddressDTO  `json:"shippingAddress"`
	BillingAddress  *AddressDTO `json:"billingAddress,omitempty"`
	Service         ServiceDTO  `json:"service"`
}

// CreateOrderResult 是创建订单用例的输出数据。
type CreateOrderResult struct {
	OrderID     string             `json:"orderId"`
	OrderNumber string             `json:"orderNumber"`
	Status      domain.OrderStatus `json:"status"`
}

// toCustomerInfo 将传输对象转换为领域值对象，校验在领域构造函数内完成。
func toCustomerInfo(dto CustomerDTO) (domain.CustomerInfo, error) {
	return domain.NewCustomerInfo(dto.FirstName, dto.LastName, dto.Email, dto.PhoneNumber)
}

// toAddress 将传输对象转换为领域值对象。
func toAddress(dto AddressDTO) (domain.Address, error) {
	return domain.NewAddress(dto.Street, dto.City, dto.PostalCode, dto.Country, dto.AddressLine2)
}

// toServiceInfo 按业务上下文分派到对应的领域构造函数，
// 上下文专属的必填字段校验由领域层即刻完成。
func toServiceInfo(dto ServiceDTO) (domain.ServiceInfo, error) {
	switch domain.BusinessContext(dto.Context) {
	case domain.ContextRestaurant:
		return domain.NewRestaurantService(domain.ServiceType(dto.Type), dto.TableNumber)

	case domain.ContextBoutique:
		return domain.NewBoutiqueService(dto.TerminalID)

	case domain.ContextECommerce:
		if dto.DeliveryAddress == nil || dto.Customer == nil {
			return domain.ServiceInfo{}, fmt.Errorf("%w: e-commerce requires a delivery address and customer info", domain.ErrInvalidArgument)
		}
		addr, err := toAddress(*dto.DeliveryAddress)
		if err != nil {
			return domain.ServiceInfo{}, err
		}
		customer, err := toCustomerInfo(*dto.Customer)
		if err != nil {
			return domain.ServiceInfo{}, err
		}
		return domain.NewECommerceService(domain.ServiceType(dto.Type), addr, customer)

	case domain.ContextWholesale:
		if dto.Customer == nil {
			return domain.ServiceInfo{}, fmt.Errorf("%w: wholesale requires customer info", domain.ErrInvalidArgument)
		}
		customer, err := toCustomerInfo(*dto.Customer)
		if err != nil {
			return domain.ServiceInfo{}, err
		}
		var addr *domain.Address
		if dto.DeliveryAddress != nil {
			a, err := toAddress(*dto.DeliveryAddress)
			if err != nil {
				return domain.ServiceInfo{}, err
			}
			addr = &a
		}
		return domain.NewWholesaleService(customer, addr)
	}
	return domain.ServiceInfo{}, fmt.Errorf("%w: unknown business context %q", domain.ErrInvalidArgument, dto.Context)
}
