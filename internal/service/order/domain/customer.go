package domain

import (
	"fmt"
	"net/mail"
	"strings"
)

// CustomerInfo 描述订单归属的客户，是不可变值对象，按全部字段做结构相等。
type CustomerInfo struct {
	FirstName   string
	LastName    string
	Email       string
	PhoneNumber string
}

// NewCustomerInfo 构造客户信息。姓名必填且去除首尾空白，
// 邮箱按 RFC 地址格式校验并统一转为小写，电话可选。
func NewCustomerInfo(firstName, lastName, email, phoneNumber string) (CustomerInfo, error) {
	firstName = strings.TrimSpace(firstName)
	lastName = strings.TrimSpace(lastName)
	email = strings.ToLower(strings.TrimSpace(email))

	if firstName == "" {
		return CustomerInfo{}, fmt.Errorf("%w: first name is required", ErrInvalidArgument)
	}
	if lastName == "" {
		return CustomerInfo{}, fmt.Errorf("%w: last name is required", ErrInvalidArgument)
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return CustomerInfo{}, fmt.Errorf("%w: malformed email %q", ErrInvalidArgument, email)
	}

	return CustomerInfo{
		FirstName:   firstName,
		LastName:    lastName,
		Email:       email,
		PhoneNumber: strings.TrimSpace(phoneNumber),
	}, nil
}

// FullName 返回展示用的完整姓名。
func (c CustomerInfo) FullName() string {
	return c.FirstName + " " + c.LastName
}

// Equals 按全部字段做结构相等比较。
func (c CustomerInfo) Equals(other CustomerInfo) bool {
	return c == other
}

// Address 是邮寄/收货地址值对象，必填字段去除空白后不可为空。
type Address struct {
	Street       string
	City         string
	PostalCode   string
	Country      string
	AddressLine2 string
}

// NewAddress 构造地址，street/city/postalCode/country 必填，addressLine2 可选。
func NewAddress(street, city, postalCode, country, addressLine2 string) (Address, error) {
	street = strings.TrimSpace(street)
	city = strings.TrimSpace(city)
	postalCode = strings.TrimSpace(postalCode)
	country = strings.TrimSpace(country)

	if street == "" || city == "" || postalCode == "" || country == "" {
		return Address{}, fmt.Errorf("%w: street, city, postal code and country are required", ErrInvalidArgument)
	}

	return Address{
		Street:       street,
		City:         city,
		PostalCode:   postalCode,
		Country:      country,
		AddressLine2: strings.TrimSpace(addressLine2),
	}, nil
}

// Equals 按全部字段做结构相等比较。
func (a Address) Equals(other Address) bool {
	return a == other
}
