package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCustomer(t *testing.T) CustomerInfo {
	t.Helper()
	c, err := NewCustomerInfo("Ada", "Lovelace", "ada@example.com", "")
	require.NoError(t, err)
	return c
}

func testAddress(t *testing.T) Address {
	t.Helper()
	a, err := NewAddress("12 Rue de Rivoli", "Paris", "75001", "FR", "")
	require.NoError(t, err)
	return a
}

func TestNewRestaurantService(t *testing.T) {
	t.Run("dine_in_requires_table", func(t *testing.T) {
		_, err := NewRestaurantService(ServiceDineIn, 0)
		assert.ErrorIs(t, err, ErrInvalidArgument)
	})

	t.Run("take_away_without_table", func(t *testing.T) {
		info, err := NewRestaurantService(ServiceTakeAway, 0)
		require.NoError(t, err)
		assert.Equal(t, ContextRestaurant, info.Context)
	})

	t.Run("rejects_foreign_service_type", func(t *testing.T) {
		_, err := NewRestaurantService(ServiceDelivery, 15)
		assert.ErrorIs(t, err, ErrInvalidArgument)
	})
}

func TestNewBoutiqueService(t *testing.T) {
	info, err := NewBoutiqueService("T1")
	require.NoError(t, err)
	assert.Equal(t, ServiceInStore, info.Type)

	_, err = NewBoutiqueService("   ")
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestNewECommerceService(t *testing.T) {
	t.Run("requires_delivery_address", func(t *testing.T) {
		// 配送地址缺失必须在构造时报错，订单根本不会被创建
		_, err := NewECommerceService(ServiceDelivery, Address{}, testCustomer(t))
		assert.ErrorIs(t, err, ErrInvalidArgument)
	})

	t.Run("requires_customer_info", func(t *testing.T) {
		_, err := NewECommerceService(ServiceDelivery, testAddress(t), CustomerInfo{})
		assert.ErrorIs(t, err, ErrInvalidArgument)
	})

	t.Run("valid", func(t *testing.T) {
		info, err := NewECommerceService(ServiceDelivery, testAddress(t), testCustomer(t))
		require.NoError(t, err)
		require.NotNil(t, info.DeliveryAddress)
		assert.True(t, info.RequiresDeliveryTracking())
	})
}

func TestNewWholesaleService(t *testing.T) {
	_, err := NewWholesaleService(CustomerInfo{}, nil)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	info, err := NewWholesaleService(testCustomer(t), nil)
	require.NoError(t, err)
	assert.Equal(t, ContextWholesale, info.Context)
}

func TestServiceInfo_WithWaiter(t *testing.T) {
	original, err := NewRestaurantService(ServiceDineIn, 15)
	require.NoError(t, err)

	updated, err := original.WithWaiter("W-7")
	require.NoError(t, err)
	assert.Equal(t, "W-7", updated.WaiterID)
	// 旧值保持不变，别处持有的引用不受影响
	assert.Empty(t, original.WaiterID)

	boutique, err := NewBoutiqueService("T1")
	require.NoError(t, err)
	_, err = boutique.WithWaiter("W-7")
	assert.ErrorIs(t, err, ErrInvalidOperation)
}

func TestServiceInfo_WithUpdates(t *testing.T) {
	info, err := NewRestaurantService(ServiceDineIn, 15)
	require.NoError(t, err)

	noted := info.WithServiceNotes(" birthday table ")
	assert.Equal(t, "birthday table", noted.ServiceNotes)
	assert.Empty(t, info.ServiceNotes)

	timed := info.WithEstimatedDuration(90 * time.Minute)
	assert.Equal(t, 90*time.Minute, timed.EstimatedDuration)
	assert.Zero(t, info.EstimatedDuration)
}

func TestServiceInfo_RequiresDeliveryTracking(t *testing.T) {
	restaurant, err := NewRestaurantService(ServiceTakeAway, 0)
	require.NoError(t, err)
	assert.False(t, restaurant.RequiresDeliveryTracking())

	pickup, err := NewECommerceService(ServicePickup, testAddress(t), testCustomer(t))
	require.NoError(t, err)
	assert.False(t, pickup.RequiresDeliveryTracking())

	wholesale, err := NewWholesaleService(testCustomer(t), nil)
	require.NoError(t, err)
	assert.True(t, wholesale.RequiresDeliveryTracking())
}
