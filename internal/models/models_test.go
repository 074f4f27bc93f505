package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsValidOrderStatus(t *testing.T) {
	for _, status := range OrderStatuses {
		assert.True(t, IsValidOrderStatus(status), "status %q", status)
	}

	assert.False(t, IsValidOrderStatus("refunded"))
	assert.False(t, IsValidOrderStatus("PENDING"))
	assert.False(t, IsValidOrderStatus(""))
}

func TestCanCancel(t *testing.T) {
	assert.True(t, CanCancel(OrderStatusPending))
	assert.True(t, CanCancel(OrderStatusPaid))

	assert.False(t, CanCancel(OrderStatusConfirmed))
	assert.False(t, CanCancel(OrderStatusShipped))
	assert.False(t, CanCancel(OrderStatusCompleted))
	assert.False(t, CanCancel(OrderStatusCancelled))
}
