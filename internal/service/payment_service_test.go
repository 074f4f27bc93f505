package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubmitProofRequiresDateTime(t *testing.T) {
	ps := &PaymentService{}

	_, err := ps.SubmitProof(context.Background(), &SubmitProofRequest{OrderID: 1})
	require.Error(t, err)
	assert.Equal(t, KindValidation, KindOf(err))
}

func TestSubmitProofRequiresOrderID(t *testing.T) {
	ps := &PaymentService{}

	_, err := ps.SubmitProof(context.Background(), &SubmitProofRequest{PaymentDateTime: time.Now()})
	require.Error(t, err)
	assert.Equal(t, KindValidation, KindOf(err))
}

func TestValidPromptPayID(t *testing.T) {
	tests := []struct {
		id    string
		valid bool
	}{
		{"0812345678", true},
		{"1234567890123", true},
		{"", false},
		{"081234567", false},      // 9 digits
		{"08123456789", false},    // 11 digits
		{"123456789012", false},   // 12 digits
		{"12345678901234", false}, // 14 digits
		{"081234567a", false},
		{"081-234-5678", false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.valid, validPromptPayID(tt.id), "id %q", tt.id)
	}
}
