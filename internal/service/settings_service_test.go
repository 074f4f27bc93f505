package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSettingsFromMapDefaults(t *testing.T) {
	settings := settingsFromMap(map[string]string{})

	assert.Equal(t, "My Shop", settings.ShopName)
	assert.Empty(t, settings.PromptPayNumber)
	assert.Empty(t, settings.ShopAddress)
}

func TestSettingsFromMapOverrides(t *testing.T) {
	settings := settingsFromMap(map[string]string{
		"shop_name":        "Cha Yen Corner",
		"promptpay_number": "0812345678",
		"shop_phone":       "021234567",
	})

	assert.Equal(t, "Cha Yen Corner", settings.ShopName)
	assert.Equal(t, "0812345678", settings.PromptPayNumber)
	assert.Equal(t, "021234567", settings.ShopPhone)
	assert.Empty(t, settings.ShopEmail)
}

func TestUpdateRejectsUnknownKey(t *testing.T) {
	ss := &SettingsService{}

	err := ss.Update(context.Background(), "theme_color", "red")
	require.Error(t, err)
	assert.Equal(t, KindValidation, KindOf(err))
}

func TestUpdateRejectsMalformedPromptPay(t *testing.T) {
	ss := &SettingsService{}

	err := ss.Update(context.Background(), SettingPromptPay, "not-a-number")
	require.Error(t, err)
	assert.Equal(t, KindValidation, KindOf(err))
}
