package service

import (
	"context"
	"time"

	"github.com/Nattakit28/shop-system-sub000/internal/redisclient"
	"github.com/Nattakit28/shop-system-sub000/internal/store"
	"github.com/Nattakit28/shop-system-sub000/internal/util"

	"go.uber.org/zap"
)

// Recognized settings keys
const (
	SettingShopName    = "shop_name"
	SettingPromptPay   = "promptpay_number"
	SettingShopAddress = "shop_address"
	SettingShopPhone   = "shop_phone"
	SettingShopEmail   = "shop_email"
)

const settingsCacheKey = "settings:shop"
const settingsCacheTTL = time.Minute

// ShopSettings is the typed view over the key-value settings table
type ShopSettings struct {
	ShopName        string `json:"shop_name"`
	PromptPayNumber string `json:"promptpay_number"`
	ShopAddress     string `json:"shop_address"`
	ShopPhone       string `json:"shop_phone"`
	ShopEmail       string `json:"shop_email"`
}

// Defaults applied when a key is absent from the table
var settingDefaults = map[string]string{
	SettingShopName:    "My Shop",
	SettingPromptPay:   "",
	SettingShopAddress: "",
	SettingShopPhone:   "",
	SettingShopEmail:   "",
}

// SettingsService exposes typed shop settings with explicit defaulting and
// a fail-open read-through cache.
type SettingsService struct {
	store  *store.Store
	cache  *redisclient.Client
	logger *zap.Logger
}

// NewSettingsService creates a new settings service. cache may be nil.
func NewSettingsService(store *store.Store, cache *redisclient.Client) *SettingsService {
	return &SettingsService{
		store:  store,
		cache:  cache,
		logger: util.GetLogger(),
	}
}

func isRecognizedSetting(key string) bool {
	_, ok := settingDefaults[key]
	return ok
}

func settingsFromMap(values map[string]string) ShopSettings {
	get := func(key string) string {
		if v, ok := values[key]; ok && v != "" {
			return v
		}
		return settingDefaults[key]
	}
	return ShopSettings{
		ShopName:        get(SettingShopName),
		PromptPayNumber: get(SettingPromptPay),
		ShopAddress:     get(SettingShopAddress),
		ShopPhone:       get(SettingShopPhone),
		ShopEmail:       get(SettingShopEmail),
	}
}

// Get returns the current shop settings with defaults applied
func (ss *SettingsService) Get(ctx context.Context) (ShopSettings, error) {
	if ss.cache != nil {
		var cached ShopSettings
		if ok, err := ss.cache.GetJSON(ctx, settingsCacheKey, &cached); err == nil && ok {
			return cached, nil
		}
	}

	values, err := ss.store.GetSettings(ctx)
	if err != nil {
		return ShopSettings{}, persistenceErr("failed to load settings", err)
	}
	settings := settingsFromMap(values)

	if ss.cache != nil {
		if err := ss.cache.SetJSON(ctx, settingsCacheKey, settings, settingsCacheTTL); err != nil {
			ss.logger.Warn("Failed to cache settings", zap.Error(err))
		}
	}
	return settings, nil
}

// Update writes one recognized setting and invalidates the cache
func (ss *SettingsService) Update(ctx context.Context, key, value string) error {
	if !isRecognizedSetting(key) {
		return validationErr("unrecognized setting key %q", key)
	}
	if key == SettingPromptPay && value != "" && !validPromptPayID(value) {
		return validationErr("promptpay number must be a 10-digit phone or 13-digit id")
	}

	if err := ss.store.UpsertSetting(ctx, key, value); err != nil {
		return persistenceErr("failed to update setting", err)
	}

	if ss.cache != nil {
		if err := ss.cache.Delete(ctx, settingsCacheKey); err != nil {
			ss.logger.Warn("Failed to invalidate settings cache", zap.Error(err))
		}
	}
	return nil
}

// Seed inserts defaults for any missing keys, called once at startup
func (ss *SettingsService) Seed(ctx context.Context) error {
	for key, value := range settingDefaults {
		if err := ss.store.SeedSetting(ctx, key, value); err != nil {
			return persistenceErr("failed to seed settings", err)
		}
	}
	return nil
}
