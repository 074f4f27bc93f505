package service

import (
	"context"
	"encoding/base64"
	"fmt"
	"regexp"
	"time"

	"github.com/Nattakit28/shop-system-sub000/internal/util"

	"github.com/Frontware/promptpay"
	"github.com/shopspring/decimal"
	qrcode "github.com/skip2/go-qrcode"
	"go.uber.org/zap"
)

// A PromptPay target is either a 10-digit phone number or a 13-digit
// national-id style number.
var promptPayIDPattern = regexp.MustCompile(`^([0-9]{10}|[0-9]{13})$`)

const (
	qrImageSize     = 256
	qrPayloadCacheT = 10 * time.Minute
)

// QRResult is the renderable PromptPay payment request for an order
type QRResult struct {
	QRCode          string          `json:"qrCode"`
	PromptPayNumber string          `json:"promptpayNumber"`
	Amount          decimal.Decimal `json:"amount"`
	OrderNumber     string          `json:"orderNumber"`
	Payload         string          `json:"payload"`
}

func validPromptPayID(id string) bool {
	return promptPayIDPattern.MatchString(id)
}

// GenerateQR builds the PromptPay payload and QR image for an order. The
// encoded amount is the order's total exactly.
func (ps *PaymentService) GenerateQR(ctx context.Context, orderID int64) (*QRResult, error) {
	ctx, span := util.StartSpan(ctx, "PaymentService.GenerateQR")
	defer span.End()

	order, err := ps.store.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, persistenceErr("failed to load order", err)
	}
	if order == nil {
		return nil, notFoundErr("order %d not found", orderID)
	}

	shop, err := ps.settings.Get(ctx)
	if err != nil {
		return nil, err
	}
	if !validPromptPayID(shop.PromptPayNumber) {
		return nil, validationErr("promptpay number is not configured or invalid")
	}

	payload, err := ps.promptPayPayload(ctx, order.ID, shop.PromptPayNumber, order.TotalAmount)
	if err != nil {
		return nil, err
	}

	png, err := qrcode.Encode(payload, qrcode.Medium, qrImageSize)
	if err != nil {
		return nil, persistenceErr("failed to render QR image", err)
	}

	util.QRGeneratedTotal.Inc()

	return &QRResult{
		QRCode:          "data:image/png;base64," + base64.StdEncoding.EncodeToString(png),
		PromptPayNumber: shop.PromptPayNumber,
		Amount:          order.TotalAmount,
		OrderNumber:     order.OrderNumber,
		Payload:         payload,
	}, nil
}

// promptPayPayload generates (or reads back from cache) the EMVCo payload
// for one order. The cache key pins identifier and amount so a settings or
// total change never serves a stale payload.
func (ps *PaymentService) promptPayPayload(ctx context.Context, orderID int64, target string, amount decimal.Decimal) (string, error) {
	cacheKey := fmt.Sprintf("qr:%d:%s:%s", orderID, target, amount.StringFixed(2))

	if ps.cache != nil {
		if payload, ok, err := ps.cache.GetString(ctx, cacheKey); err == nil && ok {
			return payload, nil
		}
	}

	amt, _ := amount.Round(2).Float64()
	pp := promptpay.PromptPay{
		PromptPayID: target,
		Amount:      amt,
		OneTime:     true,
	}

	payload, err := pp.Gen()
	if err != nil {
		return "", persistenceErr("failed to generate promptpay payload", err)
	}

	if ps.cache != nil {
		if err := ps.cache.SetString(ctx, cacheKey, payload, qrPayloadCacheT); err != nil {
			ps.logger.Warn("Failed to cache QR payload", zap.Error(err))
		}
	}
	return payload, nil
}
