package api

import (
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/Nattakit28/shop-system-sub000/internal/service"
	"github.com/Nattakit28/shop-system-sub000/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler contains HTTP handlers
type Handler struct {
	orders    *service.OrderService
	payments  *service.PaymentService
	catalog   *service.CatalogService
	settings  *service.SettingsService
	admin     *AdminHandler
	uploadDir string
}

// NewHandler creates a new HTTP handler
func NewHandler(
	orders *service.OrderService,
	payments *service.PaymentService,
	catalog *service.CatalogService,
	settings *service.SettingsService,
	admin *AdminHandler,
	uploadDir string,
) *Handler {
	return &Handler{
		orders:    orders,
		payments:  payments,
		catalog:   catalog,
		settings:  settings,
		admin:     admin,
		uploadDir: uploadDir,
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(gin.Logger())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		v1.GET("/products", h.listProducts)
		v1.GET("/products/:id", h.getProduct)
		v1.GET("/categories", h.listCategories)
		v1.GET("/shop", h.shopInfo)

		v1.POST("/orders", h.placeOrder)
		v1.GET("/orders/:id", h.getOrder)

		v1.POST("/payments/:orderId/proof", h.submitPaymentProof)
		v1.GET("/payments/:orderId/qr", h.paymentQR)

		v1.POST("/admin/login", h.admin.login)
	}

	h.admin.setupRoutes(v1.Group("/admin"))
}

// writeError maps a service error kind to an HTTP status
func writeError(c *gin.Context, err error) {
	var svcErr *service.Error
	if !errors.As(err, &svcErr) {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   string(service.KindPersistence),
			"message": "unexpected error",
		})
		return
	}

	status := http.StatusBadRequest
	switch svcErr.Kind {
	case service.KindNotFound:
		status = http.StatusNotFound
	case service.KindPersistence:
		status = http.StatusInternalServerError
	}

	body := gin.H{
		"error":   string(svcErr.Kind),
		"message": svcErr.Message,
	}
	if svcErr.Kind == service.KindInsufficientStock {
		body["product"] = svcErr.Product
		body["available"] = svcErr.Available
		body["requested"] = svcErr.Requested
	}

	c.JSON(status, body)
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck handles readiness check requests
func (h *Handler) readinessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

// listProducts lists active products for the storefront
func (h *Handler) listProducts(c *gin.Context) {
	categoryID, _ := strconv.ParseInt(c.Query("category"), 10, 64)
	featured := c.Query("featured") == "true"

	products, err := h.catalog.ListProducts(c.Request.Context(), categoryID, featured, false)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": products})
}

// getProduct returns one product
func (h *Handler) getProduct(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ValidationError", "message": "invalid product ID"})
		return
	}

	product, err := h.catalog.GetProduct(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

// listCategories lists all categories
func (h *Handler) listCategories(c *gin.Context) {
	categories, err := h.catalog.ListCategories(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"categories": categories})
}

// shopInfo returns the storefront header settings
func (h *Handler) shopInfo(c *gin.Context) {
	settings, err := h.settings.Get(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	// PromptPay target is payment configuration, not public shop info.
	settings.PromptPayNumber = ""
	c.JSON(http.StatusOK, settings)
}

// placeOrder handles checkout
func (h *Handler) placeOrder(c *gin.Context) {
	var req service.PlaceOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "ValidationError",
			"message": "invalid request body",
		})
		return
	}

	result, err := h.orders.PlaceOrder(c.Request.Context(), &req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success":     true,
		"orderId":     result.OrderID,
		"orderNumber": result.OrderNumber,
		"totalAmount": result.TotalAmount,
		"itemCount":   result.ItemCount,
	})
}

// getOrder returns an order with items and latest payment
func (h *Handler) getOrder(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ValidationError", "message": "invalid order ID"})
		return
	}

	detail, err := h.orders.GetOrder(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

// submitPaymentProof records an uploaded payment slip for an order
func (h *Handler) submitPaymentProof(c *gin.Context) {
	orderID, err := strconv.ParseInt(c.Param("orderId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ValidationError", "message": "invalid order ID"})
		return
	}

	paymentTime, err := parsePaymentDateTime(c.PostForm("paymentDateTime"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ValidationError", "message": "invalid paymentDateTime"})
		return
	}

	slipPath := ""
	if file, err := c.FormFile("slip"); err == nil {
		name := "slip_" + strconv.FormatInt(orderID, 10) + "_" +
			strings.ReplaceAll(uuid.New().String(), "-", "")[:8] + filepath.Ext(file.Filename)
		slipPath = filepath.Join(h.uploadDir, name)
		if err := c.SaveUploadedFile(file, slipPath); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":   "PersistenceError",
				"message": "failed to store payment slip",
			})
			return
		}
	}

	result, err := h.payments.SubmitProof(c.Request.Context(), &service.SubmitProofRequest{
		OrderID:         orderID,
		SlipPath:        slipPath,
		PaymentDateTime: paymentTime,
		Notes:           c.PostForm("notes"),
	})
	if err != nil {
		// No payment row references the upload, so drop it.
		if slipPath != "" {
			_ = os.Remove(slipPath)
		}
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"orderId":     result.OrderID,
		"orderNumber": result.OrderNumber,
	})
}

// paymentQR returns the PromptPay QR code for an order's total
func (h *Handler) paymentQR(c *gin.Context) {
	orderID, err := strconv.ParseInt(c.Param("orderId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ValidationError", "message": "invalid order ID"})
		return
	}

	result, err := h.payments.GenerateQR(c.Request.Context(), orderID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

var paymentTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
}

func parsePaymentDateTime(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	var lastErr error
	for _, layout := range paymentTimeLayouts {
		t, err := time.Parse(layout, raw)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}
