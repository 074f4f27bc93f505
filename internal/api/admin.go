package api

import (
	"net/http"
	"strconv"

	"github.com/Nattakit28/shop-system-sub000/internal/service"
	"github.com/Nattakit28/shop-system-sub000/internal/store"
	"github.com/Nattakit28/shop-system-sub000/internal/util"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// AdminHandler contains the back-office handlers
type AdminHandler struct {
	store    *store.Store
	orders   *service.OrderService
	payments *service.PaymentService
	catalog  *service.CatalogService
	settings *service.SettingsService
	tokens   *TokenIssuer
	logger   *zap.Logger
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(
	store *store.Store,
	orders *service.OrderService,
	payments *service.PaymentService,
	catalog *service.CatalogService,
	settings *service.SettingsService,
	tokens *TokenIssuer,
) *AdminHandler {
	return &AdminHandler{
		store:    store,
		orders:   orders,
		payments: payments,
		catalog:  catalog,
		settings: settings,
		tokens:   tokens,
		logger:   util.GetLogger(),
	}
}

func (a *AdminHandler) setupRoutes(group *gin.RouterGroup) {
	group.Use(a.tokens.AdminAuth())

	group.GET("/products", a.listProducts)
	group.POST("/products", a.createProduct)
	group.PUT("/products/:id", a.updateProduct)
	group.DELETE("/products/:id", a.deleteProduct)

	group.POST("/categories", a.createCategory)
	group.PUT("/categories/:id", a.updateCategory)

	group.GET("/orders", a.listOrders)
	group.PUT("/orders/:id/status", a.updateOrderStatus)

	group.PUT("/payments/:orderId/review", a.reviewPayment)

	group.GET("/settings", a.getSettings)
	group.PUT("/settings", a.updateSetting)

	group.GET("/activity", a.listActivity)
}

// login verifies admin credentials and issues a token
func (a *AdminHandler) login(c *gin.Context) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ValidationError", "message": "invalid request body"})
		return
	}

	admin, err := a.store.GetAdminByUsername(c.Request.Context(), req.Username)
	if err != nil {
		writeError(c, err)
		return
	}
	if admin == nil || bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(req.Password)) != nil {
		a.logger.Warn("Failed admin login", zap.String("username", req.Username))
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized", "message": "invalid credentials"})
		return
	}

	token, err := a.tokens.Issue(admin.ID, admin.Username)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "PersistenceError", "message": "failed to issue token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token, "username": admin.Username})
}

func (a *AdminHandler) listProducts(c *gin.Context) {
	categoryID, _ := strconv.ParseInt(c.Query("category"), 10, 64)

	products, err := a.catalog.ListProducts(c.Request.Context(), categoryID, false, true)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": products})
}

func (a *AdminHandler) createProduct(c *gin.Context) {
	var in service.ProductInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ValidationError", "message": "invalid request body"})
		return
	}

	product, err := a.catalog.CreateProduct(c.Request.Context(), &in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, product)
}

func (a *AdminHandler) updateProduct(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ValidationError", "message": "invalid product ID"})
		return
	}

	var in service.ProductInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ValidationError", "message": "invalid request body"})
		return
	}

	product, err := a.catalog.UpdateProduct(c.Request.Context(), id, &in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

func (a *AdminHandler) deleteProduct(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ValidationError", "message": "invalid product ID"})
		return
	}

	if err := a.catalog.DeactivateProduct(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (a *AdminHandler) createCategory(c *gin.Context) {
	var req struct {
		Name string `json:"name"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ValidationError", "message": "invalid request body"})
		return
	}

	category, err := a.catalog.CreateCategory(c.Request.Context(), req.Name)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, category)
}

func (a *AdminHandler) updateCategory(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ValidationError", "message": "invalid category ID"})
		return
	}

	var req struct {
		Name string `json:"name"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ValidationError", "message": "invalid request body"})
		return
	}

	if err := a.catalog.UpdateCategory(c.Request.Context(), id, req.Name); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (a *AdminHandler) listOrders(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))

	orders, err := a.orders.ListOrders(c.Request.Context(), c.Query("status"), limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

func (a *AdminHandler) updateOrderStatus(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ValidationError", "message": "invalid order ID"})
		return
	}

	var req struct {
		Status string `json:"status"`
		Reason string `json:"reason,omitempty"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ValidationError", "message": "invalid request body"})
		return
	}

	if err := a.orders.UpdateStatus(c.Request.Context(), id, req.Status, req.Reason); err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"orderId":   id,
		"newStatus": req.Status,
	})
}

func (a *AdminHandler) reviewPayment(c *gin.Context) {
	orderID, err := strconv.ParseInt(c.Param("orderId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ValidationError", "message": "invalid order ID"})
		return
	}

	var req struct {
		Approve bool `json:"approve"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ValidationError", "message": "invalid request body"})
		return
	}

	if err := a.payments.Review(c.Request.Context(), orderID, req.Approve); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (a *AdminHandler) getSettings(c *gin.Context) {
	settings, err := a.settings.Get(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, settings)
}

func (a *AdminHandler) updateSetting(c *gin.Context) {
	var req struct {
		Key   string `json:"key"`
		Value string `json:"value"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ValidationError", "message": "invalid request body"})
		return
	}

	if err := a.settings.Update(c.Request.Context(), req.Key, req.Value); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (a *AdminHandler) listActivity(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))

	entries, err := a.store.ListOrderActivity(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "PersistenceError", "message": "failed to load activity"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"activity": entries})
}
