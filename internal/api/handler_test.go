package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/Nattakit28/shop-system-sub000/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePaymentDateTime(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantErr bool
	}{
		{"rfc3339", "2026-09-01T14:30:00+07:00", false},
		{"rfc3339 utc", "2026-09-01T07:30:00Z", false},
		{"space separated", "2026-09-01 14:30:00", false},
		{"html datetime-local", "2026-09-01T14:30", false},
		{"padded", "  2026-09-01 14:30:00  ", false},
		{"empty", "", true},
		{"date only", "2026-09-01", true},
		{"garbage", "yesterday", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parsed, err := parsePaymentDateTime(tt.raw)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.False(t, parsed.IsZero())
		})
	}
}

func TestWriteErrorStatusMapping(t *testing.T) {
	gin.SetMode(gin.TestMode)

	svcErr := func(kind service.Kind, msg string) error {
		return &service.Error{Kind: kind, Message: msg}
	}

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantKind   string
	}{
		{"not found", svcErr(service.KindNotFound, "product 9 not found"), http.StatusNotFound, "NotFoundError"},
		{"validation", svcErr(service.KindValidation, "phone is required"), http.StatusBadRequest, "ValidationError"},
		{"insufficient stock", svcErr(service.KindInsufficientStock, "not enough stock"), http.StatusBadRequest, "InsufficientStockError"},
		{"conflict", svcErr(service.KindConflict, "stock update failed"), http.StatusBadRequest, "ConflictError"},
		{"already submitted", svcErr(service.KindAlreadySubmitted, "proof exists"), http.StatusBadRequest, "AlreadySubmitted"},
		{"invalid status", svcErr(service.KindInvalidStatus, "bad status"), http.StatusBadRequest, "InvalidStatus"},
		{"persistence", svcErr(service.KindPersistence, "db down"), http.StatusInternalServerError, "PersistenceError"},
		{"plain error", errors.New("boom"), http.StatusInternalServerError, "PersistenceError"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(rec)

			writeError(c, tt.err)

			assert.Equal(t, tt.wantStatus, rec.Code)

			var body map[string]interface{}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.wantKind, body["error"])
		})
	}
}

func TestSubmitPaymentProofRemovesSlipOnFailure(t *testing.T) {
	gin.SetMode(gin.TestMode)

	uploadDir := t.TempDir()
	h := &Handler{payments: &service.PaymentService{}, uploadDir: uploadDir}

	router := gin.New()
	router.POST("/payments/:orderId/proof", h.submitPaymentProof)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("paymentDateTime", "2026-09-01 14:30:00"))
	part, err := mw.CreateFormFile("slip", "slip.png")
	require.NoError(t, err)
	_, err = part.Write([]byte("slip-bytes"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/payments/0/proof", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// The rejected submission must not leave the upload behind.
	entries, err := os.ReadDir(uploadDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestTokenIssuerRoundTrip(t *testing.T) {
	issuer := NewTokenIssuer("test-secret", time.Hour)

	token, err := issuer.Issue(1, "admin")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	username, err := issuer.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "admin", username)
}

func TestTokenIssuerRejectsWrongSecret(t *testing.T) {
	token, err := NewTokenIssuer("secret-a", time.Hour).Issue(1, "admin")
	require.NoError(t, err)

	_, err = NewTokenIssuer("secret-b", time.Hour).Validate(token)
	assert.Error(t, err)
}

func TestTokenIssuerRejectsExpired(t *testing.T) {
	issuer := NewTokenIssuer("test-secret", -time.Minute)

	token, err := issuer.Issue(1, "admin")
	require.NoError(t, err)

	_, err = issuer.Validate(token)
	assert.Error(t, err)
}

func TestAdminAuthMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	issuer := NewTokenIssuer("test-secret", time.Hour)
	router := gin.New()
	router.GET("/protected", issuer.AdminAuth(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user": c.GetString("admin_username")})
	})

	t.Run("missing header", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("malformed token", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set("Authorization", "Bearer not-a-token")
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("valid token", func(t *testing.T) {
		token, err := issuer.Issue(1, "admin")
		require.NoError(t, err)

		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "admin")
	})
}
