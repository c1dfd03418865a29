package handlers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"github.com/sushiloyalty/loyalty-backend/api/routes"
	"github.com/sushiloyalty/loyalty-backend/internal/config"
	"github.com/sushiloyalty/loyalty-backend/internal/repositories/gormsql"
	"github.com/sushiloyalty/loyalty-backend/internal/services"
	"github.com/sushiloyalty/loyalty-backend/pkg/commerce"
	"github.com/sushiloyalty/loyalty-backend/pkg/jwt"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm/logger"
)

const (
	webhookKey = "webhook-secret"
	adminKey   = "admin-secret"
	jwtSecret  = "test-secret"
)

type testServer struct {
	router *gin.Engine
	tokens *jwt.TokenService
}

func setupRouterWithDB(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	// Use a per-test in-memory database to avoid cross-test interference
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gormsql.Open("sqlite", dsn, logger.Silent)
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	webhookHash, err := bcrypt.GenerateFromPassword([]byte(webhookKey), bcrypt.MinCost)
	require.NoError(t, err)
	adminHash, err := bcrypt.GenerateFromPassword([]byte(adminKey), bcrypt.MinCost)
	require.NoError(t, err)

	cfg := &config.Config{
		Server:   config.ServerConfig{AllowedHosts: []string{"http://localhost:3000"}},
		Webhook:  config.KeyConfig{KeyHash: string(webhookHash)},
		Admin:    config.KeyConfig{KeyHash: string(adminHash)},
		Commerce: config.CommerceConfig{Currency: "EUR", MockAPI: true},
		Loyalty: config.LoyaltyConfig{
			PointsPerCurrencyUnit: 100,
			AccrualRate:           0.10,
			WelcomeBonusPoints:    1000,
			MinRedemptionPoints:   500,
			RedemptionTiers: []config.TierConfig{
				{PointsCost: 500, Value: 5},
				{PointsCost: 1000, Value: 10},
				{PointsCost: 2000, Value: 20},
			},
		},
	}

	svc := services.NewLoyaltyService(
		gormsql.NewProfileRepository(db),
		gormsql.NewLoyaltyTransactionRepository(db),
		gormsql.NewStore(db),
		commerce.NewClient(cfg.Commerce, nil),
		cfg.Loyalty,
	)
	tokens := jwt.NewTokenService(jwtSecret, "sushi-storefront")
	return &testServer{
		router: routes.SetupRouter(cfg, routes.Dependencies{Loyalty: svc, Tokens: tokens}),
		tokens: tokens,
	}
}

func (s *testServer) do(method, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != nil {
		b, _ := json.Marshal(body)
		req = httptest.NewRequest(method, path, bytes.NewReader(b))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *testServer) bearer(t *testing.T, email string) map[string]string {
	t.Helper()
	token, err := s.tokens.Issue("user-"+email, email, time.Hour)
	require.NoError(t, err)
	return map[string]string{"Authorization": "Bearer " + token}
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func webhookHeaders() map[string]string {
	return map[string]string{"X-API-Key": webhookKey}
}

func TestPublicRoutes(t *testing.T) {
	s := setupRouterWithDB(t)

	w := s.do("GET", "/api/v1/health", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NotEmpty(t, w.Header().Get("X-Request-ID"))

	w = s.do("GET", "/api/v1/loyalty/tiers", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	tiers := decode(t, w)["tiers"].([]interface{})
	require.Len(t, tiers, 3)

	w = s.do("GET", "/api/v1/loyalty/conversions?euros=2.555", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, float64(255), decode(t, w)["points"])

	w = s.do("GET", "/api/v1/loyalty/conversions?points=1234", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "12.34", decode(t, w)["euros"])

	w = s.do("GET", "/api/v1/loyalty/conversions", nil, nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
	w = s.do("GET", "/api/v1/loyalty/conversions?points=-4", nil, nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestOrderCompletedWebhook(t *testing.T) {
	s := setupRouterWithDB(t)
	payload := map[string]interface{}{
		"customerEmail":   "a@x.com",
		"orderTotal":      "20.00",
		"externalOrderId": "order-1",
	}

	w := s.do("POST", "/api/v1/webhooks/order-completed", payload, nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)
	w = s.do("POST", "/api/v1/webhooks/order-completed", payload, map[string]string{"X-API-Key": "wrong"})
	require.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do("POST", "/api/v1/webhooks/order-completed", payload, webhookHeaders())
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	require.Equal(t, true, body["success"])
	require.Equal(t, float64(200), body["pointsEarned"])
	require.Equal(t, false, body["duplicate"])

	w = s.do("POST", "/api/v1/webhooks/order-completed", payload, webhookHeaders())
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, true, decode(t, w)["duplicate"])

	w = s.do("POST", "/api/v1/webhooks/order-completed", map[string]interface{}{
		"customerEmail": "a@x.com", "orderTotal": -1, "externalOrderId": "order-2",
	}, webhookHeaders())
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do("POST", "/api/v1/webhooks/order-completed", map[string]interface{}{
		"customerEmail": "a@x.com", "externalOrderId": "order-3",
	}, webhookHeaders())
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestClaimAndProfile(t *testing.T) {
	s := setupRouterWithDB(t)

	w := s.do("POST", "/api/v1/webhooks/order-completed", map[string]interface{}{
		"customerEmail": "b@x.com", "orderTotal": 20, "externalOrderId": "order-1",
	}, webhookHeaders())
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do("POST", "/api/v1/loyalty/claim", nil, nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do("POST", "/api/v1/loyalty/claim", map[string]string{"email": "someone@else.com"}, s.bearer(t, "b@x.com"))
	require.Equal(t, http.StatusForbidden, w.Code)

	w = s.do("POST", "/api/v1/loyalty/claim", nil, s.bearer(t, "b@x.com"))
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	require.Equal(t, float64(1000), body["bonusGranted"])
	require.Equal(t, float64(200), body["pendingMerged"])

	w = s.do("GET", "/api/v1/loyalty/profile", nil, s.bearer(t, "b@x.com"))
	require.Equal(t, http.StatusOK, w.Code)
	body = decode(t, w)
	profile := body["profile"].(map[string]interface{})
	require.Equal(t, float64(1200), profile["loyaltyPoints"])
	require.Equal(t, "12", body["currencyValue"])

	w = s.do("GET", "/api/v1/loyalty/transactions", nil, s.bearer(t, "b@x.com"))
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, decode(t, w)["transactions"].([]interface{}), 3)

	w = s.do("GET", "/api/v1/loyalty/profile", nil, s.bearer(t, "ghost@x.com"))
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestRedemptionRoutes(t *testing.T) {
	s := setupRouterWithDB(t)
	auth := s.bearer(t, "c@x.com")

	w := s.do("POST", "/api/v1/loyalty/claim", map[string]string{"email": "C@x.com", "preferredRegion": "PT"}, auth)
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do("POST", "/api/v1/loyalty/redemptions", map[string]interface{}{"tierPointsCost": 2000, "tierValue": 20}, auth)
	require.Equal(t, http.StatusConflict, w.Code)
	body := decode(t, w)
	require.Equal(t, float64(1000), body["shortfall"])
	require.Contains(t, body["error"], "1000 more points")

	w = s.do("POST", "/api/v1/loyalty/redemptions", map[string]interface{}{"tierPointsCost": 500, "tierValue": 7}, auth)
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do("POST", "/api/v1/loyalty/redemptions", map[string]interface{}{"tierPointsCost": 500, "tierValue": "5"}, auth)
	require.Equal(t, http.StatusCreated, w.Code)
	body = decode(t, w)
	coupon := body["coupon"].(map[string]interface{})
	require.True(t, strings.HasPrefix(coupon["code"].(string), commerce.MockCodePrefix))
	require.Equal(t, float64(500), body["profile"].(map[string]interface{})["loyaltyPoints"])
}

func TestAdminRoutes(t *testing.T) {
	s := setupRouterWithDB(t)
	admin := map[string]string{"X-API-Key": adminKey}

	w := s.do("POST", "/api/v1/loyalty/claim", nil, s.bearer(t, "d@x.com"))
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do("GET", "/api/v1/admin/profiles/d@x.com", nil, webhookHeaders())
	require.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do("GET", "/api/v1/admin/profiles/d@x.com", nil, admin)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, float64(1000), decode(t, w)["loyaltyPoints"])

	w = s.do("GET", "/api/v1/admin/profiles/d@x.com/transactions", nil, admin)
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, decode(t, w)["transactions"].([]interface{}), 1)

	w = s.do("GET", "/api/v1/admin/profiles/d@x.com/reconciliation", nil, admin)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	require.Equal(t, true, body["balanced"])
	require.Equal(t, float64(1000), body["ledgerBalance"])

	w = s.do("GET", "/api/v1/admin/profiles/ghost@x.com/reconciliation", nil, admin)
	require.Equal(t, http.StatusNotFound, w.Code)
}
