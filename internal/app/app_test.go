package app

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"invita_backend/internal/auth"
	"invita_backend/internal/billing"
	"invita_backend/internal/billing/billingtest"
	"invita_backend/internal/config"
	"invita_backend/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type testServer struct {
	router *gin.Engine
	tokens *auth.TokenManager
	gw     *billingtest.FakeGateway
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.PaymentIntentRecord{},
		&models.UserSubscription{},
		&models.PaymentTransaction{},
		&models.WebhookEvent{},
	))

	cfg := &config.Config{}
	cfg.Server.Env = "test"
	cfg.JWT.Secret = "test-secret"
	cfg.JWT.TTL = 60

	gw := billingtest.NewFakeGateway()
	return &testServer{
		router: SetupRouter(cfg, db, gw),
		tokens: auth.NewTokenManager(cfg.JWT.Secret, cfg.JWT.TTL),
		gw:     gw,
	}
}

func (ts *testServer) request(t *testing.T, method, path, token string, body interface{}, headers map[string]string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)

	parsed := map[string]interface{}{}
	if rec.Body.Len() > 0 {
		_ = json.Unmarshal(rec.Body.Bytes(), &parsed)
	}
	return rec, parsed
}

func (ts *testServer) token(t *testing.T, userID string) string {
	t.Helper()
	token, err := ts.tokens.Generate(userID, userID+"@test.com")
	require.NoError(t, err)
	return token
}

func webhookBody(t *testing.T, eventID, eventType string, object map[string]interface{}) []byte {
	t.Helper()
	raw, err := json.Marshal(map[string]interface{}{
		"id":   eventID,
		"type": eventType,
		"data": map[string]interface{}{"object": object},
	})
	require.NoError(t, err)
	return raw
}

func TestHealthz(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t)
	rec, body := ts.request(t, "GET", "/healthz", "", nil, nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", body["status"])
}

func TestPlansEndpoint(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t)

	// Каталог публичный
	rec, _ := ts.request(t, "GET", "/api/v1/plans", "", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"premium"`)

	rec, body := ts.request(t, "GET", "/api/v1/plans/standard", "", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(9900), body["amount"])

	rec, _ = ts.request(t, "GET", "/api/v1/plans/enterprise", "", nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateIntent_RequiresAuth(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t)
	rec, _ := ts.request(t, "POST", "/api/v1/payments/intent", "", map[string]interface{}{
		"planId": "standard",
	}, nil)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCreateIntent_Validation(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t)
	token := ts.token(t, "u1")

	// Без email
	rec, _ := ts.request(t, "POST", "/api/v1/payments/intent", token, map[string]interface{}{
		"planId":       "standard",
		"customerInfo": map[string]interface{}{"name": "User"},
	}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Неизвестный план
	rec, _ = ts.request(t, "POST", "/api/v1/payments/intent", token, map[string]interface{}{
		"planId":       "enterprise",
		"customerInfo": map[string]interface{}{"email": "u1@test.com", "name": "User"},
	}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, ts.gw.IntentCalls())
}

func TestMethodNotAllowed(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t)
	rec, _ := ts.request(t, "DELETE", "/healthz", "", nil, nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

// TestPaymentLifecycle - полный сценарий: выпуск интента, webhook об
// успешной оплате, история платежей, активная подписка, расход лимита.
func TestPaymentLifecycle(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t)
	token := ts.token(t, "u42")

	// --- Шаг 1: Выпуск платежного интента ---
	rec, body := ts.request(t, "POST", "/api/v1/payments/intent", token, map[string]interface{}{
		"planId": "premium",
		"customerInfo": map[string]interface{}{
			"email": "u42@test.com",
			"name":  "User FortyTwo",
		},
	}, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	intentID, _ := body["paymentIntentId"].(string)
	customerID, _ := body["customerId"].(string)
	require.NotEmpty(t, intentID)
	require.NotEmpty(t, customerID)
	assert.NotEmpty(t, body["clientSecret"])

	// --- Шаг 2: Webhook с невалидной подписью отвергается ---
	payload := webhookBody(t, "evt_100", "payment_intent.succeeded", map[string]interface{}{
		"id":       intentID,
		"amount":   20000,
		"currency": "eur",
		"customer": customerID,
		"metadata": map[string]string{"user_id": "u42", "plan_id": "premium"},
	})
	req := httptest.NewRequest("POST", "/api/v1/webhooks/stripe", bytes.NewReader(payload))
	req.Header.Set("Stripe-Signature", "t=0,v1=bogus")
	recorder := httptest.NewRecorder()
	ts.router.ServeHTTP(recorder, req)
	assert.Equal(t, http.StatusBadRequest, recorder.Code)

	// --- Шаг 3: Валидный webhook активирует подписку ---
	req = httptest.NewRequest("POST", "/api/v1/webhooks/stripe", bytes.NewReader(payload))
	req.Header.Set("Stripe-Signature", billingtest.ValidSignature)
	recorder = httptest.NewRecorder()
	ts.router.ServeHTTP(recorder, req)
	require.Equal(t, http.StatusOK, recorder.Code, recorder.Body.String())
	assert.Contains(t, recorder.Body.String(), `"received":true`)

	// --- Шаг 4: История платежей ---
	rec, body = ts.request(t, "GET", "/api/v1/payments/history", token, nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	txns, _ := body["transactions"].([]interface{})
	require.Len(t, txns, 1)
	txn := txns[0].(map[string]interface{})
	assert.Equal(t, float64(20000), txn["amount"])
	assert.Equal(t, "eur", txn["currency"])
	assert.Equal(t, "completed", txn["status"])

	// --- Шаг 5: Подписка активна ---
	rec, body = ts.request(t, "GET", "/api/v1/subscriptions/my", token, nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "premium", body["plan"])
	assert.Equal(t, "active", body["status"])
	assert.Equal(t, float64(billing.InviteLimitUnlimited), body["invite_limit"])

	// --- Шаг 6: Расход приглашения ---
	rec, body = ts.request(t, "POST", "/api/v1/invites/use", token, nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(1), body["currentInvites"])

	// Чужой пользователь историю u42 не видит
	otherToken := ts.token(t, "u7")
	rec, body = ts.request(t, "GET", "/api/v1/payments/history", otherToken, nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	txns, _ = body["transactions"].([]interface{})
	assert.Empty(t, txns)
}
