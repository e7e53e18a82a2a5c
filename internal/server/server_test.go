package server

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	analysisdomain "github.com/unselab/saju/internal/analysis/domain"
	"github.com/unselab/saju/internal/analysis/redact"
	analysisrepository "github.com/unselab/saju/internal/analysis/repository"
	analysisservice "github.com/unselab/saju/internal/analysis/service"
	"github.com/unselab/saju/internal/clock"
	"github.com/unselab/saju/internal/config"
	entitlementdomain "github.com/unselab/saju/internal/entitlement/domain"
	entitlementrepository "github.com/unselab/saju/internal/entitlement/repository"
	entitlementservice "github.com/unselab/saju/internal/entitlement/service"
	"github.com/unselab/saju/internal/identity"
	ledgerdomain "github.com/unselab/saju/internal/ledger/domain"
	ledgerservice "github.com/unselab/saju/internal/ledger/service"
	"github.com/unselab/saju/internal/payment/adapters"
	"github.com/unselab/saju/internal/payment/adapters/toss"
	paymentdomain "github.com/unselab/saju/internal/payment/domain"
	paymentrepository "github.com/unselab/saju/internal/payment/repository"
	paymentservice "github.com/unselab/saju/internal/payment/service"
	paymentwebhook "github.com/unselab/saju/internal/payment/webhook"
	referraldomain "github.com/unselab/saju/internal/referral/domain"
	referralservice "github.com/unselab/saju/internal/referral/service"
	subscriptiondomain "github.com/unselab/saju/internal/subscription/domain"
	subscriptionservice "github.com/unselab/saju/internal/subscription/service"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type noAdmins struct{}

func (noAdmins) Privileged(string) bool { return false }

type fakeAdapter struct {
	confirms int
}

func (a *fakeAdapter) Provider() string { return "fakepay" }

func (a *fakeAdapter) Confirm(context.Context, string, string, int64) (paymentdomain.ConfirmResult, error) {
	a.confirms++
	return paymentdomain.ConfirmResult{OK: true, Method: "card"}, nil
}

func (a *fakeAdapter) Verify([]byte, http.Header) error { return nil }

func (a *fakeAdapter) Parse([]byte) (*paymentdomain.Event, error) {
	return nil, paymentdomain.ErrInvalidPayload
}

type fixture struct {
	server *Server
	ent    entitlementdomain.Service
	pay    paymentdomain.Service
	clock  *clock.FakeClock
	db     *gorm.DB
	cfg    config.Config
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&entitlementdomain.PointAccount{},
		&entitlementdomain.FreeUsage{},
		&ledgerdomain.Transaction{},
		&analysisdomain.Record{},
		&analysisdomain.Voucher{},
		&paymentdomain.Payment{},
		&subscriptiondomain.Subscription{},
		&subscriptiondomain.MemberProfile{},
		&referraldomain.Referral{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	logger := zap.NewNop()
	fake := clock.NewFakeClock(time.Date(2025, 7, 1, 8, 0, 0, 0, time.UTC))
	cfg := config.Config{
		FreeAnalysisLimit: 3,
		Toss:              config.TossConfig{SecretKey: "sk_test", WebhookSecret: "whsec_test"},
		Referral:          config.ReferralConfig{CommissionRate: 0.20, FlatBonus: 500},
	}

	ledgerSvc := ledgerservice.NewService(ledgerservice.Params{DB: db, Log: logger, Clock: fake, GenID: node})
	entSvc := entitlementservice.NewService(entitlementservice.Params{
		Config:     cfg,
		DB:         db,
		Log:        logger,
		Clock:      fake,
		Repo:       entitlementrepository.Provide(),
		Ledger:     ledgerSvc,
		Authorizer: noAdmins{},
	})
	analysisSvc := analysisservice.NewService(analysisservice.Params{
		Log:         logger,
		Clock:       fake,
		GenID:       node,
		Repo:        analysisrepository.NewRepository(db),
		Entitlement: entSvc,
	})
	subSvc := subscriptionservice.NewService(subscriptionservice.Params{
		DB: db, Log: logger, Clock: fake, GenID: node,
	})
	refSvc := referralservice.NewService(referralservice.Params{
		Config: cfg, DB: db, Log: logger, Clock: fake, GenID: node, Entitlement: entSvc,
	})

	registry := adapters.NewRegistry(adapters.Params{Adapters: []paymentdomain.Adapter{
		&fakeAdapter{},
		toss.NewAdapter(cfg),
	}})
	paySvc := paymentservice.NewService(paymentservice.Params{
		Log:          logger,
		Clock:        fake,
		Repo:         paymentrepository.NewRepository(paymentrepository.Params{DB: db, Clock: fake}),
		Registry:     registry,
		Entitlement:  entSvc,
		Subscription: subSvc,
		Referral:     refSvc,
	})
	webhookSvc := paymentwebhook.NewService(paymentwebhook.Params{
		Log:      logger,
		Registry: registry,
		Payments: paySvc,
	})

	engine := gin.New()
	engine.Use(ErrorHandlingMiddleware())

	srv := NewServer(ServerParams{
		Gin:             engine,
		Cfg:             cfg,
		Log:             logger,
		AnalysisSvc:     analysisSvc,
		EntitlementSvc:  entSvc,
		PaymentSvc:      paySvc,
		WebhookSvc:      webhookSvc,
		ReferralSvc:     refSvc,
		SubscriptionSvc: subSvc,
	})

	return &fixture{server: srv, ent: entSvc, pay: paySvc, clock: fake, db: db, cfg: cfg}
}

func (f *fixture) request(t *testing.T, method, path, userID string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		req.Header.Set(identity.HeaderUserID, userID)
		req.Header.Set(identity.HeaderUserEmail, userID+"@example.com")
	}
	rec := httptest.NewRecorder()
	f.server.Engine().ServeHTTP(rec, req)
	return rec
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func analysisBody() map[string]any {
	return map[string]any{
		"name":       "Alice",
		"birth_date": "1990-05-15T00:00:00Z",
		"birth_time": map[string]any{"hour": 14, "minute": 30},
		"gender":     "F",
		"tier":       "basic",
	}
}

func TestAnalysesRequireIdentity(t *testing.T) {
	f := newFixture(t)

	rec := f.request(t, http.MethodPost, "/api/v1/analyses", "", analysisBody())

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	body := decodeResponse(t, rec)
	assert.Equal(t, "unauthorized", body["error"].(map[string]any)["type"])
}

func TestCreateAnalysisFreeTierBlinded(t *testing.T) {
	f := newFixture(t)

	rec := f.request(t, http.MethodPost, "/api/v1/analyses", "user-1", analysisBody())

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	data := decodeResponse(t, rec)["data"].(map[string]any)
	meta := data["meta"].(map[string]any)
	assert.True(t, meta["is_blinded"].(bool))
	assert.Equal(t, "free", meta["access_mode"])
	assert.Equal(t, float64(2), meta["free_analysis_status"].(map[string]any)["remaining"])

	result := data["result"].(map[string]any)
	assert.Equal(t, redact.LockedSentinel, result["wealth_advice"])
	general := result["general_advice"].(string)
	assert.NotEqual(t, redact.LockedSentinel, general)
	assert.Contains(t, general, redact.LockedSentinel)
	assert.NotEmpty(t, result["chart"].(map[string]any)["day"])
}

func TestCreateAnalysisValidation(t *testing.T) {
	f := newFixture(t)

	body := analysisBody()
	delete(body, "birth_date")
	rec := f.request(t, http.MethodPost, "/api/v1/analyses", "user-1", body)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	payload := decodeResponse(t, rec)["error"].(map[string]any)
	assert.Equal(t, "validation_error", payload["type"])
	errs := payload["errors"].([]any)
	require.Len(t, errs, 1)
	assert.Equal(t, "missing_birth_date", errs[0].(map[string]any)["code"])
}

func TestGetAnalysisOwnershipFiltered(t *testing.T) {
	f := newFixture(t)

	rec := f.request(t, http.MethodPost, "/api/v1/analyses", "user-1", analysisBody())
	require.Equal(t, http.StatusOK, rec.Code)
	meta := decodeResponse(t, rec)["data"].(map[string]any)["meta"].(map[string]any)
	id := meta["analysis_id"].(string)

	owner := f.request(t, http.MethodGet, "/api/v1/analyses/"+id, "user-1", nil)
	assert.Equal(t, http.StatusOK, owner.Code)

	stranger := f.request(t, http.MethodGet, "/api/v1/analyses/"+id, "user-2", nil)
	assert.Equal(t, http.StatusNotFound, stranger.Code)
}

func TestUnblindInsufficientPoints(t *testing.T) {
	f := newFixture(t)

	rec := f.request(t, http.MethodPost, "/api/v1/analyses", "user-1", analysisBody())
	require.Equal(t, http.StatusOK, rec.Code)
	id := decodeResponse(t, rec)["data"].(map[string]any)["meta"].(map[string]any)["analysis_id"].(string)

	unblind := f.request(t, http.MethodPost, "/api/v1/analyses/"+id+"/unblind", "user-1", nil)

	assert.Equal(t, http.StatusPaymentRequired, unblind.Code)
	payload := decodeResponse(t, unblind)["error"].(map[string]any)
	assert.Equal(t, "INSUFFICIENT_POINTS", payload["type"])
	assert.Equal(t, float64(300), payload["shortage"])
}

func TestUnblindWithPoints(t *testing.T) {
	f := newFixture(t)
	_, err := f.ent.CreditPoints(context.Background(), "user-1", 1000, "admin_grant", "grant-1", "test grant")
	require.NoError(t, err)

	rec := f.request(t, http.MethodPost, "/api/v1/analyses", "user-1", analysisBody())
	require.Equal(t, http.StatusOK, rec.Code)
	id := decodeResponse(t, rec)["data"].(map[string]any)["meta"].(map[string]any)["analysis_id"].(string)

	unblind := f.request(t, http.MethodPost, "/api/v1/analyses/"+id+"/unblind", "user-1", nil)

	require.Equal(t, http.StatusOK, unblind.Code, unblind.Body.String())
	data := decodeResponse(t, unblind)["data"].(map[string]any)
	assert.False(t, data["meta"].(map[string]any)["is_blinded"].(bool))
	assert.NotEqual(t, redact.LockedSentinel, data["result"].(map[string]any)["wealth_advice"])

	balance, err := f.ent.PointBalance(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, int64(700), balance)
}

func TestGroupCompatibility(t *testing.T) {
	f := newFixture(t)

	body := map[string]any{"members": []map[string]any{
		{"name": "Alice", "birth_date": "1990-05-15T00:00:00Z"},
		{"name": "Bob", "birth_date": "1992-11-03T00:00:00Z"},
	}}
	rec := f.request(t, http.MethodPost, "/api/v1/compatibility/group", "user-1", body)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	data := decodeResponse(t, rec)["data"].(map[string]any)
	assert.Len(t, data["members"], 2)
}

func TestGroupCompatibilitySizeRejected(t *testing.T) {
	f := newFixture(t)

	body := map[string]any{"members": []map[string]any{
		{"name": "Alice", "birth_date": "1990-05-15T00:00:00Z"},
	}}
	rec := f.request(t, http.MethodPost, "/api/v1/compatibility/group", "user-1", body)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	payload := decodeResponse(t, rec)["error"].(map[string]any)
	errs := payload["errors"].([]any)
	require.Len(t, errs, 1)
	assert.Equal(t, "invalid_group_size", errs[0].(map[string]any)["code"])
}

func TestCheckoutAndConfirmCreditsPoints(t *testing.T) {
	f := newFixture(t)

	rec := f.request(t, http.MethodPost, "/api/v1/payments", "user-1", map[string]any{
		"type":         "point",
		"reference_id": "point_basic",
		"amount":       10000,
		"provider":     "fakepay",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	orderID := decodeResponse(t, rec)["data"].(map[string]any)["order_id"].(string)

	confirm := f.request(t, http.MethodPost, "/api/v1/payments/confirm", "user-1", map[string]any{
		"payment_key": "pay_key_1",
		"order_id":    orderID,
		"amount":      10000,
	})
	require.Equal(t, http.StatusOK, confirm.Code, confirm.Body.String())
	data := decodeResponse(t, confirm)["data"].(map[string]any)
	assert.Equal(t, "fulfilled", data["outcome"])

	balance, err := f.ent.PointBalance(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, int64(1100), balance)
}

func TestGetPaymentOwnershipFiltered(t *testing.T) {
	f := newFixture(t)

	rec := f.request(t, http.MethodPost, "/api/v1/payments", "user-1", map[string]any{
		"type":         "point",
		"reference_id": "point_basic",
		"amount":       10000,
		"provider":     "fakepay",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	orderID := decodeResponse(t, rec)["data"].(map[string]any)["order_id"].(string)

	owner := f.request(t, http.MethodGet, "/api/v1/payments/"+orderID, "user-1", nil)
	require.Equal(t, http.StatusOK, owner.Code, owner.Body.String())
	data := decodeResponse(t, owner)["data"].(map[string]any)
	assert.Equal(t, "pending", data["status"])
	assert.Equal(t, float64(10000), data["amount"])

	stranger := f.request(t, http.MethodGet, "/api/v1/payments/"+orderID, "user-2", nil)
	assert.Equal(t, http.StatusNotFound, stranger.Code)
}

func TestConfirmAmountMismatch(t *testing.T) {
	f := newFixture(t)

	rec := f.request(t, http.MethodPost, "/api/v1/payments", "user-1", map[string]any{
		"type":         "point",
		"reference_id": "point_basic",
		"amount":       10000,
		"provider":     "fakepay",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	orderID := decodeResponse(t, rec)["data"].(map[string]any)["order_id"].(string)

	confirm := f.request(t, http.MethodPost, "/api/v1/payments/confirm", "user-1", map[string]any{
		"payment_key": "pay_key_1",
		"order_id":    orderID,
		"amount":      999,
	})

	assert.Equal(t, http.StatusBadRequest, confirm.Code)
	assert.Equal(t, "amount_mismatch", decodeResponse(t, confirm)["error"].(map[string]any)["type"])
}

func TestRegisterReferral(t *testing.T) {
	f := newFixture(t)

	rec := f.request(t, http.MethodPost, "/api/v1/referrals", "user-2", map[string]any{
		"referrer_id": "user-1",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	self := f.request(t, http.MethodPost, "/api/v1/referrals", "user-1", map[string]any{
		"referrer_id": "user-1",
	})
	assert.Equal(t, http.StatusBadRequest, self.Code)
}

func TestMembershipSummary(t *testing.T) {
	f := newFixture(t)
	_, err := f.ent.CreditPoints(context.Background(), "user-1", 250, "admin_grant", "grant-1", "test grant")
	require.NoError(t, err)

	rec := f.request(t, http.MethodGet, "/api/v1/me/membership", "user-1", nil)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	data := decodeResponse(t, rec)["data"].(map[string]any)
	assert.Equal(t, float64(250), data["point_balance"])
	assert.Equal(t, float64(3), data["free_analysis_status"].(map[string]any)["remaining"])
	_, hasSub := data["subscription"]
	assert.False(t, hasSub)
}

func tossSignature(secret string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	f := newFixture(t)

	payload := []byte(`{"eventType":"PAYMENT_STATUS_CHANGED","data":{"paymentKey":"pk","orderId":"oid","status":"DONE","totalAmount":1000}}`)
	req := httptest.NewRequest(http.MethodPost, "/webhooks/payments/toss", bytes.NewReader(payload))
	req.Header.Set("Toss-Signature", "bm90LXRoZS1zaWduYXR1cmU=")
	rec := httptest.NewRecorder()
	f.server.Engine().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "invalid_signature", decodeResponse(t, rec)["error"].(map[string]any)["type"])
}

func TestWebhookCompletesPendingPayment(t *testing.T) {
	f := newFixture(t)

	payment, err := f.pay.CreateCheckout(context.Background(), "user-1", paymentdomain.TypePoint, "point_basic", 10000, "KRW", "toss")
	require.NoError(t, err)

	payload := []byte(fmt.Sprintf(
		`{"eventType":"PAYMENT_STATUS_CHANGED","data":{"paymentKey":"pk_1","orderId":%q,"status":"DONE","totalAmount":10000}}`,
		payment.ID,
	))
	req := httptest.NewRequest(http.MethodPost, "/webhooks/payments/toss", bytes.NewReader(payload))
	req.Header.Set("Toss-Signature", tossSignature(f.cfg.Toss.WebhookSecret, payload))
	rec := httptest.NewRecorder()
	f.server.Engine().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.True(t, decodeResponse(t, rec)["received"].(bool))

	balance, err := f.ent.PointBalance(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, int64(1100), balance)
}
