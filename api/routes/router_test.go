package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/flashback-frames-backend/api/controllers"
	checkoutsvc "github.com/angelmondragon/flashback-frames-backend/internal/checkout"
	"github.com/angelmondragon/flashback-frames-backend/internal/orders"
	pkgAuth "github.com/angelmondragon/flashback-frames-backend/pkg/auth"
	"github.com/angelmondragon/flashback-frames-backend/pkg/config"
	"github.com/angelmondragon/flashback-frames-backend/pkg/enums"
	"github.com/angelmondragon/flashback-frames-backend/pkg/logger"
	"github.com/angelmondragon/flashback-frames-backend/pkg/outbox"
	"github.com/angelmondragon/flashback-frames-backend/pkg/types"
)

type stubPinger struct{ err error }

func (s stubPinger) Ping(context.Context) error { return s.err }

type stubSessions struct{}

func (stubSessions) HasSession(context.Context, string) (bool, error) { return true, nil }

type memIdempotency struct{ data map[string]string }

func (m *memIdempotency) Get(_ context.Context, key string) (string, error) {
	if v, ok := m.data[key]; ok {
		return v, nil
	}
	return "", goredis.Nil
}

func (m *memIdempotency) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	if _, ok := m.data[key]; ok {
		return false, nil
	}
	m.data[key] = value.(string)
	return true, nil
}

func (m *memIdempotency) IdempotencyKey(scope, id string) string { return scope + "|" + id }

func (m *memIdempotency) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

type stubOrders struct {
	orders.Service
	tracked     string
	statusCalls int
	statusActor *outbox.ActorRef
}

func (s *stubOrders) Track(_ context.Context, identifier string) (*orders.OrderDTO, error) {
	s.tracked = identifier
	return &orders.OrderDTO{OrderID: identifier, Status: enums.OrderStatusReceived}, nil
}

func (s *stubOrders) UpdateStatus(_ context.Context, ref, status string, actor *outbox.ActorRef) (*orders.OrderDTO, error) {
	s.statusCalls++
	s.statusActor = actor
	return &orders.OrderDTO{OrderID: ref, Status: enums.OrderStatus(status)}, nil
}

type stubCheckout struct {
	checkoutsvc.Service
	placed    int
	callbacks int
}

func (s *stubCheckout) PlaceCOD(_ context.Context, input checkoutsvc.CheckoutInput) (*orders.OrderDTO, error) {
	s.placed++
	return &orders.OrderDTO{OrderID: "FF-ABC123", CustomerName: input.Contact.CustomerName}, nil
}

func (s *stubCheckout) HandleRedirectCallback(context.Context, []byte, string) (*checkoutsvc.CallbackResult, error) {
	s.callbacks++
	return &checkoutsvc.CallbackResult{Outcome: checkoutsvc.CallbackUnknown}, nil
}

func testConfig() *config.Config {
	return &config.Config{
		App:      config.AppConfig{Env: "dev"},
		JWT:      config.JWTConfig{Secret: "secret", Issuer: "flashback-frames", ExpirationMinutes: 60},
		Media:    config.MediaConfig{MaxImageMB: 1},
		Checkout: config.CheckoutConfig{MaxItems: 20},
	}
}

type fixture struct {
	handler     http.Handler
	orders      *stubOrders
	checkout    *stubCheckout
	idempotency *memIdempotency
}

func newFixture(t *testing.T, health map[string]controllers.Pinger) *fixture {
	t.Helper()
	f := &fixture{
		orders:      &stubOrders{},
		checkout:    &stubCheckout{},
		idempotency: &memIdempotency{data: map[string]string{}},
	}
	f.handler = NewRouter(testConfig(), logger.New(logger.Options{ServiceName: "test", Output: io.Discard}), Dependencies{
		Health:      health,
		Sessions:    stubSessions{},
		Idempotency: f.idempotency,
		Orders:      f.orders,
		Checkout:    f.checkout,
	})
	return f
}

func adminToken(t *testing.T) string {
	t.Helper()
	token, err := pkgAuth.MintAccessToken(testConfig().JWT, time.Now(), pkgAuth.AccessTokenPayload{
		UserID: uuid.New(),
		Role:   enums.UserRoleAdmin,
		JTI:    uuid.NewString(),
	})
	require.NoError(t, err)
	return token
}

func codForm(t *testing.T) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("customerName", "Asha Rao"))
	require.NoError(t, mw.WriteField("mobile", "9876543210"))
	require.NoError(t, mw.WriteField("address", "12 MG Road, Pune"))
	require.NoError(t, mw.WriteField("items", `[{"productId":"`+uuid.NewString()+`","quantity":1}]`))
	fw, err := mw.CreateFormFile("images", "photo.png")
	require.NoError(t, err)
	_, err = fw.Write([]byte("png-bytes"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &body, mw.FormDataContentType()
}

func TestHealthEndpoints(t *testing.T) {
	f := newFixture(t, map[string]controllers.Pinger{"db": stubPinger{}, "redis": stubPinger{}})

	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	f.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHealthReadyReportsFailedDependency(t *testing.T) {
	f := newFixture(t, map[string]controllers.Pinger{"db": stubPinger{err: errors.New("down")}})

	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestAdminRoutesRequireBearer(t *testing.T) {
	f := newFixture(t, nil)
	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/api/orders"},
		{http.MethodPut, "/api/orders/FF-ABC123/status"},
		{http.MethodDelete, "/api/orders/FF-ABC123"},
		{http.MethodPost, "/api/products"},
		{http.MethodGet, "/api/admin/products"},
	} {
		rec := httptest.NewRecorder()
		f.handler.ServeHTTP(rec, httptest.NewRequest(tc.method, tc.path, nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code, "%s %s", tc.method, tc.path)
	}
}

func TestAdminStatusUpdateCarriesActor(t *testing.T) {
	f := newFixture(t, nil)
	req := httptest.NewRequest(http.MethodPut, "/api/orders/FF-ABC123/status", bytes.NewBufferString(`{"status":"Printing"}`))
	req.Header.Set("Authorization", "Bearer "+adminToken(t))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 1, f.orders.statusCalls)
	require.NotNil(t, f.orders.statusActor)
	assert.Equal(t, string(enums.UserRoleAdmin), f.orders.statusActor.Role)
}

func TestTrackIsPublic(t *testing.T) {
	f := newFixture(t, nil)
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/orders/track/FF-ABC123", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "FF-ABC123", f.orders.tracked)
}

func TestCODOrderRequiresIdempotencyKeyAndReplays(t *testing.T) {
	f := newFixture(t, nil)

	body, contentType := codForm(t)
	req := httptest.NewRequest(http.MethodPost, "/api/orders", bytes.NewReader(body.Bytes()))
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, f.checkout.placed)

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/orders", bytes.NewReader(body.Bytes()))
		req.Header.Set("Content-Type", contentType)
		req.Header.Set("Idempotency-Key", "checkout-1")
		rec := httptest.NewRecorder()
		f.handler.ServeHTTP(rec, req)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		var env types.SuccessEnvelope
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
		assert.True(t, env.Success)
	}
	assert.Equal(t, 1, f.checkout.placed)
}

func TestCallbackNeedsNoIdempotencyKey(t *testing.T) {
	f := newFixture(t, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/payment/phonepe/callback", bytes.NewBufferString(`{"response":"e30="}`))
	req.Header.Set("X-VERIFY", "abc###1")
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, f.checkout.callbacks)
}
