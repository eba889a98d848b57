package razorpay

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/flashback-frames-backend/internal/payments"
	"github.com/angelmondragon/flashback-frames-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/flashback-frames-backend/pkg/errors"
)

const (
	testKeyID  = "rzp_test_key"
	testSecret = "rzp_test_secret"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client, err := New(config.RazorpayConfig{KeyID: testKeyID, KeySecret: testSecret, BaseURL: srv.URL},
		WithClock(func() time.Time { return time.UnixMilli(1700000000000) }))
	require.NoError(t, err)
	return client
}

func TestSignatureIsDeterministic(t *testing.T) {
	a := Signature(testSecret, "order_1", "pay_1")
	b := Signature(testSecret, "order_1", "pay_1")
	assert.Equal(t, a, b)
	assert.Len(t, a, 64)
	assert.NotEqual(t, a, Signature(testSecret, "order_1", "pay_2"))
	assert.NotEqual(t, a, Signature("other", "order_1", "pay_1"))
}

func TestVerifyRejectsAnySingleCharacterMutation(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("no gateway call expected, got %s", r.URL.Path)
	})
	good := Signature(testSecret, "order_1", "pay_1")
	require.NoError(t, client.Verify(context.Background(), payments.HostedProof{SessionID: "order_1", PaymentID: "pay_1", Signature: good}, 0))

	for i := range good {
		mutated := []byte(good)
		if mutated[i] == '0' {
			mutated[i] = '1'
		} else {
			mutated[i] = '0'
		}
		err := client.Verify(context.Background(), payments.HostedProof{SessionID: "order_1", PaymentID: "pay_1", Signature: string(mutated)}, 0)
		if !errors.Is(err, payments.ErrSignatureMismatch) {
			t.Fatalf("mutation at %d accepted: %v", i, err)
		}
	}
}

func TestVerifyRequiresCompleteProof(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {})
	err := client.Verify(context.Background(), payments.HostedProof{SessionID: "order_1", Signature: "x"}, 0)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	assert.False(t, errors.Is(err, payments.ErrSignatureMismatch))
}

func TestVerifyComparesSessionAmount(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/orders/order_1", r.URL.Path)
		_, _ = w.Write([]byte(`{"id":"order_1","amount":110000,"currency":"INR","status":"attempted"}`))
	})
	proof := payments.HostedProof{SessionID: "order_1", PaymentID: "pay_1", Signature: Signature(testSecret, "order_1", "pay_1")}

	require.NoError(t, client.Verify(context.Background(), proof, 110000))

	err := client.Verify(context.Background(), proof, 100000)
	require.True(t, errors.Is(err, payments.ErrAmountMismatch), "got %v", err)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestCreateSession(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/orders", r.URL.Path)
		user, pass, ok := r.BasicAuth()
		require.True(t, ok)
		assert.Equal(t, testKeyID, user)
		assert.Equal(t, testSecret, pass)

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.EqualValues(t, 110000, body["amount"])
		assert.Equal(t, "INR", body["currency"])
		assert.Equal(t, "receipt_1700000000000", body["receipt"])

		_, _ = w.Write([]byte(`{"id":"order_9","amount":110000,"currency":"INR","receipt":"receipt_1700000000000","status":"created"}`))
	})

	session, err := client.CreateSession(context.Background(), payments.SessionRequest{AmountMinor: 110000})
	require.NoError(t, err)
	assert.Equal(t, "order_9", session.ID)
	assert.EqualValues(t, 110000, session.AmountMinor)
	assert.Equal(t, testKeyID, session.KeyID)

	_, err = client.CreateSession(context.Background(), payments.SessionRequest{})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestGatewayFailureIsDependencyError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`upstream down`))
	})
	_, err := client.CreateSession(context.Background(), payments.SessionRequest{AmountMinor: 100})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))
	assert.True(t, strings.Contains(errors.Unwrap(err).Error(), "status 502"))
}

func TestCheckStatusReturnsCapturedPayment(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/orders/order_1":
			_, _ = w.Write([]byte(`{"id":"order_1","amount":500,"status":"paid"}`))
		case "/orders/order_1/payments":
			_, _ = w.Write([]byte(`{"items":[{"id":"pay_f","status":"failed"},{"id":"pay_ok","status":"captured"}]}`))
		default:
			http.NotFound(w, r)
		}
	})
	res, err := client.CheckStatus(context.Background(), "order_1")
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "pay_ok", res.PaymentID)
}

func TestUnsupportedRedirect(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {})
	_, err := client.InitiateRedirect(context.Background(), payments.RedirectRequest{})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestNewRequiresCredentials(t *testing.T) {
	_, err := New(config.RazorpayConfig{KeyID: "k"})
	require.Error(t, err)
}
