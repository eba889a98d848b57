package storefront

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/flashback-frames-backend/api/responses"
	"github.com/angelmondragon/flashback-frames-backend/pkg/cart"
	pkgerrors "github.com/angelmondragon/flashback-frames-backend/pkg/errors"
)

var shopper = Contact{
	CustomerName: "Asha Rao",
	Mobile:       "+91 98765-43210",
	Address:      "12 MG Road, Pune",
}

type recorder struct {
	mu   sync.Mutex
	hits map[string]int
}

func (r *recorder) hit(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hits[path]++
}

func (r *recorder) count(path string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.hits[path]
}

func newServer(t *testing.T, routes map[string]http.HandlerFunc) (*Client, *recorder) {
	t.Helper()
	rec := &recorder{hits: map[string]int{}}
	mux := http.NewServeMux()
	for pattern, h := range routes {
		h := h
		path := pattern
		mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
			rec.hit(path)
			h(w, r)
		})
	}
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	client, err := NewClient(srv.URL, WithHTTPClient(srv.Client()))
	require.NoError(t, err)
	return client, rec
}

func filledCart(t *testing.T) (*cart.Cart, *cart.MemoryStore) {
	t.Helper()
	store := cart.NewMemoryStore()
	c, err := cart.New(context.Background(), store)
	require.NoError(t, err)
	_, err = c.Add(context.Background(), cart.Item{
		ProductID: uuid.New(),
		Name:      "Classic Frame",
		Price:     decimal.NewFromInt(500),
		Size:      "8x10",
		Quantity:  1,
		Image:     &cart.Image{FileName: "first.png", ContentType: "image/png", Data: []byte("first")},
	})
	require.NoError(t, err)
	_, err = c.Add(context.Background(), cart.Item{
		ProductID: uuid.New(),
		Name:      "Collage",
		Price:     decimal.NewFromInt(300),
		Quantity:  2,
		Image:     &cart.Image{FileName: "second.jpg", ContentType: "image/jpeg", Data: []byte("second")},
	})
	require.NoError(t, err)
	return c, store
}

func placedOrder(paid bool) Order {
	status := "Pending"
	if paid {
		status = "Paid"
	}
	return Order{OrderID: "FF-1A2B3C", TotalPrice: decimal.NewFromInt(1100), PaymentStatus: status}
}

func TestPlaceCashOnDeliverySendsMultipartAndClearsCart(t *testing.T) {
	c, _ := filledCart(t)
	client, rec := newServer(t, map[string]http.HandlerFunc{
		"/api/orders": func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.NotEmpty(t, r.Header.Get("Idempotency-Key"))
			require.NoError(t, r.ParseMultipartForm(1<<20))
			assert.Equal(t, "COD", r.FormValue("paymentMethod"))
			assert.Equal(t, "Asha Rao", r.FormValue("customerName"))

			var items []map[string]any
			require.NoError(t, json.Unmarshal([]byte(r.FormValue("items")), &items))
			require.Len(t, items, 2)
			assert.Equal(t, "8x10", items[0]["size"])
			assert.EqualValues(t, 2, items[1]["quantity"])
			assert.NotContains(t, items[0], "price")

			files := r.MultipartForm.File["images"]
			require.Len(t, files, 2)
			assert.Equal(t, "first.png", files[0].Filename)
			assert.Equal(t, "second.jpg", files[1].Filename)

			responses.WriteSuccessStatus(w, http.StatusCreated, placedOrder(false))
		},
	})
	co, err := NewCheckout(client, c)
	require.NoError(t, err)

	order, err := co.PlaceCashOnDelivery(context.Background(), shopper)
	require.NoError(t, err)
	assert.Equal(t, "FF-1A2B3C", order.OrderID)
	assert.True(t, order.TotalPrice.Equal(decimal.NewFromInt(1100)))
	assert.Equal(t, 1, rec.count("/api/orders"))
	assert.True(t, c.IsEmpty())
}

func TestPlaceCashOnDeliveryKeepsCartOnAPIError(t *testing.T) {
	c, _ := filledCart(t)
	client, _ := newServer(t, map[string]http.HandlerFunc{
		"/api/orders": func(w http.ResponseWriter, r *http.Request) {
			responses.WriteError(r.Context(), nil, w, pkgerrors.New(pkgerrors.CodeNotFound, "product not available"))
		},
	})
	co, err := NewCheckout(client, c)
	require.NoError(t, err)

	_, err = co.PlaceCashOnDelivery(context.Background(), shopper)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
	assert.Equal(t, string(pkgerrors.CodeNotFound), apiErr.Code)
	assert.Equal(t, "product not available", apiErr.Message)
	assert.Equal(t, 3, c.Count())
}

func TestCheckoutValidatesBeforeAnyRequest(t *testing.T) {
	client, rec := newServer(t, map[string]http.HandlerFunc{
		"/api/orders": func(w http.ResponseWriter, r *http.Request) {
			responses.WriteSuccessStatus(w, http.StatusCreated, placedOrder(false))
		},
	})

	empty, err := cart.New(context.Background(), cart.NewMemoryStore())
	require.NoError(t, err)
	co, err := NewCheckout(client, empty)
	require.NoError(t, err)
	_, err = co.PlaceCashOnDelivery(context.Background(), shopper)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	c, _ := filledCart(t)
	items := c.Items()
	require.True(t, c.BindImage(items[1].ID, nil))
	co, err = NewCheckout(client, c)
	require.NoError(t, err)
	_, err = co.PlaceCashOnDelivery(context.Background(), shopper)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	assert.Contains(t, err.Error(), "image")

	c, _ = filledCart(t)
	co, err = NewCheckout(client, c)
	require.NoError(t, err)
	_, err = co.PlaceCashOnDelivery(context.Background(), Contact{CustomerName: "Asha", Mobile: "12345", Address: "Pune"})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	assert.Zero(t, rec.count("/api/orders"))
}

type scriptedWidget struct {
	proof   HostedProof
	err     error
	session HostedSession
}

func (w *scriptedWidget) Open(_ context.Context, session HostedSession) (HostedProof, error) {
	w.session = session
	return w.proof, w.err
}

func hostedSessionHandler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Amount decimal.Decimal `json:"amount"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.True(t, body.Amount.Equal(decimal.NewFromInt(1100)), "amount %s", body.Amount)
		responses.WriteSuccess(w, HostedSession{SessionID: "order_abc", Amount: 110000, Currency: "INR", KeyID: "rzp_test"})
	}
}

func TestPayHostedDismissedSendsNoOrder(t *testing.T) {
	for _, widgetErr := range []error{ErrPaymentDismissed, ErrPaymentFailed} {
		c, _ := filledCart(t)
		client, rec := newServer(t, map[string]http.HandlerFunc{
			"/api/payment/create-order": hostedSessionHandler(t),
			"/api/payment/verify-and-create": func(w http.ResponseWriter, r *http.Request) {
				responses.WriteSuccessStatus(w, http.StatusCreated, placedOrder(true))
			},
		})
		co, err := NewCheckout(client, c)
		require.NoError(t, err)
		widget := &scriptedWidget{err: widgetErr}

		_, err = co.PayHosted(context.Background(), shopper, widget)
		require.ErrorIs(t, err, widgetErr)
		assert.Equal(t, int64(110000), widget.session.Amount)
		assert.Zero(t, rec.count("/api/payment/verify-and-create"))
		assert.Equal(t, 3, c.Count())
	}
}

func TestPayHostedSubmitsProofAndClearsCart(t *testing.T) {
	c, _ := filledCart(t)
	client, _ := newServer(t, map[string]http.HandlerFunc{
		"/api/payment/create-order": hostedSessionHandler(t),
		"/api/payment/verify-and-create": func(w http.ResponseWriter, r *http.Request) {
			assert.NotEmpty(t, r.Header.Get("Idempotency-Key"))
			require.NoError(t, r.ParseMultipartForm(1<<20))
			assert.Equal(t, "order_abc", r.FormValue("razorpay_order_id"))
			assert.Equal(t, "pay_123", r.FormValue("razorpay_payment_id"))
			assert.Equal(t, "sig", r.FormValue("razorpay_signature"))
			assert.Len(t, r.MultipartForm.File["images"], 2)
			responses.WriteSuccessStatus(w, http.StatusCreated, placedOrder(true))
		},
	})
	co, err := NewCheckout(client, c)
	require.NoError(t, err)

	order, err := co.PayHosted(context.Background(), shopper, &scriptedWidget{proof: HostedProof{PaymentID: "pay_123", Signature: "sig"}})
	require.NoError(t, err)
	assert.True(t, order.IsPaid())
	assert.True(t, c.IsEmpty())
}

func TestRedirectFlowClearsCartOnlyWhenPaid(t *testing.T) {
	c, _ := filledCart(t)
	var paid atomic.Bool
	client, _ := newServer(t, map[string]http.HandlerFunc{
		"/api/payment/phonepe/initiate": func(w http.ResponseWriter, r *http.Request) {
			require.NoError(t, r.ParseMultipartForm(1<<20))
			assert.Equal(t, "1100", r.FormValue("amount"))
			responses.WriteSuccessStatus(w, http.StatusCreated, RedirectStart{
				RedirectURL:           "https://pay.example/checkout",
				MerchantTransactionID: "MT1700000000000abcd",
				OrderID:               "FF-1A2B3C",
			})
		},
		"/api/payment/phonepe/status/": func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/api/payment/phonepe/status/MT1700000000000abcd", r.URL.Path)
			order := placedOrder(paid.Load())
			responses.WriteSuccess(w, RedirectStatus{Paid: paid.Load(), Code: "PAYMENT_PENDING", Order: &order})
		},
	})
	co, err := NewCheckout(client, c)
	require.NoError(t, err)

	start, err := co.StartRedirect(context.Background(), shopper)
	require.NoError(t, err)
	assert.Equal(t, "https://pay.example/checkout", start.RedirectURL)
	assert.Equal(t, 3, c.Count())

	status, err := co.ConfirmRedirect(context.Background(), start.MerchantTransactionID)
	require.NoError(t, err)
	assert.False(t, status.Paid)
	assert.Equal(t, 3, c.Count())

	paid.Store(true)
	status, err = co.ConfirmRedirect(context.Background(), start.MerchantTransactionID)
	require.NoError(t, err)
	assert.True(t, status.Paid)
	assert.True(t, status.Order.IsPaid())
	assert.True(t, c.IsEmpty())
}

func TestRemoteCartStoreSyncsSnapshots(t *testing.T) {
	var (
		mu    sync.Mutex
		saved []byte
	)
	cartID := uuid.NewString()
	client, _ := newServer(t, map[string]http.HandlerFunc{
		"/api/carts/" + cartID: func(w http.ResponseWriter, r *http.Request) {
			mu.Lock()
			defer mu.Unlock()
			switch r.Method {
			case http.MethodPut:
				body, err := io.ReadAll(r.Body)
				require.NoError(t, err)
				saved = body
				responses.WriteSuccess(w, json.RawMessage(saved))
			case http.MethodGet:
				if saved == nil {
					responses.WriteSuccess(w, map[string]any{"items": []any{}})
					return
				}
				responses.WriteSuccess(w, json.RawMessage(saved))
			}
		},
	})
	store, err := NewRemoteCartStore(client, cartID)
	require.NoError(t, err)

	first, err := cart.New(context.Background(), store)
	require.NoError(t, err)
	assert.True(t, first.IsEmpty())
	_, err = first.Add(context.Background(), cart.Item{
		ProductID: uuid.New(),
		Name:      "Classic Frame",
		Price:     decimal.NewFromInt(500),
		Quantity:  2,
		Image:     &cart.Image{FileName: "a.png", Data: []byte("png")},
	})
	require.NoError(t, err)
	mu.Lock()
	assert.NotContains(t, string(saved), "a.png")
	mu.Unlock()

	second, err := cart.New(context.Background(), store)
	require.NoError(t, err)
	assert.Equal(t, 2, second.Count())
	assert.Len(t, second.MissingImages(), 1)

	_, err = NewRemoteCartStore(client, "not-a-uuid")
	require.Error(t, err)
}

func TestNewClientRequiresBaseURL(t *testing.T) {
	_, err := NewClient("  ")
	require.Error(t, err)
	_, err = NewClient("not a url")
	require.Error(t, err)
}

func TestDecodeAPIErrorFallsBackToStatusText(t *testing.T) {
	err := decodeAPIError(http.StatusBadGateway, []byte("<html>bad gateway</html>"))
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "http_error", apiErr.Code)
	assert.Equal(t, http.StatusText(http.StatusBadGateway), apiErr.Message)
}
