// Package storefront is the shopper-side client for the REST API. It builds
// checkout payloads from a cart and drives the three payment paths.
package storefront

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/flashback-frames-backend/pkg/cart"
	pkgcheckout "github.com/angelmondragon/flashback-frames-backend/pkg/checkout"
	"github.com/angelmondragon/flashback-frames-backend/pkg/types"
)

const (
	defaultTimeout = 60 * time.Second
	// maxResponseBytes bounds decoded responses.
	maxResponseBytes = 4 << 20

	paymentMethodCOD = "COD"
)

var errBaseURLRequired = errors.New("storefront base url is required")

// Contact is the customer block sent with every checkout.
type Contact = pkgcheckout.Contact

// APIError is a non-2xx response decoded from the error envelope.
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("storefront api %d %s: %s", e.Status, e.Code, e.Message)
}

// OrderItem is one line of a placed order.
type OrderItem struct {
	ProductID uuid.UUID       `json:"productId"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Size      string          `json:"size"`
	Material  string          `json:"material"`
	Quantity  int             `json:"quantity"`
	Image     string          `json:"image"`
}

// Order is the server's view of a placed order.
type Order struct {
	ID              uuid.UUID       `json:"id"`
	OrderID         string          `json:"orderId"`
	CustomerName    string          `json:"customerName"`
	Mobile          string          `json:"mobile"`
	Email           *string         `json:"email,omitempty"`
	Address         string          `json:"address"`
	Items           []OrderItem     `json:"items"`
	TotalPrice      decimal.Decimal `json:"totalPrice"`
	Status          string          `json:"status"`
	PaymentMethod   string          `json:"paymentMethod"`
	PaymentStatus   string          `json:"paymentStatus"`
	PaymentProvider *string         `json:"paymentProvider,omitempty"`
	PaidAt          *time.Time      `json:"paidAt,omitempty"`
	CreatedAt       time.Time       `json:"createdAt"`
}

// IsPaid reports whether the order's payment is confirmed.
func (o *Order) IsPaid() bool {
	return o != nil && o.PaymentStatus == "Paid"
}

// HostedSession is what the hosted payment widget is opened with.
type HostedSession struct {
	SessionID string `json:"sessionId"`
	Amount    int64  `json:"amount"`
	Currency  string `json:"currency"`
	KeyID     string `json:"keyId"`
	Receipt   string `json:"receipt"`
}

// HostedProof is returned by the widget after a completed payment.
type HostedProof struct {
	SessionID string
	PaymentID string
	Signature string
}

// RedirectStart tells the shopper where to pay.
type RedirectStart struct {
	RedirectURL           string `json:"redirectUrl"`
	MerchantTransactionID string `json:"merchantTransactionId"`
	OrderID               string `json:"orderId"`
}

// RedirectStatus is one status poll result.
type RedirectStatus struct {
	Paid    bool   `json:"paid"`
	Code    string `json:"code"`
	Message string `json:"message,omitempty"`
	Order   *Order `json:"order,omitempty"`
}

type cartSnapshot struct {
	Items []cart.Item `json:"items"`
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient swaps the transport, mainly for tests.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithKeyGenerator overrides how Idempotency-Key values are minted.
func WithKeyGenerator(fn func() string) Option {
	return func(c *Client) {
		if fn != nil {
			c.newKey = fn
		}
	}
}

// Client calls the storefront REST API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	newKey     func() string
}

// NewClient builds a client rooted at baseURL, e.g. https://api.example.com.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if base == "" {
		return nil, errBaseURLRequired
	}
	if _, err := url.ParseRequestURI(base); err != nil {
		return nil, fmt.Errorf("invalid storefront base url: %w", err)
	}
	c := &Client{
		baseURL:    base,
		httpClient: &http.Client{Timeout: defaultTimeout},
		newKey:     uuid.NewString,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c, nil
}

// NewIdempotencyKey mints a key for one checkout attempt.
func (c *Client) NewIdempotencyKey() string {
	return c.newKey()
}

// PlaceCODOrder submits a cash-on-delivery order.
func (c *Client) PlaceCODOrder(ctx context.Context, contact Contact, items []cart.Item, key string) (*Order, error) {
	body, contentType, err := buildCheckoutForm(contact, items, [][2]string{{"paymentMethod", paymentMethodCOD}})
	if err != nil {
		return nil, err
	}
	var order Order
	if err := c.do(ctx, http.MethodPost, "/api/orders", body, contentType, key, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// CreateHostedSession asks the server for a hosted session sized to amount.
func (c *Client) CreateHostedSession(ctx context.Context, amount decimal.Decimal) (*HostedSession, error) {
	payload, err := json.Marshal(map[string]decimal.Decimal{"amount": amount})
	if err != nil {
		return nil, err
	}
	var session HostedSession
	if err := c.do(ctx, http.MethodPost, "/api/payment/create-order", bytes.NewReader(payload), "application/json", "", &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// VerifyAndCreate submits the widget proof together with the checkout form.
func (c *Client) VerifyAndCreate(ctx context.Context, contact Contact, items []cart.Item, proof HostedProof, key string) (*Order, error) {
	body, contentType, err := buildCheckoutForm(contact, items, [][2]string{
		{"razorpay_order_id", proof.SessionID},
		{"razorpay_payment_id", proof.PaymentID},
		{"razorpay_signature", proof.Signature},
	})
	if err != nil {
		return nil, err
	}
	var order Order
	if err := c.do(ctx, http.MethodPost, "/api/payment/verify-and-create", body, contentType, key, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// InitiateRedirect creates a pending order and returns the gateway URL.
func (c *Client) InitiateRedirect(ctx context.Context, contact Contact, items []cart.Item, amount decimal.Decimal, key string) (*RedirectStart, error) {
	body, contentType, err := buildCheckoutForm(contact, items, [][2]string{{"amount", amount.String()}})
	if err != nil {
		return nil, err
	}
	var start RedirectStart
	if err := c.do(ctx, http.MethodPost, "/api/payment/phonepe/initiate", body, contentType, key, &start); err != nil {
		return nil, err
	}
	return &start, nil
}

// RedirectStatus polls the payment status of a redirect checkout.
func (c *Client) RedirectStatus(ctx context.Context, merchantTxnID string) (*RedirectStatus, error) {
	var status RedirectStatus
	path := "/api/payment/phonepe/status/" + url.PathEscape(merchantTxnID)
	if err := c.do(ctx, http.MethodGet, path, nil, "", "", &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// TrackOrder looks an order up by its order id or the customer's mobile.
func (c *Client) TrackOrder(ctx context.Context, identifier string) (*Order, error) {
	var order Order
	if err := c.do(ctx, http.MethodGet, "/api/orders/track/"+url.PathEscape(identifier), nil, "", "", &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// GetCart loads the server-synced cart snapshot.
func (c *Client) GetCart(ctx context.Context, cartID string) ([]cart.Item, error) {
	var snap cartSnapshot
	if err := c.do(ctx, http.MethodGet, "/api/carts/"+url.PathEscape(cartID), nil, "", "", &snap); err != nil {
		return nil, err
	}
	return snap.Items, nil
}

// SaveCart replaces the server-synced cart snapshot.
func (c *Client) SaveCart(ctx context.Context, cartID string, items []cart.Item) error {
	if items == nil {
		items = []cart.Item{}
	}
	payload, err := json.Marshal(cartSnapshot{Items: items})
	if err != nil {
		return err
	}
	return c.do(ctx, http.MethodPut, "/api/carts/"+url.PathEscape(cartID), bytes.NewReader(payload), "application/json", "", nil)
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, contentType, idempotencyKey string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if idempotencyKey != "" {
		req.Header.Set("Idempotency-Key", idempotencyKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeAPIError(resp.StatusCode, raw)
	}
	if out == nil {
		return nil
	}

	envelope := struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
	}{}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if !envelope.Success {
		return decodeAPIError(resp.StatusCode, raw)
	}
	if len(envelope.Data) == 0 || string(envelope.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(envelope.Data, out); err != nil {
		return fmt.Errorf("decode response data: %w", err)
	}
	return nil
}

func decodeAPIError(status int, raw []byte) error {
	var envelope types.ErrorEnvelope
	if err := json.Unmarshal(raw, &envelope); err == nil && envelope.Error.Code != "" {
		return &APIError{
			Status:  status,
			Code:    envelope.Error.Code,
			Message: envelope.Error.Message,
			Details: envelope.Error.Details,
		}
	}
	return &APIError{Status: status, Code: "http_error", Message: http.StatusText(status)}
}

type formItem struct {
	ProductID uuid.UUID `json:"productId"`
	Size      string    `json:"size,omitempty"`
	Material  string    `json:"material,omitempty"`
	Quantity  int       `json:"quantity"`
}

// buildCheckoutForm writes contact fields, extra fields, the items JSON and
// one images part per item in cart order. Field order is fixed so a retried
// attempt hashes the same under its Idempotency-Key.
func buildCheckoutForm(contact Contact, items []cart.Item, extra [][2]string) (io.Reader, string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	fields := append([][2]string{
		{"customerName", contact.CustomerName},
		{"mobile", contact.Mobile},
		{"email", contact.Email},
		{"address", contact.Address},
	}, extra...)
	for _, f := range fields {
		if err := mw.WriteField(f[0], f[1]); err != nil {
			return nil, "", err
		}
	}

	lines := make([]formItem, len(items))
	for i, item := range items {
		lines[i] = formItem{ProductID: item.ProductID, Size: item.Size, Material: item.Material, Quantity: item.Quantity}
	}
	encoded, err := json.Marshal(lines)
	if err != nil {
		return nil, "", err
	}
	if err := mw.WriteField("items", string(encoded)); err != nil {
		return nil, "", err
	}

	for i, item := range items {
		if item.Image == nil || len(item.Image.Data) == 0 {
			return nil, "", fmt.Errorf("item %d has no image", i+1)
		}
		header := make(textproto.MIMEHeader)
		fileName := item.Image.FileName
		if fileName == "" {
			fileName = fmt.Sprintf("item-%d", i+1)
		}
		header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="images"; filename=%q`, fileName))
		contentType := item.Image.ContentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		header.Set("Content-Type", contentType)
		part, err := mw.CreatePart(header)
		if err != nil {
			return nil, "", err
		}
		if _, err := part.Write(item.Image.Data); err != nil {
			return nil, "", err
		}
	}

	if err := mw.Close(); err != nil {
		return nil, "", err
	}
	return &buf, mw.FormDataContentType(), nil
}
