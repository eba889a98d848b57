package razorpay

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/angelmondragon/flashback-frames-backend/internal/payments"
	"github.com/angelmondragon/flashback-frames-backend/pkg/config"
	"github.com/angelmondragon/flashback-frames-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/flashback-frames-backend/pkg/errors"
)

const (
	DefaultBaseURL = "https://api.razorpay.com/v1"

	defaultCurrency       = "INR"
	defaultTimeout        = 15 * time.Second
	responseBodyReadLimit = 1024
	orderStatusPaid       = "paid"
	paymentStatusCaptured = "captured"
)

var errCredentialsRequired = errors.New("razorpay key id and secret are required")

// Client is the hosted-checkout gateway.
type Client struct {
	payments.Unsupported

	httpClient *http.Client
	baseURL    string
	keyID      string
	keySecret  string
	currency   string
	timeout    time.Duration
	now        func() time.Time
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithTimeout bounds every gateway call.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithClock overrides the receipt clock.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		if now != nil {
			c.now = now
		}
	}
}

// New builds the client from the Razorpay config.
func New(cfg config.RazorpayConfig, opts ...Option) (*Client, error) {
	keyID := strings.TrimSpace(cfg.KeyID)
	secret := strings.TrimSpace(cfg.KeySecret)
	if keyID == "" || secret == "" {
		return nil, errCredentialsRequired
	}
	c := &Client{
		Unsupported: payments.Unsupported{Provider: enums.PaymentProviderRazorpay},
		httpClient:  &http.Client{},
		baseURL:     strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		keyID:       keyID,
		keySecret:   secret,
		currency:    strings.TrimSpace(cfg.Currency),
		timeout:     defaultTimeout,
		now:         time.Now,
	}
	if c.baseURL == "" {
		c.baseURL = DefaultBaseURL
	}
	if c.currency == "" {
		c.currency = defaultCurrency
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c, nil
}

func (c *Client) Name() enums.PaymentProvider { return enums.PaymentProviderRazorpay }

// KeyID is the public key the widget is opened with.
func (c *Client) KeyID() string { return c.keyID }

// Signature is the hex HMAC-SHA256 of "sessionID|paymentID" under secret.
func Signature(secret, sessionID, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write([]byte(sessionID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

type orderResponse struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	Status   string `json:"status"`
}

func (c *Client) CreateSession(ctx context.Context, req payments.SessionRequest) (*payments.Session, error) {
	if req.AmountMinor <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be greater than zero")
	}
	currency := req.Currency
	if currency == "" {
		currency = c.currency
	}
	receipt := req.Receipt
	if receipt == "" {
		receipt = fmt.Sprintf("receipt_%d", c.now().UnixMilli())
	}

	var out orderResponse
	body := map[string]any{"amount": req.AmountMinor, "currency": currency, "receipt": receipt}
	if err := c.do(ctx, http.MethodPost, "/orders", body, &out); err != nil {
		return nil, err
	}
	return &payments.Session{
		ID:          out.ID,
		AmountMinor: out.Amount,
		Currency:    out.Currency,
		KeyID:       c.keyID,
		Receipt:     out.Receipt,
	}, nil
}

// Verify checks the widget signature and, when expectedMinor is positive,
// that the session was created for that amount.
func (c *Client) Verify(ctx context.Context, proof payments.HostedProof, expectedMinor int64) error {
	if proof.SessionID == "" || proof.PaymentID == "" || proof.Signature == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "payment proof is incomplete")
	}
	expected := Signature(c.keySecret, proof.SessionID, proof.PaymentID)
	if !hmac.Equal([]byte(expected), []byte(proof.Signature)) {
		return payments.SignatureError()
	}
	if expectedMinor <= 0 {
		return nil
	}

	order, err := c.fetchOrder(ctx, proof.SessionID)
	if err != nil {
		return err
	}
	if order.Amount != expectedMinor {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, payments.ErrAmountMismatch, "payment amount does not match order total").
			WithDetails(map[string]int64{"expected": expectedMinor, "paid": order.Amount})
	}
	return nil
}

// CheckStatus reports whether the session has been paid and, if so, the
// captured payment id.
func (c *Client) CheckStatus(ctx context.Context, sessionID string) (*payments.StatusResult, error) {
	order, err := c.fetchOrder(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	result := &payments.StatusResult{
		CorrelationID: order.ID,
		Success:       order.Status == orderStatusPaid,
		Code:          order.Status,
	}
	if !result.Success {
		return result, nil
	}

	var list struct {
		Items []struct {
			ID     string `json:"id"`
			Status string `json:"status"`
		} `json:"items"`
	}
	if err := c.do(ctx, http.MethodGet, "/orders/"+url.PathEscape(sessionID)+"/payments", nil, &list); err != nil {
		return nil, err
	}
	for _, item := range list.Items {
		if item.Status == paymentStatusCaptured {
			result.PaymentID = item.ID
			break
		}
	}
	return result, nil
}

func (c *Client) fetchOrder(ctx context.Context, sessionID string) (*orderResponse, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "session id is required")
	}
	var out orderResponse
	if err := c.do(ctx, http.MethodGet, "/orders/"+url.PathEscape(sessionID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "marshal razorpay request")
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build razorpay request")
	}
	req.SetBasicAuth(c.keyID, c.keySecret)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "payment could not be completed, please try again")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
		cause := fmt.Errorf("razorpay %s %s: status %d: %s", method, path, resp.StatusCode, strings.TrimSpace(string(msg)))
		return pkgerrors.Wrap(pkgerrors.CodeDependency, cause, "payment could not be completed, please try again")
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode razorpay response")
	}
	return nil
}
