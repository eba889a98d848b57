package phonepe

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/angelmondragon/flashback-frames-backend/internal/payments"
	"github.com/angelmondragon/flashback-frames-backend/pkg/config"
	"github.com/angelmondragon/flashback-frames-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/flashback-frames-backend/pkg/errors"
)

const (
	payPath     = "/pg/v1/pay"
	statusPath  = "/pg/v1/status"
	codeSuccess = "PAYMENT_SUCCESS"

	defaultTimeout        = 15 * time.Second
	responseBodyReadLimit = 1024
)

var errCredentialsRequired = errors.New("phonepe merchant id and salt key are required")

// Client is the redirect wallet gateway.
type Client struct {
	payments.Unsupported

	httpClient       *http.Client
	baseURL          string
	merchantID       string
	saltKey          string
	saltIndex        string
	requireSignature bool
	timeout          time.Duration
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

// New builds the client from the PhonePe config.
func New(cfg config.PhonePeConfig, opts ...Option) (*Client, error) {
	merchantID := strings.TrimSpace(cfg.MerchantID)
	saltKey := strings.TrimSpace(cfg.SaltKey)
	if merchantID == "" || saltKey == "" {
		return nil, errCredentialsRequired
	}
	saltIndex := strings.TrimSpace(cfg.SaltIndex)
	if saltIndex == "" {
		saltIndex = "1"
	}
	c := &Client{
		Unsupported:      payments.Unsupported{Provider: enums.PaymentProviderPhonePe},
		httpClient:       &http.Client{},
		baseURL:          cfg.Endpoint(),
		merchantID:       merchantID,
		saltKey:          saltKey,
		saltIndex:        saltIndex,
		requireSignature: cfg.RequireCallbackSignature,
		timeout:          defaultTimeout,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c, nil
}

func (c *Client) Name() enums.PaymentProvider { return enums.PaymentProviderPhonePe }

func (c *Client) checksum(parts ...string) string {
	sum := sha256.Sum256([]byte(strings.Join(parts, "") + c.saltKey))
	return hex.EncodeToString(sum[:]) + "###" + c.saltIndex
}

// PayChecksum signs the base64 pay request.
func (c *Client) PayChecksum(encodedPayload string) string {
	return c.checksum(encodedPayload, payPath)
}

// StatusChecksum signs a status lookup for one transaction.
func (c *Client) StatusChecksum(merchantTxnID string) string {
	return c.checksum(c.statusPath(merchantTxnID))
}

// CallbackChecksum is the X-VERIFY value expected on a server callback.
func (c *Client) CallbackChecksum(encodedResponse string) string {
	return c.checksum(encodedResponse)
}

func (c *Client) statusPath(merchantTxnID string) string {
	return fmt.Sprintf("%s/%s/%s", statusPath, c.merchantID, merchantTxnID)
}

type payRequest struct {
	MerchantID            string            `json:"merchantId"`
	MerchantTransactionID string            `json:"merchantTransactionId"`
	MerchantUserID        string            `json:"merchantUserId"`
	Amount                int64             `json:"amount"`
	RedirectURL           string            `json:"redirectUrl"`
	RedirectMode          string            `json:"redirectMode"`
	CallbackURL           string            `json:"callbackUrl"`
	MobileNumber          string            `json:"mobileNumber"`
	PaymentInstrument     paymentInstrument `json:"paymentInstrument"`
}

type paymentInstrument struct {
	Type string `json:"type"`
}

// apiResponse is the envelope shared by pay, status and callback payloads.
type apiResponse struct {
	Success bool   `json:"success"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Data    struct {
		MerchantTransactionID string `json:"merchantTransactionId"`
		TransactionID         string `json:"transactionId"`
		Amount                int64  `json:"amount"`
		State                 string `json:"state"`
		InstrumentResponse    struct {
			RedirectInfo struct {
				URL string `json:"url"`
			} `json:"redirectInfo"`
		} `json:"instrumentResponse"`
	} `json:"data"`
}

func (r apiResponse) result(correlationID string) *payments.StatusResult {
	if r.Data.MerchantTransactionID != "" {
		correlationID = r.Data.MerchantTransactionID
	}
	return &payments.StatusResult{
		CorrelationID: correlationID,
		PaymentID:     r.Data.TransactionID,
		Success:       r.Success && r.Code == codeSuccess,
		Code:          r.Code,
		Message:       r.Message,
	}
}

func (c *Client) InitiateRedirect(ctx context.Context, req payments.RedirectRequest) (*payments.RedirectSession, error) {
	if req.AmountMinor <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be greater than zero")
	}
	if strings.TrimSpace(req.MerchantTransactionID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "merchant transaction id is required")
	}

	payload, err := json.Marshal(payRequest{
		MerchantID:            c.merchantID,
		MerchantTransactionID: req.MerchantTransactionID,
		MerchantUserID:        "MUID-" + req.Mobile,
		Amount:                req.AmountMinor,
		RedirectURL:           req.RedirectURL,
		RedirectMode:          "REDIRECT",
		CallbackURL:           req.CallbackURL,
		MobileNumber:          req.Mobile,
		PaymentInstrument:     paymentInstrument{Type: "PAY_PAGE"},
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "marshal phonepe request")
	}
	encoded := base64.StdEncoding.EncodeToString(payload)
	body, err := json.Marshal(map[string]string{"request": encoded})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "marshal phonepe request")
	}

	headers := http.Header{}
	headers.Set("X-VERIFY", c.PayChecksum(encoded))
	var out apiResponse
	if err := c.do(ctx, http.MethodPost, payPath, bytes.NewReader(body), headers, &out); err != nil {
		return nil, err
	}
	redirectURL := out.Data.InstrumentResponse.RedirectInfo.URL
	if !out.Success || redirectURL == "" {
		cause := fmt.Errorf("phonepe initiation rejected: %s %s", out.Code, out.Message)
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, cause, "payment could not be completed, please try again")
	}
	return &payments.RedirectSession{
		RedirectURL:           redirectURL,
		MerchantTransactionID: req.MerchantTransactionID,
	}, nil
}

func (c *Client) CheckStatus(ctx context.Context, merchantTxnID string) (*payments.StatusResult, error) {
	merchantTxnID = strings.TrimSpace(merchantTxnID)
	if merchantTxnID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "merchant transaction id is required")
	}
	headers := http.Header{}
	headers.Set("X-VERIFY", c.StatusChecksum(merchantTxnID))
	headers.Set("X-MERCHANT-ID", c.merchantID)

	var out apiResponse
	if err := c.do(ctx, http.MethodGet, c.statusPath(merchantTxnID), nil, headers, &out); err != nil {
		return nil, err
	}
	result := out.result(merchantTxnID)
	result.Verified = true
	return result, nil
}

// ParseCallback verifies and decodes the server-to-server notification body
// {"response": base64}. A present signature must match; it is mandatory when
// the client requires callback signatures. Unsigned results come back with
// Verified unset.
func (c *Client) ParseCallback(_ context.Context, body []byte, signature string) (*payments.StatusResult, error) {
	var envelope struct {
		Response string `json:"response"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil || envelope.Response == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "callback body must carry a response")
	}

	signature = strings.TrimSpace(signature)
	if signature == "" && c.requireSignature {
		return nil, payments.SignatureError()
	}
	if signature != "" && !hmac.Equal([]byte(signature), []byte(c.CallbackChecksum(envelope.Response))) {
		return nil, payments.SignatureError()
	}

	decoded, err := base64.StdEncoding.DecodeString(envelope.Response)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "callback response is not base64")
	}
	var out apiResponse
	if err := json.Unmarshal(decoded, &out); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "callback response is not json")
	}
	if out.Data.MerchantTransactionID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "callback is missing merchantTransactionId")
	}
	result := out.result("")
	result.Verified = signature != ""
	return result, nil
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, headers http.Header, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build phonepe request")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	for key, values := range headers {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "payment could not be completed, please try again")
	}
	defer func() { _ = resp.Body.Close() }()

	// 4xx answers still carry the JSON envelope with a failure code.
	if resp.StatusCode >= http.StatusInternalServerError {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
		cause := fmt.Errorf("phonepe %s %s: status %d: %s", method, path, resp.StatusCode, strings.TrimSpace(string(msg)))
		return pkgerrors.Wrap(pkgerrors.CodeDependency, cause, "payment could not be completed, please try again")
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, fmt.Errorf("status %d: %w", resp.StatusCode, err), "decode phonepe response")
	}
	return nil
}
