package payment

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/coopay/backend/internal/domain/identity"
	"github.com/coopay/backend/internal/domain/settlement"
	"github.com/coopay/backend/internal/domain/shared/valueobject"
	"github.com/coopay/backend/internal/infrastructure/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var (
	// ErrGatewayRejected means Paystack answered but refused the request
	ErrGatewayRejected = errors.New("paystack: request rejected")
	// ErrInvalidSignature means a webhook body did not match its signature
	ErrInvalidSignature = errors.New("paystack: invalid webhook signature")
	// ErrMalformedResponse means the response body could not be decoded
	ErrMalformedResponse = errors.New("paystack: malformed response")
)

// Webhook event names handled by the settlement flow
const (
	EventChargeSuccess = "charge.success"
	EventChargeFailed  = "charge.failed"
)

const signatureHeader = "X-Paystack-Signature"

// PaystackAdapter implements settlement.PaymentGateway and
// settlement.VirtualAccountProvisioner against the Paystack API.
type PaystackAdapter struct {
	config     *PaystackConfig
	httpClient *http.Client
}

// NewPaystackAdapter creates a new Paystack adapter
func NewPaystackAdapter(config *PaystackConfig) (*PaystackAdapter, error) {
	if config == nil {
		return nil, ErrPaystackMissingSecretKey
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &PaystackAdapter{
		config: config,
		httpClient: &http.Client{
			Timeout: config.timeout(),
		},
	}, nil
}

// WithHTTPClient replaces the underlying HTTP client
func (a *PaystackAdapter) WithHTTPClient(client *http.Client) *PaystackAdapter {
	if client != nil {
		a.httpClient = client
	}
	return a
}

// SignatureHeader is the request header carrying the webhook signature
func (a *PaystackAdapter) SignatureHeader() string {
	return signatureHeader
}

// Initialize starts a hosted checkout for the given reference
func (a *PaystackAdapter) Initialize(ctx context.Context, req settlement.InitializeRequest) (*settlement.InitializeResponse, error) {
	if req.Reference == "" || req.Email == "" {
		return nil, fmt.Errorf("%w: reference and email are required", ErrGatewayRejected)
	}
	amount, err := valueobject.ToMinorUnits(req.Amount)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGatewayRejected, err)
	}
	callback := req.CallbackURL
	if callback == "" {
		callback = a.config.CallbackURL
	}
	body := paystackInitializeRequest{
		Email:       req.Email,
		Amount:      amount,
		Reference:   req.Reference,
		CallbackURL: callback,
		Currency:    "NGN",
		Metadata:    req.Metadata,
	}

	var data paystackInitializeData
	if err := a.call(ctx, http.MethodPost, "/transaction/initialize", body, &data); err != nil {
		return nil, err
	}
	if data.AuthorizationURL == "" {
		return nil, fmt.Errorf("%w: missing authorization_url", ErrMalformedResponse)
	}
	ref := data.Reference
	if ref == "" {
		ref = req.Reference
	}
	return &settlement.InitializeResponse{
		Reference:        ref,
		AuthorizationURL: data.AuthorizationURL,
		AccessCode:       data.AccessCode,
	}, nil
}

// Verify asks Paystack for the authoritative status of a reference
func (a *PaystackAdapter) Verify(ctx context.Context, reference string) (*settlement.Verification, error) {
	if reference == "" {
		return nil, fmt.Errorf("%w: reference is required", ErrGatewayRejected)
	}
	var data paystackTransactionData
	err := a.call(ctx, http.MethodGet, "/transaction/verify/"+url.PathEscape(reference), nil, &data)
	switch {
	case err == nil:
		return toVerification(&data), nil
	case settlement.IsUndetermined(err), errors.Is(err, settlement.ErrGatewayUnknownReference):
		return nil, err
	default:
		// anything short of "no such reference" says nothing about the payment
		return nil, fmt.Errorf("%w: %w", settlement.ErrGatewayUnreachable, err)
	}
}

// CreateVirtualAccount creates a Paystack customer and assigns it a
// dedicated account number
func (a *PaystackAdapter) CreateVirtualAccount(ctx context.Context, req settlement.VirtualAccountRequest) (*identity.VirtualAccount, error) {
	if req.Email == "" {
		return nil, fmt.Errorf("%w: email is required", ErrGatewayRejected)
	}
	var customer paystackCustomer
	err := a.call(ctx, http.MethodPost, "/customer", paystackCreateCustomerRequest{
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Phone:     req.Phone,
	}, &customer)
	if err != nil {
		return nil, fmt.Errorf("paystack: create customer: %w", err)
	}
	if customer.CustomerCode == "" {
		return nil, fmt.Errorf("%w: missing customer_code", ErrMalformedResponse)
	}

	var account paystackDedicatedAccountData
	err = a.call(ctx, http.MethodPost, "/dedicated_account", paystackDedicatedAccountRequest{
		Customer:      customer.CustomerCode,
		PreferredBank: a.config.PreferredBank,
	}, &account)
	if err != nil {
		return nil, fmt.Errorf("paystack: assign dedicated account: %w", err)
	}
	if account.AccountNumber == "" {
		return nil, fmt.Errorf("%w: missing account_number", ErrMalformedResponse)
	}

	name := account.AccountName
	if name == "" {
		name = req.AccountName
	}
	return &identity.VirtualAccount{
		AccountNumber: account.AccountNumber,
		BankName:      account.Bank.Name,
		AccountName:   name,
		CustomerCode:  customer.CustomerCode,
	}, nil
}

// WebhookEvent is a verified webhook notification
type WebhookEvent struct {
	Event        string
	Reference    string
	Verification *settlement.Verification
}

// IsCharge reports whether the event concerns a charge outcome
func (e *WebhookEvent) IsCharge() bool {
	return e.Event == EventChargeSuccess || e.Event == EventChargeFailed
}

// VerifyWebhookSignature checks the hex HMAC-SHA512 of body under the secret key
func (a *PaystackAdapter) VerifyWebhookSignature(body []byte, signature string) bool {
	if signature == "" {
		return false
	}
	expected, err := hex.DecodeString(strings.TrimSpace(signature))
	if err != nil {
		return false
	}
	mac := hmac.New(sha512.New, []byte(a.config.SecretKey))
	mac.Write(body)
	return hmac.Equal(mac.Sum(nil), expected)
}

// ParseWebhook verifies the signature and decodes the event. The payload is
// never trusted for settlement; callers re-verify the reference.
func (a *PaystackAdapter) ParseWebhook(body []byte, signature string) (*WebhookEvent, error) {
	if !a.VerifyWebhookSignature(body, signature) {
		return nil, ErrInvalidSignature
	}
	var evt paystackWebhookEvent
	if err := json.Unmarshal(body, &evt); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if evt.Event == "" {
		return nil, fmt.Errorf("%w: missing event", ErrMalformedResponse)
	}
	return &WebhookEvent{
		Event:        evt.Event,
		Reference:    evt.Data.Reference,
		Verification: toVerification(&evt.Data),
	}, nil
}

// call performs a request and decodes the envelope's data into out
func (a *PaystackAdapter) call(ctx context.Context, method, path string, in, out any) error {
	var payload []byte
	if in != nil {
		var err error
		payload, err = json.Marshal(in)
		if err != nil {
			return fmt.Errorf("paystack: failed to encode request: %w", err)
		}
	}

	respBody, err := a.doRequest(ctx, method, path, payload)
	if err != nil {
		return err
	}

	var env paystackEnvelope
	if err := json.Unmarshal(respBody, &env); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if !env.Status {
		return rejected(http.StatusOK, env.Message)
	}
	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
		}
	}
	return nil
}

// doRequest sends an HTTP request to Paystack. Transport failures, 5xx
// answers and throttling or credential errors are reported as unreachable,
// other 4xx answers as rejections.
func (a *PaystackAdapter) doRequest(ctx context.Context, method, path string, body []byte) (_ []byte, err error) {
	ctx, span := telemetry.StartSpan(ctx, "paystack "+method+" "+spanRoute(path), trace.SpanKindClient,
		attribute.String("http.request.method", method),
		attribute.String("peer.service", "paystack"),
	)
	defer func() { telemetry.EndSpan(span, err) }()

	var reqBody io.Reader
	if body != nil {
		reqBody = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.config.baseURL()+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("paystack: failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+a.config.SecretKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		if isTimeout(ctx, err) {
			return nil, fmt.Errorf("%w: %v", settlement.ErrGatewayTimeout, err)
		}
		return nil, fmt.Errorf("%w: %v", settlement.ErrGatewayUnreachable, err)
	}
	defer resp.Body.Close()
	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		if isTimeout(ctx, err) {
			return nil, fmt.Errorf("%w: %v", settlement.ErrGatewayTimeout, err)
		}
		return nil, fmt.Errorf("%w: failed to read response: %v", settlement.ErrGatewayUnreachable, err)
	}

	switch {
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("%w: HTTP %d", settlement.ErrGatewayUnreachable, resp.StatusCode)
	case resp.StatusCode >= 400:
		var env paystackEnvelope
		_ = json.Unmarshal(respBody, &env)
		switch resp.StatusCode {
		case http.StatusRequestTimeout, http.StatusTooManyRequests, http.StatusUnauthorized, http.StatusForbidden:
			return nil, fmt.Errorf("%w: HTTP %d%s", settlement.ErrGatewayUnreachable, resp.StatusCode, messageSuffix(env.Message))
		}
		return nil, rejected(resp.StatusCode, env.Message)
	}
	return respBody, nil
}

// rejected builds the error for an answer that refused the request. A 404,
// or a "not found" message, means Paystack has no such reference.
func rejected(status int, message string) error {
	detail := fmt.Sprintf("HTTP %d%s", status, messageSuffix(message))
	if status == http.StatusNotFound || strings.Contains(strings.ToLower(message), "not found") {
		return fmt.Errorf("%w: %w: %s", ErrGatewayRejected, settlement.ErrGatewayUnknownReference, detail)
	}
	return fmt.Errorf("%w: %s", ErrGatewayRejected, detail)
}

func messageSuffix(message string) string {
	if message == "" {
		return ""
	}
	return " - " + message
}

// spanRoute drops the reference from verify paths to keep span names low-cardinality
func spanRoute(path string) string {
	if strings.HasPrefix(path, "/transaction/verify/") {
		return "/transaction/verify/:reference"
	}
	return path
}

func isTimeout(ctx context.Context, err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func toVerification(data *paystackTransactionData) *settlement.Verification {
	v := &settlement.Verification{
		Reference:       data.Reference,
		Status:          mapPaystackStatus(data.Status),
		Amount:          valueobject.FromMinorUnits(data.Amount),
		Currency:        data.Currency,
		Channel:         data.Channel,
		GatewayResponse: data.GatewayResponse,
		CustomerEmail:   data.Customer.Email,
	}
	if data.PaidAt != "" {
		if t, err := time.Parse(time.RFC3339, data.PaidAt); err == nil {
			v.PaidAt = &t
		}
	}
	return v
}

// mapPaystackStatus maps a Paystack transaction status to the gateway status
func mapPaystackStatus(status string) settlement.GatewayStatus {
	switch strings.ToLower(status) {
	case "success":
		return settlement.GatewayStatusSuccess
	case "abandoned":
		return settlement.GatewayStatusAbandoned
	case "reversed":
		return settlement.GatewayStatusReversed
	case "ongoing":
		return settlement.GatewayStatusOngoing
	case "pending":
		return settlement.GatewayStatusPending
	case "processing":
		return settlement.GatewayStatusProcessing
	case "queued":
		return settlement.GatewayStatusQueued
	default:
		return settlement.GatewayStatusFailed
	}
}
