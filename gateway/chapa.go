package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// Error classes for gateway calls. Callers branch on these with errors.Is.
var (
	// ErrGatewayUnavailable means the initialize call never got a usable
	// answer from the gateway (network failure, timeout, 5xx).
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")

	// ErrPaymentRejected means the gateway explicitly declined the
	// initialization request (bad amount, currency, payer details).
	ErrPaymentRejected = errors.New("payment rejected by gateway")

	// ErrVerificationIndeterminate means a verify call did not yield a
	// definitive paid/not-paid answer. It is retriable and must never be
	// reported to the payer as a failed payment.
	ErrVerificationIndeterminate = errors.New("payment verification indeterminate")
)

// InitRequest is the payload for a checkout-session initialization.
// Amount is always the server-derived course price.
type InitRequest struct {
	Amount      float64
	Currency    string
	Email       string
	FirstName   string
	LastName    string
	Mobile      string
	TxRef       string
	CallbackURL string
}

// VerifyResult is the definitive answer from a verify call.
type VerifyResult struct {
	Paid      bool
	Amount    float64
	Currency  string
	TxRef     string
	Reference string // gateway-side reference id
}

// Client is the outbound interface to the payment gateway. Verify has
// GET semantics on the gateway side: calling it any number of times has
// no effect on gateway state.
type Client interface {
	Initialize(ctx context.Context, req InitRequest) (checkoutURL string, err error)
	Verify(ctx context.Context, txRef string) (VerifyResult, error)
}

// ChapaClient talks to the Chapa transaction API.
type ChapaClient struct {
	http      *resty.Client
	secretKey string
}

// NewChapaClient builds a client with a bounded per-call timeout. The
// timeout is mandatory: an unbounded verify call would hold the commit
// path open indefinitely.
func NewChapaClient(baseURL, secretKey string, timeout time.Duration) *ChapaClient {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json")

	return &ChapaClient{http: client, secretKey: secretKey}
}

// chapa response envelopes
type chapaInitResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Data    struct {
		CheckoutURL string `json:"checkout_url"`
	} `json:"data"`
}

type chapaVerifyResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Data    struct {
		Status    string  `json:"status"`
		Amount    float64 `json:"amount"`
		Currency  string  `json:"currency"`
		TxRef     string  `json:"tx_ref"`
		Reference string  `json:"reference"`
	} `json:"data"`
}

// Initialize requests a checkout session and returns the redirect URL.
// Nothing is persisted locally and no enrollment state changes here.
func (g *ChapaClient) Initialize(ctx context.Context, req InitRequest) (string, error) {
	body := map[string]interface{}{
		"amount":       fmt.Sprintf("%.2f", req.Amount),
		"currency":     req.Currency,
		"email":        req.Email,
		"first_name":   req.FirstName,
		"last_name":    req.LastName,
		"mobile":       req.Mobile,
		"tx_ref":       req.TxRef,
		"callback_url": req.CallbackURL,
	}

	resp, err := g.http.R().
		SetContext(ctx).
		SetAuthToken(g.secretKey).
		SetBody(body).
		Post("/transaction/initialize")
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}

	if resp.StatusCode() >= 500 {
		return "", fmt.Errorf("%w: gateway returned %d", ErrGatewayUnavailable, resp.StatusCode())
	}

	var initResp chapaInitResponse
	if err := json.Unmarshal(resp.Body(), &initResp); err != nil {
		return "", fmt.Errorf("%w: unreadable response: %v", ErrGatewayUnavailable, err)
	}

	if resp.StatusCode() >= 400 || initResp.Status != "success" {
		return "", fmt.Errorf("%w: %s", ErrPaymentRejected, initResp.Message)
	}

	if initResp.Data.CheckoutURL == "" {
		return "", fmt.Errorf("%w: missing checkout_url", ErrGatewayUnavailable)
	}

	return initResp.Data.CheckoutURL, nil
}

// Verify queries the gateway for the final state of a transaction.
// A definitive not-paid answer comes back as (Paid: false, nil): only
// transport-level trouble produces an error, and that error is always
// ErrVerificationIndeterminate so the caller can safely retry.
func (g *ChapaClient) Verify(ctx context.Context, txRef string) (VerifyResult, error) {
	resp, err := g.http.R().
		SetContext(ctx).
		SetAuthToken(g.secretKey).
		Get("/transaction/verify/" + txRef)
	if err != nil {
		return VerifyResult{}, fmt.Errorf("%w: %v", ErrVerificationIndeterminate, err)
	}

	if resp.StatusCode() >= 500 {
		return VerifyResult{}, fmt.Errorf("%w: gateway returned %d", ErrVerificationIndeterminate, resp.StatusCode())
	}

	var verifyResp chapaVerifyResponse
	if err := json.Unmarshal(resp.Body(), &verifyResp); err != nil {
		return VerifyResult{}, fmt.Errorf("%w: unreadable response: %v", ErrVerificationIndeterminate, err)
	}

	result := VerifyResult{
		Paid:      verifyResp.Status == "success" && verifyResp.Data.Status == "success",
		Amount:    verifyResp.Data.Amount,
		Currency:  verifyResp.Data.Currency,
		TxRef:     verifyResp.Data.TxRef,
		Reference: verifyResp.Data.Reference,
	}
	if result.TxRef == "" {
		result.TxRef = txRef
	}

	return result, nil
}
