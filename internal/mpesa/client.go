// Package mpesa is a minimal Daraja API client covering the two calls this
// service makes: OAuth token fetch and STK push initiation. Real payment
// confirmation arrives out-of-band on the callback URL.
package mpesa

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"sokojumla/internal/config"
)

const (
	sandboxBase    = "https://sandbox.safaricom.co.ke"
	productionBase = "https://api.safaricom.co.ke"
)

type Client struct {
	cfg  config.Mpesa
	base string
	http *http.Client
	now  func() time.Time
}

func New(cfg config.Mpesa) *Client {
	base := sandboxBase
	if cfg.Environment == "production" {
		base = productionBase
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		cfg:  cfg,
		base: base,
		http: &http.Client{Timeout: timeout},
		now:  time.Now,
	}
}

// WithBaseURL overrides the API base, for tests against a local server.
func (c *Client) WithBaseURL(base string) *Client {
	c.base = base
	return c
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   string `json:"expires_in"`
}

// AccessToken fetches a client-credentials bearer token.
func (c *Client) AccessToken(ctx context.Context) (string, error) {
	url := c.base + "/oauth/v1/generate?grant_type=client_credentials"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	auth := base64.StdEncoding.EncodeToString([]byte(c.cfg.ConsumerKey + ":" + c.cfg.ConsumerSecret))
	req.Header.Set("Authorization", "Basic "+auth)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("mpesa token: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("mpesa token: status %d: %s", resp.StatusCode, body)
	}

	var tok tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		return "", fmt.Errorf("mpesa token: %w", err)
	}
	if tok.AccessToken == "" {
		return "", fmt.Errorf("mpesa token: empty access_token")
	}
	return tok.AccessToken, nil
}

type stkRequest struct {
	BusinessShortCode string `json:"BusinessShortCode"`
	Password          string `json:"Password"`
	Timestamp         string `json:"Timestamp"`
	TransactionType   string `json:"TransactionType"`
	Amount            int64  `json:"Amount"`
	PartyA            string `json:"PartyA"`
	PartyB            string `json:"PartyB"`
	PhoneNumber       string `json:"PhoneNumber"`
	CallBackURL       string `json:"CallBackURL"`
	AccountReference  string `json:"AccountReference"`
	TransactionDesc   string `json:"TransactionDesc"`
}

type STKResponse struct {
	MerchantRequestID   string `json:"MerchantRequestID"`
	CheckoutRequestID   string `json:"CheckoutRequestID"`
	ResponseCode        string `json:"ResponseCode"`
	ResponseDescription string `json:"ResponseDescription"`
	CustomerMessage     string `json:"CustomerMessage"`
	ErrorMessage        string `json:"errorMessage"`
}

// Accepted reports whether Daraja accepted the push for processing.
func (r *STKResponse) Accepted() bool { return r != nil && r.ResponseCode == "0" }

// STKPush asks Daraja to prompt phone for amount. phone must already be in
// the 254 wire format. Daraja takes whole shillings, so the amount is
// truncated to its integer part.
func (c *Client) STKPush(ctx context.Context, phone string, amount decimal.Decimal, accountRef, desc string) (*STKResponse, error) {
	token, err := c.AccessToken(ctx)
	if err != nil {
		return nil, err
	}

	ts := c.now().Format("20060102150405")
	password := base64.StdEncoding.EncodeToString([]byte(c.cfg.ShortCode + c.cfg.Passkey + ts))

	payload := stkRequest{
		BusinessShortCode: c.cfg.ShortCode,
		Password:          password,
		Timestamp:         ts,
		TransactionType:   "CustomerPayBillOnline",
		Amount:            amount.IntPart(),
		PartyA:            phone,
		PartyB:            c.cfg.ShortCode,
		PhoneNumber:       phone,
		CallBackURL:       c.cfg.CallbackURL,
		AccountReference:  accountRef,
		TransactionDesc:   desc,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	url := c.base + "/mpesa/stkpush/v1/processrequest"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("mpesa stk push: %w", err)
	}
	defer resp.Body.Close()

	var out STKResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("mpesa stk push: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		msg := out.ErrorMessage
		if msg == "" {
			msg = out.ResponseDescription
		}
		return nil, fmt.Errorf("mpesa stk push: status %d: %s", resp.StatusCode, msg)
	}
	return &out, nil
}

// Callback is the payload Daraja POSTs to the callback URL after the user
// responds to the phone prompt. ResultCode 0 means paid.
type Callback struct {
	Body struct {
		StkCallback struct {
			MerchantRequestID string `json:"MerchantRequestID"`
			CheckoutRequestID string `json:"CheckoutRequestID"`
			ResultCode        int    `json:"ResultCode"`
			ResultDesc        string `json:"ResultDesc"`
		} `json:"stkCallback"`
	} `json:"Body"`
}
