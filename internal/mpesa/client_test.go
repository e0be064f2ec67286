package mpesa

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"sokojumla/internal/config"
)

func testCfg() config.Mpesa {
	return config.Mpesa{
		ConsumerKey:    "key",
		ConsumerSecret: "secret",
		ShortCode:      "174379",
		Passkey:        "passkey",
		CallbackURL:    "http://localhost:8080/api/v1/mpesa/callback",
		Environment:    "sandbox",
		Timeout:        5 * time.Second,
	}
}

func newTestServer(t *testing.T, pushStatus int, pushBody any) (*httptest.Server, *stkRequest) {
	t.Helper()
	var captured stkRequest
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/v1/generate", func(w http.ResponseWriter, r *http.Request) {
		wantAuth := "Basic " + base64.StdEncoding.EncodeToString([]byte("key:secret"))
		if r.Header.Get("Authorization") != wantAuth {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"access_token": "tok-1", "expires_in": "3599"})
	})
	mux.HandleFunc("/mpesa/stkpush/v1/processrequest", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok-1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.WriteHeader(pushStatus)
		json.NewEncoder(w).Encode(pushBody)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, &captured
}

func TestAccessToken(t *testing.T) {
	srv, _ := newTestServer(t, http.StatusOK, nil)
	c := New(testCfg()).WithBaseURL(srv.URL)

	tok, err := c.AccessToken(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if tok != "tok-1" {
		t.Fatalf("want tok-1, got %q", tok)
	}
}

func TestAccessTokenBadCredentials(t *testing.T) {
	srv, _ := newTestServer(t, http.StatusOK, nil)
	cfg := testCfg()
	cfg.ConsumerSecret = "wrong"
	c := New(cfg).WithBaseURL(srv.URL)

	if _, err := c.AccessToken(context.Background()); err == nil {
		t.Fatal("want error on 401")
	}
}

func TestSTKPush(t *testing.T) {
	srv, captured := newTestServer(t, http.StatusOK, STKResponse{
		MerchantRequestID: "mr-1",
		CheckoutRequestID: "ws_CO_1",
		ResponseCode:      "0",
		CustomerMessage:   "Success. Request accepted for processing",
	})
	c := New(testCfg()).WithBaseURL(srv.URL)
	c.now = func() time.Time { return time.Date(2026, 3, 14, 15, 9, 26, 0, time.UTC) }

	resp, err := c.STKPush(context.Background(), "254712345678", decimal.RequireFromString("137.97"), "SOKO-abc", "Wholesale order")
	if err != nil {
		t.Fatal(err)
	}
	if !resp.Accepted() {
		t.Fatalf("want accepted, got %+v", resp)
	}
	if resp.CheckoutRequestID != "ws_CO_1" {
		t.Fatalf("bad response: %+v", resp)
	}

	if captured.Timestamp != "20260314150926" {
		t.Fatalf("bad timestamp: %q", captured.Timestamp)
	}
	wantPassword := base64.StdEncoding.EncodeToString([]byte("174379" + "passkey" + "20260314150926"))
	if captured.Password != wantPassword {
		t.Fatalf("bad password: %q", captured.Password)
	}
	// Daraja takes whole shillings
	if captured.Amount != 137 {
		t.Fatalf("want truncated amount 137, got %d", captured.Amount)
	}
	if captured.PartyA != "254712345678" || captured.PhoneNumber != "254712345678" {
		t.Fatalf("bad phone fields: %+v", captured)
	}
	if captured.TransactionType != "CustomerPayBillOnline" {
		t.Fatalf("bad transaction type: %q", captured.TransactionType)
	}
}

func TestSTKPushRejected(t *testing.T) {
	srv, _ := newTestServer(t, http.StatusBadRequest, STKResponse{ErrorMessage: "Invalid PhoneNumber"})
	c := New(testCfg()).WithBaseURL(srv.URL)

	if _, err := c.STKPush(context.Background(), "bad", decimal.RequireFromString("10"), "SOKO-abc", "x"); err == nil {
		t.Fatal("want error on 400")
	}
}

func TestAcceptedGuardsNil(t *testing.T) {
	var r *STKResponse
	if r.Accepted() {
		t.Fatal("nil response must not be accepted")
	}
	if (&STKResponse{ResponseCode: "1032"}).Accepted() {
		t.Fatal("non-zero response code must not be accepted")
	}
}

func TestCallbackDecoding(t *testing.T) {
	raw := `{"Body":{"stkCallback":{"MerchantRequestID":"mr-1","CheckoutRequestID":"ws_CO_1","ResultCode":1032,"ResultDesc":"Request cancelled by user"}}}`
	var cb Callback
	if err := json.Unmarshal([]byte(raw), &cb); err != nil {
		t.Fatal(err)
	}
	stk := cb.Body.StkCallback
	if stk.CheckoutRequestID != "ws_CO_1" || stk.ResultCode != 1032 {
		t.Fatalf("bad decode: %+v", stk)
	}
}
