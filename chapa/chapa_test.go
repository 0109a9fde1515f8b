package chapa

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func testClient(t *testing.T, h http.HandlerFunc) *Client {
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(srv.URL, "sk-test", "whsec-test", 5*time.Second)
}

func TestInitialize(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/transaction/initialize" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Errorf("unexpected authorization header %q", got)
		}

		var req InitializeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		if req.TxRef != "tx-1" || req.Amount != "100" || req.Currency != "ETB" {
			t.Errorf("unexpected request %+v", req)
		}

		json.NewEncoder(w).Encode(map[string]any{
			"message": "Hosted Link",
			"status":  "success",
			"data":    map[string]any{"checkout_url": "https://checkout.chapa.co/tx-1"},
		})
	})

	out, err := c.Initialize(context.Background(), InitializeRequest{
		Amount:   "100",
		Currency: "ETB",
		Email:    "buyer@test.com",
		TxRef:    "tx-1",
	})
	if err != nil {
		t.Fatalf("initialize failed: %v", err)
	}

	if out.Data.CheckoutURL != "https://checkout.chapa.co/tx-1" {
		t.Fatalf("unexpected checkout url %q", out.Data.CheckoutURL)
	}
	if len(out.Raw) == 0 {
		t.Fatal("raw gateway body was not kept")
	}
}

func TestInitializeGatewayError(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"message":"Invalid currency","status":"failed"}`))
	})

	_, err := c.Initialize(context.Background(), InitializeRequest{TxRef: "tx-2"})
	if err == nil {
		t.Fatal("expected an error on a failed initialize")
	}

	var ge *GatewayError
	if !errors.As(err, &ge) {
		t.Fatalf("expected a GatewayError, got %T", err)
	}
	if ge.StatusCode != http.StatusBadRequest {
		t.Fatalf("unexpected status code %d", ge.StatusCode)
	}
}

func TestInitializeWithoutCheckoutURL(t *testing.T) {
	// A 200 answer without a checkout url is still a gateway failure.
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"status": "success", "data": map[string]any{}})
	})

	_, err := c.Initialize(context.Background(), InitializeRequest{TxRef: "tx-3"})
	if err == nil {
		t.Fatal("expected an error when no checkout url is returned")
	}
}

func TestVerify(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/transaction/verify/tx-4" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"status": "success",
			"data":   map[string]any{"tx_ref": "tx-4", "reference": "ref-4", "status": "success"},
		})
	})

	out, err := c.Verify(context.Background(), "tx-4")
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	if !out.Paid() {
		t.Fatal("a settled transaction reported unpaid")
	}
	if out.Data.Reference != "ref-4" {
		t.Fatalf("unexpected reference %q", out.Data.Reference)
	}
}

func TestVerifyPending(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"status": "success",
			"data":   map[string]any{"tx_ref": "tx-5", "status": "pending"},
		})
	})

	out, err := c.Verify(context.Background(), "tx-5")
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	if out.Paid() {
		t.Fatal("a pending transaction reported paid")
	}
}

func TestVerifyTimeout(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	})
	c.HTTP.Timeout = 20 * time.Millisecond

	if _, err := c.Verify(context.Background(), "tx-6"); err == nil {
		t.Fatal("expected a timeout error from a stalled gateway")
	}
}

func TestVerifySignature(t *testing.T) {
	c := New("http://gateway", "sk", "whsec-test", time.Second)

	body := []byte(`{"tx_ref":"tx-7","status":"success"}`)
	mac := hmac.New(sha256.New, []byte("whsec-test"))
	mac.Write(body)
	sig := hex.EncodeToString(mac.Sum(nil))

	if !c.VerifySignature(body, sig) {
		t.Fatal("a valid signature was rejected")
	}
	if c.VerifySignature(body, "deadbeef") {
		t.Fatal("an invalid signature was accepted")
	}
	if c.VerifySignature([]byte(`tampered`), sig) {
		t.Fatal("a tampered body was accepted")
	}
	if c.VerifySignature(body, "") {
		t.Fatal("an empty signature was accepted")
	}

	unset := New("http://gateway", "sk", "", time.Second)
	if unset.VerifySignature(body, sig) {
		t.Fatal("a signature was accepted without a configured secret")
	}
}
