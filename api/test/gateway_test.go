package test

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"sync"

	"github.com/gorilla/mux"
	"github.com/gulitdev/gulit-api/api/web"
	"github.com/gulitdev/gulit-api/chapa"
	"github.com/plutov/paypal/v4"
)

// mockChapa emulates the hosted-checkout gateway. A transaction starts
// unsettled: verify reports it pending until the test calls settle, the
// same way a real buyer completes the hosted page out of band.
type mockChapa struct {
	webhookSecret string

	mu       sync.Mutex
	settled  map[string]bool
	failNext bool
}

func newMockChapa(webhookSecret string) *mockChapa {
	return &mockChapa{
		webhookSecret: webhookSecret,
		settled:       make(map[string]bool),
	}
}

// settle marks a transaction as paid on the gateway side.
func (m *mockChapa) settle(txRef string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.settled[txRef] = true
}

// failNextInit makes the next initialize call answer with a gateway error.
func (m *mockChapa) failNextInit() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failNext = true
}

// sign computes the webhook signature the gateway would attach to body.
func (m *mockChapa) sign(body []byte) string {
	mac := hmac.New(sha256.New, []byte(m.webhookSecret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func (m *mockChapa) handler() http.Handler {
	initialize := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+chapaSecret {
			web.Respond(context.Background(), w, nil, http.StatusUnauthorized)
			return
		}

		m.mu.Lock()
		fail := m.failNext
		m.failNext = false
		m.mu.Unlock()

		if fail {
			out := map[string]any{"message": "Invalid currency", "status": "failed"}
			web.Respond(context.Background(), w, out, http.StatusBadRequest)
			return
		}

		var req chapa.InitializeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			web.Respond(context.Background(), w, nil, http.StatusBadRequest)
			return
		}

		if req.TxRef == "" || req.Amount == "" || req.Email == "" {
			web.Respond(context.Background(), w, nil, http.StatusBadRequest)
			return
		}

		out := map[string]any{
			"message": "Hosted Link",
			"status":  "success",
			"data": map[string]any{
				"checkout_url": "https://checkout.test/" + req.TxRef,
			},
		}
		web.Respond(context.Background(), w, out, http.StatusOK)
	})

	verify := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		txRef := mux.Vars(r)["tx_ref"]

		m.mu.Lock()
		paid := m.settled[txRef]
		m.mu.Unlock()

		status := "pending"
		if paid {
			status = "success"
		}

		out := map[string]any{
			"message": "Payment details",
			"status":  "success",
			"data": map[string]any{
				"tx_ref":    txRef,
				"reference": "ref-" + txRef,
				"status":    status,
			},
		}
		web.Respond(context.Background(), w, out, http.StatusOK)
	})

	r := mux.NewRouter()
	r.Handle("/v1/transaction/initialize", initialize).Methods("POST")
	r.Handle("/v1/transaction/verify/{tx_ref}", verify).Methods("GET")
	return r
}

type mockPaypal struct{}

func (m *mockPaypal) handler() http.Handler {
	token := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		out := map[string]any{
			"access_token": "test-token",
			"token_type":   "Bearer",
			"expires_in":   3600,
		}
		web.Respond(context.Background(), w, out, http.StatusOK)
	})

	checkout := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var pu struct {
			Units []paypal.PurchaseUnitRequest `json:"purchase_units"`
		}
		if err := json.NewDecoder(r.Body).Decode(&pu); err != nil {
			web.Respond(context.Background(), w, nil, http.StatusBadRequest)
			return
		}

		if len(pu.Units) != 1 || len(pu.Units[0].Items) != 1 {
			web.Respond(context.Background(), w, nil, http.StatusBadRequest)
			return
		}

		randID := fmt.Sprintf("paypal-%d", rand.Intn(300))
		web.Respond(context.Background(), w, paypal.Order{ID: randID, Status: "CREATED"}, http.StatusOK)
	})

	capture := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		out := map[string]any{"id": mux.Vars(r)["id"], "status": "COMPLETED"}
		web.Respond(context.Background(), w, out, http.StatusOK)
	})

	r := mux.NewRouter()
	r.Handle("/v1/oauth2/token", token).Methods("POST")
	r.Handle("/v2/checkout/orders", checkout).Methods("POST")
	r.Handle("/v2/checkout/orders/{id}/capture", capture).Methods("POST")
	return r
}
