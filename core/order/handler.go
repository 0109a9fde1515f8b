package order

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gulitdev/gulit-api/api/web"
	"github.com/gulitdev/gulit-api/api/weberr"
	"github.com/gulitdev/gulit-api/chapa"
	"github.com/gulitdev/gulit-api/core/cart"
	"github.com/gulitdev/gulit-api/core/claims"
	"github.com/gulitdev/gulit-api/core/payment"
	"github.com/gulitdev/gulit-api/core/product"
	"github.com/gulitdev/gulit-api/core/user"
	"github.com/gulitdev/gulit-api/database"
	"github.com/gulitdev/gulit-api/validate"
	"github.com/jmoiron/sqlx"
)

// prepare creates the Order and its Payment row atomically and reserves
// the ordered stock in the same transaction: two buyers can never both
// reach the hosted checkout for the last units. It returns the id of the
// created payment.
func prepare(ctx context.Context, db *sqlx.DB, ord Order) (string, error) {
	now := time.Now().UTC()
	pay := payment.Payment{
		ID:        validate.GenerateID(),
		OrderID:   ord.ID,
		UserID:    ord.UserID,
		Amount:    ord.TotalAmount,
		Method:    ord.Provider,
		Status:    payment.Initiated,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err := database.Transaction(db, func(tx sqlx.ExtContext) error {
		if err := product.DecrementStock(ctx, tx, ord.ProductID, ord.Quantity); err != nil {
			return err
		}

		if err := Create(ctx, tx, ord); err != nil {
			return fmt.Errorf("creating order: %w", err)
		}

		if err := payment.Create(ctx, tx, pay); err != nil {
			return fmt.Errorf("creating payment: %w", err)
		}

		return nil
	})

	if err != nil {
		if errors.Is(err, product.ErrInsufficientStock) {
			return "", err
		}
		return "", fmt.Errorf("creating the order bound to payment[%s] for user[%s]: %w", *ord.TxRef, ord.UserID, err)
	}
	return pay.ID, nil
}

// compensate rolls a freshly created order out of the pending state after
// the gateway call failed: the pair goes expired/failed and the reserved
// stock returns to the listing.
func compensate(ctx context.Context, db *sqlx.DB, ord Order) error {
	return database.Transaction(db, func(tx sqlx.ExtContext) error {
		if err := Expire(ctx, tx, ord.ID); err != nil {
			return err
		}
		if err := product.RestoreStock(ctx, tx, ord.ProductID, ord.Quantity); err != nil {
			return err
		}
		return payment.Fail(ctx, tx, ord.ID)
	})
}

// fulfill settles a verified payment: the order goes paid, its payment is
// completed and the buyer's cart is flushed, all in one transaction. The
// stock was already reserved at initiation. The MarkPaid guard makes
// concurrent confirmations settle on exactly one winner; losers are a
// clean no-op.
func fulfill(ctx context.Context, db *sqlx.DB, ord Order, transactionID string) error {
	err := database.Transaction(db, func(tx sqlx.ExtContext) error {
		transitioned, err := MarkPaid(ctx, tx, ord.ID)
		if err != nil {
			return err
		}
		if !transitioned {
			return nil
		}

		if err := payment.Complete(ctx, tx, ord.ID, transactionID, time.Now().UTC()); err != nil {
			return err
		}

		return cart.Delete(ctx, tx, ord.UserID)
	})

	if err != nil {
		return fmt.Errorf("fulfilling the order[%s]: %w", ord.ID, err)
	}
	return nil
}

// settleExpired closes a payment that completed after its order was swept
// to expired: the money is captured with nothing left to fulfill, so the
// order joins the refund queue for the back office.
func settleExpired(ctx context.Context, db *sqlx.DB, ord Order, transactionID string) error {
	err := database.Transaction(db, func(tx sqlx.ExtContext) error {
		if err := FlagRefund(ctx, tx, ord.ID); err != nil {
			return err
		}
		return payment.Complete(ctx, tx, ord.ID, transactionID, time.Now().UTC())
	})

	if err != nil {
		return fmt.Errorf("queuing refund of expired order[%s]: %w", ord.ID, err)
	}
	return nil
}

// HandleChapaCheckout initiates a purchase: it persists the pending
// Order/Payment pair, then asks the gateway for a hosted checkout URL.
func HandleChapaCheckout(db *sqlx.DB, cp *chapa.Client, returnURL string) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		var on OrderNew
		if err := web.Decode(w, r, &on); err != nil {
			return weberr.BadRequest(err)
		}

		if err := validate.Check(on); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusUnprocessableEntity)
		}

		usr, err := user.Fetch(ctx, db, clm.UserID)
		if err != nil {
			return fmt.Errorf("fetching buyer: %w", err)
		}

		prd, err := product.Fetch(ctx, db, on.ProductID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return weberr.NotFound(err)
			}
			return err
		}

		// A uuid-based reference: the unique constraint on tx_ref must
		// never trip on two purchases initiated in the same instant.
		txRef := "tx-" + validate.GenerateID()

		now := time.Now().UTC()
		ord := Order{
			ID:              validate.GenerateID(),
			UserID:          clm.UserID,
			ProductID:       prd.ID,
			Quantity:        on.Quantity,
			TotalAmount:     prd.Price * on.Quantity,
			Status:          Pending,
			ReceiveStatus:   NotReceived,
			Provider:        ProviderChapa,
			TxRef:           &txRef,
			CustomerEmail:   usr.Email,
			CustomerPhone:   on.CustomerPhone,
			ShippingAddress: on.ShippingAddress,
			ReceiverPhone:   on.ReceiverPhone,
			Notes:           on.Notes,
			CreatedAt:       now,
			UpdatedAt:       now,
		}

		payID, err := prepare(ctx, db, ord)
		if err != nil {
			if errors.Is(err, product.ErrInsufficientStock) {
				return weberr.NewError(err, "insufficient stock for the requested quantity", http.StatusUnprocessableEntity)
			}
			return err
		}

		init, err := cp.Initialize(ctx, chapa.InitializeRequest{
			Amount:      strconv.Itoa(ord.TotalAmount),
			Currency:    "ETB",
			Email:       usr.Email,
			FirstName:   usr.Name,
			PhoneNumber: on.CustomerPhone,
			TxRef:       txRef,
			ReturnURL:   returnURL,
		})
		if err != nil {
			if errC := compensate(ctx, db, ord); errC != nil {
				return fmt.Errorf("compensating order[%s] after gateway failure: %v (original error: %w)", ord.ID, errC, err)
			}

			var ge *chapa.GatewayError
			if errors.As(err, &ge) {
				return weberr.BadGateway(err, weberr.WithFields(map[string]interface{}{
					"gateway_status": ge.StatusCode,
					"gateway_body":   ge.Body,
				}))
			}
			return weberr.BadGateway(err)
		}

		if err := payment.SetRaw(ctx, db, payID, init.Raw); err != nil {
			return err
		}

		out := struct {
			CheckoutURL string `json:"checkout_url"`
			TxRef       string `json:"tx_ref"`
			OrderID     string `json:"order_id"`
		}{
			CheckoutURL: init.Data.CheckoutURL,
			TxRef:       txRef,
			OrderID:     ord.ID,
		}

		return web.Respond(ctx, w, out, http.StatusOK)
	}
}

// HandleChapaConfirm settles an order after the buyer returns from the
// hosted checkout. The transaction state is verified server-side against
// the gateway: a caller who merely knows the reference cannot mark an
// unpaid order paid.
func HandleChapaConfirm(db *sqlx.DB, cp *chapa.Client) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		txRef := web.Param(r, "tx_ref")

		ord, err := FetchByTxRef(ctx, db, txRef)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return weberr.NewError(err, "Order not found", http.StatusNotFound)
			}
			return err
		}

		// Repeated confirmations of a settled order are a no-op success.
		if ord.Status == Paid {
			return web.Respond(ctx, w, ord, http.StatusOK)
		}

		// An expired order may still carry a settled payment when the
		// buyer paid right before the sweep. Such a payment must not be
		// lost: it is closed as completed and queued for a refund.
		if ord.Status == Expired {
			if ord.ReceiveStatus == NotReceived {
				vr, err := cp.Verify(ctx, txRef)
				if err != nil {
					return weberr.BadGateway(err)
				}
				if vr.Paid() {
					if err := settleExpired(ctx, db, ord, vr.Data.Reference); err != nil {
						return err
					}
					err := fmt.Errorf("payment[%s] settled after order[%s] expired", txRef, ord.ID)
					return weberr.NewError(err, "order expired; the payment will be refunded", http.StatusConflict)
				}
				return weberr.NewError(ErrNotPending, ErrNotPending.Error(), http.StatusBadRequest)
			}
			err := fmt.Errorf("order[%s] expired with a settled payment", ord.ID)
			return weberr.NewError(err, "order expired; the payment will be refunded", http.StatusConflict)
		}

		if err := ord.CanFulfill(); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusBadRequest)
		}

		vr, err := cp.Verify(ctx, txRef)
		if err != nil {
			return weberr.BadGateway(err)
		}

		if !vr.Paid() {
			err := fmt.Errorf("transaction[%s] is not settled at the gateway", txRef)
			return weberr.NewError(err, "payment not completed", http.StatusBadRequest)
		}

		if err := fulfill(ctx, db, ord, vr.Data.Reference); err != nil {
			return fmt.Errorf("the order was paid but its fulfillment failed: %w", err)
		}

		ord, err = Fetch(ctx, db, ord.ID)
		if err != nil {
			return err
		}

		return web.Respond(ctx, w, ord, http.StatusOK)
	}
}

// HandleChapaWebhook is the server-to-server notification path. Events must
// carry a valid HMAC signature; the transaction is still re-verified with
// the gateway before fulfillment.
func HandleChapaWebhook(db *sqlx.DB, cp *chapa.Client) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		b, err := io.ReadAll(r.Body)
		if err != nil {
			return weberr.BadRequest(fmt.Errorf("cannot read the request body: %w", err))
		}

		sig := r.Header.Get("Chapa-Signature")
		if sig == "" {
			sig = r.Header.Get("X-Chapa-Signature")
		}

		if !cp.VerifySignature(b, sig) {
			return weberr.NotAuthorized(errors.New("webhook event is not signed correctly"))
		}

		var evt struct {
			TxRef  string `json:"tx_ref"`
			Status string `json:"status"`
		}
		if err := json.Unmarshal(b, &evt); err != nil {
			return weberr.BadRequest(fmt.Errorf("unable to decode webhook event: %w", err))
		}

		if evt.Status != "success" {
			return web.Respond(ctx, w, nil, http.StatusNoContent)
		}

		ord, err := FetchByTxRef(ctx, db, evt.TxRef)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return weberr.NewError(err, "Order not found", http.StatusNotFound)
			}
			return err
		}

		if ord.Status == Paid {
			return web.Respond(ctx, w, nil, http.StatusNoContent)
		}

		vr, err := cp.Verify(ctx, evt.TxRef)
		if err != nil {
			return weberr.BadGateway(err)
		}

		if !vr.Paid() {
			return web.Respond(ctx, w, nil, http.StatusNoContent)
		}

		// Settled after the expiry sweep: queue the refund instead of
		// dropping the event as a no-op.
		if ord.Status == Expired {
			if ord.ReceiveStatus == NotReceived {
				if err := settleExpired(ctx, db, ord, vr.Data.Reference); err != nil {
					return err
				}
			}
			return web.Respond(ctx, w, nil, http.StatusNoContent)
		}

		if err := fulfill(ctx, db, ord, vr.Data.Reference); err != nil {
			return fmt.Errorf("the order was paid but its fulfillment failed: %w", err)
		}

		return web.Respond(ctx, w, nil, http.StatusNoContent)
	}
}

// HandleReceived is the buyer's delivery acknowledgment. It is valid only
// once the order is paid.
func HandleReceived(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		ord, err := fetchOwned(ctx, db, web.Param(r, "id"))
		if err != nil {
			return err
		}

		if err := ord.CanReceive(); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusBadRequest)
		}

		if err := SetReceiveStatus(ctx, db, ord.ID, Received); err != nil {
			if errors.Is(err, ErrNotPaid) {
				return weberr.NewError(err, err.Error(), http.StatusBadRequest)
			}
			return err
		}

		return web.Respond(ctx, w, nil, http.StatusNoContent)
	}
}

// HandleRefundRequest lets the buyer open a refund on a paid order.
func HandleRefundRequest(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		ord, err := fetchOwned(ctx, db, web.Param(r, "id"))
		if err != nil {
			return err
		}

		if err := ord.CanRequestRefund(); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusBadRequest)
		}

		if err := SetReceiveStatus(ctx, db, ord.ID, Refunding); err != nil {
			if errors.Is(err, ErrNotPaid) {
				return weberr.NewError(err, err.Error(), http.StatusBadRequest)
			}
			return err
		}

		return web.Respond(ctx, w, nil, http.StatusNoContent)
	}
}

// HandleRefundResolve closes an open refund. Back-office only.
func HandleRefundResolve(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		id := web.Param(r, "id")
		if err := validate.CheckID(id); err != nil {
			return weberr.BadRequest(err)
		}

		ord, err := Fetch(ctx, db, id)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return weberr.NewError(err, "Order not found", http.StatusNotFound)
			}
			return err
		}

		if err := ord.CanResolveRefund(); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusBadRequest)
		}

		if err := SetReceiveStatus(ctx, db, ord.ID, Refunded); err != nil {
			if errors.Is(err, ErrNotPaid) {
				return weberr.NewError(err, err.Error(), http.StatusBadRequest)
			}
			return err
		}

		return web.Respond(ctx, w, nil, http.StatusNoContent)
	}
}

func HandleList(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		orders, err := FetchByUser(ctx, db, clm.UserID)
		if err != nil {
			return err
		}

		return web.Respond(ctx, w, orders, http.StatusOK)
	}
}

func HandleListAll(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		orders, err := FetchAll(ctx, db)
		if err != nil {
			return err
		}

		return web.Respond(ctx, w, orders, http.StatusOK)
	}
}

func HandleShow(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		id := web.Param(r, "id")
		if err := validate.CheckID(id); err != nil {
			return weberr.BadRequest(err)
		}

		ord, err := Fetch(ctx, db, id)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return weberr.NewError(err, "Order not found", http.StatusNotFound)
			}
			return err
		}

		if !claims.IsUser(ctx, ord.UserID) && !claims.IsStaff(ctx) {
			return weberr.Forbidden(errors.New("not the owner of the order"))
		}

		out := struct {
			Order
			Payment *payment.Payment `json:"payment,omitempty"`
		}{Order: ord}

		pay, err := payment.FetchByOrder(ctx, db, ord.ID)
		switch {
		case err == nil:
			out.Payment = &pay
		case !errors.Is(err, sql.ErrNoRows):
			return err
		}

		return web.Respond(ctx, w, out, http.StatusOK)
	}
}

// fetchOwned loads an order and checks the caller owns it.
func fetchOwned(ctx context.Context, db *sqlx.DB, id string) (Order, error) {
	if err := validate.CheckID(id); err != nil {
		return Order{}, weberr.BadRequest(err)
	}

	ord, err := Fetch(ctx, db, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Order{}, weberr.NewError(err, "Order not found", http.StatusNotFound)
		}
		return Order{}, err
	}

	if !claims.IsUser(ctx, ord.UserID) {
		return Order{}, weberr.Forbidden(errors.New("not the owner of the order"))
	}

	return ord, nil
}
