package order

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gulitdev/gulit-api/api/web"
	"github.com/gulitdev/gulit-api/api/weberr"
	"github.com/gulitdev/gulit-api/core/claims"
	"github.com/gulitdev/gulit-api/core/product"
	"github.com/gulitdev/gulit-api/core/user"
	"github.com/gulitdev/gulit-api/validate"
	"github.com/jmoiron/sqlx"
	"github.com/plutov/paypal/v4"
)

// HandlePaypalCheckout is the alternate provider path: the gateway order is
// created first, then its id becomes the local transaction reference.
func HandlePaypalCheckout(db *sqlx.DB, pp *paypal.Client) web.Handler {
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

		tot := prd.Price * on.Quantity

		units := []paypal.PurchaseUnitRequest{{
			Items: []paypal.Item{{
				Quantity:    strconv.Itoa(on.Quantity),
				Name:        prd.Name,
				Description: prd.Description,

				UnitAmount: &paypal.Money{
					Currency: "USD",
					Value:    strconv.Itoa(prd.Price),
				},
			}},

			Amount: &paypal.PurchaseUnitAmount{
				Currency: "USD",
				Value:    strconv.Itoa(tot),

				Breakdown: &paypal.PurchaseUnitAmountBreakdown{ItemTotal: &paypal.Money{
					Currency: "USD",
					Value:    strconv.Itoa(tot),
				}},
			},
		}}

		gw, err := pp.CreateOrder(ctx, "CAPTURE", units, nil, &paypal.ApplicationContext{})
		if err != nil {
			return weberr.BadGateway(fmt.Errorf("creating paypal order: %w", err))
		}

		txRef := gw.ID
		now := time.Now().UTC()
		ord := Order{
			ID:              validate.GenerateID(),
			UserID:          clm.UserID,
			ProductID:       prd.ID,
			Quantity:        on.Quantity,
			TotalAmount:     tot,
			Status:          Pending,
			ReceiveStatus:   NotReceived,
			Provider:        ProviderPaypal,
			TxRef:           &txRef,
			CustomerEmail:   usr.Email,
			CustomerPhone:   on.CustomerPhone,
			ShippingAddress: on.ShippingAddress,
			ReceiverPhone:   on.ReceiverPhone,
			Notes:           on.Notes,
			CreatedAt:       now,
			UpdatedAt:       now,
		}

		if _, err := prepare(ctx, db, ord); err != nil {
			if errors.Is(err, product.ErrInsufficientStock) {
				return weberr.NewError(err, "insufficient stock for the requested quantity", http.StatusUnprocessableEntity)
			}
			return fmt.Errorf("creating the order on the database: %w", err)
		}

		return web.Respond(ctx, w, gw, http.StatusOK)
	}
}

func HandlePaypalCapture(db *sqlx.DB, pp *paypal.Client) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		providerID := web.Param(r, "id")

		ord, err := FetchByTxRef(ctx, db, providerID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return weberr.NewError(err, "Order not found", http.StatusNotFound)
			}
			return err
		}

		if ord.Status == Paid {
			return web.Respond(ctx, w, nil, http.StatusNoContent)
		}

		// Capturing an expired order would take money with nothing left
		// to fulfill: refuse before the gateway is asked for funds.
		if ord.Status == Expired {
			err := fmt.Errorf("order[%s] expired before capture", ord.ID)
			return weberr.NewError(err, "order expired", http.StatusConflict)
		}

		resp, err := pp.CaptureOrder(ctx, providerID, paypal.CaptureOrderRequest{})
		if err != nil {
			return weberr.BadGateway(fmt.Errorf("capturing paypal order[%s]: %w", providerID, err))
		}

		if resp.Status != "COMPLETED" {
			err := fmt.Errorf("captured order[%s] with status[%s] different from 'COMPLETED'", providerID, resp.Status)
			return weberr.NewError(err, "payment not completed", http.StatusBadRequest)
		}

		if err := fulfill(ctx, db, ord, providerID); err != nil {
			return fmt.Errorf("the order was paid but its fulfillment failed: %w", err)
		}

		return web.Respond(ctx, w, nil, http.StatusNoContent)
	}
}
