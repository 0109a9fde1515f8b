package api

import (
	"context"
	"net/http"

	"github.com/alexedwards/scs/v2"
	"github.com/gorilla/mux"
	"github.com/gulitdev/gulit-api/api/background"
	"github.com/gulitdev/gulit-api/api/middleware"
	"github.com/gulitdev/gulit-api/api/web"
	"github.com/gulitdev/gulit-api/api/weberr"
	"github.com/gulitdev/gulit-api/chapa"
	"github.com/gulitdev/gulit-api/core/auth"
	"github.com/gulitdev/gulit-api/core/cart"
	"github.com/gulitdev/gulit-api/core/order"
	"github.com/gulitdev/gulit-api/core/payment"
	"github.com/gulitdev/gulit-api/core/post"
	"github.com/gulitdev/gulit-api/core/product"
	"github.com/gulitdev/gulit-api/core/teambox"
	"github.com/gulitdev/gulit-api/core/user"
	"github.com/gulitdev/gulit-api/database"
	"github.com/gulitdev/gulit-api/rate"
	"github.com/gulitdev/gulit-api/upload"
	"github.com/jmoiron/sqlx"
	"github.com/plutov/paypal/v4"
	"github.com/sirupsen/logrus"
)

type APIConfig struct {
	CorsOrigin       string
	Log              logrus.FieldLogger
	DB               *sqlx.DB
	Session          *scs.SessionManager
	Background       *background.Background
	Chapa            *chapa.Client
	ChapaReturnURL   string
	Paypal           *paypal.Client
	Uploads          *upload.Store
	Providers        map[string]auth.Provider
	LoginRedirectURL string
	LoginLimiter     *rate.Limiter
}

type api struct {
	*mux.Router
	mw  []web.Middleware
	log logrus.FieldLogger
}

func APIMux(cfg APIConfig) http.Handler {
	a := &api{
		Router: mux.NewRouter(),
		log:    cfg.Log,
	}

	a.mw = append(a.mw, auth.LoadAndSave(cfg.Session))
	a.mw = append(a.mw, middleware.RequestID())
	a.mw = append(a.mw, middleware.Logger(cfg.Log))
	a.mw = append(a.mw, middleware.Errors(cfg.Log))
	a.mw = append(a.mw, middleware.Panics())

	if cfg.CorsOrigin != "" {
		a.mw = append(a.mw, middleware.Cors(cfg.CorsOrigin))

		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			w.WriteHeader(http.StatusNoContent)
			return nil
		}

		a.Handle(http.MethodOptions, "/{path:.*}", h)
	}

	authen := auth.Authenticate()
	admin := auth.Admin()
	staff := auth.Staff()
	limited := middleware.RateLimit(cfg.LoginLimiter)

	a.Handle(http.MethodGet, "/health", handleHealth(cfg.DB))

	a.Handle(http.MethodPost, "/auth/signup", auth.HandleSignup(cfg.DB, cfg.Session), limited)
	a.Handle(http.MethodPost, "/auth/login", auth.HandleLogin(cfg.DB, cfg.Session), limited)
	a.Handle(http.MethodPost, "/auth/logout", auth.HandleLogout(cfg.Session))
	a.Handle(http.MethodGet, "/auth/oauth-login/{provider}", auth.HandleOauthLogin(cfg.Session, cfg.Providers))
	a.Handle(http.MethodGet, "/auth/oauth-callback/{provider}", auth.HandleOauthCallback(cfg.DB, cfg.Session, cfg.Providers, cfg.LoginRedirectURL))

	a.Handle(http.MethodGet, "/users/current", user.HandleShowCurrent(cfg.DB), authen)
	a.Handle(http.MethodPut, "/users/current", user.HandleUpdate(cfg.DB), authen)
	a.Handle(http.MethodGet, "/users/{id}/followers", user.HandleListFollowers(cfg.DB))
	a.Handle(http.MethodGet, "/users/{id}/following", user.HandleListFollowing(cfg.DB))
	a.Handle(http.MethodPost, "/users/{id}/follow", user.HandleFollow(cfg.DB), authen)
	a.Handle(http.MethodDelete, "/users/{id}/follow", user.HandleUnfollow(cfg.DB), authen)
	a.Handle(http.MethodGet, "/users/{id}", user.HandleShow(cfg.DB), authen)

	a.Handle(http.MethodGet, "/products/favorites", product.HandleListFavorites(cfg.DB), authen)
	a.Handle(http.MethodGet, "/products/mine", product.HandleListMine(cfg.DB), staff)
	a.Handle(http.MethodGet, "/products/{id}/ratings", product.HandleListRatings(cfg.DB))
	a.Handle(http.MethodPut, "/products/{id}/ratings", product.HandleUpsertRating(cfg.DB), authen)
	a.Handle(http.MethodPost, "/products/{id}/favorite", product.HandleCreateFavorite(cfg.DB), authen)
	a.Handle(http.MethodDelete, "/products/{id}/favorite", product.HandleDeleteFavorite(cfg.DB), authen)
	a.Handle(http.MethodPost, "/products/{id}/image", product.HandleUploadImage(cfg.DB, cfg.Uploads, cfg.Background), staff)
	a.Handle(http.MethodGet, "/products/{id}", product.HandleShow(cfg.DB))
	a.Handle(http.MethodGet, "/products", product.HandleList(cfg.DB))
	a.Handle(http.MethodPost, "/products", product.HandleCreate(cfg.DB), staff)
	a.Handle(http.MethodPut, "/products/{id}", product.HandleUpdate(cfg.DB), staff)
	a.Handle(http.MethodDelete, "/products/{id}", product.HandleDelete(cfg.DB), staff)

	a.Handle(http.MethodGet, "/cart", cart.HandleShow(cfg.DB), authen)
	a.Handle(http.MethodDelete, "/cart", cart.HandleDelete(cfg.DB), authen)
	a.Handle(http.MethodPut, "/cart/items", cart.HandleCreateItem(cfg.DB), authen)
	a.Handle(http.MethodDelete, "/cart/items/{product_id}", cart.HandleDeleteItem(cfg.DB), authen)

	a.Handle(http.MethodPost, "/orders/chapa", order.HandleChapaCheckout(cfg.DB, cfg.Chapa, cfg.ChapaReturnURL), authen)
	a.Handle(http.MethodPost, "/orders/chapa/confirm/{tx_ref}", order.HandleChapaConfirm(cfg.DB, cfg.Chapa), authen)
	a.Handle(http.MethodPost, "/orders/chapa/webhook", order.HandleChapaWebhook(cfg.DB, cfg.Chapa))
	a.Handle(http.MethodPost, "/orders/paypal", order.HandlePaypalCheckout(cfg.DB, cfg.Paypal), authen)
	a.Handle(http.MethodPost, "/orders/paypal/{id}/capture", order.HandlePaypalCapture(cfg.DB, cfg.Paypal), authen)
	a.Handle(http.MethodGet, "/orders/all", order.HandleListAll(cfg.DB), staff)
	a.Handle(http.MethodGet, "/orders", order.HandleList(cfg.DB), authen)
	a.Handle(http.MethodPost, "/orders/{id}/received", order.HandleReceived(cfg.DB), authen)
	a.Handle(http.MethodPost, "/orders/{id}/refund/resolve", order.HandleRefundResolve(cfg.DB), admin)
	a.Handle(http.MethodPost, "/orders/{id}/refund", order.HandleRefundRequest(cfg.DB), authen)
	a.Handle(http.MethodGet, "/orders/{id}", order.HandleShow(cfg.DB), authen)

	a.Handle(http.MethodGet, "/payments", payment.HandleList(cfg.DB), authen)
	a.Handle(http.MethodGet, "/payments/{id}", payment.HandleShow(cfg.DB), authen)

	a.Handle(http.MethodPost, "/posts/{id}/comments", post.HandleCreateComment(cfg.DB), authen)
	a.Handle(http.MethodGet, "/posts/{id}/comments", post.HandleListComments(cfg.DB))
	a.Handle(http.MethodDelete, "/posts/comments/{comment_id}", post.HandleDeleteComment(cfg.DB), authen)
	a.Handle(http.MethodPost, "/posts/{id}/like", post.HandleLike(cfg.DB), authen)
	a.Handle(http.MethodDelete, "/posts/{id}/like", post.HandleUnlike(cfg.DB), authen)
	a.Handle(http.MethodGet, "/posts/{id}", post.HandleShow(cfg.DB))
	a.Handle(http.MethodGet, "/posts", post.HandleList(cfg.DB))
	a.Handle(http.MethodPost, "/posts", post.HandleCreate(cfg.DB), authen)
	a.Handle(http.MethodPut, "/posts/{id}", post.HandleUpdate(cfg.DB), authen)
	a.Handle(http.MethodDelete, "/posts/{id}", post.HandleDelete(cfg.DB), authen)

	a.Handle(http.MethodPost, "/teamboxes/{id}/chats", teambox.HandleCreateChat(cfg.DB), authen)
	a.Handle(http.MethodGet, "/teamboxes/{id}/chats", teambox.HandleListChats(cfg.DB), authen)
	a.Handle(http.MethodGet, "/teamboxes/{id}/members", teambox.HandleListMembers(cfg.DB))
	a.Handle(http.MethodPost, "/teamboxes/{id}/members", teambox.HandleJoin(cfg.DB), authen)
	a.Handle(http.MethodDelete, "/teamboxes/{id}/members/{user_id}", teambox.HandleKick(cfg.DB), authen)
	a.Handle(http.MethodDelete, "/teamboxes/{id}/members", teambox.HandleLeave(cfg.DB), authen)
	a.Handle(http.MethodGet, "/teamboxes/{id}", teambox.HandleShow(cfg.DB))
	a.Handle(http.MethodGet, "/teamboxes", teambox.HandleList(cfg.DB))
	a.Handle(http.MethodPost, "/teamboxes", teambox.HandleCreate(cfg.DB), authen)
	a.Handle(http.MethodPut, "/teamboxes/{id}", teambox.HandleUpdate(cfg.DB), authen)
	a.Handle(http.MethodDelete, "/teamboxes/{id}", teambox.HandleDelete(cfg.DB), authen)

	if cfg.Uploads != nil {
		fs := http.StripPrefix("/uploads/", http.FileServer(http.Dir(cfg.Uploads.Dir)))
		a.Router.PathPrefix("/uploads/").Handler(fs).Methods(http.MethodGet)
	}

	return a.Router
}

// handleHealth reports readiness: it answers ok only when the database
// responds to a round trip.
func handleHealth(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		if err := database.StatusCheck(ctx, db); err != nil {
			return weberr.NewError(err, "database not ready", http.StatusServiceUnavailable)
		}

		out := struct {
			Status string `json:"status"`
		}{"ok"}

		return web.Respond(ctx, w, out, http.StatusOK)
	}
}

func (a *api) Handle(method string, path string, handler web.Handler, mw ...web.Middleware) {

	handler = web.WrapMiddleware(mw, handler)

	handler = web.WrapMiddleware(a.mw, handler)

	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {

		ctx := r.Context()

		if err := handler(ctx, w, r); err != nil {

			a.log.WithFields(logrus.Fields{
				"req_id":  middleware.ContextRequestID(ctx),
				"message": err,
			}).Error("ERROR")
		}
	})

	a.Router.Handle(path, h).Methods(method)
}
