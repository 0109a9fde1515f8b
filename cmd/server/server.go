package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/alexedwards/scs/v2"
	"github.com/ardanlabs/conf/v3"
	"github.com/gulitdev/gulit-api/api"
	"github.com/gulitdev/gulit-api/api/background"
	"github.com/gulitdev/gulit-api/chapa"
	"github.com/gulitdev/gulit-api/config"
	"github.com/gulitdev/gulit-api/core/auth"
	"github.com/gulitdev/gulit-api/core/order"
	"github.com/gulitdev/gulit-api/database"
	"github.com/gulitdev/gulit-api/rate"
	"github.com/gulitdev/gulit-api/upload"
	"github.com/plutov/paypal/v4"
	"github.com/sirupsen/logrus"
)

func main() {
	log := logrus.New()
	log.SetOutput(os.Stdout)

	if err := Run(log); err != nil {
		log.Error(err)
		os.Exit(1)
	}
}

func Run(logger *logrus.Logger) error {
	logger.Infof("starting server")
	defer logger.Info("shutdown complete")

	const prefix = "GULIT"
	var cfg config.Config
	if _, err := conf.Parse(prefix, &cfg); err != nil {
		return fmt.Errorf("parsing config: %w", err)
	}

	lw := logger.Writer()
	defer lw.Close()
	errLog := log.New(lw, "", 0)

	db, err := database.Open(cfg.DB)
	if err != nil {
		return fmt.Errorf("failed to open db connection: %w", err)
	}

	if err := database.Migrate(db); err != nil {
		return fmt.Errorf("failed to migrate the database: %w", err)
	}

	sessionManager := scs.New()
	sessionManager.Lifetime = cfg.Session.Lifetime

	bg := background.New(logger)

	cp := chapa.New(
		cfg.Chapa.URL,
		cfg.Chapa.SecretKey,
		cfg.Chapa.WebhookSecret,
		cfg.Chapa.Timeout,
	)

	pp, err := paypal.NewClient(
		cfg.Paypal.ClientID,
		cfg.Paypal.Secret,
		cfg.Paypal.URL,
	)
	if err != nil {
		return fmt.Errorf("failed to build the paypal client: %w", err)
	}

	if _, err = pp.GetAccessToken(context.TODO()); err != nil {
		return fmt.Errorf("failed to get the first paypal access token: %w", err)
	}

	uploads, err := upload.NewStore(cfg.Upload.Dir, cfg.Upload.MaxSize)
	if err != nil {
		return fmt.Errorf("failed to open the upload store: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Oauth.DiscoveryTimeout)
	defer cancel()
	google := cfg.Oauth.Google
	oauthProvs, err := auth.MakeProviders(ctx, []auth.ProviderConfig{
		{Name: "google", Client: google.Client, Secret: google.Secret, URL: google.URL, RedirectURL: google.RedirectURL},
	})
	if err != nil {
		return fmt.Errorf("failed to discover oauth providers: %w", err)
	}

	loginLimiter := rate.NewLimiter(cfg.Auth.LoginBurst, 60, cfg.Auth.LoginRPS)
	defer loginLimiter.Close()

	mux := api.APIMux(api.APIConfig{
		CorsOrigin:       cfg.Cors.Origin,
		Log:              logger,
		DB:               db,
		Session:          sessionManager,
		Background:       bg,
		Chapa:            cp,
		ChapaReturnURL:   cfg.Chapa.ReturnURL,
		Paypal:           pp,
		Uploads:          uploads,
		Providers:        oauthProvs,
		LoginRedirectURL: cfg.Oauth.LoginRedirectURL,
		LoginLimiter:     loginLimiter,
	})

	sweepCtx, sweepCancel := context.WithCancel(context.Background())
	defer sweepCancel()

	sweeper := order.Sweeper{
		DB:       db,
		Log:      logger,
		TTL:      cfg.Orders.PendingTTL,
		Interval: cfg.Orders.SweepInterval,
	}
	go func() {
		if err := sweeper.Run(sweepCtx); err != nil {
			logger.Errorf("order sweeper stopped: %v", err)
		}
	}()

	api := http.Server{
		Handler:      mux,
		Addr:         cfg.Web.Address,
		ReadTimeout:  cfg.Web.ReadTimeout,
		WriteTimeout: cfg.Web.WriteTimeout,
		IdleTimeout:  cfg.Web.IdleTimeout,
		ErrorLog:     errLog,
	}

	serverErrors := make(chan error, 1)

	go func() {
		logger.Infof("starting api router at %s", api.Addr)
		serverErrors <- api.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		logger.Infof("shutting down: signal %s", sig)

		sweepCancel()

		ctx, cancel := context.WithTimeout(context.Background(), cfg.Web.ShutdownTimeout)
		defer cancel()

		if err := api.Shutdown(ctx); err != nil {
			api.Close()
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}

		if err := bg.Shutdown(ctx); err != nil {
			return fmt.Errorf("could not complete all background tasks: %w", err)
		}
	}
	return nil
}
