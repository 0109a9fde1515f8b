package config

import "time"

type Config struct {
	Web     Web
	DB      DB
	Session Session
	Cors    Cors
	Auth    Auth
	Oauth   Oauth
	Chapa   Chapa
	Paypal  Paypal
	Upload  Upload
	Orders  Orders
}

type Web struct {
	Address         string        `conf:"default:0.0.0.0:8000"`
	ReadTimeout     time.Duration `conf:"default:5s"`
	WriteTimeout    time.Duration `conf:"default:10s"`
	IdleTimeout     time.Duration `conf:"default:120s"`
	ShutdownTimeout time.Duration `conf:"default:20s"`
}

type DB struct {
	User       string `conf:"default:postgres"`
	Pass       string `conf:"default:postgres,mask"`
	Host       string `conf:"default:localhost:5432"`
	Name       string `conf:"default:gulit"`
	DisableTLS bool   `conf:"default:true"`
}

type Session struct {
	Lifetime time.Duration `conf:"default:24h"`
}

type Cors struct {
	Origin string
}

type Auth struct {
	LoginRPS   float64 `conf:"default:1"`
	LoginBurst int     `conf:"default:5"`
}

type Oauth struct {
	DiscoveryTimeout time.Duration `conf:"default:30s"`
	LoginRedirectURL string        `conf:"default:http://localhost:3000"`
	Google           OauthProvider
}

type OauthProvider struct {
	Client      string
	Secret      string `conf:"mask"`
	URL         string `conf:"default:https://accounts.google.com"`
	RedirectURL string
}

// Chapa holds the credentials and endpoints of the payment gateway.
// ReturnURL is where the gateway redirects the buyer after checkout.
type Chapa struct {
	SecretKey     string        `conf:"mask"`
	WebhookSecret string        `conf:"mask"`
	URL           string        `conf:"default:https://api.chapa.co"`
	ReturnURL     string        `conf:"default:http://localhost:3000/payment/return"`
	Timeout       time.Duration `conf:"default:10s"`
}

type Paypal struct {
	ClientID string
	Secret   string `conf:"mask"`
	URL      string `conf:"default:https://api.sandbox.paypal.com"`
}

type Upload struct {
	Dir     string `conf:"default:uploads"`
	MaxSize int64  `conf:"default:5242880"`
}

type Orders struct {
	// Pending orders older than PendingTTL get swept to expired.
	PendingTTL    time.Duration `conf:"default:24h"`
	SweepInterval time.Duration `conf:"default:10m"`
}
