package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/gulitdev/gulit-api/api/web"
	"github.com/gulitdev/gulit-api/api/weberr"
	"github.com/gulitdev/gulit-api/core/claims"
	"github.com/gulitdev/gulit-api/core/user"
	"github.com/gulitdev/gulit-api/random"
	"github.com/gulitdev/gulit-api/validate"
	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/oauth2"
)

const stateKey = "oauth_state"

type ProviderConfig struct {
	Name        string
	Client      string
	Secret      string
	URL         string
	RedirectURL string
}

type Provider struct {
	*oidc.Provider
	Config oauth2.Config
}

func MakeProviders(ctx context.Context, cfgs []ProviderConfig) (map[string]Provider, error) {
	provs := make(map[string]Provider, len(cfgs))

	for _, cfg := range cfgs {
		p, err := oidc.NewProvider(ctx, cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("discovering provider %s: %w", cfg.Name, err)
		}

		provs[cfg.Name] = Provider{
			Provider: p,
			Config: oauth2.Config{
				ClientID:     cfg.Client,
				ClientSecret: cfg.Secret,
				Endpoint:     p.Endpoint(),
				RedirectURL:  cfg.RedirectURL,
				Scopes:       []string{oidc.ScopeOpenID, "profile", "email"},
			},
		}
	}

	return provs, nil
}

func HandleOauthLogin(session *scs.SessionManager, provs map[string]Provider) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		p, ok := provs[web.Param(r, "provider")]
		if !ok {
			return weberr.NotFound(errors.New("unknown oauth provider"))
		}

		state, err := random.StringSecure(32)
		if err != nil {
			return fmt.Errorf("generating oauth state: %w", err)
		}

		session.Put(ctx, stateKey, state)

		http.Redirect(w, r, p.Config.AuthCodeURL(state), http.StatusTemporaryRedirect)
		return nil
	}
}

func HandleOauthCallback(db *sqlx.DB, session *scs.SessionManager, provs map[string]Provider, redirectURL string) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		p, ok := provs[web.Param(r, "provider")]
		if !ok {
			return weberr.NotFound(errors.New("unknown oauth provider"))
		}

		state := session.PopString(ctx, stateKey)
		if state == "" || state != r.URL.Query().Get("state") {
			return weberr.BadRequest(errors.New("oauth state mismatch"))
		}

		tok, err := p.Config.Exchange(ctx, r.URL.Query().Get("code"))
		if err != nil {
			return weberr.BadRequest(fmt.Errorf("exchanging oauth code: %w", err))
		}

		rawID, ok := tok.Extra("id_token").(string)
		if !ok {
			return weberr.BadRequest(errors.New("oauth token carries no id_token"))
		}

		idTok, err := p.Verifier(&oidc.Config{ClientID: p.Config.ClientID}).Verify(ctx, rawID)
		if err != nil {
			return weberr.BadRequest(fmt.Errorf("verifying id token: %w", err))
		}

		var profile struct {
			Email string `json:"email"`
			Name  string `json:"name"`
		}
		if err := idTok.Claims(&profile); err != nil {
			return fmt.Errorf("decoding id token claims: %w", err)
		}

		usr, err := user.FetchByEmail(ctx, db, profile.Email)
		if errors.Is(err, sql.ErrNoRows) {
			usr, err = signupOauthUser(ctx, db, profile.Name, profile.Email)
		}
		if err != nil {
			return err
		}

		if err := login(ctx, session, usr.ID, usr.Role); err != nil {
			return err
		}

		http.Redirect(w, r, redirectURL, http.StatusTemporaryRedirect)
		return nil
	}
}

// signupOauthUser provisions a local account for a first oauth login. The
// password is random and never disclosed, so it cannot be used directly.
func signupOauthUser(ctx context.Context, db *sqlx.DB, name string, email string) (user.User, error) {
	pass, err := random.StringSecure(32)
	if err != nil {
		return user.User{}, fmt.Errorf("generating password: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(pass), bcrypt.DefaultCost)
	if err != nil {
		return user.User{}, err
	}

	now := time.Now().UTC()
	usr := user.User{
		ID:           validate.GenerateID(),
		Name:         name,
		Email:        email,
		Role:         claims.RoleBuyer,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := user.Create(ctx, db, usr); err != nil {
		return user.User{}, err
	}

	return usr, nil
}
