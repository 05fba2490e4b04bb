// Package oidc implementa idp.Verifier contra un provider OpenID Connect
// usando coreos/go-oidc + oauth2 (authorization code flow).
package oidc

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	gooidc "github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"

	"github.com/dropDatabas3/gridbridge/internal/cache"
	"github.com/dropDatabas3/gridbridge/internal/idp"
	tokens "github.com/dropDatabas3/gridbridge/internal/security/token"
)

// stateTTL limita cuánto puede tardar el round trip por el provider.
const stateTTL = 10 * time.Minute

const stateKeyPrefix = "oidcst:"

type Config struct {
	IssuerURL    string
	ClientID     string
	ClientSecret string
	// Timeout acota cada llamada de red al provider. Default 15s.
	Timeout time.Duration
}

type statePayload struct {
	Identifier string `json:"identifier"`
	ReturnURL  string `json:"return_url"`
}

// Verifier es el relying party OIDC. El state anti-CSRF y su correlación con
// el identifier pedido viven en el cache compartido, con TTL corto.
type Verifier struct {
	cfg      Config
	provider *gooidc.Provider
	verifier *gooidc.IDTokenVerifier
	oauth    oauth2.Config
	cache    cache.Cache
}

func New(ctx context.Context, cfg Config, c cache.Cache, redirectURL string) (*Verifier, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	provider, err := gooidc.NewProvider(ctx, cfg.IssuerURL)
	if err != nil {
		return nil, fmt.Errorf("oidc discovery: %w", err)
	}
	return &Verifier{
		cfg:      cfg,
		provider: provider,
		verifier: provider.Verifier(&gooidc.Config{ClientID: cfg.ClientID}),
		oauth: oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint:     provider.Endpoint(),
			RedirectURL:  redirectURL,
			Scopes:       []string{gooidc.ScopeOpenID, "profile", "email"},
		},
		cache: c,
	}, nil
}

func (v *Verifier) CreateRequest(ctx context.Context, identifier, returnURL string) (string, error) {
	state, err := tokens.GenerateOpaqueToken(24)
	if err != nil {
		return "", fmt.Errorf("%w: mint state: %v", idp.ErrProvider, err)
	}
	b, _ := json.Marshal(statePayload{Identifier: identifier, ReturnURL: returnURL})
	v.cache.Set(stateKeyPrefix+state, b, stateTTL)
	return v.oauth.AuthCodeURL(state), nil
}

func (v *Verifier) ParseResponse(ctx context.Context, r *http.Request) (idp.Assertion, error) {
	q := r.URL.Query()

	// Cancelación explícita del usuario en el provider
	if q.Get("error") == "access_denied" {
		return idp.Assertion{Status: idp.StatusCancelled}, nil
	}
	if e := q.Get("error"); e != "" {
		return idp.Assertion{Status: idp.StatusRejected}, nil
	}

	state := q.Get("state")
	if _, ok := v.cache.Get(stateKeyPrefix + state); !ok {
		return idp.Assertion{}, fmt.Errorf("%w: unknown or expired state", idp.ErrProvider)
	}
	v.cache.Delete(stateKeyPrefix + state)

	code := q.Get("code")
	if code == "" {
		return idp.Assertion{}, fmt.Errorf("%w: missing code", idp.ErrProvider)
	}

	ctx, cancel := context.WithTimeout(ctx, v.cfg.Timeout)
	defer cancel()

	tok, err := v.oauth.Exchange(ctx, code)
	if err != nil {
		return idp.Assertion{}, fmt.Errorf("%w: code exchange: %v", idp.ErrProvider, err)
	}
	rawID, ok := tok.Extra("id_token").(string)
	if !ok {
		return idp.Assertion{}, fmt.Errorf("%w: no id_token in response", idp.ErrProvider)
	}
	idToken, err := v.verifier.Verify(ctx, rawID)
	if err != nil {
		return idp.Assertion{}, fmt.Errorf("%w: id_token verify: %v", idp.ErrProvider, err)
	}

	var claims struct {
		Sub        string `json:"sub"`
		Email      string `json:"email"`
		GivenName  string `json:"given_name"`
		FamilyName string `json:"family_name"`
	}
	_ = idToken.Claims(&claims)

	attrs := map[string]string{}
	if claims.Email != "" {
		attrs["email"] = claims.Email
	}
	if claims.GivenName != "" {
		attrs["first_name"] = claims.GivenName
	}
	if claims.FamilyName != "" {
		attrs["last_name"] = claims.FamilyName
	}

	return idp.Assertion{
		Status:          idp.StatusVerified,
		ClaimedIdentity: v.cfg.IssuerURL + "/" + claims.Sub,
		Attributes:      attrs,
	}, nil
}
