package login

import (
	"net/http"

	"github.com/dropDatabas3/gridbridge/internal/http/helpers"
)

// OpenIDCallback maneja GET /login/openid_callback - el retorno del identity
// provider. El query param cancel permite al usuario abortar explícitamente:
// se traduce en aserción negativa.
func (c *Controller) OpenIDCallback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	cookieToken := helpers.CookieToken(r, helpers.LoginCacheCookie)
	realm := r.URL.Query().Get("realm")
	if realm == "" {
		realm = originOf(r)
	}

	if r.URL.Query().Get("cancel") != "" {
		c.renderLoginPage(w, "Login cancelado.")
		return
	}

	outcome, err := c.orch.HandleIdentityCallback(ctx, r, cookieToken, realm)
	if err != nil {
		c.handleError(w, r, err)
		return
	}
	c.renderOutcome(w, r, outcome)
}

// OAuthCallback maneja GET /login/oauth_callback?oauth_token=... - el retorno
// del intercambio de autorización de un service. Tokens stale terminan en
// redirect al entry point, nunca en error.
func (c *Controller) OAuthCallback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	cookieToken := helpers.CookieToken(r, helpers.LoginCacheCookie)

	outcome, err := c.orch.HandleAuthorizationCallback(ctx, r, cookieToken)
	if err != nil {
		c.handleError(w, r, err)
		return
	}
	c.renderOutcome(w, r, outcome)
}
