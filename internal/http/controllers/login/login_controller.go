// Package login - controllers del surface de login del bridge.
package login

import (
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"net/http"
	"strings"

	"github.com/dropDatabas3/gridbridge/internal/consent"
	dto "github.com/dropDatabas3/gridbridge/internal/http/dto/login"
	httperrors "github.com/dropDatabas3/gridbridge/internal/http/errors"
	"github.com/dropDatabas3/gridbridge/internal/http/helpers"
	"github.com/dropDatabas3/gridbridge/internal/negotiation"
	"github.com/dropDatabas3/gridbridge/internal/observability/logger"
)

// CookieConfig parametriza las cookies que setea el controller.
type CookieConfig struct {
	Domain   string
	SameSite string
	Secure   bool
}

// Controller maneja el entry point de login y renderiza los outcomes de la
// negociación.
type Controller struct {
	orch      *negotiation.Orchestrator
	cookies   CookieConfig
	publicURL string
}

func NewController(orch *negotiation.Orchestrator, cookies CookieConfig, publicURL string) *Controller {
	return &Controller{orch: orch, cookies: cookies, publicURL: strings.TrimRight(publicURL, "/")}
}

// Start maneja GET/POST /login/ - el entry point de la negociación.
func (c *Controller) Start(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if r.Method == http.MethodPost {
		r.Body = http.MaxBytesReader(w, r.Body, 64<<10)
		if err := r.ParseForm(); err != nil {
			httperrors.WriteError(w, httperrors.ErrBadRequest)
			return
		}
	}

	req := dto.StartRequest{
		Identifier: strings.TrimSpace(formOrQuery(r, "identifier")),
		Realm:      strings.TrimSpace(formOrQuery(r, "realm")),
		Method:     strings.TrimSpace(formOrQuery(r, "method")),
		FirstName:  strings.TrimSpace(formOrQuery(r, "first")),
		LastName:   strings.TrimSpace(formOrQuery(r, "last")),
	}
	if req.Realm == "" {
		req.Realm = originOf(r)
	}

	// Path legacy: provisionar la sesión para el RPC de credenciales.
	if req.Method == "direct" {
		c.provisionDirect(w, r, req)
		return
	}

	// GET sin identifier ni cookie: formulario de login.
	cookieToken := helpers.CookieToken(r, helpers.LoginCacheCookie)
	if r.Method == http.MethodGet && req.Identifier == "" && cookieToken == "" {
		c.renderLoginPage(w, "")
		return
	}

	outcome, err := c.orch.Start(ctx, negotiation.StartRequest{
		Identifier:  req.Identifier,
		Realm:       req.Realm,
		CookieToken: cookieToken,
	})
	if err != nil {
		c.handleError(w, r, err)
		return
	}
	c.renderOutcome(w, r, outcome)
}

func (c *Controller) provisionDirect(w http.ResponseWriter, r *http.Request, req dto.StartRequest) {
	login, err := c.orch.PrepareDirectLogin(r.Context(), req.FirstName, req.LastName, req.Realm)
	if err != nil {
		c.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.DirectLoginProvisioned{
		SessionID: login.SessionID.String(),
		RPCURL:    fmt.Sprintf("%s/login/rpc/%s", c.publicURL, login.SessionID),
		ExpiresIn: int(negotiation.LoginTimeout.Seconds()),
	})
}

// renderOutcome traduce un Outcome de la state machine a HTTP.
func (c *Controller) renderOutcome(w http.ResponseWriter, r *http.Request, outcome negotiation.Outcome) {
	switch outcome.State {
	case negotiation.StateIdentityPending, negotiation.StateAuthorizationPending:
		http.Redirect(w, r, outcome.RedirectURL, http.StatusFound)

	case negotiation.StateAnonymous:
		// Restart anónimo (cookie muerta, sesión expirada): de vuelta al
		// formulario, sin mensaje de error.
		if outcome.RedirectURL == "" {
			c.renderLoginPage(w, "")
			return
		}
		http.Redirect(w, r, outcome.RedirectURL, http.StatusFound)

	case negotiation.StateComplete:
		c.setAuthCookies(w, outcome.CookieToken)
		writeJSON(w, http.StatusOK, outcome.Response)

	case negotiation.StateFailed:
		c.renderLoginPage(w, outcome.Message)

	default:
		httperrors.WriteError(w, httperrors.ErrInternalServerError)
	}
}

func (c *Controller) setAuthCookies(w http.ResponseWriter, token string) {
	if token == "" {
		return
	}
	http.SetCookie(w, helpers.BuildCookie(helpers.ConsentCookie, token,
		c.cookies.Domain, c.cookies.SameSite, c.cookies.Secure, consent.TTL))
	http.SetCookie(w, helpers.BuildCookie(helpers.LoginCacheCookie, token,
		c.cookies.Domain, c.cookies.SameSite, c.cookies.Secure, consent.TTL))
}

// renderLoginPage emite la página de login, con mensaje de error opcional.
// El HTML real lo sirve el frontend del grid; esto es el fallback mínimo.
func (c *Controller) renderLoginPage(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	var msg string
	if message != "" {
		msg = `<p class="error">` + html.EscapeString(message) + `</p>`
	}
	fmt.Fprintf(w, `<!DOCTYPE html><html><body>%s<form method="post" action="/login/">`+
		`<input type="text" name="identifier" placeholder="OpenID URL"/>`+
		`<button type="submit">Login</button></form></body></html>`, msg)
}

func (c *Controller) handleError(w http.ResponseWriter, r *http.Request, err error) {
	log := logger.From(r.Context()).With(logger.Layer("controller"), logger.Component("login"))

	switch {
	case errors.Is(err, negotiation.ErrMalformed):
		httperrors.WriteError(w, httperrors.ErrBadRequest)
	case errors.Is(err, negotiation.ErrSessionExpired):
		// Sesión vencida = anónimo: restart desde el entry point.
		http.Redirect(w, r, c.publicURL+"/login/", http.StatusFound)
	case errors.Is(err, negotiation.ErrIdentityRejected):
		httperrors.WriteError(w, httperrors.ErrIdentityRejected)
	default:
		log.Error("unexpected negotiation failure", logger.Err(err))
		httperrors.WriteError(w, httperrors.ErrInternalServerError)
	}
}

func formOrQuery(r *http.Request, key string) string {
	if r.Method == http.MethodPost {
		if v := r.PostForm.Get(key); v != "" {
			return v
		}
	}
	return r.URL.Query().Get(key)
}

func originOf(r *http.Request) string {
	if o := r.Header.Get("Origin"); o != "" {
		return o
	}
	return r.Header.Get("Referer")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
