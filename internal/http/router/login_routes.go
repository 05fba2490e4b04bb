package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	adminctrl "github.com/dropDatabas3/gridbridge/internal/http/controllers/admin"
	loginctrl "github.com/dropDatabas3/gridbridge/internal/http/controllers/login"
	mw "github.com/dropDatabas3/gridbridge/internal/http/middlewares"
)

// Deps contiene las dependencias del router.
type Deps struct {
	Login       *loginctrl.Controller
	Caps        *loginctrl.CapsController
	Admin       *adminctrl.Controller
	AdminAPIKey string
}

// New arma el router completo del bridge.
func New(deps Deps) http.Handler {
	r := chi.NewRouter()

	// Surface de login: todo no cacheable
	r.Route("/login", func(r chi.Router) {
		r.Get("/", deps.Login.Start)
		r.Post("/", deps.Login.Start)
		r.Get("/openid_callback", deps.Login.OpenIDCallback)
		r.Get("/oauth_callback", deps.Login.OAuthCallback)
		r.Post("/rpc/{sessionID}", deps.Login.DirectLogin)
	})

	// Capability dispatch
	r.Get("/caps/cablebeach/{capID}", deps.Caps.Resolve)

	// Admin, protegido por API key
	r.Route("/admin", func(r chi.Router) {
		r.Use(mw.RequireAPIKey(deps.AdminAPIKey))
		r.Get("/logins", deps.Admin.ListLogins)
		r.Post("/logins/{sessionID}/revoke", deps.Admin.RevokeLogin)
	})

	// Observabilidad
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	return mw.Chain(r,
		mw.WithRecover(),
		mw.WithRequestID(),
		mw.WithNoStore(),
		mw.WithLogging(),
	)
}
