// Package negotiation implementa el motor de negociación de sesiones: la
// state machine que lleva una identidad desde anónima hasta login completo,
// pasando por la aserción de identidad y el loop de autorización por service.
package negotiation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/dropDatabas3/gridbridge/internal/authex"
	"github.com/dropDatabas3/gridbridge/internal/cache"
	"github.com/dropDatabas3/gridbridge/internal/consent"
	"github.com/dropDatabas3/gridbridge/internal/domain/types"
	"github.com/dropDatabas3/gridbridge/internal/idp"
	"github.com/dropDatabas3/gridbridge/internal/legacy"
	"github.com/dropDatabas3/gridbridge/internal/metrics"
	"github.com/dropDatabas3/gridbridge/internal/observability/logger"
	"github.com/dropDatabas3/gridbridge/internal/store/core"
	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

// State es el estado observable de una negociación.
type State int

const (
	StateAnonymous State = iota
	StateIdentityPending
	StateIdentityVerified
	StateAuthorizationPending
	StateComplete
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateAnonymous:
		return "anonymous"
	case StateIdentityPending:
		return "identity_pending"
	case StateIdentityVerified:
		return "identity_verified"
	case StateAuthorizationPending:
		return "authorization_pending"
	case StateComplete:
		return "complete"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Outcome es el resultado de un paso de la negociación, listo para que el
// controller lo traduzca a HTTP.
type Outcome struct {
	State       State
	RedirectURL string                // para IdentityPending / AuthorizationPending / recovery stale
	Response    *legacy.LoginResponse // para Complete
	Message     string                // mensaje user-facing para Failed
	CookieToken string                // token de consentimiento a setear al completar
}

// StartRequest inicia una negociación.
type StartRequest struct {
	// Identifier es la referencia de identidad candidata (URI OpenID).
	Identifier string
	// Realm es el origin del consumidor que pide el login.
	Realm string
	// CookieToken es el token de la cookie de login cacheado, si el browser
	// mandó una.
	CookieToken string
}

const inflightKeyPrefix = "nego:inflight:"

type inflightAuthorization struct {
	SessionID uuid.UUID       `json:"session_id"`
	Service   types.ServiceID `json:"service"`
}

// Deps contiene las dependencias del orchestrator.
type Deps struct {
	Registry   *Registry
	Cache      cache.Cache
	Users      core.UserRepository
	Verifier   idp.Verifier
	AuthClient authex.Client
	Cookies    *consent.Store
	Responder  legacy.Responder
	// LoginURL es el entry point público de login, destino de los redirects
	// de recovery (callbacks stale, sesiones expiradas).
	LoginURL string
	// CallbackURL base para los retornos del identity provider y de los
	// services (ej: https://grid.example.com/login).
	CallbackURL string
	// ExternalTimeout acota cada llamada saliente. Default 15s.
	ExternalTimeout time.Duration
}

// Orchestrator es la state machine de negociación. Una instancia por proceso,
// segura bajo acceso concurrente.
type Orchestrator struct {
	d      Deps
	single singleflight.Group
}

func NewOrchestrator(d Deps) *Orchestrator {
	if d.ExternalTimeout <= 0 {
		d.ExternalTimeout = 15 * time.Second
	}
	return &Orchestrator{d: d}
}

// Start arranca (o fast-forwardea) una negociación. Si la cookie de login
// cacheada todavía nombra una identidad autenticada, se saltea el round trip
// por el identity provider y la máquina pasa directo a identity-verified.
// Llamadas concurrentes con el mismo cookie token colapsan en una sola
// negociación en vuelo.
func (o *Orchestrator) Start(ctx context.Context, req StartRequest) (Outcome, error) {
	metrics.LoginsStarted.Inc()

	key := req.CookieToken
	if key == "" {
		key = req.Identifier
	}
	v, err, _ := o.single.Do(key, func() (any, error) {
		return o.start(ctx, req)
	})
	if err != nil {
		return Outcome{}, err
	}
	return v.(Outcome), nil
}

func (o *Orchestrator) start(ctx context.Context, req StartRequest) (Outcome, error) {
	log := logger.From(ctx).With(logger.Layer("service"), logger.Component("negotiation"), logger.Op("Start"))

	identifier := strings.TrimSpace(req.Identifier)

	// Cached-authentication shortcut: si la cookie nombra una identidad
	// autenticada y el realm ya fue consentido, la máquina pasa directo a
	// identity-verified sin round trip por el provider. Un realm nuevo
	// vuelve a pasar por el provider aunque la identidad esté cacheada.
	if req.CookieToken != "" {
		if identity, ok := o.d.Cookies.Identity(req.CookieToken); ok {
			if o.d.Cookies.HasConsented(req.CookieToken, req.Realm) {
				log.Info("cached identity and consented realm, skipping identity provider",
					logger.Identity(identity), logger.Realm(req.Realm))
				return o.handleVerifiedIdentity(ctx, identity, nil, req.CookieToken, req.Realm)
			}
			if identifier == "" {
				identifier = identity
			}
		}
	}

	if identifier == "" {
		// Cookie cuya entrada server-side ya expiró y sin identifier: es un
		// browser anónimo, no un request malformado. Restart desde el entry
		// point.
		if req.CookieToken != "" {
			log.Info("login cookie no longer resolves, restarting as anonymous")
			return Outcome{State: StateAnonymous}, nil
		}
		return Outcome{}, ErrMalformed
	}

	ctxT, cancel := context.WithTimeout(ctx, o.d.ExternalTimeout)
	defer cancel()

	redirect, err := o.d.Verifier.CreateRequest(ctxT, identifier, o.d.CallbackURL+"/openid_callback")
	if err != nil {
		log.Warn("identity provider request failed", logger.Err(err))
		return o.fail("identity_provider", "No se pudo contactar al identity provider. Intente nuevamente."), nil
	}
	return Outcome{State: StateIdentityPending, RedirectURL: redirect}, nil
}

// HandleIdentityCallback procesa el retorno del identity provider. El éxito
// requiere aserción positiva Y que la identidad asertada pase el allow-list:
// la identidad que retorna el provider no tiene por qué ser la que se pidió.
func (o *Orchestrator) HandleIdentityCallback(ctx context.Context, r *http.Request, cookieToken, realm string) (Outcome, error) {
	log := logger.From(ctx).With(logger.Layer("service"), logger.Component("negotiation"), logger.Op("HandleIdentityCallback"))

	assertion, err := o.d.Verifier.ParseResponse(ctx, r)
	if err != nil {
		if errors.Is(err, idp.ErrProvider) {
			log.Warn("identity provider callback failed", logger.Err(err))
			return o.fail("identity_provider", "Falló la verificación de identidad. Intente nuevamente."), nil
		}
		return Outcome{}, ErrMalformed
	}

	switch assertion.Status {
	case idp.StatusCancelled:
		return o.fail("cancelled", "Login cancelado."), nil
	case idp.StatusRejected:
		return o.fail("identity_rejected", "El identity provider rechazó la identidad."), nil
	}

	return o.handleVerifiedIdentity(ctx, assertion.ClaimedIdentity, assertion.Attributes, cookieToken, realm)
}

// handleVerifiedIdentity es la transición identity-verified -> service loop.
// Acá se re-chequea el allow-list (también en el shortcut cacheado) y se crea
// el PendingLogin; sin requirements se salta directo a completion.
func (o *Orchestrator) handleVerifiedIdentity(ctx context.Context, identity string, attrs map[string]string, cookieToken, realm string) (Outcome, error) {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("negotiation"),
		logger.Identity(identity),
	)

	user, err := o.d.Users.GetByIdentity(ctx, identity)
	if err != nil || !user.Enabled {
		log.Warn("identity not in allow-list", logger.Err(err))
		return o.fail("identity_rejected", "Identidad no autorizada en este grid."), nil
	}

	first, last, email := user.FirstName, user.LastName, user.Email
	if v := attrs["first_name"]; v != "" {
		first = v
	}
	if v := attrs["last_name"]; v != "" {
		last = v
	}
	if v := attrs["email"]; v != "" {
		email = v
	}

	login, err := o.d.Registry.Create(ctx, identity, types.AuthMethodOpenID, first, last, email, realm)
	if errors.Is(err, ErrNothingToNegotiate) {
		log.Info("no capability requirements, completing login", logger.SessionID(login.SessionID.String()))
		return o.complete(ctx, login, cookieToken)
	}
	if err != nil {
		return Outcome{}, err
	}

	log.Info("identity verified, entering service loop",
		logger.SessionID(login.SessionID.String()),
		logger.Count(len(login.Services)),
	)
	return o.advance(ctx, login, cookieToken)
}

// advance selecciona el próximo service sin fulfil (en orden de registración)
// e inicia su intercambio de autorización. Sin services pendientes, completa.
func (o *Orchestrator) advance(ctx context.Context, login *types.PendingLogin, cookieToken string) (Outcome, error) {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("negotiation"),
		logger.SessionID(login.SessionID.String()),
	)

	next := login.NextUnfulfilled()
	if next == "" {
		return o.complete(ctx, login, cookieToken)
	}

	rs := login.Requirements[next]
	var required []string
	for _, name := range rs.Names {
		if rs.Granted[name] == "" {
			required = append(required, name)
		}
	}

	ctxT, cancel := context.WithTimeout(ctx, o.d.ExternalTimeout)
	defer cancel()

	metrics.AuthorizationRoundTrips.WithLabelValues(string(next)).Inc()
	ar, err := o.d.AuthClient.CreateAuthorizationRequest(ctxT, next, login.SessionID, login.Identity, o.d.CallbackURL+"/oauth_callback", required)
	if err != nil {
		log.Warn("authorization request failed", logger.Service(string(next)),
			logger.Err(fmt.Errorf("%w: %v", ErrAuthorizationExchange, err)))
		return o.fail("authorization_exchange",
			fmt.Sprintf("No se pudo negociar autorización con el service %s.", next)), nil
	}

	inflight, _ := json.Marshal(inflightAuthorization{SessionID: login.SessionID, Service: next})
	o.d.Cache.Set(inflightKeyPrefix+ar.RequestToken, inflight, LoginTimeout)

	log.Info("authorization redirect issued", logger.Service(string(next)))
	return Outcome{State: StateAuthorizationPending, RedirectURL: ar.RedirectURL}, nil
}

// HandleAuthorizationCallback procesa el retorno de un service. Un token no
// reconocido o expirado NO es fatal: es un evento stale del browser y termina
// en redirect al entry point. En éxito, las URIs otorgadas se mergean y el
// loop continúa con el siguiente service.
func (o *Orchestrator) HandleAuthorizationCallback(ctx context.Context, r *http.Request, cookieToken string) (Outcome, error) {
	log := logger.From(ctx).With(logger.Layer("service"), logger.Component("negotiation"), logger.Op("HandleAuthorizationCallback"))

	token := strings.TrimSpace(r.URL.Query().Get("oauth_token"))
	if token == "" {
		return Outcome{}, ErrMalformed
	}

	b, ok := o.d.Cache.Get(inflightKeyPrefix + token)
	if !ok {
		log.Info("stale authorization callback, redirecting to login", logger.Err(ErrStaleCallback))
		metrics.StaleCallbacks.Inc()
		return Outcome{State: StateAnonymous, RedirectURL: o.d.LoginURL}, nil
	}
	var inflight inflightAuthorization
	if err := json.Unmarshal(b, &inflight); err != nil {
		return Outcome{}, ErrMalformed
	}

	login, found := o.d.Registry.Get(inflight.SessionID)
	if !found {
		// La sesión expiró mientras el usuario estaba en el service.
		log.Info("session expired during authorization", logger.SessionID(inflight.SessionID.String()))
		o.d.Cache.Delete(inflightKeyPrefix + token)
		return Outcome{State: StateAnonymous, RedirectURL: o.d.LoginURL}, nil
	}

	// Duplicado/back-button con todo ya fulfilled: no-op, re-render.
	if login.Complete() {
		log.Info("duplicate callback on complete session, re-rendering",
			logger.SessionID(login.SessionID.String()))
		o.d.Cache.Delete(inflightKeyPrefix + token)
		return o.complete(ctx, login, cookieToken)
	}

	ctxT, cancel := context.WithTimeout(ctx, o.d.ExternalTimeout)
	defer cancel()

	auth, err := o.d.AuthClient.ProcessUserAuthorization(ctxT, r)
	if err != nil {
		if errors.Is(err, authex.ErrUnknownToken) {
			log.Info("request token already redeemed, redirecting to login", logger.Err(ErrStaleCallback))
			metrics.StaleCallbacks.Inc()
			return Outcome{State: StateAnonymous, RedirectURL: o.d.LoginURL}, nil
		}
		log.Warn("authorization exchange failed", logger.Service(string(inflight.Service)),
			logger.Err(fmt.Errorf("%w: %v", ErrAuthorizationExchange, err)))
		return o.fail("authorization_exchange",
			fmt.Sprintf("No se pudo completar la autorización con el service %s.", inflight.Service)), nil
	}
	o.d.Cache.Delete(inflightKeyPrefix + token)

	login, err = o.d.Registry.MarkGranted(inflight.SessionID, inflight.Service, auth.Granted)
	if err != nil {
		if errors.Is(err, ErrSessionExpired) {
			return Outcome{State: StateAnonymous, RedirectURL: o.d.LoginURL}, nil
		}
		return Outcome{}, err
	}

	log.Info("authorization received",
		logger.SessionID(login.SessionID.String()),
		logger.Service(string(inflight.Service)),
	)
	return o.advance(ctx, login, cookieToken)
}

// PrepareDirectLogin provisiona una sesión para el path legacy de
// credenciales directas: el RPC de login llega después con el session id en
// el path. La identidad se deriva del nombre de avatar.
func (o *Orchestrator) PrepareDirectLogin(ctx context.Context, firstName, lastName, realm string) (*types.PendingLogin, error) {
	if strings.TrimSpace(firstName) == "" || strings.TrimSpace(lastName) == "" {
		return nil, ErrMalformed
	}
	user, err := o.d.Users.GetByName(ctx, firstName, lastName)
	if err != nil || !user.Enabled {
		return nil, ErrIdentityRejected
	}
	identity := user.Identity
	if identity == "" {
		base := strings.TrimSuffix(strings.TrimRight(o.d.LoginURL, "/"), "/login")
		identity = fmt.Sprintf("%s/users/%s.%s", base, strings.ToLower(firstName), strings.ToLower(lastName))
	}

	login, err := o.d.Registry.Create(ctx, identity, types.AuthMethodDirect, user.FirstName, user.LastName, user.Email, realm)
	if errors.Is(err, ErrNothingToNegotiate) {
		// Igual se registra: el RPC con credenciales viene después.
		o.d.Registry.Store(login)
		return login, nil
	}
	if err != nil {
		return nil, err
	}
	return login, nil
}

// DirectLogin es el path legacy: valida el session id del path contra el
// registry, chequea credenciales en forma síncrona y en éxito va directo a la
// construcción de la respuesta, sin detour por OpenID. La falla es terminal.
func (o *Orchestrator) DirectLogin(ctx context.Context, sessionID uuid.UUID, firstName, lastName, password string) (Outcome, error) {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("negotiation"),
		logger.Op("DirectLogin"),
		logger.SessionID(sessionID.String()),
	)

	login, ok := o.d.Registry.Get(sessionID)
	if !ok {
		return Outcome{}, ErrSessionExpired
	}

	user, err := o.d.Users.GetByName(ctx, firstName, lastName)
	if err != nil || !user.Enabled || !o.d.Users.CheckPassword(user.PasswordHash, password) {
		log.Warn("direct credential check failed")
		return o.fail("identity_rejected", "Credenciales inválidas."), nil
	}

	return o.complete(ctx, login, "")
}

// complete finaliza: delega en el responder legacy y registra el
// consentimiento del realm sobre la cookie. El PendingLogin se deja expirar
// naturalmente; re-entregar una completion es idempotente.
func (o *Orchestrator) complete(ctx context.Context, login *types.PendingLogin, cookieToken string) (Outcome, error) {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("negotiation"),
		logger.SessionID(login.SessionID.String()),
	)

	resp, err := o.d.Responder.Complete(login)
	if err != nil {
		return Outcome{}, err
	}

	token, _, err := o.d.Cookies.SetOrRefresh(cookieToken, login.Identity)
	if err != nil {
		return Outcome{}, err
	}
	if login.Realm != "" {
		o.d.Cookies.RecordConsent(token, login.Realm)
	}

	metrics.LoginsCompleted.Inc()
	log.Info("login complete",
		logger.Identity(login.Identity),
		logger.AuthMethod(string(login.AuthMethod)),
	)
	return Outcome{State: StateComplete, Response: resp, CookieToken: token}, nil
}

func (o *Orchestrator) fail(reason, message string) Outcome {
	metrics.LoginsFailed.WithLabelValues(reason).Inc()
	return Outcome{State: StateFailed, Message: message}
}
