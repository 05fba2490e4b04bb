package authex

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dropDatabas3/gridbridge/internal/cache"
	"github.com/dropDatabas3/gridbridge/internal/domain/types"
	"github.com/google/uuid"
)

// ErrUnknownToken indica un oauth_token no correlacionable: desconocido o ya
// expirado. El caller lo trata como evento stale del browser, no como falla.
var ErrUnknownToken = fmt.Errorf("%w: unknown or expired request token", ErrExchange)

// Endpoints son las URLs del intercambio de un service.
type Endpoints struct {
	RequestURL   string // POST: obtener request token
	AuthorizeURL string // redirect del usuario
	AccessURL    string // POST: canjear token por capabilities
}

const tokenKeyPrefix = "authexreq:"

// tokenTTL acota la vida de un request token en vuelo; alineado con el
// timeout de la negociación completa.
const tokenTTL = 10 * time.Minute

// HTTPClient implementa Client con llamadas HTTP form-encoded y timeout
// acotado por llamada. La correlación request token -> service vive en el
// cache compartido para sobrevivir a múltiples instancias del bridge.
type HTTPClient struct {
	endpoints map[types.ServiceID]Endpoints
	cache     cache.Cache
	http      *http.Client
}

func NewHTTPClient(endpoints map[types.ServiceID]Endpoints, c cache.Cache, timeout time.Duration) *HTTPClient {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	eps := make(map[types.ServiceID]Endpoints, len(endpoints))
	for k, v := range endpoints {
		eps[k] = v
	}
	return &HTTPClient{
		endpoints: eps,
		cache:     c,
		http:      &http.Client{Timeout: timeout},
	}
}

func (c *HTTPClient) CreateAuthorizationRequest(ctx context.Context, service types.ServiceID, sessionID uuid.UUID, identity, callbackURL string, required []string) (AuthorizationRequest, error) {
	eps, ok := c.endpoints[service]
	if !ok {
		return AuthorizationRequest{}, fmt.Errorf("%w: no endpoints for service %s", ErrExchange, service)
	}

	form := url.Values{
		"session_id":     {sessionID.String()},
		"identity":       {identity},
		"oauth_callback": {callbackURL},
		"capabilities":   {strings.Join(required, ",")},
	}
	var reply struct {
		RequestToken string `json:"oauth_token"`
	}
	if err := c.postForm(ctx, eps.RequestURL, form, &reply); err != nil {
		return AuthorizationRequest{}, err
	}
	if reply.RequestToken == "" {
		return AuthorizationRequest{}, fmt.Errorf("%w: empty request token from %s", ErrExchange, service)
	}

	c.cache.Set(tokenKeyPrefix+reply.RequestToken, []byte(service), tokenTTL)

	redirect, err := url.Parse(eps.AuthorizeURL)
	if err != nil {
		return AuthorizationRequest{}, fmt.Errorf("%w: bad authorize url for %s: %v", ErrExchange, service, err)
	}
	q := redirect.Query()
	q.Set("oauth_token", reply.RequestToken)
	q.Set("oauth_callback", callbackURL)
	redirect.RawQuery = q.Encode()

	return AuthorizationRequest{RequestToken: reply.RequestToken, RedirectURL: redirect.String()}, nil
}

func (c *HTTPClient) ProcessUserAuthorization(ctx context.Context, r *http.Request) (Authorization, error) {
	token := strings.TrimSpace(r.URL.Query().Get("oauth_token"))
	if token == "" {
		return Authorization{}, fmt.Errorf("%w: missing oauth_token", ErrExchange)
	}

	svc, ok := c.cache.Get(tokenKeyPrefix + token)
	if !ok {
		return Authorization{}, ErrUnknownToken
	}
	// Un token se canjea una sola vez; el segundo canje del mismo callback
	// (refresh del browser) cae en ErrUnknownToken.
	c.cache.Delete(tokenKeyPrefix + token)

	eps, okEps := c.endpoints[types.ServiceID(svc)]
	if !okEps {
		return Authorization{}, fmt.Errorf("%w: no endpoints for service %s", ErrExchange, svc)
	}

	form := url.Values{"oauth_token": {token}}
	var reply struct {
		Granted map[string]string `json:"capabilities"`
	}
	if err := c.postForm(ctx, eps.AccessURL, form, &reply); err != nil {
		return Authorization{}, err
	}
	return Authorization{RequestToken: token, Granted: reply.Granted}, nil
}

func (c *HTTPClient) postForm(ctx context.Context, endpoint string, form url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrExchange, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrExchange, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: %s returned %d", ErrExchange, endpoint, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode response: %v", ErrExchange, err)
	}
	return nil
}
