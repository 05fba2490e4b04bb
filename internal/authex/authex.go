// Package authex define el boundary con el intercambio de autorización de
// cada backend service: el round trip request-token -> user authorization ->
// capabilities otorgadas. Los detalles de firma/protocolo quedan del otro
// lado del boundary.
package authex

import (
	"context"
	"errors"
	"net/http"

	"github.com/dropDatabas3/gridbridge/internal/domain/types"
	"github.com/google/uuid"
)

// ErrExchange indica una falla de red/protocolo con el service.
var ErrExchange = errors.New("authorization exchange error")

// AuthorizationRequest es un intercambio iniciado: el token opaco que
// correlaciona el callback y la URL a la que redirigir al usuario.
type AuthorizationRequest struct {
	RequestToken string
	RedirectURL  string
}

// Authorization es el resultado de un callback procesado: el token que lo
// correlaciona y las capabilities otorgadas (nombre -> URI).
type Authorization struct {
	RequestToken string
	Granted      map[string]string
}

// Client habla el intercambio de autorización con los backend services.
type Client interface {
	// CreateAuthorizationRequest inicia el intercambio con un service para
	// una sesión: obtiene un request token y construye el redirect de
	// autorización con retorno a callbackURL.
	CreateAuthorizationRequest(ctx context.Context, service types.ServiceID, sessionID uuid.UUID, identity, callbackURL string, required []string) (AuthorizationRequest, error)

	// ProcessUserAuthorization procesa el callback del service y canjea el
	// request token por las capabilities otorgadas.
	ProcessUserAuthorization(ctx context.Context, r *http.Request) (Authorization, error)
}
