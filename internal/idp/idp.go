// Package idp define el boundary con el identity provider externo: el que
// emite la aserción de identidad. Los internos criptográficos del protocolo
// quedan detrás de Verifier; el orchestrator solo ve el resultado.
package idp

import (
	"context"
	"errors"
	"net/http"
)

// AssertionStatus es el resultado de parsear la respuesta del provider.
type AssertionStatus int

const (
	// StatusVerified: aserción positiva sobre ClaimedIdentity.
	StatusVerified AssertionStatus = iota
	// StatusRejected: el provider negó la aserción.
	StatusRejected
	// StatusCancelled: el usuario canceló explícitamente en el provider.
	StatusCancelled
)

func (s AssertionStatus) String() string {
	switch s {
	case StatusVerified:
		return "verified"
	case StatusRejected:
		return "rejected"
	case StatusCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Assertion es el claim del provider sobre una identidad.
// ClaimedIdentity puede diferir del identifier originalmente pedido; el
// caller debe re-chequear autorización sobre la identidad asertada.
type Assertion struct {
	Status          AssertionStatus
	ClaimedIdentity string
	Attributes      map[string]string // first_name, last_name, email si el provider los entrega
}

// ErrProvider indica una falla de red/protocolo hablando con el provider.
var ErrProvider = errors.New("identity provider error")

// Verifier es el relying-party frente al identity provider.
type Verifier interface {
	// CreateRequest construye la URL de redirect al provider para asertar
	// identifier, con retorno a returnURL.
	CreateRequest(ctx context.Context, identifier, returnURL string) (string, error)

	// ParseResponse procesa el callback del provider. Errores de protocolo
	// retornan ErrProvider (wrapped); una aserción negativa o cancelada no
	// es un error, se reporta por Status.
	ParseResponse(ctx context.Context, r *http.Request) (Assertion, error)
}
