// Package legacy construye la respuesta de login del grid legacy. El formato
// de wire exacto (XML-RPC) queda fuera del bridge; acá se arma el payload y
// el session token firmado que el viewer presenta al grid.
package legacy

import (
	"fmt"
	"time"

	"github.com/dropDatabas3/gridbridge/internal/domain/types"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// LoginResponse es el resultado final de una negociación completa.
type LoginResponse struct {
	SessionID    uuid.UUID         `json:"session_id"`
	Identity     string            `json:"identity"`
	FirstName    string            `json:"first_name"`
	LastName     string            `json:"last_name"`
	SessionToken string            `json:"session_token"`
	Capabilities map[string]string `json:"capabilities"`
	Message      string            `json:"message"`
}

// Responder finaliza un login completo. Colaborador externo del orchestrator;
// esta implementación emite un session token JWT (HS256) con las
// capabilities otorgadas aplanadas por nombre.
type Responder interface {
	Complete(login *types.PendingLogin) (*LoginResponse, error)
}

type jwtResponder struct {
	issuer string
	secret []byte
	ttl    time.Duration
}

func NewResponder(issuer string, secret []byte, ttl time.Duration) Responder {
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &jwtResponder{issuer: issuer, secret: secret, ttl: ttl}
}

func (r *jwtResponder) Complete(login *types.PendingLogin) (*LoginResponse, error) {
	caps := make(map[string]string)
	for _, rs := range login.Requirements {
		for name, uri := range rs.Granted {
			if uri != "" {
				caps[name] = uri
			}
		}
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"iss": r.issuer,
		"sub": login.Identity,
		"sid": login.SessionID.String(),
		"amr": string(login.AuthMethod),
		"iat": now.Unix(),
		"exp": now.Add(r.ttl).Unix(),
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(r.secret)
	if err != nil {
		return nil, fmt.Errorf("sign session token: %w", err)
	}

	return &LoginResponse{
		SessionID:    login.SessionID,
		Identity:     login.Identity,
		FirstName:    login.FirstName,
		LastName:     login.LastName,
		SessionToken: tok,
		Capabilities: caps,
		Message:      "Welcome to the grid",
	}, nil
}
