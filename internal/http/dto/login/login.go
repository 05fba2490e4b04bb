// Package login contiene los DTOs del surface de login.
package login

import "time"

// StartRequest es el form/query del entry point de login.
type StartRequest struct {
	Identifier string `json:"identifier"`
	Realm      string `json:"realm"`
	// Method: "openid" (default) o "direct" para provisionar el path legacy.
	Method    string `json:"method,omitempty"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
}

// DirectLoginRequest es el body del RPC legacy de credenciales.
type DirectLoginRequest struct {
	FirstName string `json:"first"`
	LastName  string `json:"last"`
	Password  string `json:"passwd"`
}

// DirectLoginProvisioned responde al start con method=direct: la URL del RPC
// con el session id embebido en el path.
type DirectLoginProvisioned struct {
	SessionID string `json:"session_id"`
	RPCURL    string `json:"rpc_url"`
	ExpiresIn int    `json:"expires_in"`
}

// CapabilityInfo describe una capability resuelta.
type CapabilityInfo struct {
	ID         string    `json:"id"`
	SessionID  string    `json:"session_id"`
	Handler    string    `json:"handler"`
	ClientCert bool      `json:"client_cert"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// PendingLoginSummary es la vista de admin de una negociación viva.
type PendingLoginSummary struct {
	SessionID string   `json:"session_id"`
	Identity  string   `json:"identity"`
	Services  []string `json:"services"`
	Fulfilled []string `json:"fulfilled"`
	CreatedAt string   `json:"created_at"`
	Method    string   `json:"auth_method"`
}
