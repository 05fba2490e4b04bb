package negotiation

import "errors"

// Taxonomía de fallas de la negociación. Nada de los colaboradores externos
// se propaga crudo más allá del orchestrator: toda falla se convierte en uno
// de estos kinds antes de salir.
var (
	// ErrIdentityRejected: aserción negativa o identidad fuera del
	// allow-list. Recuperable reintentando el login.
	ErrIdentityRejected = errors.New("identity rejected")

	// ErrAuthorizationExchange: falla de red/protocolo con un service
	// durante el otorgamiento de capabilities. Se surfacea con el nombre
	// del service.
	ErrAuthorizationExchange = errors.New("authorization exchange failed")

	// ErrStaleCallback: token de correlación desconocido o expirado
	// (back-button, refresh). Se redirige al entry point, no es un error
	// para el usuario.
	ErrStaleCallback = errors.New("stale or unknown callback")

	// ErrSessionExpired: el PendingLogin o la cookie expiraron. Se trata
	// como anónimo: la negociación arranca de cero.
	ErrSessionExpired = errors.New("session expired")

	// ErrMalformed: wire input inválido. 400 directo, sin página de error.
	ErrMalformed = errors.New("malformed request")

	// ErrNothingToNegotiate: ningún service declaró requirements; el
	// orchestrator salta directo a completion. Señal interna, no falla.
	ErrNothingToNegotiate = errors.New("nothing to negotiate")
)
