package login

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	dto "github.com/dropDatabas3/gridbridge/internal/http/dto/login"
	httperrors "github.com/dropDatabas3/gridbridge/internal/http/errors"
	"github.com/dropDatabas3/gridbridge/internal/negotiation"
)

// DirectLogin maneja POST /login/rpc/{sessionID} - el RPC legacy de
// credenciales directas. Valida el session id del path contra el registry y
// chequea credenciales en forma síncrona; la falla es terminal, sin retry.
func (c *Controller) DirectLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	sessionID, err := uuid.Parse(chi.URLParam(r, "sessionID"))
	if err != nil {
		httperrors.WriteError(w, httperrors.ErrBadRequest)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, 64<<10)
	var req dto.DirectLoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httperrors.WriteError(w, httperrors.ErrBadRequest)
		return
	}

	outcome, err := c.orch.DirectLogin(ctx, sessionID, req.FirstName, req.LastName, req.Password)
	if err != nil {
		if err == negotiation.ErrSessionExpired {
			httperrors.WriteError(w, httperrors.ErrSessionExpired)
			return
		}
		c.handleError(w, r, err)
		return
	}

	if outcome.State == negotiation.StateFailed {
		// Respuesta terminal de falla, formato RPC plano.
		writeJSON(w, http.StatusUnauthorized, map[string]string{
			"login":   "false",
			"message": outcome.Message,
		})
		return
	}
	writeJSON(w, http.StatusOK, outcome.Response)
}
