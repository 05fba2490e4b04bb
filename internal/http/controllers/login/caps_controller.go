package login

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dropDatabas3/gridbridge/internal/capability"
	dto "github.com/dropDatabas3/gridbridge/internal/http/dto/login"
	httperrors "github.com/dropDatabas3/gridbridge/internal/http/errors"
	"github.com/dropDatabas3/gridbridge/internal/observability/logger"
)

// CapsController resuelve capability URLs emitidas por el bridge.
type CapsController struct {
	store *capability.Store
}

func NewCapsController(store *capability.Store) *CapsController {
	return &CapsController{store: store}
}

// Resolve maneja GET /caps/cablebeach/{capID}. Una capability expirada o
// desconocida es indistinguible: 404.
func (c *CapsController) Resolve(w http.ResponseWriter, r *http.Request) {
	capID := chi.URLParam(r, "capID")

	entry, ok := c.store.Resolve(capID)
	if !ok {
		logger.From(r.Context()).Info("capability not resolvable",
			logger.Layer("controller"), logger.Component("caps"), logger.CapabilityID(capID))
		httperrors.WriteError(w, httperrors.ErrCapabilityNotFound)
		return
	}

	writeJSON(w, http.StatusOK, dto.CapabilityInfo{
		ID:         entry.ID.String(),
		SessionID:  entry.SessionID.String(),
		Handler:    entry.Handler,
		ClientCert: entry.ClientCert,
		ExpiresAt:  entry.ExpiresAt,
	})
}
