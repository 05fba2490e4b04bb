// Package admin - surface administrativo del bridge, consumido por gridbridgectl.
package admin

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/dropDatabas3/gridbridge/internal/capability"
	dto "github.com/dropDatabas3/gridbridge/internal/http/dto/login"
	httperrors "github.com/dropDatabas3/gridbridge/internal/http/errors"
	"github.com/dropDatabas3/gridbridge/internal/negotiation"
	"github.com/dropDatabas3/gridbridge/internal/observability/logger"
)

type Controller struct {
	registry *negotiation.Registry
	caps     *capability.Store
}

func NewController(registry *negotiation.Registry, caps *capability.Store) *Controller {
	return &Controller{registry: registry, caps: caps}
}

// ListLogins maneja GET /admin/logins - negociaciones vivas.
func (c *Controller) ListLogins(w http.ResponseWriter, r *http.Request) {
	logins := c.registry.List()
	out := make([]dto.PendingLoginSummary, 0, len(logins))
	for _, l := range logins {
		summary := dto.PendingLoginSummary{
			SessionID: l.SessionID.String(),
			Identity:  l.Identity,
			CreatedAt: l.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
			Method:    string(l.AuthMethod),
		}
		for _, svc := range l.Services {
			summary.Services = append(summary.Services, string(svc))
			if l.Fulfilled[svc] {
				summary.Fulfilled = append(summary.Fulfilled, string(svc))
			}
		}
		out = append(out, summary)
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	_ = json.NewEncoder(w).Encode(out)
}

// RevokeLogin maneja POST /admin/logins/{sessionID}/revoke - descarta la
// negociación y revoca las capabilities vivas de la sesión.
func (c *Controller) RevokeLogin(w http.ResponseWriter, r *http.Request) {
	sessionID, err := uuid.Parse(chi.URLParam(r, "sessionID"))
	if err != nil {
		httperrors.WriteError(w, httperrors.ErrBadRequest)
		return
	}

	c.registry.Delete(sessionID)
	revoked := c.caps.RevokeSession(sessionID)

	logger.From(r.Context()).Info("session revoked",
		logger.Layer("controller"),
		logger.SessionID(sessionID.String()),
		logger.Count(revoked),
	)

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	_ = json.NewEncoder(w).Encode(map[string]any{"revoked_capabilities": revoked})
}
