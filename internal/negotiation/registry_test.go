package negotiation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/dropDatabas3/gridbridge/internal/cache/memory"
	"github.com/dropDatabas3/gridbridge/internal/domain/types"
	"github.com/dropDatabas3/gridbridge/internal/services"
)

func pendingProvider(names ...string) services.ProviderFunc {
	return func(ctx context.Context, sessionID uuid.UUID, identity string) (types.RequirementSet, error) {
		return types.NewRequirementSet(names...), nil
	}
}

// grantedProvider emite las URIs en el acto, como un service local.
func grantedProvider(granted map[string]string) services.ProviderFunc {
	return func(ctx context.Context, sessionID uuid.UUID, identity string) (types.RequirementSet, error) {
		rs := types.RequirementSet{Granted: map[string]string{}}
		for name, uri := range granted {
			rs.Names = append(rs.Names, name)
			rs.Granted[name] = uri
		}
		return rs, nil
	}
}

func newTestRegistry(t *testing.T, setup func(*services.Registry)) *Registry {
	t.Helper()
	svcs := services.NewRegistry()
	if setup != nil {
		setup(svcs)
	}
	return NewRegistry(memory.New(time.Minute), svcs)
}

func TestCreateAndGet(t *testing.T) {
	r := newTestRegistry(t, func(s *services.Registry) {
		s.Register("https://inv.example.com", pendingProvider("inventory:read"))
	})

	login, err := r.Create(context.Background(), "https://idp/alice", types.AuthMethodOpenID, "Alice", "Avatar", "a@example.com", "https://web.example.com")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if login.SessionID == uuid.Nil {
		t.Fatal("expected a session id")
	}
	if login.NextUnfulfilled() != "https://inv.example.com" {
		t.Fatalf("expected pending service, got %q", login.NextUnfulfilled())
	}

	got, ok := r.Get(login.SessionID)
	if !ok {
		t.Fatal("created login should be retrievable")
	}
	if got.Identity != "https://idp/alice" || got.Realm != "https://web.example.com" {
		t.Fatalf("login mismatch: %+v", got)
	}
}

func TestCreate_NothingToNegotiate(t *testing.T) {
	// Sin services registrados no hay nada que negociar.
	r := newTestRegistry(t, nil)

	login, err := r.Create(context.Background(), "id", types.AuthMethodOpenID, "", "", "", "")
	if !errors.Is(err, ErrNothingToNegotiate) {
		t.Fatalf("expected ErrNothingToNegotiate, got %v", err)
	}
	if login == nil || login.SessionID == uuid.Nil {
		t.Fatal("ephemeral login should still be populated")
	}
	// No se registra: completion inmediata, no hay callback que esperar.
	if _, ok := r.Get(login.SessionID); ok {
		t.Fatal("ephemeral login must not be stored")
	}
}

func TestCreate_LocalGrantsPreFulfilled(t *testing.T) {
	r := newTestRegistry(t, func(s *services.Registry) {
		s.Register("https://local.example.com", grantedProvider(map[string]string{
			"login": "https://grid.example.com/caps/cablebeach/abc",
		}))
		s.Register("https://remote.example.com", pendingProvider("assets:read"))
	})

	login, err := r.Create(context.Background(), "id", types.AuthMethodOpenID, "", "", "", "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !login.Fulfilled["https://local.example.com"] {
		t.Fatal("locally granted service should start fulfilled")
	}
	if login.NextUnfulfilled() != "https://remote.example.com" {
		t.Fatalf("expected remote service pending, got %q", login.NextUnfulfilled())
	}
}

func TestCreate_AllLocalSkipsNegotiation(t *testing.T) {
	r := newTestRegistry(t, func(s *services.Registry) {
		s.Register("https://local.example.com", grantedProvider(map[string]string{
			"login": "https://grid.example.com/caps/cablebeach/abc",
		}))
	})

	_, err := r.Create(context.Background(), "id", types.AuthMethodOpenID, "", "", "", "")
	if !errors.Is(err, ErrNothingToNegotiate) {
		t.Fatalf("expected ErrNothingToNegotiate, got %v", err)
	}
}

func TestMarkGranted(t *testing.T) {
	r := newTestRegistry(t, func(s *services.Registry) {
		s.Register("https://inv.example.com", pendingProvider("inventory:read", "inventory:write"))
	})

	login, err := r.Create(context.Background(), "id", types.AuthMethodOpenID, "", "", "", "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	sid := login.SessionID

	// Grant parcial: el service no queda fulfilled.
	got, err := r.MarkGranted(sid, "https://inv.example.com", map[string]string{
		"inventory:read": "https://inv/caps/1",
	})
	if err != nil {
		t.Fatalf("mark granted: %v", err)
	}
	if got.Fulfilled["https://inv.example.com"] {
		t.Fatal("partial grant must not fulfil the service")
	}

	// Segundo grant completa el set.
	got, err = r.MarkGranted(sid, "https://inv.example.com", map[string]string{
		"inventory:write": "https://inv/caps/2",
	})
	if err != nil {
		t.Fatalf("mark granted: %v", err)
	}
	if !got.Fulfilled["https://inv.example.com"] {
		t.Fatal("fully granted service should be fulfilled")
	}
	if !got.Complete() {
		t.Fatal("single-service login should now be complete")
	}

	// El estado persiste.
	persisted, ok := r.Get(sid)
	if !ok || !persisted.Complete() {
		t.Fatal("granted state should persist in the registry")
	}
}

func TestMarkGranted_UndeclaredService(t *testing.T) {
	r := newTestRegistry(t, func(s *services.Registry) {
		s.Register("https://inv.example.com", pendingProvider("inventory:read"))
	})
	login, _ := r.Create(context.Background(), "id", types.AuthMethodOpenID, "", "", "", "")

	if _, err := r.MarkGranted(login.SessionID, "https://intruso.example.com", map[string]string{"x": "y"}); err == nil {
		t.Fatal("grant from an undeclared service must be rejected")
	}
}

func TestMarkGranted_ExpiredSession(t *testing.T) {
	r := newTestRegistry(t, nil)
	if _, err := r.MarkGranted(uuid.New(), "https://inv.example.com", nil); !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("expected ErrSessionExpired, got %v", err)
	}
}

func TestDeleteAndList(t *testing.T) {
	r := newTestRegistry(t, func(s *services.Registry) {
		s.Register("https://inv.example.com", pendingProvider("inventory:read"))
	})

	a, _ := r.Create(context.Background(), "a", types.AuthMethodOpenID, "", "", "", "")
	b, _ := r.Create(context.Background(), "b", types.AuthMethodOpenID, "", "", "", "")

	if got := r.List(); len(got) != 2 {
		t.Fatalf("expected 2 live logins, got %d", len(got))
	}

	r.Delete(a.SessionID)
	got := r.List()
	if len(got) != 1 || got[0].SessionID != b.SessionID {
		t.Fatalf("expected only b to survive, got %d entries", len(got))
	}

	// Idempotente.
	r.Delete(a.SessionID)
	if _, ok := r.Get(a.SessionID); ok {
		t.Fatal("deleted login should stay gone")
	}
}
