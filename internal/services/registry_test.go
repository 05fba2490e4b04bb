package services

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/dropDatabas3/gridbridge/internal/domain/types"
)

func staticProvider(names ...string) ProviderFunc {
	return func(ctx context.Context, sessionID uuid.UUID, identity string) (types.RequirementSet, error) {
		return types.NewRequirementSet(names...), nil
	}
}

func failingProvider(err error) ProviderFunc {
	return func(ctx context.Context, sessionID uuid.UUID, identity string) (types.RequirementSet, error) {
		return types.RequirementSet{}, err
	}
}

func TestRegistrationOrderIsStable(t *testing.T) {
	r := NewRegistry()
	r.Register("https://b.example.com", staticProvider("x"))
	r.Register("https://a.example.com", staticProvider("y"))

	got := r.Services()
	if len(got) != 2 || got[0] != "https://b.example.com" || got[1] != "https://a.example.com" {
		t.Fatalf("expected registration order preserved, got %v", got)
	}
}

func TestRegisterOverwritesInPlace(t *testing.T) {
	r := NewRegistry()
	r.Register("https://a.example.com", staticProvider("old"))
	r.Register("https://b.example.com", staticProvider("x"))
	r.Register("https://a.example.com", staticProvider("new"))

	got := r.Services()
	if len(got) != 2 {
		t.Fatalf("overwrite should not add a new entry: %v", got)
	}
	if got[0] != "https://a.example.com" {
		t.Fatalf("overwrite should keep original position: %v", got)
	}

	reqs := r.ComputeRequirements(context.Background(), uuid.New(), "id")
	rs := reqs["https://a.example.com"]
	if len(rs.Names) != 1 || rs.Names[0] != "new" {
		t.Fatalf("expected replaced provider to run, got %v", rs.Names)
	}
}

func TestFailingProviderIsIsolated(t *testing.T) {
	r := NewRegistry()
	r.Register("https://ok.example.com", staticProvider("a", "b"))
	r.Register("https://broken.example.com", failingProvider(errors.New("boom")))
	r.Register("https://also-ok.example.com", staticProvider("c"))

	reqs := r.ComputeRequirements(context.Background(), uuid.New(), "id")

	if _, ok := reqs["https://broken.example.com"]; ok {
		t.Fatal("failed provider should be skipped")
	}
	if _, ok := reqs["https://ok.example.com"]; !ok {
		t.Fatal("healthy provider before the failure should compute")
	}
	if _, ok := reqs["https://also-ok.example.com"]; !ok {
		t.Fatal("healthy provider after the failure should compute")
	}
}
