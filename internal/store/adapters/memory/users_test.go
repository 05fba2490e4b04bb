package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/dropDatabas3/gridbridge/internal/security/password"
	"github.com/dropDatabas3/gridbridge/internal/store/core"
)

func TestGetByIdentity(t *testing.T) {
	r := New(core.User{ID: "u1", Identity: "https://idp/alice", FirstName: "Alice", LastName: "Avatar", Enabled: true})

	u, err := r.GetByIdentity(context.Background(), "https://idp/alice")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if u.ID != "u1" {
		t.Fatalf("wrong user: %+v", u)
	}

	if _, err := r.GetByIdentity(context.Background(), "https://idp/nadie"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestGetByName_CaseInsensitive(t *testing.T) {
	r := New(core.User{ID: "u1", FirstName: "Alice", LastName: "Avatar"})

	u, err := r.GetByName(context.Background(), "alice", "AVATAR")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if u.ID != "u1" {
		t.Fatalf("wrong user: %+v", u)
	}
}

func TestCheckPassword(t *testing.T) {
	hash, err := password.Hash(password.Params{Memory: 8 * 1024, Time: 1, Parallelism: 1, KeyLen: 32}, "pw")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	r := New()

	if !r.CheckPassword(&hash, "pw") {
		t.Fatal("expected match")
	}
	if r.CheckPassword(&hash, "other") {
		t.Fatal("wrong password must not match")
	}
	if r.CheckPassword(nil, "pw") {
		t.Fatal("nil hash must not match")
	}
	empty := ""
	if r.CheckPassword(&empty, "pw") {
		t.Fatal("empty hash must not match")
	}
}
