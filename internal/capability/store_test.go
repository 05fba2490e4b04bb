package capability

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/dropDatabas3/gridbridge/internal/cache/memory"
)

func TestIssueAndResolve(t *testing.T) {
	s := NewStore(memory.New(time.Minute), "https://grid.example.com/", 0)
	session := uuid.New()

	url, err := s.Issue(session, "inventory", true, []byte(`{"folder":"root"}`))
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if !strings.HasPrefix(url, "https://grid.example.com"+PathPrefix) {
		t.Fatalf("unexpected capability URL: %s", url)
	}

	capID := strings.TrimPrefix(url, "https://grid.example.com"+PathPrefix)
	entry, ok := s.Resolve(capID)
	if !ok {
		t.Fatal("expected capability to resolve")
	}
	if entry.SessionID != session || entry.Handler != "inventory" || !entry.ClientCert {
		t.Fatalf("capability mismatch: %+v", entry)
	}
	if string(entry.State) != `{"folder":"root"}` {
		t.Fatalf("state mismatch: %s", entry.State)
	}
}

func TestResolveRejectsMalformedAndUnknown(t *testing.T) {
	s := NewStore(memory.New(time.Minute), "https://grid.example.com", 0)

	if _, ok := s.Resolve("not-a-uuid"); ok {
		t.Fatal("malformed id should not resolve")
	}
	if _, ok := s.Resolve(uuid.NewString()); ok {
		t.Fatal("unknown id should not resolve")
	}
}

func TestCapabilityExpires(t *testing.T) {
	s := NewStore(memory.New(time.Minute), "https://grid.example.com", 20*time.Millisecond)
	url, err := s.Issue(uuid.New(), "assets", false, nil)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	capID := strings.TrimPrefix(url, "https://grid.example.com"+PathPrefix)

	time.Sleep(50 * time.Millisecond)
	if _, ok := s.Resolve(capID); ok {
		t.Fatal("expired capability should not resolve")
	}
}

func TestRevokeSession(t *testing.T) {
	s := NewStore(memory.New(time.Minute), "https://grid.example.com", 0)
	session := uuid.New()
	other := uuid.New()

	url1, _ := s.Issue(session, "inventory", false, nil)
	url2, _ := s.Issue(session, "assets", false, nil)
	url3, _ := s.Issue(other, "inventory", false, nil)

	if n := s.RevokeSession(session); n != 2 {
		t.Fatalf("expected 2 revoked, got %d", n)
	}

	for _, u := range []string{url1, url2} {
		id := strings.TrimPrefix(u, "https://grid.example.com"+PathPrefix)
		if _, ok := s.Resolve(id); ok {
			t.Fatalf("revoked capability still resolves: %s", u)
		}
	}

	// La sesión ajena no se toca.
	id3 := strings.TrimPrefix(url3, "https://grid.example.com"+PathPrefix)
	if _, ok := s.Resolve(id3); !ok {
		t.Fatal("unrelated session capability should survive")
	}

	// Idempotente: segunda revocación no encuentra nada.
	if n := s.RevokeSession(session); n != 0 {
		t.Fatalf("expected 0 on second revoke, got %d", n)
	}
}
