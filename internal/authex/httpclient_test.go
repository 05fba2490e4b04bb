package authex

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/dropDatabas3/gridbridge/internal/cache/memory"
	"github.com/dropDatabas3/gridbridge/internal/domain/types"
)

const testService = types.ServiceID("https://inventory.example.com")

// fakeService simula los endpoints del intercambio de un service.
func fakeService(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/request", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "bad form", http.StatusBadRequest)
			return
		}
		if r.PostForm.Get("session_id") == "" || r.PostForm.Get("oauth_callback") == "" {
			http.Error(w, "missing fields", http.StatusBadRequest)
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"oauth_token": "req-abc"})
	})
	mux.HandleFunc("/access", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil || r.PostForm.Get("oauth_token") != "req-abc" {
			http.Error(w, "unknown token", http.StatusBadRequest)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"capabilities": map[string]string{"inventory:read": "https://inventory.example.com/caps/1"},
		})
	})
	return httptest.NewServer(mux)
}

func newTestClient(t *testing.T, srv *httptest.Server) *HTTPClient {
	t.Helper()
	return NewHTTPClient(map[types.ServiceID]Endpoints{
		testService: {
			RequestURL:   srv.URL + "/request",
			AuthorizeURL: srv.URL + "/authorize",
			AccessURL:    srv.URL + "/access",
		},
	}, memory.New(time.Minute), 5*time.Second)
}

func TestCreateAuthorizationRequest(t *testing.T) {
	srv := fakeService(t)
	defer srv.Close()
	c := newTestClient(t, srv)

	ar, err := c.CreateAuthorizationRequest(context.Background(), testService, uuid.New(),
		"https://idp.example.com/users/alice", "https://grid.example.com/login/oauth_callback",
		[]string{"inventory:read"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if ar.RequestToken != "req-abc" {
		t.Fatalf("unexpected token: %q", ar.RequestToken)
	}
	if !strings.Contains(ar.RedirectURL, "oauth_token=req-abc") {
		t.Fatalf("redirect missing token: %s", ar.RedirectURL)
	}
	if !strings.HasPrefix(ar.RedirectURL, srv.URL+"/authorize") {
		t.Fatalf("redirect should target the authorize endpoint: %s", ar.RedirectURL)
	}
}

func TestCreateAuthorizationRequest_UnknownService(t *testing.T) {
	c := NewHTTPClient(nil, memory.New(time.Minute), time.Second)
	_, err := c.CreateAuthorizationRequest(context.Background(), "https://nadie.example.com", uuid.New(), "id", "cb", nil)
	if !errors.Is(err, ErrExchange) {
		t.Fatalf("expected ErrExchange, got %v", err)
	}
}

func TestProcessUserAuthorization_SingleRedemption(t *testing.T) {
	srv := fakeService(t)
	defer srv.Close()
	c := newTestClient(t, srv)
	ctx := context.Background()

	if _, err := c.CreateAuthorizationRequest(ctx, testService, uuid.New(), "id",
		"https://grid.example.com/login/oauth_callback", []string{"inventory:read"}); err != nil {
		t.Fatalf("create: %v", err)
	}

	callback := httptest.NewRequest(http.MethodGet, "https://grid.example.com/login/oauth_callback?oauth_token=req-abc", nil)
	auth, err := c.ProcessUserAuthorization(ctx, callback)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if auth.Granted["inventory:read"] != "https://inventory.example.com/caps/1" {
		t.Fatalf("granted mismatch: %v", auth.Granted)
	}

	// Refresh del browser: el segundo canje del mismo token es stale.
	if _, err := c.ProcessUserAuthorization(ctx, callback); !errors.Is(err, ErrUnknownToken) {
		t.Fatalf("expected ErrUnknownToken on replay, got %v", err)
	}
}

func TestProcessUserAuthorization_UnknownToken(t *testing.T) {
	srv := fakeService(t)
	defer srv.Close()
	c := newTestClient(t, srv)

	callback := httptest.NewRequest(http.MethodGet, "https://grid.example.com/login/oauth_callback?oauth_token=nunca-emitido", nil)
	if _, err := c.ProcessUserAuthorization(context.Background(), callback); !errors.Is(err, ErrUnknownToken) {
		t.Fatalf("expected ErrUnknownToken, got %v", err)
	}
}
