package legacy

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/dropDatabas3/gridbridge/internal/domain/types"
)

func TestComplete_FlattensGrantedCapabilities(t *testing.T) {
	r := NewResponder("https://grid.example.com", []byte("secret"), time.Hour)

	login := &types.PendingLogin{
		SessionID:  uuid.New(),
		Identity:   "https://idp.example.com/users/alice",
		FirstName:  "Alice",
		LastName:   "Avatar",
		AuthMethod: types.AuthMethodOpenID,
		Requirements: map[types.ServiceID]types.RequirementSet{
			"https://inv.example.com": {
				Names: []string{"inventory:read", "inventory:write"},
				Granted: map[string]string{
					"inventory:read":  "https://inv.example.com/caps/1",
					"inventory:write": "", // nunca otorgada: no debe aparecer
				},
			},
			"https://assets.example.com": {
				Names:   []string{"assets:read"},
				Granted: map[string]string{"assets:read": "https://assets.example.com/caps/2"},
			},
		},
	}

	resp, err := r.Complete(login)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if resp.Identity != login.Identity || resp.SessionID != login.SessionID {
		t.Fatalf("response identity mismatch: %+v", resp)
	}
	if len(resp.Capabilities) != 2 {
		t.Fatalf("expected 2 granted capabilities, got %v", resp.Capabilities)
	}
	if _, ok := resp.Capabilities["inventory:write"]; ok {
		t.Fatal("ungranted capability leaked into the response")
	}
}

func TestComplete_SessionTokenClaims(t *testing.T) {
	secret := []byte("secret")
	r := NewResponder("https://grid.example.com", secret, time.Hour)

	login := &types.PendingLogin{
		SessionID:  uuid.New(),
		Identity:   "https://idp.example.com/users/alice",
		AuthMethod: types.AuthMethodDirect,
	}
	resp, err := r.Complete(login)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}

	tok, err := jwt.Parse(resp.SessionToken, func(t *jwt.Token) (any, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil || !tok.Valid {
		t.Fatalf("token should verify: %v", err)
	}
	claims := tok.Claims.(jwt.MapClaims)
	if claims["sub"] != login.Identity {
		t.Fatalf("sub mismatch: %v", claims["sub"])
	}
	if claims["sid"] != login.SessionID.String() {
		t.Fatalf("sid mismatch: %v", claims["sid"])
	}
	if claims["amr"] != "direct" {
		t.Fatalf("amr mismatch: %v", claims["amr"])
	}
}
