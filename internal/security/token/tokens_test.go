package tokens

import "testing"

func TestGenerateOpaqueToken(t *testing.T) {
	a, err := GenerateOpaqueToken(32)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	b, err := GenerateOpaqueToken(32)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if a == "" || a == b {
		t.Fatal("tokens must be non-empty and unique")
	}
}

func TestSHA256Base64URL_Deterministic(t *testing.T) {
	if SHA256Base64URL("abc") != SHA256Base64URL("abc") {
		t.Fatal("hash must be deterministic")
	}
	if SHA256Base64URL("abc") == SHA256Base64URL("abd") {
		t.Fatal("different inputs must hash differently")
	}
}
