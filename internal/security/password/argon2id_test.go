package password

import (
	"strings"
	"testing"
)

var testParams = Params{Memory: 8 * 1024, Time: 1, Parallelism: 1, KeyLen: 32}

func TestHashAndVerify(t *testing.T) {
	phc, err := Hash(testParams, "hunter2")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if !Verify("hunter2", phc) {
		t.Fatal("expected verify to succeed")
	}
	if Verify("wrong", phc) {
		t.Fatal("wrong password must not verify")
	}
}

// Todo PHC que emite Hash debe ser aceptado por Verify: el formato tiene 6
// campos separados por '$' y los dos últimos son base64 sin padding.
func TestVerify_ParsesHashOutput(t *testing.T) {
	for _, pwd := range []string{"a", "with spaces", "unicode-ñ", "long-" + string(make([]byte, 64))} {
		phc, err := Hash(testParams, pwd)
		if err != nil {
			t.Fatalf("hash %q: %v", pwd, err)
		}
		if got := len(strings.Split(phc, "$")); got != 6 {
			t.Fatalf("phc should have 6 $-fields, got %d: %s", got, phc)
		}
		if !Verify(pwd, phc) {
			t.Fatalf("verify must accept output of Hash: %s", phc)
		}
	}
}

func TestHash_EmptyPassword(t *testing.T) {
	if _, err := Hash(testParams, ""); err == nil {
		t.Fatal("empty password must be rejected")
	}
}

func TestVerify_MalformedPHC(t *testing.T) {
	for _, phc := range []string{
		"",
		"garbage",
		"$argon2id$v=18$m=1,t=1,p=1$x$y", // versión desconocida
		"$argon2i$v=19$m=1,t=1,p=1$x$y",  // variante equivocada
		"$argon2id$v=19$m=1,t=1,p=1$x",   // campos de menos
	} {
		if Verify("x", phc) {
			t.Fatalf("malformed phc should not verify: %q", phc)
		}
	}
}
