package memory

import (
	"testing"
	"time"
)

func TestSetGetDelete(t *testing.T) {
	c := New(time.Minute)

	if _, ok := c.Get("missing"); ok {
		t.Fatal("unexpected hit on empty cache")
	}

	c.Set("k", []byte("v1"), time.Minute)
	b, ok := c.Get("k")
	if !ok || string(b) != "v1" {
		t.Fatalf("expected v1, got %q ok=%v", b, ok)
	}

	c.Delete("k")
	if _, ok := c.Get("k"); ok {
		t.Fatal("expected miss after delete")
	}
}

func TestExpiredEntryIsMiss(t *testing.T) {
	c := New(time.Minute)
	c.Set("k", []byte("v"), 20*time.Millisecond)

	time.Sleep(50 * time.Millisecond)
	// El Get mismo chequea la expiración: no hace falta esperar al sweep.
	if _, ok := c.Get("k"); ok {
		t.Fatal("expired entry should behave as not present")
	}
}

func TestSetReplacesValueAndDeadline(t *testing.T) {
	c := New(time.Minute)
	c.Set("k", []byte("old"), 20*time.Millisecond)
	c.Set("k", []byte("new"), time.Minute)

	time.Sleep(50 * time.Millisecond)
	b, ok := c.Get("k")
	if !ok {
		t.Fatal("refreshed entry should still be alive")
	}
	if string(b) != "new" {
		t.Fatalf("expected new value, got %q", b)
	}
}
