package session

import (
	"bytes"
	"testing"
)

func TestMemoryStorePutGet(t *testing.T) {
	s := NewMemoryStore()

	if s.Has("k") {
		t.Error("new store must be empty")
	}
	if _, ok := s.Get("k"); ok {
		t.Error("Get on a missing key must report absence")
	}

	s.Put("k", []byte("value"))
	if !s.Has("k") {
		t.Error("Has must see the stored key")
	}
	got, ok := s.Get("k")
	if !ok || !bytes.Equal(got, []byte("value")) {
		t.Errorf("Get = %q, %v", got, ok)
	}

	s.Remove("k")
	if s.Has("k") {
		t.Error("Remove must delete the key")
	}
}

func TestMemoryStoreCopiesValues(t *testing.T) {
	s := NewMemoryStore()

	in := []byte("value")
	s.Put("k", in)
	in[0] = 'X'

	got, _ := s.Get("k")
	if !bytes.Equal(got, []byte("value")) {
		t.Error("mutating the input slice leaked into the store")
	}

	got[0] = 'X'
	again, _ := s.Get("k")
	if !bytes.Equal(again, []byte("value")) {
		t.Error("mutating a returned slice leaked into the store")
	}
}

func TestScopedStoreIsolation(t *testing.T) {
	s := NewMemoryStore()

	alice := s.Scope("alice")
	bob := s.Scope("bob")

	alice.Put("cart.default", []byte("a"))
	bob.Put("cart.default", []byte("b"))

	got, _ := alice.Get("cart.default")
	if !bytes.Equal(got, []byte("a")) {
		t.Errorf("alice sees %q", got)
	}
	got, _ = bob.Get("cart.default")
	if !bytes.Equal(got, []byte("b")) {
		t.Errorf("bob sees %q", got)
	}

	alice.Remove("cart.default")
	if alice.Has("cart.default") {
		t.Error("alice's key must be gone")
	}
	if !bob.Has("cart.default") {
		t.Error("removing alice's key must not touch bob's")
	}
}
