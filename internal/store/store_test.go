package store

import (
	"errors"
	"testing"
)

func TestStoreErrorWrapsCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewStoreError("league", cause)

	if !errors.Is(err, cause) {
		t.Error("StoreError must unwrap to its cause")
	}

	var storeErr *StoreError
	if !errors.As(err, &storeErr) {
		t.Fatal("errors.As should match *StoreError")
	}
	if storeErr.Op != "league" {
		t.Errorf("Op = %q, want %q", storeErr.Op, "league")
	}
}

func TestStoreErrorMessage(t *testing.T) {
	err := NewStoreError("ping", errors.New("timeout"))
	want := "fixture store: ping: timeout"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestNewPostgresStoreRequiresDSN(t *testing.T) {
	_, err := NewPostgresStore("")
	if err == nil {
		t.Fatal("expected error for empty DSN")
	}
}
