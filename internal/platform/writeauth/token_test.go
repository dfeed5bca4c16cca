package writeauth

import (
	"errors"
	"testing"
)

func TestGrant(t *testing.T) {
	tok, err := Grant("pipeline", "run-1")
	if err != nil {
		t.Fatalf("grant: %v", err)
	}
	if !tok.Valid() {
		t.Fatalf("granted token must be valid")
	}
	if tok.Actor() != "pipeline" || tok.RunID() != "run-1" {
		t.Fatalf("unexpected token fields: %s %s", tok.Actor(), tok.RunID())
	}
	if err := Require(tok); err != nil {
		t.Fatalf("require valid token: %v", err)
	}
}

func TestGrant_RequiresActorAndRun(t *testing.T) {
	if _, err := Grant(" ", "run-1"); err == nil {
		t.Fatalf("expected error for empty actor")
	}
	if _, err := Grant("pipeline", ""); err == nil {
		t.Fatalf("expected error for empty run id")
	}
}

func TestRequire_ZeroToken(t *testing.T) {
	if err := Require(Token{}); !errors.Is(err, ErrWriteNotAuthorized) {
		t.Fatalf("expected ErrWriteNotAuthorized, got %v", err)
	}
}
