// Package writeauth issues the capability token every canonical-table mutation
// must carry. Repositories reject writes made without a valid token, and the
// Postgres store mirrors the token into the transaction so database triggers
// reject anything that bypasses the repositories.
package writeauth

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var ErrWriteNotAuthorized = errors.New("write not authorized: pipeline write token required")

// Token is opaque outside this package; the zero value is never valid.
type Token struct {
	actor     string
	runID     string
	grantedAt time.Time
}

// Grant starts an authorized run. Only pipeline entry points (ingest, dedup merge)
// call it; read-only surfaces never hold a Token.
func Grant(actor, runID string) (Token, error) {
	actor = strings.TrimSpace(actor)
	runID = strings.TrimSpace(runID)
	if actor == "" {
		return Token{}, fmt.Errorf("grant write token: actor is required")
	}
	if runID == "" {
		return Token{}, fmt.Errorf("grant write token: run id is required")
	}

	return Token{actor: actor, runID: runID, grantedAt: time.Now().UTC()}, nil
}

func (t Token) Valid() bool {
	return t.actor != "" && t.runID != "" && !t.grantedAt.IsZero()
}

func (t Token) Actor() string { return t.actor }

func (t Token) RunID() string { return t.runID }

func (t Token) GrantedAt() time.Time { return t.grantedAt }

// Require returns ErrWriteNotAuthorized for the zero or otherwise invalid token.
func Require(t Token) error {
	if !t.Valid() {
		return ErrWriteNotAuthorized
	}
	return nil
}
