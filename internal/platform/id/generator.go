package id

import (
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
)

// Generator creates opaque IDs for canonical rows, audit records and raw records.
type Generator interface {
	NewID() (string, error)
}

// UUIDGenerator issues time-ordered UUIDv7 values so ids sort roughly by creation.
type UUIDGenerator struct{}

func NewUUIDGenerator() *UUIDGenerator {
	return &UUIDGenerator{}
}

func (g *UUIDGenerator) NewID() (string, error) {
	v, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generate uuid v7: %w", err)
	}

	return v.String(), nil
}

// SequenceGenerator returns prefix-1, prefix-2, ... and is meant for tests and dry runs
// where stable, readable ids matter more than global uniqueness.
type SequenceGenerator struct {
	prefix string
	next   atomic.Int64
}

func NewSequenceGenerator(prefix string) *SequenceGenerator {
	return &SequenceGenerator{prefix: prefix}
}

func (g *SequenceGenerator) NewID() (string, error) {
	return fmt.Sprintf("%s-%d", g.prefix, g.next.Add(1)), nil
}
