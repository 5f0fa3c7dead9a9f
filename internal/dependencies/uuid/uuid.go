package uuid

import "github.com/google/uuid"

// Generator produces unique identifiers for games, players and connections
type Generator interface {
	NewString() string
}

// DefaultGenerator implements Generator with random (v4) UUIDs
type DefaultGenerator struct{}

// New creates a new DefaultGenerator
func New() *DefaultGenerator {
	return &DefaultGenerator{}
}

// NewString returns a new UUID string
func (g *DefaultGenerator) NewString() string {
	return uuid.NewString()
}
