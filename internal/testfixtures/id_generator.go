package testfixtures

import (
	"fmt"
	"sync"
)

// IDGenerator hands out sequential "prefix-N" identifiers. Tests wire its
// NextFunc where production code generates opaque tokens, so assertions can
// name "token-1" instead of matching random strings.
type IDGenerator struct {
	mu     sync.Mutex
	prefix string
	issued uint64
}

// NewIDGenerator builds a generator for the given prefix; an empty prefix
// falls back to "id".
func NewIDGenerator(prefix string) *IDGenerator {
	if prefix == "" {
		prefix = "id"
	}
	return &IDGenerator{prefix: prefix}
}

// Next issues the next identifier in the sequence, starting at prefix-1.
func (g *IDGenerator) Next() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.issued++
	return fmt.Sprintf("%s-%d", g.prefix, g.issued)
}

// NextFunc adapts the generator to the token-generator shape services
// expect. A nil generator yields empty strings.
func (g *IDGenerator) NextFunc() func() string {
	if g == nil {
		return func() string { return "" }
	}
	return g.Next
}

// SetPrefix changes the prefix for identifiers issued from now on.
func (g *IDGenerator) SetPrefix(prefix string) {
	g.mu.Lock()
	g.prefix = prefix
	g.mu.Unlock()
}

// SetCounter rewinds or forwards the sequence; the next identifier is
// counter+1.
func (g *IDGenerator) SetCounter(counter uint64) {
	g.mu.Lock()
	g.issued = counter
	g.mu.Unlock()
}
