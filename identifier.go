package navstack

import (
	"fmt"
	"strconv"
	"sync"

	"github.com/google/uuid"
)

// ElementID uniquely identifies one element held in a Stack. Generation is the
// monotonically increasing counter of the generator that issued it; Payload is
// an opaque value distinguishing identifiers across generator instances.
// ElementID is comparable and safe to use as a map key.
type ElementID struct {
	Generation uint64
	Payload    string
}

// String renders the identifier as "generation:payload".
func (id ElementID) String() string {
	return fmt.Sprintf("%d:%s", id.Generation, id.Payload)
}

// IDGenerator issues unique, ordered element identifiers. Implementations
// must be safe for concurrent use: each Next call performs an atomic
// read-then-increment, so no two calls observe the same generation.
type IDGenerator interface {
	// Next mints a fresh identifier and advances the internal counter.
	Next() ElementID
	// Peek previews the identifier the next call to Next will return without
	// advancing the counter.
	Peek() ElementID
	// SeededCopy returns a new generator starting at the caller's current
	// counter, establishing an isolated numbering scope.
	SeededCopy() IDGenerator
}

// sequentialGenerator is the deterministic mode: payloads equal the
// generation counter, so a fresh generator always yields 0, 1, 2, ...
type sequentialGenerator struct {
	mu   sync.Mutex
	next uint64
}

// NewSequentialGenerator constructs the deterministic generator used in tests
// and anywhere reproducible identifiers are required.
func NewSequentialGenerator() IDGenerator {
	return &sequentialGenerator{}
}

// NewSeededSequentialGenerator constructs a deterministic generator whose
// first identifier carries the supplied generation.
func NewSeededSequentialGenerator(start uint64) IDGenerator {
	return &sequentialGenerator{next: start}
}

func (g *sequentialGenerator) Next() ElementID {
	g.mu.Lock()
	defer g.mu.Unlock()
	id := ElementID{Generation: g.next, Payload: strconv.FormatUint(g.next, 10)}
	g.next++
	return id
}

func (g *sequentialGenerator) Peek() ElementID {
	g.mu.Lock()
	defer g.mu.Unlock()
	return ElementID{Generation: g.next, Payload: strconv.FormatUint(g.next, 10)}
}

func (g *sequentialGenerator) SeededCopy() IDGenerator {
	g.mu.Lock()
	defer g.mu.Unlock()
	return &sequentialGenerator{next: g.next}
}

// randomGenerator is the live mode: payloads are version 4 UUIDs, unique and
// unpredictable per call. Peek pre-mints the pending payload so a subsequent
// Next returns the previewed identifier.
type randomGenerator struct {
	mu      sync.Mutex
	next    uint64
	pending string
}

// NewRandomGenerator constructs the live-mode generator.
func NewRandomGenerator() IDGenerator {
	return &randomGenerator{}
}

func (g *randomGenerator) Next() ElementID {
	g.mu.Lock()
	defer g.mu.Unlock()
	payload := g.pending
	if payload == "" {
		payload = uuid.NewString()
	}
	g.pending = ""
	id := ElementID{Generation: g.next, Payload: payload}
	g.next++
	return id
}

func (g *randomGenerator) Peek() ElementID {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.pending == "" {
		g.pending = uuid.NewString()
	}
	return ElementID{Generation: g.next, Payload: g.pending}
}

func (g *randomGenerator) SeededCopy() IDGenerator {
	g.mu.Lock()
	defer g.mu.Unlock()
	return &randomGenerator{next: g.next}
}
