package causax

import (
	"fmt"
	"sync"
	"time"
)

type ContextoidID uint64

// ContextoidKind classifies a world-state entity.
type ContextoidKind int

const (
	Datoid       ContextoidKind = iota // plain data point
	Tempoid                            // temporal marker
	Spaceoid                           // spatial marker
	SpaceTempoid                       // spacetime marker
	Symboid                            // symbolic fact
)

func (k ContextoidKind) String() string {
	switch k {
	case Datoid:
		return "data"
	case Tempoid:
		return "time"
	case Spaceoid:
		return "space"
	case SpaceTempoid:
		return "spacetime"
	case Symboid:
		return "symbol"
	default:
		return "unknown"
	}
}

// Contextoid is one entity of world-state. Entities are immutable once
// stored; updating a context installs a replacement rather than mutating in
// place, which is what makes entity-level copy-on-write cloning safe.
type Contextoid struct {
	ID    ContextoidID
	Kind  ContextoidKind
	Value float64
	Time  time.Time // zero unless Kind is Tempoid or SpaceTempoid
	Meta  string
}

// Context provides thread-safe storage for world-state entities queried by
// causal functions during evaluation. Reads take shared access; any mutation
// takes exclusive access, so a context is never altered mid-evaluation.
type Context struct {
	mu      sync.RWMutex
	name    string
	entries map[ContextoidID]*Contextoid
}

// NewContext creates an empty context with a human-readable name.
func NewContext(name string) *Context {
	return &Context{
		name:    name,
		entries: make(map[ContextoidID]*Contextoid),
	}
}

// Name returns the context's name, e.g. "observed" or "counterfactual".
func (c *Context) Name() string { return c.name }

// Get retrieves an entity by id. The returned contextoid must be treated as
// read-only; it may be shared with clones of this context.
func (c *Context) Get(id ContextoidID) (*Contextoid, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[id]
	return e, ok
}

// Value returns the entity's value, or ErrEntityNotFound.
func (c *Context) Value(id ContextoidID) (float64, error) {
	e, ok := c.Get(id)
	if !ok {
		return 0, fmt.Errorf("%w: id %d in context %q", ErrEntityNotFound, id, c.name)
	}
	return e.Value, nil
}

// Add stores an entity, replacing any previous entity with the same id.
func (c *Context) Add(e Contextoid) {
	c.mu.Lock()
	defer c.mu.Unlock()
	stored := e
	c.entries[e.ID] = &stored
}

// SetValue installs a replacement entity carrying the new value. Returns
// ErrEntityNotFound if the id is absent.
func (c *Context) SetValue(id ContextoidID, v float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	old, ok := c.entries[id]
	if !ok {
		return fmt.Errorf("%w: id %d in context %q", ErrEntityNotFound, id, c.name)
	}
	next := *old
	next.Value = v
	c.entries[id] = &next
	return nil
}

// Delete removes an entity from the context.
func (c *Context) Delete(id ContextoidID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, id)
}

// Len returns the number of stored entities.
func (c *Context) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Clone returns an independent context sharing entity pointers with the
// original. Because mutation installs replacement entities, altering the
// clone never disturbs the original, which makes an alternate world for
// counterfactual evaluation cheap to build.
func (c *Context) Clone(name string) *Context {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entries := make(map[ContextoidID]*Contextoid, len(c.entries))
	for id, e := range c.entries {
		entries[id] = e
	}
	return &Context{name: name, entries: entries}
}
