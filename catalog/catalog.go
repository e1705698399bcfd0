package catalog

import (
	"sort"
	"sync"

	"github.com/c360studio/stageflow/workflow"
)

// Catalog is an in-memory registry of workflow definitions keyed by id.
// It implements workflow.Lookup for the resolver. Reads take a shared
// lock so resolution can run concurrently; Replace swaps the whole set
// atomically, which is how hot reload applies a fresh load.
type Catalog struct {
	mu   sync.RWMutex
	defs map[string]*workflow.Definition
}

// New creates an empty catalog.
func New() *Catalog {
	return &Catalog{defs: make(map[string]*workflow.Definition)}
}

// Definition implements workflow.Lookup.
func (c *Catalog) Definition(id string) (*workflow.Definition, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	def, ok := c.defs[id]
	return def, ok
}

// List returns the loaded definitions ordered by id.
func (c *Catalog) List() []*workflow.Definition {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]*workflow.Definition, 0, len(c.defs))
	for _, def := range c.defs {
		out = append(out, def)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Len returns the number of loaded definitions.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.defs)
}

// Replace atomically swaps the catalog contents for the given set.
// Later duplicates of an id overwrite earlier ones; the loader already
// de-duplicates, so in practice ids are unique by the time they get here.
func (c *Catalog) Replace(defs []*workflow.Definition) {
	next := make(map[string]*workflow.Definition, len(defs))
	for _, def := range defs {
		if def != nil && def.ID != "" {
			next[def.ID] = def
		}
	}

	c.mu.Lock()
	c.defs = next
	c.mu.Unlock()
}
