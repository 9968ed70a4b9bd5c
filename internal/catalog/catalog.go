// Package catalog holds the agitation modes a session can select: the
// built-in set plus user modes loaded from YAML files, kept current by a
// file watcher.
package catalog

import (
	"slices"
	"sync"

	"github.com/msageha/devtimer/internal/agitation"
)

// Catalog maps mode names to modes. User modes shadow built-ins of the same
// name. It is safe for concurrent use; modes handed out are immutable, so a
// Replace never affects a timer already holding one.
type Catalog struct {
	mu       sync.RWMutex
	builtins []*agitation.Mode
	modes    map[string]*agitation.Mode
	version  uint64
}

// New returns a catalog of the built-in modes overlaid with custom.
func New(custom []*agitation.Mode) *Catalog {
	c := &Catalog{builtins: Builtins()}
	c.Replace(custom)
	return c
}

// Load builds a catalog from the built-ins and every mode file in dir.
func Load(dir string) (*Catalog, error) {
	custom, err := NewLoader(dir).LoadDir()
	if err != nil {
		return nil, err
	}
	return New(custom), nil
}

// Replace swaps the user modes in one step.
func (c *Catalog) Replace(custom []*agitation.Mode) {
	modes := make(map[string]*agitation.Mode, len(c.builtins)+len(custom))
	for _, m := range c.builtins {
		modes[m.Name()] = m
	}
	for _, m := range custom {
		modes[m.Name()] = m
	}

	c.mu.Lock()
	c.modes = modes
	c.version++
	c.mu.Unlock()
}

func (c *Catalog) Get(name string) (*agitation.Mode, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	m, ok := c.modes[name]
	return m, ok
}

// Names returns the mode names in sorted order.
func (c *Catalog) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.modes))
	for name := range c.modes {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Modes returns every mode sorted by name.
func (c *Catalog) Modes() []*agitation.Mode {
	names := c.Names()
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*agitation.Mode, 0, len(names))
	for _, n := range names {
		if m, ok := c.modes[n]; ok {
			out = append(out, m)
		}
	}
	return out
}

// Version increases on every Replace.
func (c *Catalog) Version() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.version
}
