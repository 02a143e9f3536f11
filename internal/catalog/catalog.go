// Package catalog holds the learning modules: their quiz questions, tasks
// and validation profiles. The built-in content is embedded and checked at
// load time.
package catalog

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sync"
)

//go:embed content/modules.json
var embeddedModules []byte

// ErrNotFound is returned for unknown module ids.
var ErrNotFound = errors.New("module not found")

// Catalog is an ordered, read-only set of modules.
type Catalog struct {
	modules []Module
	byID    map[string]int
}

type document struct {
	Modules []Module `json:"modules"`
}

// Load parses and validates a modules document.
func Load(data []byte) (*Catalog, error) {
	if err := validateDocument(data); err != nil {
		return nil, err
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse modules: %w", err)
	}
	if err := validateModules(doc.Modules); err != nil {
		return nil, err
	}
	return build(doc.Modules), nil
}

// New builds a catalog from modules already in memory, running the same
// structural checks as Load.
func New(modules []Module) (*Catalog, error) {
	if err := validateModules(modules); err != nil {
		return nil, err
	}
	return build(modules), nil
}

func build(modules []Module) *Catalog {
	c := &Catalog{
		modules: slices.Clone(modules),
		byID:    make(map[string]int, len(modules)),
	}
	for i := range c.modules {
		m := &c.modules[i]
		m.profile = resolveProfile(m)
		c.byID[m.ID] = i
	}
	return c
}

var (
	defaultOnce sync.Once
	defaultCat  *Catalog
	defaultErr  error
)

// Default returns the embedded catalog.
func Default() (*Catalog, error) {
	defaultOnce.Do(func() {
		defaultCat, defaultErr = Load(embeddedModules)
	})
	return defaultCat, defaultErr
}

// Get returns the module with the given id.
func (c *Catalog) Get(id string) (*Module, error) {
	i, ok := c.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, id)
	}
	return &c.modules[i], nil
}

// All returns the modules in catalog order.
func (c *Catalog) All() []*Module {
	out := make([]*Module, len(c.modules))
	for i := range c.modules {
		out[i] = &c.modules[i]
	}
	return out
}

// Len returns the number of modules.
func (c *Catalog) Len() int { return len(c.modules) }

// Index returns the position of a module, or -1.
func (c *Catalog) Index(id string) int {
	if i, ok := c.byID[id]; ok {
		return i
	}
	return -1
}

// Next returns the module after id, or nil when id is the last one.
func (c *Catalog) Next(id string) *Module {
	i, ok := c.byID[id]
	if !ok || i+1 >= len(c.modules) {
		return nil
	}
	return &c.modules[i+1]
}
