// Package resource turns a declarative screen catalog into list/CRUD
// operations against the platform API. Every console data screen is one
// catalog entry; nothing screen-specific is hand-written.
package resource

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/oredesk/oredesk/internal/session"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// Operation names a permitted action on a resource
const (
	OpList   = "list"
	OpCreate = "create"
	OpUpdate = "update"
	OpDelete = "delete"
	OpToggle = "toggle"
)

// Toggle flips one field of a resource item through a dedicated endpoint,
// POST {path}/{id}{toggle path}
type Toggle struct {
	Name  string `yaml:"name"`
	Path  string `yaml:"path"`
	Label string `yaml:"label"`
}

// Field describes one form input for create/update operations
type Field struct {
	Name     string `yaml:"name"`
	Label    string `yaml:"label"`
	Type     string `yaml:"type"` // text (default), email, password, number
	Required bool   `yaml:"required"`
}

// Definition is one screen: a backend collection plus the operations the
// console exposes on it
type Definition struct {
	Name       string        `yaml:"name"`
	Title      string        `yaml:"title"`
	Scope      session.Scope `yaml:"scope"`
	Path       string        `yaml:"path"`
	IDField    string        `yaml:"id_field"`
	Columns    []string      `yaml:"columns"`
	Filters    []string      `yaml:"filters"`
	Operations []string      `yaml:"operations"`
	Toggles    []Toggle      `yaml:"toggles"`
	Fields     []Field       `yaml:"fields"`
}

// Allows reports whether the operation is enabled for this screen
func (d *Definition) Allows(op string) bool {
	for _, allowed := range d.Operations {
		if allowed == op {
			return true
		}
	}
	return false
}

// FilterAllowed reports whether a filter key is declared for this screen
func (d *Definition) FilterAllowed(key string) bool {
	for _, f := range d.Filters {
		if f == key {
			return true
		}
	}
	return false
}

// FindToggle returns the named toggle, if declared
func (d *Definition) FindToggle(name string) (*Toggle, bool) {
	for i := range d.Toggles {
		if d.Toggles[i].Name == name {
			return &d.Toggles[i], true
		}
	}
	return nil, false
}

// Catalog is the full screen catalog, keyed by scope and name
type Catalog struct {
	Resources []Definition `yaml:"resources"`
}

// LoadCatalog parses a catalog from the given YAML file, or the embedded
// default catalog when path is empty
func LoadCatalog(path string) (*Catalog, error) {
	data := defaultCatalog
	if path != "" {
		external, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read catalog file: %w", err)
		}
		data = external
	}

	var catalog Catalog
	if err := yaml.Unmarshal(data, &catalog); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}

	if err := catalog.validate(); err != nil {
		return nil, err
	}

	return &catalog, nil
}

func (c *Catalog) validate() error {
	seen := make(map[string]bool)
	for i := range c.Resources {
		def := &c.Resources[i]
		if def.Name == "" {
			return fmt.Errorf("catalog entry %d has no name", i)
		}
		if !def.Scope.Valid() {
			return fmt.Errorf("resource %q has invalid scope %q", def.Name, def.Scope)
		}
		if !strings.HasPrefix(def.Path, "/") {
			return fmt.Errorf("resource %q has invalid path %q", def.Name, def.Path)
		}
		key := string(def.Scope) + "/" + def.Name
		if seen[key] {
			return fmt.Errorf("duplicate resource %q for scope %q", def.Name, def.Scope)
		}
		seen[key] = true

		if def.IDField == "" {
			def.IDField = "id"
		}
		if def.Title == "" {
			def.Title = def.Name
		}
		if def.Allows(OpToggle) && len(def.Toggles) == 0 {
			return fmt.Errorf("resource %q allows toggle but declares none", def.Name)
		}
	}
	return nil
}

// ByScope returns the definitions for one scope in catalog order
func (c *Catalog) ByScope(scope session.Scope) []Definition {
	var out []Definition
	for _, def := range c.Resources {
		if def.Scope == scope {
			out = append(out, def)
		}
	}
	return out
}

// Get returns the named definition for a scope
func (c *Catalog) Get(scope session.Scope, name string) (*Definition, bool) {
	for i := range c.Resources {
		if c.Resources[i].Scope == scope && c.Resources[i].Name == name {
			return &c.Resources[i], true
		}
	}
	return nil, false
}
