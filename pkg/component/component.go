// Package component defines the installable pieces of a devbox workstation:
// toolchains, Docker, code-server and AI assistants.
package component

import (
	"errors"
	"fmt"
	"os"
	"regexp"

	"github.com/jaspreet-dot-casa/devbox/pkg/config"
	"github.com/jaspreet-dot-casa/devbox/pkg/platform"
)

var (
	// ErrUnknownComponent is returned when an ID is not in the registry.
	ErrUnknownComponent = errors.New("unknown component")
	// ErrDependencyCycle is returned when Requires edges form a cycle.
	ErrDependencyCycle = errors.New("dependency cycle")
)

// Category represents a grouping of related components.
type Category string

const (
	CategoryBase       Category = "Base"
	CategoryLanguages  Category = "Languages"
	CategoryContainers Category = "Containers"
	CategoryEditors    Category = "Editors"
	CategoryAI         Category = "AI Assistants"
)

// CategoryOrder is the display order of categories.
var CategoryOrder = []Category{CategoryBase, CategoryLanguages, CategoryContainers, CategoryEditors, CategoryAI}

// Context carries what step builders need to render their scripts.
type Context struct {
	Config   *config.Config
	Platform platform.Info
	Home     string
	User     string
}

// File is written by the installer itself, so its content never passes
// through a shell or the dry-run output.
type File struct {
	Path string
	Data []byte
	Mode os.FileMode
}

// Step is one shell script of an install, or one file to write.
type Step struct {
	Description string
	Script      string
	Sudo        bool  // Run as root (wrapped with sudo when not root)
	File        *File // Written in-process instead of running Script
}

// Component represents one installable unit.
type Component struct {
	// ID is the identifier used on the command line (e.g., "node")
	ID string

	// Name is a human-readable name
	Name string

	// Description is a brief description of the component
	Description string

	// Category is used for grouping in listings and the menu
	Category Category

	// Binaries are probed in order; the first one found marks the
	// component installed
	Binaries []string

	// Locations are absolute paths checked when no binary is on PATH.
	// A leading "~/" is expanded to the user's home.
	Locations []string

	// VersionArgs are passed to the binary to print its version
	VersionArgs []string

	// VersionPattern extracts the version; the first group is used
	VersionPattern *regexp.Regexp

	// Requires lists component IDs that must be installed first
	Requires []string

	// UsesAPT marks components installed with apt-get, which need a
	// Debian-family host
	UsesAPT bool

	// Steps renders the install scripts
	Steps func(Context) ([]Step, error)

	// RCBlock renders the shell rc block added after install, if any
	RCBlock func(Context) string
}

// Registry holds the known components.
// Note: Registry is not thread-safe and should not be modified concurrently.
type Registry struct {
	// Components is an ordered list of all components
	Components []Component

	// ByID provides quick lookup by component ID (stores copies, not pointers)
	ByID map[string]Component

	// ByCategory groups components by their category
	ByCategory map[Category][]Component
}

// NewRegistry creates an empty component registry.
func NewRegistry() *Registry {
	return &Registry{
		Components: make([]Component, 0, 16),
		ByID:       make(map[string]Component),
		ByCategory: make(map[Category][]Component),
	}
}

// Add adds a component to the registry. Adding an existing ID replaces it.
func (r *Registry) Add(c Component) {
	if _, ok := r.ByID[c.ID]; ok {
		r.remove(c.ID)
	}
	r.Components = append(r.Components, c)
	r.ByID[c.ID] = c
	r.ByCategory[c.Category] = append(r.ByCategory[c.Category], c)
}

func (r *Registry) remove(id string) {
	old := r.ByID[id]
	r.Components = deleteID(r.Components, id)
	r.ByCategory[old.Category] = deleteID(r.ByCategory[old.Category], id)
	delete(r.ByID, id)
}

func deleteID(list []Component, id string) []Component {
	out := list[:0]
	for _, c := range list {
		if c.ID != id {
			out = append(out, c)
		}
	}
	return out
}

// Get returns a component by ID, or nil if not found.
func (r *Registry) Get(id string) *Component {
	if c, ok := r.ByID[id]; ok {
		return &c
	}
	return nil
}

// IDs returns all component IDs in registry order.
func (r *Registry) IDs() []string {
	ids := make([]string, len(r.Components))
	for i, c := range r.Components {
		ids[i] = c.ID
	}
	return ids
}

// Categories returns all categories that have components.
func (r *Registry) Categories() []Category {
	result := make([]Category, 0, len(CategoryOrder))
	for _, cat := range CategoryOrder {
		if len(r.ByCategory[cat]) > 0 {
			result = append(result, cat)
		}
	}
	return result
}

// Resolve returns the requested components and everything they require,
// requirements first. Requested order is kept where dependencies allow.
func (r *Registry) Resolve(ids []string) ([]Component, error) {
	const (
		unvisited = iota
		visiting
		done
	)
	state := make(map[string]int)
	var order []Component

	var visit func(id string, path []string) error
	visit = func(id string, path []string) error {
		c, ok := r.ByID[id]
		if !ok {
			if len(path) > 0 {
				return fmt.Errorf("%w: %q (required by %s)", ErrUnknownComponent, id, path[len(path)-1])
			}
			return fmt.Errorf("%w: %q", ErrUnknownComponent, id)
		}
		switch state[id] {
		case done:
			return nil
		case visiting:
			return fmt.Errorf("%w: %v", ErrDependencyCycle, append(path, id))
		}

		state[id] = visiting
		for _, dep := range c.Requires {
			if err := visit(dep, append(path, id)); err != nil {
				return err
			}
		}
		state[id] = done
		order = append(order, c)
		return nil
	}

	for _, id := range ids {
		if err := visit(id, nil); err != nil {
			return nil, err
		}
	}
	return order, nil
}
