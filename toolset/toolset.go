package toolset

import (
	"encoding/json"
	"strings"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Descriptor describes one callable tool exposed by the tool server.
// Descriptors are immutable once fetched; the registry is re-fetched per
// session, never mutated in place.
type Descriptor struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	InputSchema json.RawMessage `json:"inputSchema,omitempty"`
}

// Registry is an order-preserving snapshot of tool descriptors keyed by
// lowercase name.
type Registry struct {
	byName *orderedmap.OrderedMap[string, Descriptor]
}

// NewRegistry builds a registry snapshot from the given descriptors.
// Duplicate names keep the first occurrence.
func NewRegistry(list []Descriptor) *Registry {
	r := &Registry{
		byName: orderedmap.New[string, Descriptor](),
	}
	for _, d := range list {
		key := strings.ToLower(d.Name)
		if _, ok := r.byName.Get(key); !ok {
			r.byName.Set(key, d)
		}
	}
	return r
}

// Get returns the descriptor for a tool name, case-insensitive.
func (r *Registry) Get(name string) (Descriptor, bool) {
	return r.byName.Get(strings.ToLower(name))
}

// Has reports whether the registry contains the tool name.
func (r *Registry) Has(name string) bool {
	_, ok := r.Get(name)
	return ok
}

// Len returns the number of tools in the registry.
func (r *Registry) Len() int {
	return r.byName.Len()
}

// Names returns the tool names in registry order.
func (r *Registry) Names() []string {
	names := make([]string, 0, r.byName.Len())
	for pair := r.byName.Oldest(); pair != nil; pair = pair.Next() {
		names = append(names, pair.Value.Name)
	}
	return names
}

// Descriptors returns the descriptors in registry order.
func (r *Registry) Descriptors() []Descriptor {
	list := make([]Descriptor, 0, r.byName.Len())
	for pair := r.byName.Oldest(); pair != nil; pair = pair.Next() {
		list = append(list, pair.Value)
	}
	return list
}
