// Package stack holds the synthesized resource graph for a single run.
//
// A Stack is the scope handle shared by every component in a run. Components
// register their constructs under "<component>/<handle>" so that no two
// components share a namespace. Constructs are kept in insertion order, which
// makes rendering and persistence deterministic.
package stack

import (
	"fmt"
	"sort"
	"strings"
)

// Construct is a single synthesized infrastructure resource.
type Construct struct {
	ID         string            `json:"id" yaml:"id"`
	Kind       string            `json:"kind" yaml:"kind"`
	Properties map[string]any    `json:"properties" yaml:"properties"`
	Tags       map[string]string `json:"tags,omitempty" yaml:"tags,omitempty"`
}

// NewConstruct creates a construct with the given properties.
// The properties map is owned by the construct after this call.
func NewConstruct(id, kind string, props map[string]any) *Construct {
	if props == nil {
		props = map[string]any{}
	}
	return &Construct{ID: id, Kind: kind, Properties: props, Tags: map[string]string{}}
}

// Set assigns value at a dotted property path, creating intermediate maps.
func (c *Construct) Set(path string, value any) error {
	if path == "" {
		return fmt.Errorf("construct %s: empty property path", c.ID)
	}
	parts := strings.Split(path, ".")
	cur := c.Properties
	for _, p := range parts[:len(parts)-1] {
		next, ok := cur[p]
		if !ok {
			m := map[string]any{}
			cur[p] = m
			cur = m
			continue
		}
		m, ok := next.(map[string]any)
		if !ok {
			return fmt.Errorf("construct %s: property %q is not an object", c.ID, p)
		}
		cur = m
	}
	cur[parts[len(parts)-1]] = value
	return nil
}

// Get returns the value at a dotted property path.
func (c *Construct) Get(path string) (any, bool) {
	var cur any = c.Properties
	for _, p := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[p]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// Tag sets a tag on the construct.
func (c *Construct) Tag(key, value string) {
	if c.Tags == nil {
		c.Tags = map[string]string{}
	}
	c.Tags[key] = value
}

// TagKeys returns the tag keys in sorted order.
func (c *Construct) TagKeys() []string {
	keys := make([]string, 0, len(c.Tags))
	for k := range c.Tags {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Stack is an ordered collection of constructs.
//
// Not safe for concurrent use. The resolver mutates a stack from a single
// goroutine only.
type Stack struct {
	Name  string
	order []string
	byID  map[string]*Construct
}

// New creates an empty stack.
func New(name string) *Stack {
	return &Stack{Name: name, byID: make(map[string]*Construct)}
}

// ID joins a component name and a component-local handle into a construct ID.
func ID(component, handle string) string {
	return component + "/" + handle
}

// Add registers a construct. Duplicate IDs are rejected.
func (s *Stack) Add(c *Construct) error {
	if c == nil {
		return fmt.Errorf("stack %s: nil construct", s.Name)
	}
	if _, exists := s.byID[c.ID]; exists {
		return fmt.Errorf("stack %s: construct %q already exists", s.Name, c.ID)
	}
	s.byID[c.ID] = c
	s.order = append(s.order, c.ID)
	return nil
}

// Lookup returns the construct with the given ID.
func (s *Stack) Lookup(id string) (*Construct, bool) {
	c, ok := s.byID[id]
	return c, ok
}

// Constructs returns all constructs in insertion order.
func (s *Stack) Constructs() []*Construct {
	out := make([]*Construct, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.byID[id])
	}
	return out
}

// Owned returns the constructs registered under a component's namespace,
// in insertion order.
func (s *Stack) Owned(component string) []*Construct {
	prefix := component + "/"
	var out []*Construct
	for _, id := range s.order {
		if strings.HasPrefix(id, prefix) {
			out = append(out, s.byID[id])
		}
	}
	return out
}

// Len returns the number of constructs.
func (s *Stack) Len() int {
	return len(s.order)
}
