package command

import (
	"fmt"
	"strings"
)

// Spec describes one registered command. Name is the literal prefix typed by
// the user and may contain spaces ("catalog search").
type Spec[A any] struct {
	Name        string
	Description string
	Action      A
}

// Registry is an ordered, immutable list of command specs. Declaration order
// drives matching, help output and completion.
type Registry[A any] struct {
	specs []Spec[A]
}

// NewRegistry builds a registry from specs in the given order.
func NewRegistry[A any](specs ...Spec[A]) (*Registry[A], error) {
	seen := make(map[string]bool, len(specs))
	out := make([]Spec[A], 0, len(specs))
	for _, s := range specs {
		if strings.TrimSpace(s.Name) == "" {
			return nil, fmt.Errorf("command name must not be empty")
		}
		if seen[s.Name] {
			return nil, fmt.Errorf("duplicate command %q", s.Name)
		}
		seen[s.Name] = true
		out = append(out, s)
	}
	return &Registry[A]{specs: out}, nil
}

// Match returns the first spec, in declaration order, whose name is a prefix
// of input, together with the raw argument string that follows the prefix.
func (r *Registry[A]) Match(input string) (Spec[A], string, bool) {
	for _, s := range r.specs {
		if strings.HasPrefix(input, s.Name) {
			return s, input[len(s.Name):], true
		}
	}
	var zero Spec[A]
	return zero, "", false
}

// Complete returns the names that start with prefix, in declaration order.
func (r *Registry[A]) Complete(prefix string) []string {
	var matches []string
	for _, s := range r.specs {
		if strings.HasPrefix(s.Name, prefix) {
			matches = append(matches, s.Name)
		}
	}
	return matches
}

// Specs returns a copy of all specs in declaration order.
func (r *Registry[A]) Specs() []Spec[A] {
	out := make([]Spec[A], len(r.specs))
	copy(out, r.specs)
	return out
}

// Len reports the number of registered commands.
func (r *Registry[A]) Len() int { return len(r.specs) }
