// internal/listener/registry.go
package listener

import (
	"strings"
	"sync"

	"golang.org/x/net/html"
)

// Registry answers whether an event handler is attached to an element. It
// hides whether the handler was declared as an on* attribute, registered with
// addEventListener or assigned as a scripted property.
type Registry interface {
	HasListener(n *html.Node, event string) bool
}

// Attributes finds handlers declared as static on* attributes.
type Attributes struct{}

// HasListener implements Registry.
func (Attributes) HasListener(n *html.Node, event string) bool {
	if n == nil || n.Type != html.ElementNode {
		return false
	}
	key := "on" + strings.ToLower(event)
	for _, a := range n.Attr {
		if a.Namespace == "" && strings.EqualFold(a.Key, key) {
			return true
		}
	}
	return false
}

// Set is a mutable registry filled by an observer such as a script run or a
// browser capture. It is safe for concurrent use.
type Set struct {
	mu     sync.RWMutex
	events map[*html.Node]map[string]int
}

// NewSet creates an empty Set.
func NewSet() *Set {
	return &Set{events: make(map[*html.Node]map[string]int)}
}

// Add records one handler for event on n.
func (s *Set) Add(n *html.Node, event string) {
	if n == nil {
		return
	}
	event = strings.ToLower(event)
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.events[n]
	if !ok {
		m = make(map[string]int)
		s.events[n] = m
	}
	m[event]++
}

// Remove drops one handler for event on n, if any.
func (s *Set) Remove(n *html.Node, event string) {
	event = strings.ToLower(event)
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.events[n]
	if !ok || m[event] == 0 {
		return
	}
	if m[event]--; m[event] == 0 {
		delete(m, event)
	}
	if len(m) == 0 {
		delete(s.events, n)
	}
}

// HasListener implements Registry.
func (s *Set) HasListener(n *html.Node, event string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.events[n][strings.ToLower(event)] > 0
}

// Len returns the number of elements with at least one handler.
func (s *Set) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.events)
}

// Events returns the events with handlers on n.
func (s *Set) Events(n *html.Node) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []string
	for event := range s.events[n] {
		out = append(out, event)
	}
	return out
}

type combined []Registry

// Combine merges registries; a handler found by any of them counts.
func Combine(registries ...Registry) Registry {
	var out combined
	for _, r := range registries {
		if r != nil {
			out = append(out, r)
		}
	}
	return out
}

func (c combined) HasListener(n *html.Node, event string) bool {
	for _, r := range c {
		if r.HasListener(n, event) {
			return true
		}
	}
	return false
}
