// internal/listener/probe.go
package listener

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
)

// Action is a mouse interaction a control finder may want to perform.
type Action int

const (
	Click Action = iota
	DoubleClick
	RightClick
	MouseOver
)

var actionEvents = map[Action][]string{
	Click:       {"click", "mousedown", "mouseup"},
	DoubleClick: {"dblclick", "click", "mousedown", "mouseup"},
	RightClick:  {"contextmenu", "mousedown", "mouseup"},
	MouseOver:   {"mouseover", "mousemove", "mouseout"},
}

// Events returns the DOM events that reveal a handler for the action.
func (a Action) Events() []string {
	return append([]string(nil), actionEvents[a]...)
}

func (a Action) String() string {
	switch a {
	case Click:
		return "click"
	case DoubleClick:
		return "double-click"
	case RightClick:
		return "right-click"
	case MouseOver:
		return "mouse-over"
	}
	return fmt.Sprintf("Action(%d)", int(a))
}

// Actions lists every supported action.
func Actions() []Action {
	return []Action{Click, DoubleClick, RightClick, MouseOver}
}

// ParseAction maps a name such as "click" or "double-click" to an Action.
func ParseAction(name string) (Action, error) {
	for _, a := range Actions() {
		if strings.EqualFold(a.String(), name) {
			return a, nil
		}
	}
	return 0, fmt.Errorf("unknown mouse action '%s'", name)
}

// Probe decides whether an element reacts to a mouse action through a handler
// on itself or an ancestor.
type Probe struct {
	reg Registry
}

// NewProbe creates a probe over the given registry. A nil registry only sees
// static on* attributes.
func NewProbe(reg Registry) *Probe {
	if reg == nil {
		reg = Attributes{}
	}
	return &Probe{reg: reg}
}

// HasMouseActionListener reports whether n or one of its ancestors below
// <body> handles the action. Buttons and links with an href are natively
// clickable: they report false for themselves, and every element inside them
// reports true.
func (p *Probe) HasMouseActionListener(action Action, n *html.Node) bool {
	if n == nil || n.Type != html.ElementNode || natives(n) {
		return false
	}
	events := actionEvents[action]
	for e := n; e != nil && e.Type == html.ElementNode; e = e.Parent {
		switch strings.ToLower(e.Data) {
		case "body", "html":
			return false
		}
		if e != n && natives(e) {
			return true
		}
		for _, event := range events {
			if p.reg.HasListener(e, event) {
				return true
			}
		}
	}
	return false
}

// natives reports elements the browser makes clickable without any handler.
func natives(n *html.Node) bool {
	switch tag := strings.ToLower(n.Data); tag {
	case "button":
		return true
	case "a":
		for _, a := range n.Attr {
			if a.Namespace == "" && strings.EqualFold(a.Key, "href") {
				return true
			}
		}
	}
	return false
}
