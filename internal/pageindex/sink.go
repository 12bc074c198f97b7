// internal/pageindex/sink.go
package pageindex

import (
	"unicode"
	"unicode/utf8"
)

// Span is a half-open byte range into a rendered text.
type Span struct {
	Start int
	End   int
}

// Len returns the width of the span.
func (s Span) Len() int { return s.End - s.Start }

// floater is an empty element whose zero-width span still moves forward with
// the next written character, as long as its parent stays open.
type floater struct {
	id    int
	depth int
}

// sink accumulates one variant of the rendered text. Whitespace is collapsed
// to single spaces and separators are only materialised in front of the next
// visible character, so the result never starts or ends with a space.
//
// Element spans are resolved lazily: an element starts at the first character
// it actually writes. Elements that write nothing float to the next written
// character while their parent is open, which keeps every span inside the
// spans of its ancestors.
type sink struct {
	buf        []byte
	pending    bool
	spans      []Span
	unresolved []int
	floating   []floater
}

func newSink() *sink {
	return &sink{}
}

// open registers element id, which must be the next unused id.
func (s *sink) open(id int) {
	for len(s.spans) <= id {
		s.spans = append(s.spans, Span{Start: -1, End: -1})
	}
	s.unresolved = append(s.unresolved, id)
}

// close finishes element id at the given tree depth. An element that wrote
// nothing keeps floating together with its floating descendants; otherwise
// the descendants are pinned where they are.
func (s *sink) close(id, depth int) {
	pos := len(s.buf)
	if n := len(s.unresolved); n > 0 && s.unresolved[n-1] == id {
		s.unresolved = s.unresolved[:n-1]
		s.spans[id] = Span{Start: pos, End: pos}
		s.floating = append(s.floating, floater{id: id, depth: depth})
		return
	}
	for len(s.floating) > 0 && s.floating[len(s.floating)-1].depth > depth {
		s.floating = s.floating[:len(s.floating)-1]
	}
	s.spans[id].End = pos
}

// empty reports whether element id has not written anything yet.
func (s *sink) empty(id int) bool {
	return id < len(s.spans) && s.spans[id].Start < 0
}

// separate requests a single space before the next visible character.
func (s *sink) separate() {
	if len(s.buf) > 0 {
		s.pending = true
	}
}

// write appends text, collapsing every whitespace run into one separator.
func (s *sink) write(text string) {
	for i := 0; i < len(text); {
		r, size := utf8.DecodeRuneInString(text[i:])
		if unicode.IsSpace(r) {
			s.separate()
		} else {
			s.writeRune(text[i : i+size])
		}
		i += size
	}
}

func (s *sink) writeRune(encoded string) {
	if s.pending {
		s.buf = append(s.buf, ' ')
		s.pending = false
	}
	pos := len(s.buf)
	for _, id := range s.unresolved {
		s.spans[id].Start = pos
	}
	s.unresolved = s.unresolved[:0]
	for _, f := range s.floating {
		s.spans[f.id] = Span{Start: pos, End: pos}
	}
	s.floating = s.floating[:0]
	s.buf = append(s.buf, encoded...)
}

func (s *sink) String() string {
	return string(s.buf)
}
