// Package routing implements an ordered route table that maps request paths
// to named actions with extracted parameters.
//
// Patterns are declared once, compiled into an immutable Table, and evaluated
// top-to-bottom: the first pattern whose structure and constraints both match
// wins, so declaration order is significant and a catch-all pattern must come
// last. Tables hold no mutable state and are safe for concurrent use.
package routing

import (
	"fmt"
	"strings"
)

// Pattern is one declarative URL template before compilation.
//
// Template segments are separated by "/". A segment is either a literal
// (matched case-insensitively) or a placeholder: "{name}" captures exactly one
// path segment, "{name?}" may be omitted from the tail of the path, in which
// case the declared default (or "") is used. Placeholder names listed in
// Digits must capture a non-empty, all-digit value or the whole pattern
// rejects and resolution falls through to the next one.
type Pattern struct {
	Name     string // unique action identifier, e.g. "Post"
	Template string
	Defaults map[string]string // values for omitted optional placeholders
	Digits   []string          // placeholder names constrained to digits
}

// Resolved is the outcome of a successful resolution: the matched pattern's
// action name plus every placeholder value (defaults filled in). It is built
// per request and discarded after dispatch.
type Resolved struct {
	Action string
	Params map[string]string
}

// Param returns the named parameter or "" if absent.
func (r Resolved) Param(name string) string {
	return r.Params[name]
}

type segment struct {
	literal  string // non-empty for literal segments
	name     string // placeholder name, empty for literals
	optional bool
	digits   bool
}

type compiled struct {
	name     string
	segments []segment
	defaults map[string]string
}

// Table is an immutable, ordered set of compiled patterns.
type Table struct {
	patterns []compiled
}

// NewTable compiles patterns in the given order. It returns an error for
// malformed templates, duplicate pattern names, or a required placeholder
// following an optional one.
func NewTable(patterns []Pattern) (*Table, error) {
	t := &Table{}
	seen := make(map[string]struct{}, len(patterns))
	for _, p := range patterns {
		if p.Name == "" {
			return nil, fmt.Errorf("routing: pattern with template %q has no name", p.Template)
		}
		if _, dup := seen[p.Name]; dup {
			return nil, fmt.Errorf("routing: duplicate pattern name %q", p.Name)
		}
		seen[p.Name] = struct{}{}
		c, err := compile(p)
		if err != nil {
			return nil, err
		}
		t.patterns = append(t.patterns, c)
	}
	return t, nil
}

// MustTable is NewTable that panics on error, for fixed tables built at startup.
func MustTable(patterns []Pattern) *Table {
	t, err := NewTable(patterns)
	if err != nil {
		panic(err)
	}
	return t
}

func compile(p Pattern) (compiled, error) {
	c := compiled{name: p.Name, defaults: p.Defaults}
	digits := make(map[string]bool, len(p.Digits))
	for _, d := range p.Digits {
		digits[d] = true
	}
	tpl := strings.Trim(p.Template, "/")
	if tpl == "" {
		return c, nil
	}
	sawOptional := false
	for _, raw := range strings.Split(tpl, "/") {
		if raw == "" {
			return compiled{}, fmt.Errorf("routing: pattern %q: empty segment in template %q", p.Name, p.Template)
		}
		if !strings.HasPrefix(raw, "{") {
			if strings.ContainsAny(raw, "{}") {
				return compiled{}, fmt.Errorf("routing: pattern %q: malformed segment %q", p.Name, raw)
			}
			if sawOptional {
				return compiled{}, fmt.Errorf("routing: pattern %q: literal %q after optional placeholder", p.Name, raw)
			}
			c.segments = append(c.segments, segment{literal: raw})
			continue
		}
		if !strings.HasSuffix(raw, "}") {
			return compiled{}, fmt.Errorf("routing: pattern %q: malformed segment %q", p.Name, raw)
		}
		name := raw[1 : len(raw)-1]
		optional := strings.HasSuffix(name, "?")
		if optional {
			name = strings.TrimSuffix(name, "?")
		}
		if name == "" {
			return compiled{}, fmt.Errorf("routing: pattern %q: empty placeholder in template %q", p.Name, p.Template)
		}
		if sawOptional && !optional {
			return compiled{}, fmt.Errorf("routing: pattern %q: required placeholder %q after optional one", p.Name, name)
		}
		sawOptional = sawOptional || optional
		c.segments = append(c.segments, segment{name: name, optional: optional, digits: digits[name]})
	}
	return c, nil
}

// Resolve matches path against the table in declaration order and returns the
// first match. The second return value reports whether any pattern matched.
// Resolution is deterministic: the same path always yields the same result.
func (t *Table) Resolve(path string) (Resolved, bool) {
	parts := splitPath(path)
	for _, p := range t.patterns {
		if r, ok := p.match(parts); ok {
			return r, true
		}
	}
	return Resolved{}, false
}

func splitPath(path string) []string {
	path = strings.Trim(path, "/")
	if path == "" {
		return nil
	}
	return strings.Split(path, "/")
}

func (c compiled) match(parts []string) (Resolved, bool) {
	if len(parts) > len(c.segments) {
		return Resolved{}, false
	}
	params := make(map[string]string)
	for i, seg := range c.segments {
		if i >= len(parts) {
			if seg.literal != "" || !seg.optional {
				return Resolved{}, false
			}
			params[seg.name] = c.defaults[seg.name]
			continue
		}
		part := parts[i]
		if seg.literal != "" {
			if !strings.EqualFold(seg.literal, part) {
				return Resolved{}, false
			}
			continue
		}
		if seg.digits && !allDigits(part) {
			return Resolved{}, false
		}
		params[seg.name] = part
	}
	return Resolved{Action: c.name, Params: params}, true
}

func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
