package main

import (
	"strings"

	"github.com/gholt/theo2012/storeerr"
	"github.com/gholt/theo2012/theo2"
	"github.com/gholt/theo2012/value"
)

// parseLocation parses the CLI/REPL location wire form
// <a, b, =c, d> -- angle brackets wrap a location, comma-separated
// elements. An element beginning with '<' is a nested Pointer (itself a
// location). An element beginning with '=' is an ElementRef whose literal
// value follows. Every other token is a slot name; the first token is
// always the primitive-entity name.
func parseLocation(s string, store *theo2.Store) (value.Location, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "<") || !strings.HasSuffix(s, ">") {
		return value.Location{}, storeerr.Usagef("theokb.parseLocation", s, "location must be wrapped in < >")
	}
	tokens, err := splitTopLevel(s[1 : len(s)-1])
	if err != nil {
		return value.Location{}, err
	}
	if len(tokens) == 0 {
		return value.Location{}, storeerr.Usagef("theokb.parseLocation", s, "location must name an entity")
	}
	entity := strings.TrimSpace(tokens[0])
	var path []value.LocElem
	for _, tok := range tokens[1:] {
		tok = strings.TrimSpace(tok)
		elem, err := parseElem(tok, store)
		if err != nil {
			return value.Location{}, err
		}
		path = append(path, elem)
	}
	return value.NewLocation(entity, path...), nil
}

func parseElem(tok string, store *theo2.Store) (value.LocElem, error) {
	switch {
	case strings.HasPrefix(tok, "<"):
		loc, err := parseLocation(tok, store)
		if err != nil {
			return value.LocElem{}, err
		}
		return value.Ref(value.Pointer(loc)), nil
	case strings.HasPrefix(tok, "="):
		return value.Ref(store.ValueFromString(strings.TrimSpace(tok[1:]))), nil
	default:
		return value.Slot(tok), nil
	}
}

// splitTopLevel splits s on commas that are not nested inside a <...>
// pair, so a nested Pointer location's own commas are not mistaken for
// element separators.
func splitTopLevel(s string) ([]string, error) {
	var out []string
	depth := 0
	start := 0
	for i, r := range s {
		switch r {
		case '<':
			depth++
		case '>':
			depth--
			if depth < 0 {
				return nil, storeerr.Usagef("theokb.parseLocation", s, "unbalanced angle brackets")
			}
		case ',':
			if depth == 0 {
				out = append(out, s[start:i])
				start = i + 1
			}
		}
	}
	if depth != 0 {
		return nil, storeerr.Usagef("theokb.parseLocation", s, "unbalanced angle brackets")
	}
	out = append(out, s[start:])
	return out, nil
}
