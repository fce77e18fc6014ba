// Package predicate derives the classification-prefix filter that bounds the
// candidate set of a similarity query.
package predicate

import (
	"fmt"
	"sort"
	"strings"

	"github.com/kailas-cloud/patsim/internal/domain"
)

// DefaultPrefixLen is the default prefix coarseness (CPC section + class digit).
const DefaultPrefixLen = 2

// Predicate matches a candidate when any of its tags starts with any prefix.
// The zero value is empty and matches nothing.
type Predicate struct {
	prefixLen int
	prefixes  map[string]struct{}
}

// Derive builds a Predicate from the reference document's tags.
// Tags shorter than prefixLen are skipped. If no tag can contribute a prefix,
// the empty predicate is returned with domain.ErrEmptyPredicate.
func Derive(tags []string, prefixLen int) (Predicate, error) {
	if prefixLen < 1 {
		return Predicate{}, fmt.Errorf("%w: %d", domain.ErrInvalidPrefixLength, prefixLen)
	}

	p := Predicate{prefixLen: prefixLen, prefixes: make(map[string]struct{})}
	for _, tag := range tags {
		if prefix, ok := prefixOf(strings.TrimSpace(tag), prefixLen); ok {
			p.prefixes[prefix] = struct{}{}
		}
	}
	if len(p.prefixes) == 0 {
		return p, domain.ErrEmptyPredicate
	}
	return p, nil
}

// FromPrefixes rebuilds a Predicate from already derived prefixes.
// Prefixes whose length differs from prefixLen are rejected.
func FromPrefixes(prefixes []string, prefixLen int) (Predicate, error) {
	if prefixLen < 1 {
		return Predicate{}, fmt.Errorf("%w: %d", domain.ErrInvalidPrefixLength, prefixLen)
	}
	p := Predicate{prefixLen: prefixLen, prefixes: make(map[string]struct{}, len(prefixes))}
	for _, s := range prefixes {
		if len([]rune(s)) != prefixLen {
			return Predicate{}, fmt.Errorf("prefix %q does not have length %d", s, prefixLen)
		}
		p.prefixes[s] = struct{}{}
	}
	return p, nil
}

// IsEmpty reports whether the predicate has no prefixes.
func (p Predicate) IsEmpty() bool { return len(p.prefixes) == 0 }

// PrefixLen returns the prefix length used at derivation.
func (p Predicate) PrefixLen() int { return p.prefixLen }

// Len returns the number of distinct prefixes.
func (p Predicate) Len() int { return len(p.prefixes) }

// Prefixes returns the prefixes in ascending order.
func (p Predicate) Prefixes() []string {
	out := make([]string, 0, len(p.prefixes))
	for s := range p.prefixes {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// Contains reports whether prefix is part of the predicate.
func (p Predicate) Contains(prefix string) bool {
	_, ok := p.prefixes[prefix]
	return ok
}

// Matches reports whether any tag starts with any prefix of the predicate.
func (p Predicate) Matches(tags []string) bool {
	if len(p.prefixes) == 0 {
		return false
	}
	for _, tag := range tags {
		if prefix, ok := prefixOf(strings.TrimSpace(tag), p.prefixLen); ok {
			if _, hit := p.prefixes[prefix]; hit {
				return true
			}
		}
	}
	return false
}

// prefixOf returns the first n runes of tag, or false if tag is shorter.
func prefixOf(tag string, n int) (string, bool) {
	count := 0
	for i := range tag {
		if count == n {
			return tag[:i], true
		}
		count++
	}
	if count == n {
		return tag, true
	}
	return "", false
}
