package predicate

import (
	"errors"
	"reflect"
	"testing"

	"github.com/kailas-cloud/patsim/internal/domain"
)

func TestDerive(t *testing.T) {
	tests := []struct {
		name      string
		tags      []string
		prefixLen int
		want      []string
		wantErr   error
	}{
		{"classification codes", []string{"H04L9/00", "G06K7/14"}, 2, []string{"G0", "H0"}, nil},
		{"deduplicates", []string{"H04L9/00", "H04W12/06", "H01M"}, 2, []string{"H0"}, nil},
		{"short tag excluded", []string{"H", "G06K7/14"}, 2, []string{"G0"}, nil},
		{"only short tags", []string{"H"}, 2, []string{}, domain.ErrEmptyPredicate},
		{"no tags", nil, 2, []string{}, domain.ErrEmptyPredicate},
		{"blank tags ignored", []string{"  ", ""}, 1, []string{}, domain.ErrEmptyPredicate},
		{"exact length tag", []string{"H0"}, 2, []string{"H0"}, nil},
		{"longer prefix", []string{"H04L9/00"}, 4, []string{"H04L"}, nil},
		{"trims whitespace", []string{" B41J2/14 "}, 3, []string{"B41"}, nil},
		{"numeric theme code", []string{"5C0841"}, 2, []string{"5C"}, nil},
		{"f-term multibyte", []string{"ｆ項目"}, 2, []string{"ｆ項"}, nil},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p, err := Derive(tc.tags, tc.prefixLen)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("err = %v, want %v", err, tc.wantErr)
			}
			if got := p.Prefixes(); !reflect.DeepEqual(got, tc.want) {
				t.Errorf("Prefixes() = %v, want %v", got, tc.want)
			}
			if p.IsEmpty() != (len(tc.want) == 0) {
				t.Errorf("IsEmpty() = %v", p.IsEmpty())
			}
		})
	}
}

func TestDerive_InvalidPrefixLen(t *testing.T) {
	for _, n := range []int{0, -1} {
		if _, err := Derive([]string{"H04L"}, n); !errors.Is(err, domain.ErrInvalidPrefixLength) {
			t.Errorf("Derive(_, %d) err = %v", n, err)
		}
	}
}

func TestDerive_OrderIndependent(t *testing.T) {
	a, _ := Derive([]string{"H04L9/00", "G06K7/14", "A61B5/00"}, 2)
	b, _ := Derive([]string{"A61B5/00", "H04L9/00", "G06K7/14"}, 2)
	if !reflect.DeepEqual(a.Prefixes(), b.Prefixes()) {
		t.Errorf("%v != %v", a.Prefixes(), b.Prefixes())
	}
}

func TestMatches(t *testing.T) {
	p, err := Derive([]string{"H04L9/00", "G06K7/14"}, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tests := []struct {
		tags []string
		want bool
	}{
		{[]string{"H01M10/05"}, true},
		{[]string{"A61B5/00", "G06F3/01"}, true},
		{[]string{"A61B5/00"}, false},
		{[]string{"H"}, false},
		{nil, false},
	}
	for _, tc := range tests {
		if got := p.Matches(tc.tags); got != tc.want {
			t.Errorf("Matches(%v) = %v, want %v", tc.tags, got, tc.want)
		}
	}
}

func TestMatches_EmptyPredicateMatchesNothing(t *testing.T) {
	var p Predicate
	if p.Matches([]string{"H04L"}) {
		t.Error("empty predicate must not match")
	}
}

func TestFromPrefixes(t *testing.T) {
	p, err := FromPrefixes([]string{"H0", "G0", "H0"}, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Len() != 2 || !p.Contains("G0") {
		t.Errorf("unexpected predicate: %v", p.Prefixes())
	}
	if _, err := FromPrefixes([]string{"H04"}, 2); err == nil {
		t.Error("expected length mismatch error")
	}
}
