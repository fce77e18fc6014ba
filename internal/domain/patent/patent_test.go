package patent

import (
	"reflect"
	"testing"
)

func TestNew(t *testing.T) {
	d, err := New(" JP-2020123456-A ", "jp", []string{"H04L 9/00", "G06K7/14", "H04L9/00"}, []string{"5K067"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.PublicationNumber() != "JP-2020123456-A" {
		t.Errorf("PublicationNumber() = %q", d.PublicationNumber())
	}
	if d.CountryCode() != "JP" {
		t.Errorf("CountryCode() = %q", d.CountryCode())
	}
	if want := []string{"G06K7/14", "H04L9/00"}; !reflect.DeepEqual(d.ClassificationCodes(), want) {
		t.Errorf("ClassificationCodes() = %v, want %v", d.ClassificationCodes(), want)
	}
	if want := []string{"G06K7/14", "H04L9/00", "5K067"}; !reflect.DeepEqual(d.Tags(), want) {
		t.Errorf("Tags() = %v, want %v", d.Tags(), want)
	}
}

func TestNew_DefaultCountry(t *testing.T) {
	d, err := New("X", "", nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.CountryCode() != DefaultCountry {
		t.Errorf("CountryCode() = %q", d.CountryCode())
	}
	if len(d.Tags()) != 0 {
		t.Errorf("Tags() = %v, want empty", d.Tags())
	}
}

func TestNew_RequiresPublicationNumber(t *testing.T) {
	if _, err := New("  ", "JP", nil, nil); err == nil {
		t.Fatal("expected error")
	}
}

func TestWithClaims(t *testing.T) {
	d, err := New("JP-1-A", "JP", []string{"B41J2/14"}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	c := d.WithClaims("  1. A print head.\n")
	if c.Claims() != "1. A print head." {
		t.Errorf("Claims() = %q", c.Claims())
	}
	if d.Claims() != "" {
		t.Error("WithClaims must not modify the original")
	}
	if !reflect.DeepEqual(c.Tags(), d.Tags()) {
		t.Errorf("Tags() = %v, want %v", c.Tags(), d.Tags())
	}
}
