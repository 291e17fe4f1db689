package phone

import (
	"errors"
	"testing"
)

func TestNormalize_EquivalentFormsCanonicalize(t *testing.T) {
	want := "+919876543210"
	inputs := []string{
		"9876543210",
		"09876543210",
		"919876543210",
		"+919876543210",
		"+91 98765 43210",
		"91-9876-543-210",
		"(0) 98765 43210",
	}
	for _, in := range inputs {
		got, err := Normalize(in)
		if err != nil {
			t.Fatalf("Normalize(%q): unexpected error %v", in, err)
		}
		if got != want {
			t.Fatalf("Normalize(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNormalize_RejectsMalformed(t *testing.T) {
	inputs := []string{
		"",
		"12345",
		"abcdefghij",
		"123456789",        // 9 digits
		"12345678901",      // 11 digits, no trunk zero
		"129876543210",     // 12 digits, wrong country code
		"9198765432100",    // 13 digits
		"00919876543210",   // 14 digits
		"not a number",
	}
	for _, in := range inputs {
		if _, err := Normalize(in); !errors.Is(err, ErrInvalidFormat) {
			t.Fatalf("Normalize(%q): expected ErrInvalidFormat, got %v", in, err)
		}
	}
}
