// Package uuid provides unit tests for UUID generation and validation.
package uuid

import "testing"

// TestNewGeneratesValidV4 tests that generated keys match the v4 format.
func TestNewGeneratesValidV4(t *testing.T) {
	for i := 0; i < 100; i++ {
		id := New()
		if !IsValid(id) {
			t.Fatalf("Generated UUID is not valid v4: %q", id)
		}
	}
}

// TestNewIsUnique tests that generated keys do not repeat.
func TestNewIsUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := New()
		if seen[id] {
			t.Fatalf("Duplicate UUID generated: %q", id)
		}
		seen[id] = true
	}
}

// TestIsValid tests format validation.
func TestIsValid(t *testing.T) {
	cases := []struct {
		name     string
		input    string
		expected bool
	}{
		{"valid lowercase", "6ba7b810-9dad-41d1-80b4-00c04fd430c8", true},
		{"valid uppercase", "6BA7B810-9DAD-41D1-80B4-00C04FD430C8", true},
		{"empty", "", false},
		{"not a uuid", "hello-world", false},
		{"wrong version", "6ba7b810-9dad-11d1-80b4-00c04fd430c8", false},
		{"wrong variant", "6ba7b810-9dad-41d1-00b4-00c04fd430c8", false},
		{"missing segment", "6ba7b810-9dad-41d1-80b4", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsValid(tc.input); got != tc.expected {
				t.Errorf("IsValid(%q) = %v, want %v", tc.input, got, tc.expected)
			}
		})
	}
}

// TestValidate tests the error-returning form.
func TestValidate(t *testing.T) {
	if err := Validate(New()); err != nil {
		t.Errorf("Expected generated UUID to validate, got %v", err)
	}
	if err := Validate("nope"); err == nil {
		t.Error("Expected error for invalid UUID")
	}
}
