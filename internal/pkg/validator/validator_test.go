package validator

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestIsEmpty(t *testing.T) {
	cases := []struct {
		input string
		want  bool
	}{
		{"", true},
		{"   ", true},
		{"abc", false},
		{" abc ", false},
	}
	for _, c := range cases {
		got := IsEmpty(c.input)
		if got != c.want {
			t.Errorf("IsEmpty(%q) = %v, want %v", c.input, got, c.want)
		}
	}
}

func TestIsValidUUID(t *testing.T) {
	valid := []string{
		"0188d0f2-7b8c-7b4a-8a2b-6b8b8b8b8b8b", // valid UUIDv7
		"0188D0F2-7B8C-7B4A-8A2B-6B8B8B8B8B8B", // valid UUIDv7 (uppercase)
	}
	invalid := []string{
		"123e4567-e89b-12d3-a456-426614174000", // not v7
		"0188d0f27b8c7b4a8a2b6b8b8b8b8b8b",     // missing dashes
		"g188d0f2-7b8c-7b4a-8a2b-6b8b8b8b8b8b", // invalid hex
		"",                                     // empty
	}
	for _, uuid := range valid {
		if !IsValidUUID(uuid) {
			t.Errorf("IsValidUUID(%q) = false, want true", uuid)
		}
	}
	for _, uuid := range invalid {
		if IsValidUUID(uuid) {
			t.Errorf("IsValidUUID(%q) = true, want false", uuid)
		}
	}
}

func TestIsFraction(t *testing.T) {
	valid := []string{"0", "0.18", "0.0025", "1"}
	invalid := []string{"-0.01", "1.0001", "18"}
	for _, s := range valid {
		if !IsFraction(decimal.RequireFromString(s)) {
			t.Errorf("IsFraction(%s) = false, want true", s)
		}
	}
	for _, s := range invalid {
		if IsFraction(decimal.RequireFromString(s)) {
			t.Errorf("IsFraction(%s) = true, want false", s)
		}
	}
}

func TestIsNonNegative(t *testing.T) {
	if !IsNonNegative(decimal.Zero) {
		t.Errorf("IsNonNegative(0) = false, want true")
	}
	if IsNonNegative(decimal.NewFromInt(-1)) {
		t.Errorf("IsNonNegative(-1) = true, want false")
	}
}

func TestIsInSlice(t *testing.T) {
	slice := []string{"approved", "paid"}
	if !IsInSlice("paid", slice) {
		t.Errorf("IsInSlice(paid) = false, want true")
	}
	if IsInSlice("calculated", slice) {
		t.Errorf("IsInSlice(calculated) = true, want false")
	}
}

func TestValidationErrors(t *testing.T) {
	errs := ValidationErrors{
		{Field: "periodKey", Message: "is required"},
		{Field: "force", Message: "requires recalculateExisting"},
	}
	if got, want := errs.Error(), "periodKey: is required; force: requires recalculateExisting"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	m := errs.ToMap()
	if m["periodKey"] != "is required" {
		t.Errorf("ToMap()[periodKey] = %q", m["periodKey"])
	}
	if !errs.Has("force") || errs.Has("status") {
		t.Errorf("Has() returned unexpected result")
	}
}
