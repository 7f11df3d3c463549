package validation

import (
	"errors"
	"regexp"
	"testing"

	"github.com/sakif/job-tracker/internal/apperror"
)

func TestViolations_FirstFailureWins(t *testing.T) {
	v := New()
	v.Add("email", "first")
	v.Add("email", "second")
	v.Add("password", "too short")

	if got := v.Map()["email"]; got != "first" {
		t.Errorf("email = %q, want %q", got, "first")
	}

	err := v.Err()
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) || !errors.Is(err, apperror.ErrValidation) {
		t.Fatalf("Err() = %v, want validation AppError", err)
	}
	if appErr.Message != "first" {
		t.Errorf("Message = %q, want the first violation", appErr.Message)
	}
	if len(appErr.Details) != 2 {
		t.Errorf("Details = %v, want 2 entries", appErr.Details)
	}
}

func TestViolations_EmptyIsNil(t *testing.T) {
	if err := New().Err(); err != nil {
		t.Errorf("Err() = %v, want nil", err)
	}
}

func TestEmail(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"a@x.com", true},
		{"first.last+tag@sub.example.org", true},
		{"", false},
		{"plain", false},
		{"a@x", false},
		{"a@x.", false},
		{"Alice <a@x.com>", false},
		{" a@x.com", false},
	}
	for _, tt := range tests {
		v := New()
		Email(v, "email", tt.in, "bad")
		if v.Empty() != tt.want {
			t.Errorf("Email(%q) valid = %v, want %v", tt.in, v.Empty(), tt.want)
		}
	}
}

func TestURL(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"https://acme.example/jobs/1", true},
		{"http://acme.example", true},
		{"ftp://acme.example", false},
		{"acme.example/jobs", false},
		{"https://", false},
		{"not a url", false},
	}
	for _, tt := range tests {
		v := New()
		URL(v, "url", tt.in, "bad")
		if v.Empty() != tt.want {
			t.Errorf("URL(%q) valid = %v, want %v", tt.in, v.Empty(), tt.want)
		}
	}
}

func TestDate(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"2026-03-01", true},
		{"2024-02-29", true},
		{"2026-02-30", false},
		{"2026-3-1", false},
		{"01/03/2026", false},
		{"2026-03-01T10:00:00Z", false},
	}
	for _, tt := range tests {
		v := New()
		Date(v, "applied_date", tt.in, "bad")
		if v.Empty() != tt.want {
			t.Errorf("Date(%q) valid = %v, want %v", tt.in, v.Empty(), tt.want)
		}
	}
}

func TestLengthCountsRunes(t *testing.T) {
	v := New()
	Length(v, "company", "Café", 1, 4, "too long")
	if !v.Empty() {
		t.Errorf("4-rune string rejected: %v", v.Map())
	}

	Length(v, "position", "", 1, 0, "required")
	if !v.Has("position") {
		t.Error("empty string passed a minimum of 1")
	}
}

func TestOneOfAndMatches(t *testing.T) {
	v := New()
	OneOf(v, "status", "applied", []string{"applied", "offer"}, "bad status")
	Matches(v, "username", "alice_1", regexp.MustCompile(`^[A-Za-z0-9_]+$`), "bad name")
	if !v.Empty() {
		t.Fatalf("valid input rejected: %v", v.Map())
	}

	OneOf(v, "status", "hired", []string{"applied", "offer"}, "bad status")
	Matches(v, "username", "alice!", regexp.MustCompile(`^[A-Za-z0-9_]+$`), "bad name")
	NonNegative(v, "salary_min", -1, "negative")
	IntRange(v, "limit", 101, 1, 100, "range")
	for _, f := range []string{"status", "username", "salary_min", "limit"} {
		if !v.Has(f) {
			t.Errorf("%s not reported", f)
		}
	}
}
