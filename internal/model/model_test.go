package model

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestStatusAndJobTypeSets(t *testing.T) {
	for _, s := range Statuses {
		if !s.Valid() {
			t.Errorf("%q not valid", s)
		}
	}
	for _, s := range []Status{"", "Applied", "hired"} {
		if s.Valid() {
			t.Errorf("%q reported valid", s)
		}
	}
	for _, jt := range JobTypes {
		if !jt.Valid() {
			t.Errorf("%q not valid", jt)
		}
	}
	if JobType("fulltime").Valid() {
		t.Error("fulltime reported valid")
	}
}

func TestNormalizeEmail(t *testing.T) {
	tests := map[string]string{
		"a@x.com":            "a@x.com",
		"  Alice@X.COM  ":    "alice@x.com",
		"STRASSE@Example.de": "strasse@example.de",
	}
	for in, want := range tests {
		if got := NormalizeEmail(in); got != want {
			t.Errorf("NormalizeEmail(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNewStats(t *testing.T) {
	s := NewStats(map[Status]int{StatusApplied: 3, StatusInterview: 2, StatusOffer: 1, StatusWithdrawn: 4})

	if s.TotalJobs != 10 || s.Applied != 3 || s.Interviews != 2 || s.Offers != 1 {
		t.Errorf("NewStats() = %+v", s)
	}
	if len(s.ByStatus) != len(Statuses) {
		t.Errorf("ByStatus has %d entries, want every status", len(s.ByStatus))
	}
	if s.ByStatus[StatusWithdrawn] != 4 || s.ByStatus[StatusAccepted] != 0 {
		t.Errorf("ByStatus = %v", s.ByStatus)
	}
}

func TestUserJSONHidesPasswordHash(t *testing.T) {
	out, err := json.Marshal(User{ID: 1, Username: "alice", PasswordHash: "$2a$12$secret"})
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(out), "secret") || strings.Contains(string(out), "password") {
		t.Errorf("user JSON leaks the digest: %s", out)
	}
}

func TestJobJSONRendersUnsetAsNull(t *testing.T) {
	out, err := json.Marshal(Job{ID: 1, Company: "Acme"})
	if err != nil {
		t.Fatal(err)
	}
	for _, field := range []string{`"location":null`, `"salary_min":null`, `"deadline":null`} {
		if !strings.Contains(string(out), field) {
			t.Errorf("missing %s in %s", field, out)
		}
	}
}
