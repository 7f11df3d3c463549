// Package validation checks request fields before they reach a service.
//
// Checks record a message per field into Violations; the first failure for
// a field wins. Err turns the collected violations into a single
// apperror validation error whose message is the first violation reported.
package validation

import (
	"net/mail"
	"net/url"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/sakif/job-tracker/internal/apperror"
)

// DateLayout is the calendar date format used by applied_date and deadline.
const DateLayout = "2006-01-02"

type Violations struct {
	order []string
	msgs  map[string]string
}

func New() *Violations {
	return &Violations{msgs: make(map[string]string)}
}

// Add records msg for field unless the field already failed.
func (v *Violations) Add(field, msg string) {
	if _, ok := v.msgs[field]; ok {
		return
	}
	v.order = append(v.order, field)
	v.msgs[field] = msg
}

func (v *Violations) Has(field string) bool {
	_, ok := v.msgs[field]
	return ok
}

func (v *Violations) Empty() bool { return len(v.order) == 0 }

// Map returns a copy of the per-field messages.
func (v *Violations) Map() map[string]string {
	out := make(map[string]string, len(v.msgs))
	for k, m := range v.msgs {
		out[k] = m
	}
	return out
}

// Err returns nil when nothing failed.
func (v *Violations) Err() error {
	if v.Empty() {
		return nil
	}
	return apperror.Invalid(v.msgs[v.order[0]], v.Map())
}

// Basic validators

func Required(v *Violations, field, value, msg string) {
	if strings.TrimSpace(value) == "" {
		v.Add(field, msg)
	}
}

// Length counts runes, not bytes.
func Length(v *Violations, field, value string, minLen, maxLen int, msg string) {
	n := utf8.RuneCountInString(value)
	if n < minLen || (maxLen > 0 && n > maxLen) {
		v.Add(field, msg)
	}
}

func Matches(v *Violations, field, value string, re *regexp.Regexp, msg string) {
	if !re.MatchString(value) {
		v.Add(field, msg)
	}
}

// Email accepts a bare address with a dotted domain. Display names
// ("Alice <a@x.com>") are rejected.
func Email(v *Violations, field, value, msg string) {
	addr, err := mail.ParseAddress(value)
	if err != nil || addr.Address != value || addr.Name != "" {
		v.Add(field, msg)
		return
	}
	_, domain, _ := strings.Cut(addr.Address, "@")
	if !strings.Contains(domain, ".") || strings.HasSuffix(domain, ".") {
		v.Add(field, msg)
	}
}

// URL accepts absolute http and https URLs.
func URL(v *Violations, field, value, msg string) {
	u, err := url.Parse(value)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		v.Add(field, msg)
	}
}

func OneOf[T comparable](v *Violations, field string, value T, allowed []T, msg string) {
	for _, a := range allowed {
		if value == a {
			return
		}
	}
	v.Add(field, msg)
}

func NonNegative(v *Violations, field string, n int64, msg string) {
	if n < 0 {
		v.Add(field, msg)
	}
}

func IntRange(v *Violations, field string, n, minVal, maxVal int, msg string) {
	if n < minVal || n > maxVal {
		v.Add(field, msg)
	}
}

// Date accepts a real calendar day in YYYY-MM-DD form.
func Date(v *Violations, field, value, msg string) {
	if _, err := time.Parse(DateLayout, value); err != nil {
		v.Add(field, msg)
	}
}
