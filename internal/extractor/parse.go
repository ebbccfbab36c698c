package extractor

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/nomadica/circuit-sync/internal/model"
)

// Text parsing helpers. Partner pages wrap the interesting values in
// arbitrary prose ("Plus que 4 places !", "12 / 16 seats"), so each
// helper pulls the value out of free text and returns nil when nothing
// usable is present. An unparsable text is treated exactly like a
// missing one.

// parseSeats returns the first non-negative integer found in s.
func parseSeats(s string) *int {
	if s == "" {
		return nil
	}
	start := -1
	for i, r := range s {
		if r >= '0' && r <= '9' {
			if start == -1 {
				start = i
			}
			continue
		}
		if start != -1 {
			n, err := strconv.Atoi(s[start:i])
			if err != nil {
				return nil
			}
			return &n
		}
	}
	if start == -1 {
		return nil
	}
	n, err := strconv.Atoi(s[start:])
	if err != nil {
		return nil
	}
	return &n
}

// statusKeywords maps text fragments to departure statuses, checked in
// order. Cancelled is matched before closed so that "annulé / fermé à
// la vente" resolves to cancelled. French fragments are first-class:
// the partner pages this engine watches are mostly French.
var statusKeywords = []struct {
	fragment string
	status   string
}{
	{"cancel", model.DepartureCancelled},
	{"annul", model.DepartureCancelled},
	{"complet", model.DepartureFull},
	{"full", model.DepartureFull},
	{"sold out", model.DepartureFull},
	{"unavailable", model.DepartureClosed},
	{"indispo", model.DepartureClosed},
	{"closed", model.DepartureClosed},
	{"ferm", model.DepartureClosed},
	{"clos", model.DepartureClosed},
	{"open", model.DepartureOpen},
	{"ouvert", model.DepartureOpen},
	{"dispo", model.DepartureOpen},
	{"available", model.DepartureOpen},
	{"garanti", model.DepartureOpen},
}

// parseStatus normalizes free status text to the departure status enum.
func parseStatus(s string) *string {
	if s == "" {
		return nil
	}
	lower := strings.ToLower(s)
	for _, kw := range statusKeywords {
		if strings.Contains(lower, kw.fragment) {
			st := kw.status
			return &st
		}
	}
	return nil
}

// parsePriceCents extracts the first decimal amount from s and rounds
// it to cents. Thousands separators (space, non-breaking space) are
// stripped; a comma decimal mark is accepted.
func parsePriceCents(s string) *uint32 {
	if s == "" {
		return nil
	}
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case ' ', ' ', ' ':
			return -1
		}
		return r
	}, s)

	start := -1
	end := len(cleaned)
	for i, r := range cleaned {
		isNum := (r >= '0' && r <= '9') || r == '.' || r == ','
		if isNum && start == -1 {
			start = i
		}
		if !isNum && start != -1 {
			end = i
			break
		}
	}
	if start == -1 {
		return nil
	}
	token := strings.ReplaceAll(cleaned[start:end], ",", ".")
	// "1.234.56" style artifacts: keep only the last dot as decimal mark.
	if n := strings.Count(token, "."); n > 1 {
		last := strings.LastIndex(token, ".")
		token = strings.ReplaceAll(token[:last], ".", "") + token[last:]
	}
	f, err := strconv.ParseFloat(token, 64)
	if err != nil || f < 0 {
		return nil
	}
	cents := uint32(math.Round(f * 100))
	return &cents
}

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02",
	"02/01/2006",
	"02.01.2006",
}

// parseDate tries the date layouts seen on partner pages and APIs. When
// the text carries several dates (a departure list), the first one wins.
func parseDate(s string) *time.Time {
	if s == "" {
		return nil
	}
	fields := strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ';' || r == ' ' || r == '\n' })
	for _, f := range fields {
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, f); err == nil {
				return &t
			}
		}
	}
	return nil
}

// JSON helpers for api sources.

// lookupPath walks a decoded JSON document along a dot-separated path.
// Numeric path segments index into arrays.
func lookupPath(doc any, path string) (any, bool) {
	cur := doc
	for _, seg := range strings.Split(path, ".") {
		switch node := cur.(type) {
		case map[string]any:
			v, ok := node[seg]
			if !ok {
				return nil, false
			}
			cur = v
		case []any:
			idx, err := strconv.Atoi(seg)
			if err != nil || idx < 0 || idx >= len(node) {
				return nil, false
			}
			cur = node[idx]
		default:
			return nil, false
		}
	}
	return cur, true
}

// asSeats converts a JSON leaf to a seat count. Whole-number floats and
// numeric strings are accepted; anything else is nil.
func asSeats(v any) *int {
	switch n := v.(type) {
	case float64:
		if n < 0 || n != math.Trunc(n) {
			return nil
		}
		i := int(n)
		return &i
	case string:
		return parseSeats(n)
	}
	return nil
}

// asPriceCents converts a JSON leaf to cents. Numbers are interpreted
// as major currency units.
func asPriceCents(v any) *uint32 {
	switch n := v.(type) {
	case float64:
		if n < 0 {
			return nil
		}
		cents := uint32(math.Round(n * 100))
		return &cents
	case string:
		return parsePriceCents(n)
	}
	return nil
}
