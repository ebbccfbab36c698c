// Package extractor converts raw fetched content into a typed
// FetchedAvailability using a source's extraction rules. Rules are pure
// configuration: a CSS selector per field for web_scraping sources, a
// dot-separated field path for api sources. An unset rule and a rule
// that matches nothing behave identically (the field stays nil); only
// content that cannot be parsed at all is an error.
package extractor

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/nomadica/circuit-sync/internal/model"
)

// excerptLen bounds how much raw content an ExtractionError carries for
// the operator log.
const excerptLen = 200

// ExtractionError indicates malformed content (unparsable HTML or
// JSON). It carries a truncated excerpt of the raw payload so the
// operator can diagnose the source without re-fetching it.
type ExtractionError struct {
	Excerpt string
	Err     error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract: %v (content: %q)", e.Err, e.Excerpt)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

func newExtractionError(raw []byte, err error) *ExtractionError {
	excerpt := string(raw)
	if len(excerpt) > excerptLen {
		excerpt = excerpt[:excerptLen]
	}
	return &ExtractionError{Excerpt: excerpt, Err: err}
}

// defaultWebLocators are used for web_scraping sources when the
// operator has not supplied custom ones. Price has no default: partner
// pages rarely label prices consistently enough to guess.
var defaultWebLocators = map[string]string{
	model.RuleAvailableSeats: ".places-available",
	model.RuleTotalSeats:     ".places-total",
	model.RuleDepartureDates: ".departure-dates",
	model.RuleStatusText:     ".booking-status",
}

// Extract parses raw content according to the source kind and rules.
// manual sources are never extracted; the scheduler does not reach this
// code for them and a human-entered value is applied directly.
func Extract(raw []byte, src *model.ExternalSource) (model.FetchedAvailability, error) {
	switch src.Kind {
	case model.SourceAPI:
		return extractJSON(raw, src.Rules)
	default:
		return extractHTML(raw, src.Rules)
	}
}

func locator(rules map[string]string, field string, useDefaults bool) string {
	if loc, ok := rules[field]; ok && loc != "" {
		return loc
	}
	if useDefaults {
		return defaultWebLocators[field]
	}
	return ""
}

func extractHTML(raw []byte, rules map[string]string) (model.FetchedAvailability, error) {
	var fa model.FetchedAvailability
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(raw))
	if err != nil {
		return fa, newExtractionError(raw, err)
	}

	text := func(field string) string {
		sel := locator(rules, field, true)
		if sel == "" {
			return ""
		}
		node := doc.Find(sel).First()
		if node.Length() == 0 {
			return ""
		}
		return strings.TrimSpace(node.Text())
	}

	fa.AvailableSeats = parseSeats(text(model.RuleAvailableSeats))
	fa.TotalSeats = parseSeats(text(model.RuleTotalSeats))
	fa.Status = parseStatus(text(model.RuleStatusText))
	fa.NextDeparture = parseDate(text(model.RuleDepartureDates))
	fa.PriceCents = parsePriceCents(text(model.RulePrice))
	return fa, nil
}

func extractJSON(raw []byte, rules map[string]string) (model.FetchedAvailability, error) {
	var fa model.FetchedAvailability
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fa, newExtractionError(raw, err)
	}

	value := func(field string) (any, bool) {
		path := locator(rules, field, false)
		if path == "" {
			return nil, false
		}
		return lookupPath(doc, path)
	}

	if v, ok := value(model.RuleAvailableSeats); ok {
		fa.AvailableSeats = asSeats(v)
	}
	if v, ok := value(model.RuleTotalSeats); ok {
		fa.TotalSeats = asSeats(v)
	}
	if v, ok := value(model.RuleStatusText); ok {
		if s, ok := v.(string); ok {
			fa.Status = parseStatus(s)
		}
	}
	if v, ok := value(model.RuleDepartureDates); ok {
		if s, ok := v.(string); ok {
			fa.NextDeparture = parseDate(s)
		}
	}
	if v, ok := value(model.RulePrice); ok {
		fa.PriceCents = asPriceCents(v)
	}
	return fa, nil
}
