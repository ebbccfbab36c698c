package extractor

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/nomadica/circuit-sync/internal/model"
)

func webSource(rules map[string]string) *model.ExternalSource {
	return &model.ExternalSource{Kind: model.SourceWebScraping, Rules: rules}
}

func apiSource(rules map[string]string) *model.ExternalSource {
	return &model.ExternalSource{Kind: model.SourceAPI, Rules: rules}
}

func TestExtractHTMLWithDefaultLocators(t *testing.T) {
	page := `<html><body>
		<div class="places-available">Plus que 4 places !</div>
		<div class="places-total">16 places au total</div>
		<div class="booking-status">Départ garanti</div>
		<div class="departure-dates">15/06/2026, 22/06/2026</div>
	</body></html>`

	fa, err := Extract([]byte(page), webSource(nil))
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if fa.AvailableSeats == nil || *fa.AvailableSeats != 4 {
		t.Fatalf("available: %v", fa.AvailableSeats)
	}
	if fa.TotalSeats == nil || *fa.TotalSeats != 16 {
		t.Fatalf("total: %v", fa.TotalSeats)
	}
	if fa.Status == nil || *fa.Status != model.DepartureOpen {
		t.Fatalf("status: %v", fa.Status)
	}
	if fa.NextDeparture == nil || !fa.NextDeparture.Equal(time.Date(2026, 6, 15, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("next departure: %v", fa.NextDeparture)
	}
	if fa.PriceCents != nil {
		t.Fatalf("price has no default locator, got %v", fa.PriceCents)
	}
}

func TestExtractHTMLWithCustomLocators(t *testing.T) {
	page := `<html><body>
		<span id="seats">12 / 16</span>
		<span id="price">1 234,50 €</span>
	</body></html>`
	rules := map[string]string{
		model.RuleAvailableSeats: "#seats",
		model.RulePrice:          "#price",
	}

	fa, err := Extract([]byte(page), webSource(rules))
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if fa.AvailableSeats == nil || *fa.AvailableSeats != 12 {
		t.Fatalf("available: %v", fa.AvailableSeats)
	}
	if fa.PriceCents == nil || *fa.PriceCents != 123450 {
		t.Fatalf("price: %v", fa.PriceCents)
	}
}

func TestExtractHTMLMissingElementsStayNil(t *testing.T) {
	fa, err := Extract([]byte("<html><body><p>nothing here</p></body></html>"), webSource(nil))
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if fa.AvailableSeats != nil || fa.TotalSeats != nil || fa.Status != nil || fa.PriceCents != nil {
		t.Fatalf("missing elements produced values: %+v", fa)
	}
}

func TestExtractJSONPaths(t *testing.T) {
	body := `{"data":{"departures":[{"seats_left":3,"capacity":"20 seats","status":"sold out","price":1250.5}]}}`
	rules := map[string]string{
		model.RuleAvailableSeats: "data.departures.0.seats_left",
		model.RuleTotalSeats:     "data.departures.0.capacity",
		model.RuleStatusText:     "data.departures.0.status",
		model.RulePrice:          "data.departures.0.price",
	}

	fa, err := Extract([]byte(body), apiSource(rules))
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if fa.AvailableSeats == nil || *fa.AvailableSeats != 3 {
		t.Fatalf("available: %v", fa.AvailableSeats)
	}
	if fa.TotalSeats == nil || *fa.TotalSeats != 20 {
		t.Fatalf("total: %v", fa.TotalSeats)
	}
	if fa.Status == nil || *fa.Status != model.DepartureFull {
		t.Fatalf("status: %v", fa.Status)
	}
	if fa.PriceCents == nil || *fa.PriceCents != 125050 {
		t.Fatalf("price: %v", fa.PriceCents)
	}
}

func TestExtractJSONMissingPathStaysNil(t *testing.T) {
	rules := map[string]string{model.RuleAvailableSeats: "data.nope.seats"}
	fa, err := Extract([]byte(`{"data":{}}`), apiSource(rules))
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if fa.AvailableSeats != nil {
		t.Fatalf("missing path produced a value: %v", fa.AvailableSeats)
	}
}

func TestExtractJSONMalformed(t *testing.T) {
	_, err := Extract([]byte(`{"data": oops`), apiSource(nil))
	var ee *ExtractionError
	if !errors.As(err, &ee) {
		t.Fatalf("want ExtractionError, got %v", err)
	}
	if !strings.Contains(ee.Excerpt, "oops") {
		t.Fatalf("excerpt should carry the payload: %q", ee.Excerpt)
	}
}

func TestParseStatusKeywords(t *testing.T) {
	cases := []struct {
		text string
		want string
	}{
		{"Départ garanti", model.DepartureOpen},
		{"Places disponibles", model.DepartureOpen},
		{"Complet", model.DepartureFull},
		{"Sold out", model.DepartureFull},
		{"Annulé", model.DepartureCancelled},
		{"Cancelled by operator", model.DepartureCancelled},
		{"Fermé à la vente", model.DepartureClosed},
		{"Indisponible", model.DepartureClosed},
		{"Currently unavailable", model.DepartureClosed},
		{"Annulé / fermé à la vente", model.DepartureCancelled},
	}
	for _, tc := range cases {
		got := parseStatus(tc.text)
		if got == nil || *got != tc.want {
			t.Errorf("parseStatus(%q) = %v, want %q", tc.text, got, tc.want)
		}
	}
	if got := parseStatus("lorem ipsum"); got != nil {
		t.Errorf("unrecognized text should be nil, got %q", *got)
	}
}

func TestParsePriceCents(t *testing.T) {
	cases := []struct {
		text string
		want uint32
	}{
		{"1200", 120000},
		{"1 234,50 €", 123450},
		{"From $999.99", 99999},
		{"1.234.56", 123456},
	}
	for _, tc := range cases {
		got := parsePriceCents(tc.text)
		if got == nil || *got != tc.want {
			t.Errorf("parsePriceCents(%q) = %v, want %d", tc.text, got, tc.want)
		}
	}
	if got := parsePriceCents("call us"); got != nil {
		t.Errorf("no amount should be nil, got %d", *got)
	}
}

func TestParseDateLayouts(t *testing.T) {
	cases := []string{"2026-06-15", "15/06/2026", "15.06.2026", "2026-06-15T08:00:00Z"}
	want := time.Date(2026, 6, 15, 0, 0, 0, 0, time.UTC)
	for _, s := range cases {
		got := parseDate(s)
		if got == nil {
			t.Errorf("parseDate(%q) = nil", s)
			continue
		}
		if got.Year() != want.Year() || got.Month() != want.Month() || got.Day() != want.Day() {
			t.Errorf("parseDate(%q) = %v", s, got)
		}
	}
	if got := parseDate("next summer"); got != nil {
		t.Errorf("unparsable date should be nil, got %v", got)
	}
}
