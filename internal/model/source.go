package model

import "time"

// Source kinds. A web_scraping source points at a partner booking page
// and is read with CSS locators; an api source returns JSON read with
// field paths; a manual source is only ever refreshed by an operator.
const (
	SourceWebScraping = "web_scraping"
	SourceAPI         = "api"
	SourceManual      = "manual"
)

// Sync frequencies. FreqManual means the scheduler never triggers the
// source automatically.
const (
	FreqHourly = "hourly"
	FreqDaily  = "daily"
	FreqWeekly = "weekly"
	FreqManual = "manual"
)

// Sync outcome values recorded on a source after each run.
const (
	SyncSuccess = "success"
	SyncError   = "error"
)

// Extraction rule names. Each rule maps a logical availability field to
// a locator interpreted by the extractor: a CSS selector for
// web_scraping sources, a dot-separated field path for api sources.
const (
	RuleAvailableSeats = "places-available"
	RuleTotalSeats     = "places-total"
	RuleDepartureDates = "departure-dates"
	RuleStatusText     = "booking-status"
	RulePrice          = "price"
)

// ExternalSource is the sync configuration attached to a circuit, at
// most one per circuit. The outcome fields (LastSyncAt, LastSyncStatus,
// LastSyncError, ConsecutiveFailures) are written exclusively by the
// sync orchestrator; everything else belongs to the operator.
type ExternalSource struct {
	ID                  uint64            // external_sources.id
	CircuitID           uint64            // external_sources.circuit_id
	DepartureID         uint64            // external_sources.departure_id
	URL                 string            // external_sources.url
	Kind                string            // external_sources.kind
	Frequency           string            // external_sources.frequency
	Rules               map[string]string // external_sources.rules (JSON)
	Active              bool              // external_sources.active
	LastSyncAt          *time.Time        // external_sources.last_sync_at (nullable)
	LastSyncStatus      *string           // external_sources.last_sync_status (nullable)
	LastSyncError       *string           // external_sources.last_sync_error (nullable)
	ConsecutiveFailures int               // external_sources.consecutive_failures
	CreatedAt           time.Time         // external_sources.created_at
	UpdatedAt           time.Time         // external_sources.updated_at
}

// Interval returns the minimum time between two scheduled syncs, or
// zero for manual sources.
func (s ExternalSource) Interval() time.Duration {
	switch s.Frequency {
	case FreqHourly:
		return time.Hour
	case FreqDaily:
		return 24 * time.Hour
	case FreqWeekly:
		return 7 * 24 * time.Hour
	}
	return 0
}

// ValidKind reports whether k is a known source kind.
func ValidKind(k string) bool {
	switch k {
	case SourceWebScraping, SourceAPI, SourceManual:
		return true
	}
	return false
}

// ValidFrequency reports whether f is a known sync frequency.
func ValidFrequency(f string) bool {
	switch f {
	case FreqHourly, FreqDaily, FreqWeekly, FreqManual:
		return true
	}
	return false
}
