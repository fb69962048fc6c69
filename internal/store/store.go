// Package store provides read-only access to the fixture catalog.
//
// The catalog is an externally-owned PostgreSQL table populated by the
// ingest side of the platform. This package only queries it; it never
// writes. All fuzzy ranking (pg_trgm similarity) happens in the database,
// callers just consume the ordering.
package store

import (
	"context"
	"fmt"
	"time"
)

// FixtureRecord is one scheduled or completed match from the catalog.
type FixtureRecord struct {
	// FixtureID is the stable catalog identifier. It is the only handle
	// downstream tools accept.
	FixtureID int64 `json:"fixture_id"`

	// LeagueName is the competition the fixture belongs to.
	LeagueName string `json:"league_name"`

	// TeamsVS is the canonical "Home vs Away" label used as the fuzzy
	// match key.
	TeamsVS string `json:"teams_vs"`

	// FixtureDate is the scheduled kickoff, timezone-aware.
	FixtureDate time.Time `json:"fixture_date"`

	// Similarity is the per-query trigram score in [0,1]. Only populated
	// by best-match queries; not part of the record's identity.
	Similarity float64 `json:"similarity,omitempty"`
}

// Query limits per shape. League and team queries return a ranked candidate
// list, date queries a day's schedule, best-match exactly one row.
const (
	LeagueQueryLimit = 50
	TeamQueryLimit   = 50
	DateQueryLimit   = 100
)

// FixtureStore is the read-only catalog query contract.
//
// Every method issues exactly one round trip. A connectivity or query
// failure is returned as a *StoreError; an empty slice means the query
// ran and matched nothing. Callers must not conflate the two.
type FixtureStore interface {
	// FixturesByLeague returns up to LeagueQueryLimit fixtures whose league
	// name fuzzy-matches the query, ranked by descending similarity.
	FixturesByLeague(ctx context.Context, query string) ([]FixtureRecord, error)

	// FixturesByDate returns up to DateQueryLimit fixtures dated on either
	// of the two given days, ordered by kickoff ascending.
	FixturesByDate(ctx context.Context, first, second time.Time) ([]FixtureRecord, error)

	// FixturesByTeams returns up to TeamQueryLimit fixtures whose "Home vs
	// Away" label fuzzy-matches the query, ranked by descending similarity.
	FixturesByTeams(ctx context.Context, query string) ([]FixtureRecord, error)

	// BestByTeams returns the single highest-similarity fixture for a
	// team-pair query, with Similarity populated, or nil if none matched.
	BestByTeams(ctx context.Context, query string) (*FixtureRecord, error)

	// Ping verifies catalog connectivity.
	Ping(ctx context.Context) error

	// Close releases the underlying connections.
	Close() error
}

// StoreError reports a catalog connectivity or query failure. It is
// deliberately distinct from an empty result: callers route on this
// difference ("store is down" vs "no such fixture").
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("fixture store: %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// NewStoreError wraps a failure from the backing store.
func NewStoreError(op string, err error) *StoreError {
	return &StoreError{Op: op, Err: err}
}
