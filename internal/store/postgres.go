package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/mlandt/touchline/internal/logging"
)

// Ensure PostgresStore implements FixtureStore
var _ FixtureStore = (*PostgresStore)(nil)

// PostgresStore queries the api_football_fixtures catalog table. Fuzzy
// ranking relies on the pg_trgm extension's similarity() function being
// available in the target database.
type PostgresStore struct {
	db     *sql.DB
	logger *logging.Logger
}

// NewPostgresStore opens a connection pool against the fixture catalog and
// verifies connectivity with a short ping.
func NewPostgresStore(dsn string) (*PostgresStore, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres DSN is required")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres connection: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, NewStoreError("ping", err)
	}

	return &PostgresStore{
		db:     db,
		logger: logging.GetLogger("store"),
	}, nil
}

// FixturesByLeague implements FixtureStore.
func (s *PostgresStore) FixturesByLeague(ctx context.Context, query string) ([]FixtureRecord, error) {
	q := `
	SELECT fixture_id, league_name, teams_vs, fixture_date
	FROM api_football_fixtures
	WHERE league_name ILIKE $1
	ORDER BY similarity(league_name, $2) DESC NULLS LAST
	LIMIT $3
	`
	return s.queryFixtures(ctx, "league", q, "%"+query+"%", query, LeagueQueryLimit)
}

// FixturesByDate implements FixtureStore.
func (s *PostgresStore) FixturesByDate(ctx context.Context, first, second time.Time) ([]FixtureRecord, error) {
	q := `
	SELECT fixture_id, league_name, teams_vs, fixture_date
	FROM api_football_fixtures
	WHERE fixture_date::date IN ($1::date, $2::date)
	ORDER BY fixture_date ASC
	LIMIT $3
	`
	return s.queryFixtures(ctx, "date",
		q, first.Format("2006-01-02"), second.Format("2006-01-02"), DateQueryLimit)
}

// FixturesByTeams implements FixtureStore.
func (s *PostgresStore) FixturesByTeams(ctx context.Context, query string) ([]FixtureRecord, error) {
	q := `
	SELECT fixture_id, league_name, teams_vs, fixture_date
	FROM api_football_fixtures
	WHERE teams_vs ILIKE $1
	ORDER BY similarity(teams_vs, $2) DESC NULLS LAST
	LIMIT $3
	`
	return s.queryFixtures(ctx, "teams", q, "%"+query+"%", query, TeamQueryLimit)
}

// BestByTeams implements FixtureStore.
func (s *PostgresStore) BestByTeams(ctx context.Context, query string) (*FixtureRecord, error) {
	q := `
	SELECT fixture_id, league_name, teams_vs, fixture_date,
	       COALESCE(similarity(teams_vs, $1), 0) AS sim
	FROM api_football_fixtures
	WHERE teams_vs ILIKE $2
	ORDER BY similarity(teams_vs, $1) DESC NULLS LAST
	LIMIT 1
	`
	start := time.Now()
	row := s.db.QueryRowContext(ctx, q, query, "%"+query+"%")

	var rec FixtureRecord
	err := row.Scan(&rec.FixtureID, &rec.LeagueName, &rec.TeamsVS, &rec.FixtureDate, &rec.Similarity)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, NewStoreError("best_by_teams", err)
	}

	s.logger.DebugWithFields("best-match query complete",
		logging.Field("query", query),
		logging.Field("fixture_id", rec.FixtureID),
		logging.Field("similarity", rec.Similarity),
		logging.Field("duration_ms", time.Since(start).Milliseconds()),
	)
	return &rec, nil
}

// Ping implements FixtureStore.
func (s *PostgresStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return NewStoreError("ping", err)
	}
	return nil
}

// Close implements FixtureStore.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func (s *PostgresStore) queryFixtures(ctx context.Context, op, query string, args ...interface{}) ([]FixtureRecord, error) {
	start := time.Now()

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, NewStoreError(op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var records []FixtureRecord
	for rows.Next() {
		var rec FixtureRecord
		if err := rows.Scan(&rec.FixtureID, &rec.LeagueName, &rec.TeamsVS, &rec.FixtureDate); err != nil {
			return nil, NewStoreError(op, err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, NewStoreError(op, err)
	}

	s.logger.DebugWithFields("catalog query complete",
		logging.Field("shape", op),
		logging.Field("candidates", len(records)),
		logging.Field("duration_ms", time.Since(start).Milliseconds()),
	)
	return records, nil
}
