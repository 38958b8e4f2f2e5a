package usage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Event is a countable command outcome.
type Event string

const (
	EventSearch         Event = "search"
	EventZeroResults    Event = "zero_results"
	EventSearchFailed   Event = "search_failed"
	EventDryRun         Event = "dry_run"
	EventRecordsLoaded  Event = "records_loaded"
	EventIndexCreated   Event = "index_created"
	EventIndexRecreated Event = "index_recreated"
)

// Events lists every event in display order.
var Events = []Event{
	EventSearch,
	EventZeroResults,
	EventSearchFailed,
	EventDryRun,
	EventRecordsLoaded,
	EventIndexCreated,
	EventIndexRecreated,
}

const dateLayout = "2006-01-02"

// Store persists daily event counts in SQLite.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// DefaultPath returns ~/.recordsearch/usage.db.
func DefaultPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(homeDir, ".recordsearch", "usage.db"), nil
}

// NewStore opens the database at dbPath, creating its directory and schema.
func NewStore(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create usage directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	createTableSQL := `
		CREATE TABLE IF NOT EXISTS usage_counts (
			event TEXT NOT NULL,
			date TEXT NOT NULL,
			count INTEGER DEFAULT 0,
			PRIMARY KEY (event, date)
		);
	`
	if _, err := db.Exec(createTableSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	return &Store{db: db, now: time.Now}, nil
}

// Add adds n to today's count for event.
func (s *Store) Add(event Event, n int64) error {
	if n <= 0 {
		return nil
	}
	today := s.now().Format(dateLayout)

	upsertSQL := `
		INSERT INTO usage_counts (event, date, count)
		VALUES (?, ?, ?)
		ON CONFLICT(event, date) DO UPDATE SET count = count + excluded.count;
	`
	if _, err := s.db.Exec(upsertSQL, string(event), today, n); err != nil {
		return fmt.Errorf("failed to add to %s count: %w", event, err)
	}
	return nil
}

func (s *Store) Increment(event Event) error {
	return s.Add(event, 1)
}

// Total returns the count for event across all dates.
func (s *Store) Total(event Event) (int64, error) {
	var total int64
	row := s.db.QueryRow(
		"SELECT COALESCE(SUM(count), 0) FROM usage_counts WHERE event = ?",
		string(event),
	)
	if err := row.Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to get total for %s: %w", event, err)
	}
	return total, nil
}

// Totals returns cumulative counts for every known event, zero included.
func (s *Store) Totals() (map[Event]int64, error) {
	return s.totalsSince("")
}

// TotalsSince returns counts recorded on or after day.
func (s *Store) TotalsSince(day time.Time) (map[Event]int64, error) {
	return s.totalsSince(day.Format(dateLayout))
}

func (s *Store) totalsSince(date string) (map[Event]int64, error) {
	result := make(map[Event]int64, len(Events))
	for _, event := range Events {
		result[event] = 0
	}

	rows, err := s.db.Query(
		"SELECT event, COALESCE(SUM(count), 0) FROM usage_counts WHERE date >= ? GROUP BY event",
		date,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query totals: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var event string
		var total int64
		if err := rows.Scan(&event, &total); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		result[Event(event)] = total
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return result, nil
}

// CountOn returns the count for event on a yyyy-mm-dd date.
func (s *Store) CountOn(event Event, date string) (int64, error) {
	var count int64
	row := s.db.QueryRow(
		"SELECT COALESCE(count, 0) FROM usage_counts WHERE event = ? AND date = ?",
		string(event), date,
	)
	if err := row.Scan(&count); err != nil {
		if err == sql.ErrNoRows {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to get count: %w", err)
	}
	return count, nil
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
