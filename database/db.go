package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"tripplanner/services"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// ─── Models ──────────────────────────────────────────────────────────────────

type Trip struct {
	ID string `json:"id"`
	services.TripRequest
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Itinerary struct {
	ID            string                 `json:"id"`
	TripID        string                 `json:"trip_id"`
	Data          services.ItineraryData `json:"itinerary_data"`
	TotalCost     int                    `json:"total_cost"`
	CostBreakdown services.CostBreakdown `json:"cost_breakdown"`
	IsSelected    bool                   `json:"is_selected"`
	VersionNumber int                    `json:"version_number"`
	CreatedAt     time.Time              `json:"created_at"`
}

type Note struct {
	ID          string    `json:"id"`
	ItineraryID string    `json:"itinerary_id"`
	DayNumber   int       `json:"day_number"`
	Content     string    `json:"note_content"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ─── Init ─────────────────────────────────────────────────────────────────────

// Store persists trips, itineraries and notes in PostgreSQL.
type Store struct {
	db  *sql.DB
	log *slog.Logger
}

// Open connects to PostgreSQL, waits for it to accept connections and applies
// migrations.
func Open(ctx context.Context, dsn string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	// The database may take a moment to come up alongside the app.
	for i := 0; i < 10; i++ {
		if err = db.PingContext(ctx); err == nil {
			break
		}
		logger.Warn("waiting for database", "attempt", i+1, "error", err)
		select {
		case <-ctx.Done():
			db.Close()
			return nil, ctx.Err()
		case <-time.After(2 * time.Second):
		}
	}
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	s := &Store{db: db, log: logger.With("component", "database")}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	s.log.Info("database connected and migrated")
	return s, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

// ─── Migrations ───────────────────────────────────────────────────────────────

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS trips (
		id                   TEXT PRIMARY KEY,
		destinations         TEXT[] NOT NULL,
		travel_start_date    DATE NOT NULL,
		travel_end_date      DATE NOT NULL,
		purpose              TEXT NOT NULL,
		traveler_type        TEXT NOT NULL DEFAULT '',
		number_of_travelers  INTEGER NOT NULL DEFAULT 1,
		origin_city          TEXT NOT NULL,
		mandatory_activities JSONB NOT NULL DEFAULT '{}',
		traveler_images      TEXT[] NOT NULL DEFAULT '{}',
		created_at           TIMESTAMPTZ DEFAULT NOW(),
		updated_at           TIMESTAMPTZ DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS itineraries (
		id             TEXT PRIMARY KEY,
		trip_id        TEXT NOT NULL REFERENCES trips(id) ON DELETE CASCADE,
		itinerary_data JSONB NOT NULL,
		total_cost     INTEGER NOT NULL,
		cost_breakdown JSONB NOT NULL,
		is_selected    BOOLEAN NOT NULL DEFAULT FALSE,
		version_number INTEGER NOT NULL,
		created_at     TIMESTAMPTZ DEFAULT NOW(),
		UNIQUE (trip_id, version_number)
	)`,

	`CREATE TABLE IF NOT EXISTS notes (
		id           TEXT PRIMARY KEY,
		itinerary_id TEXT NOT NULL REFERENCES itineraries(id) ON DELETE CASCADE,
		day_number   INTEGER NOT NULL,
		note_content TEXT NOT NULL,
		created_at   TIMESTAMPTZ DEFAULT NOW(),
		updated_at   TIMESTAMPTZ DEFAULT NOW()
	)`,

	`CREATE INDEX IF NOT EXISTS idx_itineraries_trip_id ON itineraries(trip_id)`,
	`CREATE INDEX IF NOT EXISTS idx_notes_itinerary_id ON notes(itinerary_id, day_number)`,
}

func (s *Store) migrate(ctx context.Context) error {
	for _, m := range migrations {
		if _, err := s.db.ExecContext(ctx, m); err != nil {
			return fmt.Errorf("migration failed: %w\nSQL: %s", err, m)
		}
	}
	return nil
}

// ─── Trips ────────────────────────────────────────────────────────────────────

func (s *Store) CreateTrip(ctx context.Context, t *Trip) error {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	mandatory, err := json.Marshal(nonNilMap(t.MandatoryActivities))
	if err != nil {
		return err
	}
	return s.db.QueryRowContext(ctx, `
		INSERT INTO trips (id, destinations, travel_start_date, travel_end_date, purpose,
			traveler_type, number_of_travelers, origin_city, mandatory_activities, traveler_images)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at, updated_at`,
		t.ID, pq.Array(t.Destinations), t.StartDate, t.EndDate, string(t.Purpose),
		string(t.TravelerType), t.Travelers, t.OriginCity, mandatory, pq.Array(nonNilSlice(t.TravelerImages))).
		Scan(&t.CreatedAt, &t.UpdatedAt)
}

func (s *Store) GetTrip(ctx context.Context, id string) (*Trip, error) {
	t := &Trip{}
	var purpose, travelerType string
	var mandatory []byte
	err := s.db.QueryRowContext(ctx, `
		SELECT id, destinations, travel_start_date, travel_end_date, purpose, traveler_type,
			number_of_travelers, origin_city, mandatory_activities, traveler_images, created_at, updated_at
		FROM trips WHERE id = $1`, id).
		Scan(&t.ID, pq.Array(&t.Destinations), &t.StartDate, &t.EndDate, &purpose, &travelerType,
			&t.Travelers, &t.OriginCity, &mandatory, pq.Array(&t.TravelerImages), &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	t.Purpose = services.Purpose(purpose)
	t.TravelerType = services.TravelerType(travelerType)
	t.StartDate = t.StartDate.UTC()
	t.EndDate = t.EndDate.UTC()
	if err := json.Unmarshal(mandatory, &t.MandatoryActivities); err != nil {
		return nil, fmt.Errorf("decode mandatory activities: %w", err)
	}
	return t, nil
}

// ─── Itineraries ──────────────────────────────────────────────────────────────

// SaveItinerary inserts it as the next version for its trip.
func (s *Store) SaveItinerary(ctx context.Context, it *Itinerary) error {
	if it.ID == "" {
		it.ID = uuid.New().String()
	}
	data, err := json.Marshal(it.Data)
	if err != nil {
		return err
	}
	breakdown, err := json.Marshal(it.CostBreakdown)
	if err != nil {
		return err
	}
	return s.db.QueryRowContext(ctx, `
		INSERT INTO itineraries (id, trip_id, itinerary_data, total_cost, cost_breakdown, is_selected, version_number)
		SELECT $1, $2, $3, $4, $5, $6, COALESCE(MAX(version_number), 0) + 1
		FROM itineraries WHERE trip_id = $2
		RETURNING version_number, created_at`,
		it.ID, it.TripID, data, it.TotalCost, breakdown, it.IsSelected).
		Scan(&it.VersionNumber, &it.CreatedAt)
}

const itineraryColumns = `id, trip_id, itinerary_data, total_cost, cost_breakdown, is_selected, version_number, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItinerary(row rowScanner) (*Itinerary, error) {
	it := &Itinerary{}
	var data, breakdown []byte
	if err := row.Scan(&it.ID, &it.TripID, &data, &it.TotalCost, &breakdown,
		&it.IsSelected, &it.VersionNumber, &it.CreatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(data, &it.Data); err != nil {
		return nil, fmt.Errorf("decode itinerary data: %w", err)
	}
	if err := json.Unmarshal(breakdown, &it.CostBreakdown); err != nil {
		return nil, fmt.Errorf("decode cost breakdown: %w", err)
	}
	return it, nil
}

func (s *Store) GetItinerary(ctx context.Context, id string) (*Itinerary, error) {
	it, err := scanItinerary(s.db.QueryRowContext(ctx,
		`SELECT `+itineraryColumns+` FROM itineraries WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err)
	}
	return it, nil
}

func (s *Store) ListItineraries(ctx context.Context, tripID string) ([]Itinerary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+itineraryColumns+` FROM itineraries WHERE trip_id = $1 ORDER BY version_number`, tripID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Itinerary{}
	for rows.Next() {
		it, err := scanItinerary(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *it)
	}
	return out, rows.Err()
}

// SelectItinerary marks id as the chosen version and clears the flag on its
// siblings.
func (s *Store) SelectItinerary(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var tripID string
	if err := tx.QueryRowContext(ctx, `SELECT trip_id FROM itineraries WHERE id = $1 FOR UPDATE`, id).Scan(&tripID); err != nil {
		return notFound(err)
	}
	if _, err := tx.ExecContext(ctx, `UPDATE itineraries SET is_selected = (id = $1) WHERE trip_id = $2`, id, tripID); err != nil {
		return err
	}
	return tx.Commit()
}

// ─── Notes ────────────────────────────────────────────────────────────────────

func (s *Store) AddNote(ctx context.Context, n *Note) error {
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	return s.db.QueryRowContext(ctx, `
		INSERT INTO notes (id, itinerary_id, day_number, note_content)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at, updated_at`,
		n.ID, n.ItineraryID, n.DayNumber, n.Content).
		Scan(&n.CreatedAt, &n.UpdatedAt)
}

func (s *Store) ListNotes(ctx context.Context, itineraryID string) ([]Note, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, itinerary_id, day_number, note_content, created_at, updated_at
		FROM notes WHERE itinerary_id = $1
		ORDER BY day_number, created_at`, itineraryID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Note{}
	for rows.Next() {
		var n Note
		if err := rows.Scan(&n.ID, &n.ItineraryID, &n.DayNumber, &n.Content, &n.CreatedAt, &n.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (s *Store) DeleteNote(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM notes WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ─── Helpers ──────────────────────────────────────────────────────────────────

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func nonNilMap(m map[string][]string) map[string][]string {
	if m == nil {
		return map[string][]string{}
	}
	return m
}

func nonNilSlice(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
