package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Schema is the live database schema. Tables are declared in dependency
// order. The slot back-references (assigned_seminar_id and
// assigned_suggestion_id) are intentionally not declared as foreign keys:
// they are derived linkage that deletions clear and restores rewrite, and
// their consistency is checked by CheckIntegrity instead.
const Schema = `
CREATE TABLE IF NOT EXISTS semester_plans (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL UNIQUE,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS rooms (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL UNIQUE,
	location TEXT NOT NULL DEFAULT '',
	capacity INTEGER NOT NULL DEFAULT 0,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS speakers (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL UNIQUE,
	email TEXT NOT NULL DEFAULT '',
	affiliation TEXT NOT NULL DEFAULT '',
	bio TEXT NOT NULL DEFAULT '',
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS speaker_suggestions (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	semester_plan_id INTEGER REFERENCES semester_plans(id) ON DELETE SET NULL,
	speaker_id INTEGER REFERENCES speakers(id) ON DELETE SET NULL,
	speaker_name TEXT NOT NULL,
	speaker_email TEXT NOT NULL DEFAULT '',
	affiliation TEXT NOT NULL DEFAULT '',
	suggested_by TEXT NOT NULL DEFAULT '',
	priority INTEGER NOT NULL DEFAULT 0,
	topic TEXT NOT NULL DEFAULT '',
	reason TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL DEFAULT '',
	request_sent INTEGER NOT NULL DEFAULT 0,
	availability_received INTEGER NOT NULL DEFAULT 0,
	date_notified INTEGER NOT NULL DEFAULT 0,
	meal_confirmed INTEGER NOT NULL DEFAULT 0,
	accommodation_booked INTEGER NOT NULL DEFAULT 0,
	info_submitted INTEGER NOT NULL DEFAULT 0,
	approved INTEGER NOT NULL DEFAULT 0,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS availability_entries (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	suggestion_id INTEGER NOT NULL REFERENCES speaker_suggestions(id) ON DELETE CASCADE,
	date TEXT NOT NULL,
	preference TEXT NOT NULL DEFAULT 'possible' CHECK (preference IN ('preferred', 'possible')),
	UNIQUE (suggestion_id, date)
);

CREATE TABLE IF NOT EXISTS seminars (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	title TEXT NOT NULL DEFAULT '',
	abstract TEXT NOT NULL DEFAULT '',
	date TEXT NOT NULL,
	start_time TEXT NOT NULL DEFAULT '',
	end_time TEXT NOT NULL DEFAULT '',
	room_id INTEGER REFERENCES rooms(id) ON DELETE SET NULL,
	speaker_id INTEGER REFERENCES speakers(id) ON DELETE SET NULL,
	suggestion_id INTEGER REFERENCES speaker_suggestions(id) ON DELETE SET NULL,
	room_booked INTEGER NOT NULL DEFAULT 0,
	announcement_sent INTEGER NOT NULL DEFAULT 0,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS seminar_details (
	seminar_id INTEGER PRIMARY KEY REFERENCES seminars(id) ON DELETE CASCADE,
	arrival_date TEXT NOT NULL DEFAULT '',
	departure_date TEXT NOT NULL DEFAULT '',
	travel_notes TEXT NOT NULL DEFAULT '',
	accommodation_notes TEXT NOT NULL DEFAULT '',
	payment_required INTEGER NOT NULL DEFAULT 0,
	bank_details TEXT NOT NULL DEFAULT '',
	dietary_notes TEXT NOT NULL DEFAULT '',
	updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS seminar_slots (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	semester_plan_id INTEGER NOT NULL REFERENCES semester_plans(id) ON DELETE CASCADE,
	date TEXT NOT NULL,
	start_time TEXT NOT NULL DEFAULT '',
	end_time TEXT NOT NULL DEFAULT '',
	room_id INTEGER REFERENCES rooms(id) ON DELETE SET NULL,
	status TEXT NOT NULL DEFAULT 'available' CHECK (status IN ('available', 'reserved', 'confirmed', 'cancelled')),
	assigned_seminar_id INTEGER,
	assigned_suggestion_id INTEGER,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS speaker_tokens (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	suggestion_id INTEGER NOT NULL REFERENCES speaker_suggestions(id) ON DELETE CASCADE,
	kind TEXT NOT NULL CHECK (kind IN ('availability', 'info', 'status')),
	token TEXT NOT NULL UNIQUE,
	expires_at TEXT NOT NULL,
	used_at TEXT,
	created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS uploaded_files (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	seminar_id INTEGER NOT NULL REFERENCES seminars(id) ON DELETE CASCADE,
	category TEXT NOT NULL DEFAULT 'other' CHECK (category IN ('cv', 'photo', 'passport', 'flight', 'other')),
	filename TEXT NOT NULL,
	path TEXT NOT NULL,
	uploaded_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS activity_events (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	actor TEXT NOT NULL DEFAULT '',
	action TEXT NOT NULL,
	entity_type TEXT NOT NULL,
	entity_id INTEGER NOT NULL DEFAULT 0,
	detail TEXT NOT NULL DEFAULT '',
	created_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_slots_plan_date ON seminar_slots (semester_plan_id, date);
CREATE INDEX IF NOT EXISTS idx_suggestions_plan ON speaker_suggestions (semester_plan_id);
CREATE INDEX IF NOT EXISTS idx_tokens_suggestion_kind ON speaker_tokens (suggestion_id, kind);
CREATE INDEX IF NOT EXISTS idx_files_seminar ON uploaded_files (seminar_id);
CREATE INDEX IF NOT EXISTS idx_activity_entity ON activity_events (entity_type, entity_id);
`

// Store bundles the SQLite-backed repositories behind one connection pool.
type Store struct {
	pool *ConnectionPool

	Plans       *PlanRepository
	Rooms       *RoomRepository
	Slots       *SlotRepository
	Speakers    *SpeakerRepository
	Suggestions *SuggestionRepository
	Seminars    *SeminarRepository
	Tokens      *TokenRepository
	Activity    *ActivityRepository
}

// Open opens the store at the given path with default settings.
func Open(path string) (*Store, error) {
	return OpenWithConfig(DefaultConfig(path))
}

// OpenWithConfig opens the store with explicit SQLite settings.
func OpenWithConfig(cfg Config) (*Store, error) {
	pool, err := NewConnectionPool(cfg)
	if err != nil {
		return nil, err
	}

	return &Store{
		pool:        pool,
		Plans:       NewPlanRepository(pool),
		Rooms:       NewRoomRepository(pool),
		Slots:       NewSlotRepository(pool),
		Speakers:    NewSpeakerRepository(pool),
		Suggestions: NewSuggestionRepository(pool),
		Seminars:    NewSeminarRepository(pool),
		Tokens:      NewTokenRepository(pool),
		Activity:    NewActivityRepository(pool),
	}, nil
}

// Pool exposes the underlying connection pool for transactional callers such
// as the backup reconciler and integrity checks.
func (s *Store) Pool() *ConnectionPool {
	return s.pool
}

// Migrate creates the schema when missing. Existing data is never touched.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

// resetOrder lists every table children-first so a wipe never trips foreign
// keys.
var resetOrder = []string{
	"activity_events",
	"uploaded_files",
	"speaker_tokens",
	"seminar_details",
	"seminar_slots",
	"seminars",
	"availability_entries",
	"speaker_suggestions",
	"speakers",
	"rooms",
	"semester_plans",
}

// Reset deletes every row from every table in one transaction. Intended for
// the admin reset operation; callers are expected to snapshot first.
func (s *Store) Reset(ctx context.Context) error {
	return s.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		for _, table := range resetOrder {
			if _, err := tx.Exec(fmt.Sprintf(`DELETE FROM %q`, table)); err != nil {
				return fmt.Errorf("failed to clear table %s: %w", table, err)
			}
		}
		return nil
	})
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	return s.pool.Close()
}

// --- shared scan/format helpers ---

// timeLayouts is the fallback chain of accepted timestamp formats. Backups
// taken by older generations of the tool stored timestamps in more than one
// layout, so parsing tries each in turn rather than failing on the first.
var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func parseTime(value string) (time.Time, error) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", value)
}

func nullTimeString(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

func nullInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

func int64Ptr(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	value := v.Int64
	return &value
}
