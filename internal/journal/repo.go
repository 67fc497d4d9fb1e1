package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// Repository persists journal entries in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const schema = `
CREATE TABLE IF NOT EXISTS journal_entries (
	id          UUID PRIMARY KEY,
	type        TEXT NOT NULL,
	trip_id     BIGINT NOT NULL,
	student_id  BIGINT,
	actor_id    BIGINT NOT NULL,
	detail      TEXT NOT NULL DEFAULT '',
	occurred_at TIMESTAMPTZ NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS journal_entries_trip_idx ON journal_entries (trip_id, occurred_at DESC);
`

// EnsureSchema creates the journal table when missing.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, schema)
	return err
}

// Insert writes an entry. Replays of the same id are ignored.
func (r *Repository) Insert(ctx context.Context, e Entry) error {
	if e.ID == "" {
		return errors.New("entry id required")
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO journal_entries (id, type, trip_id, student_id, actor_id, detail, occurred_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		ON CONFLICT (id) DO NOTHING
	`, e.ID, e.Type, e.TripID, e.StudentID, e.ActorID, e.Detail, e.At)
	return err
}

// Filter narrows List.
type Filter struct {
	TripID int64
	Type   string
	Limit  int
	Offset int
}

// List returns entries, newest first.
func (r *Repository) List(ctx context.Context, f Filter) ([]Entry, error) {
	if f.Limit <= 0 || f.Limit > 500 {
		f.Limit = 50
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	query, args := listQuery(f)
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []Entry
	for rows.Next() {
		var (
			e         Entry
			studentID sql.NullInt64
		)
		if err := rows.Scan(&e.ID, &e.Type, &e.TripID, &studentID, &e.ActorID, &e.Detail, &e.At, &e.CreatedAt); err != nil {
			return nil, err
		}
		if studentID.Valid {
			id := studentID.Int64
			e.StudentID = &id
		}
		res = append(res, e)
	}
	return res, rows.Err()
}

func listQuery(f Filter) (string, []any) {
	query := `SELECT id, type, trip_id, student_id, actor_id, detail, occurred_at, created_at FROM journal_entries`
	var (
		args    []any
		clauses []string
	)
	if f.TripID != 0 {
		args = append(args, f.TripID)
		clauses = append(clauses, fmt.Sprintf("trip_id = $%d", len(args)))
	}
	if f.Type != "" {
		args = append(args, f.Type)
		clauses = append(clauses, fmt.Sprintf("type = $%d", len(args)))
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += fmt.Sprintf(" ORDER BY occurred_at DESC LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, f.Limit, f.Offset)
	return query, args
}
