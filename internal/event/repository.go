// Package event manages events and the registrations of users for them.
package event

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/campusreg/service/internal/db"
)

// Event is something users can register and pay for.
type Event struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Venue       string    `json:"venue"`
	StartsAt    time.Time `json:"startsAt"`
	Fee         int64     `json:"fee"`
	CollegeID   *string   `json:"collegeId,omitempty"`
	CreatedBy   string    `json:"createdBy"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Fields are the user-editable attributes of an event.
type Fields struct {
	Title       string
	Description string
	Venue       string
	StartsAt    time.Time
	Fee         int64
	CollegeID   *string
}

var (
	// ErrNotFound is returned when an event does not exist.
	ErrNotFound = errors.New("event not found")
	// ErrAlreadyRegistered is returned when a user registers twice.
	ErrAlreadyRegistered = errors.New("already registered for this event")
	// ErrUnknownCollege is returned when an event references a missing college.
	ErrUnknownCollege = errors.New("college not found")
)

const eventColumns = `e.id, e.title, e.description, e.venue, e.starts_at, e.fee, e.college_id, e.created_by, e.created_at, e.updated_at`

// Repository handles event and registration persistence.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new Repository with the given connection pool.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// Create inserts an event owned by creatorID.
func (r *Repository) Create(ctx context.Context, creatorID string, f Fields) (*Event, error) {
	e, err := scanEvent(r.db.QueryRow(ctx,
		`INSERT INTO events AS e (title, description, venue, starts_at, fee, college_id, created_by)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING `+eventColumns,
		f.Title, f.Description, f.Venue, f.StartsAt, f.Fee, f.CollegeID, creatorID,
	))
	if db.IsForeignKeyViolation(err) {
		return nil, ErrUnknownCollege
	}
	if err != nil {
		return nil, fmt.Errorf("create event: %w", err)
	}
	return e, nil
}

// GetByID fetches an event.
func (r *Repository) GetByID(ctx context.Context, id string) (*Event, error) {
	e, err := scanEvent(r.db.QueryRow(ctx,
		`SELECT `+eventColumns+` FROM events e WHERE e.id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get event: %w", err)
	}
	return e, nil
}

// List returns all events, soonest first.
func (r *Repository) List(ctx context.Context) ([]Event, error) {
	return r.query(ctx, "list events",
		`SELECT `+eventColumns+` FROM events e ORDER BY e.starts_at`)
}

// ListByCreator returns the events created by userID.
func (r *Repository) ListByCreator(ctx context.Context, userID string) ([]Event, error) {
	return r.query(ctx, "list events by creator",
		`SELECT `+eventColumns+` FROM events e WHERE e.created_by = $1 ORDER BY e.starts_at`, userID)
}

// ListRegistered returns the events userID has registered for.
func (r *Repository) ListRegistered(ctx context.Context, userID string) ([]Event, error) {
	return r.query(ctx, "list registered events",
		`SELECT `+eventColumns+`
		 FROM events e
		 JOIN event_registrations er ON er.event_id = e.id
		 WHERE er.user_id = $1
		 ORDER BY e.starts_at`, userID)
}

// Update replaces the editable fields of an event.
func (r *Repository) Update(ctx context.Context, id string, f Fields) (*Event, error) {
	e, err := scanEvent(r.db.QueryRow(ctx,
		`UPDATE events AS e
		 SET title = $2, description = $3, venue = $4, starts_at = $5, fee = $6, college_id = $7, updated_at = NOW()
		 WHERE e.id = $1
		 RETURNING `+eventColumns,
		id, f.Title, f.Description, f.Venue, f.StartsAt, f.Fee, f.CollegeID,
	))
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return nil, ErrNotFound
	case db.IsForeignKeyViolation(err):
		return nil, ErrUnknownCollege
	case err != nil:
		return nil, fmt.Errorf("update event: %w", err)
	}
	return e, nil
}

// Register records userID as attending eventID.
func (r *Repository) Register(ctx context.Context, eventID, userID string) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO event_registrations (event_id, user_id) VALUES ($1, $2)`,
		eventID, userID,
	)
	switch {
	case db.IsUniqueViolation(err):
		return ErrAlreadyRegistered
	case db.IsForeignKeyViolation(err):
		return ErrNotFound
	case err != nil:
		return fmt.Errorf("register for event: %w", err)
	}
	return nil
}

// IsRegistered reports whether userID registered for eventID.
func (r *Repository) IsRegistered(ctx context.Context, eventID, userID string) (bool, error) {
	var ok bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM event_registrations WHERE event_id = $1 AND user_id = $2)`,
		eventID, userID,
	).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("check registration: %w", err)
	}
	return ok, nil
}

func (r *Repository) query(ctx context.Context, op, sql string, args ...interface{}) ([]Event, error) {
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	events := []Event{}
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		events = append(events, *e)
	}
	return events, rows.Err()
}

func scanEvent(row pgx.Row) (*Event, error) {
	e := &Event{}
	err := row.Scan(&e.ID, &e.Title, &e.Description, &e.Venue, &e.StartsAt, &e.Fee,
		&e.CollegeID, &e.CreatedBy, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return e, nil
}
