// Package college manages the colleges users and events belong to.
package college

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/campusreg/service/internal/db"
)

// College is a participating institution.
type College struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	City      string    `json:"city"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

var (
	// ErrNotFound is returned when a college does not exist.
	ErrNotFound = errors.New("college not found")
	// ErrDuplicateName is returned when another college already has the name.
	ErrDuplicateName = errors.New("college name already exists")
)

const collegeColumns = `id, name, city, created_at, updated_at`

// Repository handles college database operations.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new Repository with the given connection pool.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// Create inserts a college.
func (r *Repository) Create(ctx context.Context, name, city string) (*College, error) {
	c, err := scanCollege(r.db.QueryRow(ctx,
		`INSERT INTO colleges (name, city) VALUES ($1, $2) RETURNING `+collegeColumns,
		name, city,
	))
	if db.IsUniqueViolation(err) {
		return nil, ErrDuplicateName
	}
	if err != nil {
		return nil, fmt.Errorf("create college: %w", err)
	}
	return c, nil
}

// List returns every college ordered by name.
func (r *Repository) List(ctx context.Context) ([]College, error) {
	rows, err := r.db.Query(ctx, `SELECT `+collegeColumns+` FROM colleges ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list colleges: %w", err)
	}
	defer rows.Close()

	colleges := []College{}
	for rows.Next() {
		c, err := scanCollege(rows)
		if err != nil {
			return nil, fmt.Errorf("scan college: %w", err)
		}
		colleges = append(colleges, *c)
	}
	return colleges, rows.Err()
}

// Update renames a college.
func (r *Repository) Update(ctx context.Context, id, name, city string) (*College, error) {
	c, err := scanCollege(r.db.QueryRow(ctx,
		`UPDATE colleges SET name = $2, city = $3, updated_at = NOW()
		 WHERE id = $1
		 RETURNING `+collegeColumns,
		id, name, city,
	))
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return nil, ErrNotFound
	case db.IsUniqueViolation(err):
		return nil, ErrDuplicateName
	case err != nil:
		return nil, fmt.Errorf("update college: %w", err)
	}
	return c, nil
}

// Delete removes a college.
func (r *Repository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM colleges WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete college: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanCollege(row pgx.Row) (*College, error) {
	c := &College{}
	if err := row.Scan(&c.ID, &c.Name, &c.City, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	return c, nil
}
