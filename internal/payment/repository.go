// Package payment stores payment proofs uploaded for event registrations and
// their review by payment admins.
package payment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/campusreg/service/internal/db"
)

// Review states of a payment.
const (
	StatusPending  = "Pending"
	StatusApproved = "Approved"
	StatusRejected = "Rejected"
)

// Payment is a proof of payment for one user's registration to one event.
type Payment struct {
	ID            string    `json:"id"`
	UserID        string    `json:"userId"`
	EventID       string    `json:"eventId"`
	TransactionID string    `json:"transactionId"`
	Amount        int64     `json:"amount"`
	ScreenshotURL string    `json:"screenshotUrl"`
	Status        string    `json:"status"`
	Remarks       string    `json:"remarks"`
	ReviewedBy    *string   `json:"reviewedBy,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// Proof is the submitted part of a payment.
type Proof struct {
	UserID        string
	EventID       string
	TransactionID string
	Amount        int64
	ScreenshotURL string
}

var (
	// ErrNotFound is returned when a payment does not exist.
	ErrNotFound = errors.New("payment not found")
	// ErrDuplicate is returned when a payment for the user and event already exists.
	ErrDuplicate = errors.New("payment already submitted for this event")
)

const paymentColumns = `id, user_id, event_id, transaction_id, amount, screenshot_url, status, remarks, reviewed_by, created_at, updated_at`

// Repository handles payment persistence.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new Repository with the given connection pool.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// Create inserts a pending payment.
func (r *Repository) Create(ctx context.Context, p Proof) (*Payment, error) {
	pay, err := scanPayment(r.db.QueryRow(ctx,
		`INSERT INTO payments (user_id, event_id, transaction_id, amount, screenshot_url)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING `+paymentColumns,
		p.UserID, p.EventID, p.TransactionID, p.Amount, p.ScreenshotURL,
	))
	if db.IsUniqueViolation(err) {
		return nil, ErrDuplicate
	}
	if err != nil {
		return nil, fmt.Errorf("create payment: %w", err)
	}
	return pay, nil
}

// GetByUserEvent returns the payment a user submitted for an event.
func (r *Repository) GetByUserEvent(ctx context.Context, userID, eventID string) (*Payment, error) {
	pay, err := scanPayment(r.db.QueryRow(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE user_id = $1 AND event_id = $2`,
		userID, eventID,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get payment: %w", err)
	}
	return pay, nil
}

// ReplaceProof swaps in a new proof and puts the payment back into review.
// An approved payment is never touched; ErrAlreadyApproved is returned even
// when the approval lands after the caller last read the row.
func (r *Repository) ReplaceProof(ctx context.Context, id string, p Proof) (*Payment, error) {
	pay, err := scanPayment(r.db.QueryRow(ctx,
		`UPDATE payments
		 SET transaction_id = $2, amount = $3, screenshot_url = $4,
		     status = 'Pending', remarks = '', reviewed_by = NULL, updated_at = NOW()
		 WHERE id = $1 AND status <> 'Approved'
		 RETURNING `+paymentColumns,
		id, p.TransactionID, p.Amount, p.ScreenshotURL,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		var status string
		err = r.db.QueryRow(ctx, `SELECT status FROM payments WHERE id = $1`, id).Scan(&status)
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			return nil, ErrNotFound
		case err != nil:
			return nil, fmt.Errorf("replace payment proof: %w", err)
		case status == StatusApproved:
			return nil, ErrAlreadyApproved
		}
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("replace payment proof: %w", err)
	}
	return pay, nil
}

// List returns payments, newest first. An empty status returns all of them.
func (r *Repository) List(ctx context.Context, status string) ([]Payment, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+paymentColumns+` FROM payments
		 WHERE $1 = '' OR status = $1
		 ORDER BY created_at DESC`,
		status,
	)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	defer rows.Close()

	payments := []Payment{}
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan payment: %w", err)
		}
		payments = append(payments, *p)
	}
	return payments, rows.Err()
}

// UpdateStatus records a review decision.
func (r *Repository) UpdateStatus(ctx context.Context, id, status, remarks, reviewerID string) (*Payment, error) {
	pay, err := scanPayment(r.db.QueryRow(ctx,
		`UPDATE payments
		 SET status = $2, remarks = $3, reviewed_by = $4, updated_at = NOW()
		 WHERE id = $1
		 RETURNING `+paymentColumns,
		id, status, remarks, reviewerID,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update payment status: %w", err)
	}
	return pay, nil
}

func scanPayment(row pgx.Row) (*Payment, error) {
	p := &Payment{}
	err := row.Scan(&p.ID, &p.UserID, &p.EventID, &p.TransactionID, &p.Amount, &p.ScreenshotURL,
		&p.Status, &p.Remarks, &p.ReviewedBy, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return p, nil
}
