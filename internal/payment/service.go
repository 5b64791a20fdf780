package payment

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/campusreg/service/internal/logging"
)

var (
	// ErrInvalidInput is returned for a missing event, transaction id or a negative amount.
	ErrInvalidInput = errors.New("eventId and transactionId are required and amount must not be negative")
	// ErrUnsupportedFile is returned when the screenshot is not an image or PDF.
	ErrUnsupportedFile = errors.New("screenshot must be an image or a PDF")
	// ErrNotRegistered is returned when the uploader is not registered for the event.
	ErrNotRegistered = errors.New("you must register for the event before submitting payment")
	// ErrAlreadyApproved is returned when re-uploading a proof that was already approved.
	ErrAlreadyApproved = errors.New("payment already approved")
	// ErrInvalidStatus is returned for an unknown review status.
	ErrInvalidStatus = errors.New("status must be Approved or Rejected")
)

// Store is the persistence the payment service needs. *Repository implements it.
type Store interface {
	Create(ctx context.Context, p Proof) (*Payment, error)
	GetByUserEvent(ctx context.Context, userID, eventID string) (*Payment, error)
	ReplaceProof(ctx context.Context, id string, p Proof) (*Payment, error)
	List(ctx context.Context, status string) ([]Payment, error)
	UpdateStatus(ctx context.Context, id, status, remarks, reviewerID string) (*Payment, error)
}

// Blobs stores screenshot files. *storage.Adapter implements it.
type Blobs interface {
	Upload(ctx context.Context, data []byte, mimeType, folder string) (string, error)
	Delete(ctx context.Context, rawURL string) error
}

// Registrations answers whether a user may pay for an event. *event.Service implements it.
type Registrations interface {
	IsRegistered(ctx context.Context, eventID, userID string) (bool, error)
}

// Service contains business logic for payment proofs.
type Service struct {
	repo   Store
	blobs  Blobs
	events Registrations
	folder string
	log    logging.Logger
}

// NewService creates a new payment Service. Screenshots are stored under folder.
func NewService(repo Store, blobs Blobs, events Registrations, folder string, log logging.Logger) *Service {
	return &Service{repo: repo, blobs: blobs, events: events, folder: folder, log: log}
}

// UploadInput is a submitted proof of payment.
type UploadInput struct {
	UserID        string
	EventID       string
	TransactionID string
	Amount        int64
	Screenshot    []byte
	ContentType   string
}

// Upload stores the screenshot and records the payment. A second upload for
// the same event replaces the previous proof unless it was approved. The
// returned bool is true when a new payment was created.
func (s *Service) Upload(ctx context.Context, in UploadInput) (*Payment, bool, error) {
	in.TransactionID = strings.TrimSpace(in.TransactionID)
	if !validID(in.EventID) || in.TransactionID == "" || in.Amount < 0 {
		return nil, false, ErrInvalidInput
	}
	if !allowedContentType(in.ContentType) {
		return nil, false, ErrUnsupportedFile
	}

	registered, err := s.events.IsRegistered(ctx, in.EventID, in.UserID)
	if err != nil {
		return nil, false, err
	}
	if !registered {
		return nil, false, ErrNotRegistered
	}

	existing, err := s.repo.GetByUserEvent(ctx, in.UserID, in.EventID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, false, err
	}
	if existing != nil && existing.Status == StatusApproved {
		return nil, false, ErrAlreadyApproved
	}

	url, err := s.blobs.Upload(ctx, in.Screenshot, in.ContentType, s.folder)
	if err != nil {
		return nil, false, fmt.Errorf("store screenshot: %w", err)
	}
	proof := Proof{
		UserID:        in.UserID,
		EventID:       in.EventID,
		TransactionID: in.TransactionID,
		Amount:        in.Amount,
		ScreenshotURL: url,
	}

	if existing == nil {
		p, err := s.repo.Create(ctx, proof)
		if err != nil {
			s.discard(ctx, url)
			return nil, false, err
		}
		return p, true, nil
	}

	p, err := s.repo.ReplaceProof(ctx, existing.ID, proof)
	if err != nil {
		s.discard(ctx, url)
		return nil, false, err
	}
	s.discard(ctx, existing.ScreenshotURL)
	return p, false, nil
}

// List returns payments, optionally filtered by status.
func (s *Service) List(ctx context.Context, status string) ([]Payment, error) {
	if status != "" && status != StatusPending && status != StatusApproved && status != StatusRejected {
		return nil, ErrInvalidStatus
	}
	return s.repo.List(ctx, status)
}

// UpdateStatus records reviewerID's decision on a payment.
func (s *Service) UpdateStatus(ctx context.Context, paymentID, status, remarks, reviewerID string) (*Payment, error) {
	if status != StatusApproved && status != StatusRejected {
		return nil, ErrInvalidStatus
	}
	if !validID(paymentID) {
		return nil, ErrNotFound
	}
	return s.repo.UpdateStatus(ctx, paymentID, status, strings.TrimSpace(remarks), reviewerID)
}

// discard deletes a blob that is no longer referenced. Failures leave an
// orphaned blob and are only logged.
func (s *Service) discard(ctx context.Context, url string) {
	if err := s.blobs.Delete(ctx, url); err != nil {
		s.log.Warn("delete unreferenced screenshot", logging.String("url", url), logging.Err(err))
	}
}

func allowedContentType(ct string) bool {
	return strings.HasPrefix(ct, "image/") || ct == "application/pdf"
}

func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
