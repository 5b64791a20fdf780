package event

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
)

var (
	// ErrNotCreator is returned when someone other than the creator edits an event.
	ErrNotCreator = errors.New("only the event creator can modify this event")
	// ErrInvalidFields is returned for a missing title or start time, or a negative fee.
	ErrInvalidFields = errors.New("title and startsAt are required and fee must not be negative")
)

// Store is the persistence the event service needs. *Repository implements it.
type Store interface {
	Create(ctx context.Context, creatorID string, f Fields) (*Event, error)
	GetByID(ctx context.Context, id string) (*Event, error)
	List(ctx context.Context) ([]Event, error)
	ListByCreator(ctx context.Context, userID string) ([]Event, error)
	ListRegistered(ctx context.Context, userID string) ([]Event, error)
	Update(ctx context.Context, id string, f Fields) (*Event, error)
	Register(ctx context.Context, eventID, userID string) error
	IsRegistered(ctx context.Context, eventID, userID string) (bool, error)
}

// Service contains business logic for events and registrations.
type Service struct {
	repo Store
}

// NewService creates a new event Service.
func NewService(repo Store) *Service {
	return &Service{repo: repo}
}

// Create adds an event owned by creatorID.
func (s *Service) Create(ctx context.Context, creatorID string, f Fields) (*Event, error) {
	f, err := clean(f)
	if err != nil {
		return nil, err
	}
	return s.repo.Create(ctx, creatorID, f)
}

// List returns all events.
func (s *Service) List(ctx context.Context) ([]Event, error) {
	return s.repo.List(ctx)
}

// Get returns a single event.
func (s *Service) Get(ctx context.Context, id string) (*Event, error) {
	if !validID(id) {
		return nil, ErrNotFound
	}
	return s.repo.GetByID(ctx, id)
}

// Update replaces an event's fields. Only its creator may do so.
func (s *Service) Update(ctx context.Context, actorID, eventID string, f Fields) (*Event, error) {
	existing, err := s.Get(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if existing.CreatedBy != actorID {
		return nil, ErrNotCreator
	}
	f, err = clean(f)
	if err != nil {
		return nil, err
	}
	return s.repo.Update(ctx, eventID, f)
}

// MyEvents returns the events created by userID.
func (s *Service) MyEvents(ctx context.Context, userID string) ([]Event, error) {
	return s.repo.ListByCreator(ctx, userID)
}

// Register signs userID up for eventID.
func (s *Service) Register(ctx context.Context, eventID, userID string) error {
	if _, err := s.Get(ctx, eventID); err != nil {
		return err
	}
	return s.repo.Register(ctx, eventID, userID)
}

// RegisteredEvents returns the events userID signed up for.
func (s *Service) RegisteredEvents(ctx context.Context, userID string) ([]Event, error) {
	return s.repo.ListRegistered(ctx, userID)
}

// IsRegistered reports whether userID is registered for eventID.
// Unknown events are reported as ErrNotFound.
func (s *Service) IsRegistered(ctx context.Context, eventID, userID string) (bool, error) {
	if _, err := s.Get(ctx, eventID); err != nil {
		return false, err
	}
	return s.repo.IsRegistered(ctx, eventID, userID)
}

func clean(f Fields) (Fields, error) {
	f.Title = strings.TrimSpace(f.Title)
	f.Description = strings.TrimSpace(f.Description)
	f.Venue = strings.TrimSpace(f.Venue)
	if f.CollegeID != nil && *f.CollegeID == "" {
		f.CollegeID = nil
	}
	if f.Title == "" || f.StartsAt.IsZero() || f.Fee < 0 {
		return f, ErrInvalidFields
	}
	if f.CollegeID != nil && !validID(*f.CollegeID) {
		return f, ErrUnknownCollege
	}
	return f, nil
}

func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
