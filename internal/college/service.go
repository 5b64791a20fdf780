package college

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
)

// ErrNameRequired is returned when a college has no name.
var ErrNameRequired = errors.New("college name is required")

// Store is the persistence the college service needs. *Repository implements it.
type Store interface {
	Create(ctx context.Context, name, city string) (*College, error)
	List(ctx context.Context) ([]College, error)
	Update(ctx context.Context, id, name, city string) (*College, error)
	Delete(ctx context.Context, id string) error
}

// Service contains business logic for colleges.
type Service struct {
	repo Store
}

// NewService creates a new college Service.
func NewService(repo Store) *Service {
	return &Service{repo: repo}
}

// Create adds a college.
func (s *Service) Create(ctx context.Context, name, city string) (*College, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrNameRequired
	}
	return s.repo.Create(ctx, name, strings.TrimSpace(city))
}

// List returns all colleges.
func (s *Service) List(ctx context.Context) ([]College, error) {
	return s.repo.List(ctx)
}

// Update replaces a college's name and city.
func (s *Service) Update(ctx context.Context, id, name, city string) (*College, error) {
	if !validID(id) {
		return nil, ErrNotFound
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrNameRequired
	}
	return s.repo.Update(ctx, id, name, strings.TrimSpace(city))
}

// Delete removes a college.
func (s *Service) Delete(ctx context.Context, id string) error {
	if !validID(id) {
		return ErrNotFound
	}
	return s.repo.Delete(ctx, id)
}

func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
