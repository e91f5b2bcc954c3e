package user

import (
	"context"
	"fmt"
	"strings"
)

// Service exposes the user lookups the booking engine depends on.
type Service interface {
	GetByID(ctx context.Context, id string) (*User, error)
	// Actor resolves an authenticated user id into an Actor. Inactive accounts are rejected.
	Actor(ctx context.Context, id string) (Actor, error)
}

type service struct {
	repo Repository
}

// NewService creates a new user Service.
func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) GetByID(ctx context.Context, id string) (*User, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, ErrIDRequired
	}
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("user %s: %w", id, err)
	}
	return u, nil
}

func (s *service) Actor(ctx context.Context, id string) (Actor, error) {
	u, err := s.GetByID(ctx, id)
	if err != nil {
		return Actor{}, err
	}
	if !u.IsActive {
		return Actor{}, fmt.Errorf("user %s: %w", id, ErrInactiveUser)
	}
	return Actor{UserID: u.ID, IsAdmin: u.IsSystemAdmin}, nil
}
