package space

import (
	"context"
	"fmt"
	"strings"
)

type Service interface {
	GetByID(ctx context.Context, id string) (*Space, error)
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) GetByID(ctx context.Context, id string) (*Space, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, ErrIDRequired
	}
	sp, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("space %s: %w", id, err)
	}
	return sp, nil
}
