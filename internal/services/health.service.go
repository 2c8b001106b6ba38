package services

import (
	"context"
	"fmt"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthService struct {
	db    Pinger
	redis Pinger
}

// NewHealthService checks the given dependencies; a nil one is skipped.
func NewHealthService(db Pinger, redis Pinger) *HealthService {
	return &HealthService{db: db, redis: redis}
}

func (s *HealthService) Check(ctx context.Context) error {
	if s.db != nil {
		if err := s.db.Ping(ctx); err != nil {
			return fmt.Errorf("database: %w", err)
		}
	}
	if s.redis != nil {
		if err := s.redis.Ping(ctx); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
	}
	return nil
}
