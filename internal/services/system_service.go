package services

import (
	"context"
	"errors"

	domain "github.com/timi-123/shop-admin-sub000/internal/domain"
	"github.com/timi-123/shop-admin-sub000/internal/repositories"
)

type systemService struct {
	health repositories.HealthRepository
}

// NewSystemService exposes dependency health to the readiness endpoint.
func NewSystemService(health repositories.HealthRepository) (SystemService, error) {
	if health == nil {
		return nil, errors.New("system service: health repository is required")
	}
	return &systemService{health: health}, nil
}

func (s *systemService) HealthReport(ctx context.Context) (domain.SystemHealthReport, error) {
	return s.health.Collect(ctx)
}
