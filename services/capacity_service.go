// services/capacity_service.go
package services

import (
	"context"

	"github.com/kutbulzaman/mlm_backend/models"
	"github.com/kutbulzaman/mlm_backend/repositories"
)

// CapacityService enforces the global member ceiling before any placement
type CapacityService struct {
	repo        repositories.MemberRepository
	maxCapacity int64
}

// NewCapacityService creates an admission guard with the configured ceiling
func NewCapacityService(repo repositories.MemberRepository, maxCapacity int64) *CapacityService {
	return &CapacityService{repo: repo, maxCapacity: maxCapacity}
}

// CheckCapacity is a pure read-check against the configured ceiling
func (s *CapacityService) CheckCapacity(ctx context.Context) (*models.CapacityStatus, error) {
	count, err := s.repo.Count(ctx)
	if err != nil {
		return nil, err
	}
	return &models.CapacityStatus{
		CanAddUser:   count < s.maxCapacity,
		CurrentCount: count,
		MaxCapacity:  s.maxCapacity,
	}, nil
}

// EnsureCapacity fails fast with ErrCapacityExceeded when the system is full
func (s *CapacityService) EnsureCapacity(ctx context.Context) error {
	status, err := s.CheckCapacity(ctx)
	if err != nil {
		return err
	}
	if !status.CanAddUser {
		return ErrCapacityExceeded
	}
	return nil
}
