package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"openwfm/api/internal/model"
)

// AllocationService manages per-project hourly rate assignments. At most one
// active allocation exists per (worker, project); the partial unique index on
// allocations(user_id, project_id) WHERE is_active enforces it.
type AllocationService struct {
	db    *gorm.DB
	audit *AuditPublisher
}

// NewAllocationService creates an allocation service
func NewAllocationService(db *gorm.DB, audit *AuditPublisher) *AllocationService {
	return &AllocationService{db: db, audit: audit}
}

// List returns active allocations in the organization, optionally filtered
// by project or worker.
func (s *AllocationService) List(ctx context.Context, orgID, projectID, userID string) ([]model.Allocation, error) {
	query := s.db.WithContext(ctx).
		Joins("JOIN projects ON projects.id = allocations.project_id").
		Where("projects.org_id = ? AND allocations.is_active = ?", orgID, true).
		Preload("User").
		Preload("Project").
		Order("allocations.start_date DESC")
	if projectID != "" {
		query = query.Where("allocations.project_id = ?", projectID)
	}
	if userID != "" {
		query = query.Where("allocations.user_id = ?", userID)
	}

	var allocations []model.Allocation
	err := query.Find(&allocations).Error
	return allocations, err
}

// Create stores a new active allocation after checking that both the project
// and the worker belong to the organization.
func (s *AllocationService) Create(ctx context.Context, actorID, orgID string, alloc *model.Allocation) error {
	var count int64
	if err := s.db.WithContext(ctx).Model(&model.Project{}).
		Where("id = ? AND org_id = ?", alloc.ProjectID, orgID).
		Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return fmt.Errorf("%w: project %s", ErrNotFound, alloc.ProjectID)
	}
	if err := s.db.WithContext(ctx).Model(&model.User{}).
		Where("id = ? AND org_id = ?", alloc.UserID, orgID).
		Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return fmt.Errorf("%w: user %s", ErrNotFound, alloc.UserID)
	}

	if alloc.StartDate.IsZero() {
		alloc.StartDate = time.Now()
	}
	alloc.IsActive = true
	if err := s.db.WithContext(ctx).Create(alloc).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrAllocationExists
		}
		return err
	}

	s.audit.Record(model.AuditEvent{
		UserID:     actorID,
		Action:     model.AuditAllocationCreated,
		EntityType: "allocation",
		EntityID:   alloc.ID,
		Details:    fmt.Sprintf("Allocation created: user %s on project %s", alloc.UserID, alloc.ProjectID),
	})
	return nil
}

// Deactivate ends an allocation; the worker falls back to the project
// default rate from now on.
func (s *AllocationService) Deactivate(ctx context.Context, actorID, orgID, id string) error {
	now := time.Now()
	res := s.db.WithContext(ctx).Model(&model.Allocation{}).
		Where("id = ? AND is_active = ?", id, true).
		Where("project_id IN (?)", s.db.Model(&model.Project{}).Select("id").Where("org_id = ?", orgID)).
		Updates(map[string]interface{}{"is_active": false, "end_date": now})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}

	s.audit.Record(model.AuditEvent{
		UserID:     actorID,
		Action:     model.AuditAllocationRemoved,
		EntityType: "allocation",
		EntityID:   id,
	})
	return nil
}
