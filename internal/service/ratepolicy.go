package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"openwfm/api/internal/model"
)

const overtimePolicyKey = "overtimePolicy"

// RatePolicy resolves effective hourly cost and billing rates and owns the
// per-organization overtime policy stored in the organization settings
// document.
type RatePolicy struct {
	db    *gorm.DB
	audit *AuditPublisher
}

// NewRatePolicy creates a rate policy service
func NewRatePolicy(db *gorm.DB, audit *AuditPublisher) *RatePolicy {
	return &RatePolicy{db: db, audit: audit}
}

// OvertimeMultiplier returns the day-of-week cost multiplier for a
// "YYYY-MM-DD" date. The weekday comes from the date string alone, so the
// result is the same on every machine regardless of local timezone. An
// unparseable date gets the weekday multiplier.
func OvertimeMultiplier(date string, policy model.OvertimePolicy) float64 {
	d, err := time.Parse("2006-01-02", date)
	if err != nil {
		return policy.WeekdayMultiplier
	}
	switch d.Weekday() {
	case time.Saturday:
		return policy.SaturdayMultiplier
	case time.Sunday:
		return policy.SundayMultiplier
	default:
		return policy.WeekdayMultiplier
	}
}

// GetOvertimePolicy reads the organization's policy, falling back to the
// defaults {1.5, 2.0, 1.0} when the organization or the policy is absent.
func (r *RatePolicy) GetOvertimePolicy(ctx context.Context, orgID string) model.OvertimePolicy {
	var org model.Organization
	if err := r.db.WithContext(ctx).First(&org, "id = ?", orgID).Error; err != nil {
		return model.DefaultOvertimePolicy()
	}
	raw, ok := org.Settings[overtimePolicyKey]
	if !ok {
		return model.DefaultOvertimePolicy()
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return model.DefaultOvertimePolicy()
	}
	policy := model.DefaultOvertimePolicy()
	if err := json.Unmarshal(data, &policy); err != nil {
		return model.DefaultOvertimePolicy()
	}
	return policy
}

// UpdateOvertimePolicy merges the given multipliers over the current policy
// and upserts the organization settings document. Multipliers are validated
// here, at configuration time, never at computation time.
func (r *RatePolicy) UpdateOvertimePolicy(ctx context.Context, actorID, orgID string, saturday, sunday, weekday *float64) (model.OvertimePolicy, error) {
	previous := r.GetOvertimePolicy(ctx, orgID)
	policy := previous
	if saturday != nil {
		policy.SaturdayMultiplier = *saturday
	}
	if sunday != nil {
		policy.SundayMultiplier = *sunday
	}
	if weekday != nil {
		policy.WeekdayMultiplier = *weekday
	}
	if !policy.Valid() {
		return model.OvertimePolicy{}, ErrInvalidMultiplier
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var org model.Organization
		err := tx.First(&org, "id = ?", orgID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			org = model.Organization{ID: orgID, Name: "Organization", Settings: model.JSONMap{}}
			if err := tx.Create(&org).Error; err != nil {
				return err
			}
		} else if err != nil {
			return err
		}
		if org.Settings == nil {
			org.Settings = model.JSONMap{}
		}
		org.Settings[overtimePolicyKey] = policy
		return tx.Model(&org).Update("settings", org.Settings).Error
	})
	if err != nil {
		return model.OvertimePolicy{}, err
	}

	r.audit.Record(overtimeAuditEvent(actorID, orgID, previous, policy))
	return policy, nil
}

// overtimeAuditEvent records a policy change with the full previous and new
// multiplier sets, so the consumer can reconstruct the change without a read.
func overtimeAuditEvent(actorID, orgID string, previous, next model.OvertimePolicy) model.AuditEvent {
	prev, _ := json.Marshal(previous)
	cur, _ := json.Marshal(next)
	return model.AuditEvent{
		UserID:        actorID,
		Action:        model.AuditOvertimeUpdated,
		EntityType:    "organization",
		EntityID:      orgID,
		Details:       "Overtime policy updated",
		PreviousValue: string(prev),
		NewValue:      string(cur),
	}
}

// EffectiveCostRate returns the hourly labour cost for a worker on a project
// on a given date: the active allocation rate covering the date when one
// exists, else the project default, times the overtime multiplier.
func (r *RatePolicy) EffectiveCostRate(ctx context.Context, orgID, workerID, projectID, date string) (decimal.Decimal, error) {
	base, err := r.BaseCostRate(ctx, workerID, projectID, date)
	if err != nil {
		return decimal.Zero, err
	}
	policy := r.GetOvertimePolicy(ctx, orgID)
	mult := OvertimeMultiplier(date, policy)
	return base.Mul(decimal.NewFromFloat(mult)), nil
}

// BaseCostRate returns the allocation or project-default rate without the
// overtime multiplier applied.
func (r *RatePolicy) BaseCostRate(ctx context.Context, workerID, projectID, date string) (decimal.Decimal, error) {
	day, perr := time.Parse("2006-01-02", date)

	var alloc model.Allocation
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND project_id = ? AND is_active = ?", workerID, projectID, true).
		First(&alloc).Error
	if err == nil && (perr != nil || alloc.Covers(day)) {
		return alloc.HourlyRate, nil
	}
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return decimal.Zero, err
	}

	project, err := r.project(ctx, projectID)
	if err != nil {
		return decimal.Zero, err
	}
	return project.DefaultRate, nil
}

// EffectiveBillingRate returns the client rate, or the project default when
// none is set. Billing never carries the overtime multiplier; overtime is an
// internal cost, not something billed to the client.
func (r *RatePolicy) EffectiveBillingRate(ctx context.Context, projectID string) (decimal.Decimal, error) {
	project, err := r.project(ctx, projectID)
	if err != nil {
		return decimal.Zero, err
	}
	return project.BillingRate(), nil
}

func (r *RatePolicy) project(ctx context.Context, projectID string) (*model.Project, error) {
	var project model.Project
	if err := r.db.WithContext(ctx).First(&project, "id = ?", projectID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &project, nil
}
