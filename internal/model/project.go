package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Project statuses
const (
	ProjectActive    = "active"
	ProjectCompleted = "completed"
	ProjectOnHold    = "on_hold"
	ProjectArchived  = "archived"
)

// Project represents a client project with its default cost and billing rates
type Project struct {
	ID          string           `json:"id" gorm:"primaryKey;size:64"`
	OrgID       string           `json:"org_id" gorm:"size:64;index;not null"`
	Name        string           `json:"name" gorm:"size:100;not null"`
	Client      string           `json:"client" gorm:"size:100"`
	Description string           `json:"description"`
	Status      string           `json:"status" gorm:"size:20;default:'active'"`
	DefaultRate decimal.Decimal  `json:"default_rate" gorm:"type:numeric(10,2)"`
	ClientRate  *decimal.Decimal `json:"client_rate" gorm:"type:numeric(10,2)"` // nil: bill at default rate
	Budget      *decimal.Decimal `json:"budget" gorm:"type:numeric(12,2)"`
	Address     string           `json:"address" gorm:"size:255"`
	StartDate   *time.Time       `json:"start_date"`
	EndDate     *time.Time       `json:"end_date"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
	DeletedAt   gorm.DeletedAt   `json:"-" gorm:"index"`
}

// BeforeCreate assigns an id when none was supplied
func (p *Project) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

// BillingRate returns the client rate, falling back to the default rate when unset.
func (p *Project) BillingRate() decimal.Decimal {
	if p.ClientRate != nil && !p.ClientRate.IsZero() {
		return *p.ClientRate
	}
	return p.DefaultRate
}

// Allocation assigns a worker to a project at an hourly cost rate that
// overrides the project default. At most one active allocation may exist per
// (worker, project) pair; the partial unique index enforces it.
type Allocation struct {
	ID            string          `json:"id" gorm:"primaryKey;size:64"`
	UserID        string          `json:"user_id" gorm:"size:64;not null;index:idx_alloc_user_project"`
	ProjectID     string          `json:"project_id" gorm:"size:64;not null;index:idx_alloc_user_project"`
	RoleOnProject string          `json:"role_on_project" gorm:"size:50"`
	HourlyRate    decimal.Decimal `json:"hourly_rate" gorm:"type:numeric(10,2)"`
	StartDate     time.Time       `json:"start_date"`
	EndDate       *time.Time      `json:"end_date"`
	IsActive      bool            `json:"is_active" gorm:"default:true"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`

	User    *User    `json:"user,omitempty"`
	Project *Project `json:"project,omitempty"`
}

// BeforeCreate assigns an id when none was supplied
func (a *Allocation) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}

// Covers reports whether the allocation is in effect on the given date.
func (a *Allocation) Covers(date time.Time) bool {
	if date.Before(a.StartDate.Truncate(24 * time.Hour)) {
		return false
	}
	if a.EndDate != nil && date.After(*a.EndDate) {
		return false
	}
	return true
}
