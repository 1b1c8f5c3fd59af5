package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Timesheet statuses
const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"
	StatusFlagged  = "flagged"
)

// Timesheet sources
const (
	SourceGeofence = "geofence"
	SourceManual   = "manual"
	SourceKiosk    = "kiosk"
)

// ValidStatus reports whether s is a known timesheet status.
func ValidStatus(s string) bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected, StatusFlagged:
		return true
	}
	return false
}

// Timesheet is one work session from clock-in to an optional clock-out.
// A nil ClockOut means the session is open; the partial unique index on
// (user_id) WHERE clock_out IS NULL guarantees at most one open session per
// worker, so concurrent clock-ins resolve at the storage layer.
type Timesheet struct {
	ID               string     `json:"id" gorm:"primaryKey;size:64"`
	UserID           string     `json:"user_id" gorm:"size:64;not null;index"`
	ProjectID        string     `json:"project_id" gorm:"size:64;not null;index"`
	GeozoneID        *string    `json:"geozone_id" gorm:"size:64"`
	Date             string     `json:"date" gorm:"size:10;not null;index"` // YYYY-MM-DD of clock-in
	ClockIn          time.Time  `json:"clock_in" gorm:"not null"`
	ClockOut         *time.Time `json:"clock_out"`
	DurationMinutes  int        `json:"duration_minutes" gorm:"default:0"`
	Source           string     `json:"source" gorm:"size:20;default:'manual'"`  // geofence, manual, kiosk
	Status           string     `json:"status" gorm:"size:20;default:'pending'"` // pending, approved, rejected, flagged
	Notes            string     `json:"notes"`
	IsBillable       *bool      `json:"is_billable" gorm:"default:true"`
	ApprovedByID     *string    `json:"approved_by" gorm:"size:64"`
	ApprovedAt       *time.Time `json:"approved_at"`
	AdjustmentReason string     `json:"adjustment_reason,omitempty" gorm:"size:255"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`

	User    *User    `json:"user,omitempty"`
	Project *Project `json:"project,omitempty"`
	Geozone *Geozone `json:"geozone,omitempty"`
}

// BeforeCreate assigns an id when none was supplied
func (t *Timesheet) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	return nil
}

// Billable treats an unset flag as billable.
func (t *Timesheet) Billable() bool {
	return t.IsBillable == nil || *t.IsBillable
}

// Open reports whether the session has no clock-out yet.
func (t *Timesheet) Open() bool {
	return t.ClockOut == nil
}

// Hours returns the recorded duration in hours.
func (t *Timesheet) Hours() float64 {
	return float64(t.DurationMinutes) / 60
}
