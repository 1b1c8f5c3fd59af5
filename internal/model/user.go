package model

import (
	"time"

	"gorm.io/gorm"
)

// Roles supplied by the identity provider.
const (
	RoleAdmin   = "admin"
	RoleManager = "manager"
	RoleWorker  = "worker"
)

// IsAdminOrManager reports whether a role may approve timesheets and manage
// rates and policy.
func IsAdminOrManager(role string) bool {
	return role == RoleAdmin || role == RoleManager
}

// User represents a worker synced from the identity provider
type User struct {
	ID           string         `json:"id" gorm:"primaryKey;size:64"`
	OrgID        string         `json:"org_id" gorm:"size:64;index;not null"`
	Email        string         `json:"email" gorm:"size:100"`
	FirstName    string         `json:"first_name" gorm:"size:50"`
	LastName     string         `json:"last_name" gorm:"size:50"`
	Phone        string         `json:"phone" gorm:"size:20"`
	Role         string         `json:"role" gorm:"size:20;default:'worker'"` // admin, manager, worker
	EmployeeCode string         `json:"employee_code" gorm:"size:32"`
	Status       string         `json:"status" gorm:"size:20;default:'active'"` // active, inactive, suspended
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `json:"-" gorm:"index"`
}

// DisplayName returns "First Last", falling back to the user id.
func (u *User) DisplayName() string {
	name := u.FirstName
	if u.LastName != "" {
		if name != "" {
			name += " "
		}
		name += u.LastName
	}
	if name == "" {
		return u.ID
	}
	return name
}
