package model

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// JSONMap is a helper type for JSONB fields
type JSONMap map[string]interface{}

// Value implements driver.Valuer so JSONMap round-trips through the database.
func (m JSONMap) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	return json.Marshal(m)
}

// Scan implements sql.Scanner.
func (m *JSONMap) Scan(value interface{}) error {
	if value == nil {
		*m = nil
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, m)
	case string:
		return json.Unmarshal([]byte(v), m)
	default:
		return errors.New("unsupported type for JSONMap")
	}
}

// Organization holds per-tenant settings as a single JSON document.
// The overtime policy lives under settings["overtimePolicy"].
type Organization struct {
	ID        string    `json:"id" gorm:"primaryKey;size:64"`
	Name      string    `json:"name" gorm:"size:100"`
	Settings  JSONMap   `json:"settings" gorm:"type:jsonb"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Default overtime multipliers applied when an organization has no stored policy.
const (
	DefaultSaturdayMultiplier = 1.5
	DefaultSundayMultiplier   = 2.0
	DefaultWeekdayMultiplier  = 1.0
)

// OvertimePolicy holds per-organization day-of-week cost multipliers.
// Multipliers apply to labour cost only, never to client billing.
type OvertimePolicy struct {
	SaturdayMultiplier float64 `json:"saturdayMultiplier"`
	SundayMultiplier   float64 `json:"sundayMultiplier"`
	WeekdayMultiplier  float64 `json:"weekdayMultiplier"`
}

// DefaultOvertimePolicy returns the fallback policy: Sat 1.5x, Sun 2x, weekdays 1x.
func DefaultOvertimePolicy() OvertimePolicy {
	return OvertimePolicy{
		SaturdayMultiplier: DefaultSaturdayMultiplier,
		SundayMultiplier:   DefaultSundayMultiplier,
		WeekdayMultiplier:  DefaultWeekdayMultiplier,
	}
}

// Valid reports whether every multiplier is within the accepted [0, 10] range.
func (p OvertimePolicy) Valid() bool {
	for _, m := range []float64{p.SaturdayMultiplier, p.SundayMultiplier, p.WeekdayMultiplier} {
		if m < 0 || m > 10 {
			return false
		}
	}
	return true
}
