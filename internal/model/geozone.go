package model

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// LatLon is a WGS84 coordinate pair
type LatLon struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// PolygonRing is an ordered, implicitly closed ring of coordinates stored as JSONB.
// A valid ring has at least 3 distinct vertices; a repeated closing vertex is
// tolerated but not required.
type PolygonRing []LatLon

// Value implements driver.Valuer.
func (r PolygonRing) Value() (driver.Value, error) {
	if r == nil {
		return nil, nil
	}
	return json.Marshal(r)
}

// Scan implements sql.Scanner.
func (r *PolygonRing) Scan(value interface{}) error {
	if value == nil {
		*r = nil
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, r)
	case string:
		return json.Unmarshal([]byte(v), r)
	default:
		return errors.New("unsupported type for PolygonRing")
	}
}

// Geozone represents a geofenced work area tied to a project
type Geozone struct {
	ID           string         `json:"id" gorm:"primaryKey;size:64"`
	ProjectID    string         `json:"project_id" gorm:"size:64;index;not null"`
	Name         string         `json:"name" gorm:"size:100;not null"`
	Description  string         `json:"description"`
	Polygon      PolygonRing    `json:"polygon" gorm:"type:jsonb;not null"`
	RadiusMeters float64        `json:"radius_meters"`        // presentation only
	Color        string         `json:"color" gorm:"size:20"` // presentation only
	IsActive     bool           `json:"is_active" gorm:"default:true"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `json:"-" gorm:"index"`

	Project *Project `json:"project,omitempty"`
}

// BeforeCreate assigns an id when none was supplied
func (g *Geozone) BeforeCreate(tx *gorm.DB) error {
	if g.ID == "" {
		g.ID = uuid.NewString()
	}
	return nil
}

// Geo-event types
const (
	GeoEventEntry = "entry"
	GeoEventExit  = "exit"
)

// GeoEvent is one row of the append-only geo-event log. Events are written as
// a side effect of session transitions and are never updated or deleted; they
// are not authoritative for session state.
type GeoEvent struct {
	ID         string    `json:"id" gorm:"primaryKey;size:64"`
	UserID     string    `json:"user_id" gorm:"size:64;index;not null"`
	GeozoneID  string    `json:"geozone_id" gorm:"size:64;index;not null"`
	EventType  string    `json:"event_type" gorm:"size:10;not null"` // entry, exit
	Lat        float64   `json:"lat"`
	Lon        float64   `json:"lon"`
	Timestamp  time.Time `json:"timestamp"` // as reported by the ping, not insertion time
	DeviceInfo JSONMap   `json:"device_info,omitempty" gorm:"type:jsonb"`
	CreatedAt  time.Time `json:"created_at"`
}

// BeforeCreate assigns an id when none was supplied
func (e *GeoEvent) BeforeCreate(tx *gorm.DB) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	return nil
}
