package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"openwfm/api/internal/model"
)

// GeozoneService handles geozone lookup and management. Reads go through a
// Redis cache because every geo-event submission needs the polygon.
type GeozoneService struct {
	db        *gorm.DB
	redis     *redis.Client
	validator *GeoValidator
}

// NewGeozoneService creates a new geozone service
func NewGeozoneService(db *gorm.DB, redisClient *redis.Client) *GeozoneService {
	return &GeozoneService{
		db:        db,
		redis:     redisClient,
		validator: NewGeoValidator(),
	}
}

// Create validates the ring and stores a new geozone.
func (s *GeozoneService) Create(ctx context.Context, zone *model.Geozone) error {
	if err := s.validateRing(zone.Polygon); err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Create(zone).Error; err != nil {
		return err
	}
	s.cacheZone(ctx, zone)
	return nil
}

// GetByID returns a geozone, trying the cache first.
func (s *GeozoneService) GetByID(ctx context.Context, id string) (*model.Geozone, error) {
	if zone := s.cachedZone(ctx, id); zone != nil {
		return zone, nil
	}

	var zone model.Geozone
	if err := s.db.WithContext(ctx).First(&zone, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrGeozoneNotFound
		}
		return nil, err
	}
	s.cacheZone(ctx, &zone)
	return &zone, nil
}

// List returns geozones, optionally filtered by project.
func (s *GeozoneService) List(ctx context.Context, projectID string) ([]model.Geozone, error) {
	var zones []model.Geozone
	query := s.db.WithContext(ctx).Order("created_at DESC")
	if projectID != "" {
		query = query.Where("project_id = ?", projectID)
	}
	err := query.Find(&zones).Error
	return zones, err
}

// SetActive toggles the active flag.
func (s *GeozoneService) SetActive(ctx context.Context, id string, active bool) error {
	res := s.db.WithContext(ctx).Model(&model.Geozone{}).
		Where("id = ?", id).
		Update("is_active", active)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrGeozoneNotFound
	}
	s.evict(ctx, id)
	return nil
}

// CheckPoint resolves the zone and validates a coordinate against it.
func (s *GeozoneService) CheckPoint(ctx context.Context, id string, lat, lon float64) error {
	zone, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	return s.validator.Validate(zone, lat, lon)
}

// validateRing rejects rings with fewer than 3 distinct vertices or
// out-of-range coordinates.
func (s *GeozoneService) validateRing(ring model.PolygonRing) error {
	pts := ring
	if n := len(pts); n > 1 && pts[0] == pts[n-1] {
		pts = pts[:n-1]
	}
	distinct := map[model.LatLon]struct{}{}
	for _, p := range pts {
		if err := s.validator.ValidateCoordinate(p.Lat, p.Lon); err != nil {
			return err
		}
		distinct[p] = struct{}{}
	}
	if len(distinct) < 3 {
		return fmt.Errorf("%w: polygon must have at least 3 distinct vertices", ErrInvalidCoordinate)
	}
	return nil
}

func (s *GeozoneService) zoneKey(id string) string {
	return fmt.Sprintf("wfm:geozone:%s", id)
}

func (s *GeozoneService) cacheZone(ctx context.Context, zone *model.Geozone) {
	if s.redis == nil {
		return
	}
	data, _ := json.Marshal(zone)
	s.redis.Set(ctx, s.zoneKey(zone.ID), data, time.Hour)
}

func (s *GeozoneService) cachedZone(ctx context.Context, id string) *model.Geozone {
	if s.redis == nil {
		return nil
	}
	data, err := s.redis.Get(ctx, s.zoneKey(id)).Bytes()
	if err != nil {
		return nil
	}
	var zone model.Geozone
	if err := json.Unmarshal(data, &zone); err != nil {
		return nil
	}
	return &zone
}

func (s *GeozoneService) evict(ctx context.Context, id string) {
	if s.redis == nil {
		return
	}
	s.redis.Del(ctx, s.zoneKey(id))
}
