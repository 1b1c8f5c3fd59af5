package service

import (
	"errors"
	"testing"

	"openwfm/api/internal/model"
)

// =============================================================================
// POINT-IN-POLYGON TESTS
// =============================================================================

func TestPointInPolygon_Inside(t *testing.T) {
	// GIVEN: A square from (0,0) to (10,10)
	// WHEN: Testing a point well inside
	// THEN: The point is in

	ring := model.PolygonRing{
		{Lat: 0, Lon: 0}, {Lat: 0, Lon: 10}, {Lat: 10, Lon: 10}, {Lat: 10, Lon: 0},
	}
	if !PointInPolygon(ring, 5, 5) {
		t.Error("Expected (5,5) inside the square")
	}
}

func TestPointInPolygon_Outside(t *testing.T) {
	ring := model.PolygonRing{
		{Lat: 0, Lon: 0}, {Lat: 0, Lon: 10}, {Lat: 10, Lon: 10}, {Lat: 10, Lon: 0},
	}
	if PointInPolygon(ring, 15, 5) {
		t.Error("Expected (15,5) outside the square")
	}
	if PointInPolygon(ring, 5, -1) {
		t.Error("Expected (5,-1) outside the square")
	}
}

func TestPointInPolygon_BoundaryIsInside(t *testing.T) {
	// GIVEN: A square from (0,0) to (10,10)
	// WHEN: Testing points exactly on an edge and on a vertex
	// THEN: Both count as inside

	ring := model.PolygonRing{
		{Lat: 0, Lon: 0}, {Lat: 0, Lon: 10}, {Lat: 10, Lon: 10}, {Lat: 10, Lon: 0},
	}
	if !PointInPolygon(ring, 0, 5) {
		t.Error("Expected edge point (0,5) inside")
	}
	if !PointInPolygon(ring, 10, 10) {
		t.Error("Expected vertex (10,10) inside")
	}
}

func TestPointInPolygon_ExplicitClosingVertex(t *testing.T) {
	// A ring that repeats the first vertex at the end behaves the same as one
	// that does not.
	closed := model.PolygonRing{
		{Lat: 0, Lon: 0}, {Lat: 0, Lon: 10}, {Lat: 10, Lon: 10}, {Lat: 10, Lon: 0}, {Lat: 0, Lon: 0},
	}
	if !PointInPolygon(closed, 5, 5) {
		t.Error("Expected (5,5) inside the explicitly closed square")
	}
	if PointInPolygon(closed, 15, 5) {
		t.Error("Expected (15,5) outside the explicitly closed square")
	}
}

func TestPointInPolygon_ConcavePolygon(t *testing.T) {
	// GIVEN: A U-shaped (concave) polygon
	// WHEN: Testing a point in the notch
	// THEN: The point is out, while points in both arms are in

	ring := model.PolygonRing{
		{Lat: 0, Lon: 0}, {Lat: 10, Lon: 0}, {Lat: 10, Lon: 3},
		{Lat: 2, Lon: 3}, {Lat: 2, Lon: 7}, {Lat: 10, Lon: 7},
		{Lat: 10, Lon: 10}, {Lat: 0, Lon: 10},
	}
	if PointInPolygon(ring, 8, 5) {
		t.Error("Expected notch point (8,5) outside the U shape")
	}
	if !PointInPolygon(ring, 8, 1) {
		t.Error("Expected left arm point (8,1) inside the U shape")
	}
	if !PointInPolygon(ring, 8, 9) {
		t.Error("Expected right arm point (8,9) inside the U shape")
	}
}

func TestPointInPolygon_DegenerateRing(t *testing.T) {
	// Fewer than 3 distinct vertices can never contain a point.
	if PointInPolygon(model.PolygonRing{{Lat: 0, Lon: 0}, {Lat: 10, Lon: 10}}, 5, 5) {
		t.Error("Expected 2-vertex ring to contain nothing")
	}
	if PointInPolygon(nil, 5, 5) {
		t.Error("Expected nil ring to contain nothing")
	}
}

// =============================================================================
// VALIDATION TESTS
// =============================================================================

func TestValidateCoordinate_Range(t *testing.T) {
	v := NewGeoValidator()

	if err := v.ValidateCoordinate(45, 120); err != nil {
		t.Errorf("Expected valid coordinate, got %v", err)
	}
	if err := v.ValidateCoordinate(90, -180); err != nil {
		t.Errorf("Expected boundary coordinate valid, got %v", err)
	}
	if err := v.ValidateCoordinate(90.1, 0); !errors.Is(err, ErrInvalidCoordinate) {
		t.Errorf("Expected ErrInvalidCoordinate for lat 90.1, got %v", err)
	}
	if err := v.ValidateCoordinate(0, -180.5); !errors.Is(err, ErrInvalidCoordinate) {
		t.Errorf("Expected ErrInvalidCoordinate for lon -180.5, got %v", err)
	}
}

func TestValidate_InactiveZone(t *testing.T) {
	// GIVEN: A point inside the ring of a deactivated zone
	// WHEN: Validating
	// THEN: The inactive failure wins over containment

	v := NewGeoValidator()
	zone := &model.Geozone{
		Polygon:  squareAround(10, 10),
		IsActive: false,
	}
	if err := v.Validate(zone, 10, 10); !errors.Is(err, ErrGeozoneInactive) {
		t.Errorf("Expected ErrGeozoneInactive, got %v", err)
	}
}

func TestValidate_OutsideZone(t *testing.T) {
	v := NewGeoValidator()
	zone := &model.Geozone{
		Polygon:  squareAround(10, 10),
		IsActive: true,
	}
	if err := v.Validate(zone, 50, 50); !errors.Is(err, ErrOutsideGeozone) {
		t.Errorf("Expected ErrOutsideGeozone, got %v", err)
	}
	if err := v.Validate(zone, 10.5, 9.5); err != nil {
		t.Errorf("Expected point inside zone, got %v", err)
	}
}

func TestValidate_InvalidCoordinateBeatsContainment(t *testing.T) {
	// An out-of-range coordinate is reported as invalid input, not as a
	// geofence miss.
	v := NewGeoValidator()
	zone := &model.Geozone{
		Polygon:  squareAround(10, 10),
		IsActive: true,
	}
	if err := v.Validate(zone, 91, 10); !errors.Is(err, ErrInvalidCoordinate) {
		t.Errorf("Expected ErrInvalidCoordinate, got %v", err)
	}
}
