package service

import (
	"openwfm/api/internal/model"
)

// GeoValidator decides whether a reported coordinate lies inside an active
// geozone. Pure planar geometry on double-precision lat/lon; at geofence
// scale (hundreds of meters) no geodesic correction is needed.
type GeoValidator struct{}

// NewGeoValidator creates a geo validator
func NewGeoValidator() *GeoValidator {
	return &GeoValidator{}
}

// ValidateCoordinate rejects out-of-range latitude/longitude as invalid
// input, not as "outside the fence".
func (v *GeoValidator) ValidateCoordinate(lat, lon float64) error {
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return ErrInvalidCoordinate
	}
	return nil
}

// Validate checks the coordinate against the zone: coordinate range, zone
// active flag, then point-in-polygon.
func (v *GeoValidator) Validate(zone *model.Geozone, lat, lon float64) error {
	if err := v.ValidateCoordinate(lat, lon); err != nil {
		return err
	}
	if zone == nil {
		return ErrGeozoneNotFound
	}
	if !zone.IsActive {
		return ErrGeozoneInactive
	}
	if !PointInPolygon(zone.Polygon, lat, lon) {
		return ErrOutsideGeozone
	}
	return nil
}

// PointInPolygon reports whether (lat, lon) lies inside the ring using ray
// casting. The ring is treated as implicitly closed; a repeated closing
// vertex is tolerated. Boundary points count as inside so a worker standing
// exactly on the fence line is not rejected.
func PointInPolygon(ring model.PolygonRing, lat, lon float64) bool {
	n := len(ring)
	// Drop an explicit closing vertex.
	if n > 1 && ring[0] == ring[n-1] {
		ring = ring[:n-1]
		n--
	}
	if n < 3 {
		return false
	}

	inside := false
	j := n - 1
	for i := 0; i < n; i++ {
		pi, pj := ring[i], ring[j]

		if onSegment(pi, pj, lat, lon) {
			return true
		}

		if (pi.Lon > lon) != (pj.Lon > lon) &&
			lat < (pj.Lat-pi.Lat)*(lon-pi.Lon)/(pj.Lon-pi.Lon)+pi.Lat {
			inside = !inside
		}
		j = i
	}
	return inside
}

// onSegment reports whether the point lies on the edge between a and b.
func onSegment(a, b model.LatLon, lat, lon float64) bool {
	cross := (b.Lat-a.Lat)*(lon-a.Lon) - (b.Lon-a.Lon)*(lat-a.Lat)
	if cross != 0 {
		return false
	}
	if lon < min(a.Lon, b.Lon) || lon > max(a.Lon, b.Lon) {
		return false
	}
	if lat < min(a.Lat, b.Lat) || lat > max(a.Lat, b.Lat) {
		return false
	}
	return true
}
