package service

import (
	"fmt"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"openwfm/api/internal/model"
)

// =============================================================================
// TEST SETUP
// =============================================================================

// newTestDB opens an in-memory database with the same schema and error
// translation as production, so the partial unique indexes behave the same.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, model.AutoMigrate(db))

	t.Cleanup(func() {
		sqlDB, err := db.DB()
		if err == nil {
			sqlDB.Close()
		}
	})
	return db
}

func seedOrg(t *testing.T, db *gorm.DB, id string) {
	t.Helper()
	require.NoError(t, db.Create(&model.Organization{
		ID:       id,
		Name:     "Acme Construction",
		Settings: model.JSONMap{},
	}).Error)
}

func seedUser(t *testing.T, db *gorm.DB, id, orgID, code string) {
	t.Helper()
	require.NoError(t, db.Create(&model.User{
		ID:           id,
		OrgID:        orgID,
		FirstName:    "Test",
		LastName:     id,
		Role:         model.RoleWorker,
		EmployeeCode: code,
	}).Error)
}

func seedProject(t *testing.T, db *gorm.DB, id, orgID string, defaultRate float64, clientRate *float64) {
	t.Helper()
	p := model.Project{
		ID:          id,
		OrgID:       orgID,
		Name:        "Project " + id,
		DefaultRate: decimal.NewFromFloat(defaultRate),
	}
	if clientRate != nil {
		cr := decimal.NewFromFloat(*clientRate)
		p.ClientRate = &cr
	}
	require.NoError(t, db.Create(&p).Error)
}

// squareAround returns a 2x2 degree square ring centered on (lat, lon).
func squareAround(lat, lon float64) model.PolygonRing {
	return model.PolygonRing{
		{Lat: lat - 1, Lon: lon - 1},
		{Lat: lat - 1, Lon: lon + 1},
		{Lat: lat + 1, Lon: lon + 1},
		{Lat: lat + 1, Lon: lon - 1},
	}
}

func seedZone(t *testing.T, db *gorm.DB, id, projectID string, ring model.PolygonRing) {
	t.Helper()
	require.NoError(t, db.Create(&model.Geozone{
		ID:        id,
		ProjectID: projectID,
		Name:      "Zone " + id,
		Polygon:   ring,
		IsActive:  true,
	}).Error)
}

func seedAllocation(t *testing.T, db *gorm.DB, userID, projectID string, rate float64) {
	t.Helper()
	require.NoError(t, db.Create(&model.Allocation{
		UserID:     userID,
		ProjectID:  projectID,
		HourlyRate: decimal.NewFromFloat(rate),
		IsActive:   true,
	}).Error)
}

func floatPtr(v float64) *float64 { return &v }
