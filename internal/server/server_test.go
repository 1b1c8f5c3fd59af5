package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"openwfm/api/internal/config"
	"openwfm/api/internal/middleware"
	"openwfm/api/internal/model"
)

const testSecret = "test-secret"

func newTestServer(t *testing.T) (*Server, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, model.AutoMigrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	cfg := &config.Config{
		JWTSecret:          testSecret,
		GeoEventRateLimit:  60,
		GeoEventRateWindow: time.Minute,
	}
	srv := NewServer(cfg, db, nil, nil)
	srv.SetRateLimiter(middleware.NewMemoryRateLimiter())
	srv.Setup()
	return srv, db
}

func token(t *testing.T, sub, orgID, role string) string {
	t.Helper()
	claims := jwt.MapClaims{
		"sub":    sub,
		"org_id": orgID,
		"role":   role,
		"exp":    time.Now().Add(time.Hour).Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

func doJSON(t *testing.T, srv *Server, method, path, bearer string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	w := httptest.NewRecorder()
	srv.GetRouter().ServeHTTP(w, req)
	return w
}

func seedWorksite(t *testing.T, db *gorm.DB) {
	t.Helper()
	require.NoError(t, db.Create(&model.Organization{ID: "org-1", Name: "Acme", Settings: model.JSONMap{}}).Error)
	require.NoError(t, db.Create(&model.User{ID: "worker-1", OrgID: "org-1", Role: model.RoleWorker, EmployeeCode: "EMP001"}).Error)
	require.NoError(t, db.Create(&model.Project{
		ID: "proj-1", OrgID: "org-1", Name: "Site A",
		DefaultRate: decimal.NewFromInt(20),
	}).Error)
	require.NoError(t, db.Create(&model.Geozone{
		ID: "zone-1", ProjectID: "proj-1", Name: "Site A fence", IsActive: true,
		Polygon: model.PolygonRing{
			{Lat: 9, Lon: 9}, {Lat: 9, Lon: 11}, {Lat: 11, Lon: 11}, {Lat: 11, Lon: 9},
		},
	}).Error)
}

func TestAPI_RequiresAuth(t *testing.T) {
	srv, _ := newTestServer(t)

	w := doJSON(t, srv, http.MethodGet, "/api/v1/timesheets", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doJSON(t, srv, http.MethodGet, "/api/v1/timesheets", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAPI_HealthIsPublic(t *testing.T) {
	srv, _ := newTestServer(t)
	w := doJSON(t, srv, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAPI_GeoEventRoundTrip(t *testing.T) {
	// GIVEN: A worker inside the fence
	// WHEN: Posting an entry, then an exit
	// THEN: 201 opens the session, the exit closes it, and a second entry
	//       without an exit conflicts

	srv, db := newTestServer(t)
	seedWorksite(t, db)
	worker := token(t, "worker-1", "org-1", model.RoleWorker)

	entry := gin.H{"geozone_id": "zone-1", "event_type": "entry", "lat": 10, "lon": 10}
	w := doJSON(t, srv, http.MethodPost, "/api/v1/geoevents", worker, entry)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = doJSON(t, srv, http.MethodPost, "/api/v1/geoevents", worker, entry)
	assert.Equal(t, http.StatusConflict, w.Code)

	exit := gin.H{"geozone_id": "zone-1", "event_type": "exit", "lat": 10, "lon": 10}
	w = doJSON(t, srv, http.MethodPost, "/api/v1/geoevents", worker, exit)
	assert.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = doJSON(t, srv, http.MethodGet, "/api/v1/timesheets/open", worker, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"open":false`)
}

func TestAPI_GeoEventOutsideFence(t *testing.T) {
	srv, db := newTestServer(t)
	seedWorksite(t, db)
	worker := token(t, "worker-1", "org-1", model.RoleWorker)

	w := doJSON(t, srv, http.MethodPost, "/api/v1/geoevents", worker,
		gin.H{"geozone_id": "zone-1", "event_type": "entry", "lat": 40, "lon": 40})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAPI_GeoEventRequiresCoordinates(t *testing.T) {
	// An omitted coordinate is invalid input, not a (0,0) ping.
	srv, db := newTestServer(t)
	seedWorksite(t, db)
	worker := token(t, "worker-1", "org-1", model.RoleWorker)

	w := doJSON(t, srv, http.MethodPost, "/api/v1/geoevents", worker,
		gin.H{"geozone_id": "zone-1", "event_type": "entry", "lon": 10})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, srv, http.MethodGet, "/api/v1/timesheets/open", worker, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"open":false`)
}

func TestAPI_WorkerCannotTouchManagerSurface(t *testing.T) {
	srv, db := newTestServer(t)
	seedWorksite(t, db)
	worker := token(t, "worker-1", "org-1", model.RoleWorker)

	w := doJSON(t, srv, http.MethodGet, "/api/v1/financials/summary", worker, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = doJSON(t, srv, http.MethodPatch, "/api/v1/settings/overtime", worker,
		gin.H{"saturdayMultiplier": 3.0})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestAPI_OvertimePolicyRoundTrip(t *testing.T) {
	srv, db := newTestServer(t)
	seedWorksite(t, db)
	manager := token(t, "manager-1", "org-1", model.RoleManager)

	w := doJSON(t, srv, http.MethodPatch, "/api/v1/settings/overtime", manager,
		gin.H{"saturdayMultiplier": 1.75})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = doJSON(t, srv, http.MethodGet, "/api/v1/settings/overtime", manager, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"saturdayMultiplier":1.75`)

	w = doJSON(t, srv, http.MethodPatch, "/api/v1/settings/overtime", manager,
		gin.H{"sundayMultiplier": 12.0})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAPI_PayrollExportCSV(t *testing.T) {
	srv, db := newTestServer(t)
	seedWorksite(t, db)
	manager := token(t, "manager-1", "org-1", model.RoleAdmin)

	in := time.Date(2025, 8, 18, 8, 0, 0, 0, time.UTC)
	out := in.Add(8 * time.Hour)
	require.NoError(t, db.Create(&model.Timesheet{
		UserID: "worker-1", ProjectID: "proj-1", Date: "2025-08-18",
		ClockIn: in, ClockOut: &out, DurationMinutes: 480,
		Source: model.SourceManual, Status: model.StatusApproved,
	}).Error)

	w := doJSON(t, srv, http.MethodGet,
		"/api/v1/reports/payroll?from=2025-08-01&to=2025-08-31&format=csv", manager, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "payroll_2025-08-01_2025-08-31.csv")

	lines := strings.Split(strings.TrimSpace(w.Body.String()), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "Employee ID,"))
	assert.Contains(t, lines[1], "EMP001")
	assert.Contains(t, lines[1], "8.00")
}

func TestAPI_RateLimitOnGeoEvents(t *testing.T) {
	// GIVEN: A 2-per-minute submission quota
	// WHEN: The worker posts a third event inside the window
	// THEN: 429 before any session state is touched

	srv, db := newTestServer(t)
	seedWorksite(t, db)

	cfg := &config.Config{
		JWTSecret:          testSecret,
		GeoEventRateLimit:  2,
		GeoEventRateWindow: time.Minute,
	}
	srv = NewServer(cfg, db, nil, nil)
	srv.SetRateLimiter(middleware.NewMemoryRateLimiter())
	srv.Setup()

	worker := token(t, "worker-1", "org-1", model.RoleWorker)
	entry := gin.H{"geozone_id": "zone-1", "event_type": "entry", "lat": 10, "lon": 10}

	doJSON(t, srv, http.MethodPost, "/api/v1/geoevents", worker, entry)
	doJSON(t, srv, http.MethodPost, "/api/v1/geoevents", worker, entry)

	w := doJSON(t, srv, http.MethodPost, "/api/v1/geoevents", worker, entry)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
}
