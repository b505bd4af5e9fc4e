package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/lab-scheduler-api/internal/handler"
	"github.com/noah-isme/lab-scheduler-api/internal/middleware"
	"github.com/noah-isme/lab-scheduler-api/internal/models"
	"github.com/noah-isme/lab-scheduler-api/internal/service"
	"github.com/noah-isme/lab-scheduler-api/pkg/config"
	appErrors "github.com/noah-isme/lab-scheduler-api/pkg/errors"
)

type roleTokens struct{}

// ValidateToken treats the bearer token as the caller's role.
func (roleTokens) ValidateToken(token string) (*models.JWTClaims, error) {
	switch models.UserRole(token) {
	case models.RoleProfessor, models.RoleLabAssistant, models.RoleAdmin:
		return &models.JWTClaims{UserID: "user-" + token, Role: models.UserRole(token)}, nil
	}
	return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token")
}

type schedulesStub struct{}

func (schedulesStub) CheckAvailability(ctx context.Context, labID, date, slot string) (*models.Availability, error) {
	return &models.Availability{Available: true, Conflicts: []models.ConflictingBooking{}}, nil
}

func (schedulesStub) Create(ctx context.Context, actor models.ActingUser, req service.CreateScheduleRequest) (*models.ScheduleDetail, error) {
	return &models.ScheduleDetail{Schedule: models.Schedule{ID: "sched-1", ProfessorID: actor.ID}}, nil
}

func (schedulesStub) Update(ctx context.Context, actor models.ActingUser, id string, req service.UpdateScheduleRequest) (*models.ScheduleDetail, error) {
	return &models.ScheduleDetail{Schedule: models.Schedule{ID: id}}, nil
}

func (schedulesStub) Cancel(ctx context.Context, actor models.ActingUser, id string) error {
	return nil
}

func (schedulesStub) Get(ctx context.Context, id string) (*models.ScheduleDetail, error) {
	return &models.ScheduleDetail{Schedule: models.Schedule{ID: id}}, nil
}

func (schedulesStub) ListAll(ctx context.Context, filter models.ScheduleFilter) ([]models.ScheduleDetail, *models.Pagination, error) {
	return []models.ScheduleDetail{}, &models.Pagination{Page: 1, PageSize: 20}, nil
}

func (schedulesStub) ListMine(ctx context.Context, actor models.ActingUser, filter models.ScheduleFilter) ([]models.ScheduleDetail, *models.Pagination, error) {
	return []models.ScheduleDetail{}, &models.Pagination{Page: 1, PageSize: 20}, nil
}

func (schedulesStub) Export(ctx context.Context, filter models.ScheduleFilter, format string) (*service.ExportResult, error) {
	return &service.ExportResult{Filename: "lab_schedules.csv", ContentType: "text/csv", Body: []byte("Date\n")}, nil
}

type labsStub struct{}

func (labsStub) List(ctx context.Context) ([]models.Lab, error) { return []models.Lab{}, nil }

func (labsStub) Get(ctx context.Context, identifier string) (*models.Lab, error) {
	return &models.Lab{ID: "lab-1", Slug: identifier}, nil
}

func (labsStub) Create(ctx context.Context, req service.CreateLabRequest) (*models.Lab, error) {
	return &models.Lab{ID: "lab-2", Slug: req.Slug}, nil
}

func (labsStub) ListSchedules(ctx context.Context, identifier, date string) ([]models.ScheduleDetail, error) {
	return []models.ScheduleDetail{}, nil
}

func buildTestRouter(audited *[]string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{Env: config.EnvProduction, APIPrefix: "/api/v1", Metrics: config.MetricsConfig{Enabled: true, Path: "/metrics"}}
	return New(Dependencies{
		Config: cfg,
		Logger: zap.NewNop(),
		Auth:   middleware.JWT(roleTokens{}),
		Audit: func(action, resource string) gin.HandlerFunc {
			return func(c *gin.Context) {
				c.Next()
				if c.Writer.Status() < 400 {
					*audited = append(*audited, action)
				}
			}
		},
		Schedules: handler.NewScheduleHandler(schedulesStub{}, schedulesStub{}),
		Labs:      handler.NewLabHandler(labsStub{}),
		Ops:       handler.NewMetricsHandler(service.NewMetricsService().Handler(), nil, nil),
	})
}

func TestRouterRoleMatrix(t *testing.T) {
	var audited []string
	r := buildTestRouter(&audited)

	cases := []struct {
		method string
		path   string
		role   string
		want   int
	}{
		{http.MethodGet, "/api/v1/schedules/check-availability?labId=chem-lab&date=2026-02-15&time=10:00-11:00", "lab_assistant", http.StatusOK},
		{http.MethodPost, "/api/v1/schedules", "professor", http.StatusCreated},
		{http.MethodPost, "/api/v1/schedules", "admin", http.StatusForbidden},
		{http.MethodGet, "/api/v1/schedules/my-schedules", "professor", http.StatusOK},
		{http.MethodGet, "/api/v1/schedules/my-schedules", "lab_assistant", http.StatusForbidden},
		{http.MethodGet, "/api/v1/schedules", "admin", http.StatusOK},
		{http.MethodGet, "/api/v1/schedules/export", "lab_assistant", http.StatusOK},
		{http.MethodGet, "/api/v1/schedules/export", "professor", http.StatusForbidden},
		{http.MethodGet, "/api/v1/schedules/sched-1", "professor", http.StatusOK},
		{http.MethodPut, "/api/v1/schedules/sched-1", "professor", http.StatusOK},
		{http.MethodDelete, "/api/v1/schedules/sched-1", "lab_assistant", http.StatusForbidden},
		{http.MethodDelete, "/api/v1/schedules/sched-1", "professor", http.StatusOK},
		{http.MethodGet, "/api/v1/labs", "professor", http.StatusOK},
		{http.MethodGet, "/api/v1/labs/chem-lab", "professor", http.StatusOK},
		{http.MethodGet, "/api/v1/labs/chem-lab/schedules?date=2026-02-15", "admin", http.StatusOK},
		{http.MethodPost, "/api/v1/labs", "professor", http.StatusForbidden},
		{http.MethodPost, "/api/v1/labs", "admin", http.StatusCreated},
		{http.MethodGet, "/api/v1/labs", "", http.StatusUnauthorized},
		{http.MethodGet, "/api/v1/labs", "student", http.StatusUnauthorized},
	}

	for _, tc := range cases {
		t.Run(tc.method+" "+tc.path+" as "+tc.role, func(t *testing.T) {
			var body *strings.Reader
			switch tc.method {
			case http.MethodPost, http.MethodPut:
				body = strings.NewReader(`{"slug":"bio-lab","name":"Biology"}`)
			default:
				body = strings.NewReader("")
			}
			req := httptest.NewRequest(tc.method, tc.path, body)
			req.Header.Set("Content-Type", "application/json")
			if tc.role != "" {
				req.Header.Set("Authorization", "Bearer "+tc.role)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tc.want, w.Code, w.Body.String())
		})
	}

	assert.Equal(t, []string{
		models.AuditActionScheduleCreate,
		models.AuditActionScheduleUpdate,
		models.AuditActionScheduleCancel,
		models.AuditActionLabCreate,
	}, audited)
}

func TestRouterOpsEndpoints(t *testing.T) {
	var audited []string
	r := buildTestRouter(&audited)

	for _, path := range []string{"/health", "/ready", "/metrics"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		require.Equal(t, http.StatusOK, w.Code, path)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/docs/index.html", nil))
	assert.Equal(t, http.StatusNotFound, w.Code, "docs are hidden in production")
}
