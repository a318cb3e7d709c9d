package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/tutor-cockpit-api/internal/dto"
	"github.com/noah-isme/tutor-cockpit-api/internal/handler"
	"github.com/noah-isme/tutor-cockpit-api/internal/models"
	"github.com/noah-isme/tutor-cockpit-api/internal/service"
	appErrors "github.com/noah-isme/tutor-cockpit-api/pkg/errors"
)

type tokenStub struct{}

func (tokenStub) ValidateToken(_ context.Context, token string) (*models.JWTClaims, error) {
	if token != "valid" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token")
	}
	return &models.JWTClaims{Version: 1}, nil
}

type dashboardStub struct{}

func (dashboardStub) Summary(context.Context) (*dto.DashboardResponse, bool, error) {
	return &dto.DashboardResponse{Date: "2026-10-19"}, false, nil
}

type exportStub struct{}

func (exportStub) Request(context.Context, dto.ExportRequest) (*dto.ExportJobResponse, error) {
	return nil, appErrors.ErrInternal
}

func (exportStub) Status(context.Context, string) (*dto.ExportStatusResponse, error) {
	return nil, appErrors.ErrNotFound
}

func (exportStub) ResolveDownload(context.Context, string) (*service.ExportDownload, error) {
	return nil, appErrors.Clone(appErrors.ErrForbidden, "invalid or expired token")
}

func newTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	return NewRouter(Options{
		APIPrefix: "/api/v1",
		Metrics:   service.NewMetricsService(),
		Tokens:    tokenStub{},
	}, Handlers{
		Auth:      handler.NewAuthHandler(nil),
		Students:  handler.NewStudentHandler(nil),
		Lessons:   handler.NewLessonHandler(nil),
		Finance:   handler.NewFinanceHandler(nil),
		Materials: handler.NewMaterialHandler(nil),
		Variants:  handler.NewVariantHandler(nil),
		Dashboard: handler.NewDashboardHandler(dashboardStub{}),
		Backup:    handler.NewBackupHandler(nil),
		Exports:   handler.NewExportHandler(exportStub{}),
		Ops:       handler.NewMetricsHandler(service.NewMetricsService(), nil),
	})
}

func serve(r *gin.Engine, method, target, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRouterRequiresTokenOnProtectedRoutes(t *testing.T) {
	r := newTestRouter()

	for _, target := range []string{
		"/api/v1/students",
		"/api/v1/lessons/calendar",
		"/api/v1/finance/summary",
		"/api/v1/materials/tags",
		"/api/v1/materials/variants",
		"/api/v1/dashboard",
		"/api/v1/backup",
		"/api/v1/exports/abc",
	} {
		w := serve(r, http.MethodGet, target, "")
		assert.Equal(t, http.StatusUnauthorized, w.Code, target)
	}

	w := serve(r, http.MethodPost, "/api/v1/auth/logout", "expired")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRouterPassesValidToken(t *testing.T) {
	r := newTestRouter()

	w := serve(r, http.MethodGet, "/api/v1/dashboard", "valid")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "2026-10-19")
}

func TestRouterDownloadSkipsJWT(t *testing.T) {
	r := newTestRouter()

	w := serve(r, http.MethodGet, "/api/v1/exports/download?token=forged", "")
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = serve(r, http.MethodGet, "/api/v1/exports/abc", "valid")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRouterOperationalEndpoints(t *testing.T) {
	r := newTestRouter()

	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/health", "").Code)
	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/ready", "").Code)
	assert.Equal(t, http.StatusNotFound, serve(r, http.MethodGet, "/docs/index.html", "").Code)

	metrics := serve(r, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, metrics.Code)
	assert.Contains(t, metrics.Body.String(), "goroutines_total")
}
