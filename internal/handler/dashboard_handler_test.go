package handler

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/tutor-cockpit-api/internal/dto"
)

type fakeDashboardService struct {
	resp *dto.DashboardResponse
	hit  bool
	err  error
}

func (f *fakeDashboardService) Summary(context.Context) (*dto.DashboardResponse, bool, error) {
	return f.resp, f.hit, f.err
}

func TestDashboardHandlerSummary(t *testing.T) {
	handler := NewDashboardHandler(&fakeDashboardService{
		resp: &dto.DashboardResponse{Date: "2024-03-15", TotalIncome: 9000, ActiveStudents: 4},
		hit:  true,
	})
	c, rec := newTestContext(http.MethodGet, "/dashboard", nil)

	handler.Summary(c)

	require.Equal(t, http.StatusOK, rec.Code)
	envelope := decodeEnvelope(t, rec)
	assert.Equal(t, true, envelope.Meta["cache_hit"])
	var data dto.DashboardResponse
	decodeData(t, rec, &data)
	assert.Equal(t, "2024-03-15", data.Date)
	assert.EqualValues(t, 9000, data.TotalIncome)
}

func TestDashboardHandlerSummaryError(t *testing.T) {
	handler := NewDashboardHandler(&fakeDashboardService{err: errors.New("db down")})
	c, rec := newTestContext(http.MethodGet, "/dashboard", nil)

	handler.Summary(c)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
