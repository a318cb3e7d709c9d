package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/tutor-cockpit-api/internal/models"
	"github.com/noah-isme/tutor-cockpit-api/internal/service"
	appErrors "github.com/noah-isme/tutor-cockpit-api/pkg/errors"
)

type fakeVariantService struct {
	lastFilter   models.VariantFilter
	lastGenerate service.GenerateRequest
	lastCreate   service.VariantRequest
}

func (f *fakeVariantService) PoolStats(_ context.Context, filter models.VariantFilter) (*models.PoolStats, error) {
	f.lastFilter = filter
	return &models.PoolStats{Total: 12, Easy: 4, Medium: 5, Hard: 3}, nil
}

func (f *fakeVariantService) Preview(_ context.Context, req service.GenerateRequest) (*service.VariantSelection, error) {
	f.lastGenerate = req
	if req.Count > 10 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "pool has only 10 problems")
	}
	return &service.VariantSelection{Problems: []models.Problem{{ID: "p-1"}}, TotalPoints: 1, PoolSize: 10}, nil
}

func (f *fakeVariantService) List(context.Context, models.Subject) ([]models.GeneratedVariant, error) {
	return []models.GeneratedVariant{}, nil
}

func (f *fakeVariantService) Get(_ context.Context, id string) (*models.GeneratedVariant, error) {
	return &models.GeneratedVariant{ID: id}, nil
}

func (f *fakeVariantService) Create(_ context.Context, req service.VariantRequest) (*models.GeneratedVariant, error) {
	f.lastCreate = req
	return &models.GeneratedVariant{ID: "v-1", Name: req.Name, Subject: req.Subject}, nil
}

func (f *fakeVariantService) Delete(context.Context, string) error { return nil }

func TestVariantHandlerPoolStats(t *testing.T) {
	svc := &fakeVariantService{}
	handler := NewVariantHandler(svc)
	c, rec := newTestContext(http.MethodPost, "/materials/variants/pool-stats", models.VariantFilter{Subject: models.SubjectMath, Tags: []string{"algebra"}})

	handler.PoolStats(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"algebra"}, svc.lastFilter.Tags)
	var stats models.PoolStats
	decodeData(t, rec, &stats)
	assert.Equal(t, 12, stats.Total)
}

func TestVariantHandlerPreviewFlattensFilter(t *testing.T) {
	svc := &fakeVariantService{}
	handler := NewVariantHandler(svc)
	c, rec := newTestContext(http.MethodPost, "/materials/variants/preview", `{"subject":"physics","difficulties":["hard"],"count":3}`)

	handler.Preview(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.SubjectPhysics, svc.lastGenerate.Subject)
	assert.Equal(t, []models.Difficulty{models.DifficultyHard}, svc.lastGenerate.Difficulties)
	assert.Equal(t, 3, svc.lastGenerate.Count)
}

func TestVariantHandlerPreviewTooLarge(t *testing.T) {
	handler := NewVariantHandler(&fakeVariantService{})
	c, rec := newTestContext(http.MethodPost, "/materials/variants/preview", `{"subject":"math","count":50}`)

	handler.Preview(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestVariantHandlerCreateWithGeneration(t *testing.T) {
	svc := &fakeVariantService{}
	handler := NewVariantHandler(svc)
	c, rec := newTestContext(http.MethodPost, "/materials/variants", `{"name":"Quiz","subject":"math","generate":{"subject":"math","count":5}}`)

	handler.Create(c)

	require.Equal(t, http.StatusCreated, rec.Code)
	require.NotNil(t, svc.lastCreate.Generate)
	assert.Equal(t, 5, svc.lastCreate.Generate.Count)
}
