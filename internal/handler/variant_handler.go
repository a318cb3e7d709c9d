package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/tutor-cockpit-api/internal/models"
	"github.com/noah-isme/tutor-cockpit-api/internal/service"
	"github.com/noah-isme/tutor-cockpit-api/pkg/response"
)

type variantService interface {
	PoolStats(ctx context.Context, filter models.VariantFilter) (*models.PoolStats, error)
	Preview(ctx context.Context, req service.GenerateRequest) (*service.VariantSelection, error)
	List(ctx context.Context, subject models.Subject) ([]models.GeneratedVariant, error)
	Get(ctx context.Context, id string) (*models.GeneratedVariant, error)
	Create(ctx context.Context, req service.VariantRequest) (*models.GeneratedVariant, error)
	Delete(ctx context.Context, id string) error
}

// VariantHandler exposes the variant generator.
type VariantHandler struct {
	variants variantService
}

// NewVariantHandler constructs VariantHandler.
func NewVariantHandler(variants variantService) *VariantHandler {
	return &VariantHandler{variants: variants}
}

// PoolStats godoc
// @Summary Describe the problem pool for a filter
// @Tags Variants
// @Accept json
// @Produce json
// @Param payload body models.VariantFilter true "Pool filter"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /materials/variants/pool-stats [post]
func (h *VariantHandler) PoolStats(c *gin.Context) {
	var filter models.VariantFilter
	if !bindJSON(c, &filter) {
		return
	}
	stats, err := h.variants.PoolStats(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, stats)
}

// Preview godoc
// @Summary Draw an unsaved variant
// @Tags Variants
// @Accept json
// @Produce json
// @Param payload body service.GenerateRequest true "Generation request"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /materials/variants/preview [post]
func (h *VariantHandler) Preview(c *gin.Context) {
	var req service.GenerateRequest
	if !bindJSON(c, &req) {
		return
	}
	selection, err := h.variants.Preview(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, selection)
}

// List godoc
// @Summary Saved variants
// @Tags Variants
// @Produce json
// @Param subject query string false "math or physics"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /materials/variants [get]
func (h *VariantHandler) List(c *gin.Context) {
	variants, err := h.variants.List(c.Request.Context(), models.Subject(c.Query("subject")))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, variants)
}

// Get godoc
// @Summary Get saved variant
// @Tags Variants
// @Produce json
// @Param id path string true "Variant ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /materials/variants/{id} [get]
func (h *VariantHandler) Get(c *gin.Context) {
	variant, err := h.variants.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, variant)
}

// Create godoc
// @Summary Save a variant
// @Description Saves explicit problem ids, or generates and saves in one step
// @Tags Variants
// @Accept json
// @Produce json
// @Param payload body service.VariantRequest true "Variant payload"
// @Success 201 {object} response.Envelope
// @Security BearerAuth
// @Router /materials/variants [post]
func (h *VariantHandler) Create(c *gin.Context) {
	var req service.VariantRequest
	if !bindJSON(c, &req) {
		return
	}
	variant, err := h.variants.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, variant)
}

// Delete godoc
// @Summary Delete saved variant
// @Tags Variants
// @Param id path string true "Variant ID"
// @Success 204
// @Security BearerAuth
// @Router /materials/variants/{id} [delete]
func (h *VariantHandler) Delete(c *gin.Context) {
	if err := h.variants.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
