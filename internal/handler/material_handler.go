package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/tutor-cockpit-api/internal/models"
	"github.com/noah-isme/tutor-cockpit-api/internal/service"
	appErrors "github.com/noah-isme/tutor-cockpit-api/pkg/errors"
	"github.com/noah-isme/tutor-cockpit-api/pkg/response"
)

type materialService interface {
	Roots(ctx context.Context, subject models.Subject) ([]models.MaterialCategory, error)
	Tree(ctx context.Context, subject models.Subject) ([]models.CategoryNode, error)
	Children(ctx context.Context, parentID string) ([]models.MaterialCategory, error)
	GetCategory(ctx context.Context, id string) (*models.MaterialCategory, error)
	CreateCategory(ctx context.Context, req service.CategoryRequest) (*models.MaterialCategory, error)
	UpdateCategory(ctx context.Context, id string, req service.CategoryRequest) (*models.MaterialCategory, error)
	DeleteCategory(ctx context.Context, id string) error
	ProblemsByCategory(ctx context.Context, categoryID string) ([]models.Problem, error)
	GetProblem(ctx context.Context, id string) (*models.Problem, error)
	CreateProblem(ctx context.Context, req service.ProblemRequest) (*models.Problem, error)
	UpdateProblem(ctx context.Context, id string, req service.ProblemRequest) (*models.Problem, error)
	DeleteProblem(ctx context.Context, id string) error
	SearchProblems(ctx context.Context, query string, subject models.Subject) ([]models.ProblemWithSubject, error)
	Tags(ctx context.Context) ([]string, error)
	TheoriesByCategory(ctx context.Context, categoryID string) ([]models.Theory, error)
	GetTheory(ctx context.Context, id string) (*models.Theory, error)
	CreateTheory(ctx context.Context, req service.TheoryRequest) (*models.Theory, error)
	UpdateTheory(ctx context.Context, id string, req service.TheoryRequest) (*models.Theory, error)
	DeleteTheory(ctx context.Context, id string) error
}

// MaterialHandler exposes the problem bank.
type MaterialHandler struct {
	materials materialService
}

// NewMaterialHandler constructs MaterialHandler.
func NewMaterialHandler(materials materialService) *MaterialHandler {
	return &MaterialHandler{materials: materials}
}

func requiredSubject(c *gin.Context) (models.Subject, bool) {
	subject := c.Query("subject")
	if subject == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "subject is required"))
		return "", false
	}
	return models.Subject(subject), true
}

func requiredCategory(c *gin.Context) (string, bool) {
	id := c.Query("category_id")
	if id == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "category_id is required"))
		return "", false
	}
	return id, true
}

// ListCategories godoc
// @Summary Root categories of a subject
// @Tags Materials
// @Produce json
// @Param subject query string true "math or physics"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /materials/categories [get]
func (h *MaterialHandler) ListCategories(c *gin.Context) {
	subject, ok := requiredSubject(c)
	if !ok {
		return
	}
	categories, err := h.materials.Roots(c.Request.Context(), subject)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, categories)
}

// CategoryTree godoc
// @Summary Category tree of a subject
// @Tags Materials
// @Produce json
// @Param subject query string true "math or physics"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /materials/categories/tree [get]
func (h *MaterialHandler) CategoryTree(c *gin.Context) {
	subject, ok := requiredSubject(c)
	if !ok {
		return
	}
	tree, err := h.materials.Tree(c.Request.Context(), subject)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, tree)
}

// CategoryChildren godoc
// @Summary Subcategories of a category
// @Tags Materials
// @Produce json
// @Param id path string true "Category ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /materials/categories/{id}/children [get]
func (h *MaterialHandler) CategoryChildren(c *gin.Context) {
	children, err := h.materials.Children(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, children)
}

// GetCategory godoc
// @Summary Get category
// @Tags Materials
// @Produce json
// @Param id path string true "Category ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /materials/categories/{id} [get]
func (h *MaterialHandler) GetCategory(c *gin.Context) {
	category, err := h.materials.GetCategory(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, category)
}

// CreateCategory godoc
// @Summary Create category
// @Tags Materials
// @Accept json
// @Produce json
// @Param payload body service.CategoryRequest true "Category payload"
// @Success 201 {object} response.Envelope
// @Security BearerAuth
// @Router /materials/categories [post]
func (h *MaterialHandler) CreateCategory(c *gin.Context) {
	var req service.CategoryRequest
	if !bindJSON(c, &req) {
		return
	}
	category, err := h.materials.CreateCategory(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, category)
}

// UpdateCategory godoc
// @Summary Update category
// @Tags Materials
// @Accept json
// @Produce json
// @Param id path string true "Category ID"
// @Param payload body service.CategoryRequest true "Category payload"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /materials/categories/{id} [put]
func (h *MaterialHandler) UpdateCategory(c *gin.Context) {
	var req service.CategoryRequest
	if !bindJSON(c, &req) {
		return
	}
	category, err := h.materials.UpdateCategory(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, category)
}

// DeleteCategory godoc
// @Summary Delete category with its subtree
// @Tags Materials
// @Param id path string true "Category ID"
// @Success 204
// @Security BearerAuth
// @Router /materials/categories/{id} [delete]
func (h *MaterialHandler) DeleteCategory(c *gin.Context) {
	if err := h.materials.DeleteCategory(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ListProblems godoc
// @Summary Problems of a category
// @Tags Materials
// @Produce json
// @Param category_id query string true "Category ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /materials/problems [get]
func (h *MaterialHandler) ListProblems(c *gin.Context) {
	categoryID, ok := requiredCategory(c)
	if !ok {
		return
	}
	problems, err := h.materials.ProblemsByCategory(c.Request.Context(), categoryID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, problems)
}

// SearchProblems godoc
// @Summary Search problems by text or tag
// @Tags Materials
// @Produce json
// @Param q query string true "Search text"
// @Param subject query string false "math or physics"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /materials/problems/search [get]
func (h *MaterialHandler) SearchProblems(c *gin.Context) {
	problems, err := h.materials.SearchProblems(c.Request.Context(), c.Query("q"), models.Subject(c.Query("subject")))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, problems)
}

// GetProblem godoc
// @Summary Get problem
// @Tags Materials
// @Produce json
// @Param id path string true "Problem ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /materials/problems/{id} [get]
func (h *MaterialHandler) GetProblem(c *gin.Context) {
	problem, err := h.materials.GetProblem(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, problem)
}

// CreateProblem godoc
// @Summary Create problem
// @Tags Materials
// @Accept json
// @Produce json
// @Param payload body service.ProblemRequest true "Problem payload"
// @Success 201 {object} response.Envelope
// @Security BearerAuth
// @Router /materials/problems [post]
func (h *MaterialHandler) CreateProblem(c *gin.Context) {
	var req service.ProblemRequest
	if !bindJSON(c, &req) {
		return
	}
	problem, err := h.materials.CreateProblem(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, problem)
}

// UpdateProblem godoc
// @Summary Update problem
// @Tags Materials
// @Accept json
// @Produce json
// @Param id path string true "Problem ID"
// @Param payload body service.ProblemRequest true "Problem payload"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /materials/problems/{id} [put]
func (h *MaterialHandler) UpdateProblem(c *gin.Context) {
	var req service.ProblemRequest
	if !bindJSON(c, &req) {
		return
	}
	problem, err := h.materials.UpdateProblem(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, problem)
}

// DeleteProblem godoc
// @Summary Delete problem
// @Tags Materials
// @Param id path string true "Problem ID"
// @Success 204
// @Security BearerAuth
// @Router /materials/problems/{id} [delete]
func (h *MaterialHandler) DeleteProblem(c *gin.Context) {
	if err := h.materials.DeleteProblem(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Tags godoc
// @Summary Distinct problem tags
// @Tags Materials
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /materials/tags [get]
func (h *MaterialHandler) Tags(c *gin.Context) {
	tags, err := h.materials.Tags(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, tags)
}

// ListTheories godoc
// @Summary Theory articles of a category
// @Tags Materials
// @Produce json
// @Param category_id query string true "Category ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /materials/theories [get]
func (h *MaterialHandler) ListTheories(c *gin.Context) {
	categoryID, ok := requiredCategory(c)
	if !ok {
		return
	}
	theories, err := h.materials.TheoriesByCategory(c.Request.Context(), categoryID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, theories)
}

// GetTheory godoc
// @Summary Get theory article
// @Tags Materials
// @Produce json
// @Param id path string true "Theory ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /materials/theories/{id} [get]
func (h *MaterialHandler) GetTheory(c *gin.Context) {
	theory, err := h.materials.GetTheory(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, theory)
}

// CreateTheory godoc
// @Summary Create theory article
// @Tags Materials
// @Accept json
// @Produce json
// @Param payload body service.TheoryRequest true "Theory payload"
// @Success 201 {object} response.Envelope
// @Security BearerAuth
// @Router /materials/theories [post]
func (h *MaterialHandler) CreateTheory(c *gin.Context) {
	var req service.TheoryRequest
	if !bindJSON(c, &req) {
		return
	}
	theory, err := h.materials.CreateTheory(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, theory)
}

// UpdateTheory godoc
// @Summary Update theory article
// @Tags Materials
// @Accept json
// @Produce json
// @Param id path string true "Theory ID"
// @Param payload body service.TheoryRequest true "Theory payload"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /materials/theories/{id} [put]
func (h *MaterialHandler) UpdateTheory(c *gin.Context) {
	var req service.TheoryRequest
	if !bindJSON(c, &req) {
		return
	}
	theory, err := h.materials.UpdateTheory(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, theory)
}

// DeleteTheory godoc
// @Summary Delete theory article
// @Tags Materials
// @Param id path string true "Theory ID"
// @Success 204
// @Security BearerAuth
// @Router /materials/theories/{id} [delete]
func (h *MaterialHandler) DeleteTheory(c *gin.Context) {
	if err := h.materials.DeleteTheory(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
