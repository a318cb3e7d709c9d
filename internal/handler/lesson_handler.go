package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/tutor-cockpit-api/internal/models"
	"github.com/noah-isme/tutor-cockpit-api/internal/service"
	appErrors "github.com/noah-isme/tutor-cockpit-api/pkg/errors"
	"github.com/noah-isme/tutor-cockpit-api/pkg/response"
)

const (
	defaultSlotStart    = 8
	defaultSlotEnd      = 22
	defaultSlotInterval = 30
)

type lessonService interface {
	List(ctx context.Context, filter models.LessonFilter) ([]models.LessonDetail, *models.Pagination, error)
	Get(ctx context.Context, id string) (*models.LessonDetail, error)
	ByDate(ctx context.Context, rawDate string) ([]models.LessonDetail, error)
	Calendar(ctx context.Context, rawFrom, rawTo string) ([]models.CalendarEvent, error)
	TimeSlots(startHour, endHour, interval int) ([]string, error)
	Create(ctx context.Context, req service.LessonRequest) (*models.Lesson, error)
	Update(ctx context.Context, id string, req service.LessonRequest) (*models.Lesson, error)
	Delete(ctx context.Context, id string) error
}

// LessonHandler exposes scheduling endpoints.
type LessonHandler struct {
	lessons lessonService
}

// NewLessonHandler constructs LessonHandler.
func NewLessonHandler(lessons lessonService) *LessonHandler {
	return &LessonHandler{lessons: lessons}
}

// List godoc
// @Summary List lessons
// @Tags Lessons
// @Produce json
// @Param student_id query string false "Student ID"
// @Param status query string false "scheduled, completed or cancelled"
// @Param subject query string false "math or physics"
// @Param paid query bool false "Paid flag"
// @Param from query string false "From date (YYYY-MM-DD)"
// @Param to query string false "To date (YYYY-MM-DD)"
// @Param order query string false "asc or desc by date"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /lessons [get]
func (h *LessonHandler) List(c *gin.Context) {
	filter := models.LessonFilter{
		StudentID: c.Query("student_id"),
		Status:    models.LessonStatus(c.Query("status")),
		Subject:   models.Subject(c.Query("subject")),
		SortOrder: c.Query("order"),
	}
	var err error
	if filter.Paid, err = queryBool(c, "paid"); err != nil {
		response.Error(c, err)
		return
	}
	if filter.From, err = queryDate(c, "from"); err != nil {
		response.Error(c, err)
		return
	}
	if filter.To, err = queryDate(c, "to"); err != nil {
		response.Error(c, err)
		return
	}
	filter.Page, filter.PageSize = pageParams(c)

	lessons, pagination, err := h.lessons.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, lessons, pagination)
}

// Get godoc
// @Summary Get lesson
// @Tags Lessons
// @Produce json
// @Param id path string true "Lesson ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /lessons/{id} [get]
func (h *LessonHandler) Get(c *gin.Context) {
	lesson, err := h.lessons.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, lesson)
}

// Day godoc
// @Summary Lessons of one day
// @Tags Lessons
// @Produce json
// @Param date query string true "Date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /lessons/day [get]
func (h *LessonHandler) Day(c *gin.Context) {
	date := c.Query("date")
	if date == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "date is required"))
		return
	}
	lessons, err := h.lessons.ByDate(c.Request.Context(), date)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, lessons)
}

// Calendar godoc
// @Summary Calendar events
// @Tags Lessons
// @Produce json
// @Param from query string true "From date (YYYY-MM-DD)"
// @Param to query string true "To date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /lessons/calendar [get]
func (h *LessonHandler) Calendar(c *gin.Context) {
	from, to := c.Query("from"), c.Query("to")
	if from == "" || to == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "from and to are required"))
		return
	}
	events, err := h.lessons.Calendar(c.Request.Context(), from, to)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, events)
}

// TimeSlots godoc
// @Summary Bookable time slots
// @Tags Lessons
// @Produce json
// @Param start query int false "First hour (default 8)"
// @Param end query int false "Hour after the last slot (default 21)"
// @Param interval query int false "Minutes between slots (default 30)"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /lessons/time-slots [get]
func (h *LessonHandler) TimeSlots(c *gin.Context) {
	start, err1 := strconv.Atoi(c.DefaultQuery("start", strconv.Itoa(defaultSlotStart)))
	end, err2 := strconv.Atoi(c.DefaultQuery("end", strconv.Itoa(defaultSlotEnd)))
	interval, err3 := strconv.Atoi(c.DefaultQuery("interval", strconv.Itoa(defaultSlotInterval)))
	if err1 != nil || err2 != nil || err3 != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "start, end and interval must be integers"))
		return
	}
	slots, err := h.lessons.TimeSlots(start, end, interval)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, slots)
}

// Create godoc
// @Summary Book lesson
// @Tags Lessons
// @Accept json
// @Produce json
// @Param payload body service.LessonRequest true "Lesson payload"
// @Success 201 {object} response.Envelope
// @Security BearerAuth
// @Router /lessons [post]
func (h *LessonHandler) Create(c *gin.Context) {
	var req service.LessonRequest
	if !bindJSON(c, &req) {
		return
	}
	lesson, err := h.lessons.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, lesson)
}

// Update godoc
// @Summary Update lesson
// @Tags Lessons
// @Accept json
// @Produce json
// @Param id path string true "Lesson ID"
// @Param payload body service.LessonRequest true "Lesson payload"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /lessons/{id} [put]
func (h *LessonHandler) Update(c *gin.Context) {
	var req service.LessonRequest
	if !bindJSON(c, &req) {
		return
	}
	lesson, err := h.lessons.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, lesson)
}

// Delete godoc
// @Summary Delete lesson
// @Tags Lessons
// @Param id path string true "Lesson ID"
// @Success 204
// @Security BearerAuth
// @Router /lessons/{id} [delete]
func (h *LessonHandler) Delete(c *gin.Context) {
	if err := h.lessons.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
