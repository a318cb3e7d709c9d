package service

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/noah-isme/tutor-cockpit-api/internal/models"
	appErrors "github.com/noah-isme/tutor-cockpit-api/pkg/errors"
)

const (
	dateLayout  = "2006-01-02"
	monthLayout = "2006-01"
)

func nullableString(value string) *string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func deref(ptr *string) string {
	if ptr == nil {
		return ""
	}
	return *ptr
}

func parseDate(raw string) (time.Time, error) {
	d, err := time.Parse(dateLayout, strings.TrimSpace(raw))
	if err != nil {
		return time.Time{}, appErrors.Validation(err, fmt.Sprintf("invalid date %q, expected YYYY-MM-DD", raw))
	}
	return d, nil
}

// monthRange parses "YYYY-MM" and returns the half-open range [first day, first day of next month).
func monthRange(raw string) (time.Time, time.Time, error) {
	start, err := time.Parse(monthLayout, strings.TrimSpace(raw))
	if err != nil {
		return time.Time{}, time.Time{}, appErrors.Validation(err, fmt.Sprintf("invalid month %q, expected YYYY-MM", raw))
	}
	return start, start.AddDate(0, 1, 0), nil
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func startOfMonth(t time.Time) time.Time {
	y, m, _ := t.Date()
	return time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
}

func isNotFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

// lookupError maps a repository read failure to a typed error.
func lookupError(err error, entity string) error {
	if isNotFound(err) {
		return appErrors.Clone(appErrors.ErrNotFound, entity+" not found")
	}
	return appErrors.Internal(err, "failed to load "+entity)
}

func newPagination(page, size, total int) *models.Pagination {
	page, size, _ = models.NormalizePage(page, size)
	return &models.Pagination{Page: page, PageSize: size, TotalCount: total}
}
