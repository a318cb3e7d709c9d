package dto

import "github.com/noah-isme/tutor-cockpit-api/internal/models"

// DashboardResponse is the home screen summary computed for one day.
type DashboardResponse struct {
	Date             string                `json:"date"`
	TotalIncome      int64                 `json:"total_income"`
	Profit           int64                 `json:"profit"`
	ActiveStudents   int                   `json:"active_students"`
	TodayLessons     []models.LessonDetail `json:"today_lessons"`
	WeekLessonsCount int                   `json:"week_lessons_count"`
	Unpaid           UnpaidSection         `json:"unpaid"`
	RecentStudents   []models.Student      `json:"recent_students"`
	MonthlyIncome    []models.MonthAmount  `json:"monthly_income"`
	Changes          DashboardChanges      `json:"changes"`
}

// UnpaidSection lists completed lessons still awaiting payment.
type UnpaidSection struct {
	Lessons []models.LessonDetail `json:"lessons"`
	Total   int64                 `json:"total"`
}

// DashboardChanges holds percentage deltas shown next to the headline numbers.
type DashboardChanges struct {
	Income   int `json:"income"`
	Students int `json:"students"`
	Lessons  int `json:"lessons"`
}
