package models

import "time"

// LessonStatus captures the lifecycle of a scheduled lesson.
type LessonStatus string

const (
	LessonStatusScheduled LessonStatus = "scheduled"
	LessonStatusCompleted LessonStatus = "completed"
	LessonStatusCancelled LessonStatus = "cancelled"
)

// Lesson is a single tutoring session booked for a student.
type Lesson struct {
	ID          string       `db:"id" json:"id"`
	StudentID   string       `db:"student_id" json:"student_id"`
	Title       string       `db:"title" json:"title"`
	Description *string      `db:"description" json:"description,omitempty"`
	Date        time.Time    `db:"lesson_date" json:"date"`
	StartTime   string       `db:"start_time" json:"start_time"`
	EndTime     string       `db:"end_time" json:"end_time"`
	Duration    int          `db:"duration" json:"duration"`
	Status      LessonStatus `db:"status" json:"status"`
	Price       int64        `db:"price" json:"price"`
	Paid        bool         `db:"paid" json:"paid"`
	Subject     *Subject     `db:"subject" json:"subject,omitempty"`
	Notes       *string      `db:"notes" json:"notes,omitempty"`
	CreatedAt   time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time    `db:"updated_at" json:"updated_at"`
}

// LessonDetail decorates a lesson with its student's name.
type LessonDetail struct {
	Lesson
	StudentName string `db:"student_name" json:"student_name"`
}

// LessonFilter defines filters supported by lesson listings.
type LessonFilter struct {
	StudentID string
	Status    LessonStatus
	Subject   Subject
	Paid      *bool
	From      *time.Time
	To        *time.Time
	Page      int
	PageSize  int
	SortOrder string
}

// CalendarEvent is a lesson shaped for calendar views.
type CalendarEvent struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	StudentName string    `json:"student_name"`
	Lesson      Lesson    `json:"lesson"`
}
