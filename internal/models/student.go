package models

import "time"

// Subject identifies the discipline a tutoring record belongs to.
type Subject string

const (
	SubjectMath    Subject = "math"
	SubjectPhysics Subject = "physics"
	SubjectBoth    Subject = "both"
)

// Student represents a learner tutored by the account owner.
type Student struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Grade     string    `db:"grade" json:"grade"`
	Subject   Subject   `db:"subject" json:"subject"`
	Goal      string    `db:"goal" json:"goal"`
	Phone     *string   `db:"phone" json:"phone,omitempty"`
	Email     *string   `db:"email" json:"email,omitempty"`
	Notes     *string   `db:"notes" json:"notes,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// StudentFilter encapsulates allowed search parameters for listing students.
type StudentFilter struct {
	Search    string
	Subject   Subject
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
