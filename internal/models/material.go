package models

import (
	"time"

	"github.com/lib/pq"
)

// Difficulty ranks problems into generator bands.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// Rank orders difficulties from easy to hard.
func (d Difficulty) Rank() int {
	switch d {
	case DifficultyEasy:
		return 0
	case DifficultyMedium:
		return 1
	case DifficultyHard:
		return 2
	default:
		return 3
	}
}

// MaterialCategory is a node of the per-subject category tree.
type MaterialCategory struct {
	ID          string    `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Subject     Subject   `db:"subject" json:"subject"`
	ParentID    *string   `db:"parent_id" json:"parent_id,omitempty"`
	Description *string   `db:"description" json:"description,omitempty"`
	Order       int       `db:"sort_order" json:"order"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// CategoryNode is a root category with its direct children.
type CategoryNode struct {
	MaterialCategory
	Children []MaterialCategory `json:"children"`
}

// Problem is a practice task in the bank.
type Problem struct {
	ID         string         `db:"id" json:"id"`
	CategoryID string         `db:"category_id" json:"category_id"`
	Question   string         `db:"question" json:"question"`
	Answer     string         `db:"answer" json:"answer"`
	Solution   *string        `db:"solution" json:"solution,omitempty"`
	Difficulty Difficulty     `db:"difficulty" json:"difficulty"`
	Points     int            `db:"points" json:"points"`
	Tags       pq.StringArray `db:"tags" json:"tags"`
	Images     pq.StringArray `db:"images" json:"images,omitempty"`
	CreatedAt  time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time      `db:"updated_at" json:"updated_at"`
}

// EffectivePoints treats unset points as one.
func (p Problem) EffectivePoints() int {
	if p.Points <= 0 {
		return 1
	}
	return p.Points
}

// Theory is a reference article attached to a category.
type Theory struct {
	ID         string         `db:"id" json:"id"`
	CategoryID string         `db:"category_id" json:"category_id"`
	Title      string         `db:"title" json:"title"`
	Content    string         `db:"content" json:"content"`
	Examples   pq.StringArray `db:"examples" json:"examples,omitempty"`
	CreatedAt  time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time      `db:"updated_at" json:"updated_at"`
}

// ProblemWithSubject carries the subject of the problem's category, used for pool filtering.
type ProblemWithSubject struct {
	Problem
	Subject Subject `db:"subject" json:"subject"`
}
