package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// VariantProblems is the JSONB snapshot of problems stored with a variant.
type VariantProblems []Problem

// Value marshals the snapshot for persistence.
func (p VariantProblems) Value() (driver.Value, error) {
	if p == nil {
		p = VariantProblems{}
	}
	data, err := json.Marshal([]Problem(p))
	if err != nil {
		return nil, fmt.Errorf("marshal variant problems: %w", err)
	}
	return data, nil
}

// Scan unmarshals the JSONB snapshot.
func (p *VariantProblems) Scan(value interface{}) error {
	var data []byte
	switch v := value.(type) {
	case nil:
		*p = VariantProblems{}
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported type %T for VariantProblems", value)
	}
	if len(data) == 0 {
		*p = VariantProblems{}
		return nil
	}
	var out []Problem
	if err := json.Unmarshal(data, &out); err != nil {
		return fmt.Errorf("unmarshal variant problems: %w", err)
	}
	*p = out
	return nil
}

// GeneratedVariant is a named, saved snapshot of a random problem subset.
type GeneratedVariant struct {
	ID          string          `db:"id" json:"id"`
	Name        string          `db:"name" json:"name"`
	Subject     Subject         `db:"subject" json:"subject"`
	Problems    VariantProblems `db:"problems" json:"problems"`
	TotalPoints int             `db:"total_points" json:"total_points"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
}

// VariantFilter selects the pool a variant is drawn from.
type VariantFilter struct {
	Subject      Subject      `json:"subject" validate:"required,oneof=math physics"`
	CategoryIDs  []string     `json:"category_ids,omitempty"`
	Difficulties []Difficulty `json:"difficulties,omitempty" validate:"omitempty,dive,oneof=easy medium hard"`
	Tags         []string     `json:"tags,omitempty"`
	MinPoints    int          `json:"min_points,omitempty" validate:"gte=0"`
	MaxPoints    int          `json:"max_points,omitempty" validate:"gte=0"`
}

// TagCount is a tag with its frequency inside a pool.
type TagCount struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}

// PoolStats summarises the problems matching a variant filter.
type PoolStats struct {
	Total         int        `json:"total"`
	Easy          int        `json:"easy"`
	Medium        int        `json:"medium"`
	Hard          int        `json:"hard"`
	AveragePoints float64    `json:"average_points"`
	PopularTags   []TagCount `json:"popular_tags"`
}
