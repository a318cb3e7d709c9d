package models

import "time"

// BackupVersion is the current snapshot layout.
const BackupVersion = 1

// Backup is a full snapshot of every tutoring record.
type Backup struct {
	Version    int                `json:"version"`
	ExportedAt time.Time          `json:"exported_at"`
	Students   []Student          `json:"students"`
	Lessons    []Lesson           `json:"lessons"`
	Payments   []Payment          `json:"payments"`
	Expenses   []Expense          `json:"expenses"`
	Categories []MaterialCategory `json:"categories"`
	Problems   []Problem          `json:"problems"`
	Theories   []Theory           `json:"theories"`
	Variants   []GeneratedVariant `json:"variants"`
}

// BackupCounts reports how many records a snapshot holds.
type BackupCounts struct {
	Students   int `json:"students"`
	Lessons    int `json:"lessons"`
	Payments   int `json:"payments"`
	Expenses   int `json:"expenses"`
	Categories int `json:"categories"`
	Problems   int `json:"problems"`
	Theories   int `json:"theories"`
	Variants   int `json:"variants"`
}

// Counts summarises the snapshot.
func (b *Backup) Counts() BackupCounts {
	return BackupCounts{
		Students:   len(b.Students),
		Lessons:    len(b.Lessons),
		Payments:   len(b.Payments),
		Expenses:   len(b.Expenses),
		Categories: len(b.Categories),
		Problems:   len(b.Problems),
		Theories:   len(b.Theories),
		Variants:   len(b.Variants),
	}
}
