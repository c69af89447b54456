package models

import (
	"time"

	"github.com/lib/pq"
)

// Batch represents a student group that attends classes together. The batch is
// the exclusivity unit for scheduling: it cannot attend two classes in the
// same slot.
type Batch struct {
	ID         string         `db:"id" json:"id"`
	Name       string         `db:"name" json:"name"`
	SubjectIDs pq.StringArray `db:"subject_ids" json:"subjects"`
	Sections   pq.StringArray `db:"sections" json:"sections"`
	// StudentCount drives classroom capacity filtering. Zero means
	// unknown, in which case capacity filtering is skipped rather than
	// guessed.
	StudentCount int       `db:"student_count" json:"student_count"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// BatchFilter captures filtering options for listing batches.
type BatchFilter struct {
	Search    string
	SubjectID string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
