package models

import (
	"time"

	"github.com/lib/pq"
)

// Subject represents a taught subject with its weekly demand.
type Subject struct {
	ID               string         `db:"id" json:"id"`
	Name             string         `db:"name" json:"name"`
	ClassesPerWeek   int            `db:"classes_per_week" json:"classes_per_week"`
	DurationPerClass int            `db:"duration_per_class" json:"duration_per_class"`
	TeacherIDs       pq.StringArray `db:"teacher_ids" json:"assigned_teachers"`
	CreatedAt        time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time      `db:"updated_at" json:"updated_at"`
}

// SubjectFilter captures supported filters for listing subjects.
type SubjectFilter struct {
	Search    string
	TeacherID string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
