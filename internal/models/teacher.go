package models

import (
	"time"

	"github.com/lib/pq"
)

// Teacher represents an instructor available for timetable assignment.
type Teacher struct {
	ID               string         `db:"id" json:"id"`
	Name             string         `db:"name" json:"name"`
	MaxClassesPerDay int            `db:"max_classes_per_day" json:"max_classes_per_day"`
	LeaveCount       int            `db:"leave_count" json:"leave_count"`
	SubjectIDs       pq.StringArray `db:"subject_ids" json:"subjects"`
	CreatedAt        time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time      `db:"updated_at" json:"updated_at"`
}

// TeacherFilter captures filtering options for listing teachers.
type TeacherFilter struct {
	Search    string
	SubjectID string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
