package models

import "time"

// Classroom represents a physical room classes can be scheduled into.
type Classroom struct {
	ID         string    `db:"id" json:"id"`
	RoomNumber string    `db:"room_number" json:"room_number"`
	Capacity   int       `db:"capacity" json:"capacity"`
	Section    string    `db:"section" json:"section"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// ClassroomFilter captures filtering options for listing classrooms.
type ClassroomFilter struct {
	Search      string
	Section     string
	MinCapacity int
	Page        int
	PageSize    int
	SortBy      string
	SortOrder   string
}
