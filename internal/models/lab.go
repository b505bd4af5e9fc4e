package models

import "time"

// Lab defaults applied when a lab is created without them.
const (
	DefaultLabCapacity = 30
	DefaultLabImage    = "/images/default-lab.png"
)

// Lab is a bookable laboratory. Slug is the human-readable identifier used by
// the frontend; ID is the internal UUID.
type Lab struct {
	ID          string    `db:"id" json:"id"`
	Slug        string    `db:"slug" json:"slug"`
	Name        string    `db:"name" json:"name"`
	Description string    `db:"description" json:"description"`
	Location    string    `db:"location" json:"location"`
	Capacity    int       `db:"capacity" json:"capacity"`
	Image       string    `db:"image" json:"image"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}
