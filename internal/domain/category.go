package domain

import "time"

// Category classifies maintenance work (plumbing, electrical, ...).
type Category struct {
	ID        string
	Name      string
	Active    bool
	CreatedAt time.Time
}
