package domain

import "time"

// Property is a rentable unit owned by a landlord. A maintenance request is
// raised against a property; the owning landlord is the approving party.
type Property struct {
	ID         string
	LandlordID string
	Address    string
	UnitLabel  string
	Active     bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
