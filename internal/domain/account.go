package domain

import "time"

// AccountStatus represents lifecycle states for a portal account.
type AccountStatus string

const (
	AccountStatusActive    AccountStatus = "ACTIVE"
	AccountStatusSuspended AccountStatus = "SUSPENDED"
)

// Account is a portal user: tenant, landlord, caretaker or super admin.
type Account struct {
	ID           string
	Name         string
	Email        string
	Phone        string
	PasswordHash string
	Role         Role
	Status       AccountStatus
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Actor projects the account onto the lifecycle actor shape.
func (a *Account) Actor() Actor {
	return Actor{ID: a.ID, Role: a.Role}
}
