package dto

import (
	"time"

	"github.com/spec-kit/maintenance-service/internal/domain"
)

// RegisterPayload payload.
type RegisterPayload struct {
	Name     string      `json:"name"`
	Email    string      `json:"email"`
	Phone    string      `json:"phone"`
	Password string      `json:"password"`
	Role     domain.Role `json:"role"`
}

// LoginPayload payload.
type LoginPayload struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ChangePasswordPayload payload.
type ChangePasswordPayload struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// AccountResponse response.
type AccountResponse struct {
	ID        string               `json:"id"`
	Name      string               `json:"name"`
	Email     string               `json:"email"`
	Phone     string               `json:"phone,omitempty"`
	Role      domain.Role          `json:"role"`
	Status    domain.AccountStatus `json:"status"`
	CreatedAt time.Time            `json:"created_at"`
}

// LoginResponse response.
type LoginResponse struct {
	Token     string          `json:"token"`
	ExpiresAt time.Time       `json:"expires_at"`
	Account   AccountResponse `json:"account"`
}

// CategoryResponse response.
type CategoryResponse struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Active bool   `json:"active"`
}

// PropertyResponse response.
type PropertyResponse struct {
	ID         string `json:"id"`
	LandlordID string `json:"landlord_id"`
	Address    string `json:"address"`
	UnitLabel  string `json:"unit_label,omitempty"`
	Active     bool   `json:"active"`
}

// FromAccount maps an account to its response representation.
func FromAccount(account *domain.Account) AccountResponse {
	return AccountResponse{
		ID:        account.ID,
		Name:      account.Name,
		Email:     account.Email,
		Phone:     account.Phone,
		Role:      account.Role,
		Status:    account.Status,
		CreatedAt: account.CreatedAt,
	}
}

// FromCategory maps a category to its response representation.
func FromCategory(category *domain.Category) CategoryResponse {
	return CategoryResponse{ID: category.ID, Name: category.Name, Active: category.Active}
}

// FromProperty maps a property to its response representation.
func FromProperty(property *domain.Property) PropertyResponse {
	return PropertyResponse{
		ID:         property.ID,
		LandlordID: property.LandlordID,
		Address:    property.Address,
		UnitLabel:  property.UnitLabel,
		Active:     property.Active,
	}
}
