package models

import "time"

// Agent is the field-collector extension of a User with role AGENT
type Agent struct {
	ID            int       `json:"id"`
	UserID        int       `json:"user_id"`
	Name          string    `json:"name"`
	Email         string    `json:"email"`
	Phone         string    `json:"phone"`
	Area          string    `json:"area"`
	IsActive      bool      `json:"is_active"`
	BorrowerCount int       `json:"borrower_count"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// CreateAgentRequest creates the login user and the agent row together
type CreateAgentRequest struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Phone    string `json:"phone" validate:"required"`
	Password string `json:"password" validate:"required,min=6"`
	Area     string `json:"area"`
}

// UpdateAgentRequest is a PATCH body; nil fields are left unchanged
type UpdateAgentRequest struct {
	Name     *string `json:"name" validate:"omitempty,min=1"`
	Email    *string `json:"email" validate:"omitempty,email"`
	Phone    *string `json:"phone" validate:"omitempty,min=1"`
	Area     *string `json:"area"`
	Password *string `json:"password" validate:"omitempty,min=6"`
	IsActive *bool   `json:"is_active"`
}

// AssignBorrowersRequest moves borrowers under an agent
type AssignBorrowersRequest struct {
	BorrowerIDs []int `json:"borrower_ids" validate:"required,min=1,dive,gt=0"`
}
