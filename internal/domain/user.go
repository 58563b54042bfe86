package domain

import (
	"strings"
	"time"
)

type UserRole string

const (
	UserRoleBorrower UserRole = "borrower"
	UserRoleStaff    UserRole = "staff"
	UserRoleAdmin    UserRole = "admin"
)

// User is a borrower. Operators authenticate separately.
type User struct {
	ID         string    `json:"id"`
	FirstName  string    `json:"first_name"`
	LastName   string    `json:"last_name"`
	Email      string    `json:"email,omitempty"`
	Phone      string    `json:"phone,omitempty"`
	Department string    `json:"department,omitempty"`
	Role       UserRole  `json:"role"`
	CreatedOn  time.Time `json:"created_on"`
}

func (u *User) DisplayName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

func (u *User) Validate() error {
	if strings.TrimSpace(u.FirstName) == "" {
		return &ValidationError{Field: "first_name", Message: "is required"}
	}
	if strings.TrimSpace(u.LastName) == "" {
		return &ValidationError{Field: "last_name", Message: "is required"}
	}
	return nil
}
