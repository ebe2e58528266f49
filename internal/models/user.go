/*
Package models - SRI invoicing backend data models

==============================================================================
FILE: internal/models/user.go
==============================================================================

DESCRIPTION:
    Defines the User model for dashboard authentication. Users are staff
    members of an Issuer who can log in to manage establishments, emission
    points, API keys, and review invoice history. API-to-API invoice
    issuance is authenticated separately, via ApiKey, not User.

DEVELOPER GUIDELINES:
    CAUTION: Password hashing, authentication methods.
    DO NOT modify: SetPassword() bcrypt cost, password validation rules.

==============================================================================
*/
package models

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"backend/internal/models/enums"
	"time"
)

// User represents a staff account that can log into the issuer dashboard.
type User struct {
	BaseModel
	Email        string         `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	PasswordHash string         `gorm:"type:varchar(255);not null" json:"-"`
	Role         enums.UserRole `gorm:"type:text;not null" json:"role"`
	FullName     string         `gorm:"type:varchar(255);not null" json:"full_name"`
	IsActive     bool           `gorm:"default:true" json:"is_active"`
	IssuerID     uuid.UUID      `gorm:"type:text;not null;index" json:"issuer_id"`
	LastLoginAt  *time.Time     `json:"last_login_at,omitempty"`

	Issuer *Issuer `gorm:"foreignKey:IssuerID" json:"issuer,omitempty"`
}

func (User) TableName() string { return "users" }

// SetPassword hashes the password and sets it to the PasswordHash field.
func (u *User) SetPassword(password string) error {
	if len(password) < 8 {
		return errors.New("password must be at least 8 characters long")
	}
	if !regexp.MustCompile(`[A-Z]`).MatchString(password) {
		return errors.New("password must contain at least one uppercase letter")
	}
	if !regexp.MustCompile(`[a-z]`).MatchString(password) {
		return errors.New("password must contain at least one lowercase letter")
	}
	if !regexp.MustCompile(`[0-9]`).MatchString(password) {
		return errors.New("password must contain at least one digit")
	}
	if !regexp.MustCompile(`[!@#$%^&*()]`).MatchString(password) {
		return errors.New("password must contain at least one special character (!@#$%^&*())")
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	u.PasswordHash = string(hashedPassword)
	return nil
}

// CheckPassword compares a plaintext password with the hashed password.
func (u *User) CheckPassword(password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) == nil
}

// Validate validates user data.
func (u *User) Validate() error {
	var validationErrors []string

	if !regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,6}$`).MatchString(u.Email) {
		validationErrors = append(validationErrors, "invalid email format")
	}
	if strings.TrimSpace(u.FullName) == "" {
		validationErrors = append(validationErrors, "full name is required")
	}
	if !u.Role.IsValid() {
		validationErrors = append(validationErrors, "invalid role")
	}

	if len(validationErrors) > 0 {
		return errors.New(strings.Join(validationErrors, "; "))
	}
	return nil
}

// BeforeSave hook to validate user data before saving.
func (u *User) BeforeSave(tx *gorm.DB) (err error) {
	return u.Validate()
}

// ToResponseDTO converts the User model to a map suitable for API response,
// excluding sensitive information like PasswordHash.
func (u *User) ToResponseDTO() map[string]interface{} {
	return map[string]interface{}{
		"id":            u.ID.String(),
		"email":         u.Email,
		"role":          u.Role.String(),
		"full_name":     u.FullName,
		"is_active":     u.IsActive,
		"issuer_id":     u.IssuerID,
		"created_at":    u.CreatedAt,
		"updated_at":    u.UpdatedAt,
		"last_login_at": u.LastLoginAt,
	}
}
