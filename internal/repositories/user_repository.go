/*
Package repositories - User Authentication Data Access Layer

==============================================================================
FILE: internal/repositories/user_repository.go
==============================================================================

DESCRIPTION:
    Manages dashboard user authentication data: credentials, roles, and
    issuer associations. Provides lookups by email and issuer-scoped
    listings for the issuer's user management screen.

==============================================================================
*/

package repositories

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	"backend/internal/models"
)

// UserRepository handles user database operations
type UserRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create creates a new user
func (r *UserRepository) Create(user *models.User) error {
	return r.db.Create(user).Error
}

// FindByID finds a user by ID
func (r *UserRepository) FindByID(id uuid.UUID) (*models.User, error) {
	var user models.User
	err := r.db.First(&user, "id = ?", id).Error
	return &user, err
}

// FindByEmail finds a user by email
func (r *UserRepository) FindByEmail(email string) (*models.User, error) {
	var user models.User
	err := r.db.First(&user, "email = ?", email).Error
	return &user, err
}

// Update updates a user
func (r *UserRepository) Update(user *models.User) error {
	return r.db.Save(user).Error
}

// Delete soft deletes a user
func (r *UserRepository) Delete(id uuid.UUID) error {
	return r.db.Delete(&models.User{}, "id = ?", id).Error
}

// ExistsByEmail checks if a user exists by email
func (r *UserRepository) ExistsByEmail(email string) (bool, error) {
	var count int64
	err := r.db.Model(&models.User{}).Where("email = ?", email).Count(&count).Error
	return count > 0, err
}

// UpdateLastLogin updates user's last login time
func (r *UserRepository) UpdateLastLogin(userID uuid.UUID) error {
	return r.db.Model(&models.User{}).Where("id = ?", userID).
		Update("last_login_at", gorm.Expr("CURRENT_TIMESTAMP")).Error
}

// FindByIssuerID finds all users belonging to an issuer
func (r *UserRepository) FindByIssuerID(issuerID uuid.UUID) ([]models.User, error) {
	var users []models.User
	err := r.db.Where("issuer_id = ?", issuerID).Order("created_at DESC").Find(&users).Error
	return users, err
}
