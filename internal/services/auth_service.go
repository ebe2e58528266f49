/*
Package services - Authentication Service

==============================================================================
FILE: internal/services/auth_service.go
==============================================================================

DESCRIPTION:
    Handles dashboard user authentication and authorization: issuer
    onboarding (register), login, password management, and JWT token
    generation/validation. Invoice issuance itself is authenticated
    separately through ApiKeyMiddleware, not through this service.

SYNTAX EXPLANATION:
    - Register creates Issuer + CreditLedger + admin User in one transaction
    - Login returns JWT access and refresh tokens
    - JWT tokens contain UserID, Email, and Role claims
    - CheckPassword uses bcrypt.CompareHashAndPassword for verification

==============================================================================
*/
package services

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"backend/internal/config"
	"backend/internal/dtos"
	apperr "backend/internal/errors"
	"backend/internal/models"
	"backend/internal/models/enums"
	"backend/internal/repositories"
	"backend/internal/utils"
)

// AuthService handles authentication business logic
type AuthService struct {
	userRepo   *repositories.UserRepository
	issuerRepo *repositories.IssuerRepository
	jwtConfig  *utils.JWTConfig
	db         *gorm.DB
}

// NewAuthService creates a new authentication service
func NewAuthService(db *gorm.DB, appConfig *config.AppConfig) *AuthService {
	jwtConfig := utils.NewJWTConfig(
		appConfig.JWTSecret,
		appConfig.JWTExpirationHours,
		appConfig.JWTRefreshHours,
	)

	return &AuthService{
		userRepo:   repositories.NewUserRepository(db),
		issuerRepo: repositories.NewIssuerRepository(db),
		jwtConfig:  jwtConfig,
		db:         db,
	}
}

// Register creates a new issuer, its credit ledger, and its first admin user.
func (s *AuthService) Register(req dtos.RegisterRequest) (*dtos.LoginResponse, error) {
	// Check if user email already exists
	if _, err := s.userRepo.FindByEmail(req.Email); err == nil {
		return nil, apperr.ErrEmailAlreadyExists
	}

	// Check if issuer RUC already exists
	if _, err := s.issuerRepo.FindByRUC(req.IssuerRUC); err == nil {
		return nil, apperr.ErrRUCAlreadyExists
	}

	tx := s.db.Begin()
	if tx.Error != nil {
		return nil, fmt.Errorf("failed to start transaction: %w", tx.Error)
	}
	defer tx.Rollback()

	// Create new issuer
	issuer := &models.Issuer{
		RUC:          req.IssuerRUC,
		LegalName:    req.LegalName,
		TradeName:    req.TradeName,
		MainAddress:  req.MainAddress,
		ContactEmail: req.Email,
		IsActive:     true,
	}
	if err := tx.Create(issuer).Error; err != nil {
		return nil, fmt.Errorf("failed to create issuer: %w", err)
	}

	// Every issuer starts with a zero-balance credit ledger; credits are
	// added later by an administrator through the admin topup endpoint.
	ledger := &models.CreditLedger{IssuerID: issuer.ID, Balance: 0}
	if err := tx.Create(ledger).Error; err != nil {
		return nil, fmt.Errorf("failed to create credit ledger: %w", err)
	}

	// Create new user, ensuring it's an admin for the new issuer
	user := &models.User{
		Email:    req.Email,
		Role:     enums.RoleAdmin, // First user of an issuer is always an admin
		FullName: req.FullName,
		IsActive: true,
		IssuerID: issuer.ID,
	}

	if err := user.SetPassword(req.Password); err != nil {
		return nil, fmt.Errorf("password validation failed: %w", err)
	}

	if err := tx.Create(user).Error; err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	if err := tx.Commit().Error; err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return s.generateLoginResponse(user)
}

// Login authenticates a user
func (s *AuthService) Login(req dtos.LoginRequest) (*dtos.LoginResponse, error) {
	user, err := s.userRepo.FindByEmail(req.Email)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperr.ErrInvalidCredentials
		}
		return nil, apperr.Wrap(err, apperr.ErrDatabaseOperation)
	}

	if !user.IsActive {
		return nil, apperr.ErrAccountDeactivated
	}

	if !user.CheckPassword(req.Password) {
		return nil, apperr.ErrInvalidCredentials
	}

	now := time.Now()
	user.LastLoginAt = &now
	if err := s.userRepo.Update(user); err != nil {
		return nil, fmt.Errorf("failed to update last login: %w", err)
	}

	return s.generateLoginResponse(user)
}

// RefreshToken refreshes an access token
func (s *AuthService) RefreshToken(refreshToken string) (*dtos.LoginResponse, error) {
	claims, err := s.jwtConfig.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.ErrRefreshTokenInvalid)
	}

	user, err := s.userRepo.FindByID(claims.UserID)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.ErrNotFound)
	}

	if !user.IsActive {
		return nil, apperr.ErrAccountDeactivated
	}

	return s.generateLoginResponse(user)
}

// ChangePassword changes user password
func (s *AuthService) ChangePassword(userID uuid.UUID, req dtos.ChangePasswordRequest) error {
	user, err := s.userRepo.FindByID(userID)
	if err != nil {
		return apperr.Wrap(err, apperr.ErrNotFound)
	}

	if !user.CheckPassword(req.CurrentPassword) {
		return apperr.ErrPasswordMismatch
	}

	if err := user.SetPassword(req.NewPassword); err != nil {
		return apperr.Wrap(err, apperr.ErrPasswordTooWeak)
	}

	if err := s.userRepo.Update(user); err != nil {
		return apperr.Wrap(err, apperr.ErrDatabaseOperation)
	}

	return nil
}

// ForgotPassword initiates password reset
func (s *AuthService) ForgotPassword(email string) (string, error) {
	user, err := s.userRepo.FindByEmail(email)
	if err != nil {
		// Don't reveal if user exists or not
		return "", nil
	}

	resetToken, err := s.jwtConfig.GeneratePasswordResetToken(user.ID, user.Email)
	if err != nil {
		return "", fmt.Errorf("failed to generate reset token: %w", err)
	}

	return resetToken, nil
}

// ResetPassword resets password using reset token
func (s *AuthService) ResetPassword(req dtos.ResetPasswordRequest) error {
	claims, err := s.jwtConfig.ValidateToken(req.Token)
	if err != nil {
		return apperr.Wrap(err, apperr.ErrInvalidToken)
	}

	if claims.TokenType != "password_reset" {
		return apperr.ErrInvalidToken.WithMessage("Invalid token type")
	}

	user, err := s.userRepo.FindByID(claims.UserID)
	if err != nil {
		return apperr.Wrap(err, apperr.ErrNotFound)
	}

	if err := user.SetPassword(req.NewPassword); err != nil {
		return apperr.Wrap(err, apperr.ErrPasswordTooWeak)
	}

	if err := s.userRepo.Update(user); err != nil {
		return apperr.Wrap(err, apperr.ErrDatabaseOperation)
	}

	return nil
}

// GetUserProfile gets user profile
func (s *AuthService) GetUserProfile(userID uuid.UUID) (*dtos.UserResponse, error) {
	user, err := s.userRepo.FindByID(userID)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.ErrNotFound)
	}

	return &dtos.UserResponse{
		ID:        user.ID.String(),
		Email:     user.Email,
		Role:      user.Role.String(),
		FullName:  user.FullName,
		IsActive:  user.IsActive,
		IssuerID:  user.IssuerID.String(),
		CreatedAt: user.CreatedAt,
	}, nil
}

// UpdateUserProfile updates user profile
func (s *AuthService) UpdateUserProfile(userID uuid.UUID, fullName string) error {
	user, err := s.userRepo.FindByID(userID)
	if err != nil {
		return apperr.Wrap(err, apperr.ErrNotFound)
	}

	user.FullName = fullName
	if err := s.userRepo.Update(user); err != nil {
		return apperr.Wrap(err, apperr.ErrDatabaseOperation)
	}

	return nil
}

// generateLoginResponse generates login response with tokens
func (s *AuthService) generateLoginResponse(user *models.User) (*dtos.LoginResponse, error) {
	accessToken, refreshToken, err := s.jwtConfig.GenerateTokenPair(user.ID, user.Email, user.Role)
	if err != nil {
		return nil, fmt.Errorf("failed to generate tokens: %w", err)
	}

	return &dtos.LoginResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    int(s.jwtConfig.AccessTokenExpiry.Seconds()),
		User: dtos.UserResponse{
			ID:        user.ID.String(),
			Email:     user.Email,
			Role:      user.Role.String(),
			FullName:  user.FullName,
			IsActive:  user.IsActive,
			IssuerID:  user.IssuerID.String(),
			CreatedAt: user.CreatedAt,
		},
	}, nil
}

// Logout logs out a user. Tokens are stateless JWTs; a production
// deployment that needs immediate revocation would blacklist the token
// here, but this service does not track sessions server-side.
func (s *AuthService) Logout(userID uuid.UUID) error {
	return nil
}

// VerifyToken verifies an access token and returns user
func (s *AuthService) VerifyToken(accessToken string) (*models.User, error) {
	claims, err := s.jwtConfig.ValidateAccessToken(accessToken)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.ErrInvalidToken)
	}

	user, err := s.userRepo.FindByID(claims.UserID)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.ErrNotFound)
	}

	if !user.IsActive {
		return nil, apperr.ErrAccountDeactivated
	}

	return user, nil
}
