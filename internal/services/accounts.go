package services

import (
	"context"
	"errors"

	"github.com/tehokas/taskdeck/internal/apperrors"
	"github.com/tehokas/taskdeck/internal/auth"
	"github.com/tehokas/taskdeck/internal/models"
	"github.com/tehokas/taskdeck/internal/types"
	"gorm.io/gorm"
)

// ErrInvalidCredentials is returned for an unknown email and for a wrong
// password alike.
var ErrInvalidCredentials = errors.New("invalid email or password")

// Accounts resolves who is calling: password login and token subjects.
type Accounts struct {
	db *gorm.DB
}

func NewAccounts(db *gorm.DB) *Accounts {
	return &Accounts{db: db}
}

func (a *Accounts) Authenticate(ctx context.Context, email, password string) (*types.Principal, error) {
	var user models.User

	err := a.db.WithContext(ctx).
		Where("email = ?", normalizeEmail(email)).
		First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, apperrors.Internal("load user", err)
	}

	if !auth.CheckPassword(user.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}

	return user.Principal(), nil
}

// Principal reloads a user by id so role changes apply to live sessions.
// It returns nil, nil for a user that no longer exists.
func (a *Accounts) Principal(ctx context.Context, userID uint) (*types.Principal, error) {
	var user models.User

	if err := a.db.WithContext(ctx).First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, apperrors.Internal("load user", err)
	}

	return user.Principal(), nil
}
