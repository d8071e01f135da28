package services

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"
	"github.com/tehokas/taskdeck/internal/apperrors"
	"github.com/tehokas/taskdeck/internal/logging"
	"github.com/tehokas/taskdeck/internal/models"
	"github.com/tehokas/taskdeck/internal/types"
	"gorm.io/gorm"
)

// ActiveProjectSelector owns the per-user active project pointer. The pointer
// is validated on every write and every read.
type ActiveProjectSelector struct {
	db     *gorm.DB
	access *AccessPolicy
}

func NewActiveProjectSelector(db *gorm.DB, access *AccessPolicy) *ActiveProjectSelector {
	return &ActiveProjectSelector{db: db, access: access}
}

// SetActive points principal at projectID, or clears the pointer when
// projectID is nil. On any failure the stored pointer is left as it was.
func (s *ActiveProjectSelector) SetActive(ctx context.Context, principal *types.Principal, projectID *uint) error {
	if principal == nil {
		return apperrors.ErrAccessDenied
	}

	var value interface{}

	if projectID != nil {
		project, err := s.access.authorizeProject(ctx, principal, *projectID)
		if err != nil {
			return err
		}
		value = project.ID
	}

	result := s.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", principal.ID).
		Update("active_project_id", value)
	if result.Error != nil {
		return apperrors.Internal("update active project", result.Error)
	}

	return nil
}

// GetActive returns the active project or nil when none is set. A pointer to
// a deleted or no longer accessible project is cleared and reported as nil.
func (s *ActiveProjectSelector) GetActive(ctx context.Context, principal *types.Principal) (*models.Project, error) {
	if principal == nil {
		return nil, apperrors.ErrAccessDenied
	}

	var user models.User

	err := s.db.WithContext(ctx).
		Select("id", "active_project_id").
		First(&user, principal.ID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrAccessDenied
		}
		return nil, apperrors.Internal("load user", err)
	}

	if user.ActiveProjectID == nil {
		return nil, nil
	}

	pointer := *user.ActiveProjectID

	var project models.Project

	err = s.db.WithContext(ctx).
		Preload("Creator", selectUserSummary).
		First(&project, pointer).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.Internal("load active project", err)
	}

	accessible := false
	if err == nil {
		accessible, err = s.access.CanAccess(ctx, principal, &project)
		if err != nil {
			return nil, err
		}
	}

	if !accessible {
		if err := s.clearIfStill(ctx, principal.ID, pointer); err != nil {
			return nil, err
		}
		return nil, nil
	}

	return &project, nil
}

// clearIfStill drops the pointer only when it still names projectID, so a
// concurrent SetActive is never overwritten.
func (s *ActiveProjectSelector) clearIfStill(ctx context.Context, userID, projectID uint) error {
	return clearActivePointer(s.db.WithContext(ctx), userID, projectID)
}

func clearActivePointer(tx *gorm.DB, userID, projectID uint) error {
	result := tx.Model(&models.User{}).
		Where("id = ? AND active_project_id = ?", userID, projectID).
		Update("active_project_id", nil)
	if result.Error != nil {
		return apperrors.Internal("clear active project", result.Error)
	}

	if result.RowsAffected > 0 {
		logging.Logger.WithFields(logrus.Fields{
			"user_id":    userID,
			"project_id": projectID,
		}).Info("cleared stale active project pointer")
	}

	return nil
}
