package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/tehokas/taskdeck/internal/apperrors"
	"github.com/tehokas/taskdeck/internal/auth"
	"github.com/tehokas/taskdeck/internal/logging"
	"github.com/tehokas/taskdeck/internal/models"
	"github.com/tehokas/taskdeck/internal/types"
	"gorm.io/gorm"
)

// bcrypt reads at most 72 bytes; validator's max counts runes.
const maxPasswordBytes = 72

// UserAdmin manages user accounts. Every operation is admin only.
type UserAdmin struct {
	db     *gorm.DB
	active *ActiveProjectSelector
}

func NewUserAdmin(db *gorm.DB, active *ActiveProjectSelector) *UserAdmin {
	return &UserAdmin{db: db, active: active}
}

type UserView struct {
	ID        uint      `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

func toUserView(user models.User) UserView {
	return UserView{
		ID:        user.ID,
		Name:      user.Name,
		Email:     user.Email,
		Role:      user.Role,
		CreatedAt: user.CreatedAt,
	}
}

func (u *UserAdmin) List(ctx context.Context, principal *types.Principal, search string, page, perPage int) (types.Page[UserView], error) {
	if !principal.IsAdmin() {
		return types.Page[UserView]{}, apperrors.ErrAccessDenied
	}

	page, perPage = types.NormalizePaging(page, perPage, types.DefaultPageSize, types.MaxPageSize)

	base := func() *gorm.DB {
		return u.db.WithContext(ctx).
			Model(&models.User{}).
			Scopes(matching(search, "users.name", "users.email"))
	}

	var total int64
	if err := base().Count(&total).Error; err != nil {
		return types.Page[UserView]{}, apperrors.Internal("count users", err)
	}

	var users []models.User

	err := base().
		Order("users.name ASC").
		Order("users.id ASC").
		Offset(types.Offset(page, perPage)).
		Limit(perPage).
		Find(&users).Error
	if err != nil {
		return types.Page[UserView]{}, apperrors.Internal("list users", err)
	}

	items := make([]UserView, 0, len(users))
	for _, user := range users {
		items = append(items, toUserView(user))
	}

	return types.NewPage(items, page, perPage, total), nil
}

type CreateUserInput struct {
	Name     string `json:"name" validate:"required,max=255"`
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	Role     string `json:"role" validate:"omitempty,oneof=admin member"`
}

func (u *UserAdmin) Create(ctx context.Context, principal *types.Principal, input CreateUserInput) (*UserView, error) {
	if !principal.IsAdmin() {
		return nil, apperrors.ErrAccessDenied
	}

	input.Name = strings.TrimSpace(input.Name)
	input.Email = normalizeEmail(input.Email)
	if input.Role == "" {
		input.Role = types.RoleMember
	}

	fields := checkPasswordBytes(validateFields(input), &input.Password)
	if fields["email"] == "" {
		taken, err := u.emailTaken(ctx, input.Email, 0)
		if err != nil {
			return nil, err
		}
		if taken {
			fields = addField(fields, "email", "has already been taken")
		}
	}

	if len(fields) > 0 {
		return nil, apperrors.ValidationFields(fields)
	}

	hash, err := auth.HashPassword(input.Password)
	if err != nil {
		return nil, apperrors.Internal("hash password", err)
	}

	user := models.User{
		Name:         input.Name,
		Email:        input.Email,
		PasswordHash: hash,
		Role:         input.Role,
	}

	if err := u.db.WithContext(ctx).Create(&user).Error; err != nil {
		return nil, apperrors.Internal("create user", err)
	}

	logging.Logger.WithFields(logrus.Fields{
		"user_id":  user.ID,
		"admin_id": principal.ID,
	}).Info("user created")

	view := toUserView(user)
	return &view, nil
}

type UserPatch struct {
	Name     *string `json:"name" validate:"omitempty,max=255"`
	Email    *string `json:"email" validate:"omitempty,email,max=255"`
	Password *string `json:"password" validate:"omitempty,min=8,max=72"`
	Role     *string `json:"role" validate:"omitempty,oneof=admin member"`
}

// Update applies patch. A role change revalidates the user's active project,
// since a demoted admin may no longer reach it.
func (u *UserAdmin) Update(ctx context.Context, principal *types.Principal, userID uint, patch UserPatch) (*UserView, error) {
	if !principal.IsAdmin() {
		return nil, apperrors.ErrAccessDenied
	}

	user, err := u.load(ctx, userID)
	if err != nil {
		return nil, err
	}

	if patch.Email != nil {
		email := normalizeEmail(*patch.Email)
		patch.Email = &email
	}

	fields := checkPasswordBytes(validateFields(patch), patch.Password)
	updates := map[string]interface{}{}

	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			fields = addField(fields, "name", "is required")
		}
		updates["name"] = name
	}

	if patch.Email != nil && fields["email"] == "" && *patch.Email != user.Email {
		taken, err := u.emailTaken(ctx, *patch.Email, user.ID)
		if err != nil {
			return nil, err
		}
		if taken {
			fields = addField(fields, "email", "has already been taken")
		}
		updates["email"] = *patch.Email
	}

	roleChanged := patch.Role != nil && *patch.Role != user.Role
	if roleChanged {
		if user.ID == principal.ID {
			fields = addField(fields, "role", "cannot change your own role")
		}
		updates["role"] = *patch.Role
	}

	if len(fields) > 0 {
		return nil, apperrors.ValidationFields(fields)
	}

	if patch.Password != nil {
		hash, err := auth.HashPassword(*patch.Password)
		if err != nil {
			return nil, apperrors.Internal("hash password", err)
		}
		updates["password_hash"] = hash
	}

	if len(updates) > 0 {
		err := u.db.WithContext(ctx).
			Model(&models.User{}).
			Where("id = ?", user.ID).
			Updates(updates).Error
		if err != nil {
			return nil, apperrors.Internal("update user", err)
		}
	}

	user, err = u.load(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	if roleChanged {
		if _, err := u.active.GetActive(ctx, user.Principal()); err != nil {
			return nil, err
		}
	}

	view := toUserView(*user)
	return &view, nil
}

// Delete removes a user together with their memberships. Admins cannot
// delete themselves, and creators must hand over their projects first.
func (u *UserAdmin) Delete(ctx context.Context, principal *types.Principal, userID uint) error {
	if !principal.IsAdmin() {
		return apperrors.ErrAccessDenied
	}

	if userID == principal.ID {
		return apperrors.Validation("user_id", "cannot delete yourself")
	}

	if _, err := u.load(ctx, userID); err != nil {
		return err
	}

	var owned int64

	err := u.db.WithContext(ctx).
		Model(&models.Project{}).
		Where("created_by = ?", userID).
		Count(&owned).Error
	if err != nil {
		return apperrors.Internal("count created projects", err)
	}

	if owned > 0 {
		return apperrors.Validation("user_id", "user still owns projects")
	}

	err = u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", userID).Delete(&models.ProjectMembership{}).Error; err != nil {
			return apperrors.Internal("delete user memberships", err)
		}

		if err := tx.Delete(&models.User{}, userID).Error; err != nil {
			return apperrors.Internal("delete user", err)
		}

		return nil
	})
	if err != nil {
		return err
	}

	logging.Logger.WithFields(logrus.Fields{
		"user_id":  userID,
		"admin_id": principal.ID,
	}).Info("user deleted")

	return nil
}

func (u *UserAdmin) emailTaken(ctx context.Context, email string, exceptID uint) (bool, error) {
	var count int64

	err := u.db.WithContext(ctx).
		Model(&models.User{}).
		Where("email = ? AND id <> ?", email, exceptID).
		Count(&count).Error
	if err != nil {
		return false, apperrors.Internal("check email", err)
	}

	return count > 0, nil
}

func (u *UserAdmin) load(ctx context.Context, userID uint) (*models.User, error) {
	var user models.User

	if err := u.db.WithContext(ctx).First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, apperrors.Internal("load user", err)
	}

	return &user, nil
}

func checkPasswordBytes(fields map[string]string, password *string) map[string]string {
	if password != nil && len(*password) > maxPasswordBytes {
		return addField(fields, "password", "must be at most 72 bytes")
	}
	return fields
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
