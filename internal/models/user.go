package models

import "github.com/tehokas/taskdeck/internal/types"

type User struct {
	BaseModel

	Name         string `gorm:"not null;index"`
	Email        string `gorm:"uniqueIndex;not null"`
	PasswordHash string `gorm:"not null"`
	Role         string `gorm:"not null;default:member"`

	// Weak pointer, loaded explicitly through the active project selector.
	ActiveProjectID *uint `gorm:"index"`

	// Relationships
	ProjectMemberships []ProjectMembership `gorm:"foreignKey:UserID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

func (u User) IsAdmin() bool {
	return u.Role == types.RoleAdmin
}

func (u User) Principal() *types.Principal {
	return &types.Principal{
		ID:    u.ID,
		Name:  u.Name,
		Email: u.Email,
		Role:  u.Role,
	}
}
