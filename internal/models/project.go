package models

type Project struct {
	BaseModel

	Name      string `gorm:"not null;index"`
	Status    string `gorm:"not null;default:active"`
	CreatedBy uint   `gorm:"not null;index"`

	// Relationships
	Creator            User                `gorm:"foreignKey:CreatedBy;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT"`
	ProjectMemberships []ProjectMembership `gorm:"foreignKey:ProjectID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	Tasks              []Task              `gorm:"foreignKey:ProjectID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}
