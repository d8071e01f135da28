package models

import "time"

// BaseModel is gorm.Model without soft delete: rows here are removed for real.
type BaseModel struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
