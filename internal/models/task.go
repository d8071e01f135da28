package models

import (
	"time"

	"github.com/tehokas/taskdeck/internal/taskstatus"
	"gorm.io/datatypes"
)

const DateLayout = "2006-01-02"

type Task struct {
	BaseModel

	ProjectID   uint              `gorm:"not null;index"`
	Title       string            `gorm:"not null"`
	Description *string           `gorm:"type:text"`
	Status      taskstatus.Status `gorm:"type:varchar(20);not null;default:pending;index"`
	Deadline    datatypes.Date    `gorm:"not null;index"`

	// Relationships
	Project Project `gorm:"foreignKey:ProjectID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

func (t *Task) CurrentStatus() taskstatus.Status {
	return t.Status
}

func (t *Task) SetStatus(status taskstatus.Status) {
	t.Status = status
}

func (t Task) DeadlineString() string {
	return time.Time(t.Deadline).Format(DateLayout)
}

// ParseDate reads a calendar date and pins it to midnight UTC.
func ParseDate(value string) (datatypes.Date, error) {
	d, err := time.ParseInLocation(DateLayout, value, time.UTC)
	if err != nil {
		return datatypes.Date{}, err
	}
	return datatypes.Date(d), nil
}
