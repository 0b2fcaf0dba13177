package models

import (
	"gorm.io/datatypes"
)

// NotificationFailure is a dead-letter record for an email task that
// exhausted its retries
type NotificationFailure struct {
	Base
	TaskType string         `gorm:"column:task_type;not null;index" json:"task_type"`
	Payload  datatypes.JSON `gorm:"type:jsonb" json:"payload"`
	Error    string         `gorm:"type:text" json:"error"`
	Retries  int            `gorm:"not null;default:0" json:"retries"`
}
