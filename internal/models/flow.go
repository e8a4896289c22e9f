package models

import "time"

// Flow groups case-less tasks into a project.
type Flow struct {
	ID          uint   `gorm:"primaryKey;autoIncrement"`
	Name        string `gorm:"size:128;not null"`
	Description string `gorm:"type:text"`
	Owner       string `gorm:"size:64"`
	Active      bool   `gorm:"default:true"`
	CreatedAt   time.Time
	UpdatedAt   time.Time

	Tasks []Task `gorm:"foreignKey:FlowID"`
}
