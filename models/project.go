package models

import (
	"time"
)

type Project struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	CreatedAt   time.Time  `json:"created_at"`
	Name        string     `gorm:"not null;size:200" json:"name"`
	Key         string     `gorm:"uniqueIndex;not null;size:50" json:"key"`
	Description string     `gorm:"size:2000" json:"description"`
	StartDate   *time.Time `gorm:"type:date" json:"start_date"`
}

// ProjectSummary is a project annotated with the caller's role in it.
type ProjectSummary struct {
	Project
	MyRole Role `json:"my_role"`
}
