package models

import (
	"time"
)

type Comment struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	IssueID   uint      `gorm:"not null;index" json:"issue_id"`
	AuthorID  uint      `gorm:"not null" json:"author_id"`
	Body      string    `gorm:"not null;size:5000" json:"body"`
	Issue     *Issue    `gorm:"foreignKey:IssueID;constraint:OnDelete:CASCADE" json:"-"`
	Author    *User     `gorm:"foreignKey:AuthorID" json:"-"`
}
