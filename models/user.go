package models

import (
	"time"
)

type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	CreatedAt    time.Time `json:"created_at"`
	Name         string    `gorm:"not null;size:200" json:"name"`
	Email        string    `gorm:"uniqueIndex;not null;size:254" json:"email"`
	PasswordHash string    `gorm:"not null" json:"-"`
}

func (u *User) DisplayName() string {
	if u.Name != "" {
		return u.Name
	}
	return u.Email
}
