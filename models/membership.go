package models

import (
	"time"
)

type Role string

const (
	RoleMember     Role = "member"
	RoleMaintainer Role = "maintainer"
)

// Roles lists every role in declaration order.
var Roles = []Role{RoleMember, RoleMaintainer}

func (r Role) Valid() bool {
	return rank(Roles, r) >= 0
}

func (r Role) IsMaintainer() bool {
	return r == RoleMaintainer
}

// ProjectMember grants a user a role within a project. The (project, user)
// pair is the primary key, so a user holds at most one role per project.
type ProjectMember struct {
	ProjectID uint      `gorm:"primaryKey;autoIncrement:false" json:"project_id"`
	UserID    uint      `gorm:"primaryKey;autoIncrement:false;index" json:"user_id"`
	Role      Role      `gorm:"not null;size:20" json:"role"`
	CreatedAt time.Time `json:"created_at"`
	Project   *Project  `gorm:"foreignKey:ProjectID;constraint:OnDelete:CASCADE" json:"-"`
	User      *User     `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}

func (m *ProjectMember) IsMaintainer() bool {
	return m.Role.IsMaintainer()
}

// MemberView is a membership joined with the member's identity.
type MemberView struct {
	UserID uint   `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Role   Role   `json:"role"`
}

func rank[T comparable](order []T, v T) int {
	for i, o := range order {
		if o == v {
			return i
		}
	}
	return -1
}
