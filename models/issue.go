package models

import (
	"time"
)

type IssueStatus string

const (
	StatusOpen       IssueStatus = "open"
	StatusInProgress IssueStatus = "in_progress"
	StatusResolved   IssueStatus = "resolved"
	StatusClosed     IssueStatus = "closed"
)

// Statuses lists every status in declaration order; sorting by status follows it.
var Statuses = []IssueStatus{StatusOpen, StatusInProgress, StatusResolved, StatusClosed}

func (s IssueStatus) Valid() bool { return s.Rank() >= 0 }

// Rank is the position of s in Statuses, or -1 for unknown values.
func (s IssueStatus) Rank() int { return rank(Statuses, s) }

type IssuePriority string

const (
	PriorityLow      IssuePriority = "low"
	PriorityMedium   IssuePriority = "medium"
	PriorityHigh     IssuePriority = "high"
	PriorityCritical IssuePriority = "critical"
)

// Priorities lists every priority from lowest to highest.
var Priorities = []IssuePriority{PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical}

func (p IssuePriority) Valid() bool { return p.Rank() >= 0 }

func (p IssuePriority) Rank() int { return rank(Priorities, p) }

type Issue struct {
	ID          uint          `gorm:"primaryKey" json:"id"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
	ProjectID   uint          `gorm:"not null;index" json:"project_id"`
	Title       string        `gorm:"not null;size:200" json:"title"`
	Description string        `gorm:"size:5000" json:"description"`
	Status      IssueStatus   `gorm:"not null;size:20;default:open;index" json:"status"`
	Priority    IssuePriority `gorm:"not null;size:20;default:medium;index" json:"priority"`
	ReporterID  uint          `gorm:"not null;index" json:"reporter_id"`
	AssigneeID  *uint         `gorm:"index" json:"assignee_id"`
	Project     *Project      `gorm:"foreignKey:ProjectID;constraint:OnDelete:CASCADE" json:"-"`
	Reporter    *User         `gorm:"foreignKey:ReporterID" json:"-"`
	Assignee    *User         `gorm:"foreignKey:AssigneeID" json:"-"`
}

func (i *Issue) IsReportedBy(userID uint) bool {
	return i.ReporterID == userID
}

// IssueView is an issue enriched with reporter and assignee names resolved at read time.
type IssueView struct {
	Issue
	ReporterName *string `json:"reporter_name"`
	AssigneeName *string `json:"assignee_name"`
}

// Sort keys accepted by issue listings.
const (
	SortCreatedAt = "created_at"
	SortPriority  = "priority"
	SortStatus    = "status"
)

type IssueFilter struct {
	Status     *IssueStatus
	Priority   *IssuePriority
	AssigneeID *uint
	// Query matches titles case-insensitively as a substring.
	Query string
	// Sort is one of the Sort* keys; anything else keeps id order.
	Sort     string
	Page     int
	PageSize int
}

// Offset is the number of filtered rows skipped before the current page.
func (f IssueFilter) Offset() int {
	if f.Page < 1 {
		return 0
	}
	return (f.Page - 1) * f.PageSize
}

// IssuePatch holds the fields of a partial update. Fields not Set are left untouched.
type IssuePatch struct {
	Title       Optional[string]        `json:"title"`
	Description Optional[string]        `json:"description"`
	Status      Optional[IssueStatus]   `json:"status"`
	Priority    Optional[IssuePriority] `json:"priority"`
	AssigneeID  Optional[uint]          `json:"assignee_id"`
}

// Empty reports whether the patch touches no field at all.
func (p IssuePatch) Empty() bool {
	return !p.Title.Set && !p.Description.Set && !p.Status.Set && !p.Priority.Set && !p.AssigneeID.Set
}
