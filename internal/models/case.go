// internal/models/case.go
package models

import "time"

// Case statuses used when listing active work.
const (
	CaseStatusWorking    = "Working"
	CaseStatusInProgress = "In Progress"
)

// Case is a support case record as returned by the case repository.
// JSON names follow the record field names so raw_case stays readable by existing callers.
type Case struct {
	ID               string    `json:"Id" db:"id"`
	CaseNumber       string    `json:"CaseNumber" db:"case_number"`
	Subject          string    `json:"Subject" db:"subject"`
	Description      string    `json:"Description,omitempty" db:"description"`
	Status           string    `json:"Status" db:"status"`
	Priority         string    `json:"Priority,omitempty" db:"priority"`
	ContactName      string    `json:"ContactName,omitempty" db:"contact_name"`
	OwnerName        string    `json:"OwnerName,omitempty" db:"owner_name"`
	AccountName      string    `json:"AccountName,omitempty" db:"account_name"`
	CreatedDate      time.Time `json:"CreatedDate" db:"created_at"`
	LastModifiedDate time.Time `json:"LastModifiedDate" db:"last_modified_at"`
}

// Comment is a single case comment.
type Comment struct {
	CommentBody   string    `json:"CommentBody" db:"comment_body"`
	CreatedDate   time.Time `json:"CreatedDate" db:"created_at"`
	CreatedByName string    `json:"CreatedByName,omitempty" db:"created_by"`
}

// HistoryEntry records one field change on a case.
type HistoryEntry struct {
	Field         string    `json:"Field" db:"field"`
	OldValue      string    `json:"OldValue,omitempty" db:"old_value"`
	NewValue      string    `json:"NewValue,omitempty" db:"new_value"`
	CreatedDate   time.Time `json:"CreatedDate" db:"created_at"`
	CreatedByName string    `json:"CreatedByName,omitempty" db:"created_by"`
}

// FeedEntry is an activity feed item (posts, status changes, attachments).
type FeedEntry struct {
	Body          string    `json:"Body,omitempty" db:"body"`
	Type          string    `json:"Type" db:"type"`
	CreatedDate   time.Time `json:"CreatedDate" db:"created_at"`
	CreatedByName string    `json:"CreatedByName,omitempty" db:"created_by"`
}

// CaseCandidate is the trimmed view of a case offered to the user to pick from.
type CaseCandidate struct {
	ID               string     `json:"Id"`
	CaseNumber       string     `json:"CaseNumber"`
	Subject          string     `json:"Subject"`
	Status           string     `json:"Status"`
	Priority         string     `json:"Priority,omitempty"`
	Description      string     `json:"Description,omitempty"`
	LastModifiedDate *time.Time `json:"LastModifiedDate,omitempty"`
}
