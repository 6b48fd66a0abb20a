// internal/models/case_data.go
package models

import "time"

// CaseData is the structured snapshot of a loaded case that a session keeps
// and that every case-scoped payload carries.
type CaseData struct {
	CaseID           string     `json:"case_id"`
	CaseNumber       string     `json:"case_number"`
	Subject          string     `json:"subject"`
	Description      string     `json:"description"`
	Status           string     `json:"status"`
	Priority         string     `json:"priority"`
	ContactName      string     `json:"contact_name,omitempty"`
	Owner            string     `json:"owner,omitempty"`
	Account          string     `json:"account,omitempty"`
	CreatedDate      *time.Time `json:"created_date,omitempty"`
	LastModifiedDate *time.Time `json:"last_modified_date,omitempty"`
	RawCaseData      *Case      `json:"raw_case_data"`
}

// NewCaseData builds the snapshot for c. A nil case yields nil.
func NewCaseData(c *Case) *CaseData {
	if c == nil {
		return nil
	}
	raw := *c
	return &CaseData{
		CaseID:           c.ID,
		CaseNumber:       c.CaseNumber,
		Subject:          c.Subject,
		Description:      c.Description,
		Status:           c.Status,
		Priority:         c.Priority,
		ContactName:      c.ContactName,
		Owner:            c.OwnerName,
		Account:          c.AccountName,
		CreatedDate:      optionalTime(c.CreatedDate),
		LastModifiedDate: optionalTime(c.LastModifiedDate),
		RawCaseData:      &raw,
	}
}

// Clone returns a deep copy so callers outside the session lock never share the snapshot.
func (d *CaseData) Clone() *CaseData {
	if d == nil {
		return nil
	}
	out := *d
	if d.RawCaseData != nil {
		raw := *d.RawCaseData
		out.RawCaseData = &raw
	}
	return &out
}

// NewCandidate trims a case down to the fields shown in pick lists.
func NewCandidate(c Case, withDescription bool) CaseCandidate {
	cand := CaseCandidate{
		ID:               c.ID,
		CaseNumber:       c.CaseNumber,
		Subject:          c.Subject,
		Status:           c.Status,
		Priority:         c.Priority,
		LastModifiedDate: optionalTime(c.LastModifiedDate),
	}
	if withDescription {
		cand.Description = c.Description
	}
	return cand
}

func optionalTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
