package models

import "time"

// ApplicationStatus is the dashboard state of an application.
type ApplicationStatus string

const (
	StatusDraft    ApplicationStatus = "Draft"
	StatusSent     ApplicationStatus = "Sent"
	StatusRejected ApplicationStatus = "Rejected"
	StatusAccepted ApplicationStatus = "Accepted"
)

// ValidApplicationStatuses lists all recognised statuses in workflow order.
var ValidApplicationStatuses = []ApplicationStatus{
	StatusDraft,
	StatusSent,
	StatusRejected,
	StatusAccepted,
}

// IsValid reports whether s is a recognised status.
func (s ApplicationStatus) IsValid() bool {
	for _, v := range ValidApplicationStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// ApplicationRecord is one job application. It has no link to the profile.
//
// Optional text fields are pointers so callers can leave them unset; the
// repository normalizes nil to "" on save and never returns nil on read.
type ApplicationRecord struct {
	ID              int64             `json:"id"`
	CreatedAt       time.Time         `json:"created_at"`
	AppliedAt       *time.Time        `json:"applied_at,omitempty"`
	StatusChangedAt *time.Time        `json:"status_changed_at,omitempty"`
	Status          ApplicationStatus `json:"status"`

	JobTitle string `json:"job_title"`
	Company  string `json:"company"`

	ContactPerson *string `json:"contact_person"`
	Street        *string `json:"street"`
	ZipCode       *string `json:"zip_code"`
	City          *string `json:"city"`
	FullAddress   *string `json:"full_address"`

	SalaryInfo    *string `json:"salary_info"`
	WorkTimeModel *string `json:"work_time_model"`

	Requirements []string `json:"requirements"`
	Benefits     []string `json:"benefits"`

	FullJobDescription *string `json:"full_job_description"`
	JobSummary         *string `json:"job_summary"`

	HtmlCover       *string `json:"html_cover"`
	HtmlLetter      *string `json:"html_letter"`
	HtmlResume      *string `json:"html_resume"`
	HtmlAttachments *string `json:"html_attachments"`
	AppliedCss      *string `json:"applied_css"`

	// RawLetterText is the letter body as returned by the AI provider, without markup.
	RawLetterText *string `json:"raw_letter_text"`
}

// OptionalText returns pointers to every optional text field, in column order.
func (a *ApplicationRecord) OptionalText() []**string {
	return []**string{
		&a.ContactPerson,
		&a.Street,
		&a.ZipCode,
		&a.City,
		&a.FullAddress,
		&a.SalaryInfo,
		&a.WorkTimeModel,
		&a.FullJobDescription,
		&a.JobSummary,
		&a.HtmlCover,
		&a.HtmlLetter,
		&a.HtmlResume,
		&a.HtmlAttachments,
		&a.AppliedCss,
		&a.RawLetterText,
	}
}

// Text dereferences an optional text field, treating nil as "".
func Text(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// StringPtr returns a pointer to s.
func StringPtr(s string) *string {
	return &s
}
