package domain

import "time"

// CaseType classifies the legal document a case produces.
type CaseType string

const (
	// CaseTypeHealth produces an acción de tutela (constitutional health rights).
	CaseTypeHealth CaseType = "health"
	// CaseTypeFine produces a derecho de petición (formal request to an authority).
	CaseTypeFine CaseType = "fine"
)

func (t CaseType) Valid() bool {
	return t == CaseTypeHealth || t == CaseTypeFine
}

// CaseStatus tracks a case through its lifecycle.
type CaseStatus string

const (
	CaseStatusDraft     CaseStatus = "draft"
	CaseStatusCompleted CaseStatus = "completed"
)

// LegalCase is the central entity: one user-submitted legal request.
//
// CaseType, Description and GeneratedText are set at creation and never
// rewritten. Identity fields, PDFPath and the completed status are set exactly
// once during finalization.
type LegalCase struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	CitizenName string `json:"citizen_name,omitempty"`
	CitizenID   string `json:"citizen_id,omitempty"`
	City        string `json:"city,omitempty"`
	Email       string `json:"email,omitempty"`

	CaseType    CaseType `gorm:"not null;index" json:"case_type"`
	Description string   `gorm:"type:text;not null" json:"description"`

	GeneratedText string `gorm:"type:text" json:"generated_text"`
	PDFPath       string `json:"pdf_url,omitempty"`

	Status CaseStatus `gorm:"not null;default:draft;index" json:"status"`
}

// TableName specifies the table name for the LegalCase model.
func (LegalCase) TableName() string {
	return "legal_cases"
}

// Completed reports whether the case has been finalized.
func (c LegalCase) Completed() bool {
	return c.Status == CaseStatusCompleted
}

// CasePatch carries a partial update. Nil fields are left untouched by the
// store, so a finalize payload without an email never clears a stored one.
type CasePatch struct {
	CitizenName *string
	CitizenID   *string
	City        *string
	Email       *string
	PDFPath     *string
	Status      *CaseStatus
}

// CompletesCase reports whether the patch attempts the draft -> completed
// transition. Stores apply such patches conditionally: at most one
// finalization wins.
func (p CasePatch) CompletesCase() bool {
	return p.Status != nil && *p.Status == CaseStatusCompleted
}
