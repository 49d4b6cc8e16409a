// Package cases drives a legal case through its lifecycle: draft on creation,
// completed once identity data is attached and the document is rendered.
package cases

import (
	"context"
	"fmt"
	"log"
	"strings"

	"justibot/internal/domain"
	"justibot/internal/storage"
)

// GenerationFallbackText is stored in generated_text when the AI call fails.
// Creation never fails on a generator error; the text is best-effort.
const GenerationFallbackText = "Error generating legal text. Please try again later. (Error logged)"

// Generator produces legal prose from a case type and a free-text description.
type Generator interface {
	Generate(ctx context.Context, caseType domain.CaseType, description string) (string, error)
}

// RenderedDocument is a rendered artifact staged at a private per-attempt
// location. Publish moves it to its stable name; Discard drops the attempt.
// Staging keeps a finalization that loses the completed transition from ever
// touching the winner's document.
type RenderedDocument interface {
	Name() string
	Publish() error
	Discard()
}

// Renderer produces the document artifact for a finalization attempt.
type Renderer interface {
	Render(ctx context.Context, caseID uint, legalText, citizenName, citizenID, city string) (RenderedDocument, error)
}

// Orchestrator sequences the generator, the store and the renderer. It is the
// sole writer of generated_text, status and pdf_path.
type Orchestrator struct {
	store    storage.CaseStore
	gen      Generator
	renderer Renderer
}

func NewOrchestrator(store storage.CaseStore, gen Generator, renderer Renderer) *Orchestrator {
	return &Orchestrator{store: store, gen: gen, renderer: renderer}
}

// CreateParams are the inputs for a new case.
type CreateParams struct {
	CaseType    domain.CaseType
	Description string
}

// FinalizeParams carry the identity fields attached during finalization.
// Email is optional; a nil Email never overwrites a stored value.
type FinalizeParams struct {
	CitizenName string
	CitizenID   string
	City        string
	Email       *string
}

// CreateCase generates legal text for the described complaint and persists a
// new draft case. A generator failure degrades to placeholder text instead of
// failing the request: the user always gets a case record back.
func (o *Orchestrator) CreateCase(ctx context.Context, p CreateParams) (domain.LegalCase, error) {
	if !p.CaseType.Valid() {
		return domain.LegalCase{}, domain.NewValidationError("case_type", fmt.Sprintf("must be %q or %q", domain.CaseTypeHealth, domain.CaseTypeFine))
	}
	if strings.TrimSpace(p.Description) == "" {
		return domain.LegalCase{}, domain.NewValidationError("description", "must not be empty")
	}

	text, err := o.gen.Generate(ctx, p.CaseType, p.Description)
	if err != nil {
		log.Printf("cases: generation failed, storing placeholder: %v", err)
		text = GenerationFallbackText
	}

	// Abandoned requests must not persist results.
	if err := ctx.Err(); err != nil {
		return domain.LegalCase{}, err
	}

	c := domain.LegalCase{
		CaseType:      p.CaseType,
		Description:   p.Description,
		GeneratedText: text,
		Status:        domain.CaseStatusDraft,
	}
	if err := o.store.Insert(ctx, &c); err != nil {
		return domain.LegalCase{}, fmt.Errorf("persist case: %w", err)
	}

	return c, nil
}

// FinalizeCase attaches identity data, renders the document and completes the
// case. All-or-nothing: a renderer failure leaves the case draft with no
// document reference, and the caller may retry. A case finalizes at most once;
// repeat calls fail with domain.ErrAlreadyFinalized.
func (o *Orchestrator) FinalizeCase(ctx context.Context, caseID uint, p FinalizeParams) (domain.LegalCase, error) {
	if err := validateIdentity(p); err != nil {
		return domain.LegalCase{}, err
	}

	c, err := o.store.FetchByID(ctx, caseID)
	if err != nil {
		return domain.LegalCase{}, err
	}
	if c.Completed() {
		return domain.LegalCase{}, domain.ErrAlreadyFinalized
	}

	doc, err := o.renderer.Render(ctx, c.ID, c.GeneratedText, p.CitizenName, p.CitizenID, p.City)
	if err != nil {
		return domain.LegalCase{}, fmt.Errorf("%w: %v", domain.ErrRenderFailed, err)
	}

	if err := ctx.Err(); err != nil {
		doc.Discard()
		return domain.LegalCase{}, err
	}

	completed := domain.CaseStatusCompleted
	documentName := doc.Name()
	patch := domain.CasePatch{
		CitizenName: &p.CitizenName,
		CitizenID:   &p.CitizenID,
		City:        &p.City,
		Email:       p.Email,
		PDFPath:     &documentName,
		Status:      &completed,
	}

	// The store applies the completed transition conditionally, so a
	// concurrent finalization that raced past the check above still loses
	// here. Only the winner publishes its staged document; the loser's
	// attempt is discarded without touching the stable artifact.
	updated, err := o.store.UpdateByID(ctx, caseID, patch)
	if err != nil {
		doc.Discard()
		return domain.LegalCase{}, err
	}

	if err := doc.Publish(); err != nil {
		return domain.LegalCase{}, fmt.Errorf("publish document: %w", err)
	}

	return updated, nil
}

// GetCase is a pure read-through to the store.
func (o *Orchestrator) GetCase(ctx context.Context, caseID uint) (domain.LegalCase, error) {
	return o.store.FetchByID(ctx, caseID)
}

func validateIdentity(p FinalizeParams) error {
	if strings.TrimSpace(p.CitizenName) == "" {
		return domain.NewValidationError("citizen_name", "must not be empty")
	}
	if strings.TrimSpace(p.CitizenID) == "" {
		return domain.NewValidationError("citizen_id", "must not be empty")
	}
	if strings.TrimSpace(p.City) == "" {
		return domain.NewValidationError("city", "must not be empty")
	}
	return nil
}
