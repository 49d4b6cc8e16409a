package storage

import (
	"context"

	"justibot/internal/domain"
)

// CaseStore is the persistence contract for legal cases. Two implementations
// exist: GormStore (Postgres) and FileStore (JSON file, used for local
// development and tests).
//
// UpdateByID applies only the non-nil fields of the patch. A patch that sets
// the completed status must be applied conditionally on the case still being
// draft; when the case already completed the store returns
// domain.ErrAlreadyFinalized and writes nothing, so concurrent finalizations
// resolve to exactly one winner.
type CaseStore interface {
	Insert(ctx context.Context, c *domain.LegalCase) error
	FetchByID(ctx context.Context, id uint) (domain.LegalCase, error)
	UpdateByID(ctx context.Context, id uint, patch domain.CasePatch) (domain.LegalCase, error)
}
