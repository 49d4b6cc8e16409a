package storage

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"justibot/internal/domain"
)

// GormStore persists cases in PostgreSQL.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(databaseURL string) (*GormStore, error) {
	db, err := gorm.Open(postgres.Open(databaseURL), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := db.AutoMigrate(&domain.LegalCase{}); err != nil {
		return nil, fmt.Errorf("migrate legal_cases: %w", err)
	}

	return &GormStore{db: db}, nil
}

func (s *GormStore) Insert(ctx context.Context, c *domain.LegalCase) error {
	if c.Status == "" {
		c.Status = domain.CaseStatusDraft
	}

	if err := s.db.WithContext(ctx).Create(c).Error; err != nil {
		return fmt.Errorf("insert case: %w", err)
	}
	return nil
}

func (s *GormStore) FetchByID(ctx context.Context, id uint) (domain.LegalCase, error) {
	var c domain.LegalCase
	err := s.db.WithContext(ctx).First(&c, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.LegalCase{}, domain.ErrCaseNotFound
	}
	if err != nil {
		return domain.LegalCase{}, fmt.Errorf("fetch case %d: %w", id, err)
	}
	return c, nil
}

func (s *GormStore) UpdateByID(ctx context.Context, id uint, patch domain.CasePatch) (domain.LegalCase, error) {
	var updated domain.LegalCase

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing domain.LegalCase
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&existing, id).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ErrCaseNotFound
		}
		if err != nil {
			return fmt.Errorf("lock case %d: %w", id, err)
		}

		if patch.CompletesCase() && existing.Completed() {
			return domain.ErrAlreadyFinalized
		}

		updates := patchColumns(patch)
		if len(updates) > 0 {
			if err := tx.Model(&existing).Updates(updates).Error; err != nil {
				return fmt.Errorf("update case %d: %w", id, err)
			}
		}

		if err := tx.First(&updated, id).Error; err != nil {
			return fmt.Errorf("reload case %d: %w", id, err)
		}
		return nil
	})
	if err != nil {
		return domain.LegalCase{}, err
	}

	return updated, nil
}

func patchColumns(patch domain.CasePatch) map[string]any {
	updates := map[string]any{}
	if patch.CitizenName != nil {
		updates["citizen_name"] = *patch.CitizenName
	}
	if patch.CitizenID != nil {
		updates["citizen_id"] = *patch.CitizenID
	}
	if patch.City != nil {
		updates["city"] = *patch.City
	}
	if patch.Email != nil {
		updates["email"] = *patch.Email
	}
	if patch.PDFPath != nil {
		updates["pdf_path"] = *patch.PDFPath
	}
	if patch.Status != nil {
		updates["status"] = *patch.Status
	}
	return updates
}
