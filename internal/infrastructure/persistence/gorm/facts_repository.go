package gorm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cartwise/v3/internal/domain/planning"
	"github.com/cartwise/v3/internal/ports/outbound"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// FactsRepository implements the facts repository interface using GORM
type FactsRepository struct {
	db *gorm.DB
}

// NewFactsRepository creates a new GORM-based facts repository
func NewFactsRepository(db *gorm.DB) outbound.FactsRepository {
	return &FactsRepository{db: db}
}

// Snapshot loads the recall and residue rows for the given keys into an
// immutable in-memory view. Keys with no stored fact simply stay absent;
// the view answers "unknown" for them.
func (r *FactsRepository) Snapshot(ctx context.Context, ingredientKeys, brandKeys []string) (planning.StaticFacts, error) {
	recallKeys := make([]string, 0, len(ingredientKeys)+len(brandKeys))
	seen := make(map[string]struct{}, len(ingredientKeys)+len(brandKeys))
	for _, key := range ingredientKeys {
		if _, ok := seen[key]; !ok {
			seen[key] = struct{}{}
			recallKeys = append(recallKeys, key)
		}
	}
	for _, key := range brandKeys {
		if _, ok := seen[key]; !ok {
			seen[key] = struct{}{}
			recallKeys = append(recallKeys, key)
		}
	}

	recalls := make(map[string]planning.RecallStatus, len(recallKeys))
	if len(recallKeys) > 0 {
		var rows []RecallFactModel
		result := r.db.WithContext(ctx).
			Where("key IN ?", recallKeys).
			Find(&rows)
		if result.Error != nil {
			return planning.StaticFacts{}, fmt.Errorf("failed to load recall facts: %w", result.Error)
		}
		for _, row := range rows {
			status, ok := planning.ParseRecallStatus(row.Status)
			if !ok {
				continue
			}
			recalls[row.Key] = status
		}
	}

	residues := make(map[string]planning.ResidueCategory, len(ingredientKeys))
	if len(ingredientKeys) > 0 {
		var rows []ResidueFactModel
		result := r.db.WithContext(ctx).
			Where("ingredient_key IN ?", ingredientKeys).
			Find(&rows)
		if result.Error != nil {
			return planning.StaticFacts{}, fmt.Errorf("failed to load residue facts: %w", result.Error)
		}
		for _, row := range rows {
			category, ok := planning.ParseResidueCategory(row.Category)
			if !ok {
				continue
			}
			residues[row.IngredientKey] = category
		}
	}

	return planning.NewStaticFacts(recalls, residues), nil
}

// RecallStatus looks up the recall status for a single normalized key
func (r *FactsRepository) RecallStatus(ctx context.Context, key string) (planning.RecallStatus, error) {
	var row RecallFactModel
	result := r.db.WithContext(ctx).
		Where("key = ?", key).
		First(&row)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return planning.RecallStatusUnknown, nil
		}
		return planning.RecallStatusUnknown, fmt.Errorf("failed to load recall status: %w", result.Error)
	}

	status, ok := planning.ParseRecallStatus(row.Status)
	if !ok {
		return planning.RecallStatusUnknown, nil
	}
	return status, nil
}

// ResidueCategory looks up the residue category for a single normalized key
func (r *FactsRepository) ResidueCategory(ctx context.Context, key string) (planning.ResidueCategory, error) {
	var row ResidueFactModel
	result := r.db.WithContext(ctx).
		Where("ingredient_key = ?", key).
		First(&row)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return planning.ResidueCategoryUnknown, nil
		}
		return planning.ResidueCategoryUnknown, fmt.Errorf("failed to load residue category: %w", result.Error)
	}

	category, ok := planning.ParseResidueCategory(row.Category)
	if !ok {
		return planning.ResidueCategoryUnknown, nil
	}
	return category, nil
}

// RecordRecall upserts the recall status for a key. Recording a "safe"
// status keeps the row so the audit trail shows the recall was lifted.
func (r *FactsRepository) RecordRecall(ctx context.Context, key string, status planning.RecallStatus) error {
	row := RecallFactModel{
		Key:       key,
		Status:    string(status),
		UpdatedAt: time.Now().UTC(),
	}

	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"status", "updated_at"}),
		}).
		Create(&row)
	if result.Error != nil {
		return fmt.Errorf("failed to record recall: %w", result.Error)
	}
	return nil
}

// SetResidueCategory upserts the residue category for an ingredient key
func (r *FactsRepository) SetResidueCategory(ctx context.Context, key string, category planning.ResidueCategory) error {
	row := ResidueFactModel{
		IngredientKey: key,
		Category:      string(category),
		UpdatedAt:     time.Now().UTC(),
	}

	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "ingredient_key"}},
			DoUpdates: clause.AssignmentColumns([]string{"category", "updated_at"}),
		}).
		Create(&row)
	if result.Error != nil {
		return fmt.Errorf("failed to set residue category: %w", result.Error)
	}
	return nil
}

// ActiveRecalls lists every key currently marked recalled, ordered by key
func (r *FactsRepository) ActiveRecalls(ctx context.Context) ([]outbound.RecallRecord, error) {
	var rows []RecallFactModel
	result := r.db.WithContext(ctx).
		Where("status = ?", string(planning.RecallStatusRecalled)).
		Order("key ASC").
		Find(&rows)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list active recalls: %w", result.Error)
	}

	records := make([]outbound.RecallRecord, len(rows))
	for i, row := range rows {
		records[i] = outbound.RecallRecord{
			Key:       row.Key,
			Status:    planning.RecallStatusRecalled,
			UpdatedAt: row.UpdatedAt,
		}
	}
	return records, nil
}
