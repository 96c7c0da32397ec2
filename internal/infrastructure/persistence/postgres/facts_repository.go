package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cartwise/v3/internal/domain/planning"
	"github.com/cartwise/v3/internal/ports/outbound"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// FactsRepository implements the facts repository interface on pgx
type FactsRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

// NewFactsRepository creates a new pgx-based facts repository
func NewFactsRepository(db *pgxpool.Pool, logger *zap.Logger) outbound.FactsRepository {
	return &FactsRepository{
		db:     db,
		logger: logger,
	}
}

// Snapshot loads recall and residue rows for the given keys into an
// immutable in-memory view
func (r *FactsRepository) Snapshot(ctx context.Context, ingredientKeys, brandKeys []string) (planning.StaticFacts, error) {
	recallKeys := dedupe(ingredientKeys, brandKeys)

	recalls := make(map[string]planning.RecallStatus, len(recallKeys))
	if len(recallKeys) > 0 {
		rows, err := r.db.Query(ctx,
			`SELECT key, status FROM recall_facts WHERE key = ANY($1)`,
			recallKeys,
		)
		if err != nil {
			return planning.StaticFacts{}, fmt.Errorf("failed to load recall facts: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var key, raw string
			if err := rows.Scan(&key, &raw); err != nil {
				return planning.StaticFacts{}, fmt.Errorf("failed to scan recall fact: %w", err)
			}
			if status, ok := planning.ParseRecallStatus(raw); ok {
				recalls[key] = status
			}
		}
		if err := rows.Err(); err != nil {
			return planning.StaticFacts{}, fmt.Errorf("failed to read recall facts: %w", err)
		}
	}

	residues := make(map[string]planning.ResidueCategory, len(ingredientKeys))
	if len(ingredientKeys) > 0 {
		rows, err := r.db.Query(ctx,
			`SELECT ingredient_key, category FROM residue_facts WHERE ingredient_key = ANY($1)`,
			ingredientKeys,
		)
		if err != nil {
			return planning.StaticFacts{}, fmt.Errorf("failed to load residue facts: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var key, raw string
			if err := rows.Scan(&key, &raw); err != nil {
				return planning.StaticFacts{}, fmt.Errorf("failed to scan residue fact: %w", err)
			}
			if category, ok := planning.ParseResidueCategory(raw); ok {
				residues[key] = category
			}
		}
		if err := rows.Err(); err != nil {
			return planning.StaticFacts{}, fmt.Errorf("failed to read residue facts: %w", err)
		}
	}

	return planning.NewStaticFacts(recalls, residues), nil
}

// RecallStatus looks up the recall status for a single normalized key
func (r *FactsRepository) RecallStatus(ctx context.Context, key string) (planning.RecallStatus, error) {
	var raw string
	err := r.db.QueryRow(ctx,
		`SELECT status FROM recall_facts WHERE key = $1`,
		key,
	).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return planning.RecallStatusUnknown, nil
		}
		return planning.RecallStatusUnknown, fmt.Errorf("failed to load recall status: %w", err)
	}

	status, ok := planning.ParseRecallStatus(raw)
	if !ok {
		r.logger.Warn("Unparseable recall status in facts store",
			zap.String("key", key),
			zap.String("status", raw),
		)
		return planning.RecallStatusUnknown, nil
	}
	return status, nil
}

// ResidueCategory looks up the residue category for a single normalized key
func (r *FactsRepository) ResidueCategory(ctx context.Context, key string) (planning.ResidueCategory, error) {
	var raw string
	err := r.db.QueryRow(ctx,
		`SELECT category FROM residue_facts WHERE ingredient_key = $1`,
		key,
	).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return planning.ResidueCategoryUnknown, nil
		}
		return planning.ResidueCategoryUnknown, fmt.Errorf("failed to load residue category: %w", err)
	}

	category, ok := planning.ParseResidueCategory(raw)
	if !ok {
		r.logger.Warn("Unparseable residue category in facts store",
			zap.String("key", key),
			zap.String("category", raw),
		)
		return planning.ResidueCategoryUnknown, nil
	}
	return category, nil
}

// RecordRecall upserts the recall status for a key
func (r *FactsRepository) RecordRecall(ctx context.Context, key string, status planning.RecallStatus) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO recall_facts (key, status, updated_at)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (key) DO UPDATE
		 SET status = EXCLUDED.status, updated_at = EXCLUDED.updated_at`,
		key, string(status), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to record recall: %w", err)
	}
	return nil
}

// SetResidueCategory upserts the residue category for an ingredient key
func (r *FactsRepository) SetResidueCategory(ctx context.Context, key string, category planning.ResidueCategory) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO residue_facts (ingredient_key, category, updated_at)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (ingredient_key) DO UPDATE
		 SET category = EXCLUDED.category, updated_at = EXCLUDED.updated_at`,
		key, string(category), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to set residue category: %w", err)
	}
	return nil
}

// ActiveRecalls lists every key currently marked recalled, ordered by key
func (r *FactsRepository) ActiveRecalls(ctx context.Context) ([]outbound.RecallRecord, error) {
	rows, err := r.db.Query(ctx,
		`SELECT key, updated_at FROM recall_facts WHERE status = $1 ORDER BY key`,
		string(planning.RecallStatusRecalled),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list active recalls: %w", err)
	}
	defer rows.Close()

	var records []outbound.RecallRecord
	for rows.Next() {
		var record outbound.RecallRecord
		if err := rows.Scan(&record.Key, &record.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan recall record: %w", err)
		}
		record.Status = planning.RecallStatusRecalled
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read recall records: %w", err)
	}

	return records, nil
}

// dedupe merges key slices preserving first-seen order
func dedupe(lists ...[]string) []string {
	var merged []string
	seen := make(map[string]struct{})
	for _, list := range lists {
		for _, key := range list {
			if _, ok := seen[key]; !ok {
				seen[key] = struct{}{}
				merged = append(merged, key)
			}
		}
	}
	return merged
}
