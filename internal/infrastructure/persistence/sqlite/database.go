// Package sqlite provides SQLite database setup and configuration
package sqlite

import (
	"fmt"
	"time"

	"github.com/cartwise/v3/internal/domain/planning"
	gormModels "github.com/cartwise/v3/internal/infrastructure/persistence/gorm"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// SetupDatabase creates and configures the SQLite facts database
func SetupDatabase(dbPath string, logLevel logger.LogLevel) (*gorm.DB, error) {
	// Use in-memory database if no path provided
	if dbPath == "" {
		dbPath = ":memory:"
	}

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Run auto-migration
	err = db.AutoMigrate(
		&gormModels.RecallFactModel{},
		&gormModels.ResidueFactModel{},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return db, nil
}

// SeedDatabase populates the facts database with reference data. The
// residue lists follow the published high/low pesticide-residue produce
// guidance; keys are stored in normalized singular form.
func SeedDatabase(db *gorm.DB) error {
	// Check if data already exists
	var residueCount int64
	db.Model(&gormModels.ResidueFactModel{}).Count(&residueCount)
	if residueCount > 0 {
		return nil // Already seeded
	}

	now := time.Now().UTC()

	highResidue := []string{
		"strawberry", "spinach", "kale", "collard green", "mustard green",
		"grape", "peach", "pear", "nectarine", "apple", "bell pepper",
		"cherry", "blueberry", "green bean", "potato", "celery", "tomato",
		"turmeric", "raisin",
	}
	lowResidue := []string{
		"avocado", "sweet corn", "pineapple", "onion", "green onion",
		"papaya", "asparagus", "honeydew melon", "kiwi", "cabbage",
		"watermelon", "mushroom", "mango", "sweet potato", "carrot",
		"banana", "cauliflower",
	}

	residues := make([]gormModels.ResidueFactModel, 0, len(highResidue)+len(lowResidue))
	for _, key := range highResidue {
		residues = append(residues, gormModels.ResidueFactModel{
			IngredientKey: key,
			Category:      string(planning.ResidueCategoryHigh),
			UpdatedAt:     now,
		})
	}
	for _, key := range lowResidue {
		residues = append(residues, gormModels.ResidueFactModel{
			IngredientKey: key,
			Category:      string(planning.ResidueCategoryLow),
			UpdatedAt:     now,
		})
	}

	for _, residue := range residues {
		if err := db.Create(&residue).Error; err != nil {
			return fmt.Errorf("failed to seed residue fact: %w", err)
		}
	}

	// Demo recalls so a fresh install shows the elimination path. Both are
	// marked safe; operators flip them via the admin API.
	demoRecalls := []gormModels.RecallFactModel{
		{
			Key:       "romaine lettuce",
			Status:    string(planning.RecallStatusSafe),
			UpdatedAt: now,
		},
		{
			Key:       "peanut butter",
			Status:    string(planning.RecallStatusSafe),
			UpdatedAt: now,
		},
	}

	for _, recall := range demoRecalls {
		if err := db.Create(&recall).Error; err != nil {
			return fmt.Errorf("failed to seed recall fact: %w", err)
		}
	}

	return nil
}
