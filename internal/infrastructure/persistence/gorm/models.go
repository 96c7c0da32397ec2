// Package gorm provides GORM persistence for ingredient and brand facts
package gorm

import (
	"time"
)

// RecallFactModel is the GORM model for recall facts. The key column holds
// the normalized ingredient or brand key the fact applies to.
type RecallFactModel struct {
	Key       string `gorm:"type:varchar(255);primaryKey"`
	Status    string `gorm:"type:varchar(16);not null;index"`
	UpdatedAt time.Time
}

// TableName returns the table name for recall facts
func (RecallFactModel) TableName() string {
	return "recall_facts"
}

// ResidueFactModel is the GORM model for pesticide residue categories,
// keyed by normalized ingredient key.
type ResidueFactModel struct {
	IngredientKey string `gorm:"type:varchar(255);primaryKey"`
	Category      string `gorm:"type:varchar(16);not null"`
	UpdatedAt     time.Time
}

// TableName returns the table name for residue facts
func (ResidueFactModel) TableName() string {
	return "residue_facts"
}
