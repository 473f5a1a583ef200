package models

import "github.com/google/uuid"

// Taxonomy is a named, versioned classification scheme. A (name, version)
// pair identifies an existing taxonomy to reuse; taxonomies are never
// mutated after creation.
type Taxonomy struct {
	Base
	Name        string `gorm:"uniqueIndex:idx_taxonomies_name_version;not null" json:"name"`
	Version     string `gorm:"uniqueIndex:idx_taxonomies_name_version;not null" json:"version"`
	Description string `json:"description,omitempty"`
	Source      string `json:"source,omitempty"`

	// Domain tags (JSON array of strings)
	Domains string `gorm:"default:'[]'" json:"domains,omitempty"`

	// Relationships
	Categories []Category `gorm:"foreignKey:TaxonomyID" json:"-"`
}

func (Taxonomy) TableName() string {
	return "taxonomies"
}

// Category is a node in a taxonomy's hierarchy. SupercategoryID points at
// another category in the same taxonomy; nil marks a root. The
// (taxonomy_id, external_id) pair is unique so re-seeding the same rows
// cannot duplicate categories.
type Category struct {
	Base
	Name       string    `gorm:"not null" json:"name"`
	ExternalID string    `gorm:"uniqueIndex:idx_categories_taxonomy_external;not null" json:"external_id"`
	TaxonomyID uuid.UUID `gorm:"type:uuid;uniqueIndex:idx_categories_taxonomy_external;index;not null" json:"taxonomy_id"`

	SupercategoryID *uuid.UUID `gorm:"type:uuid;index" json:"supercategory_id,omitempty"`

	// Relationships
	Taxonomy      *Taxonomy  `gorm:"foreignKey:TaxonomyID" json:"-"`
	Supercategory *Category  `gorm:"foreignKey:SupercategoryID" json:"-"`
	Subcategories []Category `gorm:"foreignKey:SupercategoryID" json:"-"`
}

func (Category) TableName() string {
	return "categories"
}
