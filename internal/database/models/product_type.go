package models

// ProductType is shared reference data (e.g. "chair", "jacket").
type ProductType struct {
	Base
	Name        string `gorm:"uniqueIndex;not null" json:"name"`
	Description string `json:"description,omitempty"`
}

func (ProductType) TableName() string {
	return "product_types"
}
