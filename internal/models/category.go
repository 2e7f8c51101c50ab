package models

// EntryKind is the nature of an entry or category.
type EntryKind string

const (
	EntryKindExpense EntryKind = "expense"
	EntryKindIncome  EntryKind = "income"
)

// Category groups entries of one kind.
type Category struct {
	Base
	TenantOwned
	Name        string    `gorm:"not null" json:"name"`
	Kind        EntryKind `gorm:"size:10;not null" json:"kind"`
	Description string    `json:"description"`

	Subcategories []Subcategory `gorm:"foreignKey:CategoryID" json:"subcategories,omitempty"`
}

// Subcategory refines a Category. Inactive subcategories stay attached to
// existing entries but cannot be chosen for new ones.
type Subcategory struct {
	Base
	TenantOwned
	CategoryID string `gorm:"type:uuid;not null;index" json:"category_id"`
	Name       string `gorm:"not null" json:"name"`
	IsActive   bool   `gorm:"not null" json:"is_active"`
}
