package domain

// Category represents a service category with optional grouping under a
// parent category name.
type Category struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	ParentCategory *string `json:"parent_category,omitempty"`
	DisplayOrder   int     `json:"display_order"`
	IsActive       bool    `json:"is_active"`
}
