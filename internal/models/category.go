package models

// Category is one entry of get_live_categories, get_vod_categories or
// get_series_categories. Ids are unique within a kind only.
type Category struct {
	ID       ID     `json:"category_id"`
	Name     string `json:"category_name"`
	ParentID ID     `json:"parent_id,omitempty"`
}

// CategoryVisibility is a category annotated with its hidden state, as shown
// on the profile screen.
type CategoryVisibility struct {
	Category
	Visible bool `json:"visible"`
}
