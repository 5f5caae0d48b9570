package models

// Group represents a kindergarten group with its children
type Group struct {
	ID       int64   `json:"id,omitempty"`
	Name     string  `json:"name"`
	Children []Child `json:"children"`
}

// GroupRow is a group augmented with the values computed for display
type GroupRow struct {
	Group
	ChildCount int
}

// IsEmpty reports whether no child belongs to the group
func (r GroupRow) IsEmpty() bool {
	return r.ChildCount == 0
}
