package service

import (
	"slices"

	"kindergarten/internal/models"
)

// GroupDraft buffers the edits of one group form until it is saved
type GroupDraft struct {
	ID       int64
	Name     string
	Children []models.Child
}

// IsNew reports whether the draft creates a group
func (d *GroupDraft) IsNew() bool {
	return d.ID == 0
}

// Has reports whether the child is part of the draft
func (d *GroupDraft) Has(childID int64) bool {
	return slices.ContainsFunc(d.Children, func(c models.Child) bool { return c.ID == childID })
}

// Add puts a child into the draft. Adding a child twice is a no-op.
func (d *GroupDraft) Add(c models.Child) bool {
	if d.Has(c.ID) {
		return false
	}
	d.Children = append(d.Children, c)
	return true
}

// Remove takes a child out of the draft
func (d *GroupDraft) Remove(childID int64) bool {
	n := len(d.Children)
	d.Children = slices.DeleteFunc(d.Children, func(c models.Child) bool { return c.ID == childID })
	return len(d.Children) != n
}

// Group returns the group the draft describes
func (d *GroupDraft) Group() models.Group {
	return models.Group{
		ID:       d.ID,
		Name:     d.Name,
		Children: slices.Clone(d.Children),
	}
}
