package service

import (
	"strconv"
	"time"

	"kindergarten/internal/models"
)

// GroupNames indexes group names by id
func GroupNames(groups []models.Group) map[int64]string {
	names := make(map[int64]string, len(groups))
	for _, g := range groups {
		names[g.ID] = g.Name
	}
	return names
}

// ChildRowOf derives the display row of a child. The group name is "-" when
// the child has no group or the group is unknown.
func ChildRowOf(c models.Child, names map[int64]string, today time.Time) models.ChildRow {
	row := models.ChildRow{
		Child:     c,
		Age:       models.AgeOn(c.DateOfBirth, today),
		GroupName: models.NoGroup,
	}
	if c.GroupID != nil {
		if name, ok := names[*c.GroupID]; ok {
			row.GroupName = name
		}
	}
	return row
}

// ChildRows derives rows for every child
func ChildRows(children []models.Child, names map[int64]string, today time.Time) []models.ChildRow {
	rows := make([]models.ChildRow, len(children))
	for i, c := range children {
		rows[i] = ChildRowOf(c, names, today)
	}
	return rows
}

// GroupRowOf derives the display row of a group
func GroupRowOf(g models.Group) models.GroupRow {
	return models.GroupRow{Group: g, ChildCount: len(g.Children)}
}

// JoinChildren fills in the children of groups that the API returned without
// them, using each child's groupId
func JoinChildren(groups []models.Group, children []models.Child) {
	byGroup := make(map[int64][]models.Child)
	for _, c := range children {
		if c.GroupID != nil {
			byGroup[*c.GroupID] = append(byGroup[*c.GroupID], c)
		}
	}
	for i := range groups {
		if len(groups[i].Children) == 0 {
			groups[i].Children = byGroup[groups[i].ID]
		}
	}
}

// ChildName is the sort key of child rows
func ChildName(r models.ChildRow) string { return r.Name }

// ChildFields are the values searched in child lists: name, surname,
// date of birth and age
func ChildFields(r models.ChildRow) []string {
	return []string{r.Name, r.Surname, r.DateOfBirth.String(), strconv.Itoa(r.Age)}
}

// GroupName is the sort key of group rows
func GroupName(r models.GroupRow) string { return r.Name }

// GroupFields are the values searched in the group list
func GroupFields(r models.GroupRow) []string { return []string{r.Name} }
