package models

import "strconv"

// NoGroup is displayed when a child has no (known) group
const NoGroup = "-"

// Child represents a child record of the kindergarten API
type Child struct {
	ID          int64  `json:"id,omitempty"`
	Name        string `json:"name"`
	Surname     string `json:"surname"`
	DateOfBirth Date   `json:"dateOfBirth"`
	GroupID     *int64 `json:"groupId"`
}

// FullName returns "name surname"
func (c Child) FullName() string {
	return c.Name + " " + c.Surname
}

// InGroup reports whether the child is assigned to groupID
func (c Child) InGroup(groupID int64) bool {
	return c.GroupID != nil && *c.GroupID == groupID
}

// ChildRow is a child augmented with the values computed for display
type ChildRow struct {
	Child
	Age       int
	GroupName string
}

// AgeText returns the age as a decimal string
func (r ChildRow) AgeText() string {
	return strconv.Itoa(r.Age)
}

// YearsLabel returns "year" or "years" for the row's age
func (r ChildRow) YearsLabel() string {
	if r.Age > 1 {
		return "years"
	}
	return "year"
}
