package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/language"

	"kindergarten/internal/apiclient"
	"kindergarten/internal/listing"
	"kindergarten/internal/models"
	"kindergarten/internal/validation"
)

// Candidate is an unassigned child offered by the group form
type Candidate struct {
	models.ChildRow
	Added bool
}

// GroupService handles groups and the group form
type GroupService struct {
	api    KindergartenAPI
	sorter *listing.Sorter
	now    func() time.Time
}

// NewGroupService creates a new group service. locale orders children in the group form.
func NewGroupService(api KindergartenAPI, locale language.Tag) *GroupService {
	return &GroupService{api: api, sorter: listing.NewSorter(locale), now: time.Now}
}

// Rows fetches the groups with their child counts. Children are joined on
// groupId when the API does not embed them.
func (s *GroupService) Rows(ctx context.Context, token string) ([]models.GroupRow, error) {
	groups, err := s.api.ListGroups(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("failed to load groups: %w", err)
	}

	if !anyEmbedded(groups) && len(groups) > 0 {
		children, err := s.api.ListChildren(ctx, token)
		if err != nil {
			return nil, fmt.Errorf("failed to load children: %w", err)
		}
		JoinChildren(groups, children)
	}

	rows := make([]models.GroupRow, len(groups))
	for i, g := range groups {
		rows[i] = GroupRowOf(g)
	}
	return rows, nil
}

// Detail fetches a group and derives the rows of its children
func (s *GroupService) Detail(ctx context.Context, token string, id int64) (*models.Group, []models.ChildRow, error) {
	group, err := s.api.GetGroup(ctx, token, id)
	if err != nil {
		if apiclient.IsNotFound(err) {
			return nil, nil, ErrGroupNotFound
		}
		return nil, nil, fmt.Errorf("failed to load group %d: %w", id, err)
	}

	if len(group.Children) == 0 {
		children, err := s.api.ListChildren(ctx, token)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to load children of group %d: %w", id, err)
		}
		groups := []models.Group{*group}
		JoinChildren(groups, children)
		group.Children = groups[0].Children
	}

	names := map[int64]string{group.ID: group.Name}
	return group, ChildRows(group.Children, names, s.now()), nil
}

// LoadDraft starts editing a group. id 0 starts a new group.
func (s *GroupService) LoadDraft(ctx context.Context, token string, id int64) (*GroupDraft, error) {
	if id == 0 {
		return &GroupDraft{}, nil
	}
	group, _, err := s.Detail(ctx, token, id)
	if err != nil {
		return nil, err
	}
	return &GroupDraft{ID: group.ID, Name: group.Name, Children: group.Children}, nil
}

// DraftRows returns the draft's children sorted by name
func (s *GroupService) DraftRows(d *GroupDraft) []models.ChildRow {
	rows := ChildRows(d.Children, nil, s.now())
	for i := range rows {
		rows[i].GroupName = d.Name
	}
	listing.SortStable(s.sorter, rows, ChildName)
	return rows
}

// Candidates returns the unassigned children matching query on "name surname",
// sorted by name. Children already in the draft are marked Added.
func (s *GroupService) Candidates(ctx context.Context, token string, d *GroupDraft, query string) ([]Candidate, error) {
	children, err := s.api.ListChildren(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("failed to load children: %w", err)
	}

	today := s.now()
	var candidates []Candidate
	for _, c := range children {
		if c.GroupID != nil {
			continue
		}
		if !listing.Matches(query, []string{c.FullName()}) {
			continue
		}
		candidates = append(candidates, Candidate{
			ChildRow: ChildRowOf(c, nil, today),
			Added:    d.Has(c.ID),
		})
	}
	listing.SortStable(s.sorter, candidates, func(c Candidate) string { return c.Name })
	return candidates, nil
}

// FindCandidate returns a child that may be added to d: one without a group,
// or one already in the group d edits.
func (s *GroupService) FindCandidate(ctx context.Context, token string, d *GroupDraft, childID int64) (*models.Child, error) {
	child, err := s.api.GetChild(ctx, token, childID)
	if err != nil {
		if apiclient.IsNotFound(err) {
			return nil, ErrChildNotFound
		}
		return nil, fmt.Errorf("failed to load child %d: %w", childID, err)
	}
	if child.GroupID != nil && (d.IsNew() || *child.GroupID != d.ID) {
		return nil, ErrChildAssigned
	}
	return child, nil
}

// Save validates and persists the draft
func (s *GroupService) Save(ctx context.Context, token string, d *GroupDraft) (*models.Group, error) {
	d.Name = strings.TrimSpace(d.Name)
	if err := validation.ValidateGroupName(d.Name); err != nil {
		return nil, err
	}

	group := d.Group()
	var saved *models.Group
	var err error
	if d.IsNew() {
		saved, err = s.api.CreateGroup(ctx, token, group)
	} else {
		saved, err = s.api.UpdateGroup(ctx, token, group)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to save group %q: %w", d.Name, err)
	}
	return saved, nil
}

// Delete removes a group
func (s *GroupService) Delete(ctx context.Context, token string, id int64) error {
	if err := s.api.DeleteGroup(ctx, token, id); err != nil {
		if apiclient.IsNotFound(err) {
			return ErrGroupNotFound
		}
		return fmt.Errorf("failed to delete group %d: %w", id, err)
	}
	return nil
}

func anyEmbedded(groups []models.Group) bool {
	for _, g := range groups {
		if len(g.Children) > 0 {
			return true
		}
	}
	return false
}
