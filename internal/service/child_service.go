package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"kindergarten/internal/apiclient"
	"kindergarten/internal/models"
	"kindergarten/internal/validation"
)

var (
	ErrChildNotFound = errors.New("child not found")
	ErrGroupNotFound = errors.New("group not found")
	ErrChildAssigned = errors.New("child already belongs to a group")
)

// ChildInput is the child form as submitted
type ChildInput struct {
	Name        string
	Surname     string
	DateOfBirth string
}

// ChildService handles children
type ChildService struct {
	api KindergartenAPI
	now func() time.Time
}

// NewChildService creates a new child service
func NewChildService(api KindergartenAPI) *ChildService {
	return &ChildService{api: api, now: time.Now}
}

// Rows fetches children and groups concurrently and derives the child rows.
// The groups are returned for group pickers.
func (s *ChildService) Rows(ctx context.Context, token string) ([]models.ChildRow, []models.Group, error) {
	var children []models.Child
	var groups []models.Group

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		children, err = s.api.ListChildren(gctx, token)
		return err
	})
	g.Go(func() error {
		var err error
		groups, err = s.api.ListGroups(gctx, token)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, fmt.Errorf("failed to load children: %w", err)
	}

	return ChildRows(children, GroupNames(groups), s.now()), groups, nil
}

// Get fetches one child with its group name, plus every group
func (s *ChildService) Get(ctx context.Context, token string, id int64) (*models.ChildRow, []models.Group, error) {
	var child *models.Child
	var groups []models.Group

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		child, err = s.api.GetChild(gctx, token, id)
		return err
	})
	g.Go(func() error {
		var err error
		groups, err = s.api.ListGroups(gctx, token)
		return err
	})
	if err := g.Wait(); err != nil {
		if apiclient.IsNotFound(err) {
			return nil, nil, ErrChildNotFound
		}
		return nil, nil, fmt.Errorf("failed to load child %d: %w", id, err)
	}

	row := ChildRowOf(*child, GroupNames(groups), s.now())
	return &row, groups, nil
}

// Save validates the form and creates (id == 0) or updates the child.
// Validation failures are returned as validation.FieldErrors.
// An update keeps the child's group.
func (s *ChildService) Save(ctx context.Context, token string, id int64, in ChildInput) (*models.Child, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Surname = strings.TrimSpace(in.Surname)
	in.DateOfBirth = strings.TrimSpace(in.DateOfBirth)

	if errs := validation.ValidateChild(in.Name, in.Surname, in.DateOfBirth, s.now()); errs != nil {
		return nil, errs
	}
	dob, err := models.ParseDate(in.DateOfBirth)
	if err != nil {
		return nil, validation.FieldErrors{"dateOfBirth": validation.MsgDOBInvalid}
	}

	if id == 0 {
		saved, err := s.api.CreateChild(ctx, token, models.Child{Name: in.Name, Surname: in.Surname, DateOfBirth: dob})
		if err != nil {
			return nil, fmt.Errorf("failed to create child: %w", err)
		}
		return saved, nil
	}

	existing, err := s.api.GetChild(ctx, token, id)
	if err != nil {
		if apiclient.IsNotFound(err) {
			return nil, ErrChildNotFound
		}
		return nil, fmt.Errorf("failed to load child %d: %w", id, err)
	}
	existing.Name = in.Name
	existing.Surname = in.Surname
	existing.DateOfBirth = dob

	saved, err := s.api.UpdateChild(ctx, token, *existing)
	if err != nil {
		return nil, fmt.Errorf("failed to update child %d: %w", id, err)
	}
	return saved, nil
}

// Delete removes a child
func (s *ChildService) Delete(ctx context.Context, token string, id int64) error {
	if err := s.api.DeleteChild(ctx, token, id); err != nil {
		if apiclient.IsNotFound(err) {
			return ErrChildNotFound
		}
		return fmt.Errorf("failed to delete child %d: %w", id, err)
	}
	return nil
}

// AssignGroup puts the child into a group, or takes it out of its group when
// groupID is nil. It also returns the group the child was in before.
func (s *ChildService) AssignGroup(ctx context.Context, token string, childID int64, groupID *int64) (saved *models.Child, previous *int64, err error) {
	child, err := s.api.GetChild(ctx, token, childID)
	if err != nil {
		if apiclient.IsNotFound(err) {
			return nil, nil, ErrChildNotFound
		}
		return nil, nil, fmt.Errorf("failed to load child %d: %w", childID, err)
	}

	previous = child.GroupID
	child.GroupID = groupID
	saved, err = s.api.UpdateChild(ctx, token, *child)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to assign child %d: %w", childID, err)
	}
	return saved, previous, nil
}

// RowOf derives the display row of a saved child
func (s *ChildService) RowOf(c models.Child, names map[int64]string) models.ChildRow {
	return ChildRowOf(c, names, s.now())
}
