package apiclient

import (
	"context"
	"net/http"
	"strconv"

	"kindergarten/internal/models"
)

// ListGroups returns every group
func (c *Client) ListGroups(ctx context.Context, token string) ([]models.Group, error) {
	var groups []models.Group
	if err := c.doJSON(ctx, token, http.MethodGet, "/groups", nil, &groups); err != nil {
		return nil, err
	}
	return groups, nil
}

// GetGroup returns one group
func (c *Client) GetGroup(ctx context.Context, token string, id int64) (*models.Group, error) {
	var group models.Group
	if err := c.doJSON(ctx, token, http.MethodGet, groupPath(id), nil, &group); err != nil {
		return nil, err
	}
	return &group, nil
}

// CreateGroup creates a group and returns it as stored by the API.
// When the API answers without a body the submitted group is returned.
func (c *Client) CreateGroup(ctx context.Context, token string, group models.Group) (*models.Group, error) {
	group.ID = 0
	return c.saveGroup(ctx, token, http.MethodPost, "/groups", group)
}

// UpdateGroup replaces a group
func (c *Client) UpdateGroup(ctx context.Context, token string, group models.Group) (*models.Group, error) {
	return c.saveGroup(ctx, token, http.MethodPut, groupPath(group.ID), group)
}

// DeleteGroup removes a group
func (c *Client) DeleteGroup(ctx context.Context, token string, id int64) error {
	_, err := c.do(ctx, token, http.MethodDelete, groupPath(id), nil)
	return err
}

func (c *Client) saveGroup(ctx context.Context, token, method, path string, group models.Group) (*models.Group, error) {
	if group.Children == nil {
		group.Children = []models.Child{}
	}
	saved := group
	if err := c.doJSON(ctx, token, method, path, group, &saved); err != nil {
		return nil, err
	}
	return &saved, nil
}

func groupPath(id int64) string {
	return "/groups/" + strconv.FormatInt(id, 10)
}
