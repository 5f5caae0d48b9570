package apiclient

import (
	"context"
	"net/http"
	"strconv"

	"kindergarten/internal/models"
)

// ListChildren returns every child
func (c *Client) ListChildren(ctx context.Context, token string) ([]models.Child, error) {
	var children []models.Child
	if err := c.doJSON(ctx, token, http.MethodGet, "/children", nil, &children); err != nil {
		return nil, err
	}
	return children, nil
}

// GetChild returns one child
func (c *Client) GetChild(ctx context.Context, token string, id int64) (*models.Child, error) {
	var child models.Child
	if err := c.doJSON(ctx, token, http.MethodGet, childPath(id), nil, &child); err != nil {
		return nil, err
	}
	return &child, nil
}

// CreateChild creates a child and returns it as stored by the API
func (c *Client) CreateChild(ctx context.Context, token string, child models.Child) (*models.Child, error) {
	child.ID = 0
	saved := child
	if err := c.doJSON(ctx, token, http.MethodPost, "/children", child, &saved); err != nil {
		return nil, err
	}
	return &saved, nil
}

// UpdateChild replaces a child, including its group assignment
func (c *Client) UpdateChild(ctx context.Context, token string, child models.Child) (*models.Child, error) {
	saved := child
	if err := c.doJSON(ctx, token, http.MethodPut, childPath(child.ID), child, &saved); err != nil {
		return nil, err
	}
	return &saved, nil
}

// DeleteChild removes a child
func (c *Client) DeleteChild(ctx context.Context, token string, id int64) error {
	_, err := c.do(ctx, token, http.MethodDelete, childPath(id), nil)
	return err
}

func childPath(id int64) string {
	return "/children/" + strconv.FormatInt(id, 10)
}
