package service

import (
	"context"

	"kindergarten/internal/models"
)

// KindergartenAPI is the remote API the services call.
// *apiclient.Client implements it.
type KindergartenAPI interface {
	Register(ctx context.Context, reg models.Registration) error
	Login(ctx context.Context, creds models.Credentials) (string, error)

	ListGroups(ctx context.Context, token string) ([]models.Group, error)
	GetGroup(ctx context.Context, token string, id int64) (*models.Group, error)
	CreateGroup(ctx context.Context, token string, group models.Group) (*models.Group, error)
	UpdateGroup(ctx context.Context, token string, group models.Group) (*models.Group, error)
	DeleteGroup(ctx context.Context, token string, id int64) error

	ListChildren(ctx context.Context, token string) ([]models.Child, error)
	GetChild(ctx context.Context, token string, id int64) (*models.Child, error)
	CreateChild(ctx context.Context, token string, child models.Child) (*models.Child, error)
	UpdateChild(ctx context.Context, token string, child models.Child) (*models.Child, error)
	DeleteChild(ctx context.Context, token string, id int64) error
}
