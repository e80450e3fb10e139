package database

import (
	"context"

	"github.com/pkg/errors"

	"github.com/mbolis/quick-forms/config"
	"github.com/mbolis/quick-forms/model"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("duplicate key")
)

// Store is the persistence collaborator. Every method is a single document
// operation except DeleteOwnedForm, which also removes the form's responses.
// Create methods assign the record ID. CreateForm reports ErrNotFound
// when the owner does not exist.
type Store interface {
	CreateUser(ctx context.Context, u *model.User) error
	FindUserByEmail(ctx context.Context, email string) (model.User, error)
	FindUserByID(ctx context.Context, id string) (model.User, error)

	CreateForm(ctx context.Context, f *model.Form) error
	ListFormsByOwner(ctx context.Context, owner string) ([]model.Form, error)
	FindForm(ctx context.Context, id string) (model.Form, error)
	FindOwnedForm(ctx context.Context, id, owner string) (model.Form, error)
	DeleteOwnedForm(ctx context.Context, id, owner string) error

	CreateResponse(ctx context.Context, r *model.FormResponse) error
	ListResponses(ctx context.Context, formID string) ([]model.FormResponse, error)

	Close() error
}

// Open connects to MongoDB when the URL has a mongodb scheme, and to a
// SQLite3 file otherwise.
func Open(ctx context.Context, cfg config.Config) (Store, error) {
	if cfg.IsMongo() {
		return OpenMongo(ctx, cfg.DBUrl, cfg.DBName)
	}
	return OpenSQLite(cfg.DBUrl)
}
