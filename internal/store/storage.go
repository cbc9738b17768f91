// Package store implements the storage contract for users and learning
// paths. Backends: in-memory, SQLite file, PostgreSQL and MongoDB. Lookups
// return (nil, nil) for absent records. Ownership checks are the caller's
// job; GetPath returns a path regardless of owner.
package store

import (
	"context"

	"github.com/ayush/skillpath/backend/internal/auth"
	"github.com/ayush/skillpath/backend/internal/models"
)

// Storage is implemented by every backend.
type Storage interface {
	GetUser(ctx context.Context, id int64) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	// CreateUser assigns a fresh id. A taken username yields shared.ErrUserExists.
	CreateUser(ctx context.Context, u models.NewUser) (*models.User, error)

	// CreatePath assigns a fresh id and the creation time.
	CreatePath(ctx context.Context, userID int64, p models.NewPath) (*models.LearningPath, error)
	// GetUserPaths returns the owner's paths in id order, never nil.
	GetUserPaths(ctx context.Context, userID int64) ([]models.LearningPath, error)
	GetPath(ctx context.Context, id int64) (*models.LearningPath, error)
	// DeletePath is idempotent.
	DeletePath(ctx context.Context, id int64) error

	// Sessions is the session store used by the auth handlers.
	Sessions() auth.SessionStore
	Close() error
}
