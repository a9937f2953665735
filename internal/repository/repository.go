package repository

import (
	"context"
	"errors"

	"github.com/TooLazyToCreate/counseling-service/internal/model"
)

var (
	ErrNotFound       = errors.New("record not found")
	ErrDuplicateEmail = errors.New("email already exists")
)

/* Uniqueness of email is a storage guarantee: Create must fail with
 * ErrDuplicateEmail for a taken email even when called concurrently. */
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	GetByID(ctx context.Context, id int64) (*model.User, error)
}

type NoteRepository interface {
	Create(ctx context.Context, note *model.ClinicalNote) error
	GetByID(ctx context.Context, id int64) (*model.ClinicalNote, error)
	List(ctx context.Context, filter model.NoteFilter) ([]model.NoteView, error)
	UpdateContent(ctx context.Context, note *model.ClinicalNote) error
	Delete(ctx context.Context, id int64) error
}
