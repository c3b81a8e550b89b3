package http

import (
	"context"
	"io"

	"github.com/mrlokans/librarian/internal/entities"
	"github.com/mrlokans/librarian/internal/media"
)

// This file consolidates the store interfaces used by HTTP controllers that
// do not go through a service.

// ProfileStore reads and updates a reader's identity fields and photo.
type ProfileStore interface {
	GetUserByID(ctx context.Context, id uint) (*entities.User, error)
	GetOrCreateProfile(ctx context.Context, userID uint) (*entities.Profile, error)
	UpdateUserDetails(ctx context.Context, userID uint, firstName, lastName, email string) error
	UpdateProfilePhoto(ctx context.Context, userID uint, photo string) error
}

// PhotoStorage keeps uploaded images.
type PhotoStorage interface {
	Save(kind media.Kind, ownerID uint, r io.Reader) (string, error)
	Remove(rel string) error
}

// ProfileAuditor records profile changes. Implementations must not block.
type ProfileAuditor interface {
	LogProfile(userID uint, action, description string)
}

// CatalogAdminStore is the write side of the catalog used by librarians.
type CatalogAdminStore interface {
	GetBook(ctx context.Context, id uint) (*entities.Book, error)
	UpdateBookCover(ctx context.Context, id uint, cover string) error
	DeleteBook(ctx context.Context, id uint) error
	DeleteAuthor(ctx context.Context, id uint) error
	DeleteGenre(ctx context.Context, id uint) error
}

// CatalogAuditor records librarian changes to the catalog.
type CatalogAuditor interface {
	LogCatalog(userID uint, action, entityType string, entityID uint, description string)
}
