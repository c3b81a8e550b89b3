package services

import (
	"context"
	"time"

	"github.com/mrlokans/librarian/internal/database/catalog"
	"github.com/mrlokans/librarian/internal/entities"
	"github.com/mrlokans/librarian/internal/pagination"
)

// CatalogReader provides read-only access to authors, genres and books.
type CatalogReader interface {
	ListBooks(ctx context.Context, filter catalog.BookFilter, page, size int) (pagination.Page[entities.Book], error)
	GetBook(ctx context.Context, id uint) (*entities.Book, error)
	BookExists(ctx context.Context, id uint) (bool, error)
	ListBookChoices(ctx context.Context) ([]entities.Book, error)
	ListAuthors(ctx context.Context, page, size int) (pagination.Page[entities.Author], error)
	GetAuthor(ctx context.Context, id uint) (*entities.Author, error)
	ListGenres(ctx context.Context) ([]entities.Genre, error)
	GetGenre(ctx context.Context, id uint) (*entities.Genre, error)
	Stats(ctx context.Context) (catalog.Stats, error)
}

// LoanStore persists book instances and their loan state.
type LoanStore interface {
	CreateInstance(ctx context.Context, instance *entities.BookInstance) error
	GetInstance(ctx context.Context, id uint) (*entities.BookInstance, error)
	UpdateLoan(ctx context.Context, id uint, check func(current *entities.BookInstance) error,
		readerID *uint, status entities.LoanStatus, dueBack *time.Time) (*entities.BookInstance, error)
	UpdateStatus(ctx context.Context, id uint, status entities.LoanStatus) (*entities.BookInstance, error)
	DeleteInstance(ctx context.Context, id uint, check func(current *entities.BookInstance) error) error
	ListForReader(ctx context.Context, readerID uint, page, size int) (pagination.Page[entities.BookInstance], error)
	ListOverdue(ctx context.Context, today time.Time) ([]entities.BookInstance, error)
}

// ReviewStore persists book reviews.
type ReviewStore interface {
	CreateReview(ctx context.Context, review *entities.BookReview) error
}

// AuditLogger records loan and review events. Implementations must not block.
type AuditLogger interface {
	LogLoan(userID uint, action string, instanceID uint, description string, err error)
	LogReview(userID, bookID uint, contentLength int, err error)
}

type noopAudit struct{}

func (noopAudit) LogLoan(uint, string, uint, string, error) {}
func (noopAudit) LogReview(uint, uint, int, error)          {}
