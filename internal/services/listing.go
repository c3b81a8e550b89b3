package services

import (
	"context"

	"github.com/mrlokans/librarian/internal/database/catalog"
	"github.com/mrlokans/librarian/internal/entities"
	"github.com/mrlokans/librarian/internal/pagination"
)

// PageSizes configures the listing page sizes.
type PageSizes struct {
	Books   int
	Authors int
	Loans   int
}

// BookQuery is the book list request: optional search text and genre.
type BookQuery struct {
	Search  string
	GenreID uint
	Page    int
}

// BookListing is one page of the filtered book list plus the data the
// genre filter needs.
type BookListing struct {
	Books pagination.Page[entities.Book]
	// BooksCount counts the filtered set, not the whole catalog.
	BooksCount int64
	Genres     []entities.Genre
	Genre      *entities.Genre
	Search     string
}

// ListingService answers the read-only catalog queries.
type ListingService struct {
	catalog CatalogReader
	loans   LoanStore
	sizes   PageSizes
}

func NewListingService(catalog CatalogReader, loans LoanStore, sizes PageSizes) *ListingService {
	return &ListingService{catalog: catalog, loans: loans, sizes: sizes}
}

// ListBooks filters by title or summary containing the search text
// (case-insensitive) and, additionally, by genre.
func (s *ListingService) ListBooks(ctx context.Context, q BookQuery) (*BookListing, error) {
	listing := &BookListing{Search: q.Search}

	if q.GenreID != 0 {
		genre, err := s.catalog.GetGenre(ctx, q.GenreID)
		if err != nil {
			return nil, translate(err, "load genre")
		}
		listing.Genre = genre
	}

	page, err := s.catalog.ListBooks(ctx, catalog.BookFilter{Search: q.Search, GenreID: q.GenreID}, q.Page, s.sizes.Books)
	if err != nil {
		return nil, translate(err, "list books")
	}
	listing.Books = page
	listing.BooksCount = page.Total

	genres, err := s.catalog.ListGenres(ctx)
	if err != nil {
		return nil, translate(err, "list genres")
	}
	listing.Genres = genres

	return listing, nil
}

// ListAuthors pages through authors by last name, then first name.
func (s *ListingService) ListAuthors(ctx context.Context, page int) (pagination.Page[entities.Author], error) {
	result, err := s.catalog.ListAuthors(ctx, page, s.sizes.Authors)
	if err != nil {
		return result, translate(err, "list authors")
	}
	return result, nil
}

// ListUserLoans pages through the copies held by requester, by due date.
func (s *ListingService) ListUserLoans(ctx context.Context, requester uint, page int) (pagination.Page[entities.BookInstance], error) {
	if requester == 0 {
		return pagination.Page[entities.BookInstance]{}, ErrUnauthenticated
	}
	result, err := s.loans.ListForReader(ctx, requester, page, s.sizes.Loans)
	if err != nil {
		return result, translate(err, "list loans")
	}
	return result, nil
}

func (s *ListingService) GetAuthor(ctx context.Context, id uint) (*entities.Author, error) {
	author, err := s.catalog.GetAuthor(ctx, id)
	if err != nil {
		return nil, translate(err, "load author")
	}
	return author, nil
}

func (s *ListingService) GetBook(ctx context.Context, id uint) (*entities.Book, error) {
	book, err := s.catalog.GetBook(ctx, id)
	if err != nil {
		return nil, translate(err, "load book")
	}
	return book, nil
}

// BookChoices lists every book for the reservation form.
func (s *ListingService) BookChoices(ctx context.Context) ([]entities.Book, error) {
	books, err := s.catalog.ListBookChoices(ctx)
	if err != nil {
		return nil, translate(err, "list books")
	}
	return books, nil
}

// Stats returns the index page counters.
func (s *ListingService) Stats(ctx context.Context) (catalog.Stats, error) {
	stats, err := s.catalog.Stats(ctx)
	if err != nil {
		return stats, translate(err, "count catalog")
	}
	return stats, nil
}
