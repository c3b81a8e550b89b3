// Package catalog provides database operations for authors, genres and books.
//
// # Usage
//
//	repo := catalog.NewRepository(db)
//	page, err := repo.ListBooks(ctx, catalog.BookFilter{Search: "dune"}, 1, 3)
package catalog

import (
	"context"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mrlokans/librarian/internal/entities"
	"github.com/mrlokans/librarian/internal/pagination"
)

// Repository handles all catalog database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new catalog repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// BookFilter narrows the book list. Zero values mean "no filter".
type BookFilter struct {
	Search  string
	GenreID uint
}

// Stats holds the catalog counters shown on the index page.
type Stats struct {
	Books              int64 `json:"book_count"`
	Instances          int64 `json:"book_instance_count"`
	AvailableInstances int64 `json:"book_instance_available_count"`
	Authors            int64 `json:"author_count"`
	Genres             int64 `json:"genre_count"`
}

// ListBooks returns one page of books matching the filter, ordered by id.
// Search matches title or summary, case-insensitively.
func (r *Repository) ListBooks(ctx context.Context, filter BookFilter, page, size int) (pagination.Page[entities.Book], error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&entities.Book{}).Scopes(r.bookFilter(filter)).Count(&total).Error; err != nil {
		return pagination.Page[entities.Book]{}, err
	}

	p := pagination.Clamp(page, size, total)
	var books []entities.Book
	err := r.db.WithContext(ctx).
		Scopes(r.bookFilter(filter)).
		Preload("Author").
		Preload("Genres", func(db *gorm.DB) *gorm.DB { return db.Order("genres.id ASC") }).
		Order("books.id ASC").
		Limit(p.Limit()).Offset(p.Offset()).
		Find(&books).Error
	if err != nil {
		return pagination.Page[entities.Book]{}, err
	}
	return pagination.NewPage(books, p), nil
}

func (r *Repository) bookFilter(filter BookFilter) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if search := strings.TrimSpace(filter.Search); search != "" {
			pattern := "%" + escapeLike(strings.ToLower(search)) + "%"
			db = db.Where(
				"LOWER(books.title) LIKE ? ESCAPE '\\' OR LOWER(books.summary) LIKE ? ESCAPE '\\'",
				pattern, pattern,
			)
		}
		if filter.GenreID != 0 {
			db = db.Where("books.id IN (?)",
				db.Session(&gorm.Session{NewDB: true}).Table("book_genres").Select("book_id").Where("genre_id = ?", filter.GenreID))
		}
		return db
	}
}

// GetBook loads a book with its author, genres, copies and reviews
// (newest first).
func (r *Repository) GetBook(ctx context.Context, id uint) (*entities.Book, error) {
	var book entities.Book
	err := r.db.WithContext(ctx).
		Preload("Author").
		Preload("Genres", func(db *gorm.DB) *gorm.DB { return db.Order("genres.id ASC") }).
		Preload("Instances", func(db *gorm.DB) *gorm.DB {
			return db.Order("book_instances.due_back ASC, book_instances.id ASC")
		}).
		Preload("Reviews", func(db *gorm.DB) *gorm.DB {
			return db.Order("book_reviews.created_at DESC, book_reviews.id DESC")
		}).
		Preload("Reviews.Reader").
		Preload("Reviews.Reader.Profile").
		First(&book, id).Error
	if err != nil {
		return nil, err
	}
	return &book, nil
}

// BookExists reports whether a book with id exists.
func (r *Repository) BookExists(ctx context.Context, id uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entities.Book{}).Where("id = ?", id).Count(&count).Error
	return count > 0, err
}

// ListBookChoices returns every book ordered by title, for select inputs.
func (r *Repository) ListBookChoices(ctx context.Context) ([]entities.Book, error) {
	var books []entities.Book
	err := r.db.WithContext(ctx).Preload("Author").Order("title ASC, id ASC").Find(&books).Error
	return books, err
}

// CreateBook inserts a book and links it to the given genres.
func (r *Repository) CreateBook(ctx context.Context, book *entities.Book, genreIDs []uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(book).Error; err != nil {
			return err
		}
		if len(genreIDs) == 0 {
			return nil
		}
		var genres []entities.Genre
		if err := tx.Where("id IN ?", genreIDs).Find(&genres).Error; err != nil {
			return err
		}
		if err := tx.Model(book).Association("Genres").Append(&genres); err != nil {
			return err
		}
		book.Genres = genres
		return nil
	})
}

// UpdateBookCover stores the media-relative path of a book's cover image.
func (r *Repository) UpdateBookCover(ctx context.Context, id uint, cover string) error {
	result := r.db.WithContext(ctx).Model(&entities.Book{}).Where("id = ?", id).Update("cover", cover)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// DeleteBook removes a book with its copies, reviews and genre links.
func (r *Repository) DeleteBook(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var book entities.Book
		if err := tx.First(&book, id).Error; err != nil {
			return err
		}
		if err := tx.Where("book_id = ?", id).Delete(&entities.BookReview{}).Error; err != nil {
			return err
		}
		if err := tx.Where("book_id = ?", id).Delete(&entities.BookInstance{}).Error; err != nil {
			return err
		}
		if err := tx.Model(&book).Association("Genres").Clear(); err != nil {
			return err
		}
		return tx.Delete(&book).Error
	})
}

// ListAuthors returns one page of authors ordered by (last_name, first_name).
func (r *Repository) ListAuthors(ctx context.Context, page, size int) (pagination.Page[entities.Author], error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&entities.Author{}).Count(&total).Error; err != nil {
		return pagination.Page[entities.Author]{}, err
	}

	p := pagination.Clamp(page, size, total)
	var authors []entities.Author
	err := r.db.WithContext(ctx).
		Preload("Books", func(db *gorm.DB) *gorm.DB { return db.Order("books.id ASC") }).
		Order("last_name ASC, first_name ASC, id ASC").
		Limit(p.Limit()).Offset(p.Offset()).
		Find(&authors).Error
	if err != nil {
		return pagination.Page[entities.Author]{}, err
	}
	return pagination.NewPage(authors, p), nil
}

// GetAuthor loads an author with their books.
func (r *Repository) GetAuthor(ctx context.Context, id uint) (*entities.Author, error) {
	var author entities.Author
	err := r.db.WithContext(ctx).
		Preload("Books", func(db *gorm.DB) *gorm.DB { return db.Order("books.id ASC") }).
		Preload("Books.Genres").
		First(&author, id).Error
	if err != nil {
		return nil, err
	}
	return &author, nil
}

func (r *Repository) CreateAuthor(ctx context.Context, author *entities.Author) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(author).Error
}

// DeleteAuthor removes an author. Their books stay, without an author.
func (r *Repository) DeleteAuthor(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var author entities.Author
		if err := tx.First(&author, id).Error; err != nil {
			return err
		}
		if err := tx.Model(&entities.Book{}).Where("author_id = ?", id).Update("author_id", nil).Error; err != nil {
			return err
		}
		return tx.Delete(&author).Error
	})
}

// ListGenres returns every genre ordered by name.
func (r *Repository) ListGenres(ctx context.Context) ([]entities.Genre, error) {
	var genres []entities.Genre
	err := r.db.WithContext(ctx).Order("name ASC, id ASC").Find(&genres).Error
	return genres, err
}

func (r *Repository) GetGenre(ctx context.Context, id uint) (*entities.Genre, error) {
	var genre entities.Genre
	if err := r.db.WithContext(ctx).First(&genre, id).Error; err != nil {
		return nil, err
	}
	return &genre, nil
}

func (r *Repository) CreateGenre(ctx context.Context, genre *entities.Genre) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(genre).Error
}

// GetOrCreateGenre finds a genre by exact name, creating it when missing.
func (r *Repository) GetOrCreateGenre(ctx context.Context, name string) (*entities.Genre, error) {
	var genre entities.Genre
	err := r.db.WithContext(ctx).Where("name = ?", name).First(&genre).Error
	if err == gorm.ErrRecordNotFound {
		genre = entities.Genre{Name: name}
		if err := r.CreateGenre(ctx, &genre); err != nil {
			return nil, err
		}
		return &genre, nil
	}
	if err != nil {
		return nil, err
	}
	return &genre, nil
}

// DeleteGenre removes a genre and its book links. Books are kept.
func (r *Repository) DeleteGenre(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var genre entities.Genre
		if err := tx.First(&genre, id).Error; err != nil {
			return err
		}
		if err := tx.Model(&genre).Association("Books").Clear(); err != nil {
			return err
		}
		return tx.Delete(&genre).Error
	})
}

// Stats counts books, copies, available copies, authors and genres.
func (r *Repository) Stats(ctx context.Context) (Stats, error) {
	var s Stats
	db := r.db.WithContext(ctx)
	if err := db.Model(&entities.Book{}).Count(&s.Books).Error; err != nil {
		return s, err
	}
	if err := db.Model(&entities.BookInstance{}).Count(&s.Instances).Error; err != nil {
		return s, err
	}
	if err := db.Model(&entities.BookInstance{}).
		Where("status = ?", entities.LoanStatusAvailable).
		Count(&s.AvailableInstances).Error; err != nil {
		return s, err
	}
	if err := db.Model(&entities.Author{}).Count(&s.Authors).Error; err != nil {
		return s, err
	}
	if err := db.Model(&entities.Genre{}).Count(&s.Genres).Error; err != nil {
		return s, err
	}
	return s, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
