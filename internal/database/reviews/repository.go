// Package reviews provides database operations for reader reviews.
package reviews

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mrlokans/librarian/internal/entities"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// CreateReview inserts a review. CreatedAt defaults to today's date.
func (r *Repository) CreateReview(ctx context.Context, review *entities.BookReview) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(review).Error
}

// ListForBook returns a book's reviews, newest first.
func (r *Repository) ListForBook(ctx context.Context, bookID uint) ([]entities.BookReview, error) {
	var reviews []entities.BookReview
	err := r.db.WithContext(ctx).
		Preload("Reader").
		Where("book_id = ?", bookID).
		Order("created_at DESC, id DESC").
		Find(&reviews).Error
	return reviews, err
}

// CountForReader counts the reviews written by a reader.
func (r *Repository) CountForReader(ctx context.Context, readerID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entities.BookReview{}).Where("reader_id = ?", readerID).Count(&count).Error
	return count, err
}

func (r *Repository) DeleteReview(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&entities.BookReview{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
