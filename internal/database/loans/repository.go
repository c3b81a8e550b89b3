// Package loans provides database operations for book instances, the
// lendable copies of a book, and their loan state.
//
// # Usage
//
//	repo := loans.NewRepository(db)
//	instance, err := repo.GetInstance(ctx, id)
package loans

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mrlokans/librarian/internal/entities"
	"github.com/mrlokans/librarian/internal/pagination"
)

// Repository handles all book instance database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new loans repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// CreateInstance inserts a copy. UniqueID and the default status are
// assigned by the entity hooks when unset.
func (r *Repository) CreateInstance(ctx context.Context, instance *entities.BookInstance) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(instance).Error
}

// GetInstance loads a copy with its book.
func (r *Repository) GetInstance(ctx context.Context, id uint) (*entities.BookInstance, error) {
	var instance entities.BookInstance
	err := r.db.WithContext(ctx).Preload("Book").Preload("Book.Author").First(&instance, id).Error
	if err != nil {
		return nil, err
	}
	return &instance, nil
}

// UpdateLoan applies a reader, status and due date to a copy in a single
// transaction. check receives the row as it was before the update and can
// veto it.
func (r *Repository) UpdateLoan(
	ctx context.Context,
	id uint,
	check func(current *entities.BookInstance) error,
	readerID *uint,
	status entities.LoanStatus,
	dueBack *time.Time,
) (*entities.BookInstance, error) {
	var updated entities.BookInstance
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current entities.BookInstance
		if err := tx.First(&current, id).Error; err != nil {
			return err
		}
		if check != nil {
			if err := check(&current); err != nil {
				return err
			}
		}
		err := tx.Model(&current).Select("reader_id", "status", "due_back", "updated_at").Updates(map[string]any{
			"reader_id":  readerID,
			"status":     status,
			"due_back":   dueBack,
			"updated_at": time.Now(),
		}).Error
		if err != nil {
			return err
		}
		return tx.Preload("Book").Preload("Book.Author").First(&updated, id).Error
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// UpdateStatus sets only the status of a copy.
func (r *Repository) UpdateStatus(ctx context.Context, id uint, status entities.LoanStatus) (*entities.BookInstance, error) {
	result := r.db.WithContext(ctx).Model(&entities.BookInstance{}).Where("id = ?", id).Update("status", status)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return r.GetInstance(ctx, id)
}

// DeleteInstance removes a copy after check approves the current row.
// A missing row yields gorm.ErrRecordNotFound.
func (r *Repository) DeleteInstance(ctx context.Context, id uint, check func(current *entities.BookInstance) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current entities.BookInstance
		if err := tx.First(&current, id).Error; err != nil {
			return err
		}
		if check != nil {
			if err := check(&current); err != nil {
				return err
			}
		}
		result := tx.Delete(&current)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

// ListForReader returns one page of a reader's copies ordered by due date
// ascending (copies without a due date first), then id.
func (r *Repository) ListForReader(ctx context.Context, readerID uint, page, size int) (pagination.Page[entities.BookInstance], error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&entities.BookInstance{}).
		Where("reader_id = ?", readerID).Count(&total).Error
	if err != nil {
		return pagination.Page[entities.BookInstance]{}, err
	}

	p := pagination.Clamp(page, size, total)
	var instances []entities.BookInstance
	err = r.db.WithContext(ctx).
		Preload("Book").
		Preload("Book.Author").
		Where("reader_id = ?", readerID).
		Order("due_back ASC, id ASC").
		Limit(p.Limit()).Offset(p.Offset()).
		Find(&instances).Error
	if err != nil {
		return pagination.Page[entities.BookInstance]{}, err
	}
	return pagination.NewPage(instances, p), nil
}

// ListOverdue returns every copy with a reader whose due date is before the
// given date.
func (r *Repository) ListOverdue(ctx context.Context, today time.Time) ([]entities.BookInstance, error) {
	var instances []entities.BookInstance
	err := r.db.WithContext(ctx).
		Preload("Book").
		Preload("Reader").
		Where("due_back IS NOT NULL AND due_back < ?", today).
		Where("reader_id IS NOT NULL").
		Order("due_back ASC, id ASC").
		Find(&instances).Error
	return instances, err
}

// ListForBook returns all copies of a book.
func (r *Repository) ListForBook(ctx context.Context, bookID uint) ([]entities.BookInstance, error) {
	var instances []entities.BookInstance
	err := r.db.WithContext(ctx).Where("book_id = ?", bookID).Order("due_back ASC, id ASC").Find(&instances).Error
	return instances, err
}
