// Package users provides database operations for users and their profiles.
//
// # Usage
//
//	repo := users.NewRepository(db)
//	profile, err := repo.GetOrCreateProfile(ctx, userID)
package users

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/mrlokans/librarian/internal/entities"
)

var ErrEmailTaken = errors.New("email is already used by another account")

// Repository handles all user database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new users repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// GetUserByID retrieves a user by ID, with the profile when one exists.
func (r *Repository) GetUserByID(ctx context.Context, id uint) (*entities.User, error) {
	var user entities.User
	err := r.db.WithContext(ctx).Preload("Profile").First(&user, id).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetUserByUsername retrieves a user by username.
func (r *Repository) GetUserByUsername(ctx context.Context, username string) (*entities.User, error) {
	var user entities.User
	err := r.db.WithContext(ctx).Where("username = ?", username).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetOrCreateProfile returns the user's profile, creating an empty one on
// first access.
func (r *Repository) GetOrCreateProfile(ctx context.Context, userID uint) (*entities.Profile, error) {
	profile := entities.Profile{UserID: userID}
	err := r.db.WithContext(ctx).Where(entities.Profile{UserID: userID}).FirstOrCreate(&profile).Error
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

// UpdateUserDetails changes the editable identity fields of a user.
// The email must stay unique across accounts.
func (r *Repository) UpdateUserDetails(ctx context.Context, userID uint, firstName, lastName, email string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var clash int64
		if err := tx.Model(&entities.User{}).Where("email = ? AND id <> ?", email, userID).Count(&clash).Error; err != nil {
			return err
		}
		if clash > 0 {
			return ErrEmailTaken
		}
		result := tx.Model(&entities.User{}).Where("id = ?", userID).Updates(map[string]any{
			"first_name": firstName,
			"last_name":  lastName,
			"email":      email,
		})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

// UpdateProfilePhoto stores the media-relative path of the profile photo.
func (r *Repository) UpdateProfilePhoto(ctx context.Context, userID uint, photo string) error {
	if _, err := r.GetOrCreateProfile(ctx, userID); err != nil {
		return err
	}
	return r.db.WithContext(ctx).Model(&entities.Profile{}).Where("user_id = ?", userID).Update("photo", photo).Error
}

// DeleteUser removes a user with their profile and reviews. Copies they
// hold lose their reader but keep status and due date.
func (r *Repository) DeleteUser(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user entities.User
		if err := tx.First(&user, id).Error; err != nil {
			return err
		}
		if err := tx.Model(&entities.BookInstance{}).Where("reader_id = ?", id).Update("reader_id", nil).Error; err != nil {
			return err
		}
		if err := tx.Where("reader_id = ?", id).Delete(&entities.BookReview{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", id).Delete(&entities.Profile{}).Error; err != nil {
			return err
		}
		return tx.Delete(&user).Error
	})
}
