package users

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/davidfuentes/questly-backend/pkg/db/models"
)

// ContactInfo is the delivery-address view of a user. Email or Phone may be
// nil when the user never provided one.
type ContactInfo struct {
	UserID      uuid.UUID
	DisplayName string
	Email       *string
	Phone       *string
}

// Repository exposes user-related persistence operations. Account management
// lives in another service; this side only reads.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a users repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// FindByID loads a user by their UUID.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// GetContactInfo returns the delivery addresses for a user.
func (r *Repository) GetContactInfo(ctx context.Context, id uuid.UUID) (*ContactInfo, error) {
	user, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return &ContactInfo{
		UserID:      user.ID,
		DisplayName: user.DisplayName,
		Email:       user.Email,
		Phone:       user.Phone,
	}, nil
}
