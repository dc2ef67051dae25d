package models

import (
	"time"

	"github.com/google/uuid"
)

// User is the slice of the accounts table this service reads: identity plus
// the contact points the email and SMS dispatchers need. Account management
// lives in another service.
type User struct {
	ID          uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	DisplayName string    `gorm:"type:text;not null" json:"displayName"`
	Email       *string   `gorm:"type:text" json:"email,omitempty"`
	Phone       *string   `gorm:"type:text" json:"phone,omitempty"`
	CreatedAt   time.Time `gorm:"type:timestamptz;autoCreateTime" json:"createdAt"`
}
