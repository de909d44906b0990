package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Author is a site author referenced by posts.
type Author struct {
	ID        string    `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	Slug      string    `gorm:"size:96;uniqueIndex;not null" json:"slug"`
	Name      string    `gorm:"size:100;not null" json:"name"`
	Bio       string    `gorm:"type:text" json:"bio,omitempty"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// BeforeCreate hook to generate UUID
func (a *Author) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	return nil
}

// TableName specifies the table name
func (Author) TableName() string {
	return "authors"
}
