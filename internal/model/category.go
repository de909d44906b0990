package model

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Category labels posts for filtered listings.
type Category struct {
	ID    string `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	Slug  string `gorm:"size:96;uniqueIndex;not null" json:"slug"`
	Title string `gorm:"size:100;not null" json:"title"`

	Posts []Post `gorm:"many2many:post_categories" json:"-"`
}

// BeforeCreate hook to generate UUID
func (c *Category) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	return nil
}

// TableName specifies the table name
func (Category) TableName() string {
	return "categories"
}
