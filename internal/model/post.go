package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Post is a published blog entry. Body holds the raw markdown source; the
// service layer renders it to sanitized HTML on the way out.
type Post struct {
	ID          string     `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	Slug        string     `gorm:"size:96;uniqueIndex;not null" json:"slug"`
	Title       string     `gorm:"size:200;not null" json:"title"`
	Excerpt     string     `gorm:"size:500" json:"excerpt"`
	Body        string     `gorm:"type:text" json:"body"`
	AuthorID    string     `gorm:"type:uuid;index" json:"author_id"`
	PublishedAt *time.Time `gorm:"index" json:"published_at,omitempty"`
	CreatedAt   time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"autoUpdateTime" json:"updated_at"`

	// Relationships
	Author     Author     `gorm:"foreignKey:AuthorID;references:ID" json:"author,omitempty"`
	Categories []Category `gorm:"many2many:post_categories" json:"categories,omitempty"`
}

// Published reports whether the post is visible to readers.
func (p *Post) Published() bool {
	return p.PublishedAt != nil && !p.PublishedAt.After(time.Now())
}

// BeforeCreate hook to generate UUID
func (p *Post) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	return nil
}

// TableName specifies the table name
func (Post) TableName() string {
	return "posts"
}
