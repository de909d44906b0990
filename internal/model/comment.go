package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Comment is a reader-submitted comment on a post. Comments start out
// unapproved and become visible only after a moderator approves them.
// AuthorEmail, IPAddress and UserAgent exist for moderation context and are
// never serialized into reader-facing responses.
type Comment struct {
	ID       string  `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	PostID   string  `gorm:"type:uuid;not null;index" json:"post_id"`
	ParentID *string `gorm:"type:uuid;index" json:"parent_id,omitempty"` // For nested replies

	AuthorName    string  `gorm:"size:50;not null" json:"author_name"`
	AuthorEmail   string  `gorm:"size:254;not null" json:"author_email"`
	AuthorWebsite *string `gorm:"size:200" json:"author_website,omitempty"`
	Body          string  `gorm:"type:text;not null" json:"body"`

	Approved bool `gorm:"not null;default:false;index" json:"approved"`
	Spam     bool `gorm:"not null;default:false" json:"spam"`

	IPAddress string `gorm:"size:45" json:"ip_address"`
	UserAgent string `gorm:"size:255" json:"user_agent"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// Visible reports whether the comment may be shown to readers.
func (c *Comment) Visible() bool {
	return c.Approved && !c.Spam
}

// BeforeCreate hook to generate UUID
func (c *Comment) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	return nil
}

// TableName specifies the table name
func (Comment) TableName() string {
	return "comments"
}
