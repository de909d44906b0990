package repository

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"marginalia/internal/model"
	"marginalia/internal/util"

	"gorm.io/gorm"
)

// ErrNotFound is returned when a queried document does not exist.
var ErrNotFound = errors.New("record not found")

type CommentRepository interface {
	Create(comment *model.Comment) error
	FindByID(id string) (*model.Comment, error)
	FindVisibleByPostID(postID string) ([]model.Comment, error)
	FindPending(limit, offset int) ([]model.Comment, error)
	CountVisibleByPostID(postID string) (int64, error)
	Patch(id string, fields map[string]interface{}) (*model.Comment, error)
	Delete(id string) error
}

type commentRepository struct {
	db    *gorm.DB
	redis *util.RedisClient
}

const (
	commentByPostCachePrefix = "comment:post:"
	commentCountCachePrefix  = "comment:count:"
	commentCacheExpiration   = 15 * time.Minute
)

func NewCommentRepository(db *gorm.DB, redis *util.RedisClient) CommentRepository {
	return &commentRepository{
		db:    db,
		redis: redis,
	}
}

// Create persists a new comment and invalidates the post's list caches.
func (r *commentRepository) Create(comment *model.Comment) error {
	if err := r.db.Create(comment).Error; err != nil {
		return err
	}

	r.invalidatePostCache(comment.PostID)
	return nil
}

// FindByID finds a comment by ID
func (r *commentRepository) FindByID(id string) (*model.Comment, error) {
	var comment model.Comment
	err := r.db.Where("id = ?", id).First(&comment).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &comment, nil
}

// FindVisibleByPostID returns the reader-visible comments of a post in
// ascending creation order. The flat chronological ordering is what the
// thread builder depends on: parents are always emitted before replies.
func (r *commentRepository) FindVisibleByPostID(postID string) ([]model.Comment, error) {
	cacheKey := commentByPostCachePrefix + postID
	if r.redis != nil {
		if cached, err := r.redis.Get(cacheKey); err == nil {
			var comments []model.Comment
			if err := json.Unmarshal([]byte(cached), &comments); err == nil {
				return comments, nil
			}
		}
	}

	var comments []model.Comment
	err := r.db.
		Where("post_id = ? AND approved = ? AND spam = ?", postID, true, false).
		Order("created_at ASC").
		Find(&comments).Error
	if err != nil {
		return nil, err
	}

	if r.redis != nil {
		r.redis.Set(cacheKey, comments, commentCacheExpiration)
	}

	return comments, nil
}

// FindPending returns comments awaiting moderation (unapproved or
// spam-flagged), newest first. Not cached: the moderation queue must always
// reflect the store.
func (r *commentRepository) FindPending(limit, offset int) ([]model.Comment, error) {
	var comments []model.Comment
	err := r.db.
		Where("approved = ? OR spam = ?", false, true).
		Order("created_at DESC").
		Limit(limit).Offset(offset).
		Find(&comments).Error
	if err != nil {
		return nil, err
	}
	return comments, nil
}

// CountVisibleByPostID counts reader-visible comments for a post.
func (r *commentRepository) CountVisibleByPostID(postID string) (int64, error) {
	cacheKey := commentCountCachePrefix + postID
	if r.redis != nil {
		if cached, err := r.redis.Get(cacheKey); err == nil {
			var count int64
			if _, err := fmt.Sscanf(cached, "%d", &count); err == nil {
				return count, nil
			}
		}
	}

	var count int64
	err := r.db.Model(&model.Comment{}).
		Where("post_id = ? AND approved = ? AND spam = ?", postID, true, false).
		Count(&count).Error
	if err != nil {
		return 0, err
	}

	if r.redis != nil {
		r.redis.Set(cacheKey, fmt.Sprintf("%d", count), commentCacheExpiration)
	}

	return count, nil
}

// Patch applies a partial update to a comment and returns the updated row.
func (r *commentRepository) Patch(id string, fields map[string]interface{}) (*model.Comment, error) {
	comment, err := r.FindByID(id)
	if err != nil {
		return nil, err
	}

	if err := r.db.Model(comment).Updates(fields).Error; err != nil {
		return nil, err
	}

	r.invalidatePostCache(comment.PostID)
	return r.FindByID(id)
}

// Delete removes a comment permanently. A second delete of the same id
// surfaces ErrNotFound rather than silently succeeding.
func (r *commentRepository) Delete(id string) error {
	comment, err := r.FindByID(id)
	if err != nil {
		return err
	}

	// Model has no DeletedAt column, so this is a hard delete.
	if err := r.db.Delete(comment).Error; err != nil {
		return err
	}

	r.invalidatePostCache(comment.PostID)
	return nil
}

func (r *commentRepository) invalidatePostCache(postID string) {
	if r.redis == nil {
		return
	}
	r.redis.Delete(commentByPostCachePrefix + postID)
	r.redis.Delete(commentCountCachePrefix + postID)
}
