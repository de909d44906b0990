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

// PostFilter describes a post listing query. Zero values mean "no filter";
// the query is assembled dynamically from whichever fields are set.
type PostFilter struct {
	CategorySlug string
	Search       string
	Limit        int
	Offset       int
}

// CategoryCount pairs a category with the number of published posts in it.
type CategoryCount struct {
	model.Category
	PostCount int64 `json:"post_count"`
}

type PostRepository interface {
	FindPublished(filter PostFilter) ([]model.Post, int64, error)
	FindBySlug(slug string) (*model.Post, error)
	ListCategories() ([]CategoryCount, error)
}

type postRepository struct {
	db    *gorm.DB
	redis *util.RedisClient
}

const (
	postBySlugCachePrefix = "post:slug:"
	postListCachePrefix   = "post:list:"
	postCacheExpiration   = 15 * time.Minute
)

func NewPostRepository(db *gorm.DB, redis *util.RedisClient) PostRepository {
	return &postRepository{
		db:    db,
		redis: redis,
	}
}

// FindPublished lists published posts, newest first, applying the filter's
// category, search and pagination clauses.
func (r *postRepository) FindPublished(filter PostFilter) ([]model.Post, int64, error) {
	cacheKey := fmt.Sprintf("%s%s:%s:%d:%d",
		postListCachePrefix, filter.CategorySlug, filter.Search, filter.Limit, filter.Offset)
	if r.redis != nil && filter.Search == "" {
		if cached, err := r.redis.Get(cacheKey); err == nil {
			var entry cachedPostList
			if err := json.Unmarshal([]byte(cached), &entry); err == nil {
				return entry.Posts, entry.Total, nil
			}
		}
	}

	var total int64
	if err := r.publishedScope(filter).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var posts []model.Post
	err := r.publishedScope(filter).
		Preload("Author").
		Preload("Categories").
		Order("published_at DESC").
		Limit(filter.Limit).Offset(filter.Offset).
		Find(&posts).Error
	if err != nil {
		return nil, 0, err
	}

	if r.redis != nil && filter.Search == "" {
		r.redis.Set(cacheKey, cachedPostList{Posts: posts, Total: total}, postCacheExpiration)
	}

	return posts, total, nil
}

// FindBySlug finds a single post by its slug, checking the cache first.
func (r *postRepository) FindBySlug(slug string) (*model.Post, error) {
	cacheKey := postBySlugCachePrefix + slug
	if r.redis != nil {
		if cached, err := r.redis.Get(cacheKey); err == nil {
			var post model.Post
			if err := json.Unmarshal([]byte(cached), &post); err == nil {
				return &post, nil
			}
		}
	}

	var post model.Post
	err := r.db.Preload("Author").Preload("Categories").
		Where("slug = ?", slug).First(&post).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if r.redis != nil {
		r.redis.Set(cacheKey, &post, postCacheExpiration)
	}

	return &post, nil
}

// ListCategories returns all categories with their published post counts.
func (r *postRepository) ListCategories() ([]CategoryCount, error) {
	var results []CategoryCount
	err := r.db.Model(&model.Category{}).
		Select("categories.*, count(pc.post_id) as post_count").
		Joins("LEFT JOIN post_categories pc ON pc.category_id = categories.id").
		Group("categories.id").
		Order("categories.title ASC").
		Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

// publishedScope assembles the dynamic WHERE chain for a listing query. A
// fresh chain is built per use so Count and Find never share statement state.
func (r *postRepository) publishedScope(filter PostFilter) *gorm.DB {
	query := r.db.Model(&model.Post{}).
		Where("published_at IS NOT NULL AND published_at <= ?", time.Now())

	if filter.CategorySlug != "" {
		query = query.
			Joins("JOIN post_categories pc ON pc.post_id = posts.id").
			Joins("JOIN categories c ON c.id = pc.category_id").
			Where("c.slug = ?", filter.CategorySlug)
	}

	if filter.Search != "" {
		like := "%" + filter.Search + "%"
		query = query.Where("title ILIKE ? OR excerpt ILIKE ?", like, like)
	}

	return query
}

type cachedPostList struct {
	Posts []model.Post `json:"posts"`
	Total int64        `json:"total"`
}
