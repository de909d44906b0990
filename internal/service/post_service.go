package service

import (
	"errors"
	"time"

	"marginalia/internal/model"
	"marginalia/internal/repository"
	"marginalia/internal/util"

	"github.com/rs/zerolog"
)

// AuthorRef is the reader-facing author reference on a post.
type AuthorRef struct {
	Slug string `json:"slug"`
	Name string `json:"name"`
}

// CategoryRef is the reader-facing category reference on a post.
type CategoryRef struct {
	Slug  string `json:"slug"`
	Title string `json:"title"`
}

// PostSummary is one entry of a post listing.
type PostSummary struct {
	ID          string        `json:"id"`
	Slug        string        `json:"slug"`
	Title       string        `json:"title"`
	Excerpt     string        `json:"excerpt,omitempty"`
	Author      AuthorRef     `json:"author"`
	Categories  []CategoryRef `json:"categories"`
	PublishedAt *time.Time    `json:"publishedAt,omitempty"`
}

// PostDetail is a full post with its body rendered to sanitized HTML.
type PostDetail struct {
	PostSummary
	BodyHTML     string `json:"bodyHtml"`
	AuthorBio    string `json:"authorBio,omitempty"`
	CommentCount int64  `json:"commentCount"`
}

// PostQuery carries the listing filters from the HTTP layer.
type PostQuery struct {
	Category string
	Search   string
	Limit    int
	Offset   int
}

type PostService interface {
	ListPosts(q PostQuery) ([]PostSummary, int64, error)
	GetPostBySlug(slug string) (*PostDetail, error)
	ListCategories() ([]repository.CategoryCount, error)
}

type postService struct {
	postRepo    repository.PostRepository
	commentRepo repository.CommentRepository
	log         zerolog.Logger
}

func NewPostService(postRepo repository.PostRepository, commentRepo repository.CommentRepository, log zerolog.Logger) PostService {
	return &postService{
		postRepo:    postRepo,
		commentRepo: commentRepo,
		log:         log,
	}
}

// ListPosts returns published posts matching the query, newest first.
func (s *postService) ListPosts(q PostQuery) ([]PostSummary, int64, error) {
	if q.Limit <= 0 || q.Limit > 50 {
		q.Limit = 20
	}
	if q.Offset < 0 {
		q.Offset = 0
	}

	posts, total, err := s.postRepo.FindPublished(repository.PostFilter{
		CategorySlug: q.Category,
		Search:       q.Search,
		Limit:        q.Limit,
		Offset:       q.Offset,
	})
	if err != nil {
		s.log.Error().Err(err).Msg("post list query failed")
		return nil, 0, &StoreError{Op: "query", Err: err}
	}

	summaries := make([]PostSummary, 0, len(posts))
	for i := range posts {
		summaries = append(summaries, toSummary(&posts[i]))
	}
	return summaries, total, nil
}

// GetPostBySlug returns a published post with rendered body and its approved
// comment count. Unpublished posts are invisible to readers.
func (s *postService) GetPostBySlug(slug string) (*PostDetail, error) {
	post, err := s.postRepo.FindBySlug(slug)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		s.log.Error().Err(err).Str("slug", slug).Msg("post query failed")
		return nil, &StoreError{Op: "query", Err: err}
	}

	if !post.Published() {
		return nil, ErrNotFound
	}

	count, err := s.commentRepo.CountVisibleByPostID(post.ID)
	if err != nil {
		s.log.Error().Err(err).Str("post_id", post.ID).Msg("comment count query failed")
		return nil, &StoreError{Op: "query", Err: err}
	}

	return &PostDetail{
		PostSummary:  toSummary(post),
		BodyHTML:     util.RenderMarkdown(post.Body),
		AuthorBio:    post.Author.Bio,
		CommentCount: count,
	}, nil
}

// ListCategories returns all categories with their post counts.
func (s *postService) ListCategories() ([]repository.CategoryCount, error) {
	categories, err := s.postRepo.ListCategories()
	if err != nil {
		s.log.Error().Err(err).Msg("category list query failed")
		return nil, &StoreError{Op: "query", Err: err}
	}
	return categories, nil
}

func toSummary(post *model.Post) PostSummary {
	categories := make([]CategoryRef, 0, len(post.Categories))
	for _, c := range post.Categories {
		categories = append(categories, CategoryRef{Slug: c.Slug, Title: c.Title})
	}

	return PostSummary{
		ID:      post.ID,
		Slug:    post.Slug,
		Title:   post.Title,
		Excerpt: post.Excerpt,
		Author: AuthorRef{
			Slug: post.Author.Slug,
			Name: post.Author.Name,
		},
		Categories:  categories,
		PublishedAt: post.PublishedAt,
	}
}
