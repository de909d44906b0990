package service

import (
	"errors"
	"strings"
	"testing"
	"time"

	"marginalia/internal/model"
	"marginalia/internal/repository"

	"github.com/rs/zerolog"
)

type fakePostRepo struct {
	posts      map[string]*model.Post
	lastFilter repository.PostFilter
}

func newFakePostRepo() *fakePostRepo {
	return &fakePostRepo{posts: make(map[string]*model.Post)}
}

func (r *fakePostRepo) FindPublished(filter repository.PostFilter) ([]model.Post, int64, error) {
	r.lastFilter = filter
	var out []model.Post
	for _, p := range r.posts {
		if p.Published() {
			out = append(out, *p)
		}
	}
	return out, int64(len(out)), nil
}

func (r *fakePostRepo) FindBySlug(slug string) (*model.Post, error) {
	for _, p := range r.posts {
		if p.Slug == slug {
			copied := *p
			return &copied, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakePostRepo) ListCategories() ([]repository.CategoryCount, error) {
	return nil, nil
}

func publishedPost(slug, body string) *model.Post {
	published := time.Now().Add(-time.Hour)
	return &model.Post{
		ID:          "post-" + slug,
		Slug:        slug,
		Title:       "Title of " + slug,
		Body:        body,
		PublishedAt: &published,
		Author:      model.Author{Slug: "alice", Name: "Alice"},
	}
}

func TestGetPostRendersSanitizedHTML(t *testing.T) {
	postRepo := newFakePostRepo()
	postRepo.posts["p"] = publishedPost("hello", "# Heading\n\nSome *text*.\n\n<script>alert(1)</script>")

	svc := NewPostService(postRepo, newFakeCommentRepo(), zerolog.Nop())

	detail, err := svc.GetPostBySlug("hello")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(detail.BodyHTML, "<h1") {
		t.Errorf("markdown heading not rendered: %q", detail.BodyHTML)
	}
	if !strings.Contains(detail.BodyHTML, "<em>text</em>") {
		t.Errorf("markdown emphasis not rendered: %q", detail.BodyHTML)
	}
	if strings.Contains(detail.BodyHTML, "<script") {
		t.Errorf("script tag survived sanitization: %q", detail.BodyHTML)
	}
}

func TestGetPostCountsOnlyVisibleComments(t *testing.T) {
	postRepo := newFakePostRepo()
	post := publishedPost("counted", "body text")
	postRepo.posts["p"] = post

	commentRepo := newFakeCommentRepo()
	visible := &model.Comment{PostID: post.ID, AuthorName: "a", Body: "x", Approved: true}
	hidden := &model.Comment{PostID: post.ID, AuthorName: "b", Body: "y", Approved: false}
	commentRepo.Create(visible)
	commentRepo.Create(hidden)
	commentRepo.comments[visible.ID].Approved = true

	svc := NewPostService(postRepo, commentRepo, zerolog.Nop())

	detail, err := svc.GetPostBySlug("counted")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if detail.CommentCount != 1 {
		t.Errorf("expected one visible comment, got %d", detail.CommentCount)
	}
}

func TestGetPostHidesUnpublished(t *testing.T) {
	postRepo := newFakePostRepo()
	draft := publishedPost("draft", "body")
	draft.PublishedAt = nil
	postRepo.posts["p"] = draft

	svc := NewPostService(postRepo, newFakeCommentRepo(), zerolog.Nop())

	_, err := svc.GetPostBySlug("draft")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("draft post: expected ErrNotFound, got %v", err)
	}

	_, err = svc.GetPostBySlug("missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("missing post: expected ErrNotFound, got %v", err)
	}
}

func TestListPostsClampsPagination(t *testing.T) {
	postRepo := newFakePostRepo()
	svc := NewPostService(postRepo, newFakeCommentRepo(), zerolog.Nop())

	if _, _, err := svc.ListPosts(PostQuery{Limit: 9999, Offset: -3, Category: "go"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if postRepo.lastFilter.Limit != 20 {
		t.Errorf("oversized limit not clamped: %d", postRepo.lastFilter.Limit)
	}
	if postRepo.lastFilter.Offset != 0 {
		t.Errorf("negative offset not clamped: %d", postRepo.lastFilter.Offset)
	}
	if postRepo.lastFilter.CategorySlug != "go" {
		t.Errorf("category filter not passed through: %q", postRepo.lastFilter.CategorySlug)
	}
}
