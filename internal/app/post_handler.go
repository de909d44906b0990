package app

import (
	"errors"
	"net/http"
	"strconv"

	"marginalia/internal/service"
	"marginalia/internal/util"

	"github.com/gin-gonic/gin"
)

type PostHandler struct {
	postService service.PostService
}

func NewPostHandler(postService service.PostService) *PostHandler {
	return &PostHandler{
		postService: postService,
	}
}

// ListPosts lists published posts with optional category, search and
// pagination filters
// GET /api/posts?category=&q=&limit=&offset=
func (h *PostHandler) ListPosts(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	posts, total, err := h.postService.ListPosts(service.PostQuery{
		Category: c.Query("category"),
		Search:   c.Query("q"),
		Limit:    limit,
		Offset:   offset,
	})
	if err != nil {
		h.serviceError(c, err)
		return
	}

	util.SuccessResponse(c, http.StatusOK, gin.H{"posts": posts, "total": total})
}

// GetPost returns a single post with rendered body
// GET /api/posts/:slug
func (h *PostHandler) GetPost(c *gin.Context) {
	post, err := h.postService.GetPostBySlug(c.Param("slug"))
	if err != nil {
		h.serviceError(c, err)
		return
	}

	util.SuccessResponse(c, http.StatusOK, gin.H{"post": post})
}

// ListCategories returns all categories with post counts
// GET /api/categories
func (h *PostHandler) ListCategories(c *gin.Context) {
	categories, err := h.postService.ListCategories()
	if err != nil {
		h.serviceError(c, err)
		return
	}

	util.SuccessResponse(c, http.StatusOK, gin.H{"categories": categories})
}

func (h *PostHandler) serviceError(c *gin.Context, err error) {
	if errors.Is(err, service.ErrNotFound) {
		util.NotFound(c, "post not found")
		return
	}
	var serr *service.StoreError
	if errors.As(err, &serr) {
		util.ErrorResponse(c, http.StatusBadGateway, "content store unavailable")
		return
	}
	util.ErrorResponse(c, http.StatusInternalServerError, "internal error")
}
