package app

import (
	"errors"
	"net/http"
	"strconv"

	"marginalia/internal/service"
	"marginalia/internal/util"

	"github.com/gin-gonic/gin"
)

type CommentHandler struct {
	commentService service.CommentService
}

func NewCommentHandler(commentService service.CommentService) *CommentHandler {
	return &CommentHandler{
		commentService: commentService,
	}
}

// DocRef mirrors the document-reference shape submitted by the front-end.
type DocRef struct {
	Ref string `json:"_ref"`
}

// SubmitCommentRequest is the submission body.
type SubmitCommentRequest struct {
	Name      string  `json:"name"`
	Email     string  `json:"email"`
	Website   string  `json:"website"`
	Content   string  `json:"content"`
	Post      *DocRef `json:"post"`
	Parent    *DocRef `json:"parent"`
	UserAgent string  `json:"userAgent"`
}

// ModerateCommentRequest is the moderation body. Omitted flags are left
// unchanged.
type ModerateCommentRequest struct {
	CommentID string `json:"commentId"`
	Approved  *bool  `json:"approved"`
	Spam      *bool  `json:"spam"`
}

// ListComments returns the visible comment thread of a post
// GET /api/comments?postId=
func (h *CommentHandler) ListComments(c *gin.Context) {
	postID := c.Query("postId")
	if postID == "" {
		util.BadRequest(c, "postId is required")
		return
	}

	comments, err := h.commentService.ListThread(postID)
	if err != nil {
		h.serviceError(c, err)
		return
	}

	util.SuccessResponse(c, http.StatusOK, gin.H{"comments": comments})
}

// SubmitComment accepts a new comment for moderation
// POST /api/comments
func (h *CommentHandler) SubmitComment(c *gin.Context) {
	var req SubmitCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.BadRequest(c, "invalid request body")
		return
	}

	raw := service.CommentSubmission{
		Name:    req.Name,
		Email:   req.Email,
		Website: req.Website,
		Content: req.Content,
	}
	if req.Post != nil {
		raw.PostID = req.Post.Ref
	}
	if req.Parent != nil {
		raw.ParentID = req.Parent.Ref
	}

	meta := service.ClientMeta{
		IP:        c.ClientIP(),
		UserAgent: req.UserAgent,
	}
	if meta.UserAgent == "" {
		meta.UserAgent = c.Request.UserAgent()
	}

	comment, err := h.commentService.Submit(raw, meta)
	if err != nil {
		h.serviceError(c, err)
		return
	}

	util.SuccessResponse(c, http.StatusCreated, gin.H{"comment": comment})
}

// ModerateComment applies approve/spam flags to a comment
// PUT /api/comments
func (h *CommentHandler) ModerateComment(c *gin.Context) {
	var req ModerateCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.BadRequest(c, "invalid request body")
		return
	}

	comment, err := h.commentService.Moderate(req.CommentID, service.ModerationPatch{
		Approved: req.Approved,
		Spam:     req.Spam,
	})
	if err != nil {
		h.serviceError(c, err)
		return
	}

	util.SuccessResponse(c, http.StatusOK, gin.H{"comment": comment})
}

// DeleteComment permanently removes a comment
// DELETE /api/comments?commentId=
func (h *CommentHandler) DeleteComment(c *gin.Context) {
	commentID := c.Query("commentId")

	if err := h.commentService.Delete(commentID); err != nil {
		h.serviceError(c, err)
		return
	}

	util.SuccessResponse(c, http.StatusOK, gin.H{"message": "comment deleted"})
}

// PendingComments lists the moderation queue
// GET /api/comments/pending?limit=&offset=
func (h *CommentHandler) PendingComments(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	comments, err := h.commentService.PendingQueue(limit, offset)
	if err != nil {
		h.serviceError(c, err)
		return
	}

	util.SuccessResponse(c, http.StatusOK, gin.H{"comments": comments})
}

// serviceError maps service-level errors onto HTTP statuses. Spam flagging is
// not an error and never reaches this path.
func (h *CommentHandler) serviceError(c *gin.Context, err error) {
	if verr, ok := service.AsValidationError(err); ok {
		util.BadRequest(c, verr.Message)
		return
	}
	if errors.Is(err, service.ErrNotFound) {
		util.NotFound(c, "comment not found")
		return
	}
	var serr *service.StoreError
	if errors.As(err, &serr) {
		util.ErrorResponse(c, http.StatusBadGateway, "content store unavailable")
		return
	}
	util.ErrorResponse(c, http.StatusInternalServerError, "internal error")
}
