package service

import (
	"errors"
	"time"

	"marginalia/internal/model"
	"marginalia/internal/repository"

	"github.com/rs/zerolog"
)

// ClientMeta is captured at submission time for moderation context. It is
// stored with the comment and never exposed to readers.
type ClientMeta struct {
	IP        string
	UserAgent string
}

// ModerationPatch is a partial moderation update. Nil fields are left
// unchanged.
type ModerationPatch struct {
	Approved *bool
	Spam     *bool
}

// CommentResponse is the reader-facing view of a comment. Email and client
// metadata are deliberately absent.
type CommentResponse struct {
	ID        string             `json:"id"`
	Name      string             `json:"name"`
	Website   string             `json:"website,omitempty"`
	Content   string             `json:"content"`
	ParentID  *string            `json:"parentId,omitempty"`
	CreatedAt time.Time          `json:"createdAt"`
	Replies   []*CommentResponse `json:"replies"`
}

// SubmitResponse is what a submitter gets back. Spam-flagged submissions
// return the identical shape so detection is never signalled.
type SubmitResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

type CommentService interface {
	ListThread(postID string) ([]*CommentResponse, error)
	Submit(raw CommentSubmission, meta ClientMeta) (*SubmitResponse, error)
	Moderate(commentID string, patch ModerationPatch) (*model.Comment, error)
	Delete(commentID string) error
	PendingQueue(limit, offset int) ([]model.Comment, error)
}

type commentService struct {
	commentRepo repository.CommentRepository
	events      EventPublisher
	log         zerolog.Logger
}

func NewCommentService(commentRepo repository.CommentRepository, events EventPublisher, log zerolog.Logger) CommentService {
	return &commentService{
		commentRepo: commentRepo,
		events:      events,
		log:         log,
	}
}

// ListThread returns the visible comments of a post as reply trees. The store
// emits them in ascending creation order and the builder preserves it.
func (s *commentService) ListThread(postID string) ([]*CommentResponse, error) {
	comments, err := s.commentRepo.FindVisibleByPostID(postID)
	if err != nil {
		s.log.Error().Err(err).Str("post_id", postID).Msg("comment list query failed")
		return nil, &StoreError{Op: "query", Err: err}
	}

	return toResponses(BuildThread(comments)), nil
}

// Submit validates a raw submission, applies the spam heuristic and persists
// the comment unapproved. A new pending comment is announced to moderators on
// a best-effort basis; a broker outage never fails the submission.
func (s *commentService) Submit(raw CommentSubmission, meta ClientMeta) (*SubmitResponse, error) {
	sub, err := ValidateSubmission(raw)
	if err != nil {
		return nil, err
	}

	comment := &model.Comment{
		PostID:      sub.PostID,
		AuthorName:  sub.Name,
		AuthorEmail: sub.Email,
		Body:        sub.Content,
		Approved:    false,
		Spam:        IsSpam(sub),
		IPAddress:   meta.IP,
		UserAgent:   meta.UserAgent,
	}
	if sub.Website != "" {
		comment.AuthorWebsite = &sub.Website
	}
	if sub.ParentID != "" {
		parentID := sub.ParentID
		comment.ParentID = &parentID
	}

	if err := s.commentRepo.Create(comment); err != nil {
		s.log.Error().Err(err).Str("post_id", sub.PostID).Msg("comment create failed")
		return nil, &StoreError{Op: "create", Err: err}
	}

	if s.events != nil {
		if err := s.events.PublishPendingComment(NewPendingCommentEvent(comment)); err != nil {
			s.log.Warn().Err(err).Str("comment_id", comment.ID).Msg("failed to publish pending comment event")
		}
	}

	return &SubmitResponse{
		ID:        comment.ID,
		Name:      comment.AuthorName,
		Content:   comment.Body,
		CreatedAt: comment.CreatedAt,
	}, nil
}

// Moderate applies a partial approve/spam update. Omitted fields stay as they
// are; updated_at is always refreshed. Racing updates on the same comment are
// last-write-wins.
func (s *commentService) Moderate(commentID string, patch ModerationPatch) (*model.Comment, error) {
	if commentID == "" {
		return nil, &ValidationError{
			Kind:    ErrMissingField,
			Field:   "commentId",
			Message: "commentId is required",
		}
	}

	fields := map[string]interface{}{
		"updated_at": time.Now(),
	}
	if patch.Approved != nil {
		fields["approved"] = *patch.Approved
	}
	if patch.Spam != nil {
		fields["spam"] = *patch.Spam
	}

	comment, err := s.commentRepo.Patch(commentID, fields)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		s.log.Error().Err(err).Str("comment_id", commentID).Msg("comment patch failed")
		return nil, &StoreError{Op: "patch", Err: err}
	}

	return comment, nil
}

// Delete removes a comment permanently. Deleting an unknown id surfaces
// ErrNotFound, including on a repeated delete; callers wanting idempotence
// treat that as non-fatal.
func (s *commentService) Delete(commentID string) error {
	if commentID == "" {
		return &ValidationError{
			Kind:    ErrMissingField,
			Field:   "commentId",
			Message: "commentId is required",
		}
	}

	err := s.commentRepo.Delete(commentID)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrNotFound
	}
	if err != nil {
		s.log.Error().Err(err).Str("comment_id", commentID).Msg("comment delete failed")
		return &StoreError{Op: "delete", Err: err}
	}

	return nil
}

// PendingQueue lists comments awaiting moderation, newest first.
func (s *commentService) PendingQueue(limit, offset int) ([]model.Comment, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	comments, err := s.commentRepo.FindPending(limit, offset)
	if err != nil {
		s.log.Error().Err(err).Msg("pending comment query failed")
		return nil, &StoreError{Op: "query", Err: err}
	}
	return comments, nil
}

func toResponses(nodes []*CommentNode) []*CommentResponse {
	out := make([]*CommentResponse, 0, len(nodes))
	for _, n := range nodes {
		resp := &CommentResponse{
			ID:        n.Comment.ID,
			Name:      n.Comment.AuthorName,
			Content:   n.Comment.Body,
			ParentID:  n.Comment.ParentID,
			CreatedAt: n.Comment.CreatedAt,
			Replies:   toResponses(n.Replies),
		}
		if n.Comment.AuthorWebsite != nil {
			resp.Website = *n.Comment.AuthorWebsite
		}
		out = append(out, resp)
	}
	return out
}
