package service

import (
	"encoding/json"
	"time"

	"marginalia/internal/model"
	"marginalia/internal/util"
)

const (
	moderationExchange   = "moderation_exchange"
	moderationQueue      = "moderation_queue"
	moderationRoutingKey = "comment.pending"
)

// PendingCommentEvent announces a freshly submitted comment to moderators.
type PendingCommentEvent struct {
	CommentID string    `json:"comment_id"`
	PostID    string    `json:"post_id"`
	Name      string    `json:"name"`
	Excerpt   string    `json:"excerpt"`
	Spam      bool      `json:"spam"`
	CreatedAt time.Time `json:"created_at"`
}

// NewPendingCommentEvent builds the event for a stored comment. The body is
// truncated so dashboards get a preview, not the full text.
func NewPendingCommentEvent(c *model.Comment) PendingCommentEvent {
	excerpt := c.Body
	if runes := []rune(excerpt); len(runes) > 120 {
		excerpt = string(runes[:120])
	}
	return PendingCommentEvent{
		CommentID: c.ID,
		PostID:    c.PostID,
		Name:      c.AuthorName,
		Excerpt:   excerpt,
		Spam:      c.Spam,
		CreatedAt: c.CreatedAt,
	}
}

// EventPublisher publishes moderation events. Implementations must be safe
// for concurrent use.
type EventPublisher interface {
	PublishPendingComment(event PendingCommentEvent) error
}

type rabbitEventPublisher struct {
	rabbitMQ *util.RabbitMQClient
}

// NewRabbitEventPublisher creates a publisher backed by RabbitMQ. It declares
// the moderation exchange and queue up front so events survive until a worker
// consumes them.
func NewRabbitEventPublisher(rabbitMQ *util.RabbitMQClient) (EventPublisher, error) {
	channel := rabbitMQ.GetChannel()

	if err := channel.ExchangeDeclare(
		moderationExchange,
		"direct",
		true,  // durable
		false, // auto-delete
		false,
		false,
		nil,
	); err != nil {
		return nil, err
	}

	if _, err := channel.QueueDeclare(
		moderationQueue,
		true, // durable
		false,
		false,
		false,
		nil,
	); err != nil {
		return nil, err
	}

	if err := channel.QueueBind(
		moderationQueue,
		moderationRoutingKey,
		moderationExchange,
		false,
		nil,
	); err != nil {
		return nil, err
	}

	return &rabbitEventPublisher{rabbitMQ: rabbitMQ}, nil
}

func (p *rabbitEventPublisher) PublishPendingComment(event PendingCommentEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return p.rabbitMQ.Publish(moderationExchange, moderationRoutingKey, body)
}
