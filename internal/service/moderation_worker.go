package service

import (
	"encoding/json"

	"marginalia/internal/util"
	"marginalia/internal/websocket"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

// ModerationWorker consumes pending-comment events from RabbitMQ and pushes
// them to connected moderator dashboards.
type ModerationWorker struct {
	rabbitMQ *util.RabbitMQClient
	wsHub    *websocket.Hub
	log      zerolog.Logger
	stopChan chan bool
}

// NewModerationWorker creates a new moderation worker
func NewModerationWorker(rabbitMQ *util.RabbitMQClient, wsHub *websocket.Hub, log zerolog.Logger) *ModerationWorker {
	return &ModerationWorker{
		rabbitMQ: rabbitMQ,
		wsHub:    wsHub,
		log:      log,
		stopChan: make(chan bool),
	}
}

// Start begins consuming moderation events.
func (w *ModerationWorker) Start() error {
	if w.rabbitMQ == nil {
		return nil // RabbitMQ not available, worker will not start
	}

	channel := w.rabbitMQ.GetChannel()
	if channel == nil {
		return nil
	}

	// Exchange, queue and binding are declared by the publisher; declaring
	// again is a no-op and covers the worker starting first.
	if err := channel.ExchangeDeclare(
		moderationExchange,
		"direct",
		true,
		false,
		false,
		false,
		nil,
	); err != nil {
		return err
	}

	queue, err := channel.QueueDeclare(
		moderationQueue,
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return err
	}

	if err := channel.QueueBind(
		moderationQueue,
		moderationRoutingKey,
		moderationExchange,
		false,
		nil,
	); err != nil {
		return err
	}

	msgs, err := channel.Consume(
		queue.Name,
		"moderation_worker",
		false, // auto-ack
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return err
	}

	go func() {
		w.log.Info().Msg("moderation worker started, consuming events")
		for {
			select {
			case <-w.stopChan:
				w.log.Info().Msg("moderation worker stopped")
				return
			case msg, ok := <-msgs:
				if !ok {
					w.log.Warn().Msg("moderation queue closed")
					return
				}
				if err := w.processEvent(msg); err != nil {
					w.log.Error().Err(err).Msg("failed to process moderation event")
					// Don't ack on error, let RabbitMQ requeue
					msg.Nack(false, true)
				} else {
					msg.Ack(false)
				}
			}
		}
	}()

	return nil
}

// Stop signals the worker to stop consuming.
func (w *ModerationWorker) Stop() {
	close(w.stopChan)
}

func (w *ModerationWorker) processEvent(msg amqp.Delivery) error {
	var event PendingCommentEvent
	if err := json.Unmarshal(msg.Body, &event); err != nil {
		return err
	}

	w.wsHub.Broadcast(&websocket.Message{
		Type: "comment.pending",
		Payload: map[string]interface{}{
			"id":        event.CommentID,
			"postId":    event.PostID,
			"name":      event.Name,
			"excerpt":   event.Excerpt,
			"spam":      event.Spam,
			"createdAt": event.CreatedAt,
		},
	})

	return nil
}
