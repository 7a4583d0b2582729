package service

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog/log"

	"github.com/iliyamo/task-tracker/internal/model"
	"github.com/iliyamo/task-tracker/internal/queue"
)

// Publisher emits activity events.  Publishing is best effort: callers
// ignore the returned error, which implementations also log.
type Publisher interface {
	Publish(ctx context.Context, ev queue.ActivityEvent) error
}

// NopPublisher drops every event.  It is used when events are disabled.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, queue.ActivityEvent) error { return nil }

// AMQPPublisher publishes events to the durable task.activity queue.  A
// connection is opened per message, which is adequate for the low event
// rate of a personal task tracker.
type AMQPPublisher struct {
	URL     string
	Timeout time.Duration
}

// NewAMQPPublisher returns a publisher for the broker at url.
func NewAMQPPublisher(url string) *AMQPPublisher {
	return &AMQPPublisher{URL: url, Timeout: 2 * time.Second}
}

// Publish sends ev as a persistent JSON message.  Errors are logged and
// returned; they never panic.
func (p *AMQPPublisher) Publish(ctx context.Context, ev queue.ActivityEvent) error {
	ctx, cancel := context.WithTimeout(ctx, p.Timeout)
	defer cancel()

	conn, err := amqp.DialConfig(p.URL, amqp.Config{Dial: amqp.DefaultDial(p.Timeout)})
	if err != nil {
		log.Warn().Err(err).Str("event", ev.Type).Msg("rabbitmq: dial failed")
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		log.Warn().Err(err).Msg("rabbitmq: channel open failed")
		return err
	}
	defer func() { _ = ch.Close() }()

	// Ensure the queue exists (idempotent). Durable so messages survive broker restarts.
	if _, err := ch.QueueDeclare(
		queue.ActivityQueue, // name
		true,                // durable
		false,               // autoDelete
		false,               // exclusive
		false,               // noWait
		nil,                 // args
	); err != nil {
		log.Warn().Err(err).Msg("rabbitmq: queue declare failed")
		return err
	}

	body, err := json.Marshal(ev)
	if err != nil {
		log.Warn().Err(err).Msg("rabbitmq: marshal event failed")
		return err
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent, // store on disk
		Timestamp:    ev.OccurredAt,
		Type:         ev.Type,
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx,
		"",                  // default exchange
		queue.ActivityQueue, // routing key = queue name
		false,               // mandatory
		false,               // immediate
		pub,
	); err != nil {
		log.Warn().Err(err).Msg("rabbitmq: publish failed")
		return err
	}
	return nil
}

var now = func() time.Time { return time.Now().UTC() }

// UserRegistered builds the event published after a successful registration.
func UserRegistered(userID uint64) queue.ActivityEvent {
	return queue.ActivityEvent{Type: queue.EventUserRegistered, UserID: userID, OccurredAt: now()}
}

// TaskEvent builds a task.* event for t.
func TaskEvent(kind string, t *model.Task) queue.ActivityEvent {
	return queue.ActivityEvent{
		Type:       kind,
		UserID:     t.UserID,
		TaskID:     t.ID,
		Title:      t.Title,
		Status:     t.Status,
		OccurredAt: now(),
	}
}

// AsyncPublisher hands each event to Next on its own goroutine so that a
// slow or unreachable broker never delays the HTTP response.  The request
// context's cancellation is dropped; its values are kept.
type AsyncPublisher struct {
	Next Publisher
}

// Publish always returns nil; failures are logged by Next.
func (p AsyncPublisher) Publish(ctx context.Context, ev queue.ActivityEvent) error {
	ctx = context.WithoutCancel(ctx)
	go func() { _ = p.Next.Publish(ctx, ev) }()
	return nil
}
