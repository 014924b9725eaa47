// Package service publishes meeting lifecycle events to RabbitMQ. Publishing
// is best-effort: errors are logged and returned so callers can ignore them
// without interrupting the request that triggered the event.
package service

import (
	"context"
	"encoding/json"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	q "github.com/iliyamo/meeting-admin/internal/queue"
)

// EventPublisher publishes MeetingEvents to the meeting.events queue. A
// publisher built with an empty URL is a no-op, so the server runs without
// a broker in development.
type EventPublisher struct {
	url string
}

// NewEventPublisher returns a publisher for the given AMQP URL.
func NewEventPublisher(url string) *EventPublisher {
	return &EventPublisher{url: url}
}

// Publish marshals the event and sends it to the durable meeting.events
// queue. Messages are persistent so they survive broker restarts.
func (p *EventPublisher) Publish(ctx context.Context, event q.MeetingEvent) error {
	if p.url == "" {
		return nil
	}
	conn, err := amqp.Dial(p.url)
	if err != nil {
		log.Printf("rabbitmq: dial failed: %v", err)
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		log.Printf("rabbitmq: channel open failed: %v", err)
		return err
	}
	defer func() { _ = ch.Close() }()

	// Idempotent declare so publisher and consumer agree on the queue.
	if _, err := ch.QueueDeclare(q.EventsQueueName, true, false, false, false, nil); err != nil {
		log.Printf("rabbitmq: queue declare failed: %v", err)
		return err
	}

	body, err := json.Marshal(event)
	if err != nil {
		log.Printf("rabbitmq: marshal event failed: %v", err)
		return err
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", q.EventsQueueName, false, false, pub); err != nil {
		log.Printf("rabbitmq: publish failed: %v", err)
		return err
	}
	return nil
}
