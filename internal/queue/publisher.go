package queue

import (
	"context"
	"encoding/json"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Publisher delivers notification events to RabbitMQ. It attempts to be
// robust and to never panic; every error is logged and returned so callers
// can choose to ignore it without interrupting the main request flow.
// Messages are marked persistent and the queue is durable.
type Publisher struct {
	URL string
}

func NewPublisher(url string) *Publisher { return &Publisher{URL: url} }

// AccountVerification publishes an ACCOUNT_VERIFICATION event.
func (p *Publisher) AccountVerification(ctx context.Context, msg AccountVerificationMessage) error {
	return p.publish(ctx, KindAccountVerification, msg)
}

// PasswordReset publishes a PASSWORD_RESET event.
func (p *Publisher) PasswordReset(ctx context.Context, msg PasswordResetMessage) error {
	return p.publish(ctx, KindPasswordReset, msg)
}

func (p *Publisher) publish(ctx context.Context, kind string, payload any) error {
	conn, err := amqp.Dial(p.URL)
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

	// Ensure the queue exists (idempotent). Durable so messages survive
	// broker restarts.
	if _, err := ch.QueueDeclare(
		NotificationsQueue, // name
		true,               // durable
		false,              // autoDelete
		false,              // exclusive
		false,              // noWait
		nil,                // args
	); err != nil {
		log.Printf("rabbitmq: queue declare failed: %v", err)
		return err
	}

	body, err := json.Marshal(payload)
	if err != nil {
		log.Printf("rabbitmq: marshal %s failed: %v", kind, err)
		return err
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent, // store on disk
		Timestamp:    time.Now().UTC(),
		Type:         kind,
		Body:         body,
	}

	if err := ch.PublishWithContext(ctx,
		"",                 // default exchange
		NotificationsQueue, // routing key = queue name
		false,              // mandatory
		false,              // immediate
		pub,
	); err != nil {
		log.Printf("rabbitmq: publish %s failed: %v", kind, err)
		return err
	}

	return nil
}
