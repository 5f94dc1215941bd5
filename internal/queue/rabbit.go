package queue

import (
	"encoding/json"
	"fmt"

	"github.com/streadway/amqp"

	"github.com/unclebandit/donorcall-backend/internal/logger"
)

// RabbitQueue publishes call events to RabbitMQ so an out-of-process worker
// can persist them (see cmd/worker).
type RabbitQueue struct {
	conn *amqp.Connection
	ch   *amqp.Channel
}

func NewRabbitQueue(url string) (*RabbitQueue, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open queue channel: %w", err)
	}

	_, err = ch.QueueDeclare(
		TopicCallEvents,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare queue: %w", err)
	}

	return &RabbitQueue{conn: conn, ch: ch}, nil
}

func (q *RabbitQueue) Publish(topic string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return q.ch.Publish(
		"",
		topic,
		false,
		false,
		amqp.Publishing{
			ContentType: "application/json",
			Body:        body,
		},
	)
}

// Subscribe consumes from the broker and delivers decoded CallEvents.
func (q *RabbitQueue) Subscribe(topic string, handler func(payload any) error) error {
	msgs, err := q.ch.Consume(
		topic,
		"",
		false, // autoAck = false for reliability
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return err
	}

	go func() {
		for d := range msgs {
			var ev CallEvent
			if err := json.Unmarshal(d.Body, &ev); err != nil {
				logger.Log.Warnf("Invalid call event: %v", err)
				d.Ack(false)
				continue
			}
			if err := handler(ev); err != nil {
				d.Nack(false, true) // requeue
				continue
			}
			d.Ack(false)
		}
	}()

	return nil
}

func (q *RabbitQueue) Close() {
	q.ch.Close()
	q.conn.Close()
}

var _ Queue = (*RabbitQueue)(nil)
