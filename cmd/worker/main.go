package main

import (
	"database/sql"
	"encoding/json"
	"log"
	"os"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/streadway/amqp"

	"github.com/unclebandit/donorcall-backend/internal/model"
	"github.com/unclebandit/donorcall-backend/internal/queue"
	"github.com/unclebandit/donorcall-backend/internal/repository"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on OS environment variables")
	}

	// Connect to DB
	db, err := sql.Open("postgres", os.Getenv("DATABASE_URL"))
	if err != nil {
		log.Fatal("failed to connect to DB:", err)
	}
	callLogRepo := &repository.CallLogRepository{DB: db}

	// Connect to RabbitMQ
	conn, err := amqp.Dial(os.Getenv("AMQP_URL"))
	if err != nil {
		log.Fatal("Failed to connect to RabbitMQ:", err)
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		log.Fatal("Failed to open a channel:", err)
	}
	defer ch.Close()

	q, err := ch.QueueDeclare(
		queue.TopicCallEvents, // name
		true,                  // durable
		false,                 // delete when unused
		false,                 // exclusive
		false,                 // no-wait
		nil,                   // arguments
	)
	if err != nil {
		log.Fatal("Failed to declare queue:", err)
	}

	msgs, err := ch.Consume(
		q.Name,
		"",
		false, // autoAck = false for reliability
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		log.Fatal("Failed to register consumer:", err)
	}

	forever := make(chan bool)

	go func() {
		for d := range msgs {
			var ev queue.CallEvent
			if err := json.Unmarshal(d.Body, &ev); err != nil {
				log.Println("Invalid call event:", err)
				d.Ack(false)
				continue
			}

			if err := processEvent(ev, callLogRepo); err != nil {
				log.Println("Failed to persist call event:", err)
				// Retry logic: requeue up to 3 times
				var retryCount int
				if d.Headers["x-retry-count"] != nil {
					retryCount = d.Headers["x-retry-count"].(int)
				}
				if retryCount < 3 {
					d.Nack(false, true) // requeue
					continue
				}
			}

			d.Ack(false)
		}
	}()

	log.Println("Worker running, waiting for call events...")
	<-forever
}

func processEvent(ev queue.CallEvent, repo repository.CallLogRepositoryInterface) error {
	if ev.Status == "initiated" {
		return repo.Insert(&model.CallAttempt{
			PhoneNumber: ev.PhoneNumber,
			DonorName:   ev.DonorName,
			CallSID:     ev.CallSID,
			CallStatus:  ev.Status,
		})
	}
	return repo.UpdateStatus(ev.PhoneNumber, ev.Status)
}
