package queue

import (
	"fmt"
	"sync"
	"time"

	"github.com/unclebandit/donorcall-backend/internal/logger"
	"github.com/unclebandit/donorcall-backend/internal/model"
	"github.com/unclebandit/donorcall-backend/internal/repository"
)

// Queue interface
type Queue interface {
	Publish(topic string, payload any) error
	Subscribe(topic string, handler func(payload any) error) error
}

// InMemoryQueue is an in-memory queue with retry, used when no broker is configured
type InMemoryQueue struct {
	mu       sync.Mutex
	handlers map[string][]func(payload any) error
}

// NewInMemoryQueue creates a new queue
func NewInMemoryQueue() *InMemoryQueue {
	return &InMemoryQueue{
		handlers: make(map[string][]func(payload any) error),
	}
}

// JobPayload wraps a message payload with retry info
type JobPayload struct {
	Payload    any
	RetryCount int
	MaxRetries int
}

// Publish sends a message to all subscribers
func (q *InMemoryQueue) Publish(topic string, payload any) error {
	q.mu.Lock()
	handlers := q.handlers[topic]
	q.mu.Unlock()

	if len(handlers) == 0 {
		return fmt.Errorf("no subscribers for topic %s", topic)
	}

	job := JobPayload{
		Payload:    payload,
		RetryCount: 0,
		MaxRetries: 3,
	}

	for _, handler := range handlers {
		go q.processJob(handler, job)
	}

	return nil
}

// processJob handles retries and errors
func (q *InMemoryQueue) processJob(handler func(payload any) error, job JobPayload) {
	for job.RetryCount <= job.MaxRetries {
		err := handler(job.Payload)
		if err == nil {
			return // ACK
		}

		job.RetryCount++
		logger.Log.Warnf("Job failed (attempt %d/%d): %+v, error: %v", job.RetryCount, job.MaxRetries, job.Payload, err)

		if job.RetryCount > job.MaxRetries {
			logger.Log.Errorf("Job permanently failed after %d attempts: %+v", job.MaxRetries, job.Payload)
			return // No requeue
		}

		// Exponential backoff before retry
		time.Sleep(time.Duration(job.RetryCount*500) * time.Millisecond)
	}
}

// Subscribe adds a handler for a topic
func (q *InMemoryQueue) Subscribe(topic string, handler func(payload any) error) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.handlers[topic] = append(q.handlers[topic], handler)
	return nil
}

// StartCallLogSubscriber persists call events to the call log: placements
// become new rows, provider status callbacks update the latest row for the
// number.
func StartCallLogSubscriber(q Queue, callLogRepo repository.CallLogRepositoryInterface) {
	err := q.Subscribe(TopicCallEvents, func(payload any) error {
		ev, ok := payload.(CallEvent)
		if !ok {
			logger.Log.Warn("Invalid payload type, expected CallEvent")
			return nil // no retry
		}

		if ev.Status == "initiated" {
			attempt := &model.CallAttempt{
				PhoneNumber: ev.PhoneNumber,
				DonorName:   ev.DonorName,
				CallSID:     ev.CallSID,
				CallStatus:  ev.Status,
			}
			if err := callLogRepo.Insert(attempt); err != nil {
				logger.Log.Warnf("Failed to insert call log for %s: %v", ev.PhoneNumber, err)
				return err // triggers retry in queue
			}
			return nil
		}

		if err := callLogRepo.UpdateStatus(ev.PhoneNumber, ev.Status); err != nil {
			logger.Log.Warnf("Failed to update call log for %s: %v", ev.PhoneNumber, err)
			return err // retry
		}
		return nil
	})

	if err != nil {
		logger.Log.Warnf("Failed to start subscriber for %s: %v", TopicCallEvents, err)
	}
}
