package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/jobflow/go-jobflow/internal/domain"
)

// DefaultQueue is the list raw postings travel through
const DefaultQueue = "jobs:raw"

// deadLetterSuffix names the list holding payloads the worker could not decode
const deadLetterSuffix = ":dead"

// Publisher pushes scraped postings to a Redis list
type Publisher struct {
	client    redis.Cmdable
	queueName string
}

// NewPublisher creates a new queue publisher
func NewPublisher(client redis.Cmdable, queueName string) *Publisher {
	if queueName == "" {
		queueName = DefaultQueue
	}
	return &Publisher{
		client:    client,
		queueName: queueName,
	}
}

// Publish pushes a single job to the queue
func (p *Publisher) Publish(ctx context.Context, job *domain.RawJob) error {
	data, err := encode(job)
	if err != nil {
		return err
	}
	if err := p.client.LPush(ctx, p.queueName, data).Err(); err != nil {
		return fmt.Errorf("lpush: %w", err)
	}
	return nil
}

// PublishBatch pushes multiple jobs in one round trip
func (p *Publisher) PublishBatch(ctx context.Context, jobs []*domain.RawJob) error {
	if len(jobs) == 0 {
		return nil
	}

	pipe := p.client.Pipeline()
	for _, job := range jobs {
		data, err := encode(job)
		if err != nil {
			return err
		}
		pipe.LPush(ctx, p.queueName, data)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("pipeline exec: %w", err)
	}
	return nil
}

// QueueLength returns the current queue length
func (p *Publisher) QueueLength(ctx context.Context) (int64, error) {
	return p.client.LLen(ctx, p.queueName).Result()
}

// DeadLetterLength returns how many undecodable payloads are parked
func (p *Publisher) DeadLetterLength(ctx context.Context) (int64, error) {
	return p.client.LLen(ctx, p.queueName+deadLetterSuffix).Result()
}

func encode(job *domain.RawJob) ([]byte, error) {
	data, err := json.Marshal(job)
	if err != nil {
		return nil, fmt.Errorf("marshal job %s:%s: %w", job.Source, job.ID, err)
	}
	return data, nil
}

func decode(payload string) (*domain.RawJob, error) {
	var job domain.RawJob
	if err := json.Unmarshal([]byte(payload), &job); err != nil {
		return nil, fmt.Errorf("unmarshal job: %w", err)
	}
	if job.Source == "" || job.ID == "" {
		return nil, fmt.Errorf("unmarshal job: missing source or id")
	}
	return &job, nil
}
