package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jobflow/go-jobflow/internal/domain"
	"github.com/jobflow/go-jobflow/internal/logger"
)

// Consumer pops scraped postings off a Redis list
type Consumer struct {
	client    redis.Cmdable
	queueName string
	timeout   time.Duration
	log       *logger.Logger
}

// NewConsumer creates a new queue consumer
func NewConsumer(client redis.Cmdable, queueName string, timeout time.Duration) *Consumer {
	if queueName == "" {
		queueName = DefaultQueue
	}
	if timeout == 0 {
		timeout = 5 * time.Second
	}
	return &Consumer{
		client:    client,
		queueName: queueName,
		timeout:   timeout,
		log:       logger.Named("queue"),
	}
}

// Consume blocks until a job arrives. It returns nil, nil on timeout.
func (c *Consumer) Consume(ctx context.Context) (*domain.RawJob, error) {
	result, err := c.client.BRPop(ctx, c.timeout, c.queueName).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("brpop: %w", err)
	}
	if len(result) < 2 {
		return nil, nil
	}

	job, err := decode(result[1])
	if err != nil {
		c.deadLetter(ctx, result[1], err)
		return nil, nil
	}
	return job, nil
}

// ConsumeBatch consumes up to maxBatch jobs from the queue.
// BRPOP waits for the first item, then RPOP drains the rest without blocking.
func (c *Consumer) ConsumeBatch(ctx context.Context, maxBatch int) ([]*domain.RawJob, error) {
	if maxBatch <= 0 {
		maxBatch = 1
	}
	jobs := make([]*domain.RawJob, 0, maxBatch)

	first, err := c.Consume(ctx)
	if err != nil {
		return nil, err
	}
	if first != nil {
		jobs = append(jobs, first)
	}

	for i := 1; i < maxBatch; i++ {
		payload, err := c.client.RPop(ctx, c.queueName).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				break
			}
			return jobs, fmt.Errorf("rpop: %w", err)
		}

		job, err := decode(payload)
		if err != nil {
			c.deadLetter(ctx, payload, err)
			continue
		}
		jobs = append(jobs, job)
	}

	return jobs, nil
}

// deadLetter parks a payload that cannot be decoded instead of dropping it
func (c *Consumer) deadLetter(ctx context.Context, payload string, cause error) {
	c.log.Warn().Err(cause).Int("bytes", len(payload)).Msg("moving malformed payload to dead letter list")
	if err := c.client.LPush(ctx, c.queueName+deadLetterSuffix, payload).Err(); err != nil {
		c.log.Error().Err(err).Msg("dead letter push failed")
	}
}
