// Package worker drains the sync-job topic and runs one sync per message.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"log"

	"github.com/segmentio/kafka-go"

	"example.com/trackersync/internal/domain"
	"example.com/trackersync/internal/events"
)

// Reader exposes the minimal kafka.Reader interface needed by the processor.
type Reader interface {
	FetchMessage(context.Context) (kafka.Message, error)
	CommitMessages(context.Context, ...kafka.Message) error
	Close() error
}

// SyncRunner executes a sync run for one user.
type SyncRunner interface {
	RunSync(ctx context.Context, userID string) (domain.SyncResult, error)
}

// Option configures optional behaviour for the Processor.
type Option func(*Processor)

// WithLogger overrides the logger used to report errors.
func WithLogger(logger *log.Logger) Option {
	return func(p *Processor) {
		p.logger = logger
	}
}

// Processor pulls sync jobs from Kafka and dispatches them to the engine.
// Jobs are keyed by user id, so one partition never carries two interleaved
// runs for the same user.
type Processor struct {
	reader Reader
	runner SyncRunner
	logger *log.Logger
}

// NewProcessor constructs a Processor.
func NewProcessor(reader Reader, runner SyncRunner, opts ...Option) *Processor {
	p := &Processor{
		reader: reader,
		runner: runner,
		logger: log.New(log.Writer(), "[worker] ", log.LstdFlags|log.Lshortfile),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run starts a blocking loop that processes sync jobs until the context is cancelled.
func (p *Processor) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		msg, err := p.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return err
			}
			p.logger.Printf("fetch error: %v", err)
			continue
		}

		job, decodeErr := decodeJob(msg)
		if decodeErr != nil {
			p.logger.Printf("decode error (topic=%s, partition=%d, offset=%d): %v", msg.Topic, msg.Partition, msg.Offset, decodeErr)
			recordDecodeError(msg.Topic)
			// Commit malformed messages to avoid poison-pill loops.
			if commitErr := p.reader.CommitMessages(ctx, msg); commitErr != nil {
				p.logger.Printf("commit error after decode failure: %v", commitErr)
			}
			continue
		}

		result, runErr := p.runner.RunSync(ctx, job.UserID)
		if runErr != nil {
			if errors.Is(runErr, context.Canceled) {
				return runErr
			}
			p.logger.Printf("sync failed (user=%s): %v", job.UserID, runErr)
			recordRunError(msg.Topic, runErr)
			if terminalAuthFailure(runErr) {
				// Retrying cannot help until the user re-authorizes; drop the job.
				if commitErr := p.reader.CommitMessages(ctx, msg); commitErr != nil {
					p.logger.Printf("commit error after terminal failure: %v", commitErr)
				}
			}
			continue
		}

		if commitErr := p.reader.CommitMessages(ctx, msg); commitErr != nil {
			p.logger.Printf("commit error: %v", commitErr)
		} else {
			recordProcessed(msg.Topic)
			p.logger.Printf("sync complete (user=%s): %d entities", job.UserID, result.Total())
		}
	}
}

func decodeJob(msg kafka.Message) (events.SyncJob, error) {
	var job events.SyncJob
	if err := json.Unmarshal(msg.Value, &job); err != nil {
		return events.SyncJob{}, err
	}
	if job.UserID == "" {
		return events.SyncJob{}, errors.New("job missing user_id")
	}
	return job, nil
}

// terminalAuthFailure reports whether the run failed in a way a retry cannot fix.
func terminalAuthFailure(err error) bool {
	kind, ok := domain.KindOf(err)
	if !ok {
		return false
	}
	switch kind {
	case domain.KindAuthInvalid, domain.KindAuthRevoked, domain.KindValidation:
		return true
	}
	return false
}
