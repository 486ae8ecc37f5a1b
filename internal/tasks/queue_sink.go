package tasks

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/hugh/go-accounts/internal/notify"
	"github.com/hugh/go-accounts/pkg/crypto"
)

// Enqueuer is satisfied by *asynq.Client.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// QueueSink hands codes to the worker instead of delivering them inline.
type QueueSink struct {
	client    Enqueuer
	encryptor *crypto.Encryptor
}

func NewQueueSink(client Enqueuer, encryptor *crypto.Encryptor) *QueueSink {
	return &QueueSink{client: client, encryptor: encryptor}
}

var _ notify.Sink = (*QueueSink)(nil)

func (s *QueueSink) Send(ctx context.Context, destination, code string) error {
	sealed, err := s.encryptor.Seal(code)
	if err != nil {
		return fmt.Errorf("sealing code: %w", err)
	}

	task, err := NewSendVerificationCodeTask(SendVerificationCodePayload{
		Destination: destination,
		SealedCode:  sealed,
	})
	if err != nil {
		return fmt.Errorf("building task: %w", err)
	}

	if _, err := s.client.EnqueueContext(ctx, task); err != nil {
		return fmt.Errorf("enqueueing verification code: %w", err)
	}
	return nil
}
