package tasks

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

// Task type names
const (
	TypeCleanupUnverified    = "cleanup:unverified_users"
	TypeSendVerificationCode = "notify:verification_code"
)

const (
	QueueCritical = "critical"
	QueueDefault  = "default"
	QueueLow      = "low"
)

// SendVerificationCodePayload carries a code sealed with the shared age
// identity. The plaintext code never reaches Redis.
type SendVerificationCodePayload struct {
	Destination string `json:"destination"`
	SealedCode  string `json:"sealed_code"`
}

func NewSendVerificationCodeTask(payload SendVerificationCodePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeSendVerificationCode, data,
		asynq.Queue(QueueCritical),
		asynq.MaxRetry(5),
		asynq.Timeout(30*time.Second),
	), nil
}

// NewCleanupUnverifiedTask builds the payload-less cleanup job. Retention is
// taken from the worker's configuration.
func NewCleanupUnverifiedTask() *asynq.Task {
	return asynq.NewTask(TypeCleanupUnverified, nil,
		asynq.Queue(QueueLow),
		asynq.MaxRetry(3),
		asynq.Timeout(10*time.Minute),
	)
}
