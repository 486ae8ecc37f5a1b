package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"
	"github.com/hugh/go-accounts/internal/cleanup"
	"github.com/hugh/go-accounts/internal/notify"
	"github.com/hugh/go-accounts/pkg/crypto"
)

// Cleaner runs one cleanup pass.
type Cleaner interface {
	Run(ctx context.Context) (*cleanup.Result, error)
}

type Handler struct {
	cleaner   Cleaner
	sink      notify.Sink
	encryptor *crypto.Encryptor
	logger    *slog.Logger
}

func NewHandler(cleaner Cleaner, sink notify.Sink, encryptor *crypto.Encryptor, logger *slog.Logger) *Handler {
	return &Handler{
		cleaner:   cleaner,
		sink:      sink,
		encryptor: encryptor,
		logger:    logger,
	}
}

func (h *Handler) RegisterHandlers(mux *asynq.ServeMux) {
	mux.HandleFunc(TypeCleanupUnverified, h.HandleCleanupUnverified)
	mux.HandleFunc(TypeSendVerificationCode, h.HandleSendVerificationCode)
}

func (h *Handler) HandleCleanupUnverified(ctx context.Context, t *asynq.Task) error {
	h.logger.Info("starting unverified user cleanup")

	result, err := h.cleaner.Run(ctx)
	if err != nil {
		h.logger.Error("cleanup failed", "error", err)
		return fmt.Errorf("cleanup unverified users: %w", err)
	}

	h.logger.Info("completed unverified user cleanup", "deleted", result.Deleted)
	return nil
}

func (h *Handler) HandleSendVerificationCode(ctx context.Context, t *asynq.Task) error {
	var payload SendVerificationCodePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %v: %w", err, asynq.SkipRetry)
	}

	code, err := h.encryptor.Open(payload.SealedCode)
	if err != nil {
		return fmt.Errorf("open sealed code: %v: %w", err, asynq.SkipRetry)
	}

	if err := h.sink.Send(ctx, payload.Destination, code); err != nil {
		h.logger.Warn("verification code delivery failed",
			"destination", payload.Destination,
			"error", err,
		)
		return err
	}

	h.logger.Debug("delivered verification code", "destination", payload.Destination)
	return nil
}
