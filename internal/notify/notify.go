// Package notify delivers verification codes to users. Delivery is
// best-effort: callers log Send failures and carry on.
package notify

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hugh/go-accounts/pkg/config"
)

// Sink dispatches a verification code to a destination address.
type Sink interface {
	Send(ctx context.Context, destination, code string) error
}

// LogSink writes codes to the log. Intended for local development only.
type LogSink struct {
	logger *slog.Logger
}

func NewLogSink(logger *slog.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Send(ctx context.Context, destination, code string) error {
	s.logger.InfoContext(ctx, "verification code issued",
		"destination", destination,
		"code", code,
	)
	return nil
}

var (
	_ Sink = (*LogSink)(nil)
	_ Sink = (*SESSink)(nil)
)

// New builds the inline sink named by kind. The queue sink lives with the
// task definitions and is built by the caller.
func New(ctx context.Context, kind string, cfg *config.NotifyConfig, logger *slog.Logger) (Sink, error) {
	switch kind {
	case config.SinkLog:
		return NewLogSink(logger), nil
	case config.SinkSES:
		return NewSESSink(ctx, SESConfig{
			Region:          cfg.AWSRegion,
			From:            cfg.From,
			AccessKeyID:     cfg.AWSAccessKeyID,
			SecretAccessKey: cfg.AWSSecretAccessKey,
		})
	default:
		return nil, fmt.Errorf("unsupported sink %q", kind)
	}
}
