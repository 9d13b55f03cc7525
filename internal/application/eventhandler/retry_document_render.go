package eventhandler

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/internhub/internhub/internal/application/command"
	"github.com/internhub/internhub/internal/domain/account"
	"github.com/internhub/internhub/internal/domain/shared"
	"github.com/internhub/internhub/pkg/retry"
)

// DocumentGenerator is the command this handler drives.
type DocumentGenerator interface {
	Handle(ctx context.Context, cmd command.GenerateDocumentCommand) (*command.GenerateDocumentResult, error)
}

// ═══════════════════════════════════════════════════════════════════════════
// RETRY DOCUMENT RENDER HANDLER
// Re-runs GenerateDocument after a failed render, with exponential backoff.
// Agreements that still fail are picked up later by the sweep job.
// ═══════════════════════════════════════════════════════════════════════════

// RetryConfig tunes the retry loop.
type RetryConfig struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration

	// Timeout bounds the whole retry loop for one event.
	Timeout time.Duration
}

// DefaultRetryConfig returns the production defaults.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:  4,
		InitialDelay: 2 * time.Second,
		MaxDelay:     30 * time.Second,
		Timeout:      2 * time.Minute,
	}
}

// RetryDocumentRender consumes DocumentRenderFailed events. Retry loops run
// until Stop is called.
type RetryDocumentRender struct {
	generator DocumentGenerator
	config    RetryConfig
	logger    *slog.Logger

	ctx  context.Context
	stop context.CancelFunc
}

// NewRetryDocumentRender creates a new RetryDocumentRender handler.
func NewRetryDocumentRender(generator DocumentGenerator, config RetryConfig, logger *slog.Logger) *RetryDocumentRender {
	if logger == nil {
		logger = slog.Default()
	}
	if config.MaxAttempts <= 0 {
		config = DefaultRetryConfig()
	}
	ctx, stop := context.WithCancel(context.Background())
	return &RetryDocumentRender{
		generator: generator,
		config:    config,
		logger:    logger.With("handler", "retry_document_render"),
		ctx:       ctx,
		stop:      stop,
	}
}

// Stop abandons in-flight retry loops. Later events are ignored.
func (h *RetryDocumentRender) Stop() {
	h.stop()
}

// Handle implements shared.EventHandler.
func (h *RetryDocumentRender) Handle(event shared.Event) error {
	if event.EventType() != shared.EventDocumentRenderFailed {
		return nil
	}
	agreementID := event.AggregateID()
	if h.ctx.Err() != nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(h.ctx, h.config.Timeout)
	defer cancel()

	retrier := retry.New(
		retry.WithMaxAttempts(h.config.MaxAttempts),
		retry.WithInitialDelay(h.config.InitialDelay),
		retry.WithMaxDelay(h.config.MaxDelay),
		retry.WithRetryIf(shared.IsRetryable),
		retry.WithOnRetry(func(attempt int, err error, delay time.Duration) {
			h.logger.Warn("document render retry scheduled",
				"agreement_id", agreementID,
				"attempt", attempt,
				"delay", delay,
				"error", err,
			)
		}),
	)

	var ref string
	err := retrier.Do(ctx, func(ctx context.Context) error {
		res, err := h.generator.Handle(ctx, command.GenerateDocumentCommand{
			Caller:      account.SystemPrincipal,
			AgreementID: agreementID,
		})
		if err != nil {
			return err
		}
		ref = res.DocumentRef
		return nil
	})
	if err != nil && errors.Is(h.ctx.Err(), context.Canceled) {
		h.logger.Info("document render retry abandoned on shutdown", "agreement_id", agreementID)
		return nil
	}
	if err != nil {
		h.logger.Error("document render retries exhausted",
			"agreement_id", agreementID,
			"error", err,
		)
		return nil
	}

	h.logger.Info("document rendered on retry", "agreement_id", agreementID, "document_ref", ref)
	return nil
}
