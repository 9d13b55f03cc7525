// Package jobs contains the worker's scheduled jobs.
package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/internhub/internhub/internal/application/command"
	"github.com/internhub/internhub/internal/domain/account"
	"github.com/internhub/internhub/internal/domain/agreement"
)

// ══════════════════════════════════════════════════════════════════════════════
// RENDER PENDING DOCUMENTS JOB
// ══════════════════════════════════════════════════════════════════════════════

// AwaitingDocumentLister finds signed agreements without a document.
type AwaitingDocumentLister interface {
	ListAwaitingDocument(ctx context.Context, limit int) ([]*agreement.Agreement, error)
}

// DocumentGenerator renders one agreement's document.
type DocumentGenerator interface {
	Handle(ctx context.Context, cmd command.GenerateDocumentCommand) (*command.GenerateDocumentResult, error)
}

// RenderPendingDocumentsConfig tunes the sweep.
type RenderPendingDocumentsConfig struct {
	// BatchSize caps the agreements handled per run.
	BatchSize int

	// Timeout bounds one run.
	Timeout time.Duration
}

// DefaultRenderPendingDocumentsConfig returns sensible defaults.
func DefaultRenderPendingDocumentsConfig() RenderPendingDocumentsConfig {
	return RenderPendingDocumentsConfig{
		BatchSize: 50,
		Timeout:   5 * time.Minute,
	}
}

// RenderStats contains statistics from one sweep.
type RenderStats struct {
	StartedAt time.Time
	Duration  time.Duration
	Found     int
	Rendered  int
	Skipped   int
	Failed    int
}

// RenderPendingDocumentsJob picks up agreements whose post-signature render
// failed and every retry was exhausted.
type RenderPendingDocumentsJob struct {
	agreements AwaitingDocumentLister
	generator  DocumentGenerator
	config     RenderPendingDocumentsConfig
	logger     *slog.Logger

	lastStats atomic.Pointer[RenderStats]
}

// NewRenderPendingDocumentsJob creates the sweep job.
func NewRenderPendingDocumentsJob(
	agreements AwaitingDocumentLister,
	generator DocumentGenerator,
	config RenderPendingDocumentsConfig,
	logger *slog.Logger,
) *RenderPendingDocumentsJob {
	if logger == nil {
		logger = slog.Default()
	}
	defaults := DefaultRenderPendingDocumentsConfig()
	if config.BatchSize <= 0 {
		config.BatchSize = defaults.BatchSize
	}
	if config.Timeout <= 0 {
		config.Timeout = defaults.Timeout
	}
	return &RenderPendingDocumentsJob{
		agreements: agreements,
		generator:  generator,
		config:     config,
		logger:     logger.With("job", "render_pending_documents"),
	}
}

// Name returns the job name.
func (j *RenderPendingDocumentsJob) Name() string {
	return "render_pending_documents"
}

// Description returns a human-readable description.
func (j *RenderPendingDocumentsJob) Description() string {
	return "Renders documents of signed agreements that do not have one yet"
}

// Run executes the sweep. It fails when at least one render failed so the
// run shows up in job metrics; the remaining agreements are still tried.
func (j *RenderPendingDocumentsJob) Run(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, j.config.Timeout)
	defer cancel()

	stats := &RenderStats{StartedAt: time.Now()}
	defer func() {
		stats.Duration = time.Since(stats.StartedAt)
		j.lastStats.Store(stats)
	}()

	pending, err := j.agreements.ListAwaitingDocument(ctx, j.config.BatchSize)
	if err != nil {
		return fmt.Errorf("list agreements awaiting document: %w", err)
	}
	stats.Found = len(pending)
	if len(pending) == 0 {
		return nil
	}

	var firstErr error
	for _, a := range pending {
		if ctx.Err() != nil {
			break
		}

		res, err := j.generator.Handle(ctx, command.GenerateDocumentCommand{
			Caller:      account.SystemPrincipal,
			AgreementID: a.ID,
		})
		switch {
		case err != nil:
			stats.Failed++
			if firstErr == nil {
				firstErr = err
			}
			j.logger.Warn("document render failed", "agreement_id", a.ID, "error", err)
		case res.Rendered:
			stats.Rendered++
		default:
			stats.Skipped++
		}
	}

	j.logger.Info("sweep finished",
		"found", stats.Found,
		"rendered", stats.Rendered,
		"skipped", stats.Skipped,
		"failed", stats.Failed,
	)

	if firstErr != nil {
		return fmt.Errorf("%d of %d renders failed: %w", stats.Failed, stats.Found, firstErr)
	}
	return ctx.Err()
}

// LastStats returns statistics from the last run, or nil.
func (j *RenderPendingDocumentsJob) LastStats() *RenderStats {
	return j.lastStats.Load()
}
