// Package command contains write operations (CQRS - Commands).
//
// Every handler validates its command, runs preconditions and mutations in a
// single unit of work, and publishes the resulting events only after commit.
// Event delivery is best effort: a publish failure is logged and never turns a
// committed transition into an error.
package command

import (
	"context"
	"log/slog"
	"time"

	"github.com/internhub/internhub/internal/application/uow"
	"github.com/internhub/internhub/internal/domain/account"
	"github.com/internhub/internhub/internal/domain/shared"
)

// Clock returns the current time.
type Clock func() time.Time

// SystemClock is the default clock.
func SystemClock() time.Time {
	return time.Now().UTC()
}

// Metrics records workflow outcomes.
type Metrics interface {
	// Transition counts a committed state change, e.g. ("agreement", "signed").
	Transition(entity, transition string)

	// DocumentRender counts renderer outcomes: "success", "failure", "skipped".
	DocumentRender(outcome string)
}

type nopMetrics struct{}

func (nopMetrics) Transition(string, string) {}
func (nopMetrics) DocumentRender(string)     {}

// NopMetrics discards everything.
var NopMetrics Metrics = nopMetrics{}

// Deps bundles what every handler needs.
type Deps struct {
	UoW       uow.Runner
	Publisher shared.EventPublisher
	IDs       shared.IDGenerator
	Clock     Clock
	Metrics   Metrics
	Logger    *slog.Logger
}

func (d Deps) withDefaults() Deps {
	if d.Clock == nil {
		d.Clock = SystemClock
	}
	if d.Metrics == nil {
		d.Metrics = NopMetrics
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	return d
}

// publish delivers events after commit.
func (d Deps) publish(ctx context.Context, events []shared.Event) {
	if d.Publisher == nil || len(events) == 0 {
		return
	}
	if err := shared.PublishAll(d.Publisher, events); err != nil {
		d.Logger.WarnContext(ctx, "event publish failed", "error", err, "events", len(events))
	}
}

// requireRole fails with ErrForbidden unless the caller holds one of roles.
func requireRole(caller account.Principal, domain, op string, roles ...account.Role) error {
	for _, r := range roles {
		if caller.Is(r) {
			return nil
		}
	}
	return shared.Forbidden(domain, op, "role "+caller.Role.String()+" may not perform this action")
}

// requireID validates an identifier argument.
func requireID(domain, op, field, id string) error {
	if !shared.IsValidID(id) {
		return shared.InvalidInput(domain, op, field+" must be a UUID")
	}
	return nil
}
