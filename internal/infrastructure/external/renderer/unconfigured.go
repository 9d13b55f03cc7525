package renderer

import (
	"context"

	"github.com/internhub/internhub/internal/domain/agreement"
	"github.com/internhub/internhub/internal/domain/shared"
)

// Unconfigured stands in for the client when no renderer URL is set.
// Signatures still complete; documents stay pending until a renderer is
// configured and the sweep job picks them up.
type Unconfigured struct{}

var _ agreement.DocumentRenderer = Unconfigured{}

// Render always reports the renderer as unavailable.
func (Unconfigured) Render(_ context.Context, _ agreement.Snapshot) (string, error) {
	return "", shared.NewDomainError("renderer", "Render", shared.ErrServiceUnavailable, "document renderer is not configured")
}
