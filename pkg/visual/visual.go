// Package visual exposes the instrumented encryption trace as a stateless
// request/response service for UI animation. It never touches the message
// store and never broadcasts; every call is independent.
package visual

import (
	"strings"

	"cipherrelay/pkg/models"
	"cipherrelay/pkg/relay"
	"cipherrelay/pkg/security"
)

// Service wraps the cipher engine's trace operation with input validation
// mirroring the relay's.
type Service struct {
	engine *security.Engine
}

// New returns a visualization service over the given engine.
func New(engine *security.Engine) *Service {
	return &Service{engine: engine}
}

// Visualize returns the ordered 3-step encryption trace for text, or
// relay.ErrEmptyMessage for empty/whitespace-only input.
func (s *Service) Visualize(text string) ([]models.TraceStep, error) {
	if strings.TrimSpace(text) == "" {
		return nil, relay.ErrEmptyMessage
	}
	return s.engine.Trace([]byte(text))
}
