// Package advisors provides the generation-service adapters that talk to the
// external text-generation collaborator. Adapters validate response shape and
// upgrade violations into generation failures rather than propagating
// malformed data upward.
package advisors

import (
	"context"

	"github.com/boardview-ai/boardview/internal/domain"
)

// Generator is the boundary to the generation collaborator.
type Generator interface {
	// SelectAdvisors generates exactly domain.CandidateCount advisor profiles
	// for the situation. Fewer, duplicated ids, or malformed output fail with
	// a domain.GenerationError.
	SelectAdvisors(ctx context.Context, situation string) ([]domain.Advisor, error)

	// GenerateAdvicePanel produces per-advisor advice plus a synthesis for the
	// selected trio. Every requested advisor must be covered exactly once and
	// every returned id must belong to the request, else the call fails with a
	// domain.GenerationError.
	GenerateAdvicePanel(ctx context.Context, situation string, selected []domain.Advisor) (*domain.AdvicePanel, error)

	// ContinueDialogue answers a follow-up question against the running
	// conversation history.
	ContinueDialogue(ctx context.Context, history []domain.Turn, question string) (string, error)

	// AnalyzeSituation summarizes the key aspects of a situation. Used by the
	// web surface.
	AnalyzeSituation(ctx context.Context, situation string) (string, error)
}
