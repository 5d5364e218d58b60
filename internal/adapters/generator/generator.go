// Package generator abstracts the external content generator that produces
// coaching text. The engine treats it as a black box.
package generator

import "context"

// PromptContext carries the participant state the generator may use.
type PromptContext struct {
	ParticipantID string
	Action        string
	NextAction    string
	Focus         string
	RankLabel     string
	Percentile    float64
	Confidence    int
}

// Generator produces natural-language coaching text for a prompt context.
type Generator interface {
	// Generate returns coaching text, honoring ctx for cancellation and
	// timeout. Failures wrap ErrGenerationFailed.
	Generate(ctx context.Context, pc PromptContext) (string, error)
}
