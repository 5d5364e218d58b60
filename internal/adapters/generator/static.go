package generator

import (
	"context"
	"fmt"
)

// StaticGenerator returns deterministic canned coaching text. It is the
// default when no API key is configured and the fallback when the real
// generator fails.
type StaticGenerator struct{}

// NewStaticGenerator creates the canned-text generator.
func NewStaticGenerator() *StaticGenerator {
	return &StaticGenerator{}
}

// Generate returns a canned line assembled from the prompt context. It
// never fails.
func (g *StaticGenerator) Generate(_ context.Context, pc PromptContext) (string, error) {
	if pc.NextAction == "" {
		return "Keep up the momentum. Your next mission briefing is on its way.", nil
	}
	if pc.RankLabel != "" {
		return fmt.Sprintf("Solid work as a %s. Next up: %s to keep climbing.",
			pc.RankLabel, pc.NextAction), nil
	}
	return fmt.Sprintf("Good progress. Next up: %s.", pc.NextAction), nil
}
