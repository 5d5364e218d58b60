package generator

import (
	"context"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/markdotcom5/markmvp5-sub000/pkg/metrics"
)

// Default OpenAI generator configuration.
const (
	defaultModel     = openai.GPT4oMini
	defaultMaxTokens = 200
)

const systemPrompt = "You are a concise training coach for a space-exploration " +
	"academy. Write two sentences of encouraging, specific coaching for the " +
	"cadet's next step. No markdown, no lists."

// OpenAIGenerator implements Generator using the OpenAI chat-completion API.
type OpenAIGenerator struct {
	client    *openai.Client
	model     string
	maxTokens int
}

// OpenAIOption applies a configuration option to the OpenAIGenerator.
type OpenAIOption func(*OpenAIGenerator)

// WithModel overrides the chat model.
func WithModel(model string) OpenAIOption {
	return func(g *OpenAIGenerator) {
		if model != "" {
			g.model = model
		}
	}
}

// WithMaxTokens caps completion length.
func WithMaxTokens(n int) OpenAIOption {
	return func(g *OpenAIGenerator) {
		if n > 0 {
			g.maxTokens = n
		}
	}
}

// NewOpenAIGenerator creates a generator against the OpenAI API.
func NewOpenAIGenerator(apiKey string, opts ...OpenAIOption) (*OpenAIGenerator, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai api key is required")
	}
	g := &OpenAIGenerator{
		client:    openai.NewClient(apiKey),
		model:     defaultModel,
		maxTokens: defaultMaxTokens,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// Generate calls the chat-completion API and returns the raw text.
func (g *OpenAIGenerator) Generate(ctx context.Context, pc PromptContext) (string, error) {
	start := time.Now()

	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     g.model,
		MaxTokens: g.maxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: buildUserPrompt(pc)},
		},
	})
	metrics.RecordGeneratorCall(time.Since(start))
	if err != nil {
		metrics.RecordGeneratorError()
		return "", fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}
	if len(resp.Choices) == 0 {
		metrics.RecordGeneratorError()
		return "", fmt.Errorf("%w: empty completion", ErrGenerationFailed)
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func buildUserPrompt(pc PromptContext) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Cadet just did: %s.\n", pc.Action)
	if pc.NextAction != "" {
		fmt.Fprintf(&b, "Recommended next step: %s (focus: %s).\n", pc.NextAction, pc.Focus)
	}
	if pc.RankLabel != "" {
		fmt.Fprintf(&b, "Current standing: %s, percentile %.1f.\n", pc.RankLabel, pc.Percentile)
	}
	fmt.Fprintf(&b, "Guidance confidence: %d/100.", pc.Confidence)
	return b.String()
}
