package openai

import (
	"context"
	"log/slog"
	"strings"

	"github.com/poiesic/lectern/ai"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"golang.org/x/time/rate"
)

// Generator implements ai.Generator using OpenAI-compatible chat APIs.
type Generator struct {
	client  llms.Model
	limiter *rate.Limiter
	logger  *slog.Logger
}

// newGenerator is an internal constructor that returns the concrete type.
func newGenerator(config *ai.Config) (*Generator, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	client, err := openai.New(
		openai.WithBaseURL(config.ChatHost),
		openai.WithToken(config.APIKey),
		openai.WithModel(config.ChatModel),
	)
	if err != nil {
		return nil, err
	}

	return &Generator{
		client:  client,
		limiter: newLimiter(config.RequestsPerSecond),
		logger:  slog.Default().With("component", "openai-generator"),
	}, nil
}

// NewGenerator creates a new generator using the provided configuration.
//
// Returns ai.Generator interface to enforce abstraction.
func NewGenerator(config *ai.Config) (ai.Generator, error) {
	return newGenerator(config)
}

// Complete returns the first choice of a non-streaming chat completion.
func (g *Generator) Complete(ctx context.Context, messages []ai.Message, opts ...ai.GenerateOption) (string, error) {
	if err := wait(ctx, g.limiter); err != nil {
		return "", err
	}

	response, err := g.client.GenerateContent(ctx, toContent(messages), callOptions(opts)...)
	if err != nil {
		g.logger.Error("failed to generate content", "err", err)
		return "", err
	}
	if len(response.Choices) < 1 {
		return "", ai.ErrEmptyResponse
	}
	return response.Choices[0].Content, nil
}

// Stream forwards each streamed chunk to onDelta as it arrives.
func (g *Generator) Stream(ctx context.Context, messages []ai.Message, onDelta ai.DeltaFunc, opts ...ai.GenerateOption) (string, error) {
	if err := wait(ctx, g.limiter); err != nil {
		return "", err
	}

	var text strings.Builder
	callOpts := append(callOptions(opts), llms.WithStreamingFunc(func(ctx context.Context, chunk []byte) error {
		if len(chunk) == 0 {
			return nil
		}
		text.Write(chunk)
		return onDelta(ctx, string(chunk))
	}))

	_, err := g.client.GenerateContent(ctx, toContent(messages), callOpts...)
	if err != nil {
		g.logger.Warn("stream ended with error", "delivered", text.Len(), "err", err)
		return text.String(), err
	}
	return text.String(), nil
}

func callOptions(opts []ai.GenerateOption) []llms.CallOption {
	o := ai.ApplyOptions(opts...)
	callOpts := []llms.CallOption{llms.WithTemperature(o.Temperature)}
	if o.MaxTokens > 0 {
		callOpts = append(callOpts, llms.WithMaxTokens(o.MaxTokens))
	}
	return callOpts
}

func toContent(messages []ai.Message) []llms.MessageContent {
	content := make([]llms.MessageContent, 0, len(messages))
	for _, m := range messages {
		content = append(content, llms.MessageContent{
			Role:  chatMessageType(m.Role),
			Parts: []llms.ContentPart{llms.TextPart(m.Content)},
		})
	}
	return content
}

func chatMessageType(role ai.MessageRole) llms.ChatMessageType {
	switch role {
	case ai.RoleSystem:
		return llms.ChatMessageTypeSystem
	case ai.RoleAssistant:
		return llms.ChatMessageTypeAI
	default:
		return llms.ChatMessageTypeHuman
	}
}
