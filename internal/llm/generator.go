package llm

import (
	"context"
	"errors"
	"math/rand/v2"
	"strings"

	"github.com/book-expert/logger"
	"github.com/dlops-io/mega-pipeline-aws/internal/config"
	"github.com/dlops-io/mega-pipeline-aws/internal/pipeline"
	openai "github.com/sashabaranov/go-openai"
)

// Static errors.
var (
	ErrNilClient       = errors.New("chat client cannot be nil")
	ErrNilLogger       = errors.New("logger cannot be nil")
	ErrNoTemperatures  = errors.New("at least one temperature is required")
	ErrEmptyPrompt     = errors.New("prompt is empty")
	ErrEmptyCompletion = errors.New("completion is empty")
)

// ChatClient is the part of the OpenAI client the generator uses.
type ChatClient interface {
	CreateChatCompletion(
		ctx context.Context,
		request openai.ChatCompletionRequest,
	) (openai.ChatCompletionResponse, error)
}

// TemperaturePicker returns one of the configured sampling temperatures.
type TemperaturePicker func(temperatures []float64) float64

// Option configures a Generator.
type Option func(*Generator)

// WithTemperaturePicker replaces the uniform random temperature choice.
func WithTemperaturePicker(picker TemperaturePicker) Option {
	return func(g *Generator) {
		if picker != nil {
			g.pickTemperature = picker
		}
	}
}

// Generator turns prompt text into a podcast script.
type Generator struct {
	client          ChatClient
	settings        config.LLMConfig
	pickTemperature TemperaturePicker
	logger          *logger.Logger
}

// NewGenerator creates a Generator over client with the given settings.
func NewGenerator(
	client ChatClient,
	settings config.LLMConfig,
	log *logger.Logger,
	opts ...Option,
) (*Generator, error) {
	if client == nil {
		return nil, ErrNilClient
	}

	if log == nil {
		return nil, ErrNilLogger
	}

	if len(settings.Temperatures) == 0 {
		return nil, ErrNoTemperatures
	}

	generator := &Generator{
		client:          client,
		settings:        settings,
		pickTemperature: randomTemperature,
		logger:          log,
	}

	for _, opt := range opts {
		opt(generator)
	}

	return generator, nil
}

// Generate produces the paragraph text for one prompt. It satisfies
// pipeline.TransformFunc.
func (g *Generator) Generate(ctx context.Context, id string, input []byte) ([]byte, error) {
	operation := "generate " + id

	prompt := strings.TrimSpace(string(input))
	if prompt == "" {
		return nil, pipeline.Wrap(pipeline.ErrPermanentItem, operation, ErrEmptyPrompt)
	}

	temperature := g.pickTemperature(g.settings.Temperatures)
	request := g.buildRequest(prompt, temperature)

	g.logger.Info("Generating paragraph for %s with %s at temperature %.2f", id, request.Model, temperature)

	response, err := g.client.CreateChatCompletion(ctx, request)
	if err != nil {
		return nil, ClassifyError(operation, err)
	}

	if len(response.Choices) == 0 {
		return nil, pipeline.Wrap(pipeline.ErrPermanentItem, operation, ErrEmptyCompletion)
	}

	content := strings.TrimSpace(response.Choices[0].Message.Content)
	if content == "" {
		return nil, pipeline.Wrap(pipeline.ErrPermanentItem, operation, ErrEmptyCompletion)
	}

	if response.Choices[0].FinishReason == openai.FinishReasonLength {
		g.logger.Warn("Paragraph for %s was cut at %d tokens", id, g.settings.MaxTokens)
	}

	return []byte(content), nil
}

func (g *Generator) buildRequest(prompt string, temperature float64) openai.ChatCompletionRequest {
	userMessage := strings.TrimSpace(
		strings.ReplaceAll(g.settings.PromptTemplate, config.PromptPlaceholder, prompt),
	)

	return openai.ChatCompletionRequest{
		Model: g.settings.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: g.settings.SystemMessage},
			{Role: openai.ChatMessageRoleUser, Content: userMessage},
		},
		MaxTokens:        g.settings.MaxTokens,
		Temperature:      float32(temperature),
		TopP:             float32(g.settings.TopP),
		N:                1,
		FrequencyPenalty: float32(g.settings.FrequencyPenalty),
		PresencePenalty:  float32(g.settings.PresencePenalty),
	}
}

func randomTemperature(temperatures []float64) float64 {
	return temperatures[rand.IntN(len(temperatures))]
}
