package capability

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"
)

// OpenAIOptions configures the OpenAI-backed capabilities.
type OpenAIOptions struct {
	// EmbeddingModel is the embedding model identifier.
	EmbeddingModel openai.EmbeddingModel

	// ChatModel is the generation model identifier.
	ChatModel string

	// Temperature for generation.
	Temperature float32

	// MaxTokens bounds generated answers.
	MaxTokens int

	// RequestTimeout is the per-call deadline. Exceeding it surfaces as
	// ErrUnavailable so the retry policy treats it as a failure, not a hang.
	RequestTimeout time.Duration

	// RequestsPerSecond throttles outbound calls client-side.
	// 0 disables throttling.
	RequestsPerSecond float64
}

// DefaultOpenAIOptions mirrors the models the service was tuned on.
var DefaultOpenAIOptions = OpenAIOptions{
	EmbeddingModel:    openai.AdaEmbeddingV2,
	ChatModel:         openai.GPT3Dot5Turbo,
	Temperature:       0.7,
	MaxTokens:         500,
	RequestTimeout:    30 * time.Second,
	RequestsPerSecond: 5,
}

// OpenAI implements Embedder and Generator against the OpenAI API.
type OpenAI struct {
	client  *openai.Client
	opts    OpenAIOptions
	limiter *rate.Limiter
}

var (
	_ Embedder  = (*OpenAI)(nil)
	_ Generator = (*OpenAI)(nil)
)

// NewOpenAI creates the OpenAI capability client.
func NewOpenAI(apiKey string, optFns ...func(*OpenAIOptions)) *OpenAI {
	opts := DefaultOpenAIOptions
	for _, fn := range optFns {
		fn(&opts)
	}

	var limiter *rate.Limiter
	if opts.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1)
	}

	return &OpenAI{
		client:  openai.NewClient(apiKey),
		opts:    opts,
		limiter: limiter,
	}
}

// NewOpenAIWithClient creates the capability around a preconfigured client
// (custom base URL, Azure, proxies).
func NewOpenAIWithClient(client *openai.Client, optFns ...func(*OpenAIOptions)) *OpenAI {
	o := NewOpenAI("unused", optFns...)
	o.client = client
	return o
}

// Embed converts text into a dense vector.
func (o *OpenAI) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := o.wait(ctx); err != nil {
		return nil, err
	}
	ctx, cancel := o.withTimeout(ctx)
	defer cancel()

	resp, err := o.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: o.opts.EmbeddingModel,
	})
	if err != nil {
		return nil, translateError(err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("%w: empty embedding response", ErrUnavailable)
	}
	return resp.Data[0].Embedding, nil
}

// Generate produces text from a prompt, instructing the model to answer
// only from the supplied context.
func (o *OpenAI) Generate(ctx context.Context, prompt string) (string, error) {
	if err := o.wait(ctx); err != nil {
		return "", err
	}
	ctx, cancel := o.withTimeout(ctx)
	defer cancel()

	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.opts.ChatModel,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: "You are a helpful assistant that answers questions about startups using only the provided startup information. Be concise and accurate. Never invent startups that are not listed.",
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
		Temperature: o.opts.Temperature,
		MaxTokens:   o.opts.MaxTokens,
	})
	if err != nil {
		return "", translateError(err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: empty completion response", ErrUnavailable)
	}
	return resp.Choices[0].Message.Content, nil
}

func (o *OpenAI) wait(ctx context.Context) error {
	if o.limiter == nil {
		return nil
	}
	return o.limiter.Wait(ctx)
}

func (o *OpenAI) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if o.opts.RequestTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, o.opts.RequestTimeout)
}

// translateError maps provider errors onto the capability taxonomy.
func translateError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.HTTPStatusCode == http.StatusTooManyRequests:
			return fmt.Errorf("%w: %v", ErrRateLimited, err)
		case apiErr.HTTPStatusCode >= 500:
			return fmt.Errorf("%w: %v", ErrUnavailable, err)
		case apiErr.HTTPStatusCode == http.StatusBadRequest:
			return fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		return err
	}

	// Connection-level failures (DNS, refused, reset) are transient.
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}
