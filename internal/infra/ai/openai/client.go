package openai

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	domai "github.com/bryanwahyu/radiology-analyzer/internal/domain/ai"
	"github.com/bryanwahyu/radiology-analyzer/internal/domain/imaging"
	"github.com/bryanwahyu/radiology-analyzer/internal/infra/ai/prompt"
)

const (
	defaultModel     = "llama-3.2-11b-vision-preview"
	defaultMaxTokens = 400
)

// Options configures the OpenAI compatible endpoint (Groq by default).
type Options struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float32
	TopP        float32
	MaxTokens   int
	Timeout     time.Duration
	HTTPClient  *http.Client
}

type Client struct {
	*openai.Client
	opts Options
}

func NewClient(opts Options) *Client {
	if opts.Model == "" {
		opts.Model = defaultModel
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = defaultMaxTokens
	}

	cfg := openai.DefaultConfig(opts.APIKey)
	if opts.BaseURL != "" {
		cfg.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: opts.Timeout}
	}
	cfg.HTTPClient = hc

	return &Client{Client: openai.NewClientWithConfig(cfg), opts: opts}
}

func (c *Client) Model() string { return c.opts.Model }

// Analyze sends the fixed radiology prompt and the image as a data URL in a
// single user message. The reply text is returned as is.
func (c *Client) Analyze(ctx context.Context, img *imaging.UploadedImage) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: c.opts.Model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{Type: openai.ChatMessagePartTypeText, Text: prompt.GetUserPrompt()},
					{
						Type: openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{
							URL:    img.DataURL(),
							Detail: openai.ImageURLDetailAuto,
						},
					},
				},
			},
		},
		Temperature: c.opts.Temperature,
		TopP:        c.opts.TopP,
		MaxTokens:   c.opts.MaxTokens,
	}

	resp, err := c.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", classify(err)
	}

	if len(resp.Choices) == 0 {
		return "", &domai.ExternalServiceError{Kind: domai.KindBadResponse, Err: errors.New("no choices in completion")}
	}
	content := resp.Choices[0].Message.Content
	if strings.TrimSpace(content) == "" {
		return "", &domai.ExternalServiceError{Kind: domai.KindBadResponse, Err: errors.New("empty completion content")}
	}
	return content, nil
}

func classify(err error) error {
	status := 0
	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
	}

	var urlErr *url.Error
	var netErr net.Error
	kind := domai.KindUpstream
	switch {
	case status == 0 && (errors.As(err, &urlErr) || errors.As(err, &netErr) ||
		errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)):
		kind = domai.KindNetwork
	case status == 0:
		kind = domai.KindBadResponse
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		kind = domai.KindAuth
	case status == http.StatusTooManyRequests:
		kind = domai.KindRateLimit
	}
	return &domai.ExternalServiceError{
		Kind:       kind,
		StatusCode: status,
		Err:        fmt.Errorf("failed to create chat completion: %w", err),
	}
}
