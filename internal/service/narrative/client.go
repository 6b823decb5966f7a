package narrative

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"CandleCast/internal/domain/models"
	"CandleCast/internal/domain/service"
	xhttp "CandleCast/pkg/http"
	"CandleCast/pkg/logger"
)

const (
	DefaultURL   = "https://api.asi1.ai/v1/chat/completions"
	DefaultModel = "asi1-mini"
)

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Client calls an OpenAI compatible chat completions endpoint.
type Client struct {
	url    string
	apiKey string
	model  string
	client *xhttp.Client
	log    *logger.Logger
}

var _ service.NarrativeService = (*Client)(nil)

func New(url, apiKey, model string, timeout time.Duration, log *logger.Logger) *Client {
	if url == "" {
		url = DefaultURL
	}
	if model == "" {
		model = DefaultModel
	}
	return &Client{
		url:    url,
		apiKey: apiKey,
		model:  model,
		client: xhttp.NewClient(xhttp.WithTimeout(timeout)),
		log:    log,
	}
}

// Complete returns the text of the first choice.
func (c *Client) Complete(ctx context.Context, system, prompt string) (string, error) {
	start := time.Now()

	var resp chatResponse
	err := c.client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodPost,
		URL:    c.url,
		Headers: map[string]string{
			"Authorization": "Bearer " + c.apiKey,
			"Content-Type":  "application/json",
		},
		Body: chatRequest{
			Model: c.model,
			Messages: []chatMessage{
				{Role: "system", Content: system},
				{Role: "user", Content: prompt},
			},
		},
	}, &resp)
	if err != nil {
		if errors.Is(err, xhttp.ErrTimeout) {
			return "", fmt.Errorf("narrative request: %w: %w", models.ErrUpstreamTimeout, err)
		}
		return "", fmt.Errorf("narrative request: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", models.ErrEmptyNarrative
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", models.ErrEmptyNarrative
	}

	c.log.Debug("narrative received",
		logger.String("model", c.model),
		logger.Int("chars", len(text)),
		logger.Duration("duration_ms", time.Since(start)),
	)
	return text, nil
}
