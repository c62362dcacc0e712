package openai

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/sashabaranov/go-openai"

	domain "github.com/Zura03/occlusmart-backend/internal/domain/scans"
	"github.com/Zura03/occlusmart-backend/internal/infra/ai/prompt"
)

const maxTokens = 2048

// Source reads stored blobs back so they can be sent to the model.
type Source interface {
	Open(ctx context.Context, relPath string) (io.ReadCloser, error)
}

type Client struct {
	*openai.Client
	Model  string
	Source Source
}

var _ domain.Analyzer = (*Client)(nil)

func NewClient(apiKey, model string, src Source) *Client {
	return &Client{Client: openai.NewClient(apiKey), Model: model, Source: src}
}

// Analyze sends both stored images to the vision model and decodes its JSON
// answer. Anything unusable from the model side comes back as an analysis
// failure, never as a partial report.
func (c *Client) Analyze(ctx context.Context, preOpPath, duringOpPath string) (*domain.AnalysisReport, error) {
	preURL, err := c.dataURL(ctx, preOpPath)
	if err != nil {
		return nil, err
	}
	durURL, err := c.dataURL(ctx, duringOpPath)
	if err != nil {
		return nil, err
	}

	model := c.Model
	if model == "" {
		model = "gpt-4o"
	}
	req := openai.ChatCompletionRequest{
		Model: model,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: prompt.GetSystemPrompt()},
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{Type: openai.ChatMessagePartTypeText, Text: prompt.GetUserPrompt()},
					{Type: openai.ChatMessagePartTypeImageURL, ImageURL: &openai.ChatMessageImageURL{URL: preURL, Detail: openai.ImageURLDetailAuto}},
					{Type: openai.ChatMessagePartTypeImageURL, ImageURL: &openai.ChatMessageImageURL{URL: durURL, Detail: openai.ImageURLDetailAuto}},
				},
			},
		},
	}
	// For reasoning models (o1/o3/o4/gpt-5*) use MaxCompletionTokens instead of MaxTokens
	if strings.HasPrefix(model, "o1") || strings.HasPrefix(model, "o3") || strings.HasPrefix(model, "o4") || strings.HasPrefix(model, "gpt-5") {
		req.MaxCompletionTokens = maxTokens
	} else {
		req.MaxTokens = maxTokens
	}

	resp, err := c.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("%w: chat completion: %v", domain.ErrAnalysis, err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: empty completion", domain.ErrAnalysis)
	}

	var report domain.AnalysisReport
	if err := json.Unmarshal([]byte(resp.Choices[0].Message.Content), &report); err != nil {
		return nil, fmt.Errorf("%w: decode completion: %v", domain.ErrAnalysis, err)
	}
	if report.Status == "" {
		report.Status = domain.StatusSuccess
	}
	return &report, nil
}

// dataURL inlines a stored image as a base64 data URL.
func (c *Client) dataURL(ctx context.Context, relPath string) (string, error) {
	rc, err := c.Source.Open(ctx, relPath)
	if err != nil {
		return "", fmt.Errorf("%w: read %s: %v", domain.ErrAnalysis, relPath, err)
	}
	defer rc.Close()

	raw, err := io.ReadAll(rc)
	if err != nil {
		return "", fmt.Errorf("%w: read %s: %v", domain.ErrAnalysis, relPath, err)
	}
	mime := "image/jpeg"
	switch {
	case strings.HasSuffix(strings.ToLower(relPath), ".png"):
		mime = "image/png"
	case strings.HasSuffix(strings.ToLower(relPath), ".webp"):
		mime = "image/webp"
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(raw), nil
}
