package openai

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/garyjia/rental-billing/internal/application/port"
)

// Config configures the receipt reader
type Config struct {
	APIKey   string
	BaseURL  string
	Model    string
	Currency string
	Prompts  *PromptConfig
	// Timeout bounds each API call; zero leaves the client default
	Timeout time.Duration
}

// ReceiptReader implements port.ReceiptReader using a vision chat model
type ReceiptReader struct {
	client   *openai.Client
	model    string
	currency string
	prompts  *PromptConfig
	logger   *zap.Logger
}

// NewReceiptReader creates a new OpenAI receipt reader
func NewReceiptReader(cfg Config, logger *zap.Logger) *ReceiptReader {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	if cfg.Timeout > 0 {
		clientCfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}

	prompts := cfg.Prompts
	if prompts == nil {
		prompts = DefaultPrompts()
	}

	return &ReceiptReader{
		client:   openai.NewClientWithConfig(clientCfg),
		model:    cfg.Model,
		currency: cfg.Currency,
		prompts:  prompts,
		logger:   logger,
	}
}

// receiptResult is the JSON shape the model is asked to return
type receiptResult struct {
	Amount     decimal.NullDecimal `json:"amount"`
	Confidence float64             `json:"confidence"`
	Notes      string              `json:"notes"`
}

// ReadReceipt asks the model for the paid amount shown on image
func (r *ReceiptReader) ReadReceipt(ctx context.Context, image []byte, mimeType string) (*port.ReceiptReading, error) {
	if len(image) == 0 {
		return nil, fmt.Errorf("empty receipt image")
	}
	if !strings.HasPrefix(mimeType, "image/") {
		return nil, fmt.Errorf("unsupported receipt type: %s", mimeType)
	}

	cfg := r.prompts.ReceiptReading
	prompt, err := renderTemplate(cfg.UserTemplate, promptData{Currency: r.currency})
	if err != nil {
		return nil, err
	}

	r.logger.Info("Reading receipt with Vision API",
		zap.String("mime_type", mimeType),
		zap.Int("size_bytes", len(image)))

	resp, err := r.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       r.model,
		MaxTokens:   cfg.MaxTokens,
		Temperature: cfg.Temperature,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: cfg.System,
			},
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{
						Type: openai.ChatMessagePartTypeText,
						Text: prompt,
					},
					{
						Type: openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{
							URL:    fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(image)),
							Detail: openai.ImageURLDetailHigh,
						},
					},
				},
			},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		r.logger.Error("Vision API call failed", zap.Error(err))
		return nil, fmt.Errorf("Vision API call failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no response from Vision API")
	}

	content := resp.Choices[0].Message.Content

	result, err := parseReceiptResult(content)
	if err != nil {
		r.logger.Error("Failed to parse Vision API response",
			zap.Error(err),
			zap.String("content", content))
		return nil, err
	}

	model := resp.Model
	if model == "" {
		model = r.model
	}

	r.logger.Info("Receipt read",
		zap.Bool("amount_found", result.Amount.Valid),
		zap.Float64("confidence", result.Confidence))

	return &port.ReceiptReading{
		Amount:     result.Amount,
		Confidence: clamp01(result.Confidence),
		Notes:      strings.TrimSpace(result.Notes),
		Model:      model,
	}, nil
}

// parseReceiptResult accepts bare JSON or JSON wrapped in prose or a code fence
func parseReceiptResult(content string) (*receiptResult, error) {
	var result receiptResult
	err := json.Unmarshal([]byte(content), &result)
	if err == nil {
		return &result, nil
	}

	if jsonStr := extractJSON(content); jsonStr != "" {
		if err := json.Unmarshal([]byte(jsonStr), &result); err == nil {
			return &result, nil
		}
	}

	return nil, fmt.Errorf("failed to parse response: %w", err)
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}

// extractJSON returns the first balanced {...} object in content
func extractJSON(content string) string {
	start := strings.IndexByte(content, '{')
	if start < 0 {
		return ""
	}

	depth := 0
	inString := false
	escapeNext := false

	for i := start; i < len(content); i++ {
		c := content[i]

		if escapeNext {
			escapeNext = false
			continue
		}
		if c == '\\' {
			escapeNext = true
			continue
		}
		if c == '"' {
			inString = !inString
			continue
		}
		if inString {
			continue
		}

		switch c {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return content[start : i+1]
			}
		}
	}

	return ""
}

// Verify interface compliance
var _ port.ReceiptReader = (*ReceiptReader)(nil)
