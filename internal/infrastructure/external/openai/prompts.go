package openai

import (
	"bytes"
	"fmt"
	"os"
	"text/template"

	"gopkg.in/yaml.v3"
)

// PromptConfig holds the receipt reading prompt and model parameters
type PromptConfig struct {
	ReceiptReading struct {
		Temperature  float32 `yaml:"temperature"`
		MaxTokens    int     `yaml:"max_tokens"`
		System       string  `yaml:"system"`
		UserTemplate string  `yaml:"user_template"`
	} `yaml:"receipt_reading"`
}

// promptData is what UserTemplate is rendered with
type promptData struct {
	Currency string
}

const defaultSystemPrompt = "You read payment receipts, bank transfer slips and wallet screenshots. Always respond with valid JSON."

const defaultUserTemplate = `This image is proof of a rent or utility payment{{if .Currency}} in {{.Currency}}{{end}}.
Find the amount that was actually paid.

Respond with ONLY a JSON object of this exact structure:
{
  "amount": number or null,
  "confidence": number between 0.0 and 1.0,
  "notes": string
}

Use null for amount when no paid amount is legible. Do not guess.
Put the payer, payee, date or reference number in notes when visible.`

// DefaultPrompts returns the built-in prompts
func DefaultPrompts() *PromptConfig {
	var p PromptConfig
	p.ReceiptReading.Temperature = 0.1
	p.ReceiptReading.MaxTokens = 512
	p.ReceiptReading.System = defaultSystemPrompt
	p.ReceiptReading.UserTemplate = defaultUserTemplate
	return &p
}

// LoadPrompts loads prompt configuration from a YAML file.
// Fields the file leaves empty keep their defaults.
func LoadPrompts(promptsPath string) (*PromptConfig, error) {
	data, err := os.ReadFile(promptsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read prompts file: %w", err)
	}

	prompts := DefaultPrompts()
	if err := yaml.Unmarshal(data, prompts); err != nil {
		return nil, fmt.Errorf("failed to unmarshal prompts: %w", err)
	}

	if _, err := template.New("prompt").Parse(prompts.ReceiptReading.UserTemplate); err != nil {
		return nil, fmt.Errorf("invalid receipt_reading.user_template: %w", err)
	}

	return prompts, nil
}

// renderTemplate renders a template with provided data
func renderTemplate(templateStr string, data interface{}) (string, error) {
	tmpl, err := template.New("prompt").Parse(templateStr)
	if err != nil {
		return "", fmt.Errorf("failed to parse template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute template: %w", err)
	}

	return buf.String(), nil
}
