package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"go.uber.org/zap"

	"github.com/garyjia/rental-billing/internal/infrastructure/document"
	"github.com/garyjia/rental-billing/internal/infrastructure/external/openai"
)

// read-receipt runs the advisory receipt reader against one local file,
// the same way the service does for uploaded evidence.
func main() {
	apiKey := flag.String("key", "", "OpenAI API key (or set OPENAI_API_KEY env var)")
	model := flag.String("model", "gpt-4o", "vision model")
	baseURL := flag.String("base-url", "", "OpenAI compatible endpoint")
	currency := flag.String("currency", "", "currency label passed to the prompt")
	promptsPath := flag.String("prompts", "", "optional prompts YAML")
	timeout := flag.Duration("timeout", 60*time.Second, "API call timeout")
	verbose := flag.Bool("verbose", false, "Verbose output")
	flag.Parse()

	var logger *zap.Logger
	var err error
	if *verbose {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if *apiKey == "" {
		*apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if *apiKey == "" || flag.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "Usage: read-receipt [--key sk-...] [--model gpt-4o] <receipt.pdf|image>\n")
		os.Exit(1)
	}

	content, err := os.ReadFile(flag.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		os.Exit(1)
	}

	prompts := openai.DefaultPrompts()
	if *promptsPath != "" {
		prompts, err = openai.LoadPrompts(*promptsPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "ERROR: Failed to load prompts: %v\n", err)
			os.Exit(1)
		}
	}

	detected := mimetype.Detect(content)
	mimeType, image := detected.String(), content
	if detected.Is("application/pdf") {
		inspector := document.NewPDFInspector(85, logger)
		pages, err := inspector.PageCount(content)
		if err != nil {
			fmt.Fprintf(os.Stderr, "ERROR: PDF could not be read: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("PDF with %d page(s), reading the first\n", pages)
		image, err = inspector.RenderFirstPage(content)
		if err != nil {
			fmt.Fprintf(os.Stderr, "ERROR: render failed: %v\n", err)
			os.Exit(1)
		}
		mimeType = "image/jpeg"
	}

	reader := openai.NewReceiptReader(openai.Config{
		APIKey:   *apiKey,
		BaseURL:  *baseURL,
		Model:    *model,
		Currency: *currency,
		Prompts:  prompts,
		Timeout:  *timeout,
	}, logger)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	start := time.Now()
	reading, err := reader.ReadReceipt(ctx, image, mimeType)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: receipt reading failed after %v: %v\n", time.Since(start), err)
		os.Exit(1)
	}

	out, _ := json.MarshalIndent(reading, "", "  ")
	fmt.Println(string(out))
}
