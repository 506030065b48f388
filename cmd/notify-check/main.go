package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/garyjia/rental-billing/internal/application/port"
	"github.com/garyjia/rental-billing/internal/config"
	"github.com/garyjia/rental-billing/internal/container"
	"github.com/garyjia/rental-billing/internal/domain/entity"
)

// notify-check sends one test message through the configured notifier so
// Lark credentials and receiver open ids can be checked without the server.
func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to the YAML config file")
	envPath := flag.String("env", ".env", "path to an optional .env file")
	party := flag.String("party", "tenant", "receiving side: tenant or owner")
	userID := flag.String("user", "", "user id to resolve instead of the party default")
	text := flag.String("text", "Test notification from rental billing", "message text")
	flag.Parse()

	if err := config.LoadDotEnv(*envPath); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load environment: %v\n", err)
		os.Exit(1)
	}
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := zap.NewDevelopment()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	p := entity.Party(*party)
	if !p.IsValid() {
		fmt.Fprintf(os.Stderr, "ERROR: party must be tenant or owner, got %q\n", *party)
		os.Exit(1)
	}

	containerCfg := cfg.ToContainerConfig()
	if !containerCfg.Lark.Enabled {
		fmt.Println("Lark is disabled (lark.enabled=false); the message will only be logged")
	}

	notifier, err := container.ProvideNotifier(&containerCfg.Lark, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := notifier.Notify(ctx, port.Notification{
		Party:  p,
		UserID: *userID,
		BillID: "notify-check",
		Text:   *text,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: notification failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Notification sent")
}
