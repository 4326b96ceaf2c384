package main

import (
	"context"
	_ "embed"
	"os"
	"os/signal"
	"syscall"

	"github.com/tigerroll/eventgen/internal/app"
	"github.com/tigerroll/eventgen/pkg/generator/support/util/logger"
)

// embeddedConfig is the default configuration. --config replaces it.
//
//go:embed resources/config.yaml
var embeddedConfig []byte

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	envFilePath := os.Getenv("ENV_FILE_PATH")
	if envFilePath == "" {
		envFilePath = ".env"
	}

	root := app.NewRootCommand(app.Options{EnvFilePath: envFilePath, EmbeddedConfig: embeddedConfig})
	if err := root.ExecuteContext(ctx); err != nil {
		logger.Errorf("%v", err)
		os.Exit(1)
	}
}
