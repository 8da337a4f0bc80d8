package main

import (
	"context"
	"errors"
	"os"

	"github.com/desertthunder/mfx/internal/mlflow"
	"github.com/desertthunder/mfx/internal/shared"
	"github.com/urfave/cli/v3"
)

func main() {
	logger := shared.NewLogger(nil)

	config := shared.DefaultConfig()
	configPath := "config.toml"
	if _, err := os.Stat(configPath); err == nil {
		if loadedConfig, err := shared.LoadConfig(configPath); err == nil {
			config = loadedConfig
		}
	}

	client := mlflow.NewRESTClient(config.Tracking.URI)
	apiService := mlflow.NewAPIService(client.BaseURI(), config.Tracking.Token, nil)

	runner := NewRunner(RunnerOpts{
		Config:     config,
		ConfigPath: configPath,
		Client:     client,
		API:        apiService,
		Logger:     logger,
	})

	app := &cli.Command{
		Name:     "mfx",
		Usage:    "Mirror MLflow experiments & runs into dataset registries",
		Version:  "0.3.0",
		Commands: runner.register(),
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		err_ := errors.Unwrap(err)
		if errors.Is(err_, shared.ErrNotImplemented) {
			logger.Warn("not implemented")
			os.Exit(0)
		} else {
			logger.Fatalf("application error: %v", err)
		}
	}
}
