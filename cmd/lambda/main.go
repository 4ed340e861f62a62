package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"

	"newsbias/handler"
	"newsbias/internal/bootstrap"
	"newsbias/internal/config"
)

func main() {
	ctx := context.Background()

	// ---- Configuration (read only here) ----
	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		slog.Error("failed to load configuration", "err", err)
		os.Exit(1)
	}
	slog.SetDefault(bootstrap.NewLogger(os.Stdout, cfg.Logging.Level, "json"))

	// ---- AWS SDK config ----
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		slog.Error("failed to load AWS config", "err", err)
		os.Exit(1)
	}

	// ---- Service ----
	svc, err := bootstrap.NewEvaluateService(ctx, cfg, bootstrap.NewClients(awsCfg))
	if err != nil {
		slog.Error("failed to create evaluate service", "err", err)
		os.Exit(1)
	}

	h, err := handler.NewHandler(svc)
	if err != nil {
		slog.Error("failed to create handler", "err", err)
		os.Exit(1)
	}

	lambda.Start(h.Handle)
}
