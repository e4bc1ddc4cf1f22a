// Command lambda serves the API as a function behind an API Gateway style
// proxy event.
package main

import (
	"context"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/okian/locapi/internal/adapters/gateway"
	"github.com/okian/locapi/internal/bootstrap"
	"github.com/okian/locapi/internal/config"
	"github.com/okian/locapi/pkg/logger"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}
	// Function logs go to a collector; default to JSON unless set explicitly.
	format := cfg.LogFormat
	if os.Getenv("LOCAPI_LOG_FORMAT") == "" {
		format = "json"
	}
	if err := logger.Init(logger.WithFormat(format)); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	_ = logger.SetLevelString(cfg.LogLevel)
	log := logger.Get()

	// Built once per cold start and reused across invocations.
	app, err := bootstrap.Build(ctx, cfg, log)
	if err != nil {
		log.Error(ctx, "failed to build service", logger.Error(err))
		os.Exit(1)
	}

	adapter := gateway.New(app.API.Handler(), gateway.WithLogger(log.Named("gateway")))
	lambda.Start(adapter.Handle)
}
