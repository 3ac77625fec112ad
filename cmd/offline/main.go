package main

import (
	"context"
	"log"
	"log/slog"
	"os"

	"github.com/justicebus/offlinesync/internal/cli"
	"github.com/justicebus/offlinesync/internal/config"
	"github.com/justicebus/offlinesync/internal/logging"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := config.LoadConfig()
	logger := logging.NewSlogLogger(slog.New(slog.NewTextHandler(os.Stderr, nil)))

	app, err := cli.NewApp(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("%v", err)
	}

	app.Run(ctx)
}
