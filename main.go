package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v3"

	"github.com/ekaya-inc/ekaya-ask/pkg/config"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	_ = godotenv.Load() // loads .env if present, silently ignores if not

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCommand().Run(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCommand() *cli.Command {
	return &cli.Command{
		Name:    "ekaya-ask",
		Usage:   "Ask questions about your business data in plain language",
		Version: Version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Value:   config.DefaultPath,
				Usage:   "YAML config file; a missing file means environment and defaults only",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "override log_level (debug, info, warn, error)",
			},
		},
		DefaultCommand: "serve",
		Commands: []*cli.Command{
			serveCommand(),
			ingestCommand(),
			askCommand(),
			chatCommand(),
			statusCommand(),
		},
	}
}

// loadConfig reads the config named by the --config flag and applies
// --log-level. fallbackLevel is used when neither sets a level explicitly,
// so interactive commands stay quiet by default.
func loadConfig(cmd *cli.Command, fallbackLevel string) (*config.Config, error) {
	cfg, err := config.LoadFrom(cmd.String("config"), Version)
	if err != nil {
		return nil, err
	}
	switch {
	case cmd.String("log-level") != "":
		cfg.LogLevel = cmd.String("log-level")
	case fallbackLevel != "" && os.Getenv("LOG_LEVEL") == "":
		cfg.LogLevel = fallbackLevel
	}
	return cfg, nil
}
