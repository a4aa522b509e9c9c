package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/spec-kit/support-assistant/internal/app"
	"github.com/spec-kit/support-assistant/internal/chatcli"
	"github.com/spec-kit/support-assistant/internal/config"
	"github.com/spec-kit/support-assistant/internal/observability"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		username    string
		storeDriver string
		dsn         string
		envFile     string
		logFile     string
	)
	flagSet := pflag.NewFlagSet("chat", pflag.ContinueOnError)
	flagSet.StringVarP(&username, "username", "u", "", "chat as this user instead of prompting")
	flagSet.StringVar(&storeDriver, "store-driver", "", "ticket store driver: sqlite, mysql or postgres (overrides STORE_DRIVER)")
	flagSet.StringVar(&dsn, "dsn", "", "ticket store DSN (overrides STORE_DSN)")
	flagSet.StringVar(&envFile, "config-env", "", "load environment variables from this file before .env")
	flagSet.StringVar(&logFile, "log-file", "stderr", "zap output path for log records")
	flagSet.BoolP("help", "h", false, "show help")

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			printHelp(flagSet)
			return nil
		}
		return err
	}
	if help, _ := flagSet.GetBool("help"); help {
		printHelp(flagSet)
		return nil
	}

	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return fmt.Errorf("load %s: %w", envFile, err)
		}
	}
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if storeDriver != "" {
		cfg.Store.Driver = strings.ToLower(storeDriver)
	}
	if dsn != "" {
		cfg.Store.DSN = dsn
	}

	logger, err := observability.NewLoggerTo(cfg.Logger, []string{logFile})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync() //nolint:errcheck
	logger = logger.With(zap.String("session_id", uuid.NewString()))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	components, err := app.Build(ctx, cfg, logger, app.Options{})
	if err != nil {
		return err
	}
	defer components.Close()

	return chatcli.Run(ctx, os.Stdin, os.Stdout, components.Pipeline, logger, chatcli.Options{Username: username})
}

func printHelp(flagSet *pflag.FlagSet) {
	fmt.Fprintf(os.Stdout, "Usage: chat [flags]\n\nInteractive customer service assistant.\n\nFlags:\n%s", flagSet.FlagUsages())
}
