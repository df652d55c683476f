// Command tamween manages the ration-card customer register from the
// command line, on the same storage as the web server.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/JonMunkholm/tamween/internal/application"
	"github.com/JonMunkholm/tamween/internal/cli"
	"github.com/JonMunkholm/tamween/internal/config"
	"github.com/JonMunkholm/tamween/internal/core"
	"github.com/JonMunkholm/tamween/internal/logging"
)

func main() {
	// A missing .env is normal; existing variables win over the file.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "tamween:", err)
		os.Exit(cli.ExitUsage)
	}

	// Logs go to stderr so stdout stays clean for exports.
	logging.SetupWriter(os.Stderr, cfg.Logging.Level, cfg.Logging.Format)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	open := func(ctx context.Context) (*core.Service, func() error, error) {
		reg, err := application.Open(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		return reg.Service, reg.Close, nil
	}

	lang, err := cli.Execute(ctx, cli.Options{Open: open, Lang: cfg.UI.Lang}, os.Args[1:])
	if err != nil {
		if core.IsUserFacing(err) {
			fmt.Fprintln(os.Stderr, "tamween:", core.FormatUserError(err, lang))
		} else {
			fmt.Fprintln(os.Stderr, "tamween:", err)
		}
		os.Exit(cli.ExitCode(err))
	}
}
