// Command scenetrackd runs the scenetrack analysis daemon.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"scenetrack/internal/config"
	"scenetrack/internal/daemonrun"
)

func main() {
	if err := run(context.Background(), os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "scenetrackd:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	flags := flag.NewFlagSet("scenetrackd", flag.ContinueOnError)
	configPath := flags.String("config", "", "Configuration file path")
	logLevel := flags.String("log-level", "", "Override logging.level")
	if err := flags.Parse(args); err != nil {
		return err
	}

	cfg, _, _, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	return daemonrun.Run(ctx, cfg, daemonrun.Options{LogLevel: *logLevel})
}
