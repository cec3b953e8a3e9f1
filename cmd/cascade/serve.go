package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"deedles.dev/cascade/harness"
	"deedles.dev/cascade/internal/config"
	"deedles.dev/cascade/internal/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the display server",
	Long: `Run the display server until interrupted. Clients connect through the
socket printed at startup, or $XDG_RUNTIME_DIR/<socket> when --socket is
given.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	config.AddFlags(serveCmd.Flags())
}

func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load(viper.New(), cmd.Flags())
	if err != nil {
		return cfg, err
	}
	logger.Setup(os.Stderr, cfg.LogLevel, logger.ParseFormat(cfg.LogFormat))
	return cfg, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ds := harness.NewFromConfig(cfg)
	if err := ds.Start(ctx); err != nil {
		return err
	}

	cmd.Printf("%v %v\n", titleStyle.Render("listening on"), ds.SocketPath())
	for _, ext := range ds.Descriptor().Extensions {
		cmd.Printf("  %v %v\n", nameStyle.Render(ext.Name), dimStyle.Render(fmt.Sprintf("v%v", ext.Version)))
	}

	<-ctx.Done()
	logger.Info("shutting down", "cause", context.Cause(ctx))
	return ds.Stop()
}
