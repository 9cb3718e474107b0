package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/taskhive/dispatch/app"
	"github.com/taskhive/dispatch/config"
	"github.com/taskhive/dispatch/infra/logger"
)

var remindCmd = &cobra.Command{
	Use:   "remind",
	Short: "Run a single reminder sweep",
	RunE:  runSweep,
}

func init() {
	rootCmd.AddCommand(remindCmd)
}

func runSweep(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logg := logger.New("remind-command")
	svc, err := app.New(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := svc.Close(); err != nil {
			logg.Errorf("service close: %v", err)
		}
	}()

	sent, err := svc.Reminder.Sweep(ctx)
	if err != nil {
		return fmt.Errorf("sweep: %w", err)
	}
	logg.Infof("reminder sweep sent %d notifications", sent)
	return nil
}
