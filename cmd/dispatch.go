package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/taskhive/dispatch/app"
	"github.com/taskhive/dispatch/config"
	"github.com/taskhive/dispatch/core/model"
	"github.com/taskhive/dispatch/infra/logger"
)

var (
	dispatchCategory  string
	dispatchCustomer  string
	dispatchLat       float64
	dispatchLng       float64
	dispatchInMinutes int
)

var dispatchCmd = &cobra.Command{
	Use:   "dispatch",
	Short: "Inject a test booking request",
	RunE:  dispatchBooking,
}

func init() {
	dispatchCmd.Flags().StringVar(&dispatchCategory, "category", "plumbing", "service category")
	dispatchCmd.Flags().StringVar(&dispatchCustomer, "customer", "test-customer", "customer id")
	dispatchCmd.Flags().Float64Var(&dispatchLat, "lat", 12.90, "customer latitude")
	dispatchCmd.Flags().Float64Var(&dispatchLng, "lng", 77.58, "customer longitude")
	dispatchCmd.Flags().IntVar(&dispatchInMinutes, "in", 120, "minutes until the scheduled time")
	rootCmd.AddCommand(dispatchCmd)
}

func dispatchBooking(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logg := logger.New("dispatch-command")
	svc, err := app.New(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := svc.Close(); err != nil {
			logg.Errorf("service close: %v", err)
		}
	}()

	res, err := svc.Manager.Dispatch(ctx, model.BookingRequest{
		Category:      dispatchCategory,
		CustomerID:    dispatchCustomer,
		Location:      model.Location{Lat: dispatchLat, Lng: dispatchLng},
		ScheduledTime: time.Now().Add(time.Duration(dispatchInMinutes) * time.Minute),
	})
	if err != nil {
		return fmt.Errorf("dispatch: %w", err)
	}
	logg.Infof("booking %s dispatched to %d providers", res.Booking.ID, len(res.Shortlist))
	for id, derr := range res.Errors {
		logg.Errorf("offer push to %s failed: %v", id, derr)
	}
	return nil
}
