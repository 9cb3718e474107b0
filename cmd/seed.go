package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/taskhive/dispatch/config"
	"github.com/taskhive/dispatch/core/model"
	"github.com/taskhive/dispatch/infra/logger"
	"github.com/taskhive/dispatch/infra/store"
)

var seedFile string

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load providers from a JSON file into the store",
	RunE:  seedProviders,
}

func init() {
	seedCmd.Flags().StringVarP(&seedFile, "file", "f", "providers.json", "provider JSON file")
	rootCmd.AddCommand(seedCmd)
}

func seedProviders(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.Store.Path == "" {
		return fmt.Errorf("seeding requires a store path")
	}

	data, err := os.ReadFile(seedFile)
	if err != nil {
		return fmt.Errorf("read %s: %w", seedFile, err)
	}
	var providers []model.Provider
	if err := json.Unmarshal(data, &providers); err != nil {
		return fmt.Errorf("parse %s: %w", seedFile, err)
	}

	db, err := store.OpenSQLite(cfg.Store.Path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	logg := logger.New("seed-command")
	defer func() {
		if err := db.Close(); err != nil {
			logg.Errorf("store close: %v", err)
		}
	}()

	ctx := context.Background()
	for _, p := range providers {
		if err := db.UpsertProvider(ctx, p); err != nil {
			return fmt.Errorf("upsert provider %s: %w", p.ID, err)
		}
	}
	logg.Infof("seeded %d providers", len(providers))
	return nil
}
