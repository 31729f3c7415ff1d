package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	sqlitestore "github.com/PabloGalante/ledger/internal/adapters/storage/sqlite"
	"github.com/PabloGalante/ledger/internal/app/coaching"
	"github.com/PabloGalante/ledger/internal/config"
	"github.com/PabloGalante/ledger/internal/domain"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the sqlite schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.StorageBackend != config.StorageSQLite {
			return fmt.Errorf("migrate needs storage_backend %q, got %q", config.StorageSQLite, cfg.StorageBackend)
		}
		s, err := sqlitestore.Open(cmd.Context(), cfg.SQLitePath)
		if err != nil {
			return err
		}
		defer s.Close()

		logger.Info("schema is up to date", zap.String("path", cfg.SQLitePath))
		return nil
	},
}

var frameworksCmd = &cobra.Command{
	Use:   "frameworks",
	Short: "Print the coaching framework rotation and wedge labels",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		for _, fw := range coaching.Frameworks() {
			fmt.Fprintf(out, "%-18s %s\n", fw.ID, fw.Label)
		}
		fmt.Fprintln(out)
		for _, w := range domain.WedgeLabels {
			fmt.Fprintln(out, w)
		}
		return nil
	},
}
