package main

import (
	"encoding/json"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/rohits-web03/edudrive/internal/drive"
)

func NewReconcileCommand(c *container) *cobra.Command {
	var driveID string

	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Recompute storage usage from file records",
		Long: `Recomputes each drive's storage usage from the sizes of its files and
rewrites stale folder paths. Prints the drives that needed a correction.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			if driveID != "" {
				id, err := uuid.Parse(driveID)
				if err != nil {
					return err
				}
				report, err := c.svc.Reconcile(ctx, id)
				if err != nil {
					return err
				}
				return printJSON(cmd, report)
			}

			reports, err := c.svc.ReconcileAll(ctx)
			if err != nil {
				return err
			}
			if reports == nil {
				reports = []drive.ReconcileReport{}
			}
			return printJSON(cmd, reports)
		},
	}
	cmd.Flags().StringVar(&driveID, "drive", "", "Reconcile a single drive by ID")

	return cmd
}

func NewPurgeCommand(c *container) *cobra.Command {
	var olderThan time.Duration

	cmd := &cobra.Command{
		Use:   "purge",
		Short: "Permanently remove trashed files",
		RunE: func(cmd *cobra.Command, args []string) error {
			if olderThan == 0 {
				olderThan = c.cfg.Drive.PurgeAfter
			}
			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			report, err := c.svc.PurgeDeleted(ctx, olderThan)
			if perr := printJSON(cmd, report); perr != nil {
				return perr
			}
			return err
		},
	}
	cmd.Flags().DurationVar(&olderThan, "older-than", 0, "Minimum time in trash (defaults to DRIVE_PURGE_AFTER)")

	return cmd
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
