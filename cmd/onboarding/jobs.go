package main

import (
	"context"
	"encoding/json"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func repairCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "repair",
		Short: "Finish provisioning runs left partial by failed webhook deliveries",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if err := cfg.ValidateStore(); err != nil {
				return err
			}
			if grace, _ := cmd.Flags().GetDuration("grace"); grace > 0 {
				cfg.RepairGracePeriod = grace
			}
			limit, _ := cmd.Flags().GetInt("limit")

			rt, err := newRuntime(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer rt.close(context.Background())

			report, err := rt.reconciler.Repair(cmd.Context(), limit)
			if err != nil {
				return err
			}
			rt.logger.Info("repair finished",
				zap.Int("repaired", report.Repaired),
				zap.Int("failed", report.Failed),
			)
			return printJSON(report)
		},
	}

	cmd.Flags().IntP("limit", "n", 100, "Maximum runs to repair")
	cmd.Flags().Duration("grace", 0, "Only repair runs older than this (default REPAIR_GRACE_PERIOD)")

	return cmd
}

func refreshCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "refresh",
		Short: "Pull registry status for every submission with a registry id",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if err := cfg.ValidateStore(); err != nil {
				return err
			}
			timeout, _ := cmd.Flags().GetDuration("timeout")

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			rt, err := newRuntime(ctx, cfg)
			if err != nil {
				return err
			}
			defer rt.close(context.Background())

			results, err := rt.admin.RefreshAll(ctx)
			if err != nil {
				return err
			}
			rt.logger.Info("refresh finished", zap.Int("submissions", len(results)))
			return printJSON(results)
		},
	}

	cmd.Flags().Duration("timeout", 5*time.Minute, "Overall deadline for the sweep")

	return cmd
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
