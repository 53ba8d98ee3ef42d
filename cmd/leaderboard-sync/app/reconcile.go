package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/gdgc-dbit/leaderboard-sync/internal/app"
	pkgsync "github.com/gdgc-dbit/leaderboard-sync/internal/sync"
)

// successMessage is printed after a successful one-shot run
const successMessage = "Leaderboard updated!"

func newReconcileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile",
		Short: "Run a single reconciliation and exit",
		Long: `Fetch the configured snapshot once, reconcile it against the persisted leaderboard
and commit the result. The command exits non-zero when the run fails, which makes
it suitable for cron jobs and CI.`,
		RunE: runReconcile,
	}
}

func runReconcile(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	leaderboardApp, err := app.NewLeaderboardApp(ctx, app.WithConfig(cfg), app.WithAdminToken(""))
	if err != nil {
		return fmt.Errorf("failed to build application: %w", err)
	}
	defer leaderboardApp.Close()

	result, syncErr := leaderboardApp.Reconcile(ctx)
	if syncErr != nil {
		return formatRunError(syncErr)
	}

	slog.Info("Reconciliation finished",
		"run_id", result.RunID,
		"participants", result.Participants,
		"locked", result.Locked,
		"newly_finished", result.NewlyFinished,
		"violations", result.Violations)
	fmt.Fprintln(cmd.OutOrStdout(), successMessage)
	return nil
}

// formatRunError keeps the failure kind visible on the command line
func formatRunError(syncErr *pkgsync.Error) error {
	return fmt.Errorf("reconciliation failed (%s): %w", syncErr.Kind, syncErr)
}
