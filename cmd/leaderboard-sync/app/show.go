package app

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/gdgc-dbit/leaderboard-sync/internal/app/storage"
	"github.com/gdgc-dbit/leaderboard-sync/internal/service"
)

const (
	formatTable = "table"
	formatJSON  = "json"
)

func newShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the persisted leaderboard",
		Long: `Print the leaderboard as last committed by a reconciliation run, in rank order.
Participants missing from the latest run are hidden unless --include-stale is set.`,
		RunE: runShow,
	}

	cmd.Flags().String("search", "", "Only show participants whose name contains this text")
	cmd.Flags().Bool("include-stale", false, "Include participants missing from the latest run")
	cmd.Flags().Int("limit", service.MaxLimit, "Maximum number of participants to print")
	cmd.Flags().String("format", formatTable, "Output format (table or json)")
	return cmd
}

func runShow(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return fmt.Errorf("failed to get format flag: %w", err)
	}
	if format != formatTable && format != formatJSON {
		return fmt.Errorf("unsupported format %q: use %s or %s", format, formatTable, formatJSON)
	}

	opts, err := showOptions(cmd)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	factory, err := storage.NewStorageFactory(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to create storage factory: %w", err)
	}
	defer factory.Cleanup()

	svc, err := factory.CreateLeaderboardService(ctx)
	if err != nil {
		return fmt.Errorf("failed to create leaderboard service: %w", err)
	}

	list, err := svc.ListEntries(ctx, opts...)
	if err != nil {
		return fmt.Errorf("failed to list leaderboard: %w", err)
	}

	if format == formatJSON {
		return writeJSON(cmd.OutOrStdout(), list)
	}
	return renderTable(cmd.OutOrStdout(), list)
}

func showOptions(cmd *cobra.Command) ([]service.Option, error) {
	search, err := cmd.Flags().GetString("search")
	if err != nil {
		return nil, fmt.Errorf("failed to get search flag: %w", err)
	}
	includeStale, err := cmd.Flags().GetBool("include-stale")
	if err != nil {
		return nil, fmt.Errorf("failed to get include-stale flag: %w", err)
	}
	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return nil, fmt.Errorf("failed to get limit flag: %w", err)
	}

	opts := []service.Option{
		service.WithIncludeStale(includeStale),
		service.WithLimit(limit),
	}
	if search != "" {
		opts = append(opts, service.WithSearch(search))
	}
	return opts, nil
}

func writeJSON(w io.Writer, list *service.EntryList) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(list); err != nil {
		return fmt.Errorf("failed to encode leaderboard: %w", err)
	}
	return nil
}

// renderTable prints one row per entry followed by a count line
func renderTable(w io.Writer, list *service.EntryList) error {
	table := tablewriter.NewTable(w)
	table.Header("Rank", "Name", "Paths", "Arcade", "Locked", "Stale")

	for _, e := range list.Entries {
		row := []string{
			strconv.Itoa(e.Rank),
			e.Name,
			fmt.Sprintf("%d/%d", e.CompletedPaths, e.TotalPaths),
			e.Badge,
			yesNo(e.Locked),
			yesNo(e.Stale),
		}
		if err := table.Append(row); err != nil {
			return fmt.Errorf("failed to add row for %s: %w", e.Name, err)
		}
	}

	if err := table.Render(); err != nil {
		return fmt.Errorf("failed to render leaderboard: %w", err)
	}
	_, err := fmt.Fprintf(w, "%d of %d participants\n", len(list.Entries), list.Total)
	return err
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
