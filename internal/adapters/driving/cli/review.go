package cli

import (
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/spf13/cobra"

	"github.com/Deynao1996/missing-persons-finder/internal/core/domain"
)

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Manage reviewed matches",
	Long: `Marks matches of a query as reviewed so that later searches with the
same --query-id hide them, and shows the state of the review ledger.`,
}

var reviewMarkCmd = &cobra.Command{
	Use:   "mark <query-id> <channel> <id>...",
	Short: "Mark matches as reviewed",
	Args:  cobra.MinimumNArgs(3),
	RunE:  runReviewMark,
}

var reviewMarkAllCmd = &cobra.Command{
	Use:   "mark-all <query-id>",
	Short: "Mark every pending match of a query as reviewed",
	Args:  cobra.ExactArgs(1),
	RunE:  runReviewMarkAll,
}

var reviewShowCmd = &cobra.Command{
	Use:   "show <query-id>",
	Short: "Show the review state of a query",
	Args:  cobra.ExactArgs(1),
	RunE:  runReviewShow,
}

var reviewHistoryCmd = &cobra.Command{
	Use:   "history",
	Short: "Show the search history",
	Args:  cobra.NoArgs,
	RunE:  runReviewHistory,
}

func init() {
	reviewCmd.AddCommand(reviewMarkCmd)
	reviewCmd.AddCommand(reviewMarkAllCmd)
	reviewCmd.AddCommand(reviewShowCmd)
	reviewCmd.AddCommand(reviewHistoryCmd)
	rootCmd.AddCommand(reviewCmd)
}

func runReviewMark(cmd *cobra.Command, args []string) error {
	if reviewService == nil {
		return errors.New("review service not configured")
	}

	queryID, channel := args[0], args[1]
	ids := make([]domain.ItemID, 0, len(args)-2)
	for _, a := range args[2:] {
		ids = append(ids, domain.ItemID(a))
	}

	if err := reviewService.MarkReviewed(commandContext(cmd), queryID, channel, ids); err != nil {
		return fmt.Errorf("mark reviewed: %w", err)
	}
	cmd.Printf("Marked %d ids of %s as reviewed for %s.\n", len(ids), channel, queryID)
	return nil
}

func runReviewMarkAll(cmd *cobra.Command, args []string) error {
	if reviewService == nil {
		return errors.New("review service not configured")
	}

	ctx := commandContext(cmd)
	queryID := args[0]

	ledger, err := reviewService.Ledger(ctx)
	if err != nil {
		return fmt.Errorf("load ledger: %w", err)
	}
	pending := ledger.Unreviewed[queryID]
	if len(pending) == 0 {
		cmd.Printf("Nothing pending for %s.\n", queryID)
		return nil
	}

	if err := reviewService.MarkAllReviewed(ctx, queryID, pending); err != nil {
		return fmt.Errorf("mark reviewed: %w", err)
	}
	total := 0
	for _, ids := range pending {
		total += len(ids)
	}
	cmd.Printf("Marked %d ids as reviewed for %s.\n", total, queryID)
	return nil
}

func runReviewShow(cmd *cobra.Command, args []string) error {
	if reviewService == nil {
		return errors.New("review service not configured")
	}

	queryID := args[0]
	ledger, err := reviewService.Ledger(commandContext(cmd))
	if err != nil {
		return fmt.Errorf("load ledger: %w", err)
	}

	channels := make(map[string]bool)
	for _, m := range []domain.QueryChannelIDs{ledger.Searched, ledger.Reviewed, ledger.Unreviewed} {
		for channel := range m[queryID] {
			channels[channel] = true
		}
	}
	if len(channels) == 0 {
		cmd.Printf("No searches recorded for %s.\n", queryID)
		return nil
	}

	cmd.Printf("Query %s\n", queryID)
	for _, channel := range slices.Sorted(maps.Keys(channels)) {
		pending := ledger.Unreviewed[queryID][channel]
		cmd.Printf("  %-24s searched=%d reviewed=%d pending=%d\n", channel,
			len(ledger.Searched[queryID][channel]),
			len(ledger.Reviewed[queryID][channel]),
			len(pending))
		for _, id := range pending {
			cmd.Printf("    %s\n", id)
		}
	}
	return nil
}

func runReviewHistory(cmd *cobra.Command, _ []string) error {
	if reviewService == nil {
		return errors.New("review service not configured")
	}

	sessions, err := reviewService.History(commandContext(cmd))
	if err != nil {
		return fmt.Errorf("load history: %w", err)
	}
	if len(sessions) == 0 {
		cmd.Println("No searches recorded.")
		return nil
	}

	for _, s := range sessions {
		total := 0
		for _, ids := range s.Channels {
			total += len(ids)
		}
		cmd.Printf("%s  %-5s  %-12s  %3d matches  %s\n",
			s.Timestamp.Format("2006-01-02 15:04"), s.Type, orDash(s.QueryID), total, s.Query)
	}
	return nil
}
