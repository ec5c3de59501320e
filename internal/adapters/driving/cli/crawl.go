package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Deynao1996/missing-persons-finder/internal/core/domain"
	"github.com/Deynao1996/missing-persons-finder/internal/core/ports/driving"
)

var crawlMode string

var crawlCmd = &cobra.Command{
	Use:   "crawl [channel]",
	Short: "Crawl sources into the local cache",
	Long: `Fetches new items from configured sources and appends them to the cache.
If a channel is provided, only that channel is crawled.
Otherwise, all configured sources are crawled.

Modes:
  auto     initial until a channel's backfill has completed, update after
  initial  everything since search_from
  update   only items newer than the cached ones`,
	Args: cobra.MaximumNArgs(1),
	RunE: runCrawl,
}

func init() {
	crawlCmd.Flags().StringVar(&crawlMode, "mode", string(domain.CrawlAuto), "crawl mode: auto, initial or update")
	rootCmd.AddCommand(crawlCmd)
}

func runCrawl(cmd *cobra.Command, args []string) error {
	if crawlOrchestrator == nil {
		return errors.New("crawl service not configured")
	}

	mode, err := domain.ParseCrawlMode(crawlMode)
	if err != nil {
		return err
	}

	ctx := commandContext(cmd)

	if len(args) > 0 {
		channel := args[0]
		cmd.Printf("Crawling %s (%s)...\n", channel, mode)

		report, err := crawlWithProgress(ctx, cmd, crawlOrchestrator, channel, mode)
		if report != nil {
			printReport(cmd, *report)
		}
		if err != nil {
			return fmt.Errorf("crawl failed: %w", err)
		}
		return nil
	}

	cmd.Println("Crawling all sources...")
	reports, err := crawlOrchestrator.CrawlAll(ctx, mode)
	for _, r := range reports {
		printReport(cmd, r)
	}
	if err != nil {
		return fmt.Errorf("crawl failed: %w", err)
	}
	cmd.Println("All sources crawled successfully.")
	return nil
}

// crawlWithProgress runs a crawl while displaying progress updates.
func crawlWithProgress(
	ctx context.Context,
	cmd *cobra.Command,
	orch driving.CrawlOrchestrator,
	channel string,
	mode domain.CrawlMode,
) (*domain.CrawlReport, error) {
	type result struct {
		report *domain.CrawlReport
		err    error
	}
	done := make(chan result, 1)
	go func() {
		report, err := orch.Crawl(ctx, channel, mode)
		done <- result{report, err}
	}()

	// Poll status every 500ms
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	lastCount := 0
	for {
		select {
		case r := <-done:
			if lastCount > 0 {
				cmd.Println()
			}
			return r.report, r.err
		case <-ticker.C:
			// Best effort
			status, err := orch.Status(ctx, channel)
			if err == nil && status != nil && status.Appended > lastCount {
				cmd.Printf("\rAppended %d records (%d skipped)", status.Appended, status.Skipped)
				lastCount = status.Appended
			}
		}
	}
}

func printReport(cmd *cobra.Command, r domain.CrawlReport) {
	state := "ok"
	if r.Err != nil {
		state = "failed: " + r.Err.Error()
	}
	cmd.Printf("%-24s %-8s appended=%d skipped=%d batches=%d hwm=%s->%s (%s) %s\n",
		r.Channel, r.Mode, r.Appended, r.Skipped, r.Batches,
		orDash(r.StartHWM.String()), orDash(r.EndHWM.String()),
		r.Duration.Round(time.Millisecond), state)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
