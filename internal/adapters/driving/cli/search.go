package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"os"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Deynao1996/missing-persons-finder/internal/core/domain"
	"github.com/Deynao1996/missing-persons-finder/internal/core/services"
)

var (
	searchQueryID       string
	searchMinSimilarity float64
	searchMinYear       int
	searchRecord        bool
	searchJSON          bool
)

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Search the cache by face or by name",
	Long: `Searches every cached channel. Matches already reviewed for the
given --query-id are excluded.

With --record the matches are merged into the review ledger for the query
and the search is added to the history.`,
}

var searchFaceCmd = &cobra.Command{
	Use:   "face <image>",
	Short: "Find faces similar to the face in an image",
	Args:  cobra.ExactArgs(1),
	RunE:  runSearchFace,
}

var searchTextCmd = &cobra.Command{
	Use:   "text <query>",
	Short: "Find texts mentioning a person",
	Long: `Finds cached texts that mention a person by name.

The query is "surname first-name", optionally followed by other names.
Alternatives are separated with "/", e.g. "Петренко Іван / Petrenko Ivan".`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearchText,
}

func init() {
	for _, c := range []*cobra.Command{searchFaceCmd, searchTextCmd} {
		c.Flags().StringVar(&searchQueryID, "query-id", "", "query id scoping the review ledger")
		c.Flags().IntVar(&searchMinYear, "min-year", 0, "only scan cache years from this one on")
		c.Flags().BoolVar(&searchRecord, "record", false, "record matches in the review ledger and history")
		c.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
	}
	searchFaceCmd.Flags().Float64Var(&searchMinSimilarity, "min-similarity", 0,
		"similarity threshold (default from config)")

	searchCmd.AddCommand(searchFaceCmd)
	searchCmd.AddCommand(searchTextCmd)
	rootCmd.AddCommand(searchCmd)
}

func runSearchFace(cmd *cobra.Command, args []string) error {
	if faceSearcher == nil {
		return errors.New("face search service not configured")
	}
	if err := checkRecord(); err != nil {
		return err
	}

	image, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read image: %w", err)
	}

	q := domain.FaceQuery{
		QueryID: searchQueryID,
		MinYear: searchMinYear,
	}
	if cmd.Flags().Changed("min-similarity") {
		threshold := searchMinSimilarity
		q.MinSimilarity = &threshold
	}

	ctx := commandContext(cmd)
	matches, err := faceSearcher.SearchByImage(ctx, image, q)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if searchRecord {
		if err := recordSearch(cmd, domain.SearchImage, args[0], services.FaceMatchIDs(matches)); err != nil {
			return err
		}
	}

	if searchJSON {
		return outputJSON(cmd, matches)
	}
	outputFaceMatches(cmd, matches)
	return nil
}

func runSearchText(cmd *cobra.Command, args []string) error {
	if textSearcher == nil {
		return errors.New("text search service not configured")
	}
	if err := checkRecord(); err != nil {
		return err
	}

	query := strings.Join(args, " ")
	ctx := commandContext(cmd)
	matches, err := textSearcher.Search(ctx, query, domain.TextQuery{
		QueryID: searchQueryID,
		MinYear: searchMinYear,
	})
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if searchRecord {
		if err := recordSearch(cmd, domain.SearchText, query, services.TextMatchIDs(matches)); err != nil {
			return err
		}
	}

	if searchJSON {
		return outputJSON(cmd, matches)
	}
	outputTextMatches(cmd, matches)
	return nil
}

func checkRecord() error {
	if !searchRecord {
		return nil
	}
	if reviewService == nil {
		return errors.New("review service not configured")
	}
	if searchQueryID == "" {
		return errors.New("--record requires --query-id")
	}
	return nil
}

func recordSearch(cmd *cobra.Command, kind domain.SearchKind, query string, ids domain.ChannelIDs) error {
	ctx := commandContext(cmd)
	if err := reviewService.RecordSearch(ctx, searchQueryID, ids); err != nil {
		return fmt.Errorf("record search: %w", err)
	}
	if err := reviewService.LogSession(ctx, kind, query, searchQueryID, ids); err != nil {
		return fmt.Errorf("log search: %w", err)
	}
	return nil
}

func outputJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func outputFaceMatches(cmd *cobra.Command, matches domain.ChannelFaceMatches) {
	if matches.Total() == 0 {
		cmd.Println("No matches found.")
		return
	}

	for _, channel := range sortedKeys(matches) {
		cmd.Printf("%s (%d)\n", channel, len(matches[channel]))
		for _, m := range matches[channel] {
			// Format: similarity date url [face N]
			line := fmt.Sprintf("  %.3f  %s  %s", m.Similarity, formatDate(m), m.SourceURL)
			if m.FaceIndex > 0 {
				line += fmt.Sprintf("  [face %d]", m.FaceIndex)
			}
			cmd.Println(line)
			if m.Text != "" {
				cmd.Printf("         %s\n", truncate(m.Text, 120))
			}
		}
	}
	cmd.Printf("\n%d matches\n", matches.Total())
}

func outputTextMatches(cmd *cobra.Command, matches domain.ChannelTextMatches) {
	if matches.Total() == 0 {
		cmd.Println("No matches found.")
		return
	}

	for _, channel := range sortedKeys(matches) {
		cmd.Printf("%s (%d)\n", channel, len(matches[channel]))
		for _, m := range matches[channel] {
			cmd.Printf("  %s  %s  \"%s\"\n", m.Timestamp.Format("2006-01-02"), m.SourceURL, m.MatchedVariant)
			cmd.Printf("         %s\n", truncate(m.Excerpt, 120))
		}
	}
	cmd.Printf("\n%d matches\n", matches.Total())
}

func formatDate(m domain.FaceMatch) string {
	if m.Timestamp.IsZero() {
		return "----------"
	}
	return m.Timestamp.Format("2006-01-02")
}

func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func sortedKeys[M ~map[string]V, V any](m M) []string {
	return slices.Sorted(maps.Keys(m))
}
