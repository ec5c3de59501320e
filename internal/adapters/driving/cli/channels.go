package cli

import (
	"cmp"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/spf13/cobra"
)

var channelsCmd = &cobra.Command{
	Use:   "channels",
	Short: "List configured and cached channels",
	Args:  cobra.NoArgs,
	RunE:  runChannels,
}

func init() {
	rootCmd.AddCommand(channelsCmd)
}

func runChannels(cmd *cobra.Command, _ []string) error {
	if cacheStore == nil {
		return errors.New("cache store not configured")
	}

	ctx := commandContext(cmd)
	cached, err := cacheStore.ListChannels(ctx)
	if err != nil {
		return fmt.Errorf("list channels: %w", err)
	}

	kinds := make(map[string]string)
	for _, src := range appSettings.Sources {
		kinds[src.Name] = string(src.Type)
	}
	for _, ch := range cached {
		kinds[ch] = cmp.Or(kinds[ch], "cached")
	}
	if len(kinds) == 0 {
		cmd.Println("No channels configured.")
		return nil
	}

	for _, ch := range slices.Sorted(maps.Keys(kinds)) {
		years, err := cacheStore.ListYears(ctx, ch)
		if err != nil {
			return fmt.Errorf("list years of %s: %w", ch, err)
		}
		yearText := make([]string, len(years))
		for i, y := range years {
			yearText[i] = fmt.Sprint(y)
		}

		line := fmt.Sprintf("%-24s %-9s years=%s", ch, kinds[ch], orDash(strings.Join(yearText, ",")))
		if appSettings.IsExcluded(ch) {
			line += "  (excluded)"
		}
		cmd.Println(line)
	}
	return nil
}
