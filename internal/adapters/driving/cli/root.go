// Package cli provides the mpfinder command line interface.
package cli

import (
	"context"
	"errors"
	"io"

	"github.com/spf13/cobra"

	"github.com/Deynao1996/missing-persons-finder/internal/core/domain"
	"github.com/Deynao1996/missing-persons-finder/internal/core/ports/driven"
	"github.com/Deynao1996/missing-persons-finder/internal/core/ports/driving"
	"github.com/Deynao1996/missing-persons-finder/internal/logger"
)

var (
	version = "dev"

	configDir string
	verbose   bool

	appSettings       = domain.DefaultSettings()
	cacheStore        driven.CacheStore
	crawlOrchestrator driving.CrawlOrchestrator
	faceSearcher      driving.FaceSearcher
	textSearcher      driving.TextSearcher
	reviewService     driving.ReviewService
	closers           []io.Closer

	// bootstrap wires the services before any command runs.
	bootstrap = wireServices
)

var rootCmd = &cobra.Command{
	Use:   "mpfinder",
	Short: "Find missing persons in cached channel media",
	Long: `mpfinder crawls Telegram channels and listing sites into a local cache,
then searches the cache by face image or by person name.

Matches already reviewed for a query are hidden from later searches.`,
	SilenceUsage: true,
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		logger.SetVerbose(verbose)
		return bootstrap(configDir)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configDir, "config", "", "config directory (default ~/.mpfinder)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose logging")
}

// Execute runs the root command with the given build version.
func Execute(ctx context.Context, buildVersion string) error {
	if buildVersion != "" {
		version = buildVersion
	}
	defer closeServices()
	return rootCmd.ExecuteContext(ctx)
}

func closeServices() {
	var errs []error
	for _, c := range closers {
		errs = append(errs, c.Close())
	}
	closers = nil
	if err := errors.Join(errs...); err != nil {
		logger.Warn("Closing stores: %v", err)
	}
}

// commandContext returns the command's context, or Background when the
// command runs outside ExecuteContext.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
