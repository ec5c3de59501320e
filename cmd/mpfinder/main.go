// Command mpfinder searches cached Telegram channels and listing sites for
// missing persons by face or by name.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/Deynao1996/missing-persons-finder/internal/adapters/driving/cli"
)

// Set by the build: -ldflags "-X main.version=..."
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := cli.Execute(ctx, version)
	stop()
	if err != nil {
		os.Exit(1)
	}
}
