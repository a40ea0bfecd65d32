// Command anidb is a thin external-collaborator CLI over the anidb
// library packages (cache, hashing, identify, syncqueue): it exists so
// the core's invariants are exercised from a real command line, not so
// this binary becomes the product. See spec §6's CLI surface section.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/anidbgo/anidb/anerr"
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		if code, ok := anerr.ProtocolCode(err); ok {
			fmt.Fprintf(os.Stderr, "anidb: %v (AniDB code %d)\n", err, code)
		} else {
			fmt.Fprintln(os.Stderr, "anidb:", err)
		}
		return exitCodeFor(err)
	}
	return exitOK
}
