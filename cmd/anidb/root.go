package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/anidbgo/anidb/internal/anlog"
)

// Exit codes, fixed by spec §6's CLI surface section: a script driving
// this binary branches on these, not on stderr text.
const (
	exitOK             = 0
	exitGeneric        = 1
	exitUsage          = 2
	exitIO             = 3
	exitNetwork        = 4
	exitCache          = 5
	exitCancelled      = 6
)

var (
	flagCacheDir string
	flagUsername string
	flagPassword string
	flagAPIKey   string
	flagLogLevel string
	flagLogFile  string
)

var rootCmd = &cobra.Command{
	Use:   "anidb",
	Short: "Hash, identify, and sync local files against AniDB",
	Long: "anidb is a thin CLI over the anidb client core: hashing files, " +
		"identifying them against AniDB's UDP API, inspecting the local " +
		"cache, and draining the MyList sync queue.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagCacheDir, "cache-dir", os.Getenv("ANIDB_CACHE_DIR"), "cache root directory (env ANIDB_CACHE_DIR)")
	rootCmd.PersistentFlags().StringVar(&flagUsername, "username", os.Getenv("ANIDB_USERNAME"), "AniDB username (env ANIDB_USERNAME)")
	rootCmd.PersistentFlags().StringVar(&flagPassword, "password", os.Getenv("ANIDB_PASSWORD"), "AniDB password (env ANIDB_PASSWORD)")
	rootCmd.PersistentFlags().StringVar(&flagAPIKey, "api-key", os.Getenv("ANIDB_API_KEY"), "AniDB UDP API encryption key (env ANIDB_API_KEY)")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", envOr("ANIDB_LOG_LEVEL", "info"), "log level: debug, info, warning, error (env ANIDB_LOG_LEVEL)")
	rootCmd.PersistentFlags().StringVar(&flagLogFile, "log-file", "", "append logs to this file (with rotation past 10MiB) instead of stderr")

	rootCmd.AddCommand(hashCmd, identifyCmd, cacheCmd, syncCmd)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func logLevel() anlog.Level {
	switch flagLogLevel {
	case "debug":
		return anlog.LevelDebug
	case "warning":
		return anlog.LevelWarning
	case "error":
		return anlog.LevelError
	default:
		return anlog.LevelInfo
	}
}

// exitCodeFor classifies a returned error into one of the exit codes
// spec §6 fixes, mirroring ffi.FromError's anerr.Kind switch but
// collapsing it to the CLI's coarser 0-6 range.
func exitCodeFor(err error) int {
	switch classifyErr(err) {
	case classNone:
		return exitOK
	case classUsage:
		return exitUsage
	case classIO:
		return exitIO
	case classNetwork:
		return exitNetwork
	case classCache:
		return exitCache
	case classCancelled:
		return exitCancelled
	default:
		return exitGeneric
	}
}

// cmdContext returns a context cancelled on SIGINT/SIGTERM, so a
// long-running hash or sync command can unwind cleanly and the process
// exits with exitCancelled rather than being killed mid-write.
func cmdContext(cmd *cobra.Command) context.Context {
	return cmd.Context()
}

// noopCloser adapts an io.Writer that must never be closed (stderr) to
// the io.WriteCloser anlog.New requires.
type noopCloser struct{ w *os.File }

func (n noopCloser) Write(p []byte) (int, error) { return n.w.Write(p) }
func (n noopCloser) Close() error                { return nil }

const logRotateSize = 10 * 1024 * 1024

// newLogger builds the anlog.Logger every subcommand that talks to the
// protocol layer uses: --log-file routed through anlog's rotating
// writer if set, stderr otherwise.
func newLogger(component string) (anlog.LoggerCloser, error) {
	if flagLogFile == "" {
		return anlog.New(noopCloser{os.Stderr}, logLevel(), component), nil
	}
	w, err := anlog.NewRotatingWriter(flagLogFile, logRotateSize)
	if err != nil {
		return nil, err
	}
	return anlog.New(w, logLevel(), component), nil
}
