package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/anidbgo/anidb/cache"
	"github.com/anidbgo/anidb/identify"
	"github.com/anidbgo/anidb/internal/metrics"
	"github.com/anidbgo/anidb/orchestrate"
	"github.com/anidbgo/anidb/protocol"
)

var identifyServerAddr string

var identifyCmd = &cobra.Command{
	Use:   "identify <file>...",
	Short: "Identify files against AniDB by ed2k hash and size",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runIdentify,
}

func init() {
	identifyCmd.Flags().StringVar(&identifyServerAddr, "server", "api.anidb.net:9000", "AniDB UDP API address")
}

func runIdentify(cmd *cobra.Command, args []string) error {
	ctx := cmdContext(cmd)

	if flagUsername == "" || flagPassword == "" {
		return fmt.Errorf("identify requires --username/--password (or ANIDB_USERNAME/ANIDB_PASSWORD)")
	}

	logger, err := newLogger("protocol")
	if err != nil {
		return err
	}
	defer logger.Close()

	client, err := protocol.Dial(protocol.Config{
		ServerAddr: identifyServerAddr,
		ClientName: "anidbcli",
		ClientVer:  1,
		APIKey:     flagAPIKey,
		Logger:     logger,
		Metrics:    metrics.Noop(),
	})
	if err != nil {
		return err
	}
	defer client.Close()

	if err := client.Auth(ctx, flagUsername, flagPassword); err != nil {
		return err
	}
	defer client.Logout(ctx)

	hashSvc, closeHash, err := openHashCacheService(ctx)
	if err != nil {
		return err
	}
	defer closeHash()

	resultsBackend, err := openHashBackend()
	if err != nil {
		return err
	}
	results, err := orchestrate.NewIdentifyCache(ctx, resultsBackend, cache.Config{Name: "identify"})
	if err != nil {
		return err
	}
	defer results.Close()

	orch := orchestrate.NewIdentifyOrchestrator(hashSvc, results, identify.NewService(client))

	for _, path := range args {
		info, err := orch.Identify(ctx, path)
		if err != nil {
			return fmt.Errorf("%s: %w", filepath.Base(path), err)
		}
		fmt.Printf("%s\taid=%d\teid=%d\t%s - %s (%s)\n", filepath.Base(path), info.AnimeID, info.EpisodeID, info.AnimeTitle, info.EpisodeNum, info.GroupName)
	}
	return nil
}
