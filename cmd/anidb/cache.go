package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/anidbgo/anidb/cache"
	"github.com/anidbgo/anidb/internal/metrics"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect or clear the on-disk fingerprint cache",
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print cache hit/miss counters and entry/byte totals",
	RunE:  runCacheStats,
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Discard every cached hash artifact",
	RunE:  runCacheClear,
}

func init() {
	cacheCmd.AddCommand(cacheStatsCmd, cacheClearCmd)
}

func openHashArtifactCache(cmd *cobra.Command) (*cache.Cache[cache.HashArtifact], error) {
	backend, err := openHashBackend()
	if err != nil {
		return nil, err
	}
	return cache.New[cache.HashArtifact](cmdContext(cmd), backend, cache.HashArtifactCodec{}, cache.Config{Name: "hash"}, metrics.Noop())
}

func runCacheStats(cmd *cobra.Command, args []string) error {
	c, err := openHashArtifactCache(cmd)
	if err != nil {
		return err
	}
	defer c.Close()

	stats := c.Stats()
	fmt.Printf("entries=%d bytes=%d hits=%d misses=%d\n", stats.Entries, stats.Bytes, stats.Hits, stats.Misses)
	return nil
}

func runCacheClear(cmd *cobra.Command, args []string) error {
	c, err := openHashArtifactCache(cmd)
	if err != nil {
		return err
	}
	defer c.Close()

	if err := c.Clear(cmdContext(cmd)); err != nil {
		return err
	}
	fmt.Println("cache cleared")
	return nil
}
