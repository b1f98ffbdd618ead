package main

import (
	"fmt"
	"io"
	"time"

	"github.com/dgnsrekt/memocache/internal/cache"
	"github.com/spf13/cobra"
)

var olderThan time.Duration

var purgeCmd = &cobra.Command{
	Use:     "purge KIND...",
	Short:   "Remove entries from the disk cache",
	Long:    paragraph(fmt.Sprintf("\n%s the disk cache files of the given kinds. Disk entries never expire on their own.", keyword("Remove"))),
	Example: paragraph("memocache purge S3Query\nmemocache purge S3Query --older-than 168h"),
	Args:    cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPurge(cache.NewDiskCache(cachePath), args, olderThan, cmd.OutOrStdout())
	},
}

func runPurge(dc *cache.DiskCache, kinds []string, olderThan time.Duration, w io.Writer) error {
	for _, kind := range kinds {
		removed, err := dc.Purge(kind, olderThan)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "Removed %d %s entries\n", removed, kind); err != nil {
			return fmt.Errorf("unable to write to writer: %w", err)
		}
	}
	return nil
}

func init() {
	purgeCmd.Flags().DurationVar(&olderThan, "older-than", 0, "only remove entries not modified for this long")
}
