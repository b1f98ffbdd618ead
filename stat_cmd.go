package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/dgnsrekt/memocache/internal/cache"
	"github.com/dgnsrekt/memocache/internal/source"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var statCmd = &cobra.Command{
	Use:     "stat [KIND...]",
	Short:   "List the entries of the disk cache",
	Long:    paragraph(fmt.Sprintf("\n%s the disk cache entries of the given kinds, or of every kind.", keyword("List"))),
	Example: paragraph("memocache stat\nmemocache stat S3Query"),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStat(cache.NewDiskCache(cachePath), args, cmd.OutOrStdout(), isTerminal)
	},
}

// runStat renders one row per disk entry. Sizes and ages are humanized on a
// terminal and exact otherwise.
func runStat(dc *cache.DiskCache, kinds []string, w io.Writer, tty bool) error {
	if len(kinds) == 0 {
		var err error
		if kinds, err = dc.Kinds(); err != nil {
			return err
		}
	}

	t := source.Table{Columns: []string{"kind", "key", "size", "modified"}}
	var total int64
	for _, kind := range kinds {
		entries, err := dc.Entries(kind)
		if err != nil {
			return err
		}
		for _, e := range entries {
			total += e.Size
			size := strconv.FormatInt(e.Size, 10)
			modified := e.ModTime.UTC().Format("2006-01-02T15:04:05Z")
			if tty {
				size = humanize.Bytes(uint64(e.Size)) //nolint:gosec
				modified = humanize.Time(e.ModTime)
			}
			t.Rows = append(t.Rows, []string{e.Kind, e.Key, size, modified})
		}
	}

	if err := renderTable(w, t, tty); err != nil {
		return err
	}
	if tty {
		_, err := fmt.Fprintf(w, "%d entries, %s in %s\n", t.Len(), humanize.Bytes(uint64(total)), dc.Root()) //nolint:gosec
		return err
	}
	return nil
}
