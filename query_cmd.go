package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/memocache/internal/cache"
	"github.com/dgnsrekt/memocache/internal/source"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var queryCmd = &cobra.Command{
	Use:   "query KEY...",
	Short: "Read query results through the cache",
	Long:  paragraph(fmt.Sprintf("\n%s each key from memory, then disk, then S3. Results fetched from S3 are written back to the cache.", keyword("Read"))),
	Example: paragraph("memocache query 2024-01-01 --bucket reports --prefix daily/\n" +
		"memocache query q1 q2 --persist none --ttl 5m"),
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		cfg, err := cacheConfig()
		if err != nil {
			return err
		}

		src, err := newS3Source(ctx)
		if err != nil {
			return err
		}

		var opts []cache.Option
		var reg *prometheus.Registry
		if viper.GetBool("metrics") {
			var metrics *cache.Metrics
			if metrics, reg, err = newQueryMetrics(); err != nil {
				return err
			}
			opts = append(opts, cache.WithMetrics(metrics))
		}

		c, err := cache.New[source.Table](source.S3Kind, src, cfg, opts...)
		if err != nil {
			return err
		}
		defer c.Close() //nolint:errcheck

		if err := runQueries(ctx, c, args, cmd.OutOrStdout(), isTerminal); err != nil {
			return err
		}

		// Counters go to stderr so piped CSV stays clean.
		if reg != nil {
			return writeMetrics(cmd.ErrOrStderr(), reg)
		}
		return nil
	},
}

// newS3Source builds the S3 query source from the s3.* settings.
func newS3Source(ctx context.Context) (cache.Source[source.Table], error) {
	bucket := viper.GetString("s3.bucket")
	if bucket == "" {
		return nil, errors.New("no bucket configured: use --bucket or set s3.bucket")
	}

	client, err := source.LoadS3Client(ctx, viper.GetString("s3.region"), viper.GetString("s3.profile"))
	if err != nil {
		return nil, err
	}

	q := source.NewS3Query(client, bucket,
		source.WithPrefix(viper.GetString("s3.prefix")),
		source.WithSuffix(viper.GetString("s3.suffix")),
	)

	if interval := viper.GetDuration("s3.rate"); interval > 0 {
		log.Debug("Rate limiting S3 requests", "interval", interval, "burst", viper.GetInt("s3.burst"))
		return source.RateLimit[source.Table](q, interval, viper.GetInt("s3.burst")), nil
	}
	return q, nil
}

// runQueries reads every key and renders its table. A key title precedes
// each table on a terminal.
func runQueries(ctx context.Context, c *cache.TieredCache[source.Table], keys []string, w io.Writer, tty bool) error {
	for _, key := range keys {
		t, err := c.Read(ctx, key)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}

		if tty {
			if _, err := fmt.Fprintln(w, keyword(key)); err != nil {
				return fmt.Errorf("unable to write to writer: %w", err)
			}
		}
		if err := renderTable(w, t, tty); err != nil {
			return err
		}
	}

	log.Debug("Cache stats", "kind", c.Kind(), "hits", c.Stats().Hits, "misses", c.Stats().Misses)
	return nil
}

func init() {
	queryCmd.Flags().String("bucket", "", "S3 bucket holding the query results")
	queryCmd.Flags().String("prefix", "", "object key prefix")
	queryCmd.Flags().String("suffix", ".csv", "object key suffix")
	queryCmd.Flags().String("region", "", "AWS region (default from the AWS config)")
	queryCmd.Flags().String("profile", "", "AWS shared config profile")
	queryCmd.Flags().Duration("rate", 0, "minimum interval between S3 requests")
	queryCmd.Flags().Int("burst", 1, "S3 requests allowed at once before rate limiting")
	queryCmd.Flags().String("persist", string(cache.PersistDisk), "cache persistence: disk or none")
	queryCmd.Flags().Duration("ttl", 0, "memory TTL (0 disables expiry)")
	queryCmd.Flags().Int("max-entries", 0, "memory entry limit (0 for no limit)")
	queryCmd.Flags().Bool("compress", false, "zstd-compress cached values")
	queryCmd.Flags().Bool("collapse", false, "share one S3 request between concurrent misses")
	queryCmd.Flags().Bool("metrics", false, "print cache counters to stderr after the queries")

	// Config bindings
	_ = viper.BindPFlag("s3.bucket", queryCmd.Flags().Lookup("bucket"))
	_ = viper.BindPFlag("s3.prefix", queryCmd.Flags().Lookup("prefix"))
	_ = viper.BindPFlag("s3.suffix", queryCmd.Flags().Lookup("suffix"))
	_ = viper.BindPFlag("s3.region", queryCmd.Flags().Lookup("region"))
	_ = viper.BindPFlag("s3.profile", queryCmd.Flags().Lookup("profile"))
	_ = viper.BindPFlag("s3.rate", queryCmd.Flags().Lookup("rate"))
	_ = viper.BindPFlag("s3.burst", queryCmd.Flags().Lookup("burst"))
	_ = viper.BindPFlag("cache.persist", queryCmd.Flags().Lookup("persist"))
	_ = viper.BindPFlag("cache.ttl", queryCmd.Flags().Lookup("ttl"))
	_ = viper.BindPFlag("cache.max_entries", queryCmd.Flags().Lookup("max-entries"))
	_ = viper.BindPFlag("cache.compress", queryCmd.Flags().Lookup("compress"))
	_ = viper.BindPFlag("cache.collapse", queryCmd.Flags().Lookup("collapse"))
	_ = viper.BindPFlag("metrics", queryCmd.Flags().Lookup("metrics"))
}
