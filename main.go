// Package main provides the entry point for the memocache CLI.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/memocache/internal/cache"
	"github.com/mitchellh/go-homedir"
	gap "github.com/muesli/go-app-paths"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"
)

var (
	// Version as provided by goreleaser.
	Version = ""
	// CommitSHA as provided by goreleaser.
	CommitSHA = ""

	configFile string
	cachePath  string
	debug      bool
	isTerminal bool

	rootCmd = &cobra.Command{
		Use:   "memocache",
		Short: "Query S3 through a memory and disk cache",
		Long: paragraph(
			fmt.Sprintf("\nRead query results through a %s, falling back to S3 only on a full miss.", keyword("memory and disk cache")),
		),
		SilenceErrors:    false,
		SilenceUsage:     true,
		TraverseChildren: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return validateOptions()
		},
	}
)

func validateOptions() error {
	// grab config values from Viper
	debug = viper.GetBool("debug")
	if debug {
		log.SetLevel(log.DebugLevel)
	}

	cachePath = expandPath(viper.GetString("cache.path"))
	if cachePath == "" {
		cachePath = cache.DefaultRoot()
	}

	isTerminal = term.IsTerminal(int(os.Stdout.Fd()))
	return nil
}

// cacheConfig builds the cache configuration from flags, environment and the
// config file.
func cacheConfig() (cache.Config, error) {
	cfg := cache.Config{
		Persist:    cache.Persistence(viper.GetString("cache.persist")),
		TTL:        viper.GetDuration("cache.ttl"),
		MaxEntries: viper.GetInt("cache.max_entries"),
		Root:       cachePath,
		Compress:   viper.GetBool("cache.compress"),
		Collapse:   viper.GetBool("cache.collapse"),
	}
	if err := cfg.Validate(); err != nil {
		return cache.Config{}, err
	}
	return cfg, nil
}

// expandPath expands a leading ~ to the user's home directory.
func expandPath(path string) string {
	s, err := homedir.Expand(path)
	if err == nil {
		return s
	}
	return path
}

func main() {
	closer, err := setupLog()
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	err = rootCmd.ExecuteContext(ctx)
	cancel()
	_ = closer()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	tryLoadConfigFromDefaultPlaces()
	if len(CommitSHA) >= 7 {
		vt := rootCmd.VersionTemplate()
		rootCmd.SetVersionTemplate(vt[:len(vt)-1] + " (" + CommitSHA[0:7] + ")\n")
	}
	if Version == "" {
		Version = "unknown (built from source)"
	}
	rootCmd.Version = Version
	rootCmd.InitDefaultCompletionCmd()

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", fmt.Sprintf("config file (default %s)", viper.GetViper().ConfigFileUsed()))
	rootCmd.PersistentFlags().StringVar(&cachePath, "cache-path", "", "disk cache directory (default $CACHE_PATH or ./cache)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "log cache activity")

	// Config bindings
	_ = viper.BindPFlag("cache.path", rootCmd.PersistentFlags().Lookup("cache-path"))
	_ = viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))

	viper.SetDefault("cache.persist", string(cache.PersistDisk))
	viper.SetDefault("cache.ttl", time.Duration(0))
	viper.SetDefault("cache.max_entries", 0)
	viper.SetDefault("cache.compress", false)
	viper.SetDefault("cache.collapse", false)
	viper.SetDefault("s3.suffix", ".csv")
	viper.SetDefault("s3.burst", 1)

	rootCmd.AddCommand(queryCmd, statCmd, purgeCmd, configCmd, manCmd)
}

func tryLoadConfigFromDefaultPlaces() {
	scope := gap.NewScope(gap.User, "memocache")
	dirs, err := scope.ConfigDirs()
	if err != nil {
		fmt.Println("Could not load find configuration directory.")
		os.Exit(1)
	}

	if c := os.Getenv("XDG_CONFIG_HOME"); c != "" {
		dirs = append([]string{filepath.Join(c, "memocache")}, dirs...)
	}

	if c := os.Getenv("MEMOCACHE_CONFIG_HOME"); c != "" {
		dirs = append([]string{c}, dirs...)
	}

	for _, v := range dirs {
		viper.AddConfigPath(v)
	}

	viper.SetConfigName("memocache")
	viper.SetConfigType("yaml")
	viper.SetEnvPrefix("memocache")
	viper.SetEnvKeyReplacer(envKeyReplacer)
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			log.Warn("Could not parse configuration file", "err", err)
		}
	}

	if used := viper.ConfigFileUsed(); used != "" {
		log.Debug("Using configuration file", "path", viper.ConfigFileUsed())
		return
	}

	if viper.ConfigFileUsed() == "" {
		configFile = filepath.Join(dirs[0], "memocache.yml")
	}
	if err := ensureConfigFile(); err != nil {
		log.Error("Could not create default configuration", "error", err)
	}
}
