// Package cli wires the chaptertrans commands.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io/fs"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/MimeLyc/chapter-translator/internal/config"
	"github.com/MimeLyc/chapter-translator/pkg/log"
)

// Version is overridden at build time with -ldflags.
var Version = "dev"

type rootFlags struct {
	cfgFile  string
	envFile  string
	dataDir  string
	logLevel string
	logFile  string

	fileLogger *log.FileLogger
}

// NewRootCommand builds the command tree.
func NewRootCommand() *cobra.Command {
	flags := &rootFlags{}

	rootCmd := &cobra.Command{
		Use:   "chaptertrans",
		Short: "Translate downloaded novel chapters",
		Long: `chaptertrans translates downloaded novel chapters into the configured
target language, preferring installed on-device models and falling back
to an online translation service.

Examples:
  chaptertrans serve                      # run the job queue and HTTP API
  chaptertrans translate 42 --plugin p1 --novel 7
  chaptertrans models download en
  chaptertrans settings set fr`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return loadEnvFile(flags.envFile)
		},
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			if flags.fileLogger != nil {
				return flags.fileLogger.Close()
			}
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&flags.cfgFile, "config", "", "config file (yaml, json or toml)")
	rootCmd.PersistentFlags().StringVar(&flags.envFile, "env-file", ".env", "dotenv file loaded before the config")
	rootCmd.PersistentFlags().StringVar(&flags.dataDir, "data-dir", "", "override DATA_DIR")
	rootCmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "override LOG_LEVEL (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&flags.logFile, "log-file", "", "append logs to this file instead of stdout")

	rootCmd.AddCommand(
		newServeCommand(flags),
		newTranslateCommand(flags),
		newModelsCommand(flags),
		newSettingsCommand(flags),
		newLanguagesCommand(),
		newJobsCommand(flags),
		newLibraryCommand(flags),
	)
	return rootCmd
}

// Execute runs the root command with ctx.
func Execute(ctx context.Context) error {
	return NewRootCommand().ExecuteContext(ctx)
}

// loadEnvFile never overrides variables that are already set.
func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}

func (f *rootFlags) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(f.cfgFile, config.WithDataDir(f.dataDir))
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}
	if f.logLevel != "" {
		cfg.System.LogLevel = f.logLevel
	}
	level := log.ParseLevel(cfg.System.LogLevel)
	if f.logFile == "" {
		log.InitLogger(level)
		return cfg, nil
	}
	fl, err := log.NewFileLogger(f.logFile, level)
	if err != nil {
		return nil, err
	}
	f.fileLogger = fl
	log.SetLogger(fl.Logger)
	return cfg, nil
}
