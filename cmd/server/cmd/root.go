package cmd

import (
	"fmt"
	"os"

	"github.com/Togather-Foundation/nko-directory/internal/config"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// rootOptions holds the persistent flags shared by every subcommand.
type rootOptions struct {
	envFile   string
	logLevel  string
	logFormat string
}

// newRootCommand builds a fresh command tree. Tests call it directly so flag
// state never leaks between runs.
func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "server",
		Short: "NKO directory server - directory of non-profits and local events",
		Long: `NKO directory server stores non-profit (НКО) listings and local events,
registers users with bearer-token sessions and accepts moderated listing
submissions.

Run without a subcommand to start the HTTP server.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			config.LoadEnvFile(opts.envFile)
		},
	}

	root.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "dotenv file to load before reading the environment")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level (debug, info, warn, error) (default: info)")
	root.PersistentFlags().StringVar(&opts.logFormat, "log-format", "", "log format (json, console) (default: json)")

	serve := newServeCommand(opts)
	root.RunE = serve.RunE
	root.Flags().AddFlagSet(serve.Flags())

	root.AddCommand(
		serve,
		newMigrateCommand(opts),
		newImportCommand(opts),
		newSeedEventsCommand(opts),
		newModerateCommand(opts),
		newVersionCommand(),
		newHealthcheckCommand(),
	)
	return root
}

// Execute runs the command tree and exits non-zero on failure.
func Execute() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// load reads configuration and applies logging flag overrides.
func (o *rootOptions) load(loadOpts ...config.LoadOption) (config.Config, zerolog.Logger, error) {
	cfg, err := config.Load(loadOpts...)
	if err != nil {
		return config.Config{}, zerolog.Nop(), fmt.Errorf("config error: %w", err)
	}
	if o.logLevel != "" {
		cfg.Logging.Level = o.logLevel
	}
	if o.logFormat != "" {
		cfg.Logging.Format = o.logFormat
	}
	return cfg, config.NewLogger(cfg.Logging), nil
}
