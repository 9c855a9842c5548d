package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/amasuba/uraics-revenue-assurance/cmd/tatis/internal"
	"github.com/amasuba/uraics-revenue-assurance/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "tatis",
	Short: "TATIS - Tax Audit Intelligent Search",
	Long: `TATIS answers free-text questions about taxpayers, risk flags and
audit work held in the revenue-assurance graph.

Run 'tatis chat' for an interactive session or 'tatis ask' for a single
question. The taxpayer, task, auditor and dashboard commands expose the
same queries directly.`,
	PersistentPreRunE: loadConfig,
	SilenceUsage:      true,
	SilenceErrors:     true,
}

// loadedConfig is set by loadConfig for every command that needs it.
var loadedConfig *config.Config

// Execute runs the root command with signal handling
func Execute(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	return rootCmd.ExecuteContext(ctx)
}

// skipConfig lists commands that run without a loaded configuration.
var skipConfig = map[string]bool{
	"version":    true,
	"help":       true,
	"completion": true,
	"validate":   true,
}

// loadConfig is called before any command runs to load configuration
func loadConfig(cmd *cobra.Command, args []string) error {
	flags, err := ParseGlobalFlags(cmd)
	if err != nil {
		return err
	}
	if skipConfig[cmd.Name()] {
		return nil
	}

	path := configPath(flags)
	if _, err := os.Stat(path); os.IsNotExist(err) && flags.IsVerbose() {
		cmd.PrintErrf("Config file not found at %s, using defaults\n", path)
	}

	cfg, err := config.NewConfigLoader(config.NewValidator()).LoadWithDefaults(path)
	if err != nil {
		return internal.WrapError(internal.ExitConfigError, "failed to load configuration", err)
	}
	if flags.IsVerbose() {
		cfg.Logging.Level = "debug"
	}
	loadedConfig = cfg
	return nil
}

func configPath(flags *GlobalFlags) string {
	if flags.ConfigFile != "" {
		return flags.ConfigFile
	}
	homeDir := flags.HomeDir
	if homeDir == "" {
		homeDir = config.DefaultHomeDir()
	}
	return config.DefaultConfigPath(homeDir)
}

func init() {
	RegisterGlobalFlags(rootCmd)

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(taxpayerCmd)
	rootCmd.AddCommand(taskCmd)
	rootCmd.AddCommand(auditorCmd)
	rootCmd.AddCommand(dashboardCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(serveCmd)
}
