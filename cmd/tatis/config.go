package main

import (
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/amasuba/uraics-revenue-assurance/cmd/tatis/internal"
	"github.com/amasuba/uraics-revenue-assurance/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration with secrets redacted",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadedConfig.Redacted()
		if globalFlags.GetOutputFormat() == internal.FormatJSON {
			return formatter(cmd).PrintJSON(cfg)
		}
		enc := yaml.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(cfg)
	},
}

var configValidateCmd = &cobra.Command{
	Use:   "validate [path]",
	Short: "Validate a configuration file",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := configPath(globalFlags)
		if len(args) == 1 {
			path = args[0]
		}
		if _, err := config.NewConfigLoader(config.NewValidator()).Load(path); err != nil {
			return internal.WrapError(internal.ExitConfigError, "configuration is invalid", err)
		}
		return formatter(cmd).PrintSuccess(path + " is valid")
	},
}

func init() {
	configCmd.AddCommand(configShowCmd, configValidateCmd)
}
