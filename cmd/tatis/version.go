package main

import (
	"github.com/spf13/cobra"

	"github.com/amasuba/uraics-revenue-assurance/cmd/tatis/internal"
	"github.com/amasuba/uraics-revenue-assurance/pkg/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	RunE: func(cmd *cobra.Command, args []string) error {
		if globalFlags.GetOutputFormat() == internal.FormatJSON {
			return formatter(cmd).PrintJSON(version.Info())
		}
		cmd.Println(version.String())
		return nil
	},
}
