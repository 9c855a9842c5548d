package main

import (
	"strconv"

	"github.com/spf13/cobra"

	"github.com/amasuba/uraics-revenue-assurance/cmd/tatis/internal"
	"github.com/amasuba/uraics-revenue-assurance/internal/queries"
)

var auditorCmd = &cobra.Command{
	Use:   "auditor",
	Short: "Inspect auditors and their workload",
}

var auditorListCmd = &cobra.Command{
	Use:   "list",
	Short: "List auditors, least loaded first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withTasks(cmd, func(a *app, q *queries.TaskQueries) error {
			auditors, err := q.Auditors(cmd.Context())
			if err != nil {
				return err
			}
			out := formatter(cmd)
			if globalFlags.GetOutputFormat() == internal.FormatJSON {
				return out.PrintJSON(auditors)
			}
			if len(auditors) == 0 {
				return out.PrintSuccess("No auditors found")
			}
			rows := make([][]string, 0, len(auditors))
			for _, au := range auditors {
				rows = append(rows, []string{
					au.ID, au.Name, au.Region,
					strconv.Itoa(au.AssignedTasks), strconv.Itoa(au.InProgress),
					au.Capacity(),
				})
			}
			return out.PrintTable([]string{"id", "name", "region", "tasks", "in progress", "capacity"}, rows)
		})
	},
}

func init() {
	auditorCmd.AddCommand(auditorListCmd)
}
