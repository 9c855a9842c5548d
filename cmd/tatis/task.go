package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/amasuba/uraics-revenue-assurance/cmd/tatis/internal"
	"github.com/amasuba/uraics-revenue-assurance/internal/audit"
	"github.com/amasuba/uraics-revenue-assurance/internal/queries"
	"github.com/amasuba/uraics-revenue-assurance/internal/router"
)

const dueDateLayout = "2006-01-02"

var taskCmd = &cobra.Command{
	Use:   "task",
	Short: "Manage audit tasks",
}

var taskListCmd = &cobra.Command{
	Use:   "list",
	Short: "List audit tasks",
	Args:  cobra.NoArgs,
	RunE:  runTaskList,
}

var taskShowCmd = &cobra.Command{
	Use:   "show <task-id>",
	Short: "Show a task with its taxpayer, auditor and linked risks",
	Args:  cobra.ExactArgs(1),
	RunE:  runTaskShow,
}

var taskCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create an audit task",
	Example: `  tatis task create --tin 1000123456 --auditor AUD001 \
    --name "VAT reconciliation" --due 2026-12-31 --risk R001 --risk R004`,
	Args: cobra.NoArgs,
	RunE: runTaskCreate,
}

var taskStatusCmd = &cobra.Command{
	Use:   "status <task-id> <status>",
	Short: "Move a task to a new status",
	Long: `Move a task to a new status. Accepted values are Assigned, In Progress,
Under Review, On Hold and Completed, in any casing and with spaces,
dashes or underscores between words.`,
	Args: cobra.ExactArgs(2),
	RunE: runTaskStatus,
}

var taskProgressCmd = &cobra.Command{
	Use:   "progress <task-id> <percent>",
	Short: "Set task progress (clamped to 0-100)",
	Args:  cobra.ExactArgs(2),
	RunE:  runTaskProgress,
}

var taskNoteCmd = &cobra.Command{
	Use:   "note <task-id> <text...>",
	Short: "Append a timestamped note to a task",
	Args:  cobra.MinimumNArgs(2),
	RunE:  runTaskNote,
}

var taskReassignCmd = &cobra.Command{
	Use:   "reassign <task-id> <auditor-id>",
	Short: "Reassign a task to another auditor",
	Args:  cobra.ExactArgs(2),
	RunE:  runTaskReassign,
}

var taskLinkCmd = &cobra.Command{
	Use:   "link <task-id> <risk-id>",
	Short: "Link a risk flag to a task",
	Args:  cobra.ExactArgs(2),
	RunE:  runTaskLink,
}

var taskCompleteCmd = &cobra.Command{
	Use:   "complete <task-id>",
	Short: "Mark a task completed",
	Args:  cobra.ExactArgs(1),
	RunE:  runTaskComplete,
}

var taskOverdueCmd = &cobra.Command{
	Use:   "overdue",
	Short: "List tasks past their due date",
	Args:  cobra.NoArgs,
	RunE:  runTaskOverdue,
}

var taskStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Task statistics",
	Args:  cobra.NoArgs,
	RunE:  runTaskStats,
}

var (
	taskListAuditor string

	createInput queries.CreateTaskInput
	createDue   string

	taskStatusNote   string
	taskReassignWhy  string
	taskReassignBy   string
	taskCompleteNote string
)

func init() {
	taskListCmd.Flags().StringVar(&taskListAuditor, "auditor", "", "Only tasks assigned to this auditor")

	f := taskCreateCmd.Flags()
	f.StringVar(&createInput.TaxpayerTIN, "tin", "", "Taxpayer TIN (required)")
	f.StringVar(&createInput.AuditorID, "auditor", "", "Auditor ID (required)")
	f.StringVar(&createInput.Name, "name", "", "Task name (required)")
	f.StringVar(&createInput.Description, "description", "", "Task description")
	f.StringVar(&createInput.Priority, "priority", "", "Critical, High, Medium or Low (default Medium)")
	f.StringVar(&createDue, "due", "", "Due date as YYYY-MM-DD (required)")
	f.Float64Var(&createInput.Exposure, "exposure", 0, "Estimated exposure")
	f.StringSliceVar(&createInput.RiskIDs, "risk", nil, "Risk ID to link (repeatable)")
	f.StringVar(&createInput.Notes, "notes", "", "Initial note")
	f.StringVar(&createInput.AssignedBy, "by", "", "Who assigned the task")
	for _, name := range []string{"tin", "auditor", "name", "due"} {
		_ = taskCreateCmd.MarkFlagRequired(name)
	}

	taskStatusCmd.Flags().StringVar(&taskStatusNote, "note", "", "Note to record with the change")
	taskReassignCmd.Flags().StringVar(&taskReassignWhy, "reason", "", "Reason for the reassignment")
	taskReassignCmd.Flags().StringVar(&taskReassignBy, "by", "", "Who made the reassignment")
	taskCompleteCmd.Flags().StringVar(&taskCompleteNote, "note", "", "Completion note")

	taskCmd.AddCommand(
		taskListCmd,
		taskShowCmd,
		taskCreateCmd,
		taskStatusCmd,
		taskProgressCmd,
		taskNoteCmd,
		taskReassignCmd,
		taskLinkCmd,
		taskCompleteCmd,
		taskOverdueCmd,
		taskStatsCmd,
	)
}

// withTasks opens the app and runs fn with its task queries.
func withTasks(cmd *cobra.Command, fn func(*app, *queries.TaskQueries) error) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(a, a.tasks())
}

func runTaskList(cmd *cobra.Command, args []string) error {
	return withTasks(cmd, func(a *app, q *queries.TaskQueries) error {
		var (
			tasks []audit.AuditTask
			err   error
		)
		if taskListAuditor != "" {
			tasks, err = q.ByAuditor(cmd.Context(), taskListAuditor)
		} else {
			tasks, err = q.List(cmd.Context())
		}
		if err != nil {
			return err
		}
		return printTasks(cmd, a, tasks)
	})
}

func printTasks(cmd *cobra.Command, a *app, tasks []audit.AuditTask) error {
	out := formatter(cmd)
	if globalFlags.GetOutputFormat() == internal.FormatJSON {
		return out.PrintJSON(tasks)
	}
	if len(tasks) == 0 {
		return out.PrintSuccess("No tasks found")
	}
	rows := make([][]string, 0, len(tasks))
	for _, t := range tasks {
		rows = append(rows, []string{
			t.ID,
			t.Name,
			t.TaxpayerTIN,
			t.AuditorID,
			t.Status.String(),
			string(t.Priority),
			formatDate(t.DueDate),
			fmt.Sprintf("%d%%", t.ProgressPercent),
			router.FormatAmount(a.cfg.Router.Currency, t.Exposure),
		})
	}
	return out.PrintTable(
		[]string{"id", "name", "tin", "auditor", "status", "priority", "due", "progress", "exposure"},
		rows,
	)
}

func runTaskShow(cmd *cobra.Command, args []string) error {
	return withTasks(cmd, func(a *app, q *queries.TaskQueries) error {
		d, err := q.Details(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		out := formatter(cmd)
		if globalFlags.GetOutputFormat() == internal.FormatJSON {
			return out.PrintJSON(d)
		}

		t := d.Task
		auditor := "unassigned"
		if d.Auditor != nil {
			auditor = fmt.Sprintf("%s (%s)", d.Auditor.Name, d.Auditor.ID)
		}
		rows := [][]string{
			{"Task", fmt.Sprintf("%s %s", t.ID, t.Name)},
			{"Status", t.Status.String()},
			{"Priority", string(t.Priority)},
			{"Progress", fmt.Sprintf("%d%%", t.ProgressPercent)},
			{"Due", formatDate(t.DueDate)},
			{"Exposure", router.FormatAmount(a.cfg.Router.Currency, t.Exposure)},
			{"Taxpayer", fmt.Sprintf("%s (%s)", d.Taxpayer.Name, d.Taxpayer.TIN)},
			{"Auditor", auditor},
			{"Returns", fmt.Sprintf("%d IT, %d EFRIS", d.ITReturnCount, d.EFRISReturnCount)},
		}
		for _, r := range d.Risks {
			rows = append(rows, []string{"Risk", fmt.Sprintf("%s %s [%s]", r.ID, r.Name, r.Severity)})
		}
		for _, n := range t.Notes {
			rows = append(rows, []string{"Note", n})
		}
		return out.PrintTable([]string{"field", "value"}, rows)
	})
}

func runTaskCreate(cmd *cobra.Command, args []string) error {
	due, err := time.Parse(dueDateLayout, createDue)
	if err != nil {
		return internal.NewCLIError(internal.ExitError, fmt.Sprintf("invalid --due %q (want YYYY-MM-DD)", createDue))
	}
	in := createInput
	in.DueDate = due

	return withTasks(cmd, func(a *app, q *queries.TaskQueries) error {
		task, err := q.Create(cmd.Context(), in)
		if err != nil {
			return err
		}
		return printTask(cmd, task, fmt.Sprintf("Created task %s for %s", task.ID, task.TaxpayerTIN))
	})
}

func runTaskStatus(cmd *cobra.Command, args []string) error {
	status, err := audit.ParseTaskStatus(args[1])
	if err != nil {
		return internal.WrapError(internal.ExitError, "invalid status", err)
	}
	return withTasks(cmd, func(a *app, q *queries.TaskQueries) error {
		task, err := q.UpdateStatus(cmd.Context(), args[0], status, taskStatusNote)
		if err != nil {
			return err
		}
		return printTask(cmd, task, fmt.Sprintf("Task %s is now %s", task.ID, task.Status))
	})
}

func runTaskProgress(cmd *cobra.Command, args []string) error {
	pct, err := strconv.Atoi(strings.TrimSuffix(args[1], "%"))
	if err != nil {
		return internal.NewCLIError(internal.ExitError, fmt.Sprintf("invalid progress %q", args[1]))
	}
	return withTasks(cmd, func(a *app, q *queries.TaskQueries) error {
		task, err := q.UpdateProgress(cmd.Context(), args[0], pct)
		if err != nil {
			return err
		}
		return printTask(cmd, task, fmt.Sprintf("Task %s at %d%%", task.ID, task.ProgressPercent))
	})
}

func runTaskNote(cmd *cobra.Command, args []string) error {
	return withTasks(cmd, func(a *app, q *queries.TaskQueries) error {
		note, err := q.AddNote(cmd.Context(), args[0], strings.Join(args[1:], " "))
		if err != nil {
			return err
		}
		out := formatter(cmd)
		if globalFlags.GetOutputFormat() == internal.FormatJSON {
			return out.PrintJSON(map[string]string{"task_id": args[0], "note": note})
		}
		return out.PrintSuccess(note)
	})
}

func runTaskReassign(cmd *cobra.Command, args []string) error {
	return withTasks(cmd, func(a *app, q *queries.TaskQueries) error {
		re, err := q.Reassign(cmd.Context(), args[0], args[1], taskReassignWhy, taskReassignBy)
		if err != nil {
			return err
		}
		out := formatter(cmd)
		if globalFlags.GetOutputFormat() == internal.FormatJSON {
			return out.PrintJSON(re)
		}
		from := re.FromAuditorID
		if from == "" {
			from = "unassigned"
		}
		return out.PrintSuccess(fmt.Sprintf("Task %s reassigned from %s to %s (%s)", re.TaskID, from, re.ToAuditorName, re.ToAuditorID))
	})
}

func runTaskLink(cmd *cobra.Command, args []string) error {
	return withTasks(cmd, func(a *app, q *queries.TaskQueries) error {
		if err := q.LinkRisk(cmd.Context(), args[0], args[1]); err != nil {
			return err
		}
		return formatter(cmd).PrintSuccess(fmt.Sprintf("Linked risk %s to task %s", args[1], args[0]))
	})
}

func runTaskComplete(cmd *cobra.Command, args []string) error {
	return withTasks(cmd, func(a *app, q *queries.TaskQueries) error {
		task, err := q.Complete(cmd.Context(), args[0], taskCompleteNote)
		if err != nil {
			return err
		}
		return printTask(cmd, task, fmt.Sprintf("Task %s completed", task.ID))
	})
}

func runTaskOverdue(cmd *cobra.Command, args []string) error {
	return withTasks(cmd, func(a *app, q *queries.TaskQueries) error {
		overdue, err := q.Overdue(cmd.Context())
		if err != nil {
			return err
		}
		out := formatter(cmd)
		if globalFlags.GetOutputFormat() == internal.FormatJSON {
			return out.PrintJSON(overdue)
		}
		if len(overdue) == 0 {
			return out.PrintSuccess("No overdue tasks")
		}
		rows := make([][]string, 0, len(overdue))
		for _, t := range overdue {
			rows = append(rows, []string{
				t.ID, t.Name, t.AuditorID, t.Status.String(),
				formatDate(t.DueDate), strconv.Itoa(t.DaysOverdue),
			})
		}
		return out.PrintTable([]string{"id", "name", "auditor", "status", "due", "days overdue"}, rows)
	})
}

func runTaskStats(cmd *cobra.Command, args []string) error {
	return withTasks(cmd, func(a *app, q *queries.TaskQueries) error {
		st, err := q.Statistics(cmd.Context())
		if err != nil {
			return err
		}
		out := formatter(cmd)
		if globalFlags.GetOutputFormat() == internal.FormatJSON {
			return out.PrintJSON(st)
		}
		cur := a.cfg.Router.Currency
		rows := [][]string{
			{"Total tasks", strconv.Itoa(st.TotalTasks)},
		}
		for _, s := range audit.AllTaskStatuses {
			rows = append(rows, []string{s.String(), strconv.Itoa(st.ByStatus[s])})
		}
		rows = append(rows,
			[]string{"Completion rate", fmt.Sprintf("%.1f%%", st.CompletionRate)},
			[]string{"Total exposure", router.FormatAmount(cur, st.TotalExposure)},
			[]string{"Average exposure", router.FormatAmount(cur, st.AverageExposure)},
			[]string{"Auditors", strconv.Itoa(st.TotalAuditors)},
			[]string{"Tasks per auditor", fmt.Sprintf("%.1f", st.TasksPerAuditor)},
		)
		return out.PrintTable([]string{"metric", "value"}, rows)
	})
}

func printTask(cmd *cobra.Command, task *audit.AuditTask, message string) error {
	out := formatter(cmd)
	if globalFlags.GetOutputFormat() == internal.FormatJSON {
		return out.PrintJSON(task)
	}
	return out.PrintSuccess(message)
}

func formatDate(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format(dueDateLayout)
}
