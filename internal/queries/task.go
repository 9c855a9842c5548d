package queries

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/amasuba/uraics-revenue-assurance/internal/audit"
	"github.com/amasuba/uraics-revenue-assurance/internal/graph"
	"github.com/amasuba/uraics-revenue-assurance/internal/types"
)

// TaskDetails is a task with its target, assignee, linked risks and the
// number of filings on record for the target.
type TaskDetails struct {
	Task             audit.AuditTask  `json:"task"`
	Taxpayer         audit.Taxpayer   `json:"taxpayer"`
	Auditor          *audit.Auditor   `json:"auditor,omitempty"`
	Risks            []audit.RiskFlag `json:"risks"`
	ITReturnCount    int              `json:"it_return_count"`
	EFRISReturnCount int              `json:"efris_return_count"`
}

// OverdueTask is a task past its due date that is not completed.
type OverdueTask struct {
	audit.AuditTask
	DaysOverdue int `json:"days_overdue"`
}

// TaskStatistics summarises the task board.
type TaskStatistics struct {
	TotalTasks      int                      `json:"total_tasks"`
	ByStatus        map[audit.TaskStatus]int `json:"by_status"`
	CompletionRate  float64                  `json:"completion_rate"`
	TotalExposure   float64                  `json:"total_exposure"`
	AverageExposure float64                  `json:"average_exposure"`
	TotalAuditors   int                      `json:"total_auditors"`
	TasksPerAuditor float64                  `json:"tasks_per_auditor"`
}

// Reassignment reports the outcome of Reassign.
type Reassignment struct {
	TaskID        string `json:"task_id"`
	FromAuditorID string `json:"from_auditor_id,omitempty"`
	ToAuditorID   string `json:"to_auditor_id"`
	ToAuditorName string `json:"to_auditor_name"`
}

// CreateTaskInput describes a new audit task.
type CreateTaskInput struct {
	TaxpayerTIN string    `json:"taxpayer_tin" validate:"required"`
	AuditorID   string    `json:"auditor_id" validate:"required"`
	Name        string    `json:"task_name" validate:"required,max=200"`
	Description string    `json:"description"`
	Priority    string    `json:"priority"`
	DueDate     time.Time `json:"due_date" validate:"required"`
	Exposure    float64   `json:"exposure" validate:"min=0"`
	RiskIDs     []string  `json:"risk_ids"`
	Notes       string    `json:"notes"`
	AssignedBy  string    `json:"assigned_by"`
}

// TaskOption configures TaskQueries.
type TaskOption func(*TaskQueries)

// WithStrictTransitions rejects moving a completed task to another status.
func WithStrictTransitions(strict bool) TaskOption {
	return func(q *TaskQueries) {
		q.strict = strict
	}
}

// WithClock overrides the time source used for stamps and overdue checks.
func WithClock(now func() time.Time) TaskOption {
	return func(q *TaskQueries) {
		q.now = now
	}
}

// TaskQueries manages audit tasks.
//
// Writes on the same task ID are serialized, but only within one
// TaskQueries value: separate processes (two CLI invocations, or a CLI
// next to the server) are not coordinated and the last write wins.
type TaskQueries struct {
	client   graph.GraphClient
	strict   bool
	now      func() time.Time
	validate *validator.Validate

	locksMu sync.Mutex
	locks   map[string]*taskMutex
}

// taskMutex is a per-task lock shared by the writers currently holding or
// waiting on it.
type taskMutex struct {
	sync.Mutex
	refs int
}

// NewTaskQueries creates TaskQueries.
func NewTaskQueries(client graph.GraphClient, opts ...TaskOption) *TaskQueries {
	q := &TaskQueries{
		client:   client,
		now:      time.Now,
		validate: validator.New(),
		locks:    make(map[string]*taskMutex),
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// lockTask locks taskID and returns the release func. The entry is removed
// once the last writer releases it, so the map only holds tasks in flight.
func (q *TaskQueries) lockTask(taskID string) func() {
	q.locksMu.Lock()
	m := q.locks[taskID]
	if m == nil {
		m = &taskMutex{}
		q.locks[taskID] = m
	}
	m.refs++
	q.locksMu.Unlock()

	m.Lock()
	return func() {
		m.Unlock()
		q.locksMu.Lock()
		m.refs--
		if m.refs == 0 {
			delete(q.locks, taskID)
		}
		q.locksMu.Unlock()
	}
}

const taskColumns = `
		RETURN task.TaskID AS task_id, task.TaskName AS task_name, task.Description AS description,
			task.Status AS status, task.Priority AS priority,
			task.AssignedDate AS assigned_date, task.DueDate AS due_date, task.CompletedDate AS completed_date,
			task.ExposureAmount AS exposure, task.ProgressPercent AS progress_percent, task.Notes AS notes,
			a.AuditorID AS auditor_id, a.AuditorName AS auditor_name,
			t.TIN AS taxpayer_tin, t.TaxpayerName AS taxpayer_name,
			risk_ids`

const taskRelations = `
		OPTIONAL MATCH (a:Auditor)-[:ASSIGNED_TO]->(task)
		OPTIONAL MATCH (task)-[:TARGETS]->(t:Taxpayer)
		OPTIONAL MATCH (task)-[:LINKED_TO]->(rf:RiskFlag)
		WITH task, a, t, collect(DISTINCT rf.RiskID) AS risk_ids`

const listTasksCypher = `
		MATCH (task:AuditTask)` + taskRelations + taskColumns + `
		ORDER BY task.DueDate ASC`

const taskByIDCypher = `
		MATCH (task:AuditTask {TaskID: $task_id})` + taskRelations + taskColumns + `
		LIMIT 1`

const tasksByAuditorCypher = `
		MATCH (a:Auditor {AuditorID: $auditor_id})-[:ASSIGNED_TO]->(task:AuditTask)
		OPTIONAL MATCH (task)-[:TARGETS]->(t:Taxpayer)
		OPTIONAL MATCH (task)-[:LINKED_TO]->(rf:RiskFlag)
		WITH task, a, t, collect(DISTINCT rf.RiskID) AS risk_ids` + taskColumns + `
		ORDER BY task.DueDate ASC`

const overdueTasksCypher = `
		MATCH (task:AuditTask)
		WHERE task.DueDate < datetime($now) AND task.Status <> 'Completed'` + taskRelations + taskColumns + `
		ORDER BY task.DueDate ASC`

func recordToTask(r map[string]any) audit.AuditTask {
	priority, err := audit.ParsePriority(toString(r["priority"]))
	if err != nil {
		priority = audit.Priority(toString(r["priority"]))
	}
	return audit.AuditTask{
		ID:              toString(r["task_id"]),
		Name:            toString(r["task_name"]),
		Description:     toString(r["description"]),
		Status:          audit.TaskStatus(toString(r["status"])),
		Priority:        priority,
		AssignedDate:    toTime(r["assigned_date"]),
		DueDate:         toTime(r["due_date"]),
		CompletedDate:   toTime(r["completed_date"]),
		Exposure:        audit.ClampExposure(toFloat64(r["exposure"])),
		ProgressPercent: audit.ClampProgress(toInt(r["progress_percent"])),
		Notes:           toStrings(r["notes"]),
		AuditorID:       toString(r["auditor_id"]),
		AuditorName:     toString(r["auditor_name"]),
		TaxpayerTIN:     toString(r["taxpayer_tin"]),
		TaxpayerName:    toString(r["taxpayer_name"]),
		RiskIDs:         toStrings(r["risk_ids"]),
	}
}

func (q *TaskQueries) tasks(ctx context.Context, cypher string, params map[string]any) ([]audit.AuditTask, error) {
	result, err := q.client.Query(ctx, cypher, params)
	if err != nil {
		return nil, err
	}
	out := make([]audit.AuditTask, 0, len(result.Records))
	for _, r := range result.Records {
		out = append(out, recordToTask(r))
	}
	return out, nil
}

// List returns all tasks ordered by due date.
func (q *TaskQueries) List(ctx context.Context) ([]audit.AuditTask, error) {
	tasks, err := q.tasks(ctx, listTasksCypher, nil)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(tasks, func(i, j int) bool {
		return dueBefore(tasks[i], tasks[j])
	})
	return tasks, nil
}

// ByAuditor returns an auditor's tasks, most urgent priority first and then
// by due date.
func (q *TaskQueries) ByAuditor(ctx context.Context, auditorID string) ([]audit.AuditTask, error) {
	auditorID = strings.TrimSpace(auditorID)
	if auditorID == "" {
		return nil, invalidInput("auditor ID is required")
	}
	tasks, err := q.tasks(ctx, tasksByAuditorCypher, map[string]any{"auditor_id": auditorID})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(tasks, func(i, j int) bool {
		if ri, rj := tasks[i].Priority.Rank(), tasks[j].Priority.Rank(); ri != rj {
			return ri < rj
		}
		return dueBefore(tasks[i], tasks[j])
	})
	return tasks, nil
}

// dueBefore orders tasks by due date; tasks without one sort last.
func dueBefore(a, b audit.AuditTask) bool {
	switch {
	case a.DueDate == nil:
		return false
	case b.DueDate == nil:
		return true
	default:
		return a.DueDate.Before(*b.DueDate)
	}
}

func (q *TaskQueries) load(ctx context.Context, taskID string) (*audit.AuditTask, error) {
	tasks, err := q.tasks(ctx, taskByIDCypher, map[string]any{"task_id": taskID})
	if err != nil {
		return nil, err
	}
	if len(tasks) == 0 {
		return nil, notFound("task", taskID)
	}
	return &tasks[0], nil
}

// Get returns a single task.
func (q *TaskQueries) Get(ctx context.Context, taskID string) (*audit.AuditTask, error) {
	taskID = strings.TrimSpace(taskID)
	if taskID == "" {
		return nil, invalidInput("task ID is required")
	}
	return q.load(ctx, taskID)
}

const taskDetailsCypher = `
		MATCH (task:AuditTask {TaskID: $task_id})
		OPTIONAL MATCH (a:Auditor)-[:ASSIGNED_TO]->(task)
		OPTIONAL MATCH (task)-[:TARGETS]->(t:Taxpayer)
		OPTIONAL MATCH (task)-[:LINKED_TO]->(rf:RiskFlag)
		WITH task, a, t, collect(DISTINCT CASE WHEN rf IS NULL THEN NULL ELSE {
			risk_id: rf.RiskID,
			risk_name: rf.RiskName,
			severity: rf.Severity,
			description: rf.Description
		} END) AS risks
		OPTIONAL MATCH (t)-[:FILED]->(ir:ITReturn)
		WITH task, a, t, risks, count(DISTINCT ir) AS it_return_count
		OPTIONAL MATCH (t)-[:REPORTED]->(er:EFRISReturn)
		WITH task, a, t, risks, it_return_count, count(DISTINCT er) AS efris_return_count,
			[r IN risks | r.risk_id] AS risk_ids` + taskColumns + `,
			a.Email AS auditor_email, a.Phone AS auditor_phone, a.Region AS auditor_region,
			t.Region AS taxpayer_region, t.Sector AS taxpayer_sector, t.ComplianceStatus AS taxpayer_status,
			risks, it_return_count, efris_return_count
		LIMIT 1`

// Details returns the task with its taxpayer, auditor, linked risks and
// filing counts.
func (q *TaskQueries) Details(ctx context.Context, taskID string) (*TaskDetails, error) {
	taskID = strings.TrimSpace(taskID)
	if taskID == "" {
		return nil, invalidInput("task ID is required")
	}

	result, err := q.client.Query(ctx, taskDetailsCypher, map[string]any{"task_id": taskID})
	if err != nil {
		return nil, err
	}
	if result.Empty() {
		return nil, notFound("task", taskID)
	}

	r := result.Records[0]
	details := &TaskDetails{
		Task:             recordToTask(r),
		Taxpayer:         recordToTaxpayer(r, "taxpayer_"),
		ITReturnCount:    toInt(r["it_return_count"]),
		EFRISReturnCount: toInt(r["efris_return_count"]),
	}

	if id := toString(r["auditor_id"]); id != "" {
		details.Auditor = &audit.Auditor{
			ID:     id,
			Name:   toString(r["auditor_name"]),
			Email:  toString(r["auditor_email"]),
			Phone:  toString(r["auditor_phone"]),
			Region: toString(r["auditor_region"]),
		}
	}
	for _, m := range toMaps(r["risks"]) {
		if rf := recordToRiskFlag(m); rf.ID != "" {
			details.Risks = append(details.Risks, rf)
		}
	}
	return details, nil
}

const createTaskCypher = `
		MATCH (t:Taxpayer {TIN: $taxpayer_tin})
		MATCH (a:Auditor {AuditorID: $auditor_id})
		CREATE (task:AuditTask {
			TaskID: $task_id,
			TaskName: $task_name,
			Description: $description,
			Status: $status,
			Priority: $priority,
			AssignedDate: datetime($now),
			DueDate: datetime($due_date),
			ExposureAmount: $exposure,
			ProgressPercent: 0,
			Notes: $notes,
			CreatedDate: datetime($now)
		})
		CREATE (a)-[:ASSIGNED_TO {AssignedDate: datetime($now), AssignedBy: $assigned_by}]->(task)
		CREATE (task)-[:TARGETS {TargetDate: datetime($now)}]->(t)
		WITH task, a, t
		OPTIONAL MATCH (rf:RiskFlag) WHERE rf.RiskID IN $risk_ids
		FOREACH (_ IN CASE WHEN rf IS NULL THEN [] ELSE [1] END |
			CREATE (task)-[:LINKED_TO {LinkedDate: datetime($now)}]->(rf))
		WITH task, a, t, collect(rf.RiskID) AS risk_ids
		RETURN task.TaskID AS task_id, a.AuditorName AS auditor_name,
			t.TaxpayerName AS taxpayer_name, risk_ids`

// Create stores a new task in status Assigned with progress 0, assigned to
// the auditor and targeting the taxpayer. Unknown risk IDs are skipped.
// Returns an ErrCodeNotFound error when the taxpayer or auditor is missing.
func (q *TaskQueries) Create(ctx context.Context, in CreateTaskInput) (*audit.AuditTask, error) {
	in.TaxpayerTIN = strings.TrimSpace(in.TaxpayerTIN)
	in.AuditorID = strings.TrimSpace(in.AuditorID)
	in.Name = strings.TrimSpace(in.Name)
	if err := q.validate.Struct(in); err != nil {
		return nil, types.WrapError(ErrCodeInvalidInput, "invalid task", err)
	}
	priority, err := audit.ParsePriority(in.Priority)
	if err != nil {
		return nil, types.WrapError(ErrCodeInvalidInput, "invalid task", err)
	}

	now := q.now().UTC()
	due := in.DueDate.UTC()
	task := &audit.AuditTask{
		ID:           uuid.New().String(),
		Name:         in.Name,
		Description:  in.Description,
		Status:       audit.TaskStatusAssigned,
		Priority:     priority,
		AssignedDate: &now,
		DueDate:      &due,
		Exposure:     audit.ClampExposure(in.Exposure),
		Notes:        []string{},
		AuditorID:    in.AuditorID,
		TaxpayerTIN:  in.TaxpayerTIN,
	}
	if strings.TrimSpace(in.Notes) != "" {
		task.AppendNote(now, in.Notes)
	}
	riskIDs := in.RiskIDs
	if riskIDs == nil {
		riskIDs = []string{}
	}
	assignedBy := in.AssignedBy
	if assignedBy == "" {
		assignedBy = "system"
	}

	result, err := q.client.Execute(ctx, createTaskCypher, map[string]any{
		"taxpayer_tin": task.TaxpayerTIN,
		"auditor_id":   task.AuditorID,
		"task_id":      task.ID,
		"task_name":    task.Name,
		"description":  task.Description,
		"status":       string(task.Status),
		"priority":     string(task.Priority),
		"now":          now.Format(time.RFC3339),
		"due_date":     due.Format(time.RFC3339),
		"exposure":     task.Exposure,
		"notes":        task.Notes,
		"assigned_by":  assignedBy,
		"risk_ids":     riskIDs,
	})
	if err != nil {
		return nil, err
	}
	if result.Empty() {
		return nil, notFound("taxpayer or auditor", task.TaxpayerTIN+"/"+task.AuditorID)
	}

	r := result.Records[0]
	task.AuditorName = toString(r["auditor_name"])
	task.TaxpayerName = toString(r["taxpayer_name"])
	task.RiskIDs = toStrings(r["risk_ids"])
	return task, nil
}

const updateTaskStateCypher = `
		MATCH (task:AuditTask {TaskID: $task_id})
		SET task.Status = $status,
			task.ProgressPercent = $progress,
			task.CompletedDate = CASE WHEN $completed_date IS NULL THEN task.CompletedDate ELSE datetime($completed_date) END,
			task.Notes = coalesce(task.Notes, []) + $new_notes,
			task.LastUpdated = datetime($now)
		WITH task
		OPTIONAL MATCH (:Auditor)-[assigned:ASSIGNED_TO]->(task)
		FOREACH (r IN CASE WHEN assigned IS NULL THEN [] ELSE [assigned] END |
			SET r.LastStatusChange = datetime($now))
		RETURN DISTINCT task.TaskID AS task_id`

// persist writes the task's status, progress, completion stamp and any new
// notes in one statement.
func (q *TaskQueries) persist(ctx context.Context, task *audit.AuditTask, now time.Time, newNotes []string) error {
	var completed any
	if task.CompletedDate != nil {
		completed = task.CompletedDate.UTC().Format(time.RFC3339)
	}
	if newNotes == nil {
		newNotes = []string{}
	}
	result, err := q.client.Execute(ctx, updateTaskStateCypher, map[string]any{
		"task_id":        task.ID,
		"status":         string(task.Status),
		"progress":       task.ProgressPercent,
		"completed_date": completed,
		"new_notes":      newNotes,
		"now":            now.UTC().Format(time.RFC3339),
	})
	if err != nil {
		return err
	}
	if result.Empty() {
		return notFound("task", task.ID)
	}
	return nil
}

// UpdateStatus moves a task to status, appending note when non-empty.
// Entering Completed sets progress to 100 and stamps the completion date.
func (q *TaskQueries) UpdateStatus(ctx context.Context, taskID string, status audit.TaskStatus, note string) (*audit.AuditTask, error) {
	taskID = strings.TrimSpace(taskID)
	if taskID == "" {
		return nil, invalidInput("task ID is required")
	}
	if err := status.Validate(); err != nil {
		return nil, types.WrapError(ErrCodeInvalidInput, "invalid status", err)
	}

	unlock := q.lockTask(taskID)
	defer unlock()

	task, err := q.load(ctx, taskID)
	if err != nil {
		return nil, err
	}

	now := q.now()
	if err := task.Transition(status, now, q.strict); err != nil {
		return nil, types.WrapError(ErrCodeTransition, "status change rejected", err)
	}

	var added []string
	if strings.TrimSpace(note) != "" {
		added = append(added, task.AppendNote(now, note))
	}
	if err := q.persist(ctx, task, now, added); err != nil {
		return nil, err
	}
	return task, nil
}

// Complete marks a task Completed with an optional completion note.
func (q *TaskQueries) Complete(ctx context.Context, taskID, note string) (*audit.AuditTask, error) {
	if strings.TrimSpace(note) != "" {
		note = "Completed: " + strings.TrimSpace(note)
	}
	return q.UpdateStatus(ctx, taskID, audit.TaskStatusCompleted, note)
}

// UpdateProgress sets the progress percentage, clamped to [0,100].
func (q *TaskQueries) UpdateProgress(ctx context.Context, taskID string, progress int) (*audit.AuditTask, error) {
	taskID = strings.TrimSpace(taskID)
	if taskID == "" {
		return nil, invalidInput("task ID is required")
	}

	unlock := q.lockTask(taskID)
	defer unlock()

	task, err := q.load(ctx, taskID)
	if err != nil {
		return nil, err
	}
	task.SetProgress(progress)
	if err := q.persist(ctx, task, q.now(), nil); err != nil {
		return nil, err
	}
	return task, nil
}

const addTaskNoteCypher = `
		MATCH (task:AuditTask {TaskID: $task_id})
		SET task.Notes = coalesce(task.Notes, []) + $new_notes,
			task.LastUpdated = datetime($now)
		RETURN task.TaskID AS task_id`

// AddNote appends a timestamped note to the task and returns it. Existing
// notes are never rewritten.
func (q *TaskQueries) AddNote(ctx context.Context, taskID, text string) (string, error) {
	taskID = strings.TrimSpace(taskID)
	if taskID == "" {
		return "", invalidInput("task ID is required")
	}
	if strings.TrimSpace(text) == "" {
		return "", invalidInput("note text is required")
	}

	unlock := q.lockTask(taskID)
	defer unlock()

	now := q.now()
	note := audit.FormatNote(now, text)
	result, err := q.client.Execute(ctx, addTaskNoteCypher, map[string]any{
		"task_id":   taskID,
		"new_notes": []string{note},
		"now":       now.UTC().Format(time.RFC3339),
	})
	if err != nil {
		return "", err
	}
	if result.Empty() {
		return "", notFound("task", taskID)
	}
	return note, nil
}

const reassignTaskCypher = `
		MATCH (task:AuditTask {TaskID: $task_id})
		MATCH (next:Auditor {AuditorID: $auditor_id})
		OPTIONAL MATCH (prev:Auditor)-[old:ASSIGNED_TO]->(task)
		WITH task, next, collect(prev.AuditorID) AS previous, collect(old) AS old_assignments
		FOREACH (r IN old_assignments | DELETE r)
		CREATE (next)-[:ASSIGNED_TO {
			AssignedDate: datetime($now),
			ReassignedFrom: head(previous),
			Reason: $reason,
			ReassignedBy: $reassigned_by
		}]->(task)
		SET task.LastUpdated = datetime($now)
		RETURN task.TaskID AS task_id, head(previous) AS from_auditor_id,
			next.AuditorID AS auditor_id, next.AuditorName AS auditor_name`

// Reassign moves a task to another auditor, replacing the current
// assignment and recording where it came from.
func (q *TaskQueries) Reassign(ctx context.Context, taskID, auditorID, reason, by string) (*Reassignment, error) {
	taskID, auditorID = strings.TrimSpace(taskID), strings.TrimSpace(auditorID)
	if taskID == "" || auditorID == "" {
		return nil, invalidInput("task ID and auditor ID are required")
	}
	if by == "" {
		by = "system"
	}

	unlock := q.lockTask(taskID)
	defer unlock()

	result, err := q.client.Execute(ctx, reassignTaskCypher, map[string]any{
		"task_id":       taskID,
		"auditor_id":    auditorID,
		"reason":        reason,
		"reassigned_by": by,
		"now":           q.now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return nil, err
	}
	if result.Empty() {
		return nil, notFound("task or auditor", taskID+"/"+auditorID)
	}

	r := result.Records[0]
	return &Reassignment{
		TaskID:        toString(r["task_id"]),
		FromAuditorID: toString(r["from_auditor_id"]),
		ToAuditorID:   toString(r["auditor_id"]),
		ToAuditorName: toString(r["auditor_name"]),
	}, nil
}

const linkRiskCypher = `
		MATCH (task:AuditTask {TaskID: $task_id})
		MATCH (rf:RiskFlag)
		WHERE toUpper(rf.RiskID) = toUpper($risk_id)
		MERGE (task)-[l:LINKED_TO]->(rf)
		ON CREATE SET l.LinkedDate = datetime($now)
		SET task.LastUpdated = datetime($now)
		RETURN task.TaskID AS task_id, rf.RiskID AS risk_id`

// LinkRisk links a risk flag to a task. Linking twice is a no-op.
func (q *TaskQueries) LinkRisk(ctx context.Context, taskID, riskID string) error {
	taskID, riskID = strings.TrimSpace(taskID), strings.TrimSpace(riskID)
	if taskID == "" || riskID == "" {
		return invalidInput("task ID and risk ID are required")
	}

	unlock := q.lockTask(taskID)
	defer unlock()

	result, err := q.client.Execute(ctx, linkRiskCypher, map[string]any{
		"task_id": taskID,
		"risk_id": riskID,
		"now":     q.now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return err
	}
	if result.Empty() {
		return notFound("task or risk", taskID+"/"+riskID)
	}
	return nil
}

// Overdue returns tasks past due and not completed, most overdue first.
func (q *TaskQueries) Overdue(ctx context.Context) ([]OverdueTask, error) {
	now := q.now()
	tasks, err := q.tasks(ctx, overdueTasksCypher, map[string]any{
		"now": now.UTC().Format(time.RFC3339),
	})
	if err != nil {
		return nil, err
	}

	out := make([]OverdueTask, 0, len(tasks))
	for _, task := range tasks {
		if !task.IsOverdue(now) {
			continue
		}
		out = append(out, OverdueTask{
			AuditTask:   task,
			DaysOverdue: int(now.Sub(*task.DueDate).Hours() / 24),
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].DaysOverdue > out[j].DaysOverdue
	})
	return out, nil
}

const taskStatusCountsCypher = `
		MATCH (task:AuditTask)
		RETURN task.Status AS status, count(task) AS tasks,
			coalesce(sum(task.ExposureAmount), 0) AS exposure`

const auditorCountCypher = `
		MATCH (a:Auditor)
		RETURN count(a) AS auditors`

// Statistics counts tasks per status and derives completion rate, exposure
// totals and workload per auditor.
func (q *TaskQueries) Statistics(ctx context.Context) (*TaskStatistics, error) {
	result, err := q.client.Query(ctx, taskStatusCountsCypher, nil)
	if err != nil {
		return nil, err
	}

	stats := &TaskStatistics{ByStatus: make(map[audit.TaskStatus]int, len(audit.AllTaskStatuses))}
	for _, s := range audit.AllTaskStatuses {
		stats.ByStatus[s] = 0
	}
	for _, r := range result.Records {
		n := toInt(r["tasks"])
		stats.ByStatus[audit.TaskStatus(toString(r["status"]))] += n
		stats.TotalTasks += n
		stats.TotalExposure += toFloat64(r["exposure"])
	}

	auditors, err := q.client.Query(ctx, auditorCountCypher, nil)
	if err != nil {
		return nil, err
	}
	if !auditors.Empty() {
		stats.TotalAuditors = toInt(auditors.Records[0]["auditors"])
	}

	if stats.TotalTasks > 0 {
		completed := stats.ByStatus[audit.TaskStatusCompleted]
		stats.CompletionRate = round(100*float64(completed)/float64(stats.TotalTasks), 1)
		stats.AverageExposure = round(stats.TotalExposure/float64(stats.TotalTasks), 0)
	}
	if stats.TotalAuditors > 0 {
		stats.TasksPerAuditor = round(float64(stats.TotalTasks)/float64(stats.TotalAuditors), 1)
	}
	return stats, nil
}

// auditorWorkload aggregates every auditor's tasks. Auditors without tasks
// are kept with zero counts.
const auditorWorkload = `
		MATCH (a:Auditor)
		OPTIONAL MATCH (a)-[:ASSIGNED_TO]->(task:AuditTask)
		WITH a, count(DISTINCT task) AS assigned_tasks,
			count(DISTINCT CASE WHEN task.Status = 'In Progress' THEN task END) AS in_progress,
			count(DISTINCT CASE WHEN task.Status = 'Completed' THEN task END) AS completed_tasks,
			coalesce(sum(task.ExposureAmount), 0) AS total_exposure
		RETURN a.AuditorID AS auditor_id, a.AuditorName AS auditor_name,
			a.Email AS email, a.Phone AS phone, a.Region AS region,
			assigned_tasks, in_progress, completed_tasks, total_exposure`

const auditorsCypher = auditorWorkload + `
		ORDER BY assigned_tasks ASC, auditor_id ASC`

func recordToAuditor(r map[string]any) audit.Auditor {
	return audit.Auditor{
		ID:            toString(r["auditor_id"]),
		Name:          toString(r["auditor_name"]),
		Email:         toString(r["email"]),
		Phone:         toString(r["phone"]),
		Region:        toString(r["region"]),
		AssignedTasks: toInt(r["assigned_tasks"]),
		InProgress:    toInt(r["in_progress"]),
	}
}

// Auditors lists auditors, least loaded first. Use Auditor.Capacity for the
// workload tier.
func (q *TaskQueries) Auditors(ctx context.Context) ([]audit.Auditor, error) {
	result, err := q.client.Query(ctx, auditorsCypher, nil)
	if err != nil {
		return nil, err
	}
	out := make([]audit.Auditor, 0, len(result.Records))
	for _, r := range result.Records {
		out = append(out, recordToAuditor(r))
	}
	return out, nil
}
