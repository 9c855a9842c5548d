package audit

import (
	"fmt"
	"strings"
	"time"
)

// Node labels and relationship types of the audit graph.
const (
	LabelTaxpayer    = "Taxpayer"
	LabelRiskFlag    = "RiskFlag"
	LabelAuditTask   = "AuditTask"
	LabelAuditor     = "Auditor"
	LabelITReturn    = "ITReturn"
	LabelEFRISReturn = "EFRISReturn"

	RelFlaggedBy  = "FLAGGED_BY"
	RelAssignedTo = "ASSIGNED_TO"
	RelTargets    = "TARGETS"
	RelLinkedTo   = "LINKED_TO"
	RelFiled      = "FILED"
	RelReported   = "REPORTED"
)

// NoteTimeLayout prefixes every task note.
const NoteTimeLayout = "2006-01-02 15:04"

// TaskStatus is the progression state of an audit task.
type TaskStatus string

const (
	TaskStatusAssigned    TaskStatus = "Assigned"
	TaskStatusInProgress  TaskStatus = "In Progress"
	TaskStatusUnderReview TaskStatus = "Under Review"
	TaskStatusCompleted   TaskStatus = "Completed"
	TaskStatusOnHold      TaskStatus = "On Hold"
)

// AllTaskStatuses lists statuses in progression order.
var AllTaskStatuses = []TaskStatus{
	TaskStatusAssigned,
	TaskStatusInProgress,
	TaskStatusUnderReview,
	TaskStatusOnHold,
	TaskStatusCompleted,
}

// String returns the string representation of TaskStatus
func (s TaskStatus) String() string {
	return string(s)
}

// Validate checks if the TaskStatus is valid
func (s TaskStatus) Validate() error {
	for _, known := range AllTaskStatuses {
		if s == known {
			return nil
		}
	}
	return fmt.Errorf("invalid task status: %q", s)
}

// ParseTaskStatus accepts any casing and either spaces, dashes or
// underscores between words ("in-progress", "IN_PROGRESS").
func ParseTaskStatus(v string) (TaskStatus, error) {
	norm := strings.NewReplacer("-", " ", "_", " ").Replace(strings.TrimSpace(v))
	for _, known := range AllTaskStatuses {
		if strings.EqualFold(norm, string(known)) {
			return known, nil
		}
	}
	return "", fmt.Errorf("invalid task status: %q", v)
}

// Priority of an audit task.
type Priority string

const (
	PriorityCritical Priority = "Critical"
	PriorityHigh     Priority = "High"
	PriorityMedium   Priority = "Medium"
	PriorityLow      Priority = "Low"
)

// Rank orders priorities Critical first. Unknown values sort last.
func (p Priority) Rank() int {
	switch p {
	case PriorityCritical:
		return 0
	case PriorityHigh:
		return 1
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 3
	default:
		return 4
	}
}

// ParsePriority accepts any casing; empty means Medium.
func ParsePriority(v string) (Priority, error) {
	if strings.TrimSpace(v) == "" {
		return PriorityMedium, nil
	}
	for _, p := range []Priority{PriorityCritical, PriorityHigh, PriorityMedium, PriorityLow} {
		if strings.EqualFold(v, string(p)) {
			return p, nil
		}
	}
	return "", fmt.Errorf("invalid priority: %q", v)
}

// ErrTransitionNotAllowed is returned by Transition in strict mode.
type ErrTransitionNotAllowed struct {
	From TaskStatus
	To   TaskStatus
}

func (e *ErrTransitionNotAllowed) Error() string {
	return fmt.Sprintf("transition %s -> %s is not allowed", e.From, e.To)
}

// AuditTask is a unit of audit work targeting one taxpayer.
type AuditTask struct {
	ID              string     `json:"task_id"`
	Name            string     `json:"task_name"`
	Description     string     `json:"description,omitempty"`
	Status          TaskStatus `json:"status"`
	Priority        Priority   `json:"priority"`
	AssignedDate    *time.Time `json:"assigned_date,omitempty"`
	DueDate         *time.Time `json:"due_date,omitempty"`
	CompletedDate   *time.Time `json:"completed_date,omitempty"`
	Exposure        float64    `json:"exposure"`
	ProgressPercent int        `json:"progress_percent"`
	Notes           []string   `json:"notes,omitempty"`

	AuditorID    string   `json:"auditor_id,omitempty"`
	AuditorName  string   `json:"auditor_name,omitempty"`
	TaxpayerTIN  string   `json:"taxpayer_tin,omitempty"`
	TaxpayerName string   `json:"taxpayer_name,omitempty"`
	RiskIDs      []string `json:"risks_linked,omitempty"`
}

// ClampProgress bounds a progress value to [0,100].
func ClampProgress(p int) int {
	switch {
	case p < 0:
		return 0
	case p > 100:
		return 100
	default:
		return p
	}
}

// SetProgress stores p clamped to [0,100].
func (t *AuditTask) SetProgress(p int) {
	t.ProgressPercent = ClampProgress(p)
}

// Transition moves the task to status to. Without strict, any known status
// is accepted from any other, including Assigned -> Completed. With strict,
// a Completed task cannot be moved anywhere else.
// Entering Completed sets progress to 100 and stamps CompletedDate.
func (t *AuditTask) Transition(to TaskStatus, now time.Time, strict bool) error {
	if err := to.Validate(); err != nil {
		return err
	}
	if strict && t.Status == TaskStatusCompleted && to != TaskStatusCompleted {
		return &ErrTransitionNotAllowed{From: t.Status, To: to}
	}

	t.Status = to
	if to == TaskStatusCompleted {
		t.ProgressPercent = 100
		stamp := now
		t.CompletedDate = &stamp
	}
	return nil
}

// AppendNote adds a timestamped note. Notes are never rewritten.
func (t *AuditTask) AppendNote(now time.Time, text string) string {
	note := FormatNote(now, text)
	t.Notes = append(t.Notes, note)
	return note
}

// FormatNote renders a note line as "[YYYY-MM-DD HH:MM] text".
func FormatNote(now time.Time, text string) string {
	return fmt.Sprintf("[%s] %s", now.Format(NoteTimeLayout), strings.TrimSpace(text))
}

// IsOverdue reports whether the task is past due and not completed.
func (t AuditTask) IsOverdue(now time.Time) bool {
	return t.DueDate != nil && t.DueDate.Before(now) && t.Status != TaskStatusCompleted
}
