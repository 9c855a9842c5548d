// Package audit defines the taxpayer/risk/audit domain consumed by the
// router and the task-management commands: taxpayers, risk flags and their
// FLAGGED_BY exposure, returns, auditors and audit tasks.
//
// Invariants held here rather than in the store: exposure is never negative,
// task progress stays in [0,100], and completing a task sets status,
// progress and completion date together.
package audit
