package models

import "time"

// SyncStatus is the single current-value status record for a project's sync.
// One row per project, overwritten on every run; mutated only by the
// orchestrator and read by any number of concurrent pollers.
type SyncStatus struct {
	ProjectID int64 `json:"project_id"`
	// Status is a label from the fixed sync vocabulary, or
	// "Failed: <redacted reason>".
	Status string `json:"status"`
	// Progress is 0-100. ProgressFailed (-1) means the run failed and the
	// progress value is not meaningful.
	Progress      int       `json:"progress"`
	LastAttemptAt time.Time `json:"last_attempt_at"`
}

// Status labels written by the orchestrator, in run order.
const (
	SyncStatusStarted        = "Started"
	SyncStatusSyncingTables  = "Syncing tables..."
	SyncStatusTablesSynced   = "Tables synced"
	SyncStatusSyncingColumns = "Syncing columns..."
	SyncStatusColumnsSynced  = "Columns synced"
	SyncStatusSyncingFks     = "Syncing foreign keys..."
	SyncStatusFksSynced      = "Foreign keys synced"
	SyncStatusSyncingProcs   = "Syncing stored procedures..."
	SyncStatusProcsSynced    = "Stored procedures synced"
	SyncStatusAnalyzingDeps  = "Analyzing Dependencies..."
	SyncStatusDetectingFks   = "Detecting logical FKs..."
	SyncStatusCompleted      = "Completed"
	SyncStatusFailedPrefix   = "Failed: "
)

// Progress waypoints. Illustrative checkpoints, not a guarantee of linear
// progress; -1 is the failure sentinel.
const (
	ProgressStarted       = 0
	ProgressSyncingTables = 10
	ProgressTablesSynced  = 33
	ProgressSyncingCols   = 40
	ProgressColumnsSynced = 66
	ProgressSyncingFks    = 67
	ProgressFksSynced     = 70
	ProgressSyncingProcs  = 89
	ProgressProcsSynced   = 90
	ProgressAnalyzing     = 95
	ProgressDetectingFks  = 97
	ProgressCompleted     = 100
	ProgressFailed        = -1
)
