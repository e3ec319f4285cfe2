package types

// Command is the closed union of requests the presentation layer can issue.
// Every variant embeds nothing and implements the unexported marker so the
// dispatcher's type switch is exhaustive by construction: adding a variant
// without a dispatch arm fails review, not runtime string matching.
type Command interface {
	isCommand()
}

// SortCriterion selects the ordering for SortTabs.
type SortCriterion string

const (
	SortByHost  SortCriterion = "host"
	SortByTitle SortCriterion = "title"
)

// OpenWorkspace archives the current workspace and materializes the target.
type OpenWorkspace struct {
	WorkspaceID      int64 `json:"workspace_id"`
	SkipTabSwitching bool  `json:"skip_tab_switching"`
}

// SortTabs reorders the workspace's live tabs in place, per window.
type SortTabs struct {
	WorkspaceID int64         `json:"workspace_id"`
	By          SortCriterion `json:"by"`
}

// GroupTabs groups the workspace's live tabs per window, bucketed by the
// given criterion.
type GroupTabs struct {
	WorkspaceID int64         `json:"workspace_id"`
	By          SortCriterion `json:"by"`
}

// UngroupTabs dissolves all live groups of the workspace.
type UngroupTabs struct {
	WorkspaceID int64 `json:"workspace_id"`
}

// CreateSnapshot captures the workspace's active tab/group set.
type CreateSnapshot struct {
	WorkspaceID int64          `json:"workspace_id"`
	Reason      SnapshotReason `json:"reason"`
}

// RestoreSnapshot applies a snapshot in append or replace mode.
type RestoreSnapshot struct {
	SnapshotID string      `json:"snapshot_id"`
	Mode       RestoreMode `json:"mode"`
}

// DeleteSnapshot removes a snapshot header and its child rows.
type DeleteSnapshot struct {
	SnapshotID string `json:"snapshot_id"`
}

// RefreshTabs triggers an on-demand reconciliation pass.
type RefreshTabs struct{}

// ConvertTabGroupToResource hands a group's tabs to the bookmarking
// collaborator and archives the group.
type ConvertTabGroupToResource struct {
	GroupStableID string `json:"group_stable_id"`
}

func (OpenWorkspace) isCommand()             {}
func (SortTabs) isCommand()                  {}
func (GroupTabs) isCommand()                 {}
func (UngroupTabs) isCommand()               {}
func (CreateSnapshot) isCommand()            {}
func (RestoreSnapshot) isCommand()           {}
func (DeleteSnapshot) isCommand()            {}
func (RefreshTabs) isCommand()               {}
func (ConvertTabGroupToResource) isCommand() {}

// Result is the envelope every command returns. Precondition violations are
// carried in Reason rather than raised, so the presentation layer can report
// per-action outcomes.
type Result struct {
	Success bool        `json:"success"`
	Reason  string      `json:"reason,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// Ok builds a success result with optional payload.
func Ok(data interface{}) Result {
	return Result{Success: true, Data: data}
}

// Fail builds a failure result with a caller-facing reason.
func Fail(reason string) Result {
	return Result{Success: false, Reason: reason}
}
