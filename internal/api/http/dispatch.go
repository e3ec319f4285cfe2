package http

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/tabvault/tabvault/internal/browser"
	"github.com/tabvault/tabvault/internal/domain/reconcile"
	"github.com/tabvault/tabvault/internal/domain/snapshot"
	"github.com/tabvault/tabvault/internal/domain/workspace"
	"github.com/tabvault/tabvault/internal/infrastructure/logging"
	"github.com/tabvault/tabvault/internal/shared/types"
	"github.com/tabvault/tabvault/internal/store"
)

// Dispatcher routes commands to domain managers. The type switch is
// exhaustive over the command union.
type Dispatcher struct {
	workspaces *workspace.Manager
	snapshots  *snapshot.Manager
	reconciler *reconcile.Reconciler
	log        *logging.Logger
}

// NewDispatcher creates a dispatcher over the three domain managers.
func NewDispatcher(ws *workspace.Manager, sn *snapshot.Manager, rc *reconcile.Reconciler, log *logging.Logger) *Dispatcher {
	return &Dispatcher{
		workspaces: ws,
		snapshots:  sn,
		reconciler: rc,
		log:        log,
	}
}

// Dispatch executes one command and returns its result envelope. Errors never
// escape: precondition violations and browser failures are folded into the
// envelope so callers always get a per-action outcome.
func (d *Dispatcher) Dispatch(ctx context.Context, cmd types.Command) types.Result {
	switch c := cmd.(type) {
	case types.OpenWorkspace:
		err := d.workspaces.Activate(ctx, c.WorkspaceID, workspace.ActivateOptions{
			SkipTabSwitching: c.SkipTabSwitching,
		})
		return d.result(cmd, nil, err)

	case types.SortTabs:
		return d.result(cmd, nil, d.workspaces.SortTabs(ctx, c.WorkspaceID, c.By))

	case types.GroupTabs:
		return d.result(cmd, nil, d.workspaces.GroupTabs(ctx, c.WorkspaceID, c.By))

	case types.UngroupTabs:
		return d.result(cmd, nil, d.workspaces.UngroupTabs(ctx, c.WorkspaceID))

	case types.CreateSnapshot:
		snap, err := d.snapshots.Create(c.WorkspaceID, c.Reason)
		return d.result(cmd, snap, err)

	case types.RestoreSnapshot:
		return d.result(cmd, nil, d.snapshots.Restore(ctx, c.SnapshotID, c.Mode))

	case types.DeleteSnapshot:
		return d.result(cmd, nil, d.snapshots.Delete(c.SnapshotID))

	case types.RefreshTabs:
		stats, err := d.reconciler.Run(ctx)
		return d.result(cmd, stats, err)

	case types.ConvertTabGroupToResource:
		return d.result(cmd, nil, d.workspaces.ConvertGroupToResource(ctx, c.GroupStableID))

	default:
		return types.Fail(fmt.Sprintf("unhandled command %T", cmd))
	}
}

// expected errors are outcomes the caller can act on; everything else is an
// engine fault worth an error-level log.
var expectedErrs = []error{
	workspace.ErrWorkspaceNotFound,
	workspace.ErrGroupNotFound,
	snapshot.ErrSnapshotNotFound,
	snapshot.ErrNothingToSnapshot,
	snapshot.ErrWorkspaceMismatch,
	browser.ErrNotConnected,
	store.ErrNotFound,
}

func (d *Dispatcher) result(cmd types.Command, data interface{}, err error) types.Result {
	if err == nil {
		return types.Ok(data)
	}
	for _, known := range expectedErrs {
		if errors.Is(err, known) {
			return types.Fail(err.Error())
		}
	}
	d.log.Error("Command failed",
		zap.String("command", fmt.Sprintf("%T", cmd)),
		zap.Error(err),
	)
	return types.Fail(err.Error())
}
