package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tabvault/tabvault/internal/domain/snapshot"
	"github.com/tabvault/tabvault/internal/domain/workspace"
	"github.com/tabvault/tabvault/internal/infrastructure/monitoring"
	"github.com/tabvault/tabvault/internal/shared/types"
)

// Handlers binds REST routes to the dispatcher and read-side queries.
type Handlers struct {
	dispatcher *Dispatcher
	workspaces *workspace.Manager
	snapshots  *snapshot.Manager
	metrics    *monitoring.Metrics
}

// NewHandlers creates the REST handler set.
func NewHandlers(d *Dispatcher, ws *workspace.Manager, sn *snapshot.Manager, m *monitoring.Metrics) *Handlers {
	return &Handlers{
		dispatcher: d,
		workspaces: ws,
		snapshots:  sn,
		metrics:    m,
	}
}

// Health reports liveness.
func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "tabvault",
	})
}

// Metrics serves the instance's Prometheus registry.
func (h *Handlers) Metrics(c *gin.Context) {
	h.metrics.UpdateUptime()
	promhttp.HandlerFor(h.metrics.Registry(), promhttp.HandlerOpts{}).
		ServeHTTP(c.Writer, c.Request)
}

// ListWorkspaces returns all workspaces, most recently opened first.
func (h *Handlers) ListWorkspaces(c *gin.Context) {
	list, err := h.workspaces.List()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"workspaces": list,
	})
}

// CreateWorkspace creates a named workspace.
func (h *Handlers) CreateWorkspace(c *gin.Context) {
	var req struct {
		Name string `json:"name" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "Invalid request: " + err.Error(),
		})
		return
	}

	ws, err := h.workspaces.Create(req.Name)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"workspace": ws,
	})
}

// RenameWorkspace updates a workspace's name.
func (h *Handlers) RenameWorkspace(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	var req struct {
		Name string `json:"name" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "Invalid request: " + err.Error(),
		})
		return
	}

	if err := h.workspaces.Rename(id, req.Name); err != nil {
		c.JSON(http.StatusOK, types.Fail(err.Error()))
		return
	}
	c.JSON(http.StatusOK, types.Ok(nil))
}

// DeleteWorkspace removes a workspace, re-attributing its live rows.
func (h *Handlers) DeleteWorkspace(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	if err := h.workspaces.Delete(id); err != nil {
		c.JSON(http.StatusOK, types.Fail(err.Error()))
		return
	}
	c.JSON(http.StatusOK, types.Ok(nil))
}

// OpenWorkspace dispatches workspace activation.
func (h *Handlers) OpenWorkspace(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	var req struct {
		SkipTabSwitching bool `json:"skip_tab_switching"`
	}
	// Body is optional; defaults apply when absent.
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"error":   "Invalid request: " + err.Error(),
			})
			return
		}
	}

	res := h.dispatcher.Dispatch(c.Request.Context(), types.OpenWorkspace{
		WorkspaceID:      id,
		SkipTabSwitching: req.SkipTabSwitching,
	})
	c.JSON(http.StatusOK, res)
}

// SortTabs dispatches per-window tab sorting.
func (h *Handlers) SortTabs(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	var req struct {
		By types.SortCriterion `json:"by" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "Invalid request: " + err.Error(),
		})
		return
	}
	if req.By != types.SortByHost && req.By != types.SortByTitle {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "Invalid sort criterion. Must be host or title",
		})
		return
	}

	res := h.dispatcher.Dispatch(c.Request.Context(), types.SortTabs{WorkspaceID: id, By: req.By})
	c.JSON(http.StatusOK, res)
}

// GroupTabs dispatches per-window grouping. The criterion defaults to host
// when the request carries no body.
func (h *Handlers) GroupTabs(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	req := struct {
		By types.SortCriterion `json:"by"`
	}{By: types.SortByHost}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"error":   "Invalid request: " + err.Error(),
			})
			return
		}
		if req.By != types.SortByHost && req.By != types.SortByTitle {
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"error":   "Invalid group criterion. Must be host or title",
			})
			return
		}
	}

	res := h.dispatcher.Dispatch(c.Request.Context(), types.GroupTabs{WorkspaceID: id, By: req.By})
	c.JSON(http.StatusOK, res)
}

// UngroupTabs dispatches group dissolution.
func (h *Handlers) UngroupTabs(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	res := h.dispatcher.Dispatch(c.Request.Context(), types.UngroupTabs{WorkspaceID: id})
	c.JSON(http.StatusOK, res)
}

// CreateSnapshot dispatches a manual snapshot of a workspace.
func (h *Handlers) CreateSnapshot(c *gin.Context) {
	var req struct {
		WorkspaceID int64 `json:"workspace_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "Invalid request: " + err.Error(),
		})
		return
	}

	res := h.dispatcher.Dispatch(c.Request.Context(), types.CreateSnapshot{
		WorkspaceID: req.WorkspaceID,
		Reason:      types.ReasonManual,
	})
	c.JSON(http.StatusOK, res)
}

// ListSnapshots returns a workspace's snapshots, newest first.
func (h *Handlers) ListSnapshots(c *gin.Context) {
	wsID, err := strconv.ParseInt(c.Query("workspace"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "Invalid workspace query parameter",
		})
		return
	}

	list, err := h.snapshots.List(wsID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"snapshots": list,
	})
}

// RestoreSnapshot dispatches a snapshot restore.
func (h *Handlers) RestoreSnapshot(c *gin.Context) {
	var req struct {
		Mode types.RestoreMode `json:"mode" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "Invalid request: " + err.Error(),
		})
		return
	}
	if req.Mode != types.RestoreAppend && req.Mode != types.RestoreReplace {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "Invalid mode. Must be append or replace",
		})
		return
	}

	res := h.dispatcher.Dispatch(c.Request.Context(), types.RestoreSnapshot{
		SnapshotID: c.Param("id"),
		Mode:       req.Mode,
	})
	c.JSON(http.StatusOK, res)
}

// DeleteSnapshot dispatches snapshot deletion.
func (h *Handlers) DeleteSnapshot(c *gin.Context) {
	res := h.dispatcher.Dispatch(c.Request.Context(), types.DeleteSnapshot{
		SnapshotID: c.Param("id"),
	})
	c.JSON(http.StatusOK, res)
}

// RefreshTabs dispatches an on-demand reconciliation pass.
func (h *Handlers) RefreshTabs(c *gin.Context) {
	res := h.dispatcher.Dispatch(c.Request.Context(), types.RefreshTabs{})
	c.JSON(http.StatusOK, res)
}

// ConvertGroup dispatches group-to-resource conversion by stable id.
func (h *Handlers) ConvertGroup(c *gin.Context) {
	res := h.dispatcher.Dispatch(c.Request.Context(), types.ConvertTabGroupToResource{
		GroupStableID: c.Param("id"),
	})
	c.JSON(http.StatusOK, res)
}

// pathID parses the :id path parameter, writing a 400 on failure.
func (h *Handlers) pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "Invalid workspace id",
		})
		return 0, false
	}
	return id, true
}
