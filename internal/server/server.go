package server

import (
	"context"
	"errors"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	api "github.com/tabvault/tabvault/internal/api/http"
	"github.com/tabvault/tabvault/internal/browser"
	"github.com/tabvault/tabvault/internal/domain/reconcile"
	"github.com/tabvault/tabvault/internal/domain/snapshot"
	syncdomain "github.com/tabvault/tabvault/internal/domain/sync"
	"github.com/tabvault/tabvault/internal/domain/workspace"
	"github.com/tabvault/tabvault/internal/infrastructure/config"
	"github.com/tabvault/tabvault/internal/infrastructure/logging"
	"github.com/tabvault/tabvault/internal/infrastructure/monitoring"
	"github.com/tabvault/tabvault/internal/scheduler"
	"github.com/tabvault/tabvault/internal/store"
	"github.com/tabvault/tabvault/internal/ws"
)

// Alarm names. Stable across releases: rows in the alarms table outlive the
// process, so renaming one orphans its schedule.
const (
	alarmReconcile    = "reconcile"
	alarmSnapshotGate = "snapshot-gate"
	alarmArchivePrune = "archive-prune"
)

// Server wraps the HTTP surface and the engine's long-running parts.
type Server struct {
	cfg    *config.Config
	log    *logging.Logger
	router *gin.Engine

	store *store.Store
	sched *scheduler.Scheduler

	cancel context.CancelFunc
}

// NewServer opens the store and wires every component.
func NewServer(cfg *config.Config, log *logging.Logger) (*Server, error) {
	st, err := store.Open(cfg.Store.Path)
	if err != nil {
		return nil, err
	}

	metrics := monitoring.NewMetrics()
	prefix := cfg.Sync.DashboardURLPrefix

	listener := syncdomain.NewListener(st, st, prefix, log).WithMetrics(metrics)
	bridge := ws.NewBridge(listener, log).WithMetrics(metrics)

	reconciler := reconcile.New(st, bridge, st, prefix, log).WithMetrics(metrics)
	workspaces := workspace.NewManager(st, bridge, prefix, log).
		WithMetrics(metrics).
		WithBookmarker(bridge)
	snapshots := snapshot.NewManager(st, bridge, st, snapshot.Config{
		Interval:    cfg.Snapshot.Interval,
		RetainCount: cfg.Snapshot.RetainCount,
		MaxAge:      cfg.Snapshot.MaxAge,
	}, prefix, log).WithMetrics(metrics)

	sched := scheduler.New(st, log)
	if err := sched.Register(alarmReconcile, cfg.Sync.ReconcileInterval, func(ctx context.Context) error {
		_, err := reconciler.Run(ctx)
		if errors.Is(err, browser.ErrNotConnected) {
			// Nothing to reconcile against until the extension attaches.
			return nil
		}
		return err
	}); err != nil {
		st.Close()
		return nil, err
	}
	if err := sched.Register(alarmSnapshotGate, cfg.Snapshot.Interval, snapshots.Tick); err != nil {
		st.Close()
		return nil, err
	}
	if cfg.Archive.MaxAge > 0 {
		maxAge := cfg.Archive.MaxAge
		if err := sched.Register(alarmArchivePrune, cfg.Archive.PruneInterval, func(ctx context.Context) error {
			n, err := st.PruneArchivedBefore(time.Now().Add(-maxAge))
			if err != nil {
				return err
			}
			if n > 0 {
				log.Info("Pruned archived rows", zap.Int64("rows", n))
			}
			return nil
		}); err != nil {
			st.Close()
			return nil, err
		}
	}

	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:    []string{"Content-Type", "Content-Length", "Accept-Encoding", "Authorization", "Origin", "Cache-Control"},
	}))
	router.Use(monitoring.Middleware(metrics))

	dispatcher := api.NewDispatcher(workspaces, snapshots, reconciler, log)
	handlers := api.NewHandlers(dispatcher, workspaces, snapshots, metrics)

	router.GET("/health", handlers.Health)
	router.GET("/metrics", handlers.Metrics)

	// Workspaces
	router.GET("/workspaces", handlers.ListWorkspaces)
	router.POST("/workspaces", handlers.CreateWorkspace)
	router.PATCH("/workspaces/:id", handlers.RenameWorkspace)
	router.DELETE("/workspaces/:id", handlers.DeleteWorkspace)
	router.POST("/workspaces/:id/open", handlers.OpenWorkspace)
	router.POST("/workspaces/:id/sort", handlers.SortTabs)
	router.POST("/workspaces/:id/group", handlers.GroupTabs)
	router.POST("/workspaces/:id/ungroup", handlers.UngroupTabs)

	// Snapshots
	router.POST("/snapshots", handlers.CreateSnapshot)
	router.GET("/snapshots", handlers.ListSnapshots)
	router.POST("/snapshots/:id/restore", handlers.RestoreSnapshot)
	router.DELETE("/snapshots/:id", handlers.DeleteSnapshot)

	// Sync
	router.POST("/tabs/refresh", handlers.RefreshTabs)
	router.POST("/groups/:id/convert", handlers.ConvertGroup)

	// Extension bridge
	router.GET("/stream", bridge.HandleConnection)

	return &Server{
		cfg:    cfg,
		log:    log,
		router: router,
		store:  st,
		sched:  sched,
	}, nil
}

// Run starts the scheduler and serves HTTP until the listener fails.
func (s *Server) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	go func() {
		if err := s.sched.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			s.log.Error("Scheduler stopped", zap.Error(err))
		}
	}()

	addr := s.cfg.Server.Host + ":" + s.cfg.Server.Port
	s.log.Info("Starting server", zap.String("addr", addr))
	return s.router.Run(addr)
}

// Close stops the scheduler and closes the store.
func (s *Server) Close() error {
	if s.cancel != nil {
		s.cancel()
	}
	return s.store.Close()
}
