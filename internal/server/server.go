// Package server exposes the engine registry, dispatcher, and backup
// manager over authenticated HTTP for the browser dashboard.
package server

import (
	"context"
	"embed"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/zulandar/rds/internal/backup"
	"github.com/zulandar/rds/internal/dispatch"
	"github.com/zulandar/rds/internal/models"
	"github.com/zulandar/rds/internal/registry"
)

//go:embed static
var staticFS embed.FS

// Actions is the dispatcher surface the server needs. Implemented by
// dispatch.Dispatcher.
type Actions interface {
	Dispatch(ctx context.Context, engine, action string, args ...string) (dispatch.Result, error)
	Status(ctx context.Context, engine string) string
	Resolve(engine, action string, args ...string) ([]string, []string, error)
}

// Backups is the backup manager surface the server needs. Implemented by
// backup.Manager.
type Backups interface {
	Backup(ctx context.Context, engine string) (backup.Record, error)
	List(engine string) ([]backup.Record, error)
	Restore(ctx context.Context, engine, id string) (backup.RestoreResult, error)
}

// History reads the audit log. Implemented by store.Store.
type History interface {
	Recent(engine string, limit int) ([]models.OpRecord, error)
}

// Opts holds configuration for the control-plane server.
type Opts struct {
	Registry *registry.Registry
	Actions  Actions
	Backups  Backups
	History  History // optional; disables /api/history when nil

	Host           string
	Port           int
	AuthUser       string
	Password       string // empty = authentication disabled
	AllowedOrigins []string

	Out io.Writer
}

// Start launches the control-plane HTTP server. It blocks until ctx is
// cancelled, then shuts down gracefully.
func Start(ctx context.Context, opts Opts) error {
	router, err := newRouter(opts)
	if err != nil {
		return err
	}

	addr := fmt.Sprintf("%s:%d", opts.Host, opts.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	// Graceful shutdown on context cancellation.
	go func() {
		<-ctx.Done()
		srv.Shutdown(context.Background())
	}()

	if opts.Out != nil {
		fmt.Fprintf(opts.Out, "Control plane listening on http://%s\n", addr)
		if opts.Password == "" {
			fmt.Fprintf(opts.Out, "Warning: no password configured; anyone who can reach %s controls the fleet\n", addr)
		}
	}

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: %w", err)
	}
	return nil
}

// newRouter builds the gin engine with all middleware and routes.
func newRouter(opts Opts) (*gin.Engine, error) {
	if opts.Registry == nil {
		return nil, fmt.Errorf("server: registry is required")
	}
	if opts.Actions == nil {
		return nil, fmt.Errorf("server: dispatcher is required")
	}
	if opts.Backups == nil {
		return nil, fmt.Errorf("server: backup manager is required")
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(corsMiddleware(opts.AllowedOrigins))
	router.Use(authMiddleware(opts.AuthUser, opts.Password))
	router.Use(originGate(opts.AllowedOrigins))

	registerRoutes(router, opts)
	return router, nil
}
