package server

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/zulandar/rds/internal/backup"
	"github.com/zulandar/rds/internal/dispatch"
	"github.com/zulandar/rds/internal/registry"
)

// lifecycleActions are the engine actions the HTTP surface may invoke.
// Connect commands are surfaced as strings only, never executed here.
var lifecycleActions = map[string]bool{
	"start":   true,
	"stop":    true,
	"restart": true,
}

// registerRoutes sets up all control-plane routes on the gin router.
func registerRoutes(router *gin.Engine, opts Opts) {
	router.GET("/", handleIndex())
	router.GET("/index.html", handleIndex())

	api := router.Group("/api")
	api.GET("/engines", handleEngines(opts))
	api.POST("/engines/:name/:action", handleAction(opts))
	api.GET("/engines/:name/backups", handleBackupList(opts))
	api.GET("/engines/:name/connect-info", handleConnectInfo(opts))
	if opts.History != nil {
		api.GET("/history", handleHistory(opts))
	}
}

func handleIndex() gin.HandlerFunc {
	return func(c *gin.Context) {
		data, err := staticFS.ReadFile("static/index.html")
		if err != nil {
			c.String(http.StatusInternalServerError, "dashboard asset missing")
			return
		}
		c.Data(http.StatusOK, "text/html; charset=utf-8", data)
	}
}

// engineView is one row of the GET /api/engines response.
type engineView struct {
	Name           string `json:"name"`
	Description    string `json:"description"`
	Status         string `json:"status"`
	BrowseURL      string `json:"browseUrl,omitempty"`
	ConnectCommand string `json:"connectCommand,omitempty"`
	HasBackup      bool   `json:"hasBackup"`
}

func handleEngines(opts Opts) gin.HandlerFunc {
	return func(c *gin.Context) {
		engines := opts.Registry.List()
		views := make([]engineView, 0, len(engines))
		for _, e := range engines {
			views = append(views, engineView{
				Name:           e.Name,
				Description:    e.Description,
				Status:         opts.Actions.Status(c.Request.Context(), e.Name),
				BrowseURL:      e.BrowseURL,
				ConnectCommand: connectCommand(e),
				HasBackup:      e.HasBackup(),
			})
		}
		c.JSON(http.StatusOK, gin.H{"engines": views})
	}
}

func handleAction(opts Opts) gin.HandlerFunc {
	return func(c *gin.Context) {
		name := c.Param("name")
		action := c.Param("action")

		// Backup endpoints share the /engines/:name/ prefix.
		switch action {
		case "backup":
			handleBackupTrigger(opts)(c)
			return
		case "restore":
			handleRestore(opts)(c)
			return
		}

		if !lifecycleActions[action] {
			c.JSON(http.StatusBadRequest, gin.H{"error": "bad action"})
			return
		}
		if _, err := opts.Actions.Dispatch(c.Request.Context(), name, action); err != nil {
			status, msg := errStatus(err)
			c.JSON(status, gin.H{"error": msg})
			return
		}
		c.JSON(http.StatusOK, gin.H{"ok": true})
	}
}

func handleBackupList(opts Opts) gin.HandlerFunc {
	return func(c *gin.Context) {
		recs, err := opts.Backups.List(c.Param("name"))
		if err != nil {
			status, msg := errStatus(err)
			c.JSON(status, gin.H{"error": msg})
			return
		}
		ids := make([]string, 0, len(recs))
		for _, r := range recs {
			ids = append(ids, r.ID)
		}
		c.JSON(http.StatusOK, gin.H{"backups": ids})
	}
}

func handleBackupTrigger(opts Opts) gin.HandlerFunc {
	return func(c *gin.Context) {
		rec, err := opts.Backups.Backup(c.Request.Context(), c.Param("name"))
		if err != nil {
			status, msg := errStatus(err)
			c.JSON(status, gin.H{"error": msg})
			return
		}
		c.JSON(http.StatusOK, gin.H{"ok": true, "id": rec.ID})
	}
}

func handleRestore(opts Opts) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body struct {
			ID string `json:"id"`
		}
		if err := c.ShouldBindJSON(&body); err != nil || body.ID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "backup id required"})
			return
		}
		res, err := opts.Backups.Restore(c.Request.Context(), c.Param("name"), body.ID)
		if err != nil {
			status, msg := errStatus(err)
			c.JSON(status, gin.H{"error": msg})
			return
		}
		resp := gin.H{"ok": true}
		if res.Warning != "" {
			resp["warning"] = res.Warning
		}
		c.JSON(http.StatusOK, resp)
	}
}

func handleConnectInfo(opts Opts) gin.HandlerFunc {
	return func(c *gin.Context) {
		e, err := opts.Registry.Get(c.Param("name"))
		if err != nil {
			status, msg := errStatus(err)
			c.JSON(status, gin.H{"error": msg})
			return
		}
		c.JSON(http.StatusOK, gin.H{"command": connectCommand(e)})
	}
}

func handleHistory(opts Opts) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, _ := strconv.Atoi(c.Query("limit"))
		recs, err := opts.History.Recent(c.Query("engine"), limit)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"history": recs})
	}
}

// connectCommand renders an engine's connect capability as a display
// string for the client to run locally.
func connectCommand(e *registry.Engine) string {
	return strings.Join(e.Capabilities["connect"], " ")
}

// errStatus maps domain errors to HTTP status codes.
func errStatus(err error) (int, string) {
	var uae *dispatch.UnknownActionError
	var afe *dispatch.ActionFailedError
	switch {
	case errors.Is(err, registry.ErrUnknownEngine),
		errors.Is(err, backup.ErrNotFound),
		errors.Is(err, backup.ErrNotConfigured):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, backup.ErrBusy):
		return http.StatusConflict, err.Error()
	case errors.As(err, &uae):
		return http.StatusBadRequest, err.Error()
	case errors.As(err, &afe):
		return http.StatusBadGateway, err.Error()
	default:
		return http.StatusInternalServerError, err.Error()
	}
}
