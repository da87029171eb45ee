package main

import (
	"fmt"

	"github.com/zulandar/rds/internal/backup"
	"github.com/zulandar/rds/internal/config"
	"github.com/zulandar/rds/internal/dispatch"
	"github.com/zulandar/rds/internal/notify"
	"github.com/zulandar/rds/internal/registry"
	"github.com/zulandar/rds/internal/store"
)

// defaultConfigPath is where commands look for the config file unless
// --config overrides it.
const defaultConfigPath = "/etc/rds/rds.yaml"

// app bundles the collaborators every command needs.
type app struct {
	cfg  *config.Config
	reg  *registry.Registry
	disp *dispatch.Dispatcher
	mgr  *backup.Manager
	st   *store.Store // nil when audit_db is not configured
}

// loadApp builds the registry, dispatcher, and backup manager from the
// config file. The audit store and notifiers are optional and configured
// per deployment.
func loadApp(configPath string) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	reg, err := registry.FromConfig(cfg)
	if err != nil {
		return nil, err
	}

	var st *store.Store
	if cfg.Server.AuditDB != "" {
		st, err = store.Open(cfg.Server.AuditDB)
		if err != nil {
			return nil, err
		}
	}

	notifier, err := buildNotifier(cfg)
	if err != nil {
		return nil, err
	}

	var audit dispatch.Auditor
	if st != nil {
		audit = st
	}
	disp, err := dispatch.New(reg, dispatch.Opts{Audit: audit, Notifier: notifier})
	if err != nil {
		return nil, err
	}

	var backupAudit backup.Auditor
	if st != nil {
		backupAudit = st
	}
	mgr, err := backup.NewManager(reg, backup.Opts{
		Status:   disp,
		Audit:    backupAudit,
		Notifier: notifier,
	})
	if err != nil {
		return nil, err
	}

	return &app{cfg: cfg, reg: reg, disp: disp, mgr: mgr, st: st}, nil
}

// buildNotifier assembles the configured notification fan-out.
func buildNotifier(cfg *config.Config) (notify.Notifier, error) {
	var notifiers notify.Multi
	if cfg.Notify.Slack.BotToken != "" {
		s, err := notify.NewSlack(cfg.Notify.Slack.BotToken, cfg.Notify.Slack.Channel)
		if err != nil {
			return nil, fmt.Errorf("configure slack notifier: %w", err)
		}
		notifiers = append(notifiers, s)
	}
	if cfg.Notify.Discord.BotToken != "" {
		d, err := notify.NewDiscord(cfg.Notify.Discord.BotToken, cfg.Notify.Discord.Channel)
		if err != nil {
			return nil, fmt.Errorf("configure discord notifier: %w", err)
		}
		notifiers = append(notifiers, d)
	}
	if len(notifiers) == 0 {
		return notify.Nop{}, nil
	}
	return notifiers, nil
}
