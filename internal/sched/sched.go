// Package sched runs backup schedules in-process for hosts without a
// system timer. The process supervisor remains the primary trigger; this
// covers `rds serve --sched` deployments.
package sched

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/robfig/cron/v3"
	"github.com/zulandar/rds/internal/backup"
	"github.com/zulandar/rds/internal/registry"
)

// cronParser accepts standard 5-field cron expressions, matching the
// config validator.
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// Backuper triggers one backup run. Implemented by backup.Manager.
type Backuper interface {
	Backup(ctx context.Context, engine string) (backup.Record, error)
}

// Scheduler fires backups on each engine's configured cron schedule.
type Scheduler struct {
	cron *cron.Cron
	out  io.Writer
}

// New builds a scheduler with one entry per engine that has an enabled
// backup policy and a non-empty schedule.
func New(reg *registry.Registry, mgr Backuper, out io.Writer) (*Scheduler, error) {
	if reg == nil {
		return nil, fmt.Errorf("sched: registry is required")
	}
	if mgr == nil {
		return nil, fmt.Errorf("sched: backup manager is required")
	}
	if out == nil {
		out = os.Stdout
	}

	c := cron.New(cron.WithParser(cronParser))
	s := &Scheduler{cron: c, out: out}

	for _, e := range reg.List() {
		if !e.HasBackup() || e.Backup.Schedule == "" {
			continue
		}
		name := e.Name
		_, err := c.AddFunc(e.Backup.Schedule, func() {
			rec, err := mgr.Backup(context.Background(), name)
			if err != nil {
				fmt.Fprintf(s.out, "sched: backup %s: %v\n", name, err)
				return
			}
			fmt.Fprintf(s.out, "sched: backup %s completed as %s\n", name, rec.ID)
		})
		if err != nil {
			return nil, fmt.Errorf("sched: schedule for %s: %w", name, err)
		}
	}
	return s, nil
}

// Entries returns the number of scheduled engines.
func (s *Scheduler) Entries() int {
	return len(s.cron.Entries())
}

// Start begins firing schedules. Returns immediately.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts scheduling and waits for any running job to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}
