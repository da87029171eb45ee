package sched

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/zulandar/rds/internal/backup"
	"github.com/zulandar/rds/internal/config"
	"github.com/zulandar/rds/internal/registry"
)

type mockBackuper struct {
	mu      sync.Mutex
	engines []string
	err     error
}

func (m *mockBackuper) Backup(ctx context.Context, engine string) (backup.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.engines = append(m.engines, engine)
	return backup.Record{ID: "20260830-031500"}, m.err
}

func testRegistry(t *testing.T, schedules map[string]string) *registry.Registry {
	t.Helper()
	r := registry.New()
	for name, schedule := range schedules {
		e := &registry.Engine{
			Name:    name,
			DataDir: "/var/lib/rds/" + name,
			Capabilities: map[string][]string{
				"start": {"true"}, "stop": {"true"}, "restart": {"true"}, "status": {"true"},
			},
		}
		if schedule != "none" {
			e.Backup = &config.BackupPolicy{Enabled: true, Keep: 3, Schedule: schedule, Directory: "/tmp/b"}
		}
		if err := r.Register(e); err != nil {
			t.Fatalf("Register: %v", err)
		}
	}
	return r
}

func TestNew_OneEntryPerScheduledEngine(t *testing.T) {
	reg := testRegistry(t, map[string]string{
		"postgres": "30 3 * * *",
		"typedb":   "0 4 * * 0",
		"redis":    "",     // enabled but unscheduled
		"plain":    "none", // no backup policy
	})

	s, err := New(reg, &mockBackuper{}, &bytes.Buffer{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if got := s.Entries(); got != 2 {
		t.Errorf("Entries = %d, want 2", got)
	}
}

func TestNew_RejectsNilCollaborators(t *testing.T) {
	reg := testRegistry(t, map[string]string{"postgres": "30 3 * * *"})
	if _, err := New(nil, &mockBackuper{}, nil); err == nil {
		t.Error("expected error for nil registry")
	}
	if _, err := New(reg, nil, nil); err == nil {
		t.Error("expected error for nil manager")
	}
}

func TestScheduledJob_RunsBackup(t *testing.T) {
	reg := testRegistry(t, map[string]string{"postgres": "* * * * *"})
	mgr := &mockBackuper{}
	var out bytes.Buffer
	s, err := New(reg, mgr, &out)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	// Fire the entry directly rather than waiting for the wall clock.
	entries := s.cron.Entries()
	if len(entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(entries))
	}
	entries[0].Job.Run()

	if len(mgr.engines) != 1 || mgr.engines[0] != "postgres" {
		t.Errorf("backups triggered = %v, want [postgres]", mgr.engines)
	}
	if !bytes.Contains(out.Bytes(), []byte("20260830-031500")) {
		t.Errorf("output %q should log the backup id", out.String())
	}
}

func TestScheduledJob_LogsFailure(t *testing.T) {
	reg := testRegistry(t, map[string]string{"postgres": "* * * * *"})
	mgr := &mockBackuper{err: errors.New("disk full")}
	var out bytes.Buffer
	s, err := New(reg, mgr, &out)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	s.cron.Entries()[0].Job.Run()

	if !bytes.Contains(out.Bytes(), []byte("disk full")) {
		t.Errorf("output %q should log the failure", out.String())
	}
}
