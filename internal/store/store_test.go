package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/zulandar/rds/internal/models"
)

func openTest(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return s
}

func TestAppend_And_Recent(t *testing.T) {
	s := openTest(t)

	recs := []models.OpRecord{
		{Engine: "postgres", Action: "start", Status: models.OpStatusOK, StartedAt: time.Now()},
		{Engine: "typedb", Action: "backup", Status: models.OpStatusFailed, Detail: "exit 1", StartedAt: time.Now()},
		{Engine: "postgres", Action: "stop", Status: models.OpStatusOK, StartedAt: time.Now()},
	}
	for _, r := range recs {
		if err := s.Append(r); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	all, err := s.Recent("", 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("len(all) = %d, want 3", len(all))
	}
	// Newest first.
	if all[0].Action != "stop" {
		t.Errorf("all[0].Action = %q, want stop", all[0].Action)
	}

	pg, err := s.Recent("postgres", 10)
	if err != nil {
		t.Fatalf("Recent(postgres): %v", err)
	}
	if len(pg) != 2 {
		t.Fatalf("len(pg) = %d, want 2", len(pg))
	}
	for _, r := range pg {
		if r.Engine != "postgres" {
			t.Errorf("Engine = %q, want postgres", r.Engine)
		}
	}
}

func TestRecent_Limit(t *testing.T) {
	s := openTest(t)
	for i := 0; i < 5; i++ {
		if err := s.Append(models.OpRecord{Engine: "pg", Action: "status", Status: models.OpStatusOK}); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}
	got, err := s.Recent("", 2)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("len = %d, want 2", len(got))
	}
}

func TestOpen_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rds.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := s.Append(models.OpRecord{Engine: "pg", Action: "start", Status: models.OpStatusOK}); err != nil {
		t.Fatalf("Append: %v", err)
	}

	// Reopen and read back.
	s2, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	got, err := s2.Recent("", 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != 1 {
		t.Errorf("len = %d, want 1 after reopen", len(got))
	}
}
