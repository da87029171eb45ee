package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// writeTestConfig writes a config whose capabilities are plain shell
// utilities, so commands run end to end without any real engine.
func writeTestConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	cfg := `engines:
  - name: postgres
    data_dir: ` + filepath.Join(dir, "pg") + `
    capabilities:
      start: ["true"]
      stop: ["true"]
      restart: ["true"]
      status: ["echo", "active"]
  - name: broken
    data_dir: ` + filepath.Join(dir, "broken") + `
    capabilities:
      start: ["false"]
      stop: ["true"]
      restart: ["true"]
      status: ["false"]
`
	path := filepath.Join(dir, "rds.yaml")
	if err := os.WriteFile(path, []byte(cfg), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func runCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestStartCmd_OneEngine(t *testing.T) {
	cfg := writeTestConfig(t)
	out, err := runCmd(t, "start", "postgres", "--config", cfg)
	if err != nil {
		t.Fatalf("start postgres failed: %v", err)
	}
	if !strings.Contains(out, "start postgres: ok") {
		t.Errorf("output = %q, want start confirmation", out)
	}
}

func TestStartCmd_AllEnginesBestEffort(t *testing.T) {
	cfg := writeTestConfig(t)
	out, err := runCmd(t, "start", "--config", cfg)
	if err == nil {
		t.Fatal("expected error when one engine fails to start")
	}
	if !strings.Contains(out, "start postgres: ok") {
		t.Errorf("output = %q, want postgres to succeed despite broken failing", out)
	}
	if !strings.Contains(err.Error(), "1 of 2") {
		t.Errorf("err = %v, want failure summary naming 1 of 2 engines", err)
	}
	if !strings.Contains(err.Error(), "broken") {
		t.Errorf("err = %v, want failed engine named", err)
	}
}

func TestStartCmd_UnknownEngine(t *testing.T) {
	cfg := writeTestConfig(t)
	_, err := runCmd(t, "start", "nosuch", "--config", cfg)
	if err == nil {
		t.Fatal("expected error for unknown engine")
	}
	if !strings.Contains(err.Error(), "postgres") {
		t.Errorf("err = %v, want known engines listed", err)
	}
}

func TestStartCmd_MissingConfig(t *testing.T) {
	_, err := runCmd(t, "start", "postgres", "--config", "/nonexistent/rds.yaml")
	if err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestStatusCmd_AllEngines(t *testing.T) {
	cfg := writeTestConfig(t)
	out, err := runCmd(t, "status", "--config", cfg)
	if err != nil {
		t.Fatalf("status failed: %v", err)
	}
	if !strings.Contains(out, "postgres") || !strings.Contains(out, "active") {
		t.Errorf("output = %q, want postgres reported active", out)
	}
	if !strings.Contains(out, "broken") || !strings.Contains(out, "inactive") {
		t.Errorf("output = %q, want broken reported inactive", out)
	}
}

func TestStatusCmd_SingleEngine(t *testing.T) {
	cfg := writeTestConfig(t)
	out, err := runCmd(t, "status", "postgres", "--config", cfg)
	if err != nil {
		t.Fatalf("status postgres failed: %v", err)
	}
	if strings.Contains(out, "broken") {
		t.Errorf("output = %q, should only cover the named engine", out)
	}
}

func TestHistoryCmd_RequiresAuditDB(t *testing.T) {
	cfg := writeTestConfig(t)
	_, err := runCmd(t, "history", "--config", cfg)
	if err == nil {
		t.Fatal("expected error when audit_db is not configured")
	}
	if !strings.Contains(err.Error(), "audit_db") {
		t.Errorf("err = %v, want audit_db mentioned", err)
	}
}
