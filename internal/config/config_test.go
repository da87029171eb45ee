package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const fullYAML = `
server:
  host: 0.0.0.0
  port: 9000
  auth_user: admin
  password_file: /etc/rds/dashboard.pw
  allowed_origins: ["http://dash.example.com"]

notify:
  slack:
    bot_token: xoxb-test
    channel: C123

engines:
  - name: postgres
    port: 5432
    data_dir: /var/lib/rds/postgres
    listen_address: 10.0.0.5
    description: PostgreSQL 16
    browse_url: http://localhost:5050
    extra_env:
      PGHOST: /run/rds
    capabilities:
      start: [systemctl, start, rds-postgres.service]
      stop: [systemctl, stop, rds-postgres.service]
      restart: [systemctl, restart, rds-postgres.service]
      status: [systemctl, is-active, rds-postgres.service]
      connect: [psql, -h, /run/rds, -U, rds]
    backup:
      enabled: true
      schedule: "30 3 * * *"
      keep: 5
      directory: /srv/backups/postgres

  - name: typedb
    port: 1729
    data_dir: /var/lib/rds/typedb
    capabilities:
      start: [systemctl, start, rds-typedb.service]
      stop: [systemctl, stop, rds-typedb.service]
      restart: [systemctl, restart, rds-typedb.service]
      status: [systemctl, is-active, rds-typedb.service]
    backup:
      enabled: true
`

const minimalYAML = `
engines:
  - name: redis
    data_dir: /var/lib/rds/redis
    capabilities:
      start: [systemctl, start, rds-redis.service]
      stop: [systemctl, stop, rds-redis.service]
      restart: [systemctl, restart, rds-redis.service]
      status: [systemctl, is-active, rds-redis.service]
`

func TestParse_FullConfig(t *testing.T) {
	cfg, err := Parse([]byte(fullYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("Server.Host = %q, want %q", cfg.Server.Host, "0.0.0.0")
	}
	if cfg.Server.Port != 9000 {
		t.Errorf("Server.Port = %d, want 9000", cfg.Server.Port)
	}
	if cfg.Server.AuthUser != "admin" {
		t.Errorf("Server.AuthUser = %q, want %q", cfg.Server.AuthUser, "admin")
	}
	if len(cfg.Server.AllowedOrigins) != 1 || cfg.Server.AllowedOrigins[0] != "http://dash.example.com" {
		t.Errorf("Server.AllowedOrigins = %v, want [http://dash.example.com]", cfg.Server.AllowedOrigins)
	}
	if cfg.Notify.Slack.Channel != "C123" {
		t.Errorf("Notify.Slack.Channel = %q, want C123", cfg.Notify.Slack.Channel)
	}
	if len(cfg.Engines) != 2 {
		t.Fatalf("len(Engines) = %d, want 2", len(cfg.Engines))
	}

	pg := cfg.Engines[0]
	if pg.Name != "postgres" {
		t.Errorf("Engines[0].Name = %q, want postgres", pg.Name)
	}
	if pg.Port != 5432 {
		t.Errorf("Engines[0].Port = %d, want 5432", pg.Port)
	}
	if pg.ExtraEnv["PGHOST"] != "/run/rds" {
		t.Errorf("Engines[0].ExtraEnv[PGHOST] = %q, want /run/rds", pg.ExtraEnv["PGHOST"])
	}
	if got := pg.Capabilities["connect"]; len(got) != 5 || got[0] != "psql" {
		t.Errorf("Engines[0].Capabilities[connect] = %v, want psql argv", got)
	}
	if pg.Backup == nil || !pg.Backup.Enabled {
		t.Fatal("Engines[0].Backup should be enabled")
	}
	if pg.Backup.Keep != 5 {
		t.Errorf("Engines[0].Backup.Keep = %d, want 5", pg.Backup.Keep)
	}
	if pg.Backup.Directory != "/srv/backups/postgres" {
		t.Errorf("Engines[0].Backup.Directory = %q, want /srv/backups/postgres", pg.Backup.Directory)
	}
}

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse([]byte(minimalYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Host != "127.0.0.1" {
		t.Errorf("Server.Host = %q, want 127.0.0.1", cfg.Server.Host)
	}
	if cfg.Server.Port != 8765 {
		t.Errorf("Server.Port = %d, want 8765", cfg.Server.Port)
	}
	if cfg.Server.AuthUser != "rds" {
		t.Errorf("Server.AuthUser = %q, want rds", cfg.Server.AuthUser)
	}
	if cfg.Engines[0].ListenAddress != "127.0.0.1" {
		t.Errorf("ListenAddress = %q, want 127.0.0.1", cfg.Engines[0].ListenAddress)
	}
}

func TestParse_BackupDefaults(t *testing.T) {
	cfg, err := Parse([]byte(fullYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	td := cfg.Engines[1]
	if td.Backup.Keep != 7 {
		t.Errorf("Backup.Keep default = %d, want 7", td.Backup.Keep)
	}
	want := filepath.Join("/var/lib/rds/typedb", "backups")
	if td.Backup.Directory != want {
		t.Errorf("Backup.Directory default = %q, want %q", td.Backup.Directory, want)
	}
}

func TestParse_ValidationErrors(t *testing.T) {
	cases := []struct {
		name string
		yaml string
		want string
	}{
		{
			name: "no engines",
			yaml: `engines: []`,
			want: "at least one engine is required",
		},
		{
			name: "missing name",
			yaml: `
engines:
  - data_dir: /var/lib/rds/x
    capabilities:
      start: [a]
      stop: [a]
      restart: [a]
      status: [a]
`,
			want: "engines[0].name is required",
		},
		{
			name: "duplicate name",
			yaml: `
engines:
  - name: pg
    data_dir: /var/lib/rds/a
    capabilities: {start: [a], stop: [a], restart: [a], status: [a]}
  - name: pg
    data_dir: /var/lib/rds/b
    capabilities: {start: [a], stop: [a], restart: [a], status: [a]}
`,
			want: `engines[1].name "pg" is duplicated`,
		},
		{
			name: "relative data dir",
			yaml: `
engines:
  - name: pg
    data_dir: var/lib/pg
    capabilities: {start: [a], stop: [a], restart: [a], status: [a]}
`,
			want: "must be absolute",
		},
		{
			name: "missing required capability",
			yaml: `
engines:
  - name: pg
    data_dir: /var/lib/pg
    capabilities: {start: [a], stop: [a], restart: [a]}
`,
			want: "engines[0].capabilities.status is required",
		},
		{
			name: "empty optional capability",
			yaml: `
engines:
  - name: pg
    data_dir: /var/lib/pg
    capabilities: {start: [a], stop: [a], restart: [a], status: [a], connect: []}
`,
			want: "engines[0].capabilities.connect must not be empty",
		},
		{
			name: "empty required capability",
			yaml: `
engines:
  - name: pg
    data_dir: /var/lib/pg
    capabilities: {start: [], stop: [a], restart: [a], status: [a]}
`,
			want: "engines[0].capabilities.start is required",
		},
		{
			name: "port out of range",
			yaml: `
engines:
  - name: pg
    port: 70000
    data_dir: /var/lib/pg
    capabilities: {start: [a], stop: [a], restart: [a], status: [a]}
`,
			want: "port 70000 is out of range",
		},
		{
			name: "keep below one",
			yaml: `
engines:
  - name: pg
    data_dir: /var/lib/pg
    capabilities: {start: [a], stop: [a], restart: [a], status: [a]}
    backup: {enabled: true, keep: -1}
`,
			want: "backup.keep must be >= 1",
		},
		{
			name: "bad schedule",
			yaml: `
engines:
  - name: pg
    data_dir: /var/lib/pg
    capabilities: {start: [a], stop: [a], restart: [a], status: [a]}
    backup: {enabled: true, schedule: "not a cron"}
`,
			want: "backup.schedule",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse([]byte(tc.yaml))
			if err == nil {
				t.Fatal("expected validation error, got nil")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Errorf("error = %q, want it to contain %q", err, tc.want)
			}
		})
	}
}

func TestParse_EnvOverlay(t *testing.T) {
	t.Setenv("RDS_DASHBOARD_HOST", "0.0.0.0")
	t.Setenv("RDS_DASHBOARD_PORT", "7777")
	t.Setenv("RDS_DASHBOARD_AUTH_USER", "ops")
	t.Setenv("RDS_DASHBOARD_ALLOWED_ORIGINS", "http://a, http://b")

	cfg, err := Parse([]byte(minimalYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("Host = %q, want 0.0.0.0", cfg.Server.Host)
	}
	if cfg.Server.Port != 7777 {
		t.Errorf("Port = %d, want 7777", cfg.Server.Port)
	}
	if cfg.Server.AuthUser != "ops" {
		t.Errorf("AuthUser = %q, want ops", cfg.Server.AuthUser)
	}
	if len(cfg.Server.AllowedOrigins) != 2 || cfg.Server.AllowedOrigins[1] != "http://b" {
		t.Errorf("AllowedOrigins = %v, want [http://a http://b]", cfg.Server.AllowedOrigins)
	}
}

func TestParse_EngineEnvOverlay(t *testing.T) {
	t.Setenv("RDS_BROWSE_redis", "http://localhost:8001")
	t.Setenv("RDS_CONNECT_redis", "redis-cli -s /run/rds/redis.sock")

	cfg, err := Parse([]byte(minimalYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	e := cfg.Engines[0]
	if e.BrowseURL != "http://localhost:8001" {
		t.Errorf("BrowseURL = %q, want the env override", e.BrowseURL)
	}
	want := []string{"redis-cli", "-s", "/run/rds/redis.sock"}
	got := e.Capabilities["connect"]
	if len(got) != len(want) {
		t.Fatalf("connect argv = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("connect argv = %v, want %v", got, want)
		}
	}
}

func TestParse_EngineEnvOverlayDashedName(t *testing.T) {
	yaml := strings.ReplaceAll(minimalYAML, "name: redis", "name: redis-cache")
	t.Setenv("RDS_BROWSE_redis_cache", "http://localhost:8002")

	cfg, err := Parse([]byte(yaml))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Engines[0].BrowseURL != "http://localhost:8002" {
		t.Errorf("BrowseURL = %q, want the dash-mapped env override", cfg.Engines[0].BrowseURL)
	}
}

func TestLoad_File(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rds.yaml")
	if err := os.WriteFile(path, []byte(minimalYAML), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Engines[0].Name != "redis" {
		t.Errorf("Engines[0].Name = %q, want redis", cfg.Engines[0].Name)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestReadPassword(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pw")
	if err := os.WriteFile(path, []byte("s3cret\n"), 0o600); err != nil {
		t.Fatalf("write password: %v", err)
	}

	sc := ServerConfig{PasswordFile: path}
	pw, err := sc.ReadPassword()
	if err != nil {
		t.Fatalf("ReadPassword: %v", err)
	}
	if pw != "s3cret" {
		t.Errorf("password = %q, want s3cret", pw)
	}

	none := ServerConfig{}
	pw, err = none.ReadPassword()
	if err != nil || pw != "" {
		t.Errorf("no file: pw=%q err=%v, want empty and nil", pw, err)
	}
}
