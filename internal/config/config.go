// Package config provides YAML-based configuration loading for RDS.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

// cronParser accepts standard 5-field cron expressions (minute, hour, dom, month, dow).
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// Config is the top-level RDS configuration, loaded from rds.yaml.
type Config struct {
	Server  ServerConfig   `yaml:"server"`
	Notify  NotifyConfig   `yaml:"notify"`
	Engines []EngineConfig `yaml:"engines"`
}

// ServerConfig holds settings for the control-plane HTTP server.
type ServerConfig struct {
	Host           string   `yaml:"host"`
	Port           int      `yaml:"port"`
	AuthUser       string   `yaml:"auth_user"`
	PasswordFile   string   `yaml:"password_file"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	AuditDB        string   `yaml:"audit_db"`
}

// NotifyConfig holds optional chat notification settings.
type NotifyConfig struct {
	Slack   SlackConfig   `yaml:"slack"`
	Discord DiscordConfig `yaml:"discord"`
}

// SlackConfig holds Slack notification credentials.
type SlackConfig struct {
	BotToken string `yaml:"bot_token"`
	Channel  string `yaml:"channel"`
}

// DiscordConfig holds Discord notification credentials.
type DiscordConfig struct {
	BotToken string `yaml:"bot_token"`
	Channel  string `yaml:"channel"`
}

// EngineConfig describes one managed database engine instance.
type EngineConfig struct {
	Name          string              `yaml:"name"`
	Port          int                 `yaml:"port"`
	DataDir       string              `yaml:"data_dir"`
	ListenAddress string              `yaml:"listen_address"`
	Description   string              `yaml:"description"`
	BrowseURL     string              `yaml:"browse_url"`
	ExtraEnv      map[string]string   `yaml:"extra_env"`
	Capabilities  map[string][]string `yaml:"capabilities"`
	Backup        *BackupPolicy       `yaml:"backup"`
}

// BackupPolicy configures backup behavior for one engine.
type BackupPolicy struct {
	Enabled   bool   `yaml:"enabled"`
	Schedule  string `yaml:"schedule"`
	Keep      int    `yaml:"keep"`
	Directory string `yaml:"directory"`
}

// requiredCapabilities are the action keys every engine must provide.
var requiredCapabilities = []string{"start", "stop", "restart", "status"}

func isRequiredCapability(action string) bool {
	for _, a := range requiredCapabilities {
		if a == action {
			return true
		}
	}
	return false
}

// Load reads a YAML config file from path and returns a validated Config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse unmarshals YAML bytes into a validated Config.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	cfg.applyDefaults()
	cfg.applyEnv()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyDefaults fills in derived and default values.
func (c *Config) applyDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = "127.0.0.1"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8765
	}
	if c.Server.AuthUser == "" {
		c.Server.AuthUser = "rds"
	}
	for i := range c.Engines {
		e := &c.Engines[i]
		if e.ListenAddress == "" {
			e.ListenAddress = "127.0.0.1"
		}
		if e.Backup != nil {
			if e.Backup.Keep == 0 {
				e.Backup.Keep = 7
			}
			if e.Backup.Directory == "" && e.DataDir != "" {
				e.Backup.Directory = filepath.Join(e.DataDir, "backups")
			}
		}
	}
}

// applyEnv overlays the environment surface onto the config: the
// RDS_DASHBOARD_* server variables plus the per-engine
// RDS_BROWSE_<name> / RDS_CONNECT_<name> pair (dashes in the engine name
// become underscores). Set variables win over YAML values.
func (c *Config) applyEnv() {
	if v := os.Getenv("RDS_DASHBOARD_HOST"); v != "" {
		c.Server.Host = v
	}
	if v := os.Getenv("RDS_DASHBOARD_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			c.Server.Port = p
		}
	}
	if v := os.Getenv("RDS_DASHBOARD_AUTH_USER"); v != "" {
		c.Server.AuthUser = v
	}
	if v := os.Getenv("RDS_DASHBOARD_PASSWORD_FILE"); v != "" {
		c.Server.PasswordFile = v
	}
	if v := os.Getenv("RDS_DASHBOARD_ALLOWED_ORIGINS"); v != "" {
		var origins []string
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
		c.Server.AllowedOrigins = origins
	}
	for i := range c.Engines {
		e := &c.Engines[i]
		key := strings.ReplaceAll(e.Name, "-", "_")
		if v := os.Getenv("RDS_BROWSE_" + key); v != "" {
			e.BrowseURL = v
		}
		if v := os.Getenv("RDS_CONNECT_" + key); v != "" {
			if e.Capabilities == nil {
				e.Capabilities = make(map[string][]string)
			}
			e.Capabilities["connect"] = strings.Fields(v)
		}
	}
}

// validate checks that all required fields are present and consistent.
func (c *Config) validate() error {
	var errs []string
	if len(c.Engines) == 0 {
		errs = append(errs, "at least one engine is required")
	}
	seen := make(map[string]bool)
	for i, e := range c.Engines {
		prefix := fmt.Sprintf("engines[%d]", i)
		if e.Name == "" {
			errs = append(errs, prefix+".name is required")
		} else {
			if seen[e.Name] {
				errs = append(errs, fmt.Sprintf("%s.name %q is duplicated", prefix, e.Name))
			}
			seen[e.Name] = true
		}
		if e.Port < 0 || e.Port > 65535 {
			errs = append(errs, fmt.Sprintf("%s.port %d is out of range", prefix, e.Port))
		}
		if e.DataDir == "" {
			errs = append(errs, prefix+".data_dir is required")
		} else if !filepath.IsAbs(e.DataDir) {
			errs = append(errs, fmt.Sprintf("%s.data_dir %q must be absolute", prefix, e.DataDir))
		}
		for _, action := range requiredCapabilities {
			if len(e.Capabilities[action]) == 0 {
				errs = append(errs, fmt.Sprintf("%s.capabilities.%s is required", prefix, action))
			}
		}
		for action, argv := range e.Capabilities {
			if action == "" {
				errs = append(errs, prefix+".capabilities has an empty action name")
				continue
			}
			if len(argv) == 0 {
				// Required actions are already reported as missing above.
				if !isRequiredCapability(action) {
					errs = append(errs, fmt.Sprintf("%s.capabilities.%s must not be empty", prefix, action))
				}
				continue
			}
			for _, arg := range argv {
				if arg == "" {
					errs = append(errs, fmt.Sprintf("%s.capabilities.%s contains an empty argument", prefix, action))
					break
				}
			}
		}
		if e.Backup != nil {
			if e.Backup.Keep < 1 {
				errs = append(errs, fmt.Sprintf("%s.backup.keep must be >= 1", prefix))
			}
			if e.Backup.Schedule != "" {
				if _, err := cronParser.Parse(e.Backup.Schedule); err != nil {
					errs = append(errs, fmt.Sprintf("%s.backup.schedule %q: %v", prefix, e.Backup.Schedule, err))
				}
			}
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

// ReadPassword loads the dashboard password from the configured secret
// file. Returns "" (auth disabled) when no file is configured.
func (c *ServerConfig) ReadPassword() (string, error) {
	if c.PasswordFile == "" {
		return "", nil
	}
	data, err := os.ReadFile(c.PasswordFile)
	if err != nil {
		return "", fmt.Errorf("config: read password file %s: %w", c.PasswordFile, err)
	}
	pw, _, _ := strings.Cut(string(data), "\n")
	return strings.TrimSpace(pw), nil
}
