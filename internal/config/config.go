// Package config loads a trustee process's configuration from TOML, with a
// small set of environment variable overrides for values an operator needs
// to flip per-deployment without editing the file. Overrides cover
// non-secret settings only; a trustee's signing key lives in its own file,
// not an env var.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"

	"github.com/braidnet/trustee/internal/auditlog"
	"github.com/braidnet/trustee/pkg/wire"
)

// Trustee is one trustee process's full configuration.
type Trustee struct {
	// Name is the trustee's human-readable name, used only in log lines.
	Name           string `toml:"name"`
	Self           int    `toml:"self"`
	PrivateKeyPath string `toml:"private_key_path"`
	BoardURL       string `toml:"board_url"`

	// ProtocolManagerPublicKeyPath names the file holding the protocol
	// manager's marshaled verification key, the trust root a trustee
	// checks every Configuration and Ballots message's sender against
	// (§4.2, §6.4 "protocol-manager config file").
	ProtocolManagerPublicKeyPath string `toml:"protocol_manager_public_key_path"`

	StorePath string `toml:"store_path"`

	Strict       bool   `toml:"strict"`
	StepInterval string `toml:"step_interval"`
	Pools        int    `toml:"pools"`
	Concurrency  int64  `toml:"concurrency"`

	// IgnoreBoards excludes boards by name from the coordinator's fan-out,
	// for operating a trustee against a subset of a board server's boards.
	IgnoreBoards []string `toml:"ignore_boards"`

	AuditLog AuditLog `toml:"audit_log"`
}

// AuditLog is the TOML shape of auditlog.Config.
type AuditLog struct {
	Path       string `toml:"path"`
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups"`
	MaxAgeDays int    `toml:"max_age_days"`
	Compress   bool   `toml:"compress"`
}

func (a AuditLog) toAuditConfig() auditlog.Config {
	return auditlog.Config{
		Path:       a.Path,
		MaxSizeMB:  a.MaxSizeMB,
		MaxBackups: a.MaxBackups,
		MaxAgeDays: a.MaxAgeDays,
		Compress:   a.Compress,
	}
}

// Load reads and parses a trustee TOML config file at path, then applies
// environment variable overrides.
func Load(path string) (*Trustee, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "config: read file")
	}
	var cfg Trustee
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrap(err, "config: parse toml")
	}
	cfg.applyEnvOverrides()
	if cfg.StepInterval == "" {
		cfg.StepInterval = "2s"
	}
	if cfg.Pools <= 0 {
		cfg.Pools = 1
	}
	return &cfg, nil
}

// applyEnvOverrides lets an operator override a handful of non-secret,
// per-deployment settings without editing the TOML file.
func (c *Trustee) applyEnvOverrides() {
	if v := os.Getenv("TRUSTEE_NAME"); v != "" {
		c.Name = v
	}
	if v := os.Getenv("TRUSTEE_BOARD_URL"); v != "" {
		c.BoardURL = v
	}
	if v := os.Getenv("TRUSTEE_STRICT"); v != "" {
		c.Strict = v == "true" || v == "1"
	}
	if v := os.Getenv("TRUSTEE_STEP_INTERVAL"); v != "" {
		c.StepInterval = v
	}
	if v := os.Getenv("TRUSTEE_IGNORE_BOARDS"); v != "" {
		c.IgnoreBoards = strings.Split(v, ",")
	}
	if v := os.Getenv("TRUSTEE_SELF"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Self = n
		}
	}
}

// StepDuration parses StepInterval, defaulting to 2 seconds on a bad value.
func (c *Trustee) StepDuration() time.Duration {
	d, err := time.ParseDuration(c.StepInterval)
	if err != nil {
		return 2 * time.Second
	}
	return d
}

// AuditConfig converts the TOML audit log section to auditlog.Config.
func (c *Trustee) AuditConfig() auditlog.Config {
	return c.AuditLog.toAuditConfig()
}

// Position returns Self as a wire.TrusteePosition.
func (c *Trustee) Position() wire.TrusteePosition {
	return wire.TrusteePosition(c.Self)
}

// IgnoresBoard reports whether boardName is in IgnoreBoards.
func (c *Trustee) IgnoresBoard(boardName string) bool {
	for _, b := range c.IgnoreBoards {
		if b == boardName {
			return true
		}
	}
	return false
}

// requireEnv reads a required environment variable, returning an error
// instead of exiting so callers (the CLI entrypoint) control how a missing
// value is reported.
func requireEnv(key string) (string, error) {
	val := os.Getenv(key)
	if val == "" {
		return "", errors.Errorf("config: required environment variable %s is not set", key)
	}
	return val, nil
}

// RequireEnv is requireEnv exported for cmd/trustee.
func RequireEnv(key string) (string, error) { return requireEnv(key) }

// GetEnvOrDefault returns the named environment variable or fallback.
func GetEnvOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// LoadProtocolManagerPublicKey reads the marshaled verification key at
// ProtocolManagerPublicKeyPath.
func (c *Trustee) LoadProtocolManagerPublicKey() ([]byte, error) {
	b, err := os.ReadFile(c.ProtocolManagerPublicKeyPath)
	if err != nil {
		return nil, errors.Wrap(err, "config: read protocol manager public key")
	}
	return b, nil
}
