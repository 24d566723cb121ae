package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

const sampleTOML = `
self = 3
private_key_path = "/keys/trustee3.key"
board_url = "ws://boards.internal:8090/ws"
protocol_manager_public_key_path = "/keys/pm.pub"
store_path = "/var/lib/trustee"
strict = true
step_interval = "5s"
pools = 4
concurrency = 2
ignore_boards = ["stale-board"]

[audit_log]
path = "/var/log/trustee/audit.log"
max_size_mb = 10
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "trustee.toml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleTOML))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Self != 3 || cfg.Position() != 3 {
		t.Fatalf("self: got %d", cfg.Self)
	}
	if cfg.BoardURL != "ws://boards.internal:8090/ws" {
		t.Fatalf("board_url: got %q", cfg.BoardURL)
	}
	if !cfg.Strict || cfg.Pools != 4 || cfg.Concurrency != 2 {
		t.Fatalf("flags: %+v", cfg)
	}
	if cfg.StepDuration() != 5*time.Second {
		t.Fatalf("step interval: got %v", cfg.StepDuration())
	}
	if !cfg.IgnoresBoard("stale-board") || cfg.IgnoresBoard("live-board") {
		t.Fatalf("ignore_boards: %v", cfg.IgnoreBoards)
	}
	if cfg.AuditConfig().Path != "/var/log/trustee/audit.log" || cfg.AuditConfig().MaxSizeMB != 10 {
		t.Fatalf("audit log: %+v", cfg.AuditConfig())
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "self = 1\n"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.StepInterval != "2s" {
		t.Fatalf("default step interval: got %q", cfg.StepInterval)
	}
	if cfg.Pools != 1 {
		t.Fatalf("default pools: got %d", cfg.Pools)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("TRUSTEE_NAME", "trustee-nine")
	t.Setenv("TRUSTEE_BOARD_URL", "ws://override:1234/ws")
	t.Setenv("TRUSTEE_STRICT", "1")
	t.Setenv("TRUSTEE_IGNORE_BOARDS", "a,b")
	t.Setenv("TRUSTEE_SELF", "9")

	cfg, err := Load(writeConfig(t, sampleTOML))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.BoardURL != "ws://override:1234/ws" {
		t.Fatalf("board_url override: got %q", cfg.BoardURL)
	}
	if !cfg.Strict {
		t.Fatal("strict override lost")
	}
	if !cfg.IgnoresBoard("a") || !cfg.IgnoresBoard("b") {
		t.Fatalf("ignore override: %v", cfg.IgnoreBoards)
	}
	if cfg.Self != 9 {
		t.Fatalf("self override: got %d", cfg.Self)
	}
	if cfg.Name != "trustee-nine" {
		t.Fatalf("name override: got %q", cfg.Name)
	}
}

func TestStepDurationFallsBackOnBadValue(t *testing.T) {
	cfg := &Trustee{StepInterval: "not-a-duration"}
	if cfg.StepDuration() != 2*time.Second {
		t.Fatalf("bad step interval must fall back to 2s, got %v", cfg.StepDuration())
	}
}
