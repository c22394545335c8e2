package config

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

// TestDefaultConfig_Brain verifies the engine tuning defaults
func TestDefaultConfig_Brain(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Brain.Order != 2 {
		t.Errorf("Brain order = %d, want 2", cfg.Brain.Order)
	}
	if !cfg.Brain.Lowercase {
		t.Error("Lowercasing should be enabled by default")
	}
	if cfg.Brain.SimilarityThreshold == 0 {
		t.Error("SimilarityThreshold should have default value")
	}
	if cfg.Brain.MaxPairsPerKey == 0 {
		t.Error("MaxPairsPerKey should not be zero")
	}
	if cfg.Brain.DataPath == "" {
		t.Error("Brain data path should not be empty")
	}
}

// TestDefaultConfig_Gateway verifies gateway defaults
func TestDefaultConfig_Gateway(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Gateway.Host != "0.0.0.0" {
		t.Error("Gateway host should have default value")
	}
	if cfg.Gateway.Port == 0 {
		t.Error("Gateway port should have default value")
	}
}

// TestDefaultConfig_Channels verifies Discord config defaults
func TestDefaultConfig_Channels(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Channels.Discord.Token != "" {
		t.Error("Discord token should be empty by default")
	}
	if cfg.Channels.Discord.ReplyChance <= 0 || cfg.Channels.Discord.ReplyChance >= 1 {
		t.Errorf("ReplyChance = %f, want a small probability", cfg.Channels.Discord.ReplyChance)
	}
}

// TestDefaultConfig_Cron verifies maintenance schedule defaults
func TestDefaultConfig_Cron(t *testing.T) {
	cfg := DefaultConfig()

	if !cfg.Cron.Enabled {
		t.Error("Cron should be enabled by default")
	}
	if cfg.Cron.MaintenanceSchedule == "" {
		t.Error("Maintenance schedule should not be empty")
	}
}

func TestBrainOptionsMapping(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Brain.DecayHalfLifeDays = 10
	cfg.Brain.PreferRecentHours = 24

	opts := cfg.BrainOptions()
	if opts.DecayHalfLifeMS != 10*24*60*60*1000 {
		t.Errorf("DecayHalfLifeMS = %d", opts.DecayHalfLifeMS)
	}
	if opts.PreferRecentMS != 24*60*60*1000 {
		t.Errorf("PreferRecentMS = %d", opts.PreferRecentMS)
	}
	if opts.Order != cfg.Brain.Order || opts.TopK != cfg.Brain.TopK {
		t.Error("scalar fields must map through unchanged")
	}
}

func TestSaveConfig_FilePermissions(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("file permission bits are not enforced on Windows")
	}

	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.json")

	cfg := DefaultConfig()
	if err := SaveConfig(path, cfg); err != nil {
		t.Fatalf("SaveConfig failed: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat failed: %v", err)
	}

	perm := info.Mode().Perm()
	if perm != 0600 {
		t.Errorf("config file has permission %04o, want 0600", perm)
	}
}

func TestLoadConfig_EnvOverridesWithoutFile(t *testing.T) {
	t.Setenv("PLAUDERBOT_CHANNELS_DISCORD_TOKEN", "env-token")
	t.Setenv("PLAUDERBOT_BRAIN_ORDER", "3")
	path := filepath.Join(t.TempDir(), "missing-config.json")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if got := cfg.Channels.Discord.Token; got != "env-token" {
		t.Fatalf("expected env override token, got %q", got)
	}
	if got := cfg.Brain.Order; got != 3 {
		t.Fatalf("expected env override order, got %d", got)
	}
}

func TestLoadConfig_FileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	body := `{"channels":{"discord":{"token":"file-token","allow_channels":[123, "456"]}},"gateway":{"port":9999}}`
	if err := os.WriteFile(path, []byte(body), 0600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("PLAUDERBOT_GATEWAY_PORT", "8888")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Channels.Discord.Token != "file-token" {
		t.Fatalf("file value lost: %q", cfg.Channels.Discord.Token)
	}
	if len(cfg.Channels.Discord.AllowChannels) != 2 || cfg.Channels.Discord.AllowChannels[0] != "123" {
		t.Fatalf("mixed-type allow_channels not normalized: %v", cfg.Channels.Discord.AllowChannels)
	}
	if cfg.Gateway.Port != 8888 {
		t.Fatalf("env must override file, got %d", cfg.Gateway.Port)
	}
}
