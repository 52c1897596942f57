package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("FININSIGHT_CONFIG", filepath.Join(dir, "absent.toml"))

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.ListenAddr != ":8080" || cfg.Source != SourceFiles || cfg.WindowDays != 90 {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if cfg.StatePruneSchedule != "@hourly" {
		t.Errorf("StatePruneSchedule = %q", cfg.StatePruneSchedule)
	}
	if cfg.SettingsDirectory != filepath.Join(cfg.DataDirectory, "settings") {
		t.Errorf("SettingsDirectory = %q, want under %q", cfg.SettingsDirectory, cfg.DataDirectory)
	}
	if _, err := os.Stat(cfg.SettingsDirectory); err != nil {
		t.Errorf("settings directory not created: %v", err)
	}
}

func TestLoadFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	cfgPath := filepath.Join(dir, "fininsight.toml")
	content := `
listen_addr = ":9090"
window_days = 60
log_level = "warn"
`
	if err := os.WriteFile(cfgPath, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	dataDir := filepath.Join(dir, "custom")
	t.Setenv("FININSIGHT_CONFIG", cfgPath)
	t.Setenv("FININSIGHT_DATA_DIR", dataDir)
	t.Setenv("FININSIGHT_WINDOW_DAYS", "30")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.ListenAddr != ":9090" {
		t.Errorf("ListenAddr = %q, want :9090 from file", cfg.ListenAddr)
	}
	if cfg.WindowDays != 30 {
		t.Errorf("WindowDays = %d, want env override 30", cfg.WindowDays)
	}
	if cfg.LogLevel != "warn" {
		t.Errorf("LogLevel = %q", cfg.LogLevel)
	}
	if cfg.DataDirectory != dataDir || cfg.StateFile() != filepath.Join(dataDir, "settings", "insight_state.json") {
		t.Errorf("unexpected paths: %s %s", cfg.DataDirectory, cfg.StateFile())
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"files ok", Config{Source: SourceFiles, WindowDays: 90}, false},
		{"postgres without url", Config{Source: SourcePostgres, WindowDays: 90}, true},
		{"postgres ok", Config{Source: SourcePostgres, DatabaseURL: "postgres://x", WindowDays: 90}, false},
		{"unknown source", Config{Source: "s3", WindowDays: 90}, true},
		{"zero window", Config{Source: SourceFiles}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
