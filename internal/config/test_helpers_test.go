package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("写入临时配置失败: %v", err)
	}
	return path
}

func validConfig() *Config {
	cfg := &Config{}
	cfg.Global.ListenPort = 8000
	cfg.Global.HubRoot = "fake_hub"
	cfg.Global.MaxWalkDepth = 32
	cfg.Global.MaxWalkEntries = 100000
	cfg.Global.UpstreamTimeout = Duration(30 * time.Second)
	cfg.AccessLog.BodyMax = 4096
	return cfg
}
