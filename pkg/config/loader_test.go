package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadEngineConfig(t *testing.T) {
	// 创建临时配置文件
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "test.yaml")
	configContent := `
flow-engine:
  general:
    instance_name: "test-engine"
    log_level: "debug"
    env: "test"
  storage:
    database:
      type: "sqlite"
      dsn: "./test.db"
      max_open_conns: 5
      max_idle_conns: 2
      conn_max_lifetime: "1h"
      conn_max_idle_time: "30m"
  execution:
    poll_interval: "15s"
    sleep_scan_interval: "5s"
    debug_events: true
  api:
    http_port: 9090
    enable_websocket: true
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("创建测试配置文件失败: %v", err)
	}

	cfg, err := LoadEngineConfig(configPath)
	if err != nil {
		t.Fatalf("加载配置失败: %v", err)
	}

	if cfg.FlowEngine.General.InstanceName != "test-engine" {
		t.Errorf("期望instance_name为test-engine，实际为%s", cfg.FlowEngine.General.InstanceName)
	}
	if cfg.FlowEngine.General.LogLevel != "debug" {
		t.Errorf("期望log_level为debug，实际为%s", cfg.FlowEngine.General.LogLevel)
	}
	if cfg.FlowEngine.Storage.Database.Type != "sqlite" {
		t.Errorf("期望database.type为sqlite，实际为%s", cfg.FlowEngine.Storage.Database.Type)
	}
	if cfg.GetPollInterval() != 15*time.Second {
		t.Errorf("期望poll_interval为15s，实际为%s", cfg.GetPollInterval())
	}
	if cfg.GetSleepScanInterval() != 5*time.Second {
		t.Errorf("期望sleep_scan_interval为5s，实际为%s", cfg.GetSleepScanInterval())
	}
	if cfg.FlowEngine.API.HTTPPort != 9090 {
		t.Errorf("期望http_port为9090，实际为%d", cfg.FlowEngine.API.HTTPPort)
	}
	if !cfg.FlowEngine.API.EnableWebSocket {
		t.Error("期望enable_websocket为true")
	}
}

func TestLoadEngineConfig_WithDefaults(t *testing.T) {
	// 创建最小配置文件（测试默认值填充）
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "minimal.yaml")
	configContent := `
flow-engine:
  storage:
    database:
      type: "sqlite"
      dsn: "./test.db"
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("创建测试配置文件失败: %v", err)
	}

	cfg, err := LoadEngineConfig(configPath)
	if err != nil {
		t.Fatalf("加载配置失败: %v", err)
	}

	if cfg.FlowEngine.General.InstanceName == "" {
		t.Error("期望instance_name有默认值")
	}
	if cfg.GetPollInterval() <= 0 {
		t.Error("期望poll_interval有默认值")
	}
	if cfg.FlowEngine.API.HTTPPort != 8080 {
		t.Errorf("期望http_port默认为8080，实际为%d", cfg.FlowEngine.API.HTTPPort)
	}
}

func TestLoadEngineConfig_MissingFile(t *testing.T) {
	cfg, err := LoadEngineConfig(filepath.Join(t.TempDir(), "不存在.yaml"))
	if err != nil {
		t.Fatalf("文件不存在时应返回默认配置: %v", err)
	}
	if cfg.FlowEngine.Storage.Database.Type != "sqlite" {
		t.Errorf("期望默认database.type为sqlite，实际为%s", cfg.FlowEngine.Storage.Database.Type)
	}
}

func TestLoadEngineConfig_WithEnvVars(t *testing.T) {
	// 设置环境变量
	os.Setenv("TEST_INSTANCE", "env-engine")
	os.Setenv("TEST_DB_PATH", "/tmp/env-test.db")
	defer os.Unsetenv("TEST_INSTANCE")
	defer os.Unsetenv("TEST_DB_PATH")

	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "env-test.yaml")
	configContent := `
flow-engine:
  general:
    instance_name: "${TEST_INSTANCE}"
  storage:
    database:
      type: "sqlite"
      dsn: "${TEST_DB_PATH}"
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("创建测试配置文件失败: %v", err)
	}

	cfg, err := LoadEngineConfig(configPath)
	if err != nil {
		t.Fatalf("加载配置失败: %v", err)
	}

	// 验证环境变量替换
	if cfg.FlowEngine.General.InstanceName != "env-engine" {
		t.Errorf("期望instance_name为env-engine，实际为%s", cfg.FlowEngine.General.InstanceName)
	}
	if cfg.FlowEngine.Storage.Database.DSN != "/tmp/env-test.db" {
		t.Errorf("期望dsn为/tmp/env-test.db，实际为%s", cfg.FlowEngine.Storage.Database.DSN)
	}
}
