// Package config 提供引擎的YAML配置加载、默认值填充与校验
package config

import (
	"time"
)

// EngineConfig 引擎框架配置（对外导出）
type EngineConfig struct {
	FlowEngine struct {
		General struct {
			InstanceName string `yaml:"instance_name"`
			LogLevel     string `yaml:"log_level"`
			Env          string `yaml:"env"`
		} `yaml:"general"`
		Storage struct {
			Database struct {
				Type            string        `yaml:"type"`
				DSN             string        `yaml:"dsn"`
				MaxOpenConns    int           `yaml:"max_open_conns"`
				MaxIdleConns    int           `yaml:"max_idle_conns"`
				ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
				ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time"`
			} `yaml:"database"`
		} `yaml:"storage"`
		Execution struct {
			PollInterval      time.Duration `yaml:"poll_interval"`
			SleepScanInterval time.Duration `yaml:"sleep_scan_interval"`
			DebugEvents       bool          `yaml:"debug_events"`
		} `yaml:"execution"`
		Credential struct {
			// 十六进制编码的32字节AES密钥，推荐通过${FLOW_ENCRYPTION_KEY}注入
			EncryptionKey string `yaml:"encryption_key"`
		} `yaml:"credential"`
		API struct {
			HTTPPort        int  `yaml:"http_port"`
			EnableWebSocket bool `yaml:"enable_websocket"`
		} `yaml:"api"`
	} `yaml:"flow-engine"`
}

// GetDatabaseType 获取数据库类型
func (c *EngineConfig) GetDatabaseType() string {
	return c.FlowEngine.Storage.Database.Type
}

// GetDatabaseDSN 获取数据库DSN
func (c *EngineConfig) GetDatabaseDSN() string {
	return c.FlowEngine.Storage.Database.DSN
}

// GetPollInterval 获取触发器轮询周期
func (c *EngineConfig) GetPollInterval() time.Duration {
	interval := c.FlowEngine.Execution.PollInterval
	if interval <= 0 {
		return time.Minute // 默认值
	}
	return interval
}

// GetSleepScanInterval 获取到期续体扫描周期
func (c *EngineConfig) GetSleepScanInterval() time.Duration {
	interval := c.FlowEngine.Execution.SleepScanInterval
	if interval <= 0 {
		return 30 * time.Second // 默认值
	}
	return interval
}

// ApplyDefaults 应用默认值
func (c *EngineConfig) ApplyDefaults() {
	// General默认值
	if c.FlowEngine.General.InstanceName == "" {
		c.FlowEngine.General.InstanceName = "flow-engine"
	}
	if c.FlowEngine.General.LogLevel == "" {
		c.FlowEngine.General.LogLevel = "info"
	}
	if c.FlowEngine.General.Env == "" {
		c.FlowEngine.General.Env = "dev"
	}

	// Database默认值
	if c.FlowEngine.Storage.Database.Type == "" {
		c.FlowEngine.Storage.Database.Type = "sqlite"
	}
	if c.FlowEngine.Storage.Database.DSN == "" {
		c.FlowEngine.Storage.Database.DSN = "./flow-engine.db"
	}
	if c.FlowEngine.Storage.Database.MaxOpenConns <= 0 {
		c.FlowEngine.Storage.Database.MaxOpenConns = 10
	}
	if c.FlowEngine.Storage.Database.MaxIdleConns <= 0 {
		c.FlowEngine.Storage.Database.MaxIdleConns = 5
	}
	if c.FlowEngine.Storage.Database.ConnMaxLifetime <= 0 {
		c.FlowEngine.Storage.Database.ConnMaxLifetime = 2 * time.Hour
	}
	if c.FlowEngine.Storage.Database.ConnMaxIdleTime <= 0 {
		c.FlowEngine.Storage.Database.ConnMaxIdleTime = 1 * time.Hour
	}

	// Execution默认值
	if c.FlowEngine.Execution.PollInterval <= 0 {
		c.FlowEngine.Execution.PollInterval = time.Minute
	}
	if c.FlowEngine.Execution.SleepScanInterval <= 0 {
		c.FlowEngine.Execution.SleepScanInterval = 30 * time.Second
	}

	// API默认值
	if c.FlowEngine.API.HTTPPort <= 0 {
		c.FlowEngine.API.HTTPPort = 8080
	}
}
