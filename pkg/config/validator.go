package config

import (
	"encoding/hex"
	"fmt"
)

// ValidateEngineConfig 校验引擎配置合法性（对外导出）
func ValidateEngineConfig(cfg *EngineConfig) error {
	if cfg == nil {
		return fmt.Errorf("配置不能为空")
	}

	// 校验General
	if cfg.FlowEngine.General.InstanceName == "" {
		return fmt.Errorf("instance_name不能为空")
	}
	if cfg.FlowEngine.General.LogLevel != "" {
		validLevels := map[string]bool{
			"debug": true,
			"info":  true,
			"warn":  true,
			"error": true,
		}
		if !validLevels[cfg.FlowEngine.General.LogLevel] {
			return fmt.Errorf("log_level必须是debug/info/warn/error之一")
		}
	}

	// 校验Storage.Database
	if cfg.FlowEngine.Storage.Database.Type == "" {
		return fmt.Errorf("database.type不能为空")
	}
	validDBTypes := map[string]bool{
		"sqlite":   true,
		"postgres": true,
		"mysql":    true,
	}
	if !validDBTypes[cfg.FlowEngine.Storage.Database.Type] {
		return fmt.Errorf("database.type必须是sqlite/postgres/mysql之一")
	}
	if cfg.FlowEngine.Storage.Database.DSN == "" {
		return fmt.Errorf("database.dsn不能为空")
	}
	if cfg.FlowEngine.Storage.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("database.max_open_conns必须大于0")
	}
	if cfg.FlowEngine.Storage.Database.MaxIdleConns < 0 {
		return fmt.Errorf("database.max_idle_conns不能为负数")
	}

	// 校验Credential：密钥可以为空（不解密密文），非空时必须是32字节的十六进制
	if key := cfg.FlowEngine.Credential.EncryptionKey; key != "" {
		decoded, err := hex.DecodeString(key)
		if err != nil {
			return fmt.Errorf("encryption_key必须是十六进制编码: %w", err)
		}
		if len(decoded) != 32 {
			return fmt.Errorf("encryption_key必须是32字节，实际%d字节", len(decoded))
		}
	}

	// 校验API
	if cfg.FlowEngine.API.HTTPPort <= 0 || cfg.FlowEngine.API.HTTPPort > 65535 {
		return fmt.Errorf("api.http_port必须在1-65535之间")
	}
	return nil
}
