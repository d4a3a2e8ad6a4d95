package config

import (
	"strings"
	"testing"
)

func validConfig() *EngineConfig {
	cfg := &EngineConfig{}
	cfg.ApplyDefaults()
	return cfg
}

func TestValidateEngineConfig_Valid(t *testing.T) {
	if err := ValidateEngineConfig(validConfig()); err != nil {
		t.Errorf("默认配置应通过校验: %v", err)
	}
}

func TestValidateEngineConfig_Nil(t *testing.T) {
	if err := ValidateEngineConfig(nil); err == nil {
		t.Error("nil配置应校验失败")
	}
}

func TestValidateEngineConfig_BadDatabaseType(t *testing.T) {
	cfg := validConfig()
	cfg.FlowEngine.Storage.Database.Type = "oracle"
	if err := ValidateEngineConfig(cfg); err == nil {
		t.Error("非法database.type应校验失败")
	}
}

func TestValidateEngineConfig_BadLogLevel(t *testing.T) {
	cfg := validConfig()
	cfg.FlowEngine.General.LogLevel = "verbose"
	if err := ValidateEngineConfig(cfg); err == nil {
		t.Error("非法log_level应校验失败")
	}
}

func TestValidateEngineConfig_EncryptionKey(t *testing.T) {
	cfg := validConfig()

	// 空密钥合法
	cfg.FlowEngine.Credential.EncryptionKey = ""
	if err := ValidateEngineConfig(cfg); err != nil {
		t.Errorf("空密钥应通过校验: %v", err)
	}

	// 32字节十六进制合法
	cfg.FlowEngine.Credential.EncryptionKey = strings.Repeat("ab", 32)
	if err := ValidateEngineConfig(cfg); err != nil {
		t.Errorf("32字节十六进制密钥应通过校验: %v", err)
	}

	// 非十六进制非法
	cfg.FlowEngine.Credential.EncryptionKey = "不是十六进制"
	if err := ValidateEngineConfig(cfg); err == nil {
		t.Error("非十六进制密钥应校验失败")
	}

	// 长度不足非法
	cfg.FlowEngine.Credential.EncryptionKey = "abcd"
	if err := ValidateEngineConfig(cfg); err == nil {
		t.Error("长度不足的密钥应校验失败")
	}
}

func TestValidateEngineConfig_BadPort(t *testing.T) {
	cfg := validConfig()
	cfg.FlowEngine.API.HTTPPort = 70000
	if err := ValidateEngineConfig(cfg); err == nil {
		t.Error("非法端口应校验失败")
	}
}
