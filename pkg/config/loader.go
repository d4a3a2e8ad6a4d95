package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadEngineConfig 加载引擎配置文件（对外导出）
// 配置文本先做${ENV_VAR}环境变量展开再解析，随后填充默认值；
// 文件不存在时返回纯默认配置
func LoadEngineConfig(path string) (*EngineConfig, error) {
	cfg := &EngineConfig{}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.ApplyDefaults()
			return cfg, nil
		}
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	// 环境变量替换
	expanded := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %w", err)
	}

	cfg.ApplyDefaults()
	return cfg, nil
}
