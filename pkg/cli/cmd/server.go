package cmd

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	internalstorage "github.com/LENAX/flow-engine/internal/storage"
	"github.com/LENAX/flow-engine/pkg/api"
	"github.com/LENAX/flow-engine/pkg/cli/output"
	"github.com/LENAX/flow-engine/pkg/config"
	"github.com/LENAX/flow-engine/pkg/core/credential"
	"github.com/LENAX/flow-engine/pkg/core/engine"
	"github.com/LENAX/flow-engine/pkg/core/integration"
	"github.com/LENAX/flow-engine/pkg/integration/builtin"
)

var (
	serverPort int
	serverHost string
	configPath string
)

// serverCmd server子命令
var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "服务管理命令",
	Long:  `管理Flow Engine HTTP API服务。`,
}

// serverStartCmd 启动服务
var serverStartCmd = &cobra.Command{
	Use:   "start",
	Short: "启动HTTP API服务",
	Long: `启动Flow Engine HTTP API服务。

示例：
  # 使用默认配置启动
  flow-engine server start

  # 指定端口启动
  flow-engine server start --port 8080

  # 指定配置文件启动
  flow-engine server start --config ./configs/engine.yaml`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if configPath == "" {
			// 尝试默认配置路径；全部缺失时按默认配置启动
			defaultPaths := []string{
				"./configs/engine.yaml",
				"./config/engine.yaml",
				"./engine.yaml",
			}
			for _, p := range defaultPaths {
				if _, err := os.Stat(p); err == nil {
					configPath = p
					break
				}
			}
		}

		if configPath != "" {
			output.Info("使用配置文件: %s", configPath)
		} else {
			output.Info("未找到配置文件，使用默认配置")
		}

		cfg, err := config.LoadEngineConfig(configPath)
		if err != nil {
			output.Error("加载配置失败: %v", err)
			return err
		}
		if err := config.ValidateEngineConfig(cfg); err != nil {
			output.Error("配置校验失败: %v", err)
			return err
		}

		// 创建存储层
		repo, err := internalstorage.NewFlowAggregateRepo(cfg.GetDatabaseType(), cfg.GetDatabaseDSN())
		if err != nil {
			output.Error("初始化存储失败: %v", err)
			return err
		}
		defer repo.Close()

		// 注册内置HTTP集成
		registry := integration.NewDefinitionRegistry()
		if err := registerBuiltins(registry); err != nil {
			output.Error("注册内置集成失败: %v", err)
			return err
		}

		credResolver, err := credential.NewResolver(repo, cfg.FlowEngine.Credential.EncryptionKey)
		if err != nil {
			output.Error("初始化凭证解析器失败: %v", err)
			return err
		}

		// 创建Engine
		eng, err := engine.NewEngine(repo, registry, credResolver,
			cfg.GetSleepScanInterval(), cfg.FlowEngine.Execution.DebugEvents)
		if err != nil {
			output.Error("创建Engine失败: %v", err)
			return err
		}

		// 启动Engine
		if err := eng.Start(); err != nil {
			output.Error("启动Engine失败: %v", err)
			return err
		}

		// 恢复已持久化触发器的轮询调度
		if err := eng.PollScheduler().LoadTriggers(eng.Context(), cfg.GetPollInterval()); err != nil {
			output.Error("加载触发器失败: %v", err)
			return err
		}

		// 创建API服务器配置
		port := serverPort
		if !cmd.Flags().Changed("port") && cfg.FlowEngine.API.HTTPPort > 0 {
			port = cfg.FlowEngine.API.HTTPPort
		}
		serverConfig := api.ServerConfig{
			Host:            serverHost,
			Port:            port,
			ReadTimeout:     api.DefaultServerConfig().ReadTimeout,
			WriteTimeout:    api.DefaultServerConfig().WriteTimeout,
			EnableWebSocket: cfg.FlowEngine.API.EnableWebSocket,
		}

		// 创建并启动API服务器
		apiServer := api.NewAPIServer(eng, serverConfig, Version)

		go func() {
			if err := apiServer.Start(); err != nil {
				log.Printf("API服务器错误: %v", err)
			}
		}()

		output.Success("Flow Engine Server started on %s:%d", serverHost, port)

		// 等待中断信号
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit

		output.Info("正在关闭服务...")

		// 优雅关闭
		shutdownCtx, cancel := context.WithTimeout(context.Background(), api.DefaultServerConfig().WriteTimeout)
		defer cancel()

		if err := apiServer.Shutdown(shutdownCtx); err != nil {
			output.Error("关闭API服务器失败: %v", err)
		}

		if err := eng.Shutdown(); err != nil {
			output.Error("停止Engine失败: %v", err)
		}
		output.Success("服务已停止")

		return nil
	},
}

// registerBuiltins 注册内置HTTP集成及其默认触发器/Action定义
func registerBuiltins(registry *integration.DefinitionRegistry) error {
	httpIntegration := &integration.Integration{
		ID:   "http",
		Name: "HTTP",
		Kind: "http",
	}
	if err := registry.RegisterIntegration(httpIntegration, builtin.NewHTTPInvoker(nil)); err != nil {
		return err
	}
	if err := registry.RegisterTrigger(&integration.TriggerDefinition{
		ID:            "http.poll",
		IntegrationID: "http",
		OperationID:   "poll",
		IDKey:         "id",
	}); err != nil {
		return err
	}
	return registry.RegisterAction(&integration.ActionDefinition{
		ID:            "http.request",
		IntegrationID: "http",
		OperationID:   "request",
	})
}

func init() {
	serverStartCmd.Flags().IntVarP(&serverPort, "port", "p", 8080, "监听端口")
	serverStartCmd.Flags().StringVarP(&serverHost, "host", "H", "0.0.0.0", "监听地址")
	serverStartCmd.Flags().StringVarP(&configPath, "config", "c", "", "配置文件路径")

	serverCmd.AddCommand(serverStartCmd)
}
