// Package cmd 定义CLI命令
package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	// 全局变量
	serverURL  string
	outputJSON bool
)

// rootCmd 根命令
var rootCmd = &cobra.Command{
	Use:   "flow-engine",
	Short: "Flow Engine CLI - 工作流执行引擎命令行工具",
	Long: `Flow Engine CLI 是一个用于管理工作流执行引擎的命令行工具。

支持的功能：
  - 管理Workflow（保存、列出、查看、手工执行）
  - 查询运行实例及各节点执行记录
  - 管理触发器（列出、立即轮询）
  - 启动HTTP API服务

使用示例：
  # 列出所有Workflow
  flow-engine workflow list

  # 手工执行Workflow
  flow-engine workflow execute <workflow-id>

  # 查看运行实例
  flow-engine run show <run-id>

  # 立即执行一次触发器轮询
  flow-engine trigger check <trigger-id>

  # 启动HTTP服务
  flow-engine server start --port 8080`,
}

// Execute 执行根命令
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	// 全局参数
	rootCmd.PersistentFlags().StringVarP(&serverURL, "server", "s", "http://localhost:8080", "Flow Engine服务器地址")
	rootCmd.PersistentFlags().BoolVarP(&outputJSON, "json", "j", false, "使用JSON格式输出")

	// 添加子命令
	rootCmd.AddCommand(workflowCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(triggerCmd)
	rootCmd.AddCommand(serverCmd)
	rootCmd.AddCommand(versionCmd)
}
