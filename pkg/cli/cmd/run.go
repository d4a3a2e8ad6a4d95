package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/LENAX/flow-engine/pkg/cli/flowengine"
	"github.com/LENAX/flow-engine/pkg/cli/output"
)

// runCmd run子命令
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "运行实例管理命令",
	Long:  `查看Workflow运行实例及其节点执行记录。`,
}

// runShowCmd 查看运行实例详情
var runShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "查看运行实例详情",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client := flowengine.New(serverURL)
		result, err := client.GetRun(args[0])
		if err != nil {
			output.Error("查询失败: %v", err)
			return err
		}

		if outputJSON {
			return output.PrintJSON(result)
		}

		fmt.Printf("运行实例: %s\n", result.ID)
		fmt.Printf("Workflow: %s\n", result.WorkflowID)
		fmt.Printf("状态:     %s\n", result.Status)
		fmt.Printf("启动方式: %s\n", result.StartedBy)
		fmt.Printf("启动时间: %s\n", result.StartedAt.Format("2006-01-02 15:04:05"))
		if result.FinishedAt != nil {
			fmt.Printf("结束时间: %s\n", result.FinishedAt.Format("2006-01-02 15:04:05"))
		}
		if result.TriggerStatus != "" {
			fmt.Printf("触发状态: %s\n", result.TriggerStatus)
		}
		if result.TriggerError != "" {
			fmt.Printf("触发错误: %s\n", result.TriggerError)
		}
		if result.TriggerErrorDetail != "" {
			fmt.Printf("原始响应: %s\n", result.TriggerErrorDetail)
		}
		if len(result.TriggerItemIDs) > 0 {
			fmt.Printf("新条目:   %v\n", result.TriggerItemIDs)
		}

		if len(result.Actions) == 0 {
			return nil
		}

		fmt.Println("\n节点执行记录:")
		table := output.NewTable([]string{"ACTION", "STATUS", "STARTED", "ERROR"})
		for _, a := range result.Actions {
			errMsg := "-"
			if a.ErrorMsg != "" {
				errMsg = a.ErrorMsg
			}
			table.AddRow([]string{
				a.ActionID,
				a.Status,
				a.StartedAt.Format("15:04:05"),
				errMsg,
			})
		}
		table.Render()
		return nil
	},
}

func init() {
	runCmd.AddCommand(runShowCmd)
}
