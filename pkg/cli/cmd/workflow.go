package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/LENAX/flow-engine/pkg/api/dto"
	"github.com/LENAX/flow-engine/pkg/cli/flowengine"
	"github.com/LENAX/flow-engine/pkg/cli/output"
)

// workflowCmd workflow子命令
var workflowCmd = &cobra.Command{
	Use:   "workflow",
	Short: "Workflow管理命令",
	Long:  `管理Workflow，包括保存、列出、查看和手工执行。`,
}

// workflowListCmd 列出Workflow
var workflowListCmd = &cobra.Command{
	Use:   "list",
	Short: "列出所有Workflow",
	RunE: func(cmd *cobra.Command, args []string) error {
		client := flowengine.New(serverURL)
		result, err := client.ListWorkflows()
		if err != nil {
			output.Error("查询失败: %v", err)
			return err
		}

		if outputJSON {
			return output.PrintJSON(result)
		}

		if len(result.Items) == 0 {
			output.Info("暂无Workflow")
			return nil
		}

		table := output.NewTable([]string{"ID", "NAME", "ACTIONS", "STATUS", "ON_FAILURE", "CREATED"})
		for _, wf := range result.Items {
			onFailure := "-"
			if wf.OnFailureWorkflowID != "" {
				onFailure = wf.OnFailureWorkflowID
			}
			table.AddRow([]string{
				wf.ID,
				wf.Name,
				fmt.Sprintf("%d", wf.ActionCount),
				wf.Status,
				onFailure,
				wf.CreatedAt.Format("2006-01-02 15:04:05"),
			})
		}
		table.Render()
		return nil
	},
}

// workflowShowCmd 查看Workflow详情
var workflowShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "查看Workflow详情",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client := flowengine.New(serverURL)
		result, err := client.GetWorkflow(args[0])
		if err != nil {
			output.Error("查询失败: %v", err)
			return err
		}

		if outputJSON {
			return output.PrintJSON(result)
		}

		fmt.Printf("Workflow: %s\n", result.Name)
		fmt.Printf("ID:       %s\n", result.ID)
		fmt.Printf("状态:     %s\n", result.Status)
		if result.OnFailureWorkflowID != "" {
			fmt.Printf("失败级联: %s\n", result.OnFailureWorkflowID)
		}
		fmt.Printf("节点数:   %d\n", result.ActionCount)
		fmt.Println("\nActions:")
		for _, a := range result.Actions {
			marker := " "
			if a.IsRootAction {
				marker = "*"
			}
			fmt.Printf("  %s %s (%s)\n", marker, a.Name, a.ID)
			for _, edge := range a.NextActions {
				if edge.Condition != "" {
					fmt.Printf("      -> %s [条件: %s]\n", edge.TargetActionID, edge.Condition)
				} else {
					fmt.Printf("      -> %s\n", edge.TargetActionID)
				}
			}
		}
		return nil
	},
}

// workflowSaveCmd 从JSON文件保存Workflow
var workflowSaveCmd = &cobra.Command{
	Use:   "save <file.json>",
	Short: "从JSON文件保存Workflow",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			output.Error("读取文件失败: %v", err)
			return err
		}
		var req dto.SaveWorkflowRequest
		if err := json.Unmarshal(data, &req); err != nil {
			output.Error("解析Workflow定义失败: %v", err)
			return err
		}

		client := flowengine.New(serverURL)
		result, err := client.SaveWorkflow(req)
		if err != nil {
			output.Error("保存失败: %v", err)
			return err
		}

		if outputJSON {
			return output.PrintJSON(result)
		}
		output.Success("Workflow已保存: %s (%s)", result.Name, result.ID)
		return nil
	},
}

// workflowExecuteCmd 手工执行Workflow
var workflowExecuteCmd = &cobra.Command{
	Use:   "execute <id>",
	Short: "手工执行Workflow",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client := flowengine.New(serverURL)
		result, err := client.ExecuteWorkflow(args[0], nil)
		if err != nil {
			output.Error("执行失败: %v", err)
			return err
		}

		if outputJSON {
			return output.PrintJSON(result)
		}
		output.Success("运行已启动: %s", result.RunID)
		return nil
	},
}

// workflowRunsCmd 列出Workflow的运行实例
var workflowRunsCmd = &cobra.Command{
	Use:   "runs <id>",
	Short: "列出Workflow的运行实例",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client := flowengine.New(serverURL)
		result, err := client.ListRuns(args[0])
		if err != nil {
			output.Error("查询失败: %v", err)
			return err
		}

		if outputJSON {
			return output.PrintJSON(result)
		}

		if len(result.Items) == 0 {
			output.Info("暂无运行实例")
			return nil
		}

		table := output.NewTable([]string{"ID", "STATUS", "STARTED_BY", "TRIGGER", "STARTED"})
		for _, run := range result.Items {
			triggerStatus := "-"
			if run.TriggerStatus != "" {
				triggerStatus = run.TriggerStatus
			}
			table.AddRow([]string{
				run.ID,
				run.Status,
				run.StartedBy,
				triggerStatus,
				run.StartedAt.Format("2006-01-02 15:04:05"),
			})
		}
		table.Render()
		return nil
	},
}

func init() {
	workflowCmd.AddCommand(workflowListCmd)
	workflowCmd.AddCommand(workflowShowCmd)
	workflowCmd.AddCommand(workflowSaveCmd)
	workflowCmd.AddCommand(workflowExecuteCmd)
	workflowCmd.AddCommand(workflowRunsCmd)
}
