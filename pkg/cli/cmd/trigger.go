package cmd

import (
	"github.com/spf13/cobra"

	"github.com/LENAX/flow-engine/pkg/cli/flowengine"
	"github.com/LENAX/flow-engine/pkg/cli/output"
)

// triggerCmd trigger子命令
var triggerCmd = &cobra.Command{
	Use:   "trigger",
	Short: "触发器管理命令",
	Long:  `管理轮询触发器，包括列出和手工触发检测。`,
}

// triggerListCmd 列出触发器
var triggerListCmd = &cobra.Command{
	Use:   "list",
	Short: "列出所有触发器",
	RunE: func(cmd *cobra.Command, args []string) error {
		client := flowengine.New(serverURL)
		result, err := client.ListTriggers()
		if err != nil {
			output.Error("查询失败: %v", err)
			return err
		}

		if outputJSON {
			return output.PrintJSON(result)
		}

		if len(result.Items) == 0 {
			output.Info("暂无触发器")
			return nil
		}

		table := output.NewTable([]string{"ID", "WORKFLOW", "DEFINITION", "LAST_ID"})
		for _, trig := range result.Items {
			lastID := "-"
			if trig.LastID != "" {
				lastID = trig.LastID
			}
			table.AddRow([]string{trig.ID, trig.WorkflowID, trig.IntegrationTriggerID, lastID})
		}
		table.Render()
		return nil
	},
}

// triggerCheckCmd 手工触发一次检测
var triggerCheckCmd = &cobra.Command{
	Use:   "check <id>",
	Short: "手工触发一次检测",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client := flowengine.New(serverURL)
		if err := client.CheckTrigger(args[0]); err != nil {
			output.Error("检测失败: %v", err)
			return err
		}
		output.Success("触发器检测已完成: %s", args[0])
		return nil
	},
}

func init() {
	triggerCmd.AddCommand(triggerListCmd)
	triggerCmd.AddCommand(triggerCheckCmd)
}
