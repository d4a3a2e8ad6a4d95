package engine

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/LENAX/flow-engine/pkg/core/credential"
	"github.com/LENAX/flow-engine/pkg/core/expression"
	"github.com/LENAX/flow-engine/pkg/core/integration"
	"github.com/LENAX/flow-engine/pkg/core/workflow"
)

// RunWorkflowTriggerCheck 执行一次触发器轮询（对外导出）
// 调用轮询操作取回条目列表（最新在前），按去重游标截取新条目，
// 可选地补全条目字段，前进游标，最后按时间顺序（最旧在前）逐条目启动Action图。
// 配置类前置失败在创建运行实例之前返回；轮询过程失败记录到运行实例并触发失败级联
func (e *Engine) RunWorkflowTriggerCheck(ctx context.Context, trigger *workflow.WorkflowTrigger) error {
	wf, err := e.repo.GetWorkflow(ctx, trigger.WorkflowID)
	if err != nil {
		return err
	}
	if wf == nil {
		return configErrorf("Trigger %s 所属Workflow %s 不存在", trigger.ID, trigger.WorkflowID)
	}
	if wf.Status != workflow.WorkflowEnabled {
		return nil
	}

	triggerDef, exists := e.registry.GetTrigger(trigger.IntegrationTriggerID)
	if !exists {
		return configErrorf("Trigger %s 引用的触发器定义 %s 不存在", trigger.ID, trigger.IntegrationTriggerID)
	}
	if triggerDef.IDKey == "" {
		return configErrorf("触发器定义 %s 未配置条目标识字段IDKey", triggerDef.ID)
	}
	integ, exists := e.registry.GetIntegration(triggerDef.IntegrationID)
	if !exists {
		return configErrorf("触发器定义 %s 引用的集成 %s 不存在", triggerDef.ID, triggerDef.IntegrationID)
	}

	// 没有根节点的工作流无法响应触发：在创建运行实例和轮询之前退出，
	// 游标不前进，条目留待工作流修复后消费
	actions, err := e.repo.GetWorkflowActions(ctx, wf.ID)
	if err != nil {
		return err
	}
	if len(workflow.RootActions(actions)) == 0 {
		return configErrorf("Workflow %s 没有根节点，无法响应触发", wf.ID)
	}

	run := workflow.NewWorkflowRun(wf.ID, workflow.StartedByTriggerCheck)
	if err := e.repo.SaveRun(ctx, run); err != nil {
		return err
	}
	e.publishEvent(NewEngineEvent(EventRunStarted, run.ID, wf.ID))

	creds, err := e.credResolver.Resolve(ctx, trigger.CredentialID, func() {
		log.Printf("⚠️ [TriggerCoordinator] 触发器凭证不存在: TriggerID=%s, CredentialID=%s", trigger.ID, trigger.CredentialID)
	})
	if err != nil {
		e.failTriggerRun(ctx, wf, run, err)
		return err
	}

	items, err := e.pollTriggerItems(ctx, trigger, triggerDef, integ, creds)
	if err != nil {
		e.failTriggerRun(ctx, wf, run, err)
		return err
	}

	newItems, newIDs, err := dedupItems(items, triggerDef.IDKey, trigger.LastID)
	if err != nil {
		e.failTriggerRun(ctx, wf, run, err)
		return err
	}

	if len(newItems) == 0 {
		if err := e.repo.UpdateTriggerRun(ctx, run.ID, workflow.TriggerRun{Status: workflow.TriggerRunNotSatisfied}); err != nil {
			log.Printf("❌ [TriggerCoordinator] 更新触发结果失败: RunID=%s, Error=%v", run.ID, err)
		}
		e.finalizeRun(ctx, run, workflow.RunCompleted)
		return nil
	}

	// 条目补全：每个新条目额外调用一次补全操作，条目自身字段覆盖补全输出
	if triggerDef.Populate != nil {
		if err := e.populateItems(ctx, trigger, triggerDef, integ, creds, newItems); err != nil {
			e.failTriggerRun(ctx, wf, run, err)
			return err
		}
	}

	// 游标只在轮询全程成功后前进，指向本次最新条目
	if err := e.repo.UpdateTriggerLastID(ctx, trigger.ID, newIDs[0]); err != nil {
		e.failTriggerRun(ctx, wf, run, err)
		return err
	}
	trigger.LastID = newIDs[0]

	if err := e.repo.UpdateTriggerRun(ctx, run.ID, workflow.TriggerRun{
		Status:  workflow.TriggerRunCompleted,
		ItemIDs: newIDs,
	}); err != nil {
		log.Printf("❌ [TriggerCoordinator] 更新触发结果失败: RunID=%s, Error=%v", run.ID, err)
	}
	e.publishEvent(NewEngineEvent(EventTriggerChecked, run.ID, wf.ID).
		WithPayload("trigger_id", trigger.ID).
		WithPayload("item_count", len(newItems)))
	log.Printf("✅ [TriggerCoordinator] 触发成功: TriggerID=%s, 新条目=%d", trigger.ID, len(newItems))

	// 按时间顺序（最旧在前）逐条目构建种子输出包，键为触发器ID
	bags := make([]workflow.OutputBag, 0, len(newItems))
	for i := len(newItems) - 1; i >= 0; i-- {
		bags = append(bags, workflow.OutputBag{trigger.ID: newItems[i]})
	}
	return e.runWorkflowActions(ctx, run, wf, actions, bags)
}

// pollTriggerItems 调用轮询操作并提取条目列表
func (e *Engine) pollTriggerItems(
	ctx context.Context,
	trigger *workflow.WorkflowTrigger,
	triggerDef *integration.TriggerDefinition,
	integ *integration.Integration,
	creds *credential.Resolved,
) ([]map[string]any, error) {
	inputs, err := expression.ResolveInputs(trigger.Inputs, workflow.OutputBag{})
	if err != nil {
		return nil, err
	}

	result, err := e.invokeOperation(ctx, integ, triggerDef.OperationID, inputs, creds)
	if err != nil {
		return nil, err
	}
	return result.ItemList()
}

// dedupItems 按去重游标截取新条目
// 条目列表按最新在前排列；游标为空时只取最新一条（避免历史积压一次性涌入），
// 游标命中第k位时取前k条，未命中（条目过期被清理等）时全量视为新条目
func dedupItems(items []map[string]any, idKey, lastID string) ([]map[string]any, []string, error) {
	ids := make([]string, 0, len(items))
	for i, item := range items {
		raw, exists := item[idKey]
		if !exists {
			return nil, nil, fmt.Errorf("条目[%d]缺少标识字段 %s", i, idKey)
		}
		ids = append(ids, fmt.Sprintf("%v", raw))
	}
	if len(items) == 0 {
		return nil, nil, nil
	}

	if lastID == "" {
		return items[:1], ids[:1], nil
	}
	for i, id := range ids {
		if id == lastID {
			return items[:i], ids[:i], nil
		}
	}
	return items, ids, nil
}

// populateItems 对每个新条目调用补全操作，输出合并到条目字段之下
func (e *Engine) populateItems(
	ctx context.Context,
	trigger *workflow.WorkflowTrigger,
	triggerDef *integration.TriggerDefinition,
	integ *integration.Integration,
	creds *credential.Resolved,
	items []map[string]any,
) error {
	for i, item := range items {
		// 补全操作的输入以条目为根解析，键为触发器ID
		inputs, err := expression.ResolveInputs(triggerDef.Populate.Inputs, workflow.OutputBag{trigger.ID: item})
		if err != nil {
			return fmt.Errorf("条目[%d]补全输入解析失败: %w", i, err)
		}
		result, err := e.invokeOperation(ctx, integ, triggerDef.Populate.OperationID, inputs, creds)
		if err != nil {
			return fmt.Errorf("条目[%d]补全调用失败: %w", i, err)
		}
		for key, value := range result.Outputs {
			if _, exists := item[key]; !exists {
				item[key] = value
			}
		}
	}
	return nil
}

// failTriggerRun 记录触发失败并触发失败级联
// 失败原因是外部操作调用时，把原始响应文本一并落盘
func (e *Engine) failTriggerRun(ctx context.Context, wf *workflow.Workflow, run *workflow.WorkflowRun, cause error) {
	log.Printf("❌ [TriggerCoordinator] 触发失败: WorkflowID=%s, RunID=%s, Error=%v", wf.ID, run.ID, cause)
	triggerRun := workflow.TriggerRun{
		Status: workflow.TriggerRunFailed,
		Error:  cause.Error(),
	}
	var invErr *integration.InvocationError
	if errors.As(cause, &invErr) {
		triggerRun.ErrorDetail = invErr.Response
	}
	if err := e.repo.UpdateTriggerRun(ctx, run.ID, triggerRun); err != nil {
		log.Printf("❌ [TriggerCoordinator] 更新触发结果失败: RunID=%s, Error=%v", run.ID, err)
	}
	e.finalizeRun(ctx, run, workflow.RunFailed)
	e.propagateFailure(ctx, wf)
}
