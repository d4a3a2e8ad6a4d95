package engine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/LENAX/flow-engine/pkg/core/credential"
	"github.com/LENAX/flow-engine/pkg/core/expression"
	"github.com/LENAX/flow-engine/pkg/core/integration"
	"github.com/LENAX/flow-engine/pkg/core/workflow"
)

// runWorkflowActions 执行全部种子输出包上的Action图
// 每个种子包内的根节点并发执行，全部根分支结束后才处理下一个种子包；
// 所有种子包处理完毕后设置运行终态（任一分支失败则failed，否则completed）。
// 单个分支失败不取消兄弟分支；配置错误中止整个调用并上抛
func (e *Engine) runWorkflowActions(
	ctx context.Context,
	run *workflow.WorkflowRun,
	wf *workflow.Workflow,
	actions []*workflow.WorkflowAction,
	bags []workflow.OutputBag,
) error {
	actionsByID := make(map[string]*workflow.WorkflowAction, len(actions))
	for _, action := range actions {
		actionsByID[action.ID] = action
	}
	roots := workflow.RootActions(actions)

	anyFailed := false
	for _, bag := range bags {
		var wg sync.WaitGroup
		var mu sync.Mutex
		var configErr error

		for _, root := range roots {
			wg.Add(1)
			go func(root *workflow.WorkflowAction) {
				defer wg.Done()
				if err := e.runWorkflowActionsTree(ctx, run, wf, actionsByID, root, bag); err != nil {
					mu.Lock()
					if errors.Is(err, ErrConfiguration) && configErr == nil {
						configErr = err
					}
					anyFailed = true
					mu.Unlock()
				}
			}(root)
		}
		wg.Wait()

		if configErr != nil {
			return configErr
		}
	}

	status := workflow.RunCompleted
	if anyFailed {
		status = workflow.RunFailed
	}
	e.finalizeRun(ctx, run, status)
	return nil
}

// runWorkflowActionsTree 递归执行单个Action节点及其选中的后继子树
// 步骤：解析动作定义 -> 记录running -> 解析凭证 -> 解析输入 -> 调用操作 ->
// 不可变扩展输出包 -> 挂起或按出边条件并发递归。
// 返回非nil表示本分支失败（已记录并级联），配置错误除外（直接上抛）
func (e *Engine) runWorkflowActionsTree(
	ctx context.Context,
	run *workflow.WorkflowRun,
	wf *workflow.Workflow,
	actionsByID map[string]*workflow.WorkflowAction,
	action *workflow.WorkflowAction,
	bag workflow.OutputBag,
) error {
	actionDef, exists := e.registry.GetAction(action.IntegrationActionID)
	if !exists {
		return configErrorf("Action %s 引用的动作定义 %s 不存在", action.ID, action.IntegrationActionID)
	}
	integ, exists := e.registry.GetIntegration(actionDef.IntegrationID)
	if !exists {
		return configErrorf("动作定义 %s 引用的集成 %s 不存在", actionDef.ID, actionDef.IntegrationID)
	}

	runAction := workflow.NewWorkflowRunAction(run.ID, action.ID)
	if err := e.repo.SaveRunAction(ctx, runAction); err != nil {
		return err
	}

	// 凭证解析；缺失凭证通过回调先落盘失败状态，再级联
	creds, err := e.credResolver.Resolve(ctx, action.CredentialID, func() {
		e.markRunActionFailed(ctx, runAction, "凭证记录不存在", "")
	})
	if err != nil {
		if !errors.Is(err, credential.ErrCredentialNotFound) {
			e.markRunActionFailed(ctx, runAction, err.Error(), "")
		}
		e.publishActionFailed(run, action, err.Error())
		e.propagateFailure(ctx, wf)
		return err
	}

	// 输入解析
	inputs, err := expression.ResolveInputs(action.Inputs, bag)
	if err != nil {
		e.markRunActionFailed(ctx, runAction, err.Error(), "")
		e.publishActionFailed(run, action, err.Error())
		e.propagateFailure(ctx, wf)
		return err
	}

	// 操作调用
	result, err := e.invokeOperation(ctx, integ, actionDef.OperationID, inputs, creds)
	if err != nil {
		if errors.Is(err, ErrConfiguration) {
			return err
		}
		detail := ""
		var invErr *integration.InvocationError
		if errors.As(err, &invErr) {
			detail = invErr.Response
		}
		e.markRunActionFailed(ctx, runAction, err.Error(), detail)
		e.publishActionFailed(run, action, err.Error())
		e.propagateFailure(ctx, wf)
		return err
	}

	runAction.Status = workflow.RunActionCompleted
	runAction.EndTime = time.Now()
	if err := e.repo.UpdateRunAction(ctx, runAction); err != nil {
		log.Printf("❌ [ActionTree] 更新RunAction状态失败: %v", err)
	}
	e.publishEvent(NewEngineEvent(EventActionCompleted, run.ID, wf.ID).WithPayload("action_id", action.ID))

	// 以本节点输出不可变扩展输出包，后代只看到自己路径上祖先的输出
	nextBag := bag.Extend(action.ID, result.Outputs)

	// 操作要求挂起：持久化续体并停止本分支，由唤醒路径恢复
	if result.SleepUntil != nil {
		sleep := workflow.NewWorkflowSleep(run.ID, action.ID, nextBag, *result.SleepUntil)
		if err := e.repo.SaveSleep(ctx, sleep); err != nil {
			return err
		}
		log.Printf("🕐 [ActionTree] 分支挂起: RunID=%s, ActionID=%s, WakeAt=%s",
			run.ID, action.ID, sleep.WakeAt.Format(time.RFC3339))
		e.publishEvent(NewEngineEvent(EventSleepScheduled, run.ID, wf.ID).
			WithPayload("action_id", action.ID).
			WithPayload("wake_at", sleep.WakeAt))
		return nil
	}

	// 出边选择：无条件边总是触发，有条件边按分支条件的字符串形式匹配
	selected := selectEdges(action.NextActions, result.Condition)
	return e.runSelectedBranches(ctx, run, wf, actionsByID, selected, nextBag)
}

// selectEdges 按分支条件筛选出边
func selectEdges(edges []workflow.ActionEdge, condition any) []workflow.ActionEdge {
	selected := make([]workflow.ActionEdge, 0, len(edges))
	for _, edge := range edges {
		if edge.Condition == "" {
			selected = append(selected, edge)
			continue
		}
		if condition != nil && edge.Condition == fmt.Sprintf("%v", condition) {
			selected = append(selected, edge)
		}
	}
	return selected
}

// runSelectedBranches 并发递归执行选中的后继分支，等待全部结束
// 兄弟分支互不影响；返回第一个分支失败（供上层统计），配置错误优先上抛
func (e *Engine) runSelectedBranches(
	ctx context.Context,
	run *workflow.WorkflowRun,
	wf *workflow.Workflow,
	actionsByID map[string]*workflow.WorkflowAction,
	edges []workflow.ActionEdge,
	bag workflow.OutputBag,
) error {
	// 先解析全部目标节点再启动分支，避免中途失败时丢下已启动的goroutine
	targets := make([]*workflow.WorkflowAction, 0, len(edges))
	for _, edge := range edges {
		target, exists := actionsByID[edge.TargetActionID]
		if !exists {
			return configErrorf("出边目标Action %s 不存在", edge.TargetActionID)
		}
		targets = append(targets, target)
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	var configErr error
	var branchErr error

	for _, target := range targets {
		wg.Add(1)
		go func(target *workflow.WorkflowAction) {
			defer wg.Done()
			if err := e.runWorkflowActionsTree(ctx, run, wf, actionsByID, target, bag); err != nil {
				mu.Lock()
				if errors.Is(err, ErrConfiguration) && configErr == nil {
					configErr = err
				} else if branchErr == nil {
					branchErr = err
				}
				mu.Unlock()
			}
		}(target)
	}
	wg.Wait()

	if configErr != nil {
		return configErr
	}
	return branchErr
}

// markRunActionFailed 将节点执行记录落盘为失败
func (e *Engine) markRunActionFailed(ctx context.Context, runAction *workflow.WorkflowRunAction, errorMsg, errorDetail string) {
	runAction.Status = workflow.RunActionFailed
	runAction.EndTime = time.Now()
	runAction.ErrorMsg = errorMsg
	runAction.ErrorDetail = errorDetail
	if err := e.repo.UpdateRunAction(ctx, runAction); err != nil {
		log.Printf("❌ [ActionTree] 更新RunAction失败状态失败: %v", err)
	}
}

// publishActionFailed 发布节点失败事件
func (e *Engine) publishActionFailed(run *workflow.WorkflowRun, action *workflow.WorkflowAction, errorMsg string) {
	e.publishEvent(NewEngineEvent(EventActionFailed, run.ID, run.WorkflowID).
		WithPayload("action_id", action.ID).
		WithPayload("error", errorMsg))
}
