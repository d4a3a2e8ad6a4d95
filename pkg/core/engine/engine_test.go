package engine

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LENAX/flow-engine/pkg/core/credential"
	"github.com/LENAX/flow-engine/pkg/core/integration"
	"github.com/LENAX/flow-engine/pkg/core/workflow"
	"github.com/LENAX/flow-engine/pkg/storage"
	"github.com/LENAX/flow-engine/pkg/storage/sqlite"
)

// fakeInvoker 按OperationID路由的脚本化Invoker，记录全部调用
type fakeInvoker struct {
	mu      sync.Mutex
	calls   []*integration.InvocationRequest
	handler func(req *integration.InvocationRequest) (*integration.InvocationResult, error)
}

func (f *fakeInvoker) Invoke(_ context.Context, req *integration.InvocationRequest) (*integration.InvocationResult, error) {
	f.mu.Lock()
	f.calls = append(f.calls, req)
	f.mu.Unlock()
	return f.handler(req)
}

// callsFor 返回指定操作的全部调用请求
func (f *fakeInvoker) callsFor(operationID string) []*integration.InvocationRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	matched := make([]*integration.InvocationRequest, 0)
	for _, call := range f.calls {
		if call.OperationID == operationID {
			matched = append(matched, call)
		}
	}
	return matched
}

type testHarness struct {
	repo    storage.FlowAggregateRepository
	engine  *Engine
	invoker *fakeInvoker
}

// newTestHarness 搭建临时SQLite存储上的引擎测试环境
// 注册一个fake集成：轮询操作poll、补全操作populate、动作操作step/next
func newTestHarness(t *testing.T) *testHarness {
	t.Helper()

	repo, err := sqlite.NewFlowAggregateRepoFromDSN(filepath.Join(t.TempDir(), "flow.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })

	invoker := &fakeInvoker{}
	registry := integration.NewDefinitionRegistry()
	require.NoError(t, registry.RegisterIntegration(&integration.Integration{
		ID:   "intg-fake",
		Name: "Fake",
		Kind: "fake",
	}, invoker))
	require.NoError(t, registry.RegisterTrigger(&integration.TriggerDefinition{
		ID:            "td-poll",
		IntegrationID: "intg-fake",
		Name:          "轮询新条目",
		OperationID:   "poll",
		IDKey:         "id",
	}))
	require.NoError(t, registry.RegisterAction(&integration.ActionDefinition{
		ID:            "ad-step",
		IntegrationID: "intg-fake",
		Name:          "执行步骤",
		OperationID:   "step",
	}))
	require.NoError(t, registry.RegisterAction(&integration.ActionDefinition{
		ID:            "ad-next",
		IntegrationID: "intg-fake",
		Name:          "后继步骤",
		OperationID:   "next",
	}))

	credResolver, err := credential.NewResolver(repo, "")
	require.NoError(t, err)

	eng, err := NewEngine(repo, registry, credResolver, time.Hour, false)
	require.NoError(t, err)

	return &testHarness{repo: repo, engine: eng, invoker: invoker}
}

// saveWorkflowWithTrigger 保存带触发器的Workflow，返回触发器
func (h *testHarness) saveWorkflowWithTrigger(t *testing.T, wf *workflow.Workflow, actions []*workflow.WorkflowAction) *workflow.WorkflowTrigger {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, h.repo.SaveWorkflow(ctx, wf, actions))

	trigger := &workflow.WorkflowTrigger{
		ID:                   "trig-" + wf.ID,
		WorkflowID:           wf.ID,
		IntegrationTriggerID: "td-poll",
		Inputs:               map[string]any{},
	}
	require.NoError(t, h.repo.SaveTrigger(ctx, trigger))
	return trigger
}

// pollItems 构造轮询结果（最新在前）
func pollItems(ids ...string) *integration.InvocationResult {
	items := make([]any, 0, len(ids))
	for _, id := range ids {
		items = append(items, map[string]any{"id": id, "title": "条目" + id})
	}
	return &integration.InvocationResult{Outputs: map[string]any{"items": items}}
}

func TestDedupItems(t *testing.T) {
	items := []map[string]any{
		{"id": "4"}, {"id": "3"}, {"id": "2"}, {"id": "1"},
	}

	// 首次轮询只取最新一条，避免历史积压一次性涌入
	newItems, ids, err := dedupItems(items, "id", "")
	require.NoError(t, err)
	assert.Equal(t, []string{"4"}, ids)
	assert.Len(t, newItems, 1)

	// 游标命中第k位时取前k条
	newItems, ids, err = dedupItems(items, "id", "2")
	require.NoError(t, err)
	assert.Equal(t, []string{"4", "3"}, ids)
	assert.Len(t, newItems, 2)

	// 游标命中最新条目时无新条目
	_, ids, err = dedupItems(items, "id", "4")
	require.NoError(t, err)
	assert.Empty(t, ids)

	// 游标未命中（条目已过期清理）时全量视为新条目
	_, ids, err = dedupItems(items, "id", "999")
	require.NoError(t, err)
	assert.Equal(t, []string{"4", "3", "2", "1"}, ids)

	// 空列表
	newItems, ids, err = dedupItems(nil, "id", "")
	require.NoError(t, err)
	assert.Empty(t, newItems)
	assert.Empty(t, ids)

	// 条目缺少标识字段
	_, _, err = dedupItems([]map[string]any{{"title": "无ID"}}, "id", "")
	assert.Error(t, err)
}

func TestTriggerCheck_BootstrapTakesNewestOnly(t *testing.T) {
	h := newTestHarness(t)
	ctx := context.Background()

	wf := workflow.NewWorkflow("测试工作流", "owner-1")
	action := workflow.NewWorkflowAction("处理条目", wf.ID, "ad-step")
	action.IsRootAction = true
	trigger := h.saveWorkflowWithTrigger(t, wf, []*workflow.WorkflowAction{action})
	action.Inputs = map[string]any{"item_id": "{{ " + trigger.ID + ".id }}"}
	require.NoError(t, h.repo.SaveWorkflow(ctx, wf, []*workflow.WorkflowAction{action}))

	h.invoker.handler = func(req *integration.InvocationRequest) (*integration.InvocationResult, error) {
		if req.OperationID == "poll" {
			return pollItems("4", "3", "2"), nil
		}
		return &integration.InvocationResult{Outputs: map[string]any{}}, nil
	}

	require.NoError(t, h.engine.RunWorkflowTriggerCheck(ctx, trigger))

	// 只消费最新一条
	steps := h.invoker.callsFor("step")
	require.Len(t, steps, 1)
	assert.Equal(t, "4", steps[0].Inputs["item_id"])

	// 游标前进到最新条目
	stored, err := h.repo.GetTrigger(ctx, trigger.ID)
	require.NoError(t, err)
	assert.Equal(t, "4", stored.LastID)

	runs, err := h.repo.ListRuns(ctx, wf.ID)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, workflow.RunCompleted, runs[0].Status)
	assert.Equal(t, workflow.StartedByTriggerCheck, runs[0].StartedBy)
	assert.Equal(t, workflow.TriggerRunCompleted, runs[0].TriggerRun.Status)
	assert.Equal(t, []string{"4"}, runs[0].TriggerRun.ItemIDs)
}

func TestTriggerCheck_CursorDispatchesChronologically(t *testing.T) {
	h := newTestHarness(t)
	ctx := context.Background()

	wf := workflow.NewWorkflow("测试工作流", "owner-1")
	action := workflow.NewWorkflowAction("处理条目", wf.ID, "ad-step")
	action.IsRootAction = true
	trigger := h.saveWorkflowWithTrigger(t, wf, []*workflow.WorkflowAction{action})
	action.Inputs = map[string]any{"item_id": "{{ " + trigger.ID + ".id }}"}
	require.NoError(t, h.repo.SaveWorkflow(ctx, wf, []*workflow.WorkflowAction{action}))

	trigger.LastID = "2"
	require.NoError(t, h.repo.SaveTrigger(ctx, trigger))

	h.invoker.handler = func(req *integration.InvocationRequest) (*integration.InvocationResult, error) {
		if req.OperationID == "poll" {
			return pollItems("4", "3", "2", "1"), nil
		}
		return &integration.InvocationResult{Outputs: map[string]any{}}, nil
	}

	require.NoError(t, h.engine.RunWorkflowTriggerCheck(ctx, trigger))

	// 新条目4、3按时间顺序（最旧在前）执行
	steps := h.invoker.callsFor("step")
	require.Len(t, steps, 2)
	assert.Equal(t, "3", steps[0].Inputs["item_id"])
	assert.Equal(t, "4", steps[1].Inputs["item_id"])

	stored, err := h.repo.GetTrigger(ctx, trigger.ID)
	require.NoError(t, err)
	assert.Equal(t, "4", stored.LastID)
}

func TestTriggerCheck_NotSatisfied(t *testing.T) {
	h := newTestHarness(t)
	ctx := context.Background()

	wf := workflow.NewWorkflow("测试工作流", "owner-1")
	action := workflow.NewWorkflowAction("处理条目", wf.ID, "ad-step")
	action.IsRootAction = true
	trigger := h.saveWorkflowWithTrigger(t, wf, []*workflow.WorkflowAction{action})
	trigger.LastID = "4"
	require.NoError(t, h.repo.SaveTrigger(ctx, trigger))

	h.invoker.handler = func(req *integration.InvocationRequest) (*integration.InvocationResult, error) {
		return pollItems("4", "3"), nil
	}

	require.NoError(t, h.engine.RunWorkflowTriggerCheck(ctx, trigger))

	// 没有新条目：不执行任何Action，运行完成并记录not_satisfied
	assert.Empty(t, h.invoker.callsFor("step"))
	runs, err := h.repo.ListRuns(ctx, wf.ID)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, workflow.RunCompleted, runs[0].Status)
	assert.Equal(t, workflow.TriggerRunNotSatisfied, runs[0].TriggerRun.Status)

	// 游标不前进
	stored, err := h.repo.GetTrigger(ctx, trigger.ID)
	require.NoError(t, err)
	assert.Equal(t, "4", stored.LastID)
}

func TestTriggerCheck_NoRootActionsExitsWithoutRun(t *testing.T) {
	h := newTestHarness(t)
	ctx := context.Background()

	// 没有任何Action节点的工作流无法响应触发
	wf := workflow.NewWorkflow("空工作流", "owner-1")
	trigger := h.saveWorkflowWithTrigger(t, wf, nil)

	h.invoker.handler = func(req *integration.InvocationRequest) (*integration.InvocationResult, error) {
		return pollItems("1"), nil
	}

	err := h.engine.RunWorkflowTriggerCheck(ctx, trigger)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConfiguration)

	// 在轮询之前退出：不创建运行实例，不调用轮询操作
	assert.Empty(t, h.invoker.callsFor("poll"))
	runs, err := h.repo.ListRuns(ctx, wf.ID)
	require.NoError(t, err)
	assert.Empty(t, runs)

	// 游标不前进，条目留待工作流修复后消费
	stored, err := h.repo.GetTrigger(ctx, trigger.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.LastID)
}

func TestTriggerCheck_FailureRecordsResponseDetail(t *testing.T) {
	h := newTestHarness(t)
	ctx := context.Background()

	wf := workflow.NewWorkflow("测试工作流", "owner-1")
	action := workflow.NewWorkflowAction("处理条目", wf.ID, "ad-step")
	action.IsRootAction = true
	trigger := h.saveWorkflowWithTrigger(t, wf, []*workflow.WorkflowAction{action})

	h.invoker.handler = func(req *integration.InvocationRequest) (*integration.InvocationResult, error) {
		return nil, integration.NewInvocationError("轮询接口失败", `{"status":503}`)
	}

	err := h.engine.RunWorkflowTriggerCheck(ctx, trigger)
	require.Error(t, err)

	// 触发失败记录错误信息和外部系统原始响应
	runs, err := h.repo.ListRuns(ctx, wf.ID)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, workflow.RunFailed, runs[0].Status)
	assert.Equal(t, workflow.TriggerRunFailed, runs[0].TriggerRun.Status)
	assert.Contains(t, runs[0].TriggerRun.Error, "轮询接口失败")
	assert.Equal(t, `{"status":503}`, runs[0].TriggerRun.ErrorDetail)

	// 失败不前进游标，不执行任何Action
	stored, err := h.repo.GetTrigger(ctx, trigger.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.LastID)
	assert.Empty(t, h.invoker.callsFor("step"))
}

func TestTriggerCheck_PopulateMergesUnderneath(t *testing.T) {
	h := newTestHarness(t)
	ctx := context.Background()

	require.NoError(t, h.engine.Registry().RegisterTrigger(&integration.TriggerDefinition{
		ID:            "td-populated",
		IntegrationID: "intg-fake",
		Name:          "带补全的轮询",
		OperationID:   "poll",
		IDKey:         "id",
		Populate: &integration.PopulateExtension{
			OperationID: "populate",
			Inputs:      map[string]any{},
		},
	}))

	wf := workflow.NewWorkflow("测试工作流", "owner-1")
	action := workflow.NewWorkflowAction("处理条目", wf.ID, "ad-step")
	action.IsRootAction = true
	trigger := h.saveWorkflowWithTrigger(t, wf, []*workflow.WorkflowAction{action})
	trigger.IntegrationTriggerID = "td-populated"
	require.NoError(t, h.repo.SaveTrigger(ctx, trigger))
	action.Inputs = map[string]any{
		"item_id": "{{ " + trigger.ID + ".id }}",
		"detail":  "{{ " + trigger.ID + ".detail }}",
	}
	require.NoError(t, h.repo.SaveWorkflow(ctx, wf, []*workflow.WorkflowAction{action}))

	h.invoker.handler = func(req *integration.InvocationRequest) (*integration.InvocationResult, error) {
		switch req.OperationID {
		case "poll":
			return pollItems("7"), nil
		case "populate":
			// id不应覆盖条目自身字段，detail应合并进条目
			return &integration.InvocationResult{Outputs: map[string]any{
				"id":     "覆盖无效",
				"detail": "补全详情",
			}}, nil
		default:
			return &integration.InvocationResult{Outputs: map[string]any{}}, nil
		}
	}

	require.NoError(t, h.engine.RunWorkflowTriggerCheck(ctx, trigger))

	steps := h.invoker.callsFor("step")
	require.Len(t, steps, 1)
	assert.Equal(t, "7", steps[0].Inputs["item_id"])
	assert.Equal(t, "补全详情", steps[0].Inputs["detail"])
}

func TestStartWorkflowRun_BranchConditionSelectsEdges(t *testing.T) {
	h := newTestHarness(t)
	ctx := context.Background()

	wf := workflow.NewWorkflow("分支工作流", "owner-1")
	root := workflow.NewWorkflowAction("决策", wf.ID, "ad-step")
	root.IsRootAction = true
	yesTarget := workflow.NewWorkflowAction("是分支", wf.ID, "ad-next")
	yesTarget.Inputs = map[string]any{"branch": "yes"}
	noTarget := workflow.NewWorkflowAction("否分支", wf.ID, "ad-next")
	noTarget.Inputs = map[string]any{"branch": "no"}
	alwaysTarget := workflow.NewWorkflowAction("无条件分支", wf.ID, "ad-next")
	alwaysTarget.Inputs = map[string]any{"branch": "always"}
	root.NextActions = []workflow.ActionEdge{
		{TargetActionID: yesTarget.ID, Condition: "yes"},
		{TargetActionID: noTarget.ID, Condition: "no"},
		{TargetActionID: alwaysTarget.ID},
	}
	require.NoError(t, h.repo.SaveWorkflow(ctx, wf,
		[]*workflow.WorkflowAction{root, yesTarget, noTarget, alwaysTarget}))

	h.invoker.handler = func(req *integration.InvocationRequest) (*integration.InvocationResult, error) {
		if req.OperationID == "step" {
			return &integration.InvocationResult{Outputs: map[string]any{}, Condition: "yes"}, nil
		}
		return &integration.InvocationResult{Outputs: map[string]any{}}, nil
	}

	require.NoError(t, h.engine.StartWorkflowRun(ctx, wf.ID, nil, nil))

	branches := make([]string, 0)
	for _, call := range h.invoker.callsFor("next") {
		branches = append(branches, call.Inputs["branch"].(string))
	}
	assert.ElementsMatch(t, []string{"yes", "always"}, branches)
}

func TestStartWorkflowRun_OutputsFlowDownstream(t *testing.T) {
	h := newTestHarness(t)
	ctx := context.Background()

	wf := workflow.NewWorkflow("串联工作流", "owner-1")
	root := workflow.NewWorkflowAction("生产", wf.ID, "ad-step")
	root.IsRootAction = true
	successor := workflow.NewWorkflowAction("消费", wf.ID, "ad-next")
	successor.Inputs = map[string]any{"token": "{{ " + root.ID + ".token }}"}
	root.NextActions = []workflow.ActionEdge{{TargetActionID: successor.ID}}
	require.NoError(t, h.repo.SaveWorkflow(ctx, wf, []*workflow.WorkflowAction{root, successor}))

	h.invoker.handler = func(req *integration.InvocationRequest) (*integration.InvocationResult, error) {
		if req.OperationID == "step" {
			return &integration.InvocationResult{Outputs: map[string]any{"token": "abc123"}}, nil
		}
		return &integration.InvocationResult{Outputs: map[string]any{}}, nil
	}

	require.NoError(t, h.engine.StartWorkflowRun(ctx, wf.ID, nil, nil))

	nexts := h.invoker.callsFor("next")
	require.Len(t, nexts, 1)
	assert.Equal(t, "abc123", nexts[0].Inputs["token"])

	runs, err := h.repo.ListRuns(ctx, wf.ID)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, workflow.RunCompleted, runs[0].Status)
	assert.Equal(t, workflow.StartedByManual, runs[0].StartedBy)

	runActions, err := h.repo.ListRunActions(ctx, runs[0].ID)
	require.NoError(t, err)
	assert.Len(t, runActions, 2)
	for _, ra := range runActions {
		assert.Equal(t, workflow.RunActionCompleted, ra.Status)
	}
}

func TestStartWorkflowRun_SiblingBranchSurvivesFailure(t *testing.T) {
	h := newTestHarness(t)
	ctx := context.Background()

	// 两个根节点并发执行，一个分支失败不影响兄弟分支
	wf := workflow.NewWorkflow("双根工作流", "owner-1")
	failRoot := workflow.NewWorkflowAction("必败分支", wf.ID, "ad-step")
	failRoot.IsRootAction = true
	okRoot := workflow.NewWorkflowAction("正常分支", wf.ID, "ad-next")
	okRoot.IsRootAction = true
	require.NoError(t, h.repo.SaveWorkflow(ctx, wf, []*workflow.WorkflowAction{failRoot, okRoot}))

	h.invoker.handler = func(req *integration.InvocationRequest) (*integration.InvocationResult, error) {
		if req.OperationID == "step" {
			return nil, integration.NewInvocationError("外部调用失败", `{"status":500}`)
		}
		return &integration.InvocationResult{Outputs: map[string]any{}}, nil
	}

	require.NoError(t, h.engine.StartWorkflowRun(ctx, wf.ID, nil, nil))

	// 兄弟分支照常执行完成
	assert.Len(t, h.invoker.callsFor("next"), 1)

	runs, err := h.repo.ListRuns(ctx, wf.ID)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, workflow.RunFailed, runs[0].Status)

	runActions, err := h.repo.ListRunActions(ctx, runs[0].ID)
	require.NoError(t, err)
	require.Len(t, runActions, 2)
	statusByAction := map[string]workflow.RunActionStatus{}
	for _, ra := range runActions {
		statusByAction[ra.ActionID] = ra.Status
	}
	assert.Equal(t, workflow.RunActionFailed, statusByAction[failRoot.ID])
	assert.Equal(t, workflow.RunActionCompleted, statusByAction[okRoot.ID])

	// 运行只收尾一次：终态写入后不再被覆盖
	changed, err := h.repo.UpdateRunStatus(ctx, runs[0].ID, workflow.RunCompleted)
	require.NoError(t, err)
	assert.False(t, changed)
}

func TestSleepAndWakeUp(t *testing.T) {
	h := newTestHarness(t)
	ctx := context.Background()

	wf := workflow.NewWorkflow("挂起工作流", "owner-1")
	root := workflow.NewWorkflowAction("挂起节点", wf.ID, "ad-step")
	root.IsRootAction = true
	successor := workflow.NewWorkflowAction("唤醒后继", wf.ID, "ad-next")
	successor.Inputs = map[string]any{"token": "{{ " + root.ID + ".token }}"}
	root.NextActions = []workflow.ActionEdge{{TargetActionID: successor.ID}}
	require.NoError(t, h.repo.SaveWorkflow(ctx, wf, []*workflow.WorkflowAction{root, successor}))

	wakeAt := time.Now().Add(time.Hour)
	h.invoker.handler = func(req *integration.InvocationRequest) (*integration.InvocationResult, error) {
		if req.OperationID == "step" {
			return &integration.InvocationResult{
				Outputs:    map[string]any{"token": "abc123"},
				SleepUntil: &wakeAt,
			}, nil
		}
		return &integration.InvocationResult{Outputs: map[string]any{}}, nil
	}

	require.NoError(t, h.engine.StartWorkflowRun(ctx, wf.ID, nil, nil))

	// 挂起分支停止在挂起节点，后继不执行
	assert.Empty(t, h.invoker.callsFor("next"))

	// 续体已持久化，携带累积输出包快照
	sleeps, err := h.repo.FindDueSleeps(ctx, wakeAt.Add(time.Minute))
	require.NoError(t, err)
	require.Len(t, sleeps, 1)
	sleep := sleeps[0]
	assert.Equal(t, root.ID, sleep.ActionID)
	outputs, exists := sleep.NextActionInputs.Lookup(root.ID)
	require.True(t, exists)
	assert.Equal(t, "abc123", outputs["token"])

	// 认领删除保证最多消费一次
	claimed, err := h.repo.ClaimSleep(ctx, sleep.ID)
	require.NoError(t, err)
	assert.True(t, claimed)
	claimed, err = h.repo.ClaimSleep(ctx, sleep.ID)
	require.NoError(t, err)
	assert.False(t, claimed)

	// 唤醒：后继以快照输出包恢复执行
	require.NoError(t, h.engine.WakeUpWorkflowRun(ctx, sleep))
	nexts := h.invoker.callsFor("next")
	require.Len(t, nexts, 1)
	assert.Equal(t, "abc123", nexts[0].Inputs["token"])

	runs, err := h.repo.ListRuns(ctx, wf.ID)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, workflow.RunCompleted, runs[0].Status)
}

func TestWakeUp_LostContinuation(t *testing.T) {
	h := newTestHarness(t)
	ctx := context.Background()

	// 运行实例已不存在：不报错，发布可观测事件后放弃
	sleep := workflow.NewWorkflowSleep("run-不存在", "action-不存在", workflow.OutputBag{}, time.Now())
	require.NoError(t, h.engine.WakeUpWorkflowRun(ctx, sleep))
	assert.Empty(t, h.invoker.calls)
}

func TestFailureCascade(t *testing.T) {
	h := newTestHarness(t)
	ctx := context.Background()

	// 失败时级联启动的工作流
	onFailure := workflow.NewWorkflow("告警工作流", "owner-1")
	notify := workflow.NewWorkflowAction("发送告警", onFailure.ID, "ad-next")
	notify.IsRootAction = true
	notify.Inputs = map[string]any{"channel": "ops"}
	require.NoError(t, h.repo.SaveWorkflow(ctx, onFailure, []*workflow.WorkflowAction{notify}))

	wf := workflow.NewWorkflow("主工作流", "owner-1")
	wf.OnFailureWorkflowID = onFailure.ID
	root := workflow.NewWorkflowAction("必败节点", wf.ID, "ad-step")
	root.IsRootAction = true
	require.NoError(t, h.repo.SaveWorkflow(ctx, wf, []*workflow.WorkflowAction{root}))

	h.invoker.handler = func(req *integration.InvocationRequest) (*integration.InvocationResult, error) {
		if req.OperationID == "step" {
			return nil, integration.NewInvocationError("外部调用失败", `{"status":500}`)
		}
		return &integration.InvocationResult{Outputs: map[string]any{}}, nil
	}

	err := h.engine.StartWorkflowRun(ctx, wf.ID, nil, nil)
	require.NoError(t, err)

	// 主运行失败，节点记录携带错误信息和原始响应
	runs, err := h.repo.ListRuns(ctx, wf.ID)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, workflow.RunFailed, runs[0].Status)
	runActions, err := h.repo.ListRunActions(ctx, runs[0].ID)
	require.NoError(t, err)
	require.Len(t, runActions, 1)
	assert.Equal(t, workflow.RunActionFailed, runActions[0].Status)
	assert.Equal(t, "外部调用失败", runActions[0].ErrorMsg)
	assert.Equal(t, `{"status":500}`, runActions[0].ErrorDetail)

	// 级联运行以空输出包启动并完成
	cascadeRuns, err := h.repo.ListRuns(ctx, onFailure.ID)
	require.NoError(t, err)
	require.Len(t, cascadeRuns, 1)
	assert.Equal(t, workflow.StartedByFailureCascade, cascadeRuns[0].StartedBy)
	assert.Equal(t, workflow.RunCompleted, cascadeRuns[0].Status)
	notifies := h.invoker.callsFor("next")
	require.Len(t, notifies, 1)
	assert.Equal(t, "ops", notifies[0].Inputs["channel"])
}

func TestStartWorkflowRun_ConfigurationError(t *testing.T) {
	h := newTestHarness(t)
	ctx := context.Background()

	wf := workflow.NewWorkflow("错误配置工作流", "owner-1")
	root := workflow.NewWorkflowAction("未注册动作", wf.ID, "ad-未注册")
	root.IsRootAction = true
	require.NoError(t, h.repo.SaveWorkflow(ctx, wf, []*workflow.WorkflowAction{root}))

	err := h.engine.StartWorkflowRun(ctx, wf.ID, nil, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConfiguration)
}
