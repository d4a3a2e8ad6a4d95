package sqlrepo_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LENAX/flow-engine/pkg/core/workflow"
	"github.com/LENAX/flow-engine/pkg/storage"
	"github.com/LENAX/flow-engine/pkg/storage/sqlite"
)

func newTestRepo(t *testing.T) storage.FlowAggregateRepository {
	t.Helper()
	repo, err := sqlite.NewFlowAggregateRepoFromDSN(filepath.Join(t.TempDir(), "flow.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func sampleWorkflow(t *testing.T) (*workflow.Workflow, []*workflow.WorkflowAction) {
	t.Helper()
	wf := workflow.NewWorkflow("工单同步", "user-1")
	first := workflow.NewWorkflowAction("抓取工单", wf.ID, "http.request")
	first.IsRootAction = true
	first.Inputs = map[string]any{"url": "https://api.example.com/tickets/{{ trigger.id }}"}
	second := workflow.NewWorkflowAction("发送通知", wf.ID, "http.request")
	second.CredentialID = "cred-1"
	first.NextActions = []workflow.ActionEdge{
		{TargetActionID: second.ID, Condition: "open"},
	}
	return wf, []*workflow.WorkflowAction{first, second}
}

func TestSaveWorkflowRoundTrip(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	wf, actions := sampleWorkflow(t)
	wf.OnFailureWorkflowID = "wf-alert"
	require.NoError(t, repo.SaveWorkflow(ctx, wf, actions))

	loaded, err := repo.GetWorkflow(ctx, wf.ID)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, wf.Name, loaded.Name)
	assert.Equal(t, "wf-alert", loaded.OnFailureWorkflowID)
	assert.Equal(t, workflow.WorkflowEnabled, loaded.Status)

	loadedActions, err := repo.GetWorkflowActions(ctx, wf.ID)
	require.NoError(t, err)
	require.Len(t, loadedActions, 2)

	byID := make(map[string]*workflow.WorkflowAction, len(loadedActions))
	for _, a := range loadedActions {
		byID[a.ID] = a
	}
	first := byID[actions[0].ID]
	require.NotNil(t, first)
	assert.True(t, first.IsRootAction)
	assert.Equal(t, "https://api.example.com/tickets/{{ trigger.id }}", first.Inputs["url"])
	require.Len(t, first.NextActions, 1)
	assert.Equal(t, actions[1].ID, first.NextActions[0].TargetActionID)
	assert.Equal(t, "open", first.NextActions[0].Condition)

	second := byID[actions[1].ID]
	require.NotNil(t, second)
	assert.Equal(t, "cred-1", second.CredentialID)
}

func TestSaveWorkflowReplacesActions(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	wf, actions := sampleWorkflow(t)
	require.NoError(t, repo.SaveWorkflow(ctx, wf, actions))

	// 重新保存时只保留新的Action图
	replacement := workflow.NewWorkflowAction("新根节点", wf.ID, "http.request")
	replacement.IsRootAction = true
	require.NoError(t, repo.SaveWorkflow(ctx, wf, []*workflow.WorkflowAction{replacement}))

	loadedActions, err := repo.GetWorkflowActions(ctx, wf.ID)
	require.NoError(t, err)
	require.Len(t, loadedActions, 1)
	assert.Equal(t, replacement.ID, loadedActions[0].ID)
}

func TestSaveWorkflowRejectsInvalidGraph(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	wf := workflow.NewWorkflow("悬空出边", "user-1")
	action := workflow.NewWorkflowAction("根节点", wf.ID, "http.request")
	action.IsRootAction = true
	action.NextActions = []workflow.ActionEdge{{TargetActionID: "missing"}}

	err := repo.SaveWorkflow(ctx, wf, []*workflow.WorkflowAction{action})
	assert.Error(t, err)
}

func TestTriggerLastIDCursor(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	trigger := &workflow.WorkflowTrigger{
		ID:                   "trig-1",
		WorkflowID:           "wf-1",
		IntegrationTriggerID: "http.poll",
		Inputs:               map[string]any{"url": "https://api.example.com/items"},
	}
	require.NoError(t, repo.SaveTrigger(ctx, trigger))

	loaded, err := repo.GetTrigger(ctx, "trig-1")
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Empty(t, loaded.LastID)

	require.NoError(t, repo.UpdateTriggerLastID(ctx, "trig-1", "item-42"))
	loaded, err = repo.GetTrigger(ctx, "trig-1")
	require.NoError(t, err)
	assert.Equal(t, "item-42", loaded.LastID)
}

func TestGetMissingReturnsNil(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	wf, err := repo.GetWorkflow(ctx, "missing")
	require.NoError(t, err)
	assert.Nil(t, wf)

	trigger, err := repo.GetTrigger(ctx, "missing")
	require.NoError(t, err)
	assert.Nil(t, trigger)

	run, err := repo.GetRun(ctx, "missing")
	require.NoError(t, err)
	assert.Nil(t, run)

	action, err := repo.GetAction(ctx, "missing")
	require.NoError(t, err)
	assert.Nil(t, action)
}

func TestUpdateRunStatusTerminalOnce(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	run := workflow.NewWorkflowRun("wf-1", workflow.StartedByManual)
	require.NoError(t, repo.SaveRun(ctx, run))

	changed, err := repo.UpdateRunStatus(ctx, run.ID, workflow.RunCompleted)
	require.NoError(t, err)
	assert.True(t, changed)

	// 终态只迁移一次
	changed, err = repo.UpdateRunStatus(ctx, run.ID, workflow.RunFailed)
	require.NoError(t, err)
	assert.False(t, changed)

	loaded, err := repo.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, workflow.RunCompleted, loaded.Status)
	assert.False(t, loaded.EndTime.IsZero())
}

func TestUpdateRunStatusNonTerminal(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	run := workflow.NewWorkflowRun("wf-1", workflow.StartedByTriggerCheck)
	require.NoError(t, repo.SaveRun(ctx, run))
	_, err := repo.UpdateRunStatus(ctx, run.ID, workflow.RunCompleted)
	require.NoError(t, err)

	// 唤醒路径将完成的运行重新置为running
	changed, err := repo.UpdateRunStatus(ctx, run.ID, workflow.RunRunning)
	require.NoError(t, err)
	assert.True(t, changed)

	loaded, err := repo.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, workflow.RunRunning, loaded.Status)
}

func TestTriggerRunPersistence(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	run := workflow.NewWorkflowRun("wf-1", workflow.StartedByTriggerCheck)
	require.NoError(t, repo.SaveRun(ctx, run))

	require.NoError(t, repo.UpdateTriggerRun(ctx, run.ID, workflow.TriggerRun{
		Status:  workflow.TriggerRunCompleted,
		ItemIDs: []string{"7", "8"},
	}))

	loaded, err := repo.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, workflow.TriggerRunCompleted, loaded.TriggerRun.Status)
	assert.Equal(t, []string{"7", "8"}, loaded.TriggerRun.ItemIDs)
}

func TestRunActionLifecycle(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	run := workflow.NewWorkflowRun("wf-1", workflow.StartedByManual)
	require.NoError(t, repo.SaveRun(ctx, run))

	runAction := workflow.NewWorkflowRunAction(run.ID, "action-1")
	require.NoError(t, repo.SaveRunAction(ctx, runAction))

	runAction.Status = workflow.RunActionFailed
	runAction.EndTime = time.Now()
	runAction.ErrorMsg = "外部调用失败"
	runAction.ErrorDetail = `{"status":500}`
	require.NoError(t, repo.UpdateRunAction(ctx, runAction))

	loaded, err := repo.ListRunActions(ctx, run.ID)
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, workflow.RunActionFailed, loaded[0].Status)
	assert.Equal(t, "外部调用失败", loaded[0].ErrorMsg)
	assert.Equal(t, `{"status":500}`, loaded[0].ErrorDetail)
}

func TestSleepClaimAtMostOnce(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	bag := workflow.OutputBag{"action-1": {"token": "abc"}}
	sleep := workflow.NewWorkflowSleep("run-1", "action-1", bag, time.Now().Add(-time.Minute))
	require.NoError(t, repo.SaveSleep(ctx, sleep))

	due, err := repo.FindDueSleeps(ctx, time.Now())
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, sleep.ID, due[0].ID)
	assert.Equal(t, "abc", due[0].NextActionInputs["action-1"]["token"])

	claimed, err := repo.ClaimSleep(ctx, sleep.ID)
	require.NoError(t, err)
	assert.True(t, claimed)

	claimed, err = repo.ClaimSleep(ctx, sleep.ID)
	require.NoError(t, err)
	assert.False(t, claimed)

	loaded, err := repo.GetSleep(ctx, sleep.ID)
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestFindDueSleepsSkipsFuture(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	future := workflow.NewWorkflowSleep("run-1", "action-1", workflow.OutputBag{}, time.Now().Add(time.Hour))
	require.NoError(t, repo.SaveSleep(ctx, future))

	due, err := repo.FindDueSleeps(ctx, time.Now())
	require.NoError(t, err)
	assert.Empty(t, due)
}

func TestCredentialFieldPatch(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.SaveAccountCredential(ctx, &storage.AccountCredential{
		ID:         "cred-1",
		Name:       "OAuth凭证",
		Fields:     map[string]any{"token": "old", "endpoint": "https://api.example.com"},
		CreateTime: time.Now(),
	}))

	require.NoError(t, repo.UpdateAccountCredentialFields(ctx, "cred-1", map[string]any{"token": "new"}))

	loaded, err := repo.FindAccountCredentialByID(ctx, "cred-1")
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, "new", loaded.Fields["token"])
	assert.Equal(t, "https://api.example.com", loaded.Fields["endpoint"])

	err = repo.UpdateAccountCredentialFields(ctx, "missing", map[string]any{"x": 1})
	assert.Error(t, err)
}
