package engine

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/LENAX/flow-engine/pkg/core/workflow"
)

// WakeUpWorkflowRun 恢复一个挂起续体（对外导出）
// 续体记录在入队前已被认领删除，本方法持有其完整快照。
// 挂起节点的全部后继节点以快照输出包无条件恢复执行（挂起节点不携带分支条件）；
// 运行实例或挂起节点已不存在时发布continuation.lost事件后放弃，不视为错误
func (e *Engine) WakeUpWorkflowRun(ctx context.Context, sleep *workflow.WorkflowSleep) error {
	run, err := e.repo.GetRun(ctx, sleep.RunID)
	if err != nil {
		return err
	}
	if run == nil {
		e.reportLostContinuation(sleep, "运行实例不存在")
		return nil
	}
	action, err := e.repo.GetAction(ctx, sleep.ActionID)
	if err != nil {
		return err
	}
	if action == nil {
		e.reportLostContinuation(sleep, "挂起节点不存在")
		return nil
	}
	wf, err := e.repo.GetWorkflow(ctx, run.WorkflowID)
	if err != nil {
		return err
	}
	if wf == nil {
		e.reportLostContinuation(sleep, "工作流定义不存在")
		return nil
	}

	log.Printf("🕐 [WakeUp] 恢复挂起分支: RunID=%s, ActionID=%s, 后继节点=%d",
		sleep.RunID, sleep.ActionID, len(action.NextActions))

	// 运行实例回到running，恢复结束后重新进入终态
	if _, err := e.repo.UpdateRunStatus(ctx, run.ID, workflow.RunRunning); err != nil {
		return err
	}

	actions, err := e.repo.GetWorkflowActions(ctx, run.WorkflowID)
	if err != nil {
		return err
	}
	actionsByID := make(map[string]*workflow.WorkflowAction, len(actions))
	for _, a := range actions {
		actionsByID[a.ID] = a
	}

	err = e.runSelectedBranches(ctx, run, wf, actionsByID, action.NextActions, sleep.NextActionInputs)
	status := workflow.RunCompleted
	if err != nil {
		status = workflow.RunFailed
	}
	e.finalizeRun(ctx, run, status)
	return err
}

// reportLostContinuation 记录丢失的续体
// 静默丢弃会掩盖数据问题，因此总是发布可观测事件
func (e *Engine) reportLostContinuation(sleep *workflow.WorkflowSleep, reason string) {
	log.Printf("⚠️ [WakeUp] 续体丢失: RunID=%s, ActionID=%s, 原因=%s", sleep.RunID, sleep.ActionID, reason)
	e.publishEvent(NewEngineEvent(EventContinuationLost, sleep.RunID, "").
		WithPayload("action_id", sleep.ActionID).
		WithPayload("reason", reason))
}

// defaultSleepScanInterval 默认到期续体扫描周期
const defaultSleepScanInterval = 30 * time.Second

// SleepScheduler 到期续体扫描器（对外导出）
// 周期性扫描唤醒时刻已到的续体，认领删除后以消息形式入队唤醒主题；
// 先删除后入队保证每个续体最多恢复一次，宕机丢失的入队由continuation机制兜底可观测
type SleepScheduler struct {
	engine   *Engine
	cron     *cron.Cron
	interval time.Duration
}

// NewSleepScheduler 创建SleepScheduler实例（对外导出的工厂方法）
func NewSleepScheduler(engine *Engine, interval time.Duration) *SleepScheduler {
	if interval <= 0 {
		interval = defaultSleepScanInterval
	}
	return &SleepScheduler{
		engine:   engine,
		cron:     cron.New(),
		interval: interval,
	}
}

// Start 启动扫描器（对外导出）
func (s *SleepScheduler) Start() {
	spec := fmt.Sprintf("@every %s", s.interval)
	if _, err := s.cron.AddFunc(spec, s.scanOnce); err != nil {
		log.Printf("❌ [SleepScheduler] 注册扫描任务失败: %v", err)
		return
	}
	s.cron.Start()
	log.Printf("✅ [SleepScheduler] 到期续体扫描已启动: 周期=%s", s.interval)
}

// Stop 停止扫描器（对外导出）
func (s *SleepScheduler) Stop() {
	s.cron.Stop()
	log.Printf("✅ [SleepScheduler] 到期续体扫描已停止")
}

// scanOnce 扫描一轮到期续体
func (s *SleepScheduler) scanOnce() {
	ctx := s.engine.ctx
	dueSleeps, err := s.engine.repo.FindDueSleeps(ctx, time.Now())
	if err != nil {
		log.Printf("❌ [SleepScheduler] 查询到期续体失败: %v", err)
		return
	}

	for _, sleep := range dueSleeps {
		claimed, err := s.engine.repo.ClaimSleep(ctx, sleep.ID)
		if err != nil {
			log.Printf("❌ [SleepScheduler] 认领续体失败: SleepID=%s, Error=%v", sleep.ID, err)
			continue
		}
		if !claimed {
			// 已被其他实例认领
			continue
		}
		if err := s.engine.events.PublishWakeUp(sleep); err != nil {
			log.Printf("❌ [SleepScheduler] 唤醒消息入队失败: SleepID=%s, Error=%v", sleep.ID, err)
		}
	}
}
