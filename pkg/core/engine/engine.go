// Package engine 实现工作流执行引擎核心：
// 触发器轮询协调、Action图递归执行、挂起/唤醒与失败级联
package engine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/LENAX/flow-engine/pkg/core/credential"
	"github.com/LENAX/flow-engine/pkg/core/integration"
	"github.com/LENAX/flow-engine/pkg/core/workflow"
	"github.com/LENAX/flow-engine/pkg/storage"
)

// ErrConfiguration 配置错误（对外导出）
// 缺失idKey、缺失Action节点、缺失集成定义等；不重试，直接中止当前检查/树调用
// 并上抛给外部调用方，与普通分支失败（记录后级联）区分
var ErrConfiguration = errors.New("配置错误")

// configErrorf 构造配置错误
func configErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConfiguration, fmt.Sprintf(format, args...))
}

// Engine 工作流执行引擎核心结构体（对外导出）
type Engine struct {
	repo           storage.FlowAggregateRepository
	registry       *integration.DefinitionRegistry
	credResolver   *credential.Resolver
	events         *EventBus
	pollScheduler  *PollScheduler
	sleepScheduler *SleepScheduler
	running        bool
	mu             sync.RWMutex
	ctx            context.Context
	cancel         context.CancelFunc
}

// NewEngine 创建Engine实例（对外导出的工厂方法）
// sleepScanInterval: 到期续体扫描周期，<=0时使用默认值30s
func NewEngine(
	repo storage.FlowAggregateRepository,
	registry *integration.DefinitionRegistry,
	credResolver *credential.Resolver,
	sleepScanInterval time.Duration,
	debug bool,
) (*Engine, error) {
	events, err := NewEventBus(debug)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	eng := &Engine{
		repo:         repo,
		registry:     registry,
		credResolver: credResolver,
		events:       events,
		ctx:          ctx,
		cancel:       cancel,
	}
	eng.pollScheduler = NewPollScheduler(eng)
	eng.sleepScheduler = NewSleepScheduler(eng, sleepScanInterval)

	// 到期续体以消息形式重新入队，由此处理器消费恢复
	events.AddWakeUpHandler(func(ctx context.Context, sleep *workflow.WorkflowSleep) error {
		return eng.WakeUpWorkflowRun(ctx, sleep)
	})
	return eng, nil
}

// Events 获取事件总线（对外导出，供API层订阅事件流）
func (e *Engine) Events() *EventBus {
	return e.events
}

// Repo 获取聚合Repository（对外导出，供API层查询）
func (e *Engine) Repo() storage.FlowAggregateRepository {
	return e.repo
}

// Registry 获取集成定义注册中心（对外导出）
func (e *Engine) Registry() *integration.DefinitionRegistry {
	return e.registry
}

// PollScheduler 获取触发器轮询调度器（对外导出）
func (e *Engine) PollScheduler() *PollScheduler {
	return e.pollScheduler
}

// Context 获取引擎生命周期上下文（对外导出）
// 随Shutdown取消，供后台启动的运行使用
func (e *Engine) Context() context.Context {
	return e.ctx
}

// Start 启动引擎（对外导出）
// 启动事件路由器、触发器轮询调度器和到期续体扫描器
func (e *Engine) Start() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.running {
		return fmt.Errorf("引擎已启动")
	}

	go func() {
		if err := e.events.Run(e.ctx); err != nil {
			log.Printf("❌ [Engine] 事件路由器退出: %v", err)
		}
	}()
	e.pollScheduler.Start()
	e.sleepScheduler.Start()
	e.running = true
	log.Printf("✅ [Engine] 引擎已启动")
	return nil
}

// Shutdown 停止引擎（对外导出）
func (e *Engine) Shutdown() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.running {
		return nil
	}
	e.pollScheduler.Stop()
	e.sleepScheduler.Stop()
	e.cancel()
	if err := e.events.Close(); err != nil {
		log.Printf("⚠️ [Engine] 关闭事件总线失败: %v", err)
	}
	e.running = false
	log.Printf("✅ [Engine] 引擎已停止")
	return nil
}

// StartWorkflowRun 启动一次工作流运行（对外导出）
// seed: 种子输出包（失败级联传入空包）；run为nil时创建手工启动的运行实例
// 结果仅通过持久化的run/action状态观察
func (e *Engine) StartWorkflowRun(ctx context.Context, workflowID string, seed workflow.OutputBag, run *workflow.WorkflowRun) error {
	wf, err := e.repo.GetWorkflow(ctx, workflowID)
	if err != nil {
		return err
	}
	if wf == nil {
		return configErrorf("Workflow %s 不存在", workflowID)
	}

	if run == nil {
		run = workflow.NewWorkflowRun(workflowID, workflow.StartedByManual)
		if err := e.repo.SaveRun(ctx, run); err != nil {
			return err
		}
		e.publishEvent(NewEngineEvent(EventRunStarted, run.ID, workflowID))
	}

	actions, err := e.repo.GetWorkflowActions(ctx, workflowID)
	if err != nil {
		return err
	}
	if seed == nil {
		seed = workflow.OutputBag{}
	}
	return e.runWorkflowActions(ctx, run, wf, actions, []workflow.OutputBag{seed})
}

// invokeOperation 调用一次外部操作
// 按集成类型路由到注册的Invoker；操作返回刷新凭证时回写凭证存储
func (e *Engine) invokeOperation(
	ctx context.Context,
	integ *integration.Integration,
	operationID string,
	inputs map[string]any,
	creds *credential.Resolved,
) (*integration.InvocationResult, error) {
	invoker, exists := e.registry.GetInvoker(integ.Kind)
	if !exists {
		return nil, configErrorf("集成类型 %s 未注册Invoker", integ.Kind)
	}

	result, err := invoker.Invoke(ctx, &integration.InvocationRequest{
		Integration:        integ,
		IntegrationAccount: creds.IntegrationAccount,
		OperationID:        operationID,
		Inputs:             inputs,
		Credentials:        creds.Credentials,
		AccountCredential:  creds.AccountCredential,
	})
	if err != nil {
		return nil, err
	}

	if len(result.RefreshedCredentials) > 0 && creds.AccountCredential != nil {
		if err := e.repo.UpdateAccountCredentialFields(ctx, creds.AccountCredential.ID, result.RefreshedCredentials); err != nil {
			log.Printf("⚠️ [Engine] 回写刷新凭证失败: CredentialID=%s, Error=%v", creds.AccountCredential.ID, err)
		}
	}
	return result, nil
}

// propagateFailure 失败级联
// 失败工作流声明了OnFailure目标时，以空输出包启动该目标的全新运行；
// 失败工作流收不到任何失败数据，只知道自己被触发；级联本身失败时继续传递
func (e *Engine) propagateFailure(ctx context.Context, wf *workflow.Workflow) {
	if wf.OnFailureWorkflowID == "" {
		return
	}
	log.Printf("🔁 [Engine] 失败级联: WorkflowID=%s -> OnFailure=%s", wf.ID, wf.OnFailureWorkflowID)

	run := workflow.NewWorkflowRun(wf.OnFailureWorkflowID, workflow.StartedByFailureCascade)
	if err := e.repo.SaveRun(ctx, run); err != nil {
		log.Printf("❌ [Engine] 创建失败级联运行实例失败: %v", err)
		return
	}
	e.publishEvent(NewEngineEvent(EventRunStarted, run.ID, wf.OnFailureWorkflowID))

	if err := e.StartWorkflowRun(ctx, wf.OnFailureWorkflowID, workflow.OutputBag{}, run); err != nil {
		log.Printf("❌ [Engine] 失败级联执行失败: WorkflowID=%s, Error=%v", wf.OnFailureWorkflowID, err)
	}
}

// finalizeRun 设置运行实例终态并发布事件
// 终态只迁移一次：UpdateRunStatus的守卫返回false说明已被其他路径设置
func (e *Engine) finalizeRun(ctx context.Context, run *workflow.WorkflowRun, status workflow.RunStatus) {
	changed, err := e.repo.UpdateRunStatus(ctx, run.ID, status)
	if err != nil {
		log.Printf("❌ [Engine] 更新运行状态失败: RunID=%s, Error=%v", run.ID, err)
		return
	}
	if !changed {
		return
	}
	eventType := EventRunCompleted
	if status == workflow.RunFailed {
		eventType = EventRunFailed
	}
	e.publishEvent(NewEngineEvent(eventType, run.ID, run.WorkflowID))
}

// publishEvent 发布可观测性事件，失败仅记录日志
func (e *Engine) publishEvent(event *EngineEvent) {
	if err := e.events.PublishEvent(event); err != nil {
		log.Printf("⚠️ [Engine] 发布事件失败: Type=%s, Error=%v", event.Type, err)
	}
}
