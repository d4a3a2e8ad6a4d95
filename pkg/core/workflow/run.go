package workflow

import (
	"time"

	"github.com/google/uuid"
)

// RunStatus 运行实例状态
type RunStatus string

const (
	// RunRunning 运行中
	RunRunning RunStatus = "running"
	// RunCompleted 已完成
	RunCompleted RunStatus = "completed"
	// RunFailed 已失败
	RunFailed RunStatus = "failed"
)

// TriggerRunStatus 触发器执行结果状态
type TriggerRunStatus string

const (
	// TriggerRunCompleted 触发成功，产生新条目
	TriggerRunCompleted TriggerRunStatus = "completed"
	// TriggerRunNotSatisfied 轮询成功但没有新条目
	TriggerRunNotSatisfied TriggerRunStatus = "not_satisfied"
	// TriggerRunFailed 触发失败
	TriggerRunFailed TriggerRunStatus = "failed"
)

// StartedByReason 运行实例的启动原因
type StartedByReason string

const (
	// StartedByTriggerCheck 由触发器轮询启动
	StartedByTriggerCheck StartedByReason = "trigger_check"
	// StartedByManual 由手工调用启动
	StartedByManual StartedByReason = "manual"
	// StartedByFailureCascade 由失败级联启动
	StartedByFailureCascade StartedByReason = "failure_cascade"
)

// TriggerRun 触发器执行子记录（对外导出）
type TriggerRun struct {
	Status      TriggerRunStatus `json:"status"`
	Error       string           `json:"error,omitempty"`
	ErrorDetail string           `json:"error_detail,omitempty"` // 外部系统原始响应（失败且可得时）
	ItemIDs     []string         `json:"item_ids,omitempty"`     // 本次消费的条目ID列表
}

// WorkflowRun 工作流运行实例（对外导出）
// 一次执行包含触发结果和每个Action节点的执行记录；终态（completed/failed）仅设置一次
type WorkflowRun struct {
	ID         string          // 运行实例ID
	WorkflowID string          // 所属工作流ID
	Status     RunStatus       // 运行状态
	StartedBy  StartedByReason // 启动原因
	TriggerRun TriggerRun      // 触发器执行子记录
	StartTime  time.Time       // 启动时间
	EndTime    time.Time       // 结束时间（终态时设置）
}

// NewWorkflowRun 创建运行实例（对外导出的工厂方法）
func NewWorkflowRun(workflowID string, startedBy StartedByReason) *WorkflowRun {
	return &WorkflowRun{
		ID:         uuid.NewString(),
		WorkflowID: workflowID,
		Status:     RunRunning,
		StartedBy:  startedBy,
		StartTime:  time.Now(),
	}
}

// RunActionStatus 节点执行记录状态
type RunActionStatus string

const (
	// RunActionRunning 节点执行中
	RunActionRunning RunActionStatus = "running"
	// RunActionCompleted 节点执行成功
	RunActionCompleted RunActionStatus = "completed"
	// RunActionFailed 节点执行失败
	RunActionFailed RunActionStatus = "failed"
)

// WorkflowRunAction 运行实例内的单节点执行记录（对外导出）
// 每个节点只写自己的记录，并发分支写入互不冲突
type WorkflowRunAction struct {
	ID          string          // 记录ID
	RunID       string          // 所属运行实例ID
	ActionID    string          // 对应Action节点ID
	Status      RunActionStatus // 执行状态
	StartTime   time.Time       // 开始时间
	EndTime     time.Time       // 结束时间
	ErrorMsg    string          // 错误信息（失败时）
	ErrorDetail string          // 错误详情，如外部操作原始响应（失败时）
}

// NewWorkflowRunAction 创建节点执行记录（对外导出的工厂方法）
func NewWorkflowRunAction(runID, actionID string) *WorkflowRunAction {
	return &WorkflowRunAction{
		ID:        uuid.NewString(),
		RunID:     runID,
		ActionID:  actionID,
		Status:    RunActionRunning,
		StartTime: time.Now(),
	}
}

// WorkflowSleep 持久化的挂起续体（对外导出）
// 当操作结果携带SleepUntil时创建；唤醒路径最多消费一次（先删除后恢复）
type WorkflowSleep struct {
	ID               string    // 续体ID
	RunID            string    // 所属运行实例ID
	ActionID         string    // 挂起节点ID（唤醒时恢复其后继节点）
	NextActionInputs OutputBag // 累积输出包快照
	WakeAt           time.Time // 唤醒时刻
}

// NewWorkflowSleep 创建挂起续体（对外导出的工厂方法）
func NewWorkflowSleep(runID, actionID string, bag OutputBag, wakeAt time.Time) *WorkflowSleep {
	return &WorkflowSleep{
		ID:               uuid.NewString(),
		RunID:            runID,
		ActionID:         actionID,
		NextActionInputs: bag,
		WakeAt:           wakeAt,
	}
}
