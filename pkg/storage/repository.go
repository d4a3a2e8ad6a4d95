package storage

import (
	"context"
	"time"

	"github.com/LENAX/flow-engine/pkg/core/workflow"
)

// WorkflowRepository Workflow聚合的持久化接口（对外导出）
// 管理Workflow定义、Trigger和Action图
type WorkflowRepository interface {
	// SaveWorkflow 保存Workflow及其Action图（保存前需通过workflow.ValidateWorkflow校验）
	SaveWorkflow(ctx context.Context, wf *workflow.Workflow, actions []*workflow.WorkflowAction) error
	// GetWorkflow 查询Workflow定义
	GetWorkflow(ctx context.Context, id string) (*workflow.Workflow, error)
	// ListWorkflows 列出所有Workflow定义
	ListWorkflows(ctx context.Context) ([]*workflow.Workflow, error)
	// GetWorkflowActions 查询Workflow的全部Action节点
	GetWorkflowActions(ctx context.Context, workflowID string) ([]*workflow.WorkflowAction, error)
	// GetAction 查询单个Action节点
	GetAction(ctx context.Context, actionID string) (*workflow.WorkflowAction, error)
	// SaveTrigger 保存触发器
	SaveTrigger(ctx context.Context, trigger *workflow.WorkflowTrigger) error
	// GetTrigger 查询触发器
	GetTrigger(ctx context.Context, triggerID string) (*workflow.WorkflowTrigger, error)
	// ListTriggers 列出所有触发器
	ListTriggers(ctx context.Context) ([]*workflow.WorkflowTrigger, error)
	// UpdateTriggerLastID 前进触发器的去重游标（仅在轮询成功后调用）
	UpdateTriggerLastID(ctx context.Context, triggerID, lastID string) error
}

// RunRepository 运行实例的持久化接口（对外导出）
type RunRepository interface {
	// SaveRun 创建运行实例记录
	SaveRun(ctx context.Context, run *workflow.WorkflowRun) error
	// GetRun 查询运行实例
	GetRun(ctx context.Context, runID string) (*workflow.WorkflowRun, error)
	// ListRuns 列出Workflow的运行实例
	ListRuns(ctx context.Context, workflowID string) ([]*workflow.WorkflowRun, error)
	// UpdateRunStatus 更新运行状态
	// 终态（completed/failed）只允许从running迁移一次；重复设置终态返回false
	UpdateRunStatus(ctx context.Context, runID string, status workflow.RunStatus) (bool, error)
	// UpdateTriggerRun 更新运行实例的触发器执行子记录
	UpdateTriggerRun(ctx context.Context, runID string, triggerRun workflow.TriggerRun) error
	// SaveRunAction 创建节点执行记录
	SaveRunAction(ctx context.Context, runAction *workflow.WorkflowRunAction) error
	// UpdateRunAction 更新节点执行记录（完成或失败时）
	UpdateRunAction(ctx context.Context, runAction *workflow.WorkflowRunAction) error
	// ListRunActions 查询运行实例的全部节点执行记录
	ListRunActions(ctx context.Context, runID string) ([]*workflow.WorkflowRunAction, error)
}

// SleepRepository 挂起续体的持久化接口（对外导出）
type SleepRepository interface {
	// SaveSleep 持久化挂起续体
	SaveSleep(ctx context.Context, sleep *workflow.WorkflowSleep) error
	// GetSleep 查询挂起续体
	GetSleep(ctx context.Context, sleepID string) (*workflow.WorkflowSleep, error)
	// FindDueSleeps 查询唤醒时刻已到的续体
	FindDueSleeps(ctx context.Context, before time.Time) ([]*workflow.WorkflowSleep, error)
	// ClaimSleep 认领并删除续体，返回是否认领成功
	// 删除先于恢复执行，保证每个续体最多被消费一次
	ClaimSleep(ctx context.Context, sleepID string) (bool, error)
}

// CredentialRepository 凭证存储接口（对外导出）
type CredentialRepository interface {
	// SaveAccountCredential 保存账号凭证
	SaveAccountCredential(ctx context.Context, credential *AccountCredential) error
	// FindAccountCredentialByID 查询账号凭证，不存在时返回nil
	FindAccountCredentialByID(ctx context.Context, id string) (*AccountCredential, error)
	// UpdateAccountCredentialFields 更新凭证明文字段（外部操作返回刷新凭证时调用）
	UpdateAccountCredentialFields(ctx context.Context, id string, patch map[string]any) error
	// SaveIntegrationAccount 保存集成账号
	SaveIntegrationAccount(ctx context.Context, account *IntegrationAccount) error
	// FindIntegrationAccountByID 查询集成账号，不存在时返回nil
	FindIntegrationAccountByID(ctx context.Context, id string) (*IntegrationAccount, error)
}

// FlowAggregateRepository 聚合Repository（对外导出）
// 统一管理Workflow、Run、Sleep、Credential的持久化，推荐的装配方式
type FlowAggregateRepository interface {
	WorkflowRepository
	RunRepository
	SleepRepository
	CredentialRepository
	// Close 关闭底层连接
	Close() error
}
