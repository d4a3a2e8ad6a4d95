// Package workflow 定义工作流领域模型：Workflow、Trigger、Action及其校验逻辑
package workflow

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// WorkflowStatus 工作流状态
type WorkflowStatus string

const (
	// WorkflowEnabled 已启用
	WorkflowEnabled WorkflowStatus = "ENABLED"
	// WorkflowDisabled 已禁用
	WorkflowDisabled WorkflowStatus = "DISABLED"
)

// Workflow 工作流定义（对外导出）
// 一个Workflow由一个Trigger和一组Action节点组成，Action节点通过NextActions边构成有向图
type Workflow struct {
	ID                  string         // 工作流ID
	Name                string         // 工作流名称
	OwnerID             string         // 所属用户ID
	OnFailureWorkflowID string         // 失败时级联启动的工作流ID（可选）
	TemplateSchema      map[string]any // 模板Schema（由模板化输入推导，可选）
	IsTemplate          bool           // 是否为模板工作流
	Status              WorkflowStatus // 状态
	CreateTime          time.Time      // 创建时间
}

// NewWorkflow 创建Workflow实例（对外导出的工厂方法）
func NewWorkflow(name, ownerID string) *Workflow {
	return &Workflow{
		ID:         uuid.NewString(),
		Name:       name,
		OwnerID:    ownerID,
		Status:     WorkflowEnabled,
		CreateTime: time.Now(),
	}
}

// WorkflowTrigger 工作流触发器（对外导出）
// 每个Workflow最多一个Trigger；LastID是去重游标，仅在轮询成功后前进
type WorkflowTrigger struct {
	ID                   string         // 触发器ID
	WorkflowID           string         // 所属工作流ID
	OwnerID              string         // 所属用户ID
	IntegrationTriggerID string         // 集成触发器定义ID
	Inputs               map[string]any // 原始（模板化）输入
	CredentialID         string         // 存储凭证ID（可选）
	LastID               string         // 最近一次处理的条目ID（去重游标）
}

// ActionEdge 动作节点出边（对外导出）
// Condition为空表示无条件边；非空时仅当操作返回的分支条件字符串形式相等才触发
type ActionEdge struct {
	TargetActionID string `json:"target_action_id"`
	Condition      string `json:"condition,omitempty"`
}

// WorkflowAction 工作流动作节点（对外导出）
type WorkflowAction struct {
	ID                  string         // 节点ID
	Name                string         // 节点名称
	WorkflowID          string         // 所属工作流ID
	OwnerID             string         // 所属用户ID
	IntegrationActionID string         // 集成动作定义ID
	Inputs              map[string]any // 原始（模板化）输入
	CredentialID        string         // 存储凭证ID（可选）
	IsRootAction        bool           // 是否为根节点
	NextActions         []ActionEdge   // 出边列表（有序）
}

// NewWorkflowAction 创建WorkflowAction实例（对外导出的工厂方法）
func NewWorkflowAction(name, workflowID, integrationActionID string) *WorkflowAction {
	return &WorkflowAction{
		ID:                  uuid.NewString(),
		Name:                name,
		WorkflowID:          workflowID,
		IntegrationActionID: integrationActionID,
		Inputs:              make(map[string]any),
	}
}

// RootActions 过滤出根节点列表（对外导出）
func RootActions(actions []*WorkflowAction) []*WorkflowAction {
	roots := make([]*WorkflowAction, 0)
	for _, a := range actions {
		if a.IsRootAction {
			roots = append(roots, a)
		}
	}
	return roots
}

// ValidateWorkflow 保存时校验Workflow及其Action图（对外导出）
// 校验内容：
//  1. OnFailure不允许指向自身（避免失败级联死循环）
//  2. 出边目标节点必须存在
//  3. Action图不允许存在循环依赖（DFS三色标记检测）
func ValidateWorkflow(wf *Workflow, actions []*WorkflowAction) error {
	if wf.OnFailureWorkflowID != "" && wf.OnFailureWorkflowID == wf.ID {
		return fmt.Errorf("Workflow %s 的OnFailure不允许指向自身", wf.ID)
	}

	// 构建邻接表
	graph := make(map[string][]string, len(actions))
	for _, a := range actions {
		graph[a.ID] = nil
	}
	for _, a := range actions {
		for _, edge := range a.NextActions {
			if _, exists := graph[edge.TargetActionID]; !exists {
				return fmt.Errorf("Action %s 的出边目标节点 %s 不存在", a.ID, edge.TargetActionID)
			}
			graph[a.ID] = append(graph[a.ID], edge.TargetActionID)
		}
	}

	if hasCycle, path := detectCycleDFS(graph); hasCycle {
		return fmt.Errorf("检测到循环依赖: %v", path)
	}
	return nil
}

// detectCycleDFS 使用DFS检测图中是否存在循环
// 三色标记法：0=白色（未访问），1=灰色（正在访问），2=黑色（已访问）
func detectCycleDFS(graph map[string][]string) (bool, []string) {
	color := make(map[string]int, len(graph))
	cyclePath := make([]string, 0)

	var dfs func(nodeID string) bool
	dfs = func(nodeID string) bool {
		color[nodeID] = 1
		for _, next := range graph[nodeID] {
			if color[next] == 1 {
				cyclePath = append(cyclePath, nodeID, next)
				return true
			}
			if color[next] == 0 && dfs(next) {
				return true
			}
		}
		color[nodeID] = 2
		return false
	}

	for nodeID := range graph {
		if color[nodeID] == 0 && dfs(nodeID) {
			return true, cyclePath
		}
	}
	return false, nil
}
