// Package dto 定义API层的请求与响应结构
package dto

import "time"

// APIResponse 通用API响应结构
type APIResponse[T any] struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    T      `json:"data,omitempty"`
}

// NewSuccessResponse 创建成功响应
func NewSuccessResponse[T any](data T) APIResponse[T] {
	return APIResponse[T]{
		Code:    0,
		Message: "success",
		Data:    data,
	}
}

// NewErrorResponse 创建错误响应
func NewErrorResponse(code int, message string) APIResponse[any] {
	return APIResponse[any]{
		Code:    code,
		Message: message,
	}
}

// ListResponse 列表响应
type ListResponse[T any] struct {
	Total   int  `json:"total"`
	Items   []T  `json:"items"`
	HasMore bool `json:"has_more"`
}

// WorkflowSummary Workflow摘要信息
type WorkflowSummary struct {
	ID                  string    `json:"id"`
	Name                string    `json:"name"`
	OwnerID             string    `json:"owner_id"`
	Status              string    `json:"status"`
	OnFailureWorkflowID string    `json:"on_failure_workflow_id,omitempty"`
	IsTemplate          bool      `json:"is_template"`
	ActionCount         int       `json:"action_count"`
	CreatedAt           time.Time `json:"created_at"`
}

// WorkflowDetail Workflow详细信息
type WorkflowDetail struct {
	WorkflowSummary
	Actions []ActionSummary `json:"actions"`
}

// ActionSummary Action节点摘要信息
type ActionSummary struct {
	ID                  string         `json:"id"`
	Name                string         `json:"name"`
	IntegrationActionID string         `json:"integration_action_id"`
	IsRootAction        bool           `json:"is_root_action"`
	Inputs              map[string]any `json:"inputs,omitempty"`
	NextActions         []EdgeSummary  `json:"next_actions,omitempty"`
}

// EdgeSummary 出边摘要信息
type EdgeSummary struct {
	TargetActionID string `json:"target_action_id"`
	Condition      string `json:"condition,omitempty"`
}

// TriggerSummary 触发器摘要信息
type TriggerSummary struct {
	ID                   string `json:"id"`
	WorkflowID           string `json:"workflow_id"`
	IntegrationTriggerID string `json:"integration_trigger_id"`
	LastID               string `json:"last_id,omitempty"`
}

// RunSummary 运行实例摘要信息
type RunSummary struct {
	ID            string     `json:"id"`
	WorkflowID    string     `json:"workflow_id"`
	Status        string     `json:"status"`
	StartedBy     string     `json:"started_by"`
	TriggerStatus string     `json:"trigger_status,omitempty"`
	StartedAt     time.Time  `json:"started_at"`
	FinishedAt    *time.Time `json:"finished_at,omitempty"`
}

// RunDetail 运行实例详细信息
type RunDetail struct {
	RunSummary
	TriggerError       string            `json:"trigger_error,omitempty"`
	TriggerErrorDetail string            `json:"trigger_error_detail,omitempty"`
	TriggerItemIDs     []string          `json:"trigger_item_ids,omitempty"`
	Actions            []RunActionDetail `json:"actions"`
}

// RunActionDetail 节点执行记录详细信息
type RunActionDetail struct {
	ID          string     `json:"id"`
	ActionID    string     `json:"action_id"`
	Status      string     `json:"status"`
	StartedAt   time.Time  `json:"started_at"`
	FinishedAt  *time.Time `json:"finished_at,omitempty"`
	ErrorMsg    string     `json:"error_msg,omitempty"`
	ErrorDetail string     `json:"error_detail,omitempty"`
}

// ExecuteResponse 执行响应
type ExecuteResponse struct {
	RunID   string `json:"run_id"`
	Message string `json:"message"`
}

// HealthResponse 健康检查响应
type HealthResponse struct {
	Status    string `json:"status"`
	Version   string `json:"version"`
	Uptime    string `json:"uptime"`
	Timestamp string `json:"timestamp"`
}
