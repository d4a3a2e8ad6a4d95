package dto

// SaveWorkflowRequest 保存Workflow请求
// 节点图整体提交，保存前做引用与循环校验
type SaveWorkflowRequest struct {
	ID                  string              `json:"id" binding:"omitempty"`
	Name                string              `json:"name" binding:"required"`
	OwnerID             string              `json:"owner_id" binding:"omitempty"`
	OnFailureWorkflowID string              `json:"on_failure_workflow_id" binding:"omitempty"`
	IsTemplate          bool                `json:"is_template"`
	Actions             []SaveActionRequest `json:"actions" binding:"required"`
}

// SaveActionRequest 保存Action节点请求
type SaveActionRequest struct {
	ID                  string         `json:"id" binding:"omitempty"`
	Name                string         `json:"name" binding:"required"`
	IntegrationActionID string         `json:"integration_action_id" binding:"required"`
	CredentialID        string         `json:"credential_id" binding:"omitempty"`
	IsRootAction        bool           `json:"is_root_action"`
	Inputs              map[string]any `json:"inputs" binding:"omitempty"`
	NextActions         []EdgeSummary  `json:"next_actions" binding:"omitempty"`
}

// SaveTriggerRequest 保存触发器请求
type SaveTriggerRequest struct {
	ID                   string         `json:"id" binding:"omitempty"`
	WorkflowID           string         `json:"workflow_id" binding:"required"`
	IntegrationTriggerID string         `json:"integration_trigger_id" binding:"required"`
	CredentialID         string         `json:"credential_id" binding:"omitempty"`
	Inputs               map[string]any `json:"inputs" binding:"omitempty"`
	PollInterval         string         `json:"poll_interval" binding:"omitempty"`
}

// ExecuteWorkflowRequest 手工执行Workflow请求
type ExecuteWorkflowRequest struct {
	Seed map[string]map[string]any `json:"seed" binding:"omitempty"`
}

// ListQueryRequest 通用列表查询请求
type ListQueryRequest struct {
	Limit  int `form:"limit" binding:"omitempty,min=1,max=100"`
	Offset int `form:"offset" binding:"omitempty,min=0"`
}

// GetDefaultLimit 获取默认limit
func (r *ListQueryRequest) GetDefaultLimit() int {
	if r.Limit <= 0 {
		return 20
	}
	return r.Limit
}
