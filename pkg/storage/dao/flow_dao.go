// Package dao 定义数据库表的数据访问对象
package dao

import (
	"database/sql"
	"time"
)

// WorkflowDAO workflow_definition表的数据访问对象（内部使用）
type WorkflowDAO struct {
	ID                  string         `db:"id"`
	Name                string         `db:"name"`
	OwnerID             string         `db:"owner_id"`
	OnFailureWorkflowID sql.NullString `db:"on_failure_workflow_id"`
	TemplateSchema      sql.NullString `db:"template_schema"` // JSON格式存储
	IsTemplate          bool           `db:"is_template"`
	Status              string         `db:"status"`
	CreateTime          time.Time      `db:"create_time"`
}

// TriggerDAO workflow_trigger表的数据访问对象（内部使用）
type TriggerDAO struct {
	ID                   string         `db:"id"`
	WorkflowID           string         `db:"workflow_id"`
	OwnerID              string         `db:"owner_id"`
	IntegrationTriggerID string         `db:"integration_trigger_id"`
	Inputs               string         `db:"inputs"` // JSON格式存储
	CredentialID         sql.NullString `db:"credential_id"`
	LastID               sql.NullString `db:"last_id"`
}

// ActionDAO workflow_action表的数据访问对象（内部使用）
type ActionDAO struct {
	ID                  string         `db:"id"`
	Name                string         `db:"name"`
	WorkflowID          string         `db:"workflow_id"`
	OwnerID             string         `db:"owner_id"`
	IntegrationActionID string         `db:"integration_action_id"`
	Inputs              string         `db:"inputs"`       // JSON格式存储
	NextActions         string         `db:"next_actions"` // JSON格式存储的出边列表
	CredentialID        sql.NullString `db:"credential_id"`
	IsRootAction        bool           `db:"is_root_action"`
}

// RunDAO workflow_run表的数据访问对象（内部使用）
type RunDAO struct {
	ID         string       `db:"id"`
	WorkflowID string       `db:"workflow_id"`
	Status     string       `db:"status"`
	StartedBy  string       `db:"started_by"`
	TriggerRun string       `db:"trigger_run"` // JSON格式存储的触发器执行子记录
	StartTime  time.Time    `db:"start_time"`
	EndTime    sql.NullTime `db:"end_time"`
}

// RunActionDAO workflow_run_action表的数据访问对象（内部使用）
type RunActionDAO struct {
	ID          string         `db:"id"`
	RunID       string         `db:"run_id"`
	ActionID    string         `db:"action_id"`
	Status      string         `db:"status"`
	StartTime   time.Time      `db:"start_time"`
	EndTime     sql.NullTime   `db:"end_time"`
	ErrorMsg    sql.NullString `db:"error_msg"`
	ErrorDetail sql.NullString `db:"error_detail"`
}

// SleepDAO workflow_sleep表的数据访问对象（内部使用）
type SleepDAO struct {
	ID               string    `db:"id"`
	RunID            string    `db:"run_id"`
	ActionID         string    `db:"action_id"`
	NextActionInputs string    `db:"next_action_inputs"` // JSON格式存储的输出包快照
	WakeAt           time.Time `db:"wake_at"`
}

// AccountCredentialDAO account_credential表的数据访问对象（内部使用）
type AccountCredentialDAO struct {
	ID                   string         `db:"id"`
	Name                 string         `db:"name"`
	IntegrationAccountID sql.NullString `db:"integration_account_id"`
	Fields               string         `db:"fields"` // JSON格式存储的明文字段
	EncryptedData        sql.NullString `db:"encrypted_data"`
	CreateTime           time.Time      `db:"create_time"`
}

// IntegrationAccountDAO integration_account表的数据访问对象（内部使用）
type IntegrationAccountDAO struct {
	ID         string    `db:"id"`
	Name       string    `db:"name"`
	Kind       string    `db:"kind"`
	Fields     string    `db:"fields"` // JSON格式存储
	CreateTime time.Time `db:"create_time"`
}
