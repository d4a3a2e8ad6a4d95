package sqlrepo

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/LENAX/flow-engine/pkg/core/workflow"
	"github.com/LENAX/flow-engine/pkg/storage"
	"github.com/LENAX/flow-engine/pkg/storage/dao"
)

// nullString 空字符串转NULL
func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// nullTime 零值时间转NULL
func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}

// marshalNullable 序列化可空映射，nil映射存为NULL
func marshalNullable(m map[string]any) (sql.NullString, error) {
	if m == nil {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

// unmarshalMap 反序列化JSON映射列，空列返回nil
func unmarshalMap(raw string) (map[string]any, error) {
	if raw == "" {
		return nil, nil
	}
	m := make(map[string]any)
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return nil, fmt.Errorf("反序列化参数失败: %w", err)
	}
	return m, nil
}

func daoToWorkflow(wfDAO *dao.WorkflowDAO) (*workflow.Workflow, error) {
	wf := &workflow.Workflow{
		ID:                  wfDAO.ID,
		Name:                wfDAO.Name,
		OwnerID:             wfDAO.OwnerID,
		OnFailureWorkflowID: wfDAO.OnFailureWorkflowID.String,
		IsTemplate:          wfDAO.IsTemplate,
		Status:              workflow.WorkflowStatus(wfDAO.Status),
		CreateTime:          wfDAO.CreateTime,
	}
	if wfDAO.TemplateSchema.Valid {
		schema, err := unmarshalMap(wfDAO.TemplateSchema.String)
		if err != nil {
			return nil, err
		}
		wf.TemplateSchema = schema
	}
	return wf, nil
}

func daoToTrigger(triggerDAO *dao.TriggerDAO) (*workflow.WorkflowTrigger, error) {
	inputs, err := unmarshalMap(triggerDAO.Inputs)
	if err != nil {
		return nil, err
	}
	return &workflow.WorkflowTrigger{
		ID:                   triggerDAO.ID,
		WorkflowID:           triggerDAO.WorkflowID,
		OwnerID:              triggerDAO.OwnerID,
		IntegrationTriggerID: triggerDAO.IntegrationTriggerID,
		Inputs:               inputs,
		CredentialID:         triggerDAO.CredentialID.String,
		LastID:               triggerDAO.LastID.String,
	}, nil
}

func daoToAction(actionDAO *dao.ActionDAO) (*workflow.WorkflowAction, error) {
	inputs, err := unmarshalMap(actionDAO.Inputs)
	if err != nil {
		return nil, err
	}
	var edges []workflow.ActionEdge
	if actionDAO.NextActions != "" {
		if err := json.Unmarshal([]byte(actionDAO.NextActions), &edges); err != nil {
			return nil, fmt.Errorf("反序列化Action出边失败: %w", err)
		}
	}
	return &workflow.WorkflowAction{
		ID:                  actionDAO.ID,
		Name:                actionDAO.Name,
		WorkflowID:          actionDAO.WorkflowID,
		OwnerID:             actionDAO.OwnerID,
		IntegrationActionID: actionDAO.IntegrationActionID,
		Inputs:              inputs,
		NextActions:         edges,
		CredentialID:        actionDAO.CredentialID.String,
		IsRootAction:        actionDAO.IsRootAction,
	}, nil
}

func daoToRun(runDAO *dao.RunDAO) (*workflow.WorkflowRun, error) {
	run := &workflow.WorkflowRun{
		ID:         runDAO.ID,
		WorkflowID: runDAO.WorkflowID,
		Status:     workflow.RunStatus(runDAO.Status),
		StartedBy:  workflow.StartedByReason(runDAO.StartedBy),
		StartTime:  runDAO.StartTime,
		EndTime:    runDAO.EndTime.Time,
	}
	if runDAO.TriggerRun != "" {
		if err := json.Unmarshal([]byte(runDAO.TriggerRun), &run.TriggerRun); err != nil {
			return nil, fmt.Errorf("反序列化TriggerRun失败: %w", err)
		}
	}
	return run, nil
}

func daoToRunAction(runActionDAO *dao.RunActionDAO) *workflow.WorkflowRunAction {
	return &workflow.WorkflowRunAction{
		ID:          runActionDAO.ID,
		RunID:       runActionDAO.RunID,
		ActionID:    runActionDAO.ActionID,
		Status:      workflow.RunActionStatus(runActionDAO.Status),
		StartTime:   runActionDAO.StartTime,
		EndTime:     runActionDAO.EndTime.Time,
		ErrorMsg:    runActionDAO.ErrorMsg.String,
		ErrorDetail: runActionDAO.ErrorDetail.String,
	}
}

func daoToSleep(sleepDAO *dao.SleepDAO) (*workflow.WorkflowSleep, error) {
	var bag workflow.OutputBag
	if sleepDAO.NextActionInputs != "" {
		if err := json.Unmarshal([]byte(sleepDAO.NextActionInputs), &bag); err != nil {
			return nil, fmt.Errorf("反序列化输出包快照失败: %w", err)
		}
	}
	return &workflow.WorkflowSleep{
		ID:               sleepDAO.ID,
		RunID:            sleepDAO.RunID,
		ActionID:         sleepDAO.ActionID,
		NextActionInputs: bag,
		WakeAt:           sleepDAO.WakeAt,
	}, nil
}

func daoToCredential(credDAO *dao.AccountCredentialDAO) (*storage.AccountCredential, error) {
	fields, err := unmarshalMap(credDAO.Fields)
	if err != nil {
		return nil, err
	}
	return &storage.AccountCredential{
		ID:                   credDAO.ID,
		Name:                 credDAO.Name,
		IntegrationAccountID: credDAO.IntegrationAccountID.String,
		Fields:               fields,
		EncryptedData:        credDAO.EncryptedData.String,
		CreateTime:           credDAO.CreateTime,
	}, nil
}

func daoToIntegrationAccount(accountDAO *dao.IntegrationAccountDAO) (*storage.IntegrationAccount, error) {
	fields, err := unmarshalMap(accountDAO.Fields)
	if err != nil {
		return nil, err
	}
	return &storage.IntegrationAccount{
		ID:         accountDAO.ID,
		Name:       accountDAO.Name,
		Kind:       accountDAO.Kind,
		Fields:     fields,
		CreateTime: accountDAO.CreateTime,
	}, nil
}
