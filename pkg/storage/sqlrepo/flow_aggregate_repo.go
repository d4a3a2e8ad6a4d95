// Package sqlrepo 提供FlowAggregateRepository的sqlx实现
// 按方言转换DDL后，同一套实现服务sqlite/postgres/mysql三种数据库
package sqlrepo

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/LENAX/flow-engine/pkg/core/workflow"
	"github.com/LENAX/flow-engine/pkg/storage"
	"github.com/LENAX/flow-engine/pkg/storage/dao"
)

// FlowAggregateRepo 聚合Repository的sqlx实现（对外导出）
type FlowAggregateRepo struct {
	db      *sqlx.DB
	dialect storage.Dialect
}

// NewFlowAggregateRepo 创建聚合Repository实例（对外导出）
func NewFlowAggregateRepo(db *sqlx.DB, dialect storage.Dialect) (*FlowAggregateRepo, error) {
	repo := &FlowAggregateRepo{db: db, dialect: dialect}
	if err := repo.initSchema(); err != nil {
		return nil, fmt.Errorf("初始化表结构失败: %w", err)
	}
	return repo, nil
}

// GetDB 获取底层数据库连接（对外导出）
func (r *FlowAggregateRepo) GetDB() *sqlx.DB {
	return r.db
}

// Close 关闭数据库连接（对外导出）
func (r *FlowAggregateRepo) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// initSchema 初始化数据库表结构
func (r *FlowAggregateRepo) initSchema() error {
	schemas := []string{
		`CREATE TABLE IF NOT EXISTS workflow_definition (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			owner_id TEXT NOT NULL DEFAULT '',
			on_failure_workflow_id TEXT,
			template_schema TEXT,
			is_template INTEGER NOT NULL DEFAULT 0,
			status TEXT NOT NULL DEFAULT 'ENABLED',
			create_time DATETIME NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS workflow_trigger (
			id TEXT PRIMARY KEY,
			workflow_id TEXT NOT NULL,
			owner_id TEXT NOT NULL DEFAULT '',
			integration_trigger_id TEXT NOT NULL,
			inputs TEXT,
			credential_id TEXT,
			last_id TEXT
		);`,
		`CREATE TABLE IF NOT EXISTS workflow_action (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			workflow_id TEXT NOT NULL,
			owner_id TEXT NOT NULL DEFAULT '',
			integration_action_id TEXT NOT NULL,
			inputs TEXT,
			next_actions TEXT,
			credential_id TEXT,
			is_root_action INTEGER NOT NULL DEFAULT 0
		);`,
		`CREATE TABLE IF NOT EXISTS workflow_run (
			id TEXT PRIMARY KEY,
			workflow_id TEXT NOT NULL,
			status TEXT NOT NULL,
			started_by TEXT NOT NULL,
			trigger_run TEXT,
			start_time DATETIME NOT NULL,
			end_time DATETIME
		);`,
		`CREATE TABLE IF NOT EXISTS workflow_run_action (
			id TEXT PRIMARY KEY,
			run_id TEXT NOT NULL,
			action_id TEXT NOT NULL,
			status TEXT NOT NULL,
			start_time DATETIME NOT NULL,
			end_time DATETIME,
			error_msg TEXT,
			error_detail TEXT
		);`,
		`CREATE TABLE IF NOT EXISTS workflow_sleep (
			id TEXT PRIMARY KEY,
			run_id TEXT NOT NULL,
			action_id TEXT NOT NULL,
			next_action_inputs TEXT,
			wake_at DATETIME NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS account_credential (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			integration_account_id TEXT,
			fields TEXT,
			encrypted_data TEXT,
			create_time DATETIME NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS integration_account (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			kind TEXT NOT NULL DEFAULT '',
			fields TEXT,
			create_time DATETIME NOT NULL
		);`,
	}

	for _, schema := range schemas {
		if _, err := r.db.Exec(r.dialect.CreateTableSQL(schema)); err != nil {
			return fmt.Errorf("执行SQL失败: %w", err)
		}
	}
	return nil
}

// ---------- WorkflowRepository ----------

// SaveWorkflow 保存Workflow及其Action图（对外导出）
// 采用删旧插新策略，在单个事务内完成，保证定义与节点的一致性
func (r *FlowAggregateRepo) SaveWorkflow(ctx context.Context, wf *workflow.Workflow, actions []*workflow.WorkflowAction) error {
	if err := workflow.ValidateWorkflow(wf, actions); err != nil {
		return err
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("开始事务失败: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, r.db.Rebind(`DELETE FROM workflow_definition WHERE id = ?`), wf.ID); err != nil {
		return fmt.Errorf("删除旧Workflow定义失败: %w", err)
	}
	if _, err := tx.ExecContext(ctx, r.db.Rebind(`DELETE FROM workflow_action WHERE workflow_id = ?`), wf.ID); err != nil {
		return fmt.Errorf("删除旧Action定义失败: %w", err)
	}

	schemaJSON, err := marshalNullable(wf.TemplateSchema)
	if err != nil {
		return fmt.Errorf("序列化模板Schema失败: %w", err)
	}

	insertWf := r.db.Rebind(`INSERT INTO workflow_definition
		(id, name, owner_id, on_failure_workflow_id, template_schema, is_template, status, create_time)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if _, err := tx.ExecContext(ctx, insertWf,
		wf.ID, wf.Name, wf.OwnerID, nullString(wf.OnFailureWorkflowID), schemaJSON,
		wf.IsTemplate, string(wf.Status), wf.CreateTime); err != nil {
		return fmt.Errorf("保存Workflow定义失败: %w", err)
	}

	insertAction := r.db.Rebind(`INSERT INTO workflow_action
		(id, name, workflow_id, owner_id, integration_action_id, inputs, next_actions, credential_id, is_root_action)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	for _, action := range actions {
		inputsJSON, err := json.Marshal(action.Inputs)
		if err != nil {
			return fmt.Errorf("序列化Action输入失败: %w", err)
		}
		edgesJSON, err := json.Marshal(action.NextActions)
		if err != nil {
			return fmt.Errorf("序列化Action出边失败: %w", err)
		}
		if _, err := tx.ExecContext(ctx, insertAction,
			action.ID, action.Name, wf.ID, action.OwnerID, action.IntegrationActionID,
			string(inputsJSON), string(edgesJSON), nullString(action.CredentialID), action.IsRootAction); err != nil {
			return fmt.Errorf("保存Action %s 失败: %w", action.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("提交事务失败: %w", err)
	}
	return nil
}

// GetWorkflow 查询Workflow定义（对外导出）
func (r *FlowAggregateRepo) GetWorkflow(ctx context.Context, id string) (*workflow.Workflow, error) {
	var wfDAO dao.WorkflowDAO
	err := r.db.GetContext(ctx, &wfDAO, r.db.Rebind(`SELECT * FROM workflow_definition WHERE id = ?`), id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("查询Workflow失败: %w", err)
	}
	return daoToWorkflow(&wfDAO)
}

// ListWorkflows 列出所有Workflow定义（对外导出）
func (r *FlowAggregateRepo) ListWorkflows(ctx context.Context) ([]*workflow.Workflow, error) {
	var daos []dao.WorkflowDAO
	if err := r.db.SelectContext(ctx, &daos, `SELECT * FROM workflow_definition ORDER BY create_time`); err != nil {
		return nil, fmt.Errorf("查询Workflow列表失败: %w", err)
	}
	workflows := make([]*workflow.Workflow, 0, len(daos))
	for i := range daos {
		wf, err := daoToWorkflow(&daos[i])
		if err != nil {
			return nil, err
		}
		workflows = append(workflows, wf)
	}
	return workflows, nil
}

// GetWorkflowActions 查询Workflow的全部Action节点（对外导出）
func (r *FlowAggregateRepo) GetWorkflowActions(ctx context.Context, workflowID string) ([]*workflow.WorkflowAction, error) {
	var daos []dao.ActionDAO
	err := r.db.SelectContext(ctx, &daos, r.db.Rebind(`SELECT * FROM workflow_action WHERE workflow_id = ?`), workflowID)
	if err != nil {
		return nil, fmt.Errorf("查询Action列表失败: %w", err)
	}
	actions := make([]*workflow.WorkflowAction, 0, len(daos))
	for i := range daos {
		action, err := daoToAction(&daos[i])
		if err != nil {
			return nil, err
		}
		actions = append(actions, action)
	}
	return actions, nil
}

// GetAction 查询单个Action节点（对外导出）
func (r *FlowAggregateRepo) GetAction(ctx context.Context, actionID string) (*workflow.WorkflowAction, error) {
	var actionDAO dao.ActionDAO
	err := r.db.GetContext(ctx, &actionDAO, r.db.Rebind(`SELECT * FROM workflow_action WHERE id = ?`), actionID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("查询Action失败: %w", err)
	}
	return daoToAction(&actionDAO)
}

// SaveTrigger 保存触发器（对外导出）
func (r *FlowAggregateRepo) SaveTrigger(ctx context.Context, trigger *workflow.WorkflowTrigger) error {
	inputsJSON, err := json.Marshal(trigger.Inputs)
	if err != nil {
		return fmt.Errorf("序列化Trigger输入失败: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM workflow_trigger WHERE id = ?`), trigger.ID); err != nil {
		return fmt.Errorf("删除旧Trigger失败: %w", err)
	}
	insert := r.db.Rebind(`INSERT INTO workflow_trigger
		(id, workflow_id, owner_id, integration_trigger_id, inputs, credential_id, last_id)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if _, err := r.db.ExecContext(ctx, insert,
		trigger.ID, trigger.WorkflowID, trigger.OwnerID, trigger.IntegrationTriggerID,
		string(inputsJSON), nullString(trigger.CredentialID), nullString(trigger.LastID)); err != nil {
		return fmt.Errorf("保存Trigger失败: %w", err)
	}
	return nil
}

// GetTrigger 查询触发器（对外导出）
func (r *FlowAggregateRepo) GetTrigger(ctx context.Context, triggerID string) (*workflow.WorkflowTrigger, error) {
	var triggerDAO dao.TriggerDAO
	err := r.db.GetContext(ctx, &triggerDAO, r.db.Rebind(`SELECT * FROM workflow_trigger WHERE id = ?`), triggerID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("查询Trigger失败: %w", err)
	}
	return daoToTrigger(&triggerDAO)
}

// ListTriggers 列出所有触发器（对外导出）
func (r *FlowAggregateRepo) ListTriggers(ctx context.Context) ([]*workflow.WorkflowTrigger, error) {
	var daos []dao.TriggerDAO
	if err := r.db.SelectContext(ctx, &daos, `SELECT * FROM workflow_trigger`); err != nil {
		return nil, fmt.Errorf("查询Trigger列表失败: %w", err)
	}
	triggers := make([]*workflow.WorkflowTrigger, 0, len(daos))
	for i := range daos {
		trigger, err := daoToTrigger(&daos[i])
		if err != nil {
			return nil, err
		}
		triggers = append(triggers, trigger)
	}
	return triggers, nil
}

// UpdateTriggerLastID 前进触发器的去重游标（对外导出）
func (r *FlowAggregateRepo) UpdateTriggerLastID(ctx context.Context, triggerID, lastID string) error {
	update := r.db.Rebind(`UPDATE workflow_trigger SET last_id = ? WHERE id = ?`)
	if _, err := r.db.ExecContext(ctx, update, lastID, triggerID); err != nil {
		return fmt.Errorf("更新Trigger游标失败: %w", err)
	}
	return nil
}

// ---------- RunRepository ----------

// SaveRun 创建运行实例记录（对外导出）
func (r *FlowAggregateRepo) SaveRun(ctx context.Context, run *workflow.WorkflowRun) error {
	triggerRunJSON, err := json.Marshal(run.TriggerRun)
	if err != nil {
		return fmt.Errorf("序列化TriggerRun失败: %w", err)
	}
	insert := r.db.Rebind(`INSERT INTO workflow_run
		(id, workflow_id, status, started_by, trigger_run, start_time, end_time)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if _, err := r.db.ExecContext(ctx, insert,
		run.ID, run.WorkflowID, string(run.Status), string(run.StartedBy),
		string(triggerRunJSON), run.StartTime, nullTime(run.EndTime)); err != nil {
		return fmt.Errorf("保存WorkflowRun失败: %w", err)
	}
	return nil
}

// GetRun 查询运行实例（对外导出）
func (r *FlowAggregateRepo) GetRun(ctx context.Context, runID string) (*workflow.WorkflowRun, error) {
	var runDAO dao.RunDAO
	err := r.db.GetContext(ctx, &runDAO, r.db.Rebind(`SELECT * FROM workflow_run WHERE id = ?`), runID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("查询WorkflowRun失败: %w", err)
	}
	return daoToRun(&runDAO)
}

// ListRuns 列出Workflow的运行实例（对外导出）
func (r *FlowAggregateRepo) ListRuns(ctx context.Context, workflowID string) ([]*workflow.WorkflowRun, error) {
	var daos []dao.RunDAO
	err := r.db.SelectContext(ctx, &daos,
		r.db.Rebind(`SELECT * FROM workflow_run WHERE workflow_id = ? ORDER BY start_time DESC`), workflowID)
	if err != nil {
		return nil, fmt.Errorf("查询WorkflowRun列表失败: %w", err)
	}
	runs := make([]*workflow.WorkflowRun, 0, len(daos))
	for i := range daos {
		run, err := daoToRun(&daos[i])
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, nil
}

// UpdateRunStatus 更新运行状态（对外导出）
// 终态只允许从running迁移一次，由WHERE status='running'守卫保证
func (r *FlowAggregateRepo) UpdateRunStatus(ctx context.Context, runID string, status workflow.RunStatus) (bool, error) {
	var result sql.Result
	var err error
	if status == workflow.RunCompleted || status == workflow.RunFailed {
		update := r.db.Rebind(`UPDATE workflow_run SET status = ?, end_time = ? WHERE id = ? AND status = ?`)
		result, err = r.db.ExecContext(ctx, update, string(status), time.Now(), runID, string(workflow.RunRunning))
	} else {
		update := r.db.Rebind(`UPDATE workflow_run SET status = ? WHERE id = ?`)
		result, err = r.db.ExecContext(ctx, update, string(status), runID)
	}
	if err != nil {
		return false, fmt.Errorf("更新WorkflowRun状态失败: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("获取更新行数失败: %w", err)
	}
	return affected > 0, nil
}

// UpdateTriggerRun 更新运行实例的触发器执行子记录（对外导出）
func (r *FlowAggregateRepo) UpdateTriggerRun(ctx context.Context, runID string, triggerRun workflow.TriggerRun) error {
	triggerRunJSON, err := json.Marshal(triggerRun)
	if err != nil {
		return fmt.Errorf("序列化TriggerRun失败: %w", err)
	}
	update := r.db.Rebind(`UPDATE workflow_run SET trigger_run = ? WHERE id = ?`)
	if _, err := r.db.ExecContext(ctx, update, string(triggerRunJSON), runID); err != nil {
		return fmt.Errorf("更新TriggerRun失败: %w", err)
	}
	return nil
}

// SaveRunAction 创建节点执行记录（对外导出）
func (r *FlowAggregateRepo) SaveRunAction(ctx context.Context, runAction *workflow.WorkflowRunAction) error {
	insert := r.db.Rebind(`INSERT INTO workflow_run_action
		(id, run_id, action_id, status, start_time, end_time, error_msg, error_detail)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if _, err := r.db.ExecContext(ctx, insert,
		runAction.ID, runAction.RunID, runAction.ActionID, string(runAction.Status),
		runAction.StartTime, nullTime(runAction.EndTime),
		nullString(runAction.ErrorMsg), nullString(runAction.ErrorDetail)); err != nil {
		return fmt.Errorf("保存RunAction失败: %w", err)
	}
	return nil
}

// UpdateRunAction 更新节点执行记录（对外导出）
func (r *FlowAggregateRepo) UpdateRunAction(ctx context.Context, runAction *workflow.WorkflowRunAction) error {
	update := r.db.Rebind(`UPDATE workflow_run_action
		SET status = ?, end_time = ?, error_msg = ?, error_detail = ? WHERE id = ?`)
	if _, err := r.db.ExecContext(ctx, update,
		string(runAction.Status), nullTime(runAction.EndTime),
		nullString(runAction.ErrorMsg), nullString(runAction.ErrorDetail), runAction.ID); err != nil {
		return fmt.Errorf("更新RunAction失败: %w", err)
	}
	return nil
}

// ListRunActions 查询运行实例的全部节点执行记录（对外导出）
func (r *FlowAggregateRepo) ListRunActions(ctx context.Context, runID string) ([]*workflow.WorkflowRunAction, error) {
	var daos []dao.RunActionDAO
	err := r.db.SelectContext(ctx, &daos,
		r.db.Rebind(`SELECT * FROM workflow_run_action WHERE run_id = ? ORDER BY start_time`), runID)
	if err != nil {
		return nil, fmt.Errorf("查询RunAction列表失败: %w", err)
	}
	runActions := make([]*workflow.WorkflowRunAction, 0, len(daos))
	for i := range daos {
		runActions = append(runActions, daoToRunAction(&daos[i]))
	}
	return runActions, nil
}

// ---------- SleepRepository ----------

// SaveSleep 持久化挂起续体（对外导出）
func (r *FlowAggregateRepo) SaveSleep(ctx context.Context, sleep *workflow.WorkflowSleep) error {
	bagJSON, err := json.Marshal(sleep.NextActionInputs)
	if err != nil {
		return fmt.Errorf("序列化输出包快照失败: %w", err)
	}
	insert := r.db.Rebind(`INSERT INTO workflow_sleep
		(id, run_id, action_id, next_action_inputs, wake_at)
		VALUES (?, ?, ?, ?, ?)`)
	if _, err := r.db.ExecContext(ctx, insert,
		sleep.ID, sleep.RunID, sleep.ActionID, string(bagJSON), sleep.WakeAt); err != nil {
		return fmt.Errorf("保存WorkflowSleep失败: %w", err)
	}
	return nil
}

// GetSleep 查询挂起续体（对外导出）
func (r *FlowAggregateRepo) GetSleep(ctx context.Context, sleepID string) (*workflow.WorkflowSleep, error) {
	var sleepDAO dao.SleepDAO
	err := r.db.GetContext(ctx, &sleepDAO, r.db.Rebind(`SELECT * FROM workflow_sleep WHERE id = ?`), sleepID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("查询WorkflowSleep失败: %w", err)
	}
	return daoToSleep(&sleepDAO)
}

// FindDueSleeps 查询唤醒时刻已到的续体（对外导出）
func (r *FlowAggregateRepo) FindDueSleeps(ctx context.Context, before time.Time) ([]*workflow.WorkflowSleep, error) {
	var daos []dao.SleepDAO
	err := r.db.SelectContext(ctx, &daos,
		r.db.Rebind(`SELECT * FROM workflow_sleep WHERE wake_at <= ? ORDER BY wake_at`), before)
	if err != nil {
		return nil, fmt.Errorf("查询到期WorkflowSleep失败: %w", err)
	}
	sleeps := make([]*workflow.WorkflowSleep, 0, len(daos))
	for i := range daos {
		sleep, err := daoToSleep(&daos[i])
		if err != nil {
			return nil, err
		}
		sleeps = append(sleeps, sleep)
	}
	return sleeps, nil
}

// ClaimSleep 认领并删除续体（对外导出）
// 删除行数为0说明已被其他消费者认领，返回false保证至多一次恢复
func (r *FlowAggregateRepo) ClaimSleep(ctx context.Context, sleepID string) (bool, error) {
	result, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM workflow_sleep WHERE id = ?`), sleepID)
	if err != nil {
		return false, fmt.Errorf("删除WorkflowSleep失败: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("获取删除行数失败: %w", err)
	}
	return affected > 0, nil
}

// ---------- CredentialRepository ----------

// SaveAccountCredential 保存账号凭证（对外导出）
func (r *FlowAggregateRepo) SaveAccountCredential(ctx context.Context, credential *storage.AccountCredential) error {
	fieldsJSON, err := json.Marshal(credential.Fields)
	if err != nil {
		return fmt.Errorf("序列化凭证字段失败: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM account_credential WHERE id = ?`), credential.ID); err != nil {
		return fmt.Errorf("删除旧凭证失败: %w", err)
	}
	insert := r.db.Rebind(`INSERT INTO account_credential
		(id, name, integration_account_id, fields, encrypted_data, create_time)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if _, err := r.db.ExecContext(ctx, insert,
		credential.ID, credential.Name, nullString(credential.IntegrationAccountID),
		string(fieldsJSON), nullString(credential.EncryptedData), credential.CreateTime); err != nil {
		return fmt.Errorf("保存凭证失败: %w", err)
	}
	return nil
}

// FindAccountCredentialByID 查询账号凭证（对外导出），不存在时返回nil
func (r *FlowAggregateRepo) FindAccountCredentialByID(ctx context.Context, id string) (*storage.AccountCredential, error) {
	var credDAO dao.AccountCredentialDAO
	err := r.db.GetContext(ctx, &credDAO, r.db.Rebind(`SELECT * FROM account_credential WHERE id = ?`), id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("查询凭证失败: %w", err)
	}
	return daoToCredential(&credDAO)
}

// UpdateAccountCredentialFields 更新凭证明文字段（对外导出）
func (r *FlowAggregateRepo) UpdateAccountCredentialFields(ctx context.Context, id string, patch map[string]any) error {
	credential, err := r.FindAccountCredentialByID(ctx, id)
	if err != nil {
		return err
	}
	if credential == nil {
		return fmt.Errorf("凭证 %s 不存在", id)
	}
	if credential.Fields == nil {
		credential.Fields = make(map[string]any, len(patch))
	}
	for k, v := range patch {
		credential.Fields[k] = v
	}
	fieldsJSON, err := json.Marshal(credential.Fields)
	if err != nil {
		return fmt.Errorf("序列化凭证字段失败: %w", err)
	}
	update := r.db.Rebind(`UPDATE account_credential SET fields = ? WHERE id = ?`)
	if _, err := r.db.ExecContext(ctx, update, string(fieldsJSON), id); err != nil {
		return fmt.Errorf("更新凭证字段失败: %w", err)
	}
	return nil
}

// SaveIntegrationAccount 保存集成账号（对外导出）
func (r *FlowAggregateRepo) SaveIntegrationAccount(ctx context.Context, account *storage.IntegrationAccount) error {
	fieldsJSON, err := json.Marshal(account.Fields)
	if err != nil {
		return fmt.Errorf("序列化集成账号字段失败: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM integration_account WHERE id = ?`), account.ID); err != nil {
		return fmt.Errorf("删除旧集成账号失败: %w", err)
	}
	insert := r.db.Rebind(`INSERT INTO integration_account
		(id, name, kind, fields, create_time) VALUES (?, ?, ?, ?, ?)`)
	if _, err := r.db.ExecContext(ctx, insert,
		account.ID, account.Name, account.Kind, string(fieldsJSON), account.CreateTime); err != nil {
		return fmt.Errorf("保存集成账号失败: %w", err)
	}
	return nil
}

// FindIntegrationAccountByID 查询集成账号（对外导出），不存在时返回nil
func (r *FlowAggregateRepo) FindIntegrationAccountByID(ctx context.Context, id string) (*storage.IntegrationAccount, error) {
	var accountDAO dao.IntegrationAccountDAO
	err := r.db.GetContext(ctx, &accountDAO, r.db.Rebind(`SELECT * FROM integration_account WHERE id = ?`), id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("查询集成账号失败: %w", err)
	}
	return daoToIntegrationAccount(&accountDAO)
}
