// Package flowengine 提供引擎HTTP API的Go客户端，供CLI远程管理使用
package flowengine

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/LENAX/flow-engine/pkg/api/dto"
)

// FlowEngine HTTP API客户端
type FlowEngine struct {
	baseURL    string
	httpClient *http.Client
}

// New 创建FlowEngine客户端
func New(baseURL string) *FlowEngine {
	return &FlowEngine{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// ========== Workflow API ==========

// ListWorkflows 列出所有Workflow
func (f *FlowEngine) ListWorkflows() (*dto.ListResponse[dto.WorkflowSummary], error) {
	var resp dto.APIResponse[dto.ListResponse[dto.WorkflowSummary]]
	if err := f.get("/api/v1/workflows", &resp); err != nil {
		return nil, err
	}
	if resp.Code != 0 {
		return nil, fmt.Errorf("%s", resp.Message)
	}
	return &resp.Data, nil
}

// GetWorkflow 获取Workflow详情
func (f *FlowEngine) GetWorkflow(id string) (*dto.WorkflowDetail, error) {
	var resp dto.APIResponse[dto.WorkflowDetail]
	if err := f.get("/api/v1/workflows/"+id, &resp); err != nil {
		return nil, err
	}
	if resp.Code != 0 {
		return nil, fmt.Errorf("%s", resp.Message)
	}
	return &resp.Data, nil
}

// SaveWorkflow 保存Workflow定义
func (f *FlowEngine) SaveWorkflow(req dto.SaveWorkflowRequest) (*dto.WorkflowSummary, error) {
	var resp dto.APIResponse[dto.WorkflowSummary]
	if err := f.post("/api/v1/workflows", req, &resp); err != nil {
		return nil, err
	}
	if resp.Code != 0 {
		return nil, fmt.Errorf("%s", resp.Message)
	}
	return &resp.Data, nil
}

// ExecuteWorkflow 手工执行Workflow
func (f *FlowEngine) ExecuteWorkflow(id string, seed map[string]map[string]any) (*dto.ExecuteResponse, error) {
	var resp dto.APIResponse[dto.ExecuteResponse]
	if err := f.post("/api/v1/workflows/"+id+"/execute", dto.ExecuteWorkflowRequest{Seed: seed}, &resp); err != nil {
		return nil, err
	}
	if resp.Code != 0 {
		return nil, fmt.Errorf("%s", resp.Message)
	}
	return &resp.Data, nil
}

// ListRuns 列出Workflow的运行实例
func (f *FlowEngine) ListRuns(workflowID string) (*dto.ListResponse[dto.RunSummary], error) {
	var resp dto.APIResponse[dto.ListResponse[dto.RunSummary]]
	if err := f.get("/api/v1/workflows/"+workflowID+"/runs", &resp); err != nil {
		return nil, err
	}
	if resp.Code != 0 {
		return nil, fmt.Errorf("%s", resp.Message)
	}
	return &resp.Data, nil
}

// GetRun 获取运行实例详情
func (f *FlowEngine) GetRun(id string) (*dto.RunDetail, error) {
	var resp dto.APIResponse[dto.RunDetail]
	if err := f.get("/api/v1/runs/"+id, &resp); err != nil {
		return nil, err
	}
	if resp.Code != 0 {
		return nil, fmt.Errorf("%s", resp.Message)
	}
	return &resp.Data, nil
}

// ========== Trigger API ==========

// ListTriggers 列出所有触发器
func (f *FlowEngine) ListTriggers() (*dto.ListResponse[dto.TriggerSummary], error) {
	var resp dto.APIResponse[dto.ListResponse[dto.TriggerSummary]]
	if err := f.get("/api/v1/triggers", &resp); err != nil {
		return nil, err
	}
	if resp.Code != 0 {
		return nil, fmt.Errorf("%s", resp.Message)
	}
	return &resp.Data, nil
}

// CheckTrigger 立即执行一次触发器轮询
func (f *FlowEngine) CheckTrigger(id string) error {
	var resp dto.APIResponse[map[string]string]
	if err := f.post("/api/v1/triggers/"+id+"/check", nil, &resp); err != nil {
		return err
	}
	if resp.Code != 0 {
		return fmt.Errorf("%s", resp.Message)
	}
	return nil
}

// Health 健康检查
func (f *FlowEngine) Health() (*dto.HealthResponse, error) {
	var resp dto.APIResponse[dto.HealthResponse]
	if err := f.get("/health", &resp); err != nil {
		return nil, err
	}
	if resp.Code != 0 {
		return nil, fmt.Errorf("%s", resp.Message)
	}
	return &resp.Data, nil
}

// ========== HTTP 基础方法 ==========

func (f *FlowEngine) get(path string, result interface{}) error {
	resp, err := f.httpClient.Get(f.baseURL + path)
	if err != nil {
		return fmt.Errorf("HTTP请求失败: %w", err)
	}
	defer resp.Body.Close()

	return f.parseResponse(resp, result)
}

func (f *FlowEngine) post(path string, body interface{}, result interface{}) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("序列化请求体失败: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	resp, err := f.httpClient.Post(f.baseURL+path, "application/json", reqBody)
	if err != nil {
		return fmt.Errorf("HTTP请求失败: %w", err)
	}
	defer resp.Body.Close()

	return f.parseResponse(resp, result)
}

func (f *FlowEngine) parseResponse(resp *http.Response, result interface{}) error {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("读取响应体失败: %w", err)
	}

	if err := json.Unmarshal(body, result); err != nil {
		return fmt.Errorf("解析响应失败: %w, body: %s", err, string(body))
	}
	return nil
}
