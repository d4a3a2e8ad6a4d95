// Package integration 定义集成与操作的契约：触发器/动作定义、操作调用接口
// 引擎只通过Invoker接口调用外部操作，不关心任何具体集成的实现细节
package integration

import (
	"context"
	"fmt"
	"time"

	"github.com/LENAX/flow-engine/pkg/storage"
)

// Integration 集成定义（对外导出）
// 一个集成对应一个外部系统，包含若干触发器定义和动作定义
type Integration struct {
	ID   string // 集成ID
	Name string // 集成名称
	Kind string // 集成类型标识，Invoker按此路由（如http）
}

// PopulateExtension 触发器的条目补全扩展（对外导出）
// 配置后，每个新条目都会额外调用一次补全操作，其输出合并到条目字段之下
// （条目自身字段优先）
type PopulateExtension struct {
	OperationID string         // 补全操作ID
	Inputs      map[string]any // 补全操作的模板化输入
}

// TriggerDefinition 集成触发器定义（对外导出）
type TriggerDefinition struct {
	ID            string             // 触发器定义ID
	IntegrationID string             // 所属集成ID
	Name          string             // 触发器名称
	OperationID   string             // 轮询操作ID
	IDKey         string             // 条目标识字段名（去重必需）
	Populate      *PopulateExtension // 条目补全扩展（可选）
}

// ActionDefinition 集成动作定义（对外导出）
type ActionDefinition struct {
	ID            string // 动作定义ID
	IntegrationID string // 所属集成ID
	Name          string // 动作名称
	OperationID   string // 执行操作ID
}

// InvocationRequest 操作调用请求（对外导出）
type InvocationRequest struct {
	Integration        *Integration                // 所属集成
	IntegrationAccount *storage.IntegrationAccount // 集成账号（可选）
	OperationID        string                      // 操作ID
	Inputs             map[string]any              // 已解析的输入
	Credentials        map[string]any              // 已解密合并的凭证
	AccountCredential  *storage.AccountCredential  // 凭证记录（可选）
}

// InvocationResult 操作调用结果（对外导出）
type InvocationResult struct {
	Outputs              map[string]any // 操作输出记录
	Condition            any            // 分支条件（可选，出边按其字符串形式匹配）
	SleepUntil           *time.Time     // 挂起至指定时刻（可选）
	RefreshedCredentials map[string]any // 刷新后的凭证字段（可选，回写凭证存储）
}

// InvocationError 操作调用失败（对外导出）
// Response携带外部系统的原始响应文本（可选），随错误一并记录到run/action
type InvocationError struct {
	Message  string
	Response string
}

// Error 实现error接口
func (e *InvocationError) Error() string {
	return e.Message
}

// NewInvocationError 创建操作调用错误
func NewInvocationError(message, response string) *InvocationError {
	return &InvocationError{Message: message, Response: response}
}

// Invoker 操作调用接口（对外导出）
// 执行一次触发器轮询或一次动作调用；引擎将其视为不透明调用
type Invoker interface {
	Invoke(ctx context.Context, req *InvocationRequest) (*InvocationResult, error)
}

// ItemList 从操作输出中提取条目列表（对外导出）
// 触发器轮询操作约定输出字段items为条目数组（最新在前）
func (r *InvocationResult) ItemList() ([]map[string]any, error) {
	raw, exists := r.Outputs["items"]
	if !exists {
		return nil, nil
	}
	list, ok := raw.([]any)
	if !ok {
		// 已经是条目映射数组的情况（进程内Invoker常见）
		if typed, ok := raw.([]map[string]any); ok {
			return typed, nil
		}
		return nil, fmt.Errorf("触发器输出items不是数组: %T", raw)
	}
	items := make([]map[string]any, 0, len(list))
	for i, element := range list {
		item, ok := element.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("触发器输出items[%d]不是对象: %T", i, element)
		}
		items = append(items, item)
	}
	return items, nil
}
