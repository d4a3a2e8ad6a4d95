package integration

import (
	"fmt"
	"sync"
)

// DefinitionRegistry 集成定义注册中心（对外导出）
// 管理集成、触发器定义、动作定义与Invoker的映射；并发安全
type DefinitionRegistry struct {
	integrations sync.Map // integrationID -> *Integration
	triggers     sync.Map // triggerDefinitionID -> *TriggerDefinition
	actions      sync.Map // actionDefinitionID -> *ActionDefinition
	invokers     sync.Map // integration Kind -> Invoker
}

// NewDefinitionRegistry 创建注册中心实例（对外导出的工厂方法）
func NewDefinitionRegistry() *DefinitionRegistry {
	return &DefinitionRegistry{}
}

// RegisterIntegration 注册集成及其Invoker
func (r *DefinitionRegistry) RegisterIntegration(integration *Integration, invoker Invoker) error {
	if integration.ID == "" {
		return fmt.Errorf("集成ID不能为空")
	}
	if _, loaded := r.integrations.LoadOrStore(integration.ID, integration); loaded {
		return fmt.Errorf("集成 %s 已注册", integration.ID)
	}
	if invoker != nil {
		r.invokers.Store(integration.Kind, invoker)
	}
	return nil
}

// RegisterTrigger 注册触发器定义
func (r *DefinitionRegistry) RegisterTrigger(def *TriggerDefinition) error {
	if _, exists := r.integrations.Load(def.IntegrationID); !exists {
		return fmt.Errorf("触发器定义 %s 引用的集成 %s 不存在", def.ID, def.IntegrationID)
	}
	if _, loaded := r.triggers.LoadOrStore(def.ID, def); loaded {
		return fmt.Errorf("触发器定义 %s 已注册", def.ID)
	}
	return nil
}

// RegisterAction 注册动作定义
func (r *DefinitionRegistry) RegisterAction(def *ActionDefinition) error {
	if _, exists := r.integrations.Load(def.IntegrationID); !exists {
		return fmt.Errorf("动作定义 %s 引用的集成 %s 不存在", def.ID, def.IntegrationID)
	}
	if _, loaded := r.actions.LoadOrStore(def.ID, def); loaded {
		return fmt.Errorf("动作定义 %s 已注册", def.ID)
	}
	return nil
}

// GetIntegration 查询集成
func (r *DefinitionRegistry) GetIntegration(id string) (*Integration, bool) {
	value, exists := r.integrations.Load(id)
	if !exists {
		return nil, false
	}
	return value.(*Integration), true
}

// GetTrigger 查询触发器定义
func (r *DefinitionRegistry) GetTrigger(id string) (*TriggerDefinition, bool) {
	value, exists := r.triggers.Load(id)
	if !exists {
		return nil, false
	}
	return value.(*TriggerDefinition), true
}

// GetAction 查询动作定义
func (r *DefinitionRegistry) GetAction(id string) (*ActionDefinition, bool) {
	value, exists := r.actions.Load(id)
	if !exists {
		return nil, false
	}
	return value.(*ActionDefinition), true
}

// GetInvoker 按集成类型查询Invoker
func (r *DefinitionRegistry) GetInvoker(kind string) (Invoker, bool) {
	value, exists := r.invokers.Load(kind)
	if !exists {
		return nil, false
	}
	return value.(Invoker), true
}
