package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"

	"github.com/LENAX/flow-engine/pkg/core/workflow"
)

// EventType 引擎事件类型
type EventType string

const (
	// 运行生命周期事件
	EventRunStarted   EventType = "run.started"   // 运行实例创建
	EventRunCompleted EventType = "run.completed" // 运行实例完成
	EventRunFailed    EventType = "run.failed"    // 运行实例失败

	// 节点执行事件
	EventActionCompleted EventType = "action.completed" // 节点执行成功
	EventActionFailed    EventType = "action.failed"    // 节点执行失败

	// 触发器事件
	EventTriggerChecked EventType = "trigger.checked" // 触发器轮询完成

	// 挂起/唤醒事件
	EventSleepScheduled   EventType = "sleep.scheduled"   // 挂起续体已持久化
	EventContinuationLost EventType = "continuation.lost" // 唤醒时run/action缺失，续体丢弃
)

const (
	// TopicEngineEvents 可观测性事件主题
	TopicEngineEvents = "engine.events"
	// TopicWakeUp 唤醒调度主题：到期续体重新入队为消息，由唤醒处理器消费
	TopicWakeUp = "engine.wakeup"
)

// EngineEvent 引擎事件基础结构（对外导出）
type EngineEvent struct {
	ID         string         `json:"id"`          // 事件ID（UUID）
	Type       EventType      `json:"type"`        // 事件类型
	RunID      string         `json:"run_id"`      // 关联运行实例ID
	WorkflowID string         `json:"workflow_id"` // 关联工作流ID
	Timestamp  time.Time      `json:"timestamp"`   // 事件时间
	Payload    map[string]any `json:"payload,omitempty"`
}

// NewEngineEvent 创建引擎事件
func NewEngineEvent(eventType EventType, runID, workflowID string) *EngineEvent {
	return &EngineEvent{
		ID:         uuid.NewString(),
		Type:       eventType,
		RunID:      runID,
		WorkflowID: workflowID,
		Timestamp:  time.Now(),
	}
}

// WithPayload 附加事件负载
func (e *EngineEvent) WithPayload(key string, value any) *EngineEvent {
	if e.Payload == nil {
		e.Payload = make(map[string]any)
	}
	e.Payload[key] = value
	return e
}

// EventBus 引擎事件总线（对外导出）
// 基于watermill的进程内Pub/Sub，承载可观测性事件和唤醒调度消息
type EventBus struct {
	pubsub *gochannel.GoChannel
	router *message.Router
	logger watermill.LoggerAdapter
}

// NewEventBus 创建事件总线（对外导出的工厂方法）
func NewEventBus(debug bool) (*EventBus, error) {
	logger := watermill.NewStdLogger(debug, false)

	pubsub := gochannel.NewGoChannel(
		gochannel.Config{
			Persistent:                     false,
			BlockPublishUntilSubscriberAck: false,
		},
		logger,
	)

	router, err := message.NewRouter(message.RouterConfig{}, logger)
	if err != nil {
		return nil, fmt.Errorf("创建消息路由器失败: %w", err)
	}

	return &EventBus{pubsub: pubsub, router: router, logger: logger}, nil
}

// PublishEvent 发布可观测性事件
func (b *EventBus) PublishEvent(event *EngineEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("序列化事件失败: %w", err)
	}
	msg := message.NewMessage(event.ID, payload)
	return b.pubsub.Publish(TopicEngineEvents, msg)
}

// PublishWakeUp 将已认领的到期续体重新入队为唤醒消息
// 续体记录在入队前已从存储删除（至多一次消费），消息携带完整快照
func (b *EventBus) PublishWakeUp(sleep *workflow.WorkflowSleep) error {
	payload, err := json.Marshal(sleep)
	if err != nil {
		return fmt.Errorf("序列化续体失败: %w", err)
	}
	msg := message.NewMessage(uuid.NewString(), payload)
	return b.pubsub.Publish(TopicWakeUp, msg)
}

// AddWakeUpHandler 注册唤醒消息处理器
// 必须在Run之前调用
func (b *EventBus) AddWakeUpHandler(handler func(ctx context.Context, sleep *workflow.WorkflowSleep) error) {
	b.router.AddNoPublisherHandler(
		"wakeup_handler",
		TopicWakeUp,
		b.pubsub,
		func(msg *message.Message) error {
			var sleep workflow.WorkflowSleep
			if err := json.Unmarshal(msg.Payload, &sleep); err != nil {
				return fmt.Errorf("反序列化续体失败: %w", err)
			}
			return handler(msg.Context(), &sleep)
		},
	)
}

// SubscribeEvents 订阅可观测性事件流
func (b *EventBus) SubscribeEvents(ctx context.Context) (<-chan *message.Message, error) {
	return b.pubsub.Subscribe(ctx, TopicEngineEvents)
}

// Run 启动消息路由器（阻塞，应在独立goroutine中调用）
func (b *EventBus) Run(ctx context.Context) error {
	return b.router.Run(ctx)
}

// Close 关闭事件总线
func (b *EventBus) Close() error {
	if err := b.router.Close(); err != nil {
		return err
	}
	return b.pubsub.Close()
}
