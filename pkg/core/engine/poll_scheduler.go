package engine

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/LENAX/flow-engine/pkg/core/workflow"
)

// defaultPollInterval 默认触发器轮询周期
const defaultPollInterval = time.Minute

// PollScheduler 触发器轮询调度器（对外导出）
// 按周期对每个注册的触发器执行一次轮询检查；
// 同一触发器持有飞行中租约，上一轮未结束时跳过本轮，避免游标并发前进
type PollScheduler struct {
	engine   *Engine
	cron     *cron.Cron
	entries  map[string]cron.EntryID // triggerID -> cron条目
	inFlight sync.Map                // triggerID -> struct{}，飞行中租约
	mu       sync.Mutex
}

// NewPollScheduler 创建PollScheduler实例（对外导出的工厂方法）
func NewPollScheduler(engine *Engine) *PollScheduler {
	return &PollScheduler{
		engine:  engine,
		cron:    cron.New(),
		entries: make(map[string]cron.EntryID),
	}
}

// Start 启动调度器（对外导出）
func (s *PollScheduler) Start() {
	s.cron.Start()
	log.Printf("✅ [PollScheduler] 触发器轮询调度已启动")
}

// Stop 停止调度器（对外导出）
func (s *PollScheduler) Stop() {
	s.cron.Stop()
	log.Printf("✅ [PollScheduler] 触发器轮询调度已停止")
}

// RegisterTrigger 注册触发器的周期轮询（对外导出）
// interval<=0时使用默认周期；重复注册时先移除旧条目
func (s *PollScheduler) RegisterTrigger(trigger *workflow.WorkflowTrigger, interval time.Duration) error {
	if interval <= 0 {
		interval = defaultPollInterval
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if oldEntry, exists := s.entries[trigger.ID]; exists {
		s.cron.Remove(oldEntry)
	}

	spec := fmt.Sprintf("@every %s", interval)
	entryID, err := s.cron.AddFunc(spec, func() {
		s.pollOnce(trigger)
	})
	if err != nil {
		return fmt.Errorf("注册触发器轮询失败: %w", err)
	}
	s.entries[trigger.ID] = entryID
	log.Printf("✅ [PollScheduler] 触发器已注册: TriggerID=%s, 周期=%s", trigger.ID, interval)
	return nil
}

// UnregisterTrigger 移除触发器的周期轮询（对外导出）
func (s *PollScheduler) UnregisterTrigger(triggerID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if entryID, exists := s.entries[triggerID]; exists {
		s.cron.Remove(entryID)
		delete(s.entries, triggerID)
		log.Printf("✅ [PollScheduler] 触发器已移除: TriggerID=%s", triggerID)
	}
}

// LoadTriggers 从存储加载全部触发器并注册轮询（对外导出）
// 服务启动时调用一次
func (s *PollScheduler) LoadTriggers(ctx context.Context, interval time.Duration) error {
	triggers, err := s.engine.repo.ListTriggers(ctx)
	if err != nil {
		return fmt.Errorf("加载触发器列表失败: %w", err)
	}
	for _, trigger := range triggers {
		if err := s.RegisterTrigger(trigger, interval); err != nil {
			return err
		}
	}
	log.Printf("✅ [PollScheduler] 已加载触发器: 数量=%d", len(triggers))
	return nil
}

// pollOnce 对单个触发器执行一次轮询检查
// 租约未释放（上一轮仍在执行）时直接跳过
func (s *PollScheduler) pollOnce(trigger *workflow.WorkflowTrigger) {
	if _, loaded := s.inFlight.LoadOrStore(trigger.ID, struct{}{}); loaded {
		log.Printf("⚠️ [PollScheduler] 上一轮轮询未结束，跳过: TriggerID=%s", trigger.ID)
		return
	}
	defer s.inFlight.Delete(trigger.ID)

	if err := s.engine.RunWorkflowTriggerCheck(s.engine.ctx, trigger); err != nil {
		log.Printf("❌ [PollScheduler] 触发器轮询失败: TriggerID=%s, Error=%v", trigger.ID, err)
	}
}
