package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/LENAX/flow-engine/pkg/api/dto"
	"github.com/LENAX/flow-engine/pkg/core/engine"
	"github.com/LENAX/flow-engine/pkg/core/workflow"
)

// TriggerHandler 触发器API处理器
type TriggerHandler struct {
	engine *engine.Engine
}

// NewTriggerHandler 创建TriggerHandler
func NewTriggerHandler(eng *engine.Engine) *TriggerHandler {
	return &TriggerHandler{engine: eng}
}

// List 列出所有触发器
// GET /api/v1/triggers
func (h *TriggerHandler) List(c *gin.Context) {
	ctx := c.Request.Context()

	triggers, err := h.engine.Repo().ListTriggers(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, dto.NewErrorResponse(500, fmt.Sprintf("查询触发器失败: %v", err)))
		return
	}

	items := make([]dto.TriggerSummary, 0, len(triggers))
	for _, trigger := range triggers {
		items = append(items, dto.TriggerSummary{
			ID:                   trigger.ID,
			WorkflowID:           trigger.WorkflowID,
			IntegrationTriggerID: trigger.IntegrationTriggerID,
			LastID:               trigger.LastID,
		})
	}
	c.JSON(http.StatusOK, dto.NewSuccessResponse(dto.ListResponse[dto.TriggerSummary]{
		Total:   len(items),
		Items:   items,
		HasMore: false,
	}))
}

// Save 保存触发器并注册周期轮询
// POST /api/v1/triggers
func (h *TriggerHandler) Save(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.SaveTriggerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.NewErrorResponse(400, fmt.Sprintf("请求参数非法: %v", err)))
		return
	}

	// 触发器定义必须已注册
	if _, exists := h.engine.Registry().GetTrigger(req.IntegrationTriggerID); !exists {
		c.JSON(http.StatusBadRequest, dto.NewErrorResponse(400,
			fmt.Sprintf("触发器定义 %s 不存在", req.IntegrationTriggerID)))
		return
	}

	wf, err := h.engine.Repo().GetWorkflow(ctx, req.WorkflowID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, dto.NewErrorResponse(500, fmt.Sprintf("查询Workflow失败: %v", err)))
		return
	}
	if wf == nil {
		c.JSON(http.StatusNotFound, dto.NewErrorResponse(404, "Workflow不存在"))
		return
	}

	var pollInterval time.Duration
	if req.PollInterval != "" {
		pollInterval, err = time.ParseDuration(req.PollInterval)
		if err != nil {
			c.JSON(http.StatusBadRequest, dto.NewErrorResponse(400, fmt.Sprintf("poll_interval非法: %v", err)))
			return
		}
	}

	trigger := &workflow.WorkflowTrigger{
		ID:                   req.ID,
		WorkflowID:           req.WorkflowID,
		OwnerID:              wf.OwnerID,
		IntegrationTriggerID: req.IntegrationTriggerID,
		CredentialID:         req.CredentialID,
		Inputs:               req.Inputs,
	}
	if trigger.ID == "" {
		trigger.ID = uuid.NewString()
	}
	if trigger.Inputs == nil {
		trigger.Inputs = map[string]any{}
	}

	if err := h.engine.Repo().SaveTrigger(ctx, trigger); err != nil {
		c.JSON(http.StatusInternalServerError, dto.NewErrorResponse(500, fmt.Sprintf("保存触发器失败: %v", err)))
		return
	}
	if err := h.engine.PollScheduler().RegisterTrigger(trigger, pollInterval); err != nil {
		c.JSON(http.StatusInternalServerError, dto.NewErrorResponse(500, fmt.Sprintf("注册轮询失败: %v", err)))
		return
	}

	c.JSON(http.StatusOK, dto.NewSuccessResponse(dto.TriggerSummary{
		ID:                   trigger.ID,
		WorkflowID:           trigger.WorkflowID,
		IntegrationTriggerID: trigger.IntegrationTriggerID,
	}))
}

// Check 立即执行一次触发器轮询
// POST /api/v1/triggers/:id/check
func (h *TriggerHandler) Check(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")

	trigger, err := h.engine.Repo().GetTrigger(ctx, id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, dto.NewErrorResponse(500, fmt.Sprintf("查询触发器失败: %v", err)))
		return
	}
	if trigger == nil {
		c.JSON(http.StatusNotFound, dto.NewErrorResponse(404, "触发器不存在"))
		return
	}

	if err := h.engine.RunWorkflowTriggerCheck(ctx, trigger); err != nil {
		c.JSON(http.StatusInternalServerError, dto.NewErrorResponse(500, fmt.Sprintf("触发器轮询失败: %v", err)))
		return
	}
	c.JSON(http.StatusOK, dto.NewSuccessResponse(map[string]string{"status": "checked"}))
}
