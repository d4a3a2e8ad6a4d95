// Package handler 实现API路由的处理器
package handler

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/LENAX/flow-engine/pkg/api/dto"
	"github.com/LENAX/flow-engine/pkg/core/engine"
	"github.com/LENAX/flow-engine/pkg/core/workflow"
)

// WorkflowHandler Workflow API处理器
type WorkflowHandler struct {
	engine *engine.Engine
}

// NewWorkflowHandler 创建WorkflowHandler
func NewWorkflowHandler(eng *engine.Engine) *WorkflowHandler {
	return &WorkflowHandler{engine: eng}
}

// List 列出所有Workflow
// GET /api/v1/workflows
func (h *WorkflowHandler) List(c *gin.Context) {
	ctx := c.Request.Context()
	repo := h.engine.Repo()

	workflows, err := repo.ListWorkflows(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, dto.NewErrorResponse(500, fmt.Sprintf("查询Workflow失败: %v", err)))
		return
	}

	items := make([]dto.WorkflowSummary, 0, len(workflows))
	for _, wf := range workflows {
		actions, err := repo.GetWorkflowActions(ctx, wf.ID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, dto.NewErrorResponse(500, fmt.Sprintf("查询Action失败: %v", err)))
			return
		}
		items = append(items, workflowSummary(wf, len(actions)))
	}

	c.JSON(http.StatusOK, dto.NewSuccessResponse(dto.ListResponse[dto.WorkflowSummary]{
		Total:   len(items),
		Items:   items,
		HasMore: false,
	}))
}

// Get 获取Workflow详情
// GET /api/v1/workflows/:id
func (h *WorkflowHandler) Get(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")
	repo := h.engine.Repo()

	wf, err := repo.GetWorkflow(ctx, id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, dto.NewErrorResponse(500, fmt.Sprintf("查询Workflow失败: %v", err)))
		return
	}
	if wf == nil {
		c.JSON(http.StatusNotFound, dto.NewErrorResponse(404, "Workflow不存在"))
		return
	}

	actions, err := repo.GetWorkflowActions(ctx, id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, dto.NewErrorResponse(500, fmt.Sprintf("查询Action失败: %v", err)))
		return
	}

	actionItems := make([]dto.ActionSummary, 0, len(actions))
	for _, action := range actions {
		edges := make([]dto.EdgeSummary, 0, len(action.NextActions))
		for _, edge := range action.NextActions {
			edges = append(edges, dto.EdgeSummary{
				TargetActionID: edge.TargetActionID,
				Condition:      edge.Condition,
			})
		}
		actionItems = append(actionItems, dto.ActionSummary{
			ID:                  action.ID,
			Name:                action.Name,
			IntegrationActionID: action.IntegrationActionID,
			IsRootAction:        action.IsRootAction,
			Inputs:              action.Inputs,
			NextActions:         edges,
		})
	}

	c.JSON(http.StatusOK, dto.NewSuccessResponse(dto.WorkflowDetail{
		WorkflowSummary: workflowSummary(wf, len(actions)),
		Actions:         actionItems,
	}))
}

// Save 保存Workflow及其Action图
// POST /api/v1/workflows
// 保存前做出边引用校验与循环检测，非法图直接拒绝
func (h *WorkflowHandler) Save(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.SaveWorkflowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.NewErrorResponse(400, fmt.Sprintf("请求参数非法: %v", err)))
		return
	}

	wf := workflow.NewWorkflow(req.Name, req.OwnerID)
	if req.ID != "" {
		wf.ID = req.ID
	}
	wf.OnFailureWorkflowID = req.OnFailureWorkflowID
	wf.IsTemplate = req.IsTemplate

	actions := make([]*workflow.WorkflowAction, 0, len(req.Actions))
	for _, a := range req.Actions {
		action := workflow.NewWorkflowAction(a.Name, wf.ID, a.IntegrationActionID)
		if a.ID != "" {
			action.ID = a.ID
		}
		action.OwnerID = req.OwnerID
		action.CredentialID = a.CredentialID
		action.IsRootAction = a.IsRootAction
		if a.Inputs != nil {
			action.Inputs = a.Inputs
		}
		for _, edge := range a.NextActions {
			action.NextActions = append(action.NextActions, workflow.ActionEdge{
				TargetActionID: edge.TargetActionID,
				Condition:      edge.Condition,
			})
		}
		actions = append(actions, action)
	}

	if err := h.engine.Repo().SaveWorkflow(ctx, wf, actions); err != nil {
		c.JSON(http.StatusBadRequest, dto.NewErrorResponse(400, fmt.Sprintf("保存Workflow失败: %v", err)))
		return
	}

	c.JSON(http.StatusOK, dto.NewSuccessResponse(workflowSummary(wf, len(actions))))
}

// Execute 手工启动一次Workflow运行
// POST /api/v1/workflows/:id/execute
// 运行在后台执行，立即返回运行实例ID
func (h *WorkflowHandler) Execute(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")
	repo := h.engine.Repo()

	var req dto.ExecuteWorkflowRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		c.JSON(http.StatusBadRequest, dto.NewErrorResponse(400, fmt.Sprintf("请求参数非法: %v", err)))
		return
	}

	wf, err := repo.GetWorkflow(ctx, id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, dto.NewErrorResponse(500, fmt.Sprintf("查询Workflow失败: %v", err)))
		return
	}
	if wf == nil {
		c.JSON(http.StatusNotFound, dto.NewErrorResponse(404, "Workflow不存在"))
		return
	}

	run := workflow.NewWorkflowRun(id, workflow.StartedByManual)
	if err := repo.SaveRun(ctx, run); err != nil {
		c.JSON(http.StatusInternalServerError, dto.NewErrorResponse(500, fmt.Sprintf("创建运行实例失败: %v", err)))
		return
	}

	seed := workflow.OutputBag{}
	for key, outputs := range req.Seed {
		seed[key] = outputs
	}
	go func() {
		if err := h.engine.StartWorkflowRun(h.engine.Context(), id, seed, run); err != nil {
			log.Printf("❌ [API] 手工运行失败: RunID=%s, Error=%v", run.ID, err)
		}
	}()

	c.JSON(http.StatusAccepted, dto.NewSuccessResponse(dto.ExecuteResponse{
		RunID:   run.ID,
		Message: "运行已启动",
	}))
}

// workflowSummary 构建Workflow摘要
func workflowSummary(wf *workflow.Workflow, actionCount int) dto.WorkflowSummary {
	return dto.WorkflowSummary{
		ID:                  wf.ID,
		Name:                wf.Name,
		OwnerID:             wf.OwnerID,
		Status:              string(wf.Status),
		OnFailureWorkflowID: wf.OnFailureWorkflowID,
		IsTemplate:          wf.IsTemplate,
		ActionCount:         actionCount,
		CreatedAt:           wf.CreateTime,
	}
}
