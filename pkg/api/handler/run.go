package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/LENAX/flow-engine/pkg/api/dto"
	"github.com/LENAX/flow-engine/pkg/core/engine"
	"github.com/LENAX/flow-engine/pkg/core/workflow"
)

// RunHandler 运行实例API处理器
type RunHandler struct {
	engine *engine.Engine
}

// NewRunHandler 创建RunHandler
func NewRunHandler(eng *engine.Engine) *RunHandler {
	return &RunHandler{engine: eng}
}

// ListByWorkflow 列出Workflow的运行实例
// GET /api/v1/workflows/:id/runs
func (h *RunHandler) ListByWorkflow(c *gin.Context) {
	ctx := c.Request.Context()
	workflowID := c.Param("id")

	runs, err := h.engine.Repo().ListRuns(ctx, workflowID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, dto.NewErrorResponse(500, fmt.Sprintf("查询运行实例失败: %v", err)))
		return
	}

	items := make([]dto.RunSummary, 0, len(runs))
	for _, run := range runs {
		items = append(items, runSummary(run))
	}
	c.JSON(http.StatusOK, dto.NewSuccessResponse(dto.ListResponse[dto.RunSummary]{
		Total:   len(items),
		Items:   items,
		HasMore: false,
	}))
}

// Get 获取运行实例详情（含每个节点的执行记录）
// GET /api/v1/runs/:id
func (h *RunHandler) Get(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")
	repo := h.engine.Repo()

	run, err := repo.GetRun(ctx, id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, dto.NewErrorResponse(500, fmt.Sprintf("查询运行实例失败: %v", err)))
		return
	}
	if run == nil {
		c.JSON(http.StatusNotFound, dto.NewErrorResponse(404, "运行实例不存在"))
		return
	}

	runActions, err := repo.ListRunActions(ctx, id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, dto.NewErrorResponse(500, fmt.Sprintf("查询节点执行记录失败: %v", err)))
		return
	}

	actions := make([]dto.RunActionDetail, 0, len(runActions))
	for _, ra := range runActions {
		detail := dto.RunActionDetail{
			ID:          ra.ID,
			ActionID:    ra.ActionID,
			Status:      string(ra.Status),
			StartedAt:   ra.StartTime,
			ErrorMsg:    ra.ErrorMsg,
			ErrorDetail: ra.ErrorDetail,
		}
		if !ra.EndTime.IsZero() {
			end := ra.EndTime
			detail.FinishedAt = &end
		}
		actions = append(actions, detail)
	}

	c.JSON(http.StatusOK, dto.NewSuccessResponse(dto.RunDetail{
		RunSummary:         runSummary(run),
		TriggerError:       run.TriggerRun.Error,
		TriggerErrorDetail: run.TriggerRun.ErrorDetail,
		TriggerItemIDs:     run.TriggerRun.ItemIDs,
		Actions:            actions,
	}))
}

// runSummary 构建运行实例摘要
func runSummary(run *workflow.WorkflowRun) dto.RunSummary {
	summary := dto.RunSummary{
		ID:            run.ID,
		WorkflowID:    run.WorkflowID,
		Status:        string(run.Status),
		StartedBy:     string(run.StartedBy),
		TriggerStatus: string(run.TriggerRun.Status),
		StartedAt:     run.StartTime,
	}
	if !run.EndTime.IsZero() {
		end := run.EndTime
		summary.FinishedAt = &end
	}
	return summary
}

// formatDuration 运行时长的展示格式
func formatDuration(d time.Duration) string {
	return d.Round(time.Second).String()
}
