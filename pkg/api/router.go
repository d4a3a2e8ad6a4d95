// Package api 提供引擎的HTTP API服务
package api

import (
	"github.com/gin-gonic/gin"

	"github.com/LENAX/flow-engine/pkg/api/handler"
	"github.com/LENAX/flow-engine/pkg/api/middleware"
	"github.com/LENAX/flow-engine/pkg/core/engine"
)

// SetupRouter 设置路由
func SetupRouter(eng *engine.Engine, version string, enableWebSocket bool) *gin.Engine {
	// 设置gin模式
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	// 全局中间件
	router.Use(middleware.Recovery())
	router.Use(middleware.Logger())
	router.Use(middleware.CORS())

	// 创建handlers
	workflowHandler := handler.NewWorkflowHandler(eng)
	runHandler := handler.NewRunHandler(eng)
	triggerHandler := handler.NewTriggerHandler(eng)
	healthHandler := handler.NewHealthHandler(eng, version)

	// 健康检查路由（不带前缀）
	router.GET("/health", healthHandler.Health)
	router.GET("/ready", healthHandler.Ready)

	// API v1 路由组
	v1 := router.Group("/api/v1")
	{
		// Workflow路由
		workflows := v1.Group("/workflows")
		{
			workflows.GET("", workflowHandler.List)
			workflows.POST("", workflowHandler.Save)
			workflows.GET("/:id", workflowHandler.Get)
			workflows.POST("/:id/execute", workflowHandler.Execute)
			workflows.GET("/:id/runs", runHandler.ListByWorkflow)
		}

		// 运行实例路由
		runs := v1.Group("/runs")
		{
			runs.GET("/:id", runHandler.Get)
		}

		// 触发器路由
		triggers := v1.Group("/triggers")
		{
			triggers.GET("", triggerHandler.List)
			triggers.POST("", triggerHandler.Save)
			triggers.POST("/:id/check", triggerHandler.Check)
		}

		// 事件流路由
		if enableWebSocket {
			eventHandler := handler.NewEventStreamHandler(eng)
			v1.GET("/events/stream", eventHandler.Stream)
		}
	}

	return router
}
