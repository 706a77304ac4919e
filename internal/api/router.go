// internal/api/router.go
package api

import (
	"fmt"

	"github.com/gin-gonic/gin"

	"github.com/Corphon/FilmForgeAI/internal/config"
	"github.com/Corphon/FilmForgeAI/internal/di"
	"github.com/Corphon/FilmForgeAI/internal/services"
)

// SetupRouter 配置HTTP路由
func SetupRouter() (*gin.Engine, error) {
	cfg := config.GetCurrentConfig()

	// 获取依赖注入容器
	container := di.GetContainer()

	// 只从容器获取服务，不再创建新实例
	projectService, ok := container.Get("project").(*services.ProjectService)
	if !ok {
		return nil, fmt.Errorf("项目服务未正确初始化")
	}

	filmService, ok := container.Get("film").(*services.FilmService)
	if !ok {
		return nil, fmt.Errorf("生命周期服务未正确初始化")
	}

	llmService, ok := container.Get("llm").(*services.LLMService)
	if !ok {
		return nil, fmt.Errorf("LLM服务未正确初始化")
	}

	imageService, ok := container.Get("image").(*services.ImageService)
	if !ok {
		return nil, fmt.Errorf("图像服务未正确初始化")
	}

	handler := NewHandler(projectService, filmService, llmService, imageService)

	if !cfg.DebugMode {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(loggingMiddleware())
	r.Use(requestIDMiddleware())
	r.Use(corsMiddleware())

	// ===============================
	// API路由
	// ===============================
	apiGroup := r.Group("/api")
	{
		apiGroup.GET("/health", handler.Health)

		// 提供者设置
		apiGroup.GET("/settings", handler.GetSettings)
		apiGroup.PUT("/settings/llm", handler.UpdateLLMSettings)

		// 项目管理
		apiGroup.GET("/projects", handler.ListProjects)
		apiGroup.POST("/projects", handler.CreateProject)
		apiGroup.GET("/projects/:name", handler.LoadProject)
		apiGroup.PUT("/projects/:name", handler.SaveProject)
		apiGroup.DELETE("/projects/:name", handler.DeleteProject)

		// 概念开发
		apiGroup.POST("/projects/:name/concept/generate-concepts", handler.GenerateConcepts)
		apiGroup.POST("/projects/:name/concept/generate-synopsis", handler.GenerateSynopsis)

		// 角色开发
		apiGroup.GET("/projects/:name/characters", handler.ListCharacters)
		apiGroup.POST("/projects/:name/characters/suggest-profile", handler.SuggestProfile)
		apiGroup.PUT("/projects/:name/characters/:char", handler.SaveCharacter)
		apiGroup.POST("/projects/:name/characters/:char/generate-arc", handler.GenerateArc)
		apiGroup.POST("/projects/:name/characters/:char/suggest-relationships", handler.SuggestRelationships)

		// 剧本创作
		apiGroup.POST("/projects/:name/script/generate-outline", handler.GenerateOutline)
		apiGroup.POST("/projects/:name/script/draft-scene", handler.DraftScene)
		apiGroup.PUT("/projects/:name/script/full-script", handler.UpdateFullScript)
		apiGroup.POST("/projects/:name/script/refine-text", handler.RefineText)
		apiGroup.POST("/projects/:name/script/analyze-issues", handler.AnalyzeIssues)

		// 前期制作
		apiGroup.POST("/projects/:name/preproduction/generate-moodboard-ideas", handler.GenerateMoodboard)
		apiGroup.POST("/projects/:name/preproduction/generate-storyboard-ideas", handler.GenerateStoryboard)

		// 独立图像生成
		apiGroup.POST("/generate/comic-image", handler.GenerateComicImage)
	}

	// WebSocket项目更新订阅
	r.GET("/ws/projects/:name", handler.ProjectWebSocket)

	return r, nil
}
