// internal/api/handlers.go
package api

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Corphon/FilmForgeAI/internal/config"
	"github.com/Corphon/FilmForgeAI/internal/llm"
	"github.com/Corphon/FilmForgeAI/internal/models"
	"github.com/Corphon/FilmForgeAI/internal/services"
)

// Handler API处理器，聚合各个服务
type Handler struct {
	Projects *services.ProjectService
	Film     *services.FilmService
	LLM      *services.LLMService
	Images   *services.ImageService
	Response *ResponseHelper
	Hub      *ProjectHub
}

// NewHandler 创建API处理器
func NewHandler(projects *services.ProjectService, film *services.FilmService,
	llm *services.LLMService, images *services.ImageService) *Handler {
	return &Handler{
		Projects: projects,
		Film:     film,
		LLM:      llm,
		Images:   images,
		Response: NewResponseHelper(),
		Hub:      NewProjectHub(),
	}
}

// APIResponse 标准API响应格式
type APIResponse struct {
	Success   bool        `json:"success"`
	Data      interface{} `json:"data,omitempty"`
	Error     *APIError   `json:"error,omitempty"`
	Message   string      `json:"message,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	RequestID string      `json:"request_id,omitempty"` // 用于调试和追踪
}

// APIError 标准错误格式
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// CreateProjectRequest 创建项目的请求结构
type CreateProjectRequest struct {
	ProjectName string `json:"project_name"`
}

// GenerateConceptsRequest 生成初始概念的请求结构
type GenerateConceptsRequest struct {
	SeedIdea string `json:"seed_idea"`
}

// SuggestProfileRequest 角色档案建议的请求结构
type SuggestProfileRequest struct {
	Role string `json:"role"`
}

// SaveCharacterRequest 保存角色的请求结构
type SaveCharacterRequest struct {
	Role    string                  `json:"role"`
	Profile models.CharacterProfile `json:"profile"`
}

// UpdateScriptRequest 更新剧本全文的请求结构
type UpdateScriptRequest struct {
	FullScriptContent string `json:"full_script_content"`
}

// RefineTextRequest 润色文本的请求结构
type RefineTextRequest struct {
	TextToRefine string `json:"text_to_refine"`
	Instruction  string `json:"instruction"`
}

// GenerateStoryboardRequest 生成分镜的请求结构
type GenerateStoryboardRequest struct {
	SceneText string `json:"scene_text"`
}

// ComicImageRequest 漫画图像生成的请求结构
type ComicImageRequest struct {
	Prompt string `json:"prompt"`
}

// UpdateLLMSettingsRequest 切换文本生成提供者的请求结构
type UpdateLLMSettingsRequest struct {
	Provider string            `json:"provider"`
	Config   map[string]string `json:"config"`
}

// GeneratedText 文本生成操作的响应数据
type GeneratedText struct {
	Text string `json:"text"`
}

// ------------------------------------------------
// 通用

// Health 服务健康状态
func (h *Handler) Health(c *gin.Context) {
	h.Response.Success(c, gin.H{
		"status":       "ok",
		"llm_provider": h.LLM.GetProviderName(),
		"llm_ready":    h.LLM.IsReady(),
		"llm_state":    h.LLM.GetReadyState(),
		"image_ready":  h.Images.IsReady(),
		"image_state":  h.Images.GetReadyState(),
	})
}

// GetSettings 返回当前生成提供者设置与可选提供者列表
// 不回传任何密钥
func (h *Handler) GetSettings(c *gin.Context) {
	cfg := config.GetCurrentConfig()
	h.Response.Success(c, gin.H{
		"llm_provider":        cfg.LLMProvider,
		"llm_ready":           h.LLM.IsReady(),
		"image_provider":      cfg.ImageProvider,
		"image_ready":         h.Images.IsReady(),
		"available_providers": llm.ListProviders(),
	})
}

// UpdateLLMSettings 切换文本生成提供者并持久化配置
func (h *Handler) UpdateLLMSettings(c *gin.Context) {
	var req UpdateLLMSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Response.BadRequest(c, "无效的请求格式", err.Error())
		return
	}
	if req.Provider == "" {
		h.Response.BadRequest(c, "提供者名称不能为空")
		return
	}

	if err := h.LLM.UpdateProvider(req.Provider, req.Config); err != nil {
		h.Response.InternalError(c, "切换文本生成提供者失败", err.Error())
		return
	}
	if err := config.UpdateLLMConfig(req.Provider, req.Config); err != nil {
		h.Response.InternalError(c, "保存提供者配置失败", err.Error())
		return
	}

	h.Response.Success(c, gin.H{
		"llm_provider": req.Provider,
		"llm_ready":    h.LLM.IsReady(),
	})
}

// ------------------------------------------------
// 项目管理

// ListProjects 列出所有项目
func (h *Handler) ListProjects(c *gin.Context) {
	names, err := h.Projects.ListProjects()
	if err != nil {
		h.Response.HandleServiceError(c, err)
		return
	}
	h.Response.Success(c, gin.H{"projects": names})
}

// CreateProject 创建新项目
func (h *Handler) CreateProject(c *gin.Context) {
	var req CreateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Response.BadRequest(c, "无效的请求格式", err.Error())
		return
	}

	state, err := h.Projects.CreateProject(req.ProjectName)
	if err != nil {
		h.Response.HandleServiceError(c, err)
		return
	}
	h.Response.Created(c, state)
}

// LoadProject 加载项目状态
func (h *Handler) LoadProject(c *gin.Context) {
	state, err := h.Projects.LoadProject(c.Param("name"))
	if err != nil {
		h.Response.HandleServiceError(c, err)
		return
	}
	h.Response.Success(c, state)
}

// SaveProject 保存客户端提交的完整项目状态
func (h *Handler) SaveProject(c *gin.Context) {
	var state models.ProjectState
	if err := c.ShouldBindJSON(&state); err != nil {
		h.Response.BadRequest(c, "无效的请求格式", err.Error())
		return
	}

	// 路径中的项目名优先于请求体
	state.SetName(c.Param("name"))

	if err := h.Projects.SaveProject(&state); err != nil {
		h.Response.HandleServiceError(c, err)
		return
	}

	h.Hub.NotifyProjectUpdated(state.ProjectName, "save")
	h.Response.Success(c, state)
}

// DeleteProject 删除项目
func (h *Handler) DeleteProject(c *gin.Context) {
	name := c.Param("name")
	deleted, err := h.Projects.DeleteProject(name)
	if err != nil {
		h.Response.HandleServiceError(c, err)
		return
	}

	if deleted {
		h.Hub.NotifyProjectUpdated(name, "delete")
	}
	h.Response.Success(c, gin.H{"deleted": deleted})
}

// ------------------------------------------------
// 概念开发

// GenerateConcepts 生成初始概念清单
func (h *Handler) GenerateConcepts(c *gin.Context) {
	var req GenerateConceptsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Response.BadRequest(c, "无效的请求格式", err.Error())
		return
	}

	name := c.Param("name")
	result, err := h.Film.GenerateConcepts(c.Request.Context(), name, req.SeedIdea)
	if err != nil {
		h.Response.HandleServiceError(c, err)
		return
	}

	h.Hub.NotifyProjectUpdated(name, "generate-concepts")
	h.Response.Success(c, GeneratedText{Text: result})
}

// GenerateSynopsis 生成结构化梗概
func (h *Handler) GenerateSynopsis(c *gin.Context) {
	var req services.SynopsisRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Response.BadRequest(c, "无效的请求格式", err.Error())
		return
	}

	name := c.Param("name")
	result, err := h.Film.GenerateSynopsis(c.Request.Context(), name, req)
	if err != nil {
		h.Response.HandleServiceError(c, err)
		return
	}

	h.Hub.NotifyProjectUpdated(name, "generate-synopsis")
	h.Response.Success(c, GeneratedText{Text: result})
}

// ------------------------------------------------
// 角色开发

// ListCharacters 获取项目全部角色
func (h *Handler) ListCharacters(c *gin.Context) {
	characters, err := h.Film.ListCharacters(c.Param("name"))
	if err != nil {
		h.Response.HandleServiceError(c, err)
		return
	}
	h.Response.Success(c, characters)
}

// SuggestProfile 为角色定位生成档案建议（不落盘）
func (h *Handler) SuggestProfile(c *gin.Context) {
	var req SuggestProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Response.BadRequest(c, "无效的请求格式", err.Error())
		return
	}

	result, err := h.Film.SuggestProfile(c.Request.Context(), c.Param("name"), req.Role)
	if err != nil {
		h.Response.HandleServiceError(c, err)
		return
	}
	h.Response.Success(c, GeneratedText{Text: result})
}

// SaveCharacter 保存或更新角色档案
func (h *Handler) SaveCharacter(c *gin.Context) {
	var req SaveCharacterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Response.BadRequest(c, "无效的请求格式", err.Error())
		return
	}

	name := c.Param("name")
	character, err := h.Film.SaveCharacter(name, c.Param("char"), req.Role, req.Profile)
	if err != nil {
		h.Response.HandleServiceError(c, err)
		return
	}

	h.Hub.NotifyProjectUpdated(name, "save-character")
	h.Response.Success(c, character)
}

// GenerateArc 生成角色弧线
func (h *Handler) GenerateArc(c *gin.Context) {
	name := c.Param("name")
	result, err := h.Film.GenerateArc(c.Request.Context(), name, c.Param("char"))
	if err != nil {
		h.Response.HandleServiceError(c, err)
		return
	}

	h.Hub.NotifyProjectUpdated(name, "generate-arc")
	h.Response.Success(c, GeneratedText{Text: result})
}

// SuggestRelationships 生成角色关系建议
func (h *Handler) SuggestRelationships(c *gin.Context) {
	name := c.Param("name")
	result, err := h.Film.SuggestRelationships(c.Request.Context(), name, c.Param("char"))
	if err != nil {
		h.Response.HandleServiceError(c, err)
		return
	}

	h.Hub.NotifyProjectUpdated(name, "suggest-relationships")
	h.Response.Success(c, GeneratedText{Text: result})
}

// ------------------------------------------------
// 剧本创作

// GenerateOutline 生成分场大纲
func (h *Handler) GenerateOutline(c *gin.Context) {
	name := c.Param("name")
	result, err := h.Film.GenerateOutline(c.Request.Context(), name)
	if err != nil {
		h.Response.HandleServiceError(c, err)
		return
	}

	h.Hub.NotifyProjectUpdated(name, "generate-outline")
	h.Response.Success(c, GeneratedText{Text: result})
}

// DraftScene 起草单个场景（不落盘）
func (h *Handler) DraftScene(c *gin.Context) {
	var req services.SceneRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Response.BadRequest(c, "无效的请求格式", err.Error())
		return
	}

	result, err := h.Film.DraftScene(c.Request.Context(), c.Param("name"), req)
	if err != nil {
		h.Response.HandleServiceError(c, err)
		return
	}
	h.Response.Success(c, GeneratedText{Text: result})
}

// UpdateFullScript 整体替换剧本全文
func (h *Handler) UpdateFullScript(c *gin.Context) {
	var req UpdateScriptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Response.BadRequest(c, "无效的请求格式", err.Error())
		return
	}

	name := c.Param("name")
	if _, err := h.Film.UpdateFullScript(name, req.FullScriptContent); err != nil {
		h.Response.HandleServiceError(c, err)
		return
	}

	h.Hub.NotifyProjectUpdated(name, "update-full-script")
	h.Response.Success(c, nil, "剧本内容已更新")
}

// RefineText 按指令润色文本片段（不落盘）
func (h *Handler) RefineText(c *gin.Context) {
	var req RefineTextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Response.BadRequest(c, "无效的请求格式", err.Error())
		return
	}

	result, err := h.Film.RefineText(c.Request.Context(), c.Param("name"), req.TextToRefine, req.Instruction)
	if err != nil {
		h.Response.HandleServiceError(c, err)
		return
	}
	h.Response.Success(c, GeneratedText{Text: result})
}

// AnalyzeIssues 分析剧本末尾片段的潜在问题
func (h *Handler) AnalyzeIssues(c *gin.Context) {
	name := c.Param("name")
	result, err := h.Film.AnalyzeIssues(c.Request.Context(), name)
	if err != nil {
		h.Response.HandleServiceError(c, err)
		return
	}

	h.Hub.NotifyProjectUpdated(name, "analyze-issues")
	h.Response.Success(c, GeneratedText{Text: result})
}

// ------------------------------------------------
// 前期制作

// GenerateMoodboard 两阶段生成情绪板创意与图像
func (h *Handler) GenerateMoodboard(c *gin.Context) {
	name := c.Param("name")
	result, err := h.Film.GenerateMoodboard(c.Request.Context(), name)
	if err != nil {
		h.Response.HandleServiceError(c, err)
		return
	}

	h.Hub.NotifyProjectUpdated(name, "generate-moodboard")
	h.Response.Success(c, result)
}

// GenerateStoryboard 两阶段生成分镜创意与图像
func (h *Handler) GenerateStoryboard(c *gin.Context) {
	var req GenerateStoryboardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Response.BadRequest(c, "无效的请求格式", err.Error())
		return
	}

	name := c.Param("name")
	result, err := h.Film.GenerateStoryboard(c.Request.Context(), name, req.SceneText)
	if err != nil {
		h.Response.HandleServiceError(c, err)
		return
	}

	h.Hub.NotifyProjectUpdated(name, "generate-storyboard")
	h.Response.Success(c, result)
}

// GenerateComicImage 与项目无关的漫画风格图像生成
func (h *Handler) GenerateComicImage(c *gin.Context) {
	var req ComicImageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Response.BadRequest(c, "无效的请求格式", err.Error())
		return
	}

	parts, err := h.Film.GenerateComicImage(c.Request.Context(), req.Prompt)
	if err != nil {
		h.Response.HandleServiceError(c, err)
		return
	}
	h.Response.Success(c, gin.H{"image_parts": parts})
}
