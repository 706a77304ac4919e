// internal/client/api_client.go
package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	apperrors "github.com/Corphon/FilmForgeAI/internal/errors"
	"github.com/Corphon/FilmForgeAI/internal/models"
)

// APIClient 访问服务端REST接口的客户端
type APIClient struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewAPIClient 创建API客户端
// 图像生成可能耗时较长，超时给得比较宽
func NewAPIClient(baseURL string) *APIClient {
	return &APIClient{
		BaseURL: baseURL,
		HTTPClient: &http.Client{
			Timeout: 180 * time.Second,
		},
	}
}

// SynopsisOptions 生成梗概时可覆盖的概念要素
type SynopsisOptions struct {
	Logline   string `json:"logline"`
	Framework string `json:"framework"`
	Theme     string `json:"theme"`
	Conflict  string `json:"conflict"`
}

// SceneDraftOptions 起草场景的参数
type SceneDraftOptions struct {
	SceneHeading     string `json:"scene_heading"`
	SceneDescription string `json:"scene_description"`
	CharacterContext string `json:"character_context"`
	Tone             string `json:"tone"`
}

// Visuals 两阶段图文生成的结果
type Visuals struct {
	IdeasMD    string               `json:"text_ideas"`
	ImageParts []models.ContentPart `json:"image_parts"`
}

// apiEnvelope 服务端统一响应格式
type apiEnvelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Details string `json:"details"`
	} `json:"error"`
	Message string `json:"message"`
}

// generatedText 文本生成操作的响应数据
type generatedText struct {
	Text string `json:"text"`
}

// doRequest 发送请求并解包统一响应格式
// out 为 nil 时丢弃响应数据
func (c *APIClient) doRequest(method, path string, body interface{}, out interface{}) error {
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("序列化请求失败: %w", err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, c.BaseURL+path, reader)
	if err != nil {
		return fmt.Errorf("构建请求失败: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return apperrors.NewIOError("request failed", err)
	}
	defer resp.Body.Close()

	var envelope apiEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return apperrors.NewIOError("failed to decode response", err)
	}

	if !envelope.Success {
		if envelope.Error != nil {
			return codeToError(envelope.Error.Code, envelope.Error.Message)
		}
		return fmt.Errorf("请求失败，状态码 %d", resp.StatusCode)
	}

	if out != nil && len(envelope.Data) > 0 {
		if err := json.Unmarshal(envelope.Data, out); err != nil {
			return apperrors.NewIOError("failed to decode response data", err)
		}
	}
	return nil
}

// codeToError 把服务端错误码还原为本地错误类型
func codeToError(code, message string) error {
	switch code {
	case "NOT_FOUND":
		return apperrors.NewNotFoundError(message, nil)
	case "ALREADY_EXISTS":
		return apperrors.NewAlreadyExistsError(message, nil)
	case "INVALID_NAME":
		return apperrors.NewInvalidNameError(message, nil)
	case "INVALID_STATE":
		return apperrors.NewInvalidStateError(message, nil)
	case "PRECONDITION_FAILED":
		return apperrors.NewPreconditionError(message, nil)
	case "CORRUPT_STATE":
		return apperrors.NewCorruptError(message, nil)
	case "GENERATION_FAILED":
		return apperrors.NewGenerationError(message, nil)
	case "IO_ERROR":
		return apperrors.NewIOError(message, nil)
	default:
		return fmt.Errorf("%s: %s", code, message)
	}
}

func projectPath(name, suffix string) string {
	return "/api/projects/" + url.PathEscape(name) + suffix
}

// ListProjects 列出所有项目名称
func (c *APIClient) ListProjects() ([]string, error) {
	var data struct {
		Projects []string `json:"projects"`
	}
	if err := c.doRequest(http.MethodGet, "/api/projects", nil, &data); err != nil {
		return nil, err
	}
	return data.Projects, nil
}

// CreateProject 创建新项目并返回初始状态
func (c *APIClient) CreateProject(name string) (*models.ProjectState, error) {
	var state models.ProjectState
	body := map[string]string{"project_name": name}
	if err := c.doRequest(http.MethodPost, "/api/projects", body, &state); err != nil {
		return nil, err
	}
	return &state, nil
}

// LoadProject 加载项目完整状态
func (c *APIClient) LoadProject(name string) (*models.ProjectState, error) {
	var state models.ProjectState
	if err := c.doRequest(http.MethodGet, projectPath(name, ""), nil, &state); err != nil {
		return nil, err
	}
	return &state, nil
}

// SaveProject 保存完整项目状态，返回落盘后的文档
func (c *APIClient) SaveProject(state *models.ProjectState) (*models.ProjectState, error) {
	var saved models.ProjectState
	if err := c.doRequest(http.MethodPut, projectPath(state.ProjectName, ""), state, &saved); err != nil {
		return nil, err
	}
	return &saved, nil
}

// DeleteProject 删除项目，项目不存在时返回 false
func (c *APIClient) DeleteProject(name string) (bool, error) {
	var data struct {
		Deleted bool `json:"deleted"`
	}
	if err := c.doRequest(http.MethodDelete, projectPath(name, ""), nil, &data); err != nil {
		return false, err
	}
	return data.Deleted, nil
}

// GenerateConcepts 生成初始概念清单
func (c *APIClient) GenerateConcepts(name, seedIdea string) (string, error) {
	var data generatedText
	body := map[string]string{"seed_idea": seedIdea}
	err := c.doRequest(http.MethodPost, projectPath(name, "/concept/generate-concepts"), body, &data)
	return data.Text, err
}

// GenerateSynopsis 生成结构化梗概
func (c *APIClient) GenerateSynopsis(name string, opts SynopsisOptions) (string, error) {
	var data generatedText
	err := c.doRequest(http.MethodPost, projectPath(name, "/concept/generate-synopsis"), opts, &data)
	return data.Text, err
}

// ListCharacters 获取项目全部角色
func (c *APIClient) ListCharacters(name string) (map[string]models.CharacterData, error) {
	var characters map[string]models.CharacterData
	if err := c.doRequest(http.MethodGet, projectPath(name, "/characters"), nil, &characters); err != nil {
		return nil, err
	}
	return characters, nil
}

// SuggestProfile 为角色定位获取档案建议
func (c *APIClient) SuggestProfile(name, role string) (string, error) {
	var data generatedText
	body := map[string]string{"role": role}
	err := c.doRequest(http.MethodPost, projectPath(name, "/characters/suggest-profile"), body, &data)
	return data.Text, err
}

// SaveCharacter 保存或更新角色档案
func (c *APIClient) SaveCharacter(name, charName, role string, profile models.CharacterProfile) (*models.CharacterData, error) {
	var character models.CharacterData
	body := map[string]interface{}{"role": role, "profile": profile}
	path := projectPath(name, "/characters/"+url.PathEscape(charName))
	if err := c.doRequest(http.MethodPut, path, body, &character); err != nil {
		return nil, err
	}
	return &character, nil
}

// GenerateArc 生成角色弧线
func (c *APIClient) GenerateArc(name, charName string) (string, error) {
	var data generatedText
	path := projectPath(name, "/characters/"+url.PathEscape(charName)+"/generate-arc")
	err := c.doRequest(http.MethodPost, path, nil, &data)
	return data.Text, err
}

// SuggestRelationships 生成角色关系建议
func (c *APIClient) SuggestRelationships(name, charName string) (string, error) {
	var data generatedText
	path := projectPath(name, "/characters/"+url.PathEscape(charName)+"/suggest-relationships")
	err := c.doRequest(http.MethodPost, path, nil, &data)
	return data.Text, err
}

// GenerateOutline 生成分场大纲
func (c *APIClient) GenerateOutline(name string) (string, error) {
	var data generatedText
	err := c.doRequest(http.MethodPost, projectPath(name, "/script/generate-outline"), nil, &data)
	return data.Text, err
}

// DraftScene 起草单个场景
func (c *APIClient) DraftScene(name string, opts SceneDraftOptions) (string, error) {
	var data generatedText
	err := c.doRequest(http.MethodPost, projectPath(name, "/script/draft-scene"), opts, &data)
	return data.Text, err
}

// UpdateFullScript 整体替换剧本全文
func (c *APIClient) UpdateFullScript(name, content string) error {
	body := map[string]string{"full_script_content": content}
	return c.doRequest(http.MethodPut, projectPath(name, "/script/full-script"), body, nil)
}

// RefineText 按指令润色文本片段
func (c *APIClient) RefineText(name, text, instruction string) (string, error) {
	var data generatedText
	body := map[string]string{"text_to_refine": text, "instruction": instruction}
	err := c.doRequest(http.MethodPost, projectPath(name, "/script/refine-text"), body, &data)
	return data.Text, err
}

// AnalyzeIssues 分析剧本末尾片段的潜在问题
func (c *APIClient) AnalyzeIssues(name string) (string, error) {
	var data generatedText
	err := c.doRequest(http.MethodPost, projectPath(name, "/script/analyze-issues"), nil, &data)
	return data.Text, err
}

// GenerateMoodboard 两阶段生成情绪板
func (c *APIClient) GenerateMoodboard(name string) (*Visuals, error) {
	var visuals Visuals
	path := projectPath(name, "/preproduction/generate-moodboard-ideas")
	if err := c.doRequest(http.MethodPost, path, nil, &visuals); err != nil {
		return nil, err
	}
	return &visuals, nil
}

// GenerateStoryboard 两阶段生成分镜
func (c *APIClient) GenerateStoryboard(name, sceneText string) (*Visuals, error) {
	var visuals Visuals
	body := map[string]string{"scene_text": sceneText}
	path := projectPath(name, "/preproduction/generate-storyboard-ideas")
	if err := c.doRequest(http.MethodPost, path, body, &visuals); err != nil {
		return nil, err
	}
	return &visuals, nil
}

// GenerateComicImage 与项目无关的漫画风格图像生成
func (c *APIClient) GenerateComicImage(prompt string) ([]models.ContentPart, error) {
	var data struct {
		ImageParts []models.ContentPart `json:"image_parts"`
	}
	body := map[string]string{"prompt": prompt}
	if err := c.doRequest(http.MethodPost, "/api/generate/comic-image", body, &data); err != nil {
		return nil, err
	}
	return data.ImageParts, nil
}
