// internal/services/film_service.go
package services

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/Corphon/FilmForgeAI/internal/agents"
	apperrors "github.com/Corphon/FilmForgeAI/internal/errors"
	"github.com/Corphon/FilmForgeAI/internal/models"
)

// FilmService 把存储与生成协作者组合成一个个具名操作
// 每个操作遵循同一模板：加载 -> 前置校验 -> 调用协作者 -> 写入子树 -> 保存
// 协作者失败时绝不改动已持久化的状态
type FilmService struct {
	Projects *ProjectService
	LLM      *LLMService
	Images   *ImageService

	conceptAgent   agents.ConceptAgent
	characterAgent agents.CharacterAgent
	scriptAgent    agents.ScriptAgent
}

// NewFilmService 创建生命周期控制服务
func NewFilmService(projects *ProjectService, llm *LLMService, images *ImageService) *FilmService {
	return &FilmService{
		Projects: projects,
		LLM:      llm,
		Images:   images,
	}
}

// SynopsisRequest 生成梗概的请求，空字段回退到项目状态中的已选值
type SynopsisRequest struct {
	Logline   string `json:"logline"`
	Framework string `json:"framework"`
	Theme     string `json:"theme"`
	Conflict  string `json:"conflict"`
}

// SceneRequest 起草单个场景的请求
type SceneRequest struct {
	SceneHeading     string `json:"scene_heading"`
	SceneDescription string `json:"scene_description"`
	CharacterContext string `json:"character_context"`
	Tone             string `json:"tone"`
}

// GeneratedVisuals 两阶段图文生成的结果
type GeneratedVisuals struct {
	IdeasMD    string               `json:"text_ideas"`
	ImageParts []models.ContentPart `json:"image_parts"`
}

// --- 概念开发 ---------------------------------------------------

// GenerateConcepts 根据种子创意生成初始概念清单
func (s *FilmService) GenerateConcepts(ctx context.Context, projectName, seedIdea string) (string, error) {
	state, err := s.Projects.LoadProject(projectName)
	if err != nil {
		return "", err
	}

	seedIdea = strings.TrimSpace(seedIdea)
	if seedIdea == "" {
		return "", apperrors.NewPreconditionError("seed idea must not be empty", nil)
	}

	result, err := s.LLM.CompleteText(ctx,
		s.conceptAgent.SystemPrompt(),
		s.conceptAgent.InitialConceptsPrompt(seedIdea))
	if err != nil {
		return "", err
	}

	state.Concept.SeedIdea = seedIdea
	state.Concept.GeneratedConceptsMD = result
	if err := s.Projects.SaveProject(state); err != nil {
		return "", err
	}
	return result, nil
}

// GenerateSynopsis 基于已选概念要素生成结构化梗概
// 请求值优先，缺省回退到项目状态；logline 与 theme 至少要有其一
func (s *FilmService) GenerateSynopsis(ctx context.Context, projectName string, req SynopsisRequest) (string, error) {
	state, err := s.Projects.LoadProject(projectName)
	if err != nil {
		return "", err
	}

	logline := firstNonEmpty(req.Logline, state.Concept.ChosenLogline)
	framework := firstNonEmpty(req.Framework, state.Concept.ChosenFramework)
	theme := firstNonEmpty(req.Theme, state.Concept.ChosenTheme)
	conflict := firstNonEmpty(req.Conflict, state.Concept.ChosenConflict)

	if logline == "" && theme == "" {
		return "", apperrors.NewPreconditionError(
			"at least 'logline' or 'theme' must be provided or exist in the current state", nil)
	}

	result, err := s.LLM.CompleteText(ctx,
		s.conceptAgent.SystemPrompt(),
		s.conceptAgent.SynopsisPrompt(logline, framework, theme, conflict))
	if err != nil {
		return "", err
	}

	state.Concept.ChosenLogline = logline
	state.Concept.ChosenFramework = framework
	state.Concept.ChosenTheme = theme
	state.Concept.ChosenConflict = conflict
	state.Concept.SynopsisMD = result
	state.Concept.FinalSynopsis = extractFinalSynopsis(result)

	if err := s.Projects.SaveProject(state); err != nil {
		return "", err
	}
	return result, nil
}

// extractFinalSynopsis 截掉"Potential Twists"段落，供后续生成使用
func extractFinalSynopsis(synopsis string) string {
	if idx := strings.Index(synopsis, "### Potential Twists"); idx >= 0 {
		return strings.TrimSpace(synopsis[:idx])
	}
	return synopsis
}

// --- 角色开发 ---------------------------------------------------

// ListCharacters 返回项目的全部角色
func (s *FilmService) ListCharacters(projectName string) (map[string]models.CharacterData, error) {
	state, err := s.Projects.LoadProject(projectName)
	if err != nil {
		return nil, err
	}
	return state.Characters, nil
}

// SuggestProfile 为角色定位生成档案候选项
// 仅作建议，不写入项目状态
func (s *FilmService) SuggestProfile(ctx context.Context, projectName, role string) (string, error) {
	state, err := s.Projects.LoadProject(projectName)
	if err != nil {
		return "", err
	}

	role = strings.TrimSpace(role)
	if role == "" {
		return "", apperrors.NewPreconditionError("character role must not be empty", nil)
	}

	// 种子创意兼作类型语境
	genre := state.Concept.SeedIdea
	theme := state.Concept.ChosenTheme

	return s.LLM.CompleteText(ctx,
		s.characterAgent.SystemPrompt(),
		s.characterAgent.ProfileSuggestionPrompt(role, genre, theme))
}

// SaveCharacter 保存或更新角色档案
// 角色名与定位必填；已有的弧线与关系建议保留不动
func (s *FilmService) SaveCharacter(projectName, charName, role string, profile models.CharacterProfile) (*models.CharacterData, error) {
	state, err := s.Projects.LoadProject(projectName)
	if err != nil {
		return nil, err
	}

	charName = strings.TrimSpace(charName)
	role = strings.TrimSpace(role)
	if charName == "" || role == "" {
		return nil, apperrors.NewPreconditionError("character name and role must not be empty", nil)
	}

	character := state.Characters[charName]
	character.Role = role
	character.Profile = profile
	state.Characters[charName] = character

	if err := s.Projects.SaveProject(state); err != nil {
		return nil, err
	}

	saved := state.Characters[charName]
	return &saved, nil
}

// GenerateArc 结合角色档案与叙事框架生成角色弧线
// 需要角色已存在且档案中动机与缺陷均已填写
func (s *FilmService) GenerateArc(ctx context.Context, projectName, charName string) (string, error) {
	state, err := s.Projects.LoadProject(projectName)
	if err != nil {
		return "", err
	}

	character, exists := state.Characters[charName]
	if !exists {
		return "", apperrors.NewNotFoundError(
			fmt.Sprintf("character '%s' not found", charName), nil)
	}
	if character.Profile.Motivation == "" || character.Profile.Flaw == "" {
		return "", apperrors.NewPreconditionError(
			fmt.Sprintf("character '%s' needs motivation and flaw defined before generating an arc", charName), nil)
	}

	result, err := s.LLM.CompleteText(ctx,
		s.characterAgent.SystemPrompt(),
		s.characterAgent.ArcPrompt(character.Role, character.Profile, state.Concept.ChosenFramework))
	if err != nil {
		return "", err
	}

	character.ArcDescription = result
	state.Characters[charName] = character

	if err := s.Projects.SaveProject(state); err != nil {
		return "", err
	}
	return result, nil
}

// SuggestRelationships 基于项目内其他角色的定位生成关系建议
// 没有其他角色时直接返回提示语，不调用协作者也不保存
func (s *FilmService) SuggestRelationships(ctx context.Context, projectName, charName string) (string, error) {
	state, err := s.Projects.LoadProject(projectName)
	if err != nil {
		return "", err
	}

	character, exists := state.Characters[charName]
	if !exists {
		return "", apperrors.NewNotFoundError(
			fmt.Sprintf("character '%s' not found", charName), nil)
	}

	var otherRoles []string
	for name, other := range state.Characters {
		if name != charName && other.Role != "" {
			otherRoles = append(otherRoles, other.Role)
		}
	}
	sort.Strings(otherRoles)

	if len(otherRoles) == 0 {
		return "No other characters defined to suggest relationships with.", nil
	}

	result, err := s.LLM.CompleteText(ctx,
		s.characterAgent.SystemPrompt(),
		s.characterAgent.RelationshipsPrompt(character, otherRoles))
	if err != nil {
		return "", err
	}

	character.RelationshipSuggestions = result
	state.Characters[charName] = character

	if err := s.Projects.SaveProject(state); err != nil {
		return "", err
	}
	return result, nil
}

// --- 剧本创作 ---------------------------------------------------

// GenerateOutline 从梗概（或退而求其次的 logline）生成分场大纲
func (s *FilmService) GenerateOutline(ctx context.Context, projectName string) (string, error) {
	state, err := s.Projects.LoadProject(projectName)
	if err != nil {
		return "", err
	}

	synopsis := firstNonEmpty(state.Concept.FinalSynopsis, state.Concept.ChosenLogline)
	if synopsis == "" {
		return "", apperrors.NewPreconditionError(
			"cannot generate outline without a synopsis or logline", nil)
	}

	result, err := s.LLM.CompleteText(ctx,
		s.scriptAgent.WriterSystemPrompt(),
		s.scriptAgent.OutlinePrompt(synopsis, state.Concept.ChosenFramework))
	if err != nil {
		return "", err
	}

	state.Script.OutlineMD = result
	if err := s.Projects.SaveProject(state); err != nil {
		return "", err
	}
	return result, nil
}

// DraftScene 起草单个场景
// 结果仅返回给调用方，不写入项目状态
func (s *FilmService) DraftScene(ctx context.Context, projectName string, req SceneRequest) (string, error) {
	if _, err := s.Projects.LoadProject(projectName); err != nil {
		return "", err
	}

	if strings.TrimSpace(req.SceneHeading) == "" || strings.TrimSpace(req.SceneDescription) == "" {
		return "", apperrors.NewPreconditionError("scene heading and description must not be empty", nil)
	}

	return s.LLM.CompleteText(ctx,
		s.scriptAgent.WriterSystemPrompt(),
		s.scriptAgent.DraftScenePrompt(req.SceneHeading, req.SceneDescription, req.CharacterContext, req.Tone))
}

// UpdateFullScript 整体替换剧本全文
func (s *FilmService) UpdateFullScript(projectName, content string) (*models.ProjectState, error) {
	state, err := s.Projects.LoadProject(projectName)
	if err != nil {
		return nil, err
	}

	state.Script.FullScriptContent = content
	if err := s.Projects.SaveProject(state); err != nil {
		return nil, err
	}
	return state, nil
}

// RefineText 按指令润色文本片段
// 指令含对白/语气关键词走语气润色，含精简/动作关键词走动作精简，其余走语气润色兜底
// 结果仅返回给调用方，不写入项目状态
func (s *FilmService) RefineText(ctx context.Context, projectName, text, instruction string) (string, error) {
	if _, err := s.Projects.LoadProject(projectName); err != nil {
		return "", err
	}

	if strings.TrimSpace(text) == "" || strings.TrimSpace(instruction) == "" {
		return "", apperrors.NewPreconditionError("text and instruction must not be empty", nil)
	}

	lower := strings.ToLower(instruction)
	switch {
	case containsAny(lower, "dialogue", "tense", "emotional", "funny", "serious"):
		return s.LLM.CompleteText(ctx,
			s.scriptAgent.EditorSystemPrompt(),
			s.scriptAgent.RefineDialogueTonePrompt(text, instruction))
	case containsAny(lower, "concise", "action"):
		return s.LLM.CompleteText(ctx,
			s.scriptAgent.EditorSystemPrompt(),
			s.scriptAgent.RefineActionPrompt(text))
	default:
		return s.LLM.CompleteText(ctx,
			s.scriptAgent.EditorSystemPrompt(),
			s.scriptAgent.RefineDialogueTonePrompt(text, instruction))
	}
}

// AnalyzeIssues 分析剧本末尾片段的潜在问题
// 剧本全文不足 50 个字符时拒绝分析，协作者只拿最后 2000 个字符
func (s *FilmService) AnalyzeIssues(ctx context.Context, projectName string) (string, error) {
	state, err := s.Projects.LoadProject(projectName)
	if err != nil {
		return "", err
	}

	// 按字符而不是字节计数，避免把多字节文本切在半个字符上
	content := []rune(state.Script.FullScriptContent)
	if len(content) < 50 {
		return "", apperrors.NewPreconditionError(
			"not enough script content to analyze meaningfully (requires at least 50 characters)", nil)
	}

	if len(content) > 2000 {
		content = content[len(content)-2000:]
	}
	excerpt := string(content)

	result, err := s.LLM.CompleteText(ctx,
		s.scriptAgent.AnalyzerSystemPrompt(),
		s.scriptAgent.AnalyzeIssuesPrompt(excerpt))
	if err != nil {
		return "", err
	}

	state.Script.AnalysisMD = result
	if err := s.Projects.SaveProject(state); err != nil {
		return "", err
	}
	return result, nil
}

// --- 前期制作 ---------------------------------------------------

// GenerateMoodboard 两阶段生成情绪板：先文字创意，再按创意取图
// 任一阶段失败则整个操作失败，项目状态原封不动
func (s *FilmService) GenerateMoodboard(ctx context.Context, projectName string) (*GeneratedVisuals, error) {
	state, err := s.Projects.LoadProject(projectName)
	if err != nil {
		return nil, err
	}

	theme := state.Concept.ChosenTheme
	genre := state.Concept.SeedIdea
	synopsis := state.Concept.FinalSynopsis

	if theme == "" && genre == "" && synopsis == "" {
		return nil, apperrors.NewPreconditionError(
			"provide theme, genre (seed idea), or synopsis in the concept phase first", nil)
	}

	ideas, err := s.LLM.CompleteText(ctx,
		s.scriptAgent.CreativeSystemPrompt(),
		s.scriptAgent.MoodboardPrompt(theme, genre, synopsis))
	if err != nil {
		return nil, err
	}

	parts, err := s.Images.GenerateImages(ctx, s.scriptAgent.MoodboardImagePrompt(ideas))
	if err != nil {
		return nil, err
	}

	// 两个阶段都成功后才写入并一次性落盘
	state.PreProduction.MoodboardIdeasMD = ideas
	state.PreProduction.MoodboardImages = parts
	if err := s.Projects.SaveProject(state); err != nil {
		return nil, err
	}

	return &GeneratedVisuals{IdeasMD: ideas, ImageParts: parts}, nil
}

// GenerateStoryboard 两阶段生成分镜：先镜头创意，再按创意取图
// 与情绪板相同的全有或全无规则
func (s *FilmService) GenerateStoryboard(ctx context.Context, projectName, sceneText string) (*GeneratedVisuals, error) {
	state, err := s.Projects.LoadProject(projectName)
	if err != nil {
		return nil, err
	}

	sceneText = strings.TrimSpace(sceneText)
	if len([]rune(sceneText)) < 50 {
		return nil, apperrors.NewPreconditionError(
			"scene text must be at least 50 characters", nil)
	}

	ideas, err := s.LLM.CompleteText(ctx,
		s.scriptAgent.CreativeSystemPrompt(),
		s.scriptAgent.StoryboardPrompt(sceneText))
	if err != nil {
		return nil, err
	}

	parts, err := s.Images.GenerateImages(ctx, s.scriptAgent.StoryboardImagePrompt(ideas))
	if err != nil {
		return nil, err
	}

	state.PreProduction.StoryboardIdeasMD = ideas
	state.PreProduction.StoryboardImages = parts
	if err := s.Projects.SaveProject(state); err != nil {
		return nil, err
	}

	return &GeneratedVisuals{IdeasMD: ideas, ImageParts: parts}, nil
}

// GenerateComicImage 与项目状态无关的漫画风格图像生成
func (s *FilmService) GenerateComicImage(ctx context.Context, prompt string) ([]models.ContentPart, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return nil, apperrors.NewPreconditionError("prompt must not be empty", nil)
	}

	return s.Images.GenerateImages(ctx, s.scriptAgent.ComicImagePrompt(prompt))
}

// --- 辅助函数 ---------------------------------------------------

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func containsAny(s string, substrings ...string) bool {
	for _, sub := range substrings {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
