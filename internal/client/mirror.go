// internal/client/mirror.go
package client

import (
	"strings"

	apperrors "github.com/Corphon/FilmForgeAI/internal/errors"
	"github.com/Corphon/FilmForgeAI/internal/models"
)

// AdvisoryOutput 只在本地展示、不属于项目文档的临时生成结果
// 切换项目时整体清空
type AdvisoryOutput struct {
	ProfileSuggestion string
	SceneDraft        string
	RefinedText       string
}

// ProjectMirror 维护与服务端一致的项目状态本地副本
// 全量响应整体替换，片段响应只修补对应子树，失败时本地副本原封不动
type ProjectMirror struct {
	client   *APIClient
	state    *models.ProjectState
	advisory AdvisoryOutput
}

// NewProjectMirror 创建客户端状态镜像
func NewProjectMirror(client *APIClient) *ProjectMirror {
	return &ProjectMirror{client: client}
}

// Current 返回当前本地副本，尚未加载项目时为 nil
func (m *ProjectMirror) Current() *models.ProjectState {
	return m.state
}

// Advisory 返回临时生成结果
func (m *ProjectMirror) Advisory() AdvisoryOutput {
	return m.advisory
}

// ensureLoaded 片段操作要求先有本地副本
func (m *ProjectMirror) ensureLoaded() error {
	if m.state == nil {
		return apperrors.NewInvalidStateError("no project loaded in mirror", nil)
	}
	return nil
}

// LoadProject 加载项目并整体替换本地副本，临时结果清空
func (m *ProjectMirror) LoadProject(name string) (*models.ProjectState, error) {
	state, err := m.client.LoadProject(name)
	if err != nil {
		return nil, err
	}
	m.state = state
	m.advisory = AdvisoryOutput{}
	return state, nil
}

// CreateProject 创建项目并整体替换本地副本，临时结果清空
func (m *ProjectMirror) CreateProject(name string) (*models.ProjectState, error) {
	state, err := m.client.CreateProject(name)
	if err != nil {
		return nil, err
	}
	m.state = state
	m.advisory = AdvisoryOutput{}
	return state, nil
}

// Save 把本地副本推送到服务端，并用落盘后的文档整体替换本地副本
func (m *ProjectMirror) Save() error {
	if err := m.ensureLoaded(); err != nil {
		return err
	}
	saved, err := m.client.SaveProject(m.state)
	if err != nil {
		return err
	}
	m.state = saved
	return nil
}

// Reload 按当前项目名重新全量加载
func (m *ProjectMirror) Reload() error {
	if err := m.ensureLoaded(); err != nil {
		return err
	}
	state, err := m.client.LoadProject(m.state.ProjectName)
	if err != nil {
		return err
	}
	m.state = state
	return nil
}

// Delete 删除当前项目并清空本地副本
func (m *ProjectMirror) Delete() (bool, error) {
	if err := m.ensureLoaded(); err != nil {
		return false, err
	}
	deleted, err := m.client.DeleteProject(m.state.ProjectName)
	if err != nil {
		return false, err
	}
	m.state = nil
	m.advisory = AdvisoryOutput{}
	return deleted, nil
}

// GenerateConcepts 生成初始概念并修补概念子树
func (m *ProjectMirror) GenerateConcepts(seedIdea string) (string, error) {
	if err := m.ensureLoaded(); err != nil {
		return "", err
	}
	result, err := m.client.GenerateConcepts(m.state.ProjectName, seedIdea)
	if err != nil {
		return "", err
	}

	m.state.Concept.SeedIdea = strings.TrimSpace(seedIdea)
	m.state.Concept.GeneratedConceptsMD = result
	return result, nil
}

// GenerateSynopsis 生成梗概并修补概念子树
// 与服务端相同的回退与派生规则：请求值优先，梗概截掉转折段落
func (m *ProjectMirror) GenerateSynopsis(opts SynopsisOptions) (string, error) {
	if err := m.ensureLoaded(); err != nil {
		return "", err
	}
	result, err := m.client.GenerateSynopsis(m.state.ProjectName, opts)
	if err != nil {
		return "", err
	}

	concept := &m.state.Concept
	if strings.TrimSpace(opts.Logline) != "" {
		concept.ChosenLogline = opts.Logline
	}
	if strings.TrimSpace(opts.Framework) != "" {
		concept.ChosenFramework = opts.Framework
	}
	if strings.TrimSpace(opts.Theme) != "" {
		concept.ChosenTheme = opts.Theme
	}
	if strings.TrimSpace(opts.Conflict) != "" {
		concept.ChosenConflict = opts.Conflict
	}
	concept.SynopsisMD = result

	if idx := strings.Index(result, "### Potential Twists"); idx >= 0 {
		concept.FinalSynopsis = strings.TrimSpace(result[:idx])
	} else {
		concept.FinalSynopsis = result
	}
	return result, nil
}

// SuggestProfile 获取角色档案建议，只进临时结果区
func (m *ProjectMirror) SuggestProfile(role string) (string, error) {
	if err := m.ensureLoaded(); err != nil {
		return "", err
	}
	result, err := m.client.SuggestProfile(m.state.ProjectName, role)
	if err != nil {
		return "", err
	}
	m.advisory.ProfileSuggestion = result
	return result, nil
}

// SaveCharacter 保存角色并修补对应角色条目
func (m *ProjectMirror) SaveCharacter(charName, role string, profile models.CharacterProfile) (*models.CharacterData, error) {
	if err := m.ensureLoaded(); err != nil {
		return nil, err
	}
	character, err := m.client.SaveCharacter(m.state.ProjectName, charName, role, profile)
	if err != nil {
		return nil, err
	}

	if m.state.Characters == nil {
		m.state.Characters = make(map[string]models.CharacterData)
	}
	m.state.Characters[strings.TrimSpace(charName)] = *character
	return character, nil
}

// GenerateArc 生成角色弧线并修补对应角色条目
func (m *ProjectMirror) GenerateArc(charName string) (string, error) {
	if err := m.ensureLoaded(); err != nil {
		return "", err
	}
	result, err := m.client.GenerateArc(m.state.ProjectName, charName)
	if err != nil {
		return "", err
	}

	if character, ok := m.state.Characters[charName]; ok {
		character.ArcDescription = result
		m.state.Characters[charName] = character
	}
	return result, nil
}

// SuggestRelationships 生成关系建议并修补对应角色条目
// 项目里没有其他角色时服务端只返回提示语且不落盘，本地也保持不动
func (m *ProjectMirror) SuggestRelationships(charName string) (string, error) {
	if err := m.ensureLoaded(); err != nil {
		return "", err
	}
	result, err := m.client.SuggestRelationships(m.state.ProjectName, charName)
	if err != nil {
		return "", err
	}

	if m.hasOtherRoles(charName) {
		if character, ok := m.state.Characters[charName]; ok {
			character.RelationshipSuggestions = result
			m.state.Characters[charName] = character
		}
	}
	return result, nil
}

// hasOtherRoles 判断是否存在其他定义了定位的角色
func (m *ProjectMirror) hasOtherRoles(charName string) bool {
	for name, other := range m.state.Characters {
		if name != charName && other.Role != "" {
			return true
		}
	}
	return false
}

// GenerateOutline 生成大纲并修补剧本子树
func (m *ProjectMirror) GenerateOutline() (string, error) {
	if err := m.ensureLoaded(); err != nil {
		return "", err
	}
	result, err := m.client.GenerateOutline(m.state.ProjectName)
	if err != nil {
		return "", err
	}
	m.state.Script.OutlineMD = result
	return result, nil
}

// DraftScene 起草场景，只进临时结果区
func (m *ProjectMirror) DraftScene(opts SceneDraftOptions) (string, error) {
	if err := m.ensureLoaded(); err != nil {
		return "", err
	}
	result, err := m.client.DraftScene(m.state.ProjectName, opts)
	if err != nil {
		return "", err
	}
	m.advisory.SceneDraft = result
	return result, nil
}

// UpdateFullScript 更新剧本全文并修补剧本子树
func (m *ProjectMirror) UpdateFullScript(content string) error {
	if err := m.ensureLoaded(); err != nil {
		return err
	}
	if err := m.client.UpdateFullScript(m.state.ProjectName, content); err != nil {
		return err
	}
	m.state.Script.FullScriptContent = content
	return nil
}

// RefineText 润色文本，只进临时结果区
func (m *ProjectMirror) RefineText(text, instruction string) (string, error) {
	if err := m.ensureLoaded(); err != nil {
		return "", err
	}
	result, err := m.client.RefineText(m.state.ProjectName, text, instruction)
	if err != nil {
		return "", err
	}
	m.advisory.RefinedText = result
	return result, nil
}

// AnalyzeIssues 分析剧本并修补剧本子树
func (m *ProjectMirror) AnalyzeIssues() (string, error) {
	if err := m.ensureLoaded(); err != nil {
		return "", err
	}
	result, err := m.client.AnalyzeIssues(m.state.ProjectName)
	if err != nil {
		return "", err
	}
	m.state.Script.AnalysisMD = result
	return result, nil
}

// GenerateMoodboard 生成情绪板
// 服务端同时落盘文字与图像，成功后全量重载而不是猜测子树内容
func (m *ProjectMirror) GenerateMoodboard() (*Visuals, error) {
	if err := m.ensureLoaded(); err != nil {
		return nil, err
	}
	visuals, err := m.client.GenerateMoodboard(m.state.ProjectName)
	if err != nil {
		return nil, err
	}

	if err := m.Reload(); err != nil {
		return nil, err
	}
	return visuals, nil
}

// GenerateStoryboard 生成分镜，与情绪板相同的重载规则
func (m *ProjectMirror) GenerateStoryboard(sceneText string) (*Visuals, error) {
	if err := m.ensureLoaded(); err != nil {
		return nil, err
	}
	visuals, err := m.client.GenerateStoryboard(m.state.ProjectName, sceneText)
	if err != nil {
		return nil, err
	}

	if err := m.Reload(); err != nil {
		return nil, err
	}
	return visuals, nil
}
