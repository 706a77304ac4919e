// internal/models/project.go
package models

import (
	"strings"
	"time"
)

// ProjectPhase 项目所处的工作流阶段（仅作展示，不做状态机校验）
type ProjectPhase string

const (
	PhaseConcept       ProjectPhase = "Concept"
	PhaseCharacter     ProjectPhase = "Character"
	PhaseScript        ProjectPhase = "Script"
	PhasePreProduction ProjectPhase = "Pre-Production"
)

// DefaultFramework 默认叙事框架
const DefaultFramework = "Three-Act Structure"

// LogCap 项目日志最多保留的条目数
const LogCap = 50

// ConceptState 概念开发阶段的状态
type ConceptState struct {
	SeedIdea            string `json:"seed_idea"`
	GeneratedConceptsMD string `json:"generated_concepts_md"`
	ChosenLogline       string `json:"chosen_logline"`
	ChosenFramework     string `json:"chosen_framework"`
	ChosenTheme         string `json:"chosen_theme"`
	ChosenConflict      string `json:"chosen_conflict"`
	SynopsisMD          string `json:"synopsis_md"`
	// FinalSynopsis 是去掉"Potential Twists"段落之后的梗概，供后续生成使用
	FinalSynopsis string `json:"final_synopsis"`
}

// CharacterProfile 角色档案
type CharacterProfile struct {
	Backstory  string `json:"backstory"`
	Motivation string `json:"motivation"`
	Flaw       string `json:"flaw"`
}

// CharacterData 单个角色的全部数据，按角色名在项目内唯一
type CharacterData struct {
	Role                    string           `json:"role"`
	Profile                 CharacterProfile `json:"profile"`
	ArcDescription          string           `json:"arc_description"`
	RelationshipSuggestions string           `json:"relationship_suggestions"`
}

// ScriptState 剧本阶段的状态
type ScriptState struct {
	OutlineMD         string `json:"outline_md"`
	FullScriptContent string `json:"full_script_content"`
	AnalysisMD        string `json:"analysis_md"`
}

// ContentPart 图像协作者返回的单个内容片段
// Type 为 "text"、"image/<fmt>" 或 "error"，图像内容为 base64 编码
type ContentPart struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

// PreProductionState 前期制作阶段的状态
type PreProductionState struct {
	MoodboardIdeasMD  string        `json:"moodboard_ideas_md"`
	StoryboardIdeasMD string        `json:"storyboard_ideas_md"`
	MoodboardImages   []ContentPart `json:"moodboard_images"`
	StoryboardImages  []ContentPart `json:"storyboard_images"`
}

// ProjectState 项目的根聚合，一个项目对应一份持久化文档
type ProjectState struct {
	// ProjectName 用户可见的展示名称，项目的身份标识
	ProjectName string `json:"project_name"`
	// CleanedName 由 ProjectName 推导的规范名，仅用于文件寻址，永不展示
	CleanedName   string                   `json:"cleaned_name"`
	CurrentPhase  ProjectPhase             `json:"current_phase"`
	Concept       ConceptState             `json:"concept"`
	Characters    map[string]CharacterData `json:"characters"`
	Script        ScriptState              `json:"script"`
	PreProduction PreProductionState       `json:"pre_production"`
	// LastSaved 仅由持久化操作写入
	LastSaved *time.Time `json:"last_saved"`
	Log       []string   `json:"log"`
}

// NormalizeName 由展示名推导规范名：去首尾空白、空格转下划线、小写
// 幂等：NormalizeName(NormalizeName(x)) == NormalizeName(x)
func NormalizeName(displayName string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(displayName), " ", "_"))
}

// DefaultProjectState 构建全默认子文档的项目状态
func DefaultProjectState() *ProjectState {
	return &ProjectState{
		ProjectName:  "Untitled",
		CleanedName:  "untitled",
		CurrentPhase: PhaseConcept,
		Concept: ConceptState{
			ChosenFramework: DefaultFramework,
		},
		Characters: make(map[string]CharacterData),
		PreProduction: PreProductionState{
			MoodboardImages:  []ContentPart{},
			StoryboardImages: []ContentPart{},
		},
		Log: []string{"Project state initialized."},
	}
}

// SetName 设置展示名并同步重新计算规范名
func (p *ProjectState) SetName(displayName string) {
	p.ProjectName = displayName
	p.CleanedName = NormalizeName(displayName)
}

// TrimLog 把日志裁剪到最近 LogCap 条
func (p *ProjectState) TrimLog() {
	if len(p.Log) > LogCap {
		p.Log = p.Log[len(p.Log)-LogCap:]
	}
}

// AppendLog 追加一条日志并保持上限
func (p *ProjectState) AppendLog(entry string) {
	p.TrimLog()
	p.Log = append(p.Log, entry)
	p.TrimLog()
}
