// internal/agents/concept_agent.go
package agents

import "fmt"

// ConceptAgent 构建概念开发相关的提示词
// 所有 Agent 都是无状态的纯提示词构建器，实际调用由服务层完成
type ConceptAgent struct{}

// SystemPrompt 概念开发的系统提示词
func (ConceptAgent) SystemPrompt() string {
	return "You are an AI assistant specialized in film concept development. Be creative, structured, and offer clear options in Markdown format."
}

// InitialConceptsPrompt 由种子创意生成备选的故事线、框架、主题与冲突
func (ConceptAgent) InitialConceptsPrompt(seedIdea string) string {
	return fmt.Sprintf(`Analyze this film seed idea: '%s'

Generate the following, clearly separated by Markdown headings (e.g., ### Loglines):
1.  **Loglines:** Create 3 distinct loglines.
2.  **Narrative Frameworks:** Suggest 2-3 common structures (e.g., Three-Act, Hero's Journey) and briefly explain their potential application.
3.  **Potential Themes:** Propose 3 core themes.
4.  **Central Conflicts:** Suggest 3 potential central conflicts.
5.  **Clarifying Question:** Pose one question to the user to guide further development (e.g., about tone, protagonist type, or core message).`, seedIdea)
}

// SynopsisPrompt 基于选定的概念元素生成梗概
func (ConceptAgent) SynopsisPrompt(logline, framework, theme, conflict string) string {
	if logline == "" {
		logline = "Not specified"
	}
	if framework == "" {
		framework = "Not specified"
	}
	if theme == "" {
		theme = "Not specified"
	}
	if conflict == "" {
		conflict = "Not specified"
	}

	return fmt.Sprintf(`Based on these chosen film concept elements:
- Logline Idea: %s
- Narrative Framework: %s
- Core Theme: %s
- Central Conflict: %s

Write a compelling one-paragraph synopsis (around 100-150 words) that weaves these elements together into a coherent story concept.
Also, suggest 2 potential plot twists relevant to these elements, listed under a "### Potential Twists" heading.`, logline, framework, theme, conflict)
}
