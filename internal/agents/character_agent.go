// internal/agents/character_agent.go
package agents

import (
	"fmt"
	"strings"

	"github.com/Corphon/FilmForgeAI/internal/models"
)

// CharacterAgent 构建角色开发相关的提示词
type CharacterAgent struct{}

// SystemPrompt 角色开发的系统提示词
func (CharacterAgent) SystemPrompt() string {
	return "You are an AI assistant specialized in character development for films. Focus on depth, motivation, flaws, and arcs. Respond in Markdown."
}

// ProfileSuggestionPrompt 为指定角色定位生成背景、动机、缺陷的候选项
func (CharacterAgent) ProfileSuggestionPrompt(role, genre, theme string) string {
	if genre == "" {
		genre = "Unknown Genre"
	}
	if theme == "" {
		theme = "General Theme"
	}

	return fmt.Sprintf(`For a character in a '%s' film exploring the theme of '%s', who plays the role of the '%s':

Suggest 3 distinct options for each of the following, formatted clearly with Markdown lists:
1.  **Potential Backstories:** Brief descriptions of shaping experiences.
2.  **Core Motivations:** What drives their primary actions?
3.  **Significant Flaws:** Key weaknesses or internal struggles.`, genre, theme, role)
}

// ArcPrompt 结合角色档案与叙事框架生成角色弧线
func (CharacterAgent) ArcPrompt(role string, profile models.CharacterProfile, framework string) string {
	if framework == "" {
		framework = models.DefaultFramework
	}

	return fmt.Sprintf(`Consider a character:
- Role: %s
- Core Motivation: %s
- Significant Flaw: %s
- Backstory Summary: %s

Outline a potential character arc for them within a standard '%s'. Describe the following key stages concisely under Markdown headings:
- **Beginning State (Setup):** Initial presentation embodying flaw/motivation.
- **Inciting Incident Reaction:** How the plot's trigger affects them.
- **Rising Action / Confrontation:** Key challenges related to their flaw/goal.
- **Midpoint Shift:** A significant realization or turning point.
- **Climax / Final Confrontation:** Facing the core conflict, demonstrating change (or lack thereof).
- **Ending State (Resolution):** Their final emotional/psychological state.`,
		role, profile.Motivation, profile.Flaw, profile.Backstory, framework)
}

// RelationshipsPrompt 基于主角色与其他角色定位生成关系建议
func (CharacterAgent) RelationshipsPrompt(primary models.CharacterData, otherRoles []string) string {
	role := primary.Role
	if role == "" {
		role = "This character"
	}
	summary := fmt.Sprintf("Role: %s, Motivation: %s, Flaw: %s",
		role, orNA(primary.Profile.Motivation), orNA(primary.Profile.Flaw))

	return fmt.Sprintf(`Consider the primary character: %s

Suggest potential relationship dynamics between this character and characters playing these roles: %s.

For each potential relationship pair (e.g., %s <-> %s):
1.  **Dynamic Type:** (e.g., Mentor-Mentee, Rivals, Allies, Foil, Family, Romantic) - Suggest 1-2 options.
2.  **Potential Conflict Source:** Based on likely goals or personalities derived from their roles.
3.  **Potential Synergy/Support Source:** How they might help each other.

Format clearly using Markdown lists for each pair.`, summary, strings.Join(otherRoles, ", "), role, otherRoles[0])
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}
