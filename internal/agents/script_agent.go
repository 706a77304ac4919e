// internal/agents/script_agent.go
package agents

import "fmt"

// ScriptAgent 构建剧本与前期制作相关的提示词
// 按任务使用不同的系统提示词
type ScriptAgent struct{}

// WriterSystemPrompt 写作类任务的系统提示词
func (ScriptAgent) WriterSystemPrompt() string {
	return "You are an AI assistant specialized in screenwriting. Adhere strictly to standard screenplay format (scene headings, action lines, character cues, dialogue). Be concise and clear."
}

// AnalyzerSystemPrompt 分析类任务的系统提示词
func (ScriptAgent) AnalyzerSystemPrompt() string {
	return "You are an AI script analyst. Critically evaluate the provided text for logical consistency, pacing issues, and character voice based ONLY on the text itself. Be objective and specific."
}

// EditorSystemPrompt 润色类任务的系统提示词
func (ScriptAgent) EditorSystemPrompt() string {
	return "You are an AI script editor. Revise the provided text precisely according to the user's instruction, maintaining the original format (e.g., dialogue, action line)."
}

// CreativeSystemPrompt 前期制作可视化任务的系统提示词
func (ScriptAgent) CreativeSystemPrompt() string {
	return "You are a creative AI assistant helping with film pre-production visualization. Generate evocative ideas based on script content."
}

// OutlinePrompt 基于梗概与叙事框架生成分场大纲
func (ScriptAgent) OutlinePrompt(synopsis, framework string) string {
	return fmt.Sprintf(`Based on the following film synopsis and using the '%s':
Synopsis: "%s"

Generate a scene-by-scene outline. For each scene, provide:
- SCENE HEADING (INT./EXT. LOCATION - DAY/NIGHT)
- BRIEF DESCRIPTION (1-2 sentences: core action, character goal, plot point).

Number scenes sequentially. Ensure logical progression. Use standard screenplay formatting for headings.
Example:
1. INT. COFFEE SHOP - DAY
   JANE waits nervously. MARK arrives late, revealing a plot-triggering secret.`, framework, synopsis)
}

// DraftScenePrompt 按场景标题与描述起草完整场景
func (ScriptAgent) DraftScenePrompt(heading, description, characterContext, tone string) string {
	if characterContext == "" {
		characterContext = "None provided"
	}
	if tone == "" {
		tone = "neutral"
	}

	return fmt.Sprintf(`Write the full screenplay scene:
- Scene Heading: %s
- Scene Description/Goal: %s
- Character Context: %s
- Desired Tone: %s

Follow standard screenplay format STRICTLY (HEADINGS, ACTION, CHARACTER, DIALOGUE, (parentheticals)).
Generate ONLY the scene content.`, heading, description, characterContext, tone)
}

// RefineDialogueTonePrompt 向目标语气润色对白
func (ScriptAgent) RefineDialogueTonePrompt(dialogue, targetTone string) string {
	return fmt.Sprintf(`Refine the following dialogue snippet to have a '%s' tone, while keeping the core meaning and character voice consistent.

Original Dialogue:
---
%s
---

Provide ONLY the revised dialogue snippet, maintaining the original Character Cue if present.`, targetTone, dialogue)
}

// RefineActionPrompt 精简动作描写
func (ScriptAgent) RefineActionPrompt(actionLine string) string {
	return fmt.Sprintf(`Make the following action line(s) more concise and impactful, suitable for a screenplay. Remove unnecessary words while preserving the essential visual information.

Original Action Line(s):
---
%s
---

Provide ONLY the revised, concise action line(s).`, actionLine)
}

// AnalyzeIssuesPrompt 分析剧本片段的潜在问题
func (ScriptAgent) AnalyzeIssuesPrompt(excerpt string) string {
	return fmt.Sprintf(`Analyze the following script excerpt for potential issues. Focus ONLY on:
1.  **Plot Holes/Continuity:** Contradictions or logical gaps *within the excerpt*.
2.  **Pacing:** Sections that feel rushed, slow, or redundant *based on the text*.
3.  **Character Consistency/Voice:** Actions or dialogue inconsistent *within the excerpt*.
4.  **Clarity/Formatting:** Confusing descriptions or non-standard formatting.

List identified potential issues clearly with brief explanations. Do NOT suggest solutions. If no major issues are found, state that.

Script Excerpt:
---
%s
---`, excerpt)
}

// MoodboardPrompt 生成情绪板的文字创意
func (ScriptAgent) MoodboardPrompt(theme, genre, synopsis string) string {
	return fmt.Sprintf(`Based on the film concept:
- Genre: %s
- Theme: %s
- Synopsis: %s

Generate textual ideas for a mood board. Suggest:
1.  **Color Palette:** Describe 3-5 key colors and their emotional association (e.g., "Deep blues for mystery, sickly yellow for decay").
2.  **Key Textures:** Suggest relevant textures (e.g., "Rough concrete, smooth chrome, decaying lace").
3.  **Lighting Style:** Describe the overall lighting approach (e.g., "High-contrast noir, soft natural light, harsh neon").
4.  **Reference Keywords:** List 5-10 keywords for image searching (e.g., "Urban decay, isolated cabin, bioluminescence, vintage tech").
5.  **Comparable Films/Art (Optional):** Mention 1-2 existing works with a similar visual feel.

Format clearly using Markdown headings.`, orNA(genre), orNA(theme), orNA(synopsis))
}

// StoryboardPrompt 为场景文本生成关键分镜创意
func (ScriptAgent) StoryboardPrompt(sceneText string) string {
	return fmt.Sprintf(`Analyze the following screenplay scene text:
---
%s
---

Suggest 3-5 key storyboard shot ideas to visually capture the essence of this scene. For each shot idea, describe:
1.  **Shot Type:** (e.g., Wide Shot, Medium Close-Up, POV, Insert Shot, Over-the-Shoulder).
2.  **Subject/Action:** What is the main focus of the frame and what is happening?
3.  **Purpose/Emotion:** Why is this shot important? What feeling should it evoke?

Example:
1.  **Shot Type:** Extreme Close-Up
2.  **Subject/Action:** Character's trembling hand reaching for a key.
3.  **Purpose/Emotion:** Emphasize nervousness and the importance of the object.

Format clearly using Markdown numbered lists.`, sceneText)
}

// MoodboardImagePrompt 由文字创意构建情绪板取图提示
func (ScriptAgent) MoodboardImagePrompt(ideas string) string {
	return fmt.Sprintf(`Visualize a moodboard for a film concept based on the following ideas:
---
%s
---
Generate diverse visual elements for a mood board based on these descriptions.`, ideas)
}

// StoryboardImagePrompt 由分镜创意构建分镜取图提示
func (ScriptAgent) StoryboardImagePrompt(ideas string) string {
	return fmt.Sprintf(`Visualize storyboard shots for a film scene based on these descriptions:
---
%s
---
Generate distinct storyboard-style images for each described shot.`, ideas)
}

// ComicImagePrompt 趣味漫画风格取图提示（独立于项目状态）
func (ScriptAgent) ComicImagePrompt(prompt string) string {
	return prompt + `
Explain the concept using a fun, kid-friendly story filled with lots of characters.
Make each sentence short, simple, and playful — like you're telling a bedtime story.
Keep the tone cheerful, curious, and easy for kids to understand.
For every sentence, create a cute, colorful ink illustration that matches the story.
No extra explanations — just start the story and keep going until the concept is clear through the animal adventure.`
}
