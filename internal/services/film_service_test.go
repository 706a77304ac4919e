// internal/services/film_service_test.go
package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	apperrors "github.com/Corphon/FilmForgeAI/internal/errors"
	"github.com/Corphon/FilmForgeAI/internal/llm"
	"github.com/Corphon/FilmForgeAI/internal/models"
)

// stubLLMProvider 记录调用次数与提示词的文本生成桩
type stubLLMProvider struct {
	calls    int
	prompts  []string
	response string
	err      error
}

func (p *stubLLMProvider) Initialize(config map[string]string) error { return nil }
func (p *stubLLMProvider) GetName() string                           { return "stub" }
func (p *stubLLMProvider) GetSupportedModels() []string              { return []string{"stub-model"} }

func (p *stubLLMProvider) CompleteText(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	p.calls++
	p.prompts = append(p.prompts, req.Prompt)
	if p.err != nil {
		return nil, p.err
	}
	return &llm.CompletionResponse{Text: p.response, ProviderName: "stub"}, nil
}

// stubImageProvider 图像生成桩
type stubImageProvider struct {
	calls int
	parts []models.ContentPart
	err   error
}

func (p *stubImageProvider) Initialize(config map[string]string) error { return nil }
func (p *stubImageProvider) GetName() string                           { return "stub" }

func (p *stubImageProvider) GenerateImages(ctx context.Context, prompt string) ([]models.ContentPart, error) {
	p.calls++
	if p.err != nil {
		return nil, p.err
	}
	return p.parts, nil
}

func newTestFilmService(t *testing.T, llmStub *stubLLMProvider, imgStub *stubImageProvider) *FilmService {
	t.Helper()

	projects := newTestProjectService(t)
	llmService := NewLLMServiceWithProvider(llmStub)
	imageService := NewImageServiceWithProvider(imgStub)
	return NewFilmService(projects, llmService, imageService)
}

func TestGenerateConcepts(t *testing.T) {
	llmStub := &stubLLMProvider{response: "## Loglines\n1. A keeper vs the deep."}
	service := newTestFilmService(t, llmStub, &stubImageProvider{})

	if _, err := service.Projects.CreateProject("Lighthouse"); err != nil {
		t.Fatalf("创建项目失败: %v", err)
	}

	result, err := service.GenerateConcepts(context.Background(), "Lighthouse", "a lighthouse in a storm")
	if err != nil {
		t.Fatalf("生成概念失败: %v", err)
	}
	if result != llmStub.response {
		t.Errorf("返回内容不符: %q", result)
	}

	loaded, err := service.Projects.LoadProject("Lighthouse")
	if err != nil {
		t.Fatalf("加载项目失败: %v", err)
	}
	if loaded.Concept.SeedIdea != "a lighthouse in a storm" {
		t.Errorf("种子创意应该已落盘, 实际是 %q", loaded.Concept.SeedIdea)
	}
	if loaded.Concept.GeneratedConceptsMD != llmStub.response {
		t.Error("生成的概念应该已落盘")
	}
}

func TestGenerateConceptsEmptySeed(t *testing.T) {
	llmStub := &stubLLMProvider{response: "unused"}
	service := newTestFilmService(t, llmStub, &stubImageProvider{})

	if _, err := service.Projects.CreateProject("Lighthouse"); err != nil {
		t.Fatalf("创建项目失败: %v", err)
	}

	_, err := service.GenerateConcepts(context.Background(), "Lighthouse", "   ")
	if !apperrors.IsPreconditionError(err) {
		t.Fatalf("空种子创意应该返回 precondition_failed, 实际是 %v", err)
	}
	if llmStub.calls != 0 {
		t.Errorf("前置校验失败时不应调用协作者, 实际调用了 %d 次", llmStub.calls)
	}
}

func TestGenerateSynopsisTwistStripping(t *testing.T) {
	llmStub := &stubLLMProvider{response: "A hero rises.\n### Potential Twists\n- twist A"}
	service := newTestFilmService(t, llmStub, &stubImageProvider{})

	if _, err := service.Projects.CreateProject("Twisty"); err != nil {
		t.Fatalf("创建项目失败: %v", err)
	}

	_, err := service.GenerateSynopsis(context.Background(), "Twisty", SynopsisRequest{
		Logline: "A hero must rise",
		Theme:   "Courage",
	})
	if err != nil {
		t.Fatalf("生成梗概失败: %v", err)
	}

	loaded, err := service.Projects.LoadProject("Twisty")
	if err != nil {
		t.Fatalf("加载项目失败: %v", err)
	}
	if loaded.Concept.FinalSynopsis != "A hero rises." {
		t.Errorf("final_synopsis 应该截掉转折段落并去掉空白, 实际是 %q", loaded.Concept.FinalSynopsis)
	}
	if loaded.Concept.SynopsisMD != llmStub.response {
		t.Error("synopsis_md 应该保留完整生成文本")
	}
	if loaded.Concept.ChosenLogline != "A hero must rise" || loaded.Concept.ChosenTheme != "Courage" {
		t.Error("请求中的概念要素应该写入已选字段")
	}
}

func TestGenerateSynopsisFallbackToState(t *testing.T) {
	llmStub := &stubLLMProvider{response: "Synopsis text."}
	service := newTestFilmService(t, llmStub, &stubImageProvider{})

	state, err := service.Projects.CreateProject("Fallback")
	if err != nil {
		t.Fatalf("创建项目失败: %v", err)
	}
	state.Concept.ChosenTheme = "Redemption"
	if err := service.Projects.SaveProject(state); err != nil {
		t.Fatalf("保存项目失败: %v", err)
	}

	// 请求不带任何要素，应该回退到状态中的 theme
	if _, err := service.GenerateSynopsis(context.Background(), "Fallback", SynopsisRequest{}); err != nil {
		t.Fatalf("回退到状态值时生成失败: %v", err)
	}

	// 既无请求值又无状态值时应该拒绝
	if _, err := service.Projects.CreateProject("Empty"); err != nil {
		t.Fatalf("创建项目失败: %v", err)
	}
	_, err = service.GenerateSynopsis(context.Background(), "Empty", SynopsisRequest{})
	if !apperrors.IsPreconditionError(err) {
		t.Fatalf("缺少 logline 和 theme 应该返回 precondition_failed, 实际是 %v", err)
	}
}

func TestGenerateArcPreconditions(t *testing.T) {
	llmStub := &stubLLMProvider{response: "### Beginning State\nScared of heights."}
	service := newTestFilmService(t, llmStub, &stubImageProvider{})

	if _, err := service.Projects.CreateProject("Arcs"); err != nil {
		t.Fatalf("创建项目失败: %v", err)
	}

	// 动机为空的角色
	_, err := service.SaveCharacter("Arcs", "Ava", "Protagonist", models.CharacterProfile{
		Flaw: "fear of heights",
	})
	if err != nil {
		t.Fatalf("保存角色失败: %v", err)
	}

	_, err = service.GenerateArc(context.Background(), "Arcs", "Ava")
	if !apperrors.IsPreconditionError(err) {
		t.Fatalf("动机为空应该返回 precondition_failed, 实际是 %v", err)
	}
	if llmStub.calls != 0 {
		t.Errorf("前置校验失败时不应调用协作者, 实际调用了 %d 次", llmStub.calls)
	}

	// 角色不存在
	_, err = service.GenerateArc(context.Background(), "Arcs", "Nobody")
	if !apperrors.IsNotFoundError(err) {
		t.Fatalf("角色不存在应该返回 not_found, 实际是 %v", err)
	}

	// 补齐动机后重试
	_, err = service.SaveCharacter("Arcs", "Ava", "Protagonist", models.CharacterProfile{
		Motivation: "revenge",
		Flaw:       "fear of heights",
	})
	if err != nil {
		t.Fatalf("更新角色失败: %v", err)
	}

	result, err := service.GenerateArc(context.Background(), "Arcs", "Ava")
	if err != nil {
		t.Fatalf("补齐档案后生成弧线失败: %v", err)
	}
	if llmStub.calls != 1 {
		t.Errorf("应该恰好调用一次协作者, 实际 %d 次", llmStub.calls)
	}

	loaded, err := service.Projects.LoadProject("Arcs")
	if err != nil {
		t.Fatalf("加载项目失败: %v", err)
	}
	ava := loaded.Characters["Ava"]
	if ava.ArcDescription != result {
		t.Error("弧线文本应该写入角色条目")
	}
	if ava.Profile.Motivation != "revenge" || ava.Profile.Flaw != "fear of heights" {
		t.Error("生成弧线不应改动角色档案")
	}
}

func TestSaveCharacterPreservesArc(t *testing.T) {
	llmStub := &stubLLMProvider{response: "arc text"}
	service := newTestFilmService(t, llmStub, &stubImageProvider{})

	if _, err := service.Projects.CreateProject("Keep"); err != nil {
		t.Fatalf("创建项目失败: %v", err)
	}

	if _, err := service.SaveCharacter("Keep", "Bo", "Mentor", models.CharacterProfile{
		Motivation: "legacy", Flaw: "pride",
	}); err != nil {
		t.Fatalf("保存角色失败: %v", err)
	}
	if _, err := service.GenerateArc(context.Background(), "Keep", "Bo"); err != nil {
		t.Fatalf("生成弧线失败: %v", err)
	}

	// 重新保存档案不应该抹掉已生成的弧线
	if _, err := service.SaveCharacter("Keep", "Bo", "Antagonist", models.CharacterProfile{
		Motivation: "control", Flaw: "pride",
	}); err != nil {
		t.Fatalf("更新角色失败: %v", err)
	}

	loaded, err := service.Projects.LoadProject("Keep")
	if err != nil {
		t.Fatalf("加载项目失败: %v", err)
	}
	bo := loaded.Characters["Bo"]
	if bo.Role != "Antagonist" || bo.Profile.Motivation != "control" {
		t.Error("角色定位和档案应该被整体替换")
	}
	if bo.ArcDescription != "arc text" {
		t.Errorf("已生成的弧线应该保留, 实际是 %q", bo.ArcDescription)
	}
}

func TestSuggestRelationshipsWithoutOthers(t *testing.T) {
	llmStub := &stubLLMProvider{response: "unused"}
	service := newTestFilmService(t, llmStub, &stubImageProvider{})

	if _, err := service.Projects.CreateProject("Solo"); err != nil {
		t.Fatalf("创建项目失败: %v", err)
	}
	if _, err := service.SaveCharacter("Solo", "Max", "Protagonist", models.CharacterProfile{}); err != nil {
		t.Fatalf("保存角色失败: %v", err)
	}

	result, err := service.SuggestRelationships(context.Background(), "Solo", "Max")
	if err != nil {
		t.Fatalf("关系建议失败: %v", err)
	}
	if !strings.Contains(result, "No other characters") {
		t.Errorf("没有其他角色时应该返回提示语, 实际是 %q", result)
	}
	if llmStub.calls != 0 {
		t.Errorf("没有其他角色时不应调用协作者, 实际调用了 %d 次", llmStub.calls)
	}

	loaded, err := service.Projects.LoadProject("Solo")
	if err != nil {
		t.Fatalf("加载项目失败: %v", err)
	}
	if loaded.Characters["Max"].RelationshipSuggestions != "" {
		t.Error("提示语不应写入项目状态")
	}
}

func TestRefineTextDispatch(t *testing.T) {
	llmStub := &stubLLMProvider{response: "refined"}
	service := newTestFilmService(t, llmStub, &stubImageProvider{})

	if _, err := service.Projects.CreateProject("Refine"); err != nil {
		t.Fatalf("创建项目失败: %v", err)
	}

	// 语气类指令走语气润色
	if _, err := service.RefineText(context.Background(), "Refine", "JANE: Hello.", "make it more tense"); err != nil {
		t.Fatalf("语气润色失败: %v", err)
	}
	if !strings.Contains(llmStub.prompts[0], "tone") {
		t.Errorf("语气类指令应该使用语气润色提示词: %q", llmStub.prompts[0])
	}

	// 动作类指令走动作精简
	if _, err := service.RefineText(context.Background(), "Refine", "He walks slowly.", "make the action concise"); err != nil {
		t.Fatalf("动作精简失败: %v", err)
	}
	if !strings.Contains(llmStub.prompts[1], "concise and impactful") {
		t.Errorf("动作类指令应该使用动作精简提示词: %q", llmStub.prompts[1])
	}

	// 未命中关键词时回退到语气润色
	if _, err := service.RefineText(context.Background(), "Refine", "Some text.", "improve it"); err != nil {
		t.Fatalf("兜底润色失败: %v", err)
	}
	if !strings.Contains(llmStub.prompts[2], "tone") {
		t.Errorf("兜底路径应该使用语气润色提示词: %q", llmStub.prompts[2])
	}
}

func TestAnalyzeIssuesRequiresContent(t *testing.T) {
	llmStub := &stubLLMProvider{response: "No major issues found."}
	service := newTestFilmService(t, llmStub, &stubImageProvider{})

	if _, err := service.Projects.CreateProject("Analyze"); err != nil {
		t.Fatalf("创建项目失败: %v", err)
	}

	_, err := service.AnalyzeIssues(context.Background(), "Analyze")
	if !apperrors.IsPreconditionError(err) {
		t.Fatalf("剧本太短应该返回 precondition_failed, 实际是 %v", err)
	}
	if llmStub.calls != 0 {
		t.Error("前置校验失败时不应调用协作者")
	}

	// 超过2000字符的剧本只把末尾交给协作者
	long := strings.Repeat("a", 2500) + "THE FINAL SCENE"
	if _, err := service.UpdateFullScript("Analyze", long); err != nil {
		t.Fatalf("更新剧本失败: %v", err)
	}
	if _, err := service.AnalyzeIssues(context.Background(), "Analyze"); err != nil {
		t.Fatalf("分析失败: %v", err)
	}

	prompt := llmStub.prompts[len(llmStub.prompts)-1]
	if !strings.Contains(prompt, "THE FINAL SCENE") {
		t.Error("分析输入应该包含剧本末尾")
	}
	if strings.Contains(prompt, strings.Repeat("a", 2100)) {
		t.Error("分析输入不应包含完整剧本，只取最后2000个字符")
	}
}

func TestAnalyzeIssuesMultibyteScript(t *testing.T) {
	llmStub := &stubLLMProvider{response: "分析结果"}
	service := newTestFilmService(t, llmStub, &stubImageProvider{})

	if _, err := service.Projects.CreateProject("中文剧本"); err != nil {
		t.Fatalf("创建项目失败: %v", err)
	}

	// 20个汉字是60字节，但只有20个字符，仍然不够分析
	if _, err := service.UpdateFullScript("中文剧本", strings.Repeat("雾", 20)); err != nil {
		t.Fatalf("更新剧本失败: %v", err)
	}
	if _, err := service.AnalyzeIssues(context.Background(), "中文剧本"); !apperrors.IsPreconditionError(err) {
		t.Fatalf("字符数不足50应该返回 precondition_failed, 实际是 %v", err)
	}

	// 超长中文剧本：截取的末尾必须是合法 UTF-8 且包含结尾
	long := strings.Repeat("山", 2095) + "最后一幕结束"
	if _, err := service.UpdateFullScript("中文剧本", long); err != nil {
		t.Fatalf("更新剧本失败: %v", err)
	}
	if _, err := service.AnalyzeIssues(context.Background(), "中文剧本"); err != nil {
		t.Fatalf("分析失败: %v", err)
	}

	prompt := llmStub.prompts[len(llmStub.prompts)-1]
	if !utf8.ValidString(prompt) {
		t.Error("截取后的分析输入必须是合法 UTF-8")
	}
	if !strings.Contains(prompt, "最后一幕结束") {
		t.Error("分析输入应该包含剧本末尾")
	}
	if strings.Contains(prompt, strings.Repeat("山", 2000)) {
		t.Error("分析输入不应超过最后2000个字符")
	}
}

func TestGenerateStoryboardRuneCount(t *testing.T) {
	llmStub := &stubLLMProvider{response: "分镜创意"}
	imgStub := &stubImageProvider{parts: []models.ContentPart{
		{Type: "image/png", Content: "aGVsbG8="},
	}}
	service := newTestFilmService(t, llmStub, imgStub)

	if _, err := service.Projects.CreateProject("中文分镜"); err != nil {
		t.Fatalf("创建项目失败: %v", err)
	}

	// 20个汉字：字节数超过50但字符数不足
	_, err := service.GenerateStoryboard(context.Background(), "中文分镜", strings.Repeat("雨", 20))
	if !apperrors.IsPreconditionError(err) {
		t.Fatalf("字符数不足50应该返回 precondition_failed, 实际是 %v", err)
	}

	// 55个汉字满足下限
	if _, err := service.GenerateStoryboard(context.Background(), "中文分镜", strings.Repeat("雨", 55)); err != nil {
		t.Fatalf("55个字符的场景应该通过校验, 实际是 %v", err)
	}
}

func TestGenerateMoodboardTwoPhaseAllOrNothing(t *testing.T) {
	llmStub := &stubLLMProvider{response: "## Color Palette\nDeep blues."}
	imgStub := &stubImageProvider{err: errors.New("image backend down")}
	service := newTestFilmService(t, llmStub, imgStub)

	state, err := service.Projects.CreateProject("Mood")
	if err != nil {
		t.Fatalf("创建项目失败: %v", err)
	}
	state.Concept.ChosenTheme = "Isolation"
	if err := service.Projects.SaveProject(state); err != nil {
		t.Fatalf("保存项目失败: %v", err)
	}

	// 文字阶段成功但图像阶段失败：整个操作失败
	_, err = service.GenerateMoodboard(context.Background(), "Mood")
	if !apperrors.IsGenerationError(err) {
		t.Fatalf("图像阶段失败应该返回 generation_failed, 实际是 %v", err)
	}
	if llmStub.calls != 1 {
		t.Errorf("文字阶段应该已执行一次, 实际 %d 次", llmStub.calls)
	}

	// 落盘状态必须原封不动，包括成功的文字结果
	loaded, err := service.Projects.LoadProject("Mood")
	if err != nil {
		t.Fatalf("加载项目失败: %v", err)
	}
	if loaded.PreProduction.MoodboardIdeasMD != "" {
		t.Error("图像阶段失败时文字创意不应落盘")
	}
	if len(loaded.PreProduction.MoodboardImages) != 0 {
		t.Error("图像阶段失败时图像不应落盘")
	}

	// 修复图像桩后整个操作成功并一次性落盘
	imgStub.err = nil
	imgStub.parts = []models.ContentPart{
		{Type: "text", Content: "visual note"},
		{Type: "image/png", Content: "aGVsbG8="},
	}

	visuals, err := service.GenerateMoodboard(context.Background(), "Mood")
	if err != nil {
		t.Fatalf("情绪板生成失败: %v", err)
	}
	if visuals.IdeasMD == "" || len(visuals.ImageParts) != 2 {
		t.Error("返回结果应该同时包含文字创意和图像")
	}

	loaded, err = service.Projects.LoadProject("Mood")
	if err != nil {
		t.Fatalf("加载项目失败: %v", err)
	}
	if loaded.PreProduction.MoodboardIdeasMD == "" || len(loaded.PreProduction.MoodboardImages) != 2 {
		t.Error("两个阶段都成功后应该一起落盘")
	}
}

func TestGenerateStoryboardSceneTextTooShort(t *testing.T) {
	llmStub := &stubLLMProvider{response: "unused"}
	service := newTestFilmService(t, llmStub, &stubImageProvider{})

	if _, err := service.Projects.CreateProject("Board"); err != nil {
		t.Fatalf("创建项目失败: %v", err)
	}

	_, err := service.GenerateStoryboard(context.Background(), "Board", "too short")
	if !apperrors.IsPreconditionError(err) {
		t.Fatalf("场景文本太短应该返回 precondition_failed, 实际是 %v", err)
	}
	if llmStub.calls != 0 {
		t.Error("前置校验失败时不应调用协作者")
	}
}

func TestGenerateImagesAllErrorPartsFail(t *testing.T) {
	llmStub := &stubLLMProvider{response: "shot ideas text, long enough to be useful"}
	imgStub := &stubImageProvider{parts: []models.ContentPart{
		{Type: "error", Content: "bad data"},
	}}
	service := newTestFilmService(t, llmStub, imgStub)

	if _, err := service.Projects.CreateProject("AllErr"); err != nil {
		t.Fatalf("创建项目失败: %v", err)
	}

	scene := "INT. LIGHTHOUSE - NIGHT\n\nMara climbs the stairs while the beam flickers overhead."
	_, err := service.GenerateStoryboard(context.Background(), "AllErr", scene)
	if !apperrors.IsGenerationError(err) {
		t.Fatalf("全错误图像结果应该视为失败, 实际是 %v", err)
	}
}

func TestOperationsOnMissingProject(t *testing.T) {
	llmStub := &stubLLMProvider{response: "unused"}
	service := newTestFilmService(t, llmStub, &stubImageProvider{})

	_, err := service.GenerateConcepts(context.Background(), "Nope", "seed")
	if !apperrors.IsNotFoundError(err) {
		t.Fatalf("项目不存在应该返回 not_found, 实际是 %v", err)
	}
	if llmStub.calls != 0 {
		t.Error("项目不存在时不应调用协作者")
	}
}
