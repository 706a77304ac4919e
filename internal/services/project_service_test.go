// internal/services/project_service_test.go
package services

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	apperrors "github.com/Corphon/FilmForgeAI/internal/errors"
	"github.com/Corphon/FilmForgeAI/internal/models"
)

func newTestProjectService(t *testing.T) *ProjectService {
	t.Helper()

	tempDir, err := os.MkdirTemp("", "filmforge_projects_test_*")
	if err != nil {
		t.Fatalf("创建临时测试目录失败: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(tempDir) })

	service, err := NewProjectService(tempDir)
	if err != nil {
		t.Fatalf("创建项目服务失败: %v", err)
	}
	return service
}

func TestCreateAndLoadProject(t *testing.T) {
	service := newTestProjectService(t)

	state, err := service.CreateProject("Midnight Run")
	if err != nil {
		t.Fatalf("创建项目失败: %v", err)
	}

	if state.ProjectName != "Midnight Run" {
		t.Errorf("展示名应该是 Midnight Run, 实际是 %q", state.ProjectName)
	}
	if state.CleanedName != "midnight_run" {
		t.Errorf("规范名应该是 midnight_run, 实际是 %q", state.CleanedName)
	}
	if state.LastSaved == nil {
		t.Error("创建后 last_saved 应该已被设置")
	}

	// 状态文件应该存在于规范名目录下
	statePath := filepath.Join(service.BaseDir, "midnight_run", "midnight_run_state.json")
	if _, err := os.Stat(statePath); os.IsNotExist(err) {
		t.Fatal("状态文件应该已被创建")
	}

	loaded, err := service.LoadProject("Midnight Run")
	if err != nil {
		t.Fatalf("加载项目失败: %v", err)
	}

	if loaded.CurrentPhase != models.PhaseConcept {
		t.Errorf("加载后阶段应该是默认值, 实际是 %s", loaded.CurrentPhase)
	}
	if loaded.Concept.ChosenFramework != models.DefaultFramework {
		t.Errorf("加载后叙事框架应该是默认值, 实际是 %q", loaded.Concept.ChosenFramework)
	}

	// 日志应该包含创建、保存和加载条目
	joined := strings.Join(loaded.Log, "\n")
	if !strings.Contains(joined, "Created new project 'Midnight Run'.") {
		t.Error("日志应该包含创建条目")
	}
	if !strings.Contains(joined, "State saved at ") {
		t.Error("日志应该包含保存条目")
	}
	if loaded.Log[len(loaded.Log)-1] != "Project 'Midnight Run' loaded." {
		t.Errorf("最后一条日志应该是加载条目, 实际是 %q", loaded.Log[len(loaded.Log)-1])
	}
}

func TestCreateProjectCollision(t *testing.T) {
	service := newTestProjectService(t)

	if _, err := service.CreateProject("Midnight Run"); err != nil {
		t.Fatalf("创建项目失败: %v", err)
	}

	// 仅大小写/空白不同的名称应该冲突
	_, err := service.CreateProject("  midnight run ")
	if !apperrors.IsAlreadyExistsError(err) {
		t.Fatalf("重名创建应该返回 already_exists, 实际是 %v", err)
	}
}

func TestCreateProjectInvalidName(t *testing.T) {
	service := newTestProjectService(t)

	for _, name := range []string{"", "   "} {
		if _, err := service.CreateProject(name); !apperrors.IsInvalidNameError(err) {
			t.Errorf("空名称 %q 应该返回 invalid_name, 实际是 %v", name, err)
		}
	}
}

func TestLoadProjectNotFound(t *testing.T) {
	service := newTestProjectService(t)

	_, err := service.LoadProject("Ghost Project")
	if !apperrors.IsNotFoundError(err) {
		t.Fatalf("加载不存在的项目应该返回 not_found, 实际是 %v", err)
	}
}

func TestLoadProjectCorrupt(t *testing.T) {
	service := newTestProjectService(t)

	dir := filepath.Join(service.BaseDir, "broken")
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("创建目录失败: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "broken_state.json"), []byte("{not json"), 0644); err != nil {
		t.Fatalf("写入损坏文件失败: %v", err)
	}

	_, err := service.LoadProject("broken")
	if !apperrors.IsCorruptError(err) {
		t.Fatalf("解析失败应该返回 corrupt, 实际是 %v", err)
	}
}

func TestLoadProjectSchemaForwardCompat(t *testing.T) {
	service := newTestProjectService(t)

	// 模拟旧版本文档：缺少 pre_production 和 script，带一个未知的额外字段
	legacy := map[string]interface{}{
		"project_name": "Legacy Film",
		"cleaned_name": "legacy_film",
		"concept": map[string]interface{}{
			"seed_idea":      "a heist in the fog",
			"chosen_logline": "One last job",
		},
		"characters":   map[string]interface{}{},
		"log":          []interface{}{"old entry"},
		"extra_legacy": "should survive in file",
	}

	dir := filepath.Join(service.BaseDir, "legacy_film")
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("创建目录失败: %v", err)
	}
	data, _ := json.Marshal(legacy)
	if err := os.WriteFile(filepath.Join(dir, "legacy_film_state.json"), data, 0644); err != nil {
		t.Fatalf("写入旧版文档失败: %v", err)
	}

	loaded, err := service.LoadProject("Legacy Film")
	if err != nil {
		t.Fatalf("加载旧版文档失败: %v", err)
	}

	// 缺失字段应该补默认值
	if loaded.CurrentPhase != models.PhaseConcept {
		t.Errorf("缺失的阶段字段应该补默认值, 实际是 %q", loaded.CurrentPhase)
	}
	if loaded.Concept.ChosenFramework != models.DefaultFramework {
		t.Errorf("缺失的叙事框架应该补默认值, 实际是 %q", loaded.Concept.ChosenFramework)
	}
	if loaded.PreProduction.MoodboardImages == nil {
		t.Error("缺失的前期制作子文档应该补默认值")
	}

	// 已有字段不能被默认值覆盖
	if loaded.Concept.SeedIdea != "a heist in the fog" {
		t.Errorf("已有字段不应被覆盖, 实际是 %q", loaded.Concept.SeedIdea)
	}
	if loaded.Concept.ChosenLogline != "One last job" {
		t.Errorf("已有字段不应被覆盖, 实际是 %q", loaded.Concept.ChosenLogline)
	}
	if len(loaded.Log) < 2 || loaded.Log[0] != "old entry" {
		t.Errorf("旧日志条目应该保留, 实际是 %v", loaded.Log)
	}
}

func TestLoadProjectTypeConflictResetsToDefault(t *testing.T) {
	service := newTestProjectService(t)

	// concept 存成了字符串而不是映射，log 存成了映射而不是序列
	raw := `{
		"project_name": "Mangled",
		"concept": "this should be an object",
		"log": {"oops": true}
	}`

	dir := filepath.Join(service.BaseDir, "mangled")
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("创建目录失败: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "mangled_state.json"), []byte(raw), 0644); err != nil {
		t.Fatalf("写入文档失败: %v", err)
	}

	loaded, err := service.LoadProject("Mangled")
	if err != nil {
		t.Fatalf("类型冲突应该降级为默认值而不是报错: %v", err)
	}

	if loaded.Concept.ChosenFramework != models.DefaultFramework {
		t.Errorf("冲突的 concept 应该整体回退默认值, 实际框架是 %q", loaded.Concept.ChosenFramework)
	}
	// 回退的默认日志 + 加载条目
	if loaded.Log[len(loaded.Log)-1] != "Project 'Mangled' loaded." {
		t.Errorf("冲突的 log 应该回退默认并追加加载条目, 实际是 %v", loaded.Log)
	}
}

func TestSaveProjectLogCap(t *testing.T) {
	service := newTestProjectService(t)

	state, err := service.CreateProject("Chatty")
	if err != nil {
		t.Fatalf("创建项目失败: %v", err)
	}

	// 远超上限的保存次数
	for i := 0; i < models.LogCap+20; i++ {
		if err := service.SaveProject(state); err != nil {
			t.Fatalf("第 %d 次保存失败: %v", i, err)
		}
	}

	loaded, err := service.LoadProject("Chatty")
	if err != nil {
		t.Fatalf("加载项目失败: %v", err)
	}
	if len(loaded.Log) > models.LogCap {
		t.Fatalf("日志应该不超过 %d 条, 实际有 %d 条", models.LogCap, len(loaded.Log))
	}
}

func TestSaveProjectInvalidState(t *testing.T) {
	service := newTestProjectService(t)

	state := models.DefaultProjectState()
	state.ProjectName = "   "

	if err := service.SaveProject(state); !apperrors.IsInvalidStateError(err) {
		t.Fatalf("无名状态保存应该返回 invalid_state, 实际是 %v", err)
	}
	if err := service.SaveProject(nil); !apperrors.IsInvalidStateError(err) {
		t.Fatalf("nil 状态保存应该返回 invalid_state, 实际是 %v", err)
	}
}

func TestSaveProjectRecomputesCleanedName(t *testing.T) {
	service := newTestProjectService(t)

	state := models.DefaultProjectState()
	state.ProjectName = "Renamed Film"
	state.CleanedName = "stale_value"

	if err := service.SaveProject(state); err != nil {
		t.Fatalf("保存失败: %v", err)
	}
	if state.CleanedName != "renamed_film" {
		t.Errorf("保存时应该重算规范名, 实际是 %q", state.CleanedName)
	}
}

func TestDeleteProject(t *testing.T) {
	service := newTestProjectService(t)

	if _, err := service.CreateProject("Doomed"); err != nil {
		t.Fatalf("创建项目失败: %v", err)
	}

	deleted, err := service.DeleteProject("Doomed")
	if err != nil {
		t.Fatalf("删除项目失败: %v", err)
	}
	if !deleted {
		t.Error("删除已有项目应该返回 true")
	}

	// 再删一次：不存在不算错误
	deleted, err = service.DeleteProject("Doomed")
	if err != nil {
		t.Fatalf("删除不存在的项目不应报错: %v", err)
	}
	if deleted {
		t.Error("删除不存在的项目应该返回 false")
	}
}

func TestListProjectsIgnoresOrphanDirs(t *testing.T) {
	service := newTestProjectService(t)

	if _, err := service.CreateProject("Real Film"); err != nil {
		t.Fatalf("创建项目失败: %v", err)
	}

	// 没有状态文件的目录不是项目
	if err := os.MkdirAll(filepath.Join(service.BaseDir, "ghost"), 0755); err != nil {
		t.Fatalf("创建孤儿目录失败: %v", err)
	}
	// 状态文件名不匹配目录名的也不算
	wrongDir := filepath.Join(service.BaseDir, "mismatch")
	if err := os.MkdirAll(wrongDir, 0755); err != nil {
		t.Fatalf("创建目录失败: %v", err)
	}
	if err := os.WriteFile(filepath.Join(wrongDir, "other_state.json"), []byte("{}"), 0644); err != nil {
		t.Fatalf("写入文件失败: %v", err)
	}

	names, err := service.ListProjects()
	if err != nil {
		t.Fatalf("列出项目失败: %v", err)
	}
	if len(names) != 1 || names[0] != "Real Film" {
		t.Errorf("只有状态文件齐全的项目才可见, 实际是 %v", names)
	}
}

func TestCreateProjectOverOrphanDir(t *testing.T) {
	service := newTestProjectService(t)

	// 残留的空目录不算名称占用
	if err := os.MkdirAll(filepath.Join(service.BaseDir, "orphan"), 0755); err != nil {
		t.Fatalf("创建孤儿目录失败: %v", err)
	}

	state, err := service.CreateProject("Orphan")
	if err != nil {
		t.Fatalf("孤儿目录上创建项目应该成功, 实际是 %v", err)
	}
	if state.CleanedName != "orphan" {
		t.Errorf("规范名应该是 orphan, 实际是 %q", state.CleanedName)
	}

	exists, err := service.ProjectExists("Orphan")
	if err != nil {
		t.Fatalf("检查项目存在性失败: %v", err)
	}
	if !exists {
		t.Error("创建后项目应该存在")
	}
}

func TestProjectExistsRequiresStateFile(t *testing.T) {
	service := newTestProjectService(t)

	if err := os.MkdirAll(filepath.Join(service.BaseDir, "hollow"), 0755); err != nil {
		t.Fatalf("创建目录失败: %v", err)
	}

	exists, err := service.ProjectExists("Hollow")
	if err != nil {
		t.Fatalf("检查项目存在性失败: %v", err)
	}
	if exists {
		t.Error("只有目录没有状态文件时项目不应被视为存在")
	}
}

func TestListProjects(t *testing.T) {
	service := newTestProjectService(t)

	names, err := service.ListProjects()
	if err != nil {
		t.Fatalf("列出项目失败: %v", err)
	}
	if len(names) != 0 {
		t.Errorf("空存储应该返回空列表, 实际是 %v", names)
	}

	for _, name := range []string{"Zeta Film", "Alpha Film"} {
		if _, err := service.CreateProject(name); err != nil {
			t.Fatalf("创建项目 %q 失败: %v", name, err)
		}
	}

	names, err = service.ListProjects()
	if err != nil {
		t.Fatalf("列出项目失败: %v", err)
	}
	if len(names) != 2 || names[0] != "Alpha Film" || names[1] != "Zeta Film" {
		t.Errorf("应该按字典序返回展示名, 实际是 %v", names)
	}
}
