// internal/models/project_test.go
package models

import (
	"fmt"
	"testing"
)

func TestNormalizeName(t *testing.T) {
	cases := []struct {
		input string
		want  string
	}{
		{"Midnight Run", "midnight_run"},
		{"  Midnight Run  ", "midnight_run"},
		{"MIDNIGHT RUN", "midnight_run"},
		{"already_normal", "already_normal"},
		{"", ""},
		{"   ", ""},
	}

	for _, c := range cases {
		got := NormalizeName(c.input)
		if got != c.want {
			t.Errorf("NormalizeName(%q) = %q, 期望 %q", c.input, got, c.want)
		}
	}
}

func TestNormalizeNameIdempotent(t *testing.T) {
	inputs := []string{"Midnight Run", "  A  B  ", "already_normal", "MiXeD Case Name"}
	for _, input := range inputs {
		once := NormalizeName(input)
		twice := NormalizeName(once)
		if once != twice {
			t.Errorf("规范化应该幂等: NormalizeName(%q)=%q, 再次规范化得到 %q", input, once, twice)
		}
	}
}

func TestNormalizeNameCollision(t *testing.T) {
	// 大小写和首尾空白不同的名称应该映射到同一个规范名
	if NormalizeName("Midnight Run") != NormalizeName("  midnight run ") {
		t.Error("仅大小写/空白不同的名称应该规范化为同一个值")
	}
}

func TestDefaultProjectState(t *testing.T) {
	state := DefaultProjectState()

	if state.CurrentPhase != PhaseConcept {
		t.Errorf("默认阶段应该是 %s, 实际是 %s", PhaseConcept, state.CurrentPhase)
	}
	if state.Concept.ChosenFramework != DefaultFramework {
		t.Errorf("默认叙事框架应该是 %q, 实际是 %q", DefaultFramework, state.Concept.ChosenFramework)
	}
	if state.Characters == nil {
		t.Error("角色映射应该被初始化")
	}
	if state.PreProduction.MoodboardImages == nil || state.PreProduction.StoryboardImages == nil {
		t.Error("图像切片应该被初始化为空切片")
	}
	if state.LastSaved != nil {
		t.Error("last_saved 只应由持久化操作写入")
	}
	if len(state.Log) != 1 {
		t.Errorf("初始日志应该只有1条, 实际有 %d 条", len(state.Log))
	}
}

func TestSetName(t *testing.T) {
	state := DefaultProjectState()
	state.SetName("  Midnight Run ")

	if state.ProjectName != "  Midnight Run " {
		t.Errorf("展示名应该保持原样, 实际是 %q", state.ProjectName)
	}
	if state.CleanedName != "midnight_run" {
		t.Errorf("规范名应该是 midnight_run, 实际是 %q", state.CleanedName)
	}
}

func TestAppendLogCap(t *testing.T) {
	state := DefaultProjectState()

	for i := 0; i < LogCap*3; i++ {
		state.AppendLog(fmt.Sprintf("entry %d", i))
	}

	if len(state.Log) != LogCap {
		t.Fatalf("日志应该被裁剪到 %d 条, 实际有 %d 条", LogCap, len(state.Log))
	}

	// 保留的应该是最近的条目，顺序不变
	last := state.Log[len(state.Log)-1]
	if last != fmt.Sprintf("entry %d", LogCap*3-1) {
		t.Errorf("最后一条日志应该是最新追加的, 实际是 %q", last)
	}
	first := state.Log[0]
	if first != fmt.Sprintf("entry %d", LogCap*2) {
		t.Errorf("最早保留的日志不正确: %q", first)
	}
}
