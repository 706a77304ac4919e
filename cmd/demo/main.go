// cmd/demo/main.go
package main

import (
	"flag"
	"fmt"
	"log"
	"strings"

	"github.com/Corphon/FilmForgeAI/internal/client"
	"github.com/Corphon/FilmForgeAI/internal/models"
)

func main() {
	serverURL := flag.String("server", "http://localhost:8080", "FilmForgeAI 服务器地址")
	projectName := flag.String("project", "Demo Film", "演示用的项目名称")
	flag.Parse()

	fmt.Println("🎬 FilmForgeAI Client Demo")
	fmt.Println("==========================")
	fmt.Printf("服务器: %s\n", *serverURL)

	apiClient := client.NewAPIClient(*serverURL)
	mirror := client.NewProjectMirror(apiClient)

	// 列出现有项目
	projects, err := apiClient.ListProjects()
	if err != nil {
		log.Fatalf("❌ 无法连接服务器: %v", err)
	}
	fmt.Printf("📂 现有项目: %v\n", projects)

	// 创建或加载演示项目
	state, err := mirror.CreateProject(*projectName)
	if err != nil {
		fmt.Printf("⚠️ 创建失败（%v），尝试加载已有项目\n", err)
		state, err = mirror.LoadProject(*projectName)
		if err != nil {
			log.Fatalf("❌ 加载项目失败: %v", err)
		}
	}
	fmt.Printf("✅ 项目就绪: %s (阶段: %s)\n", state.ProjectName, state.CurrentPhase)

	// 概念开发：失败（通常是未配置API密钥）时继续演示本地操作
	if text, err := mirror.GenerateConcepts("A lighthouse keeper discovers the light attracts something from the deep"); err != nil {
		fmt.Printf("⚠️ 概念生成不可用: %v\n", err)
	} else {
		fmt.Printf("💡 初始概念:\n%s\n", preview(text))

		if synopsis, err := mirror.GenerateSynopsis(client.SynopsisOptions{
			Logline: "A lonely keeper must extinguish the only light that keeps her sane",
			Theme:   "Isolation",
		}); err != nil {
			fmt.Printf("⚠️ 梗概生成失败: %v\n", err)
		} else {
			fmt.Printf("📖 梗概:\n%s\n", preview(synopsis))
		}
	}

	// 角色开发：保存角色不依赖生成协作者
	character, err := mirror.SaveCharacter("Mara", "Protagonist", models.CharacterProfile{
		Backstory:  "Grew up on the mainland, took the lighthouse post to disappear",
		Motivation: "Prove she can endure what broke her father",
		Flaw:       "Refuses to ask for help",
	})
	if err != nil {
		fmt.Printf("⚠️ 保存角色失败: %v\n", err)
	} else {
		fmt.Printf("👤 角色已保存: Mara (%s)\n", character.Role)
	}

	if arc, err := mirror.GenerateArc("Mara"); err != nil {
		fmt.Printf("⚠️ 弧线生成不可用: %v\n", err)
	} else {
		fmt.Printf("📈 角色弧线:\n%s\n", preview(arc))
	}

	// 剧本：全文更新是纯持久化操作
	script := "INT. LIGHTHOUSE - NIGHT\n\nMARA climbs the spiral stairs, lamp oil in hand. " +
		"The beam above her flickers in a rhythm that is almost, but not quite, a heartbeat."
	if err := mirror.UpdateFullScript(script); err != nil {
		fmt.Printf("⚠️ 更新剧本失败: %v\n", err)
	} else {
		fmt.Println("📝 剧本全文已更新")
	}

	if analysis, err := mirror.AnalyzeIssues(); err != nil {
		fmt.Printf("⚠️ 剧本分析不可用: %v\n", err)
	} else {
		fmt.Printf("🔍 分析结果:\n%s\n", preview(analysis))
	}

	// 把本地副本整体保存回服务器并同步
	if err := mirror.Save(); err != nil {
		fmt.Printf("⚠️ 保存项目失败: %v\n", err)
	} else {
		saved := mirror.Current()
		fmt.Printf("💾 项目已保存，last_saved=%v，日志 %d 条\n", saved.LastSaved, len(saved.Log))
	}

	fmt.Println("🏁 演示结束")
}

// preview 截断长文本，只展示开头
func preview(text string) string {
	text = strings.TrimSpace(text)
	if len(text) > 400 {
		return text[:400] + "\n...(truncated)"
	}
	return text
}
