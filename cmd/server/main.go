// cmd/server/main.go
package main

import (
	"fmt"
	"log"

	"github.com/Corphon/FilmForgeAI/internal/app"
	"github.com/Corphon/FilmForgeAI/internal/config"
	"github.com/Corphon/FilmForgeAI/internal/di"
)

func main() {
	log.Println("🚀 启动 FilmForgeAI 服务器...")

	// 1. 初始化应用（配置、目录、日志、服务、路由）
	if err := app.Initialize(); err != nil {
		log.Fatalf("初始化应用失败: %v", err)
	}
	log.Println("✅ 应用初始化完成")

	// 2. 关键服务健康检查
	if err := performHealthCheck(); err != nil {
		log.Printf("⚠️ 服务健康检查警告: %v", err)
	}

	cfg := config.GetCurrentConfig()
	log.Printf("🌐 服务器启动在端口 %s", cfg.Port)
	log.Printf("🔗 访问地址: http://localhost:%s/api/health", cfg.Port)

	// 3. 运行并等待优雅关闭
	if err := app.Run(); err != nil {
		log.Fatalf("❌ 服务器运行失败: %v", err)
	}
}

// 健康检查函数
func performHealthCheck() error {
	container := di.GetContainer()

	// 检查关键服务是否已注册
	criticalServices := []string{"llm", "image", "project", "film"}

	for _, serviceName := range criticalServices {
		if service := container.Get(serviceName); service == nil {
			return fmt.Errorf("关键服务未注册: %s", serviceName)
		}
	}

	log.Println("✅ 服务健康检查通过")
	return nil
}
