// internal/app/app.go
package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/Corphon/FilmForgeAI/internal/api"
	"github.com/Corphon/FilmForgeAI/internal/config"
	"github.com/Corphon/FilmForgeAI/internal/di"
	"github.com/Corphon/FilmForgeAI/internal/services"
	"github.com/Corphon/FilmForgeAI/internal/utils"

	// 注册可用的生成提供者
	_ "github.com/Corphon/FilmForgeAI/internal/imagegen/providers/google"
	_ "github.com/Corphon/FilmForgeAI/internal/llm/providers/groq"
)

// serverInterface 抽象HTTP服务器，便于测试时替换
type serverInterface interface {
	ListenAndServe() error
	Shutdown(ctx context.Context) error
}

// App 应用程序实例
type App struct {
	config   *config.AppConfig
	router   http.Handler
	server   serverInterface
	stopChan chan os.Signal
}

// 全局应用实例
var instance *App

// GetApp 获取应用单例
func GetApp() *App {
	if instance == nil {
		instance = &App{
			stopChan: make(chan os.Signal, 1),
		}
	}
	return instance
}

// Initialize 完成应用启动前的全部准备工作
// 配置 -> 目录 -> 日志 -> 服务 -> 路由
func Initialize() error {
	app := GetApp()

	baseConfig, err := config.Load()
	if err != nil {
		return fmt.Errorf("加载配置失败: %w", err)
	}

	if err := createDirectories(baseConfig); err != nil {
		return err
	}

	if err := config.InitConfig(baseConfig.DataDir); err != nil {
		return fmt.Errorf("初始化配置系统失败: %w", err)
	}
	app.config = config.GetCurrentConfig()

	if err := initLogger(app.config.LogDir); err != nil {
		return fmt.Errorf("初始化日志系统失败: %w", err)
	}

	if err := InitServices(); err != nil {
		return fmt.Errorf("初始化服务失败: %w", err)
	}

	router, err := api.SetupRouter()
	if err != nil {
		return fmt.Errorf("设置路由失败: %w", err)
	}
	app.router = router

	return nil
}

// InitServices 按依赖顺序初始化所有服务并注册到容器
func InitServices() error {
	container := di.GetContainer()
	cfg := config.GetCurrentConfig()

	// LLM服务：初始化失败时降级为待机模式
	llmService, err := services.NewLLMService()
	if err != nil {
		utils.GetLogger().Warnf("LLM服务初始化失败，进入待机模式: %v", err)
		llmService = services.NewEmptyLLMService()
	}
	container.Register("llm", llmService)

	imageService, err := services.NewImageService()
	if err != nil {
		return fmt.Errorf("初始化图像服务失败: %w", err)
	}
	container.Register("image", imageService)

	projectService, err := services.NewProjectService(cfg.ProjectsDir)
	if err != nil {
		return fmt.Errorf("初始化项目服务失败: %w", err)
	}
	container.Register("project", projectService)

	filmService := services.NewFilmService(projectService, llmService, imageService)
	container.Register("film", filmService)

	return nil
}

// initLogger 初始化日志系统，日志文件按天命名
func initLogger(logDir string) error {
	logFile := filepath.Join(logDir,
		fmt.Sprintf("app_%s.log", time.Now().Format("2006-01-02")))
	return utils.InitLogger(logFile)
}

// createDirectories 创建应用所需的目录结构
func createDirectories(cfg *config.Config) error {
	dirs := []string{
		cfg.DataDir,
		cfg.ProjectsDir,
		cfg.LogDir,
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("创建目录失败 %s: %w", dir, err)
		}
	}
	return nil
}

// Run 启动HTTP服务器并阻塞到收到停止信号，随后优雅关闭
func Run() error {
	app := GetApp()

	if app.server == nil {
		app.server = &http.Server{
			Addr:    ":" + app.config.Port,
			Handler: app.router,
		}
	}

	go func() {
		if err := app.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			utils.GetLogger().Fatalf("启动服务器失败: %v", err)
		}
	}()

	utils.GetLogger().Infof("服务器启动在端口 %s", app.config.Port)

	signal.Notify(app.stopChan, syscall.SIGINT, syscall.SIGTERM)
	<-app.stopChan

	utils.GetLogger().Infof("正在关闭服务器...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("服务器强制关闭: %w", err)
	}

	Cleanup()
	utils.GetLogger().Infof("服务器优雅关闭完成")
	return nil
}

// Cleanup 释放容器中的服务资源
func Cleanup() {
	di.GetContainer().Clear()
}
