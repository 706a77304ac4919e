// internal/config/config.go
package config

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/joho/godotenv"
)

// 当前配置的单例实例
var (
	currentConfig *AppConfig
	configMutex   sync.RWMutex
	configFile    string
)

// AppConfig 包含应用程序的所有配置
type AppConfig struct {
	// 基础配置
	Port         string `json:"port"`
	GroqAPIKey   string `json:"groq_api_key,omitempty"`
	GoogleAPIKey string `json:"google_api_key,omitempty"`
	DataDir      string `json:"data_dir"`
	ProjectsDir  string `json:"projects_dir"`
	LogDir       string `json:"log_dir"`
	DebugMode    bool   `json:"debug_mode"`

	// 文本生成提供者配置
	LLMProvider string            `json:"llm_provider"`
	LLMConfig   map[string]string `json:"llm_config"`

	// 图像生成提供者配置
	ImageProvider string            `json:"image_provider"`
	ImageConfig   map[string]string `json:"image_config"`
}

// Config 存储从环境变量加载的基础配置
type Config struct {
	Port         string
	GroqAPIKey   string
	GoogleAPIKey string
	DataDir      string
	ProjectsDir  string
	LogDir       string
	DebugMode    bool
}

// Load 从环境变量加载配置
func Load() (*Config, error) {
	// 尝试加载.env文件（可选）
	godotenv.Load()

	config := &Config{
		Port:         getEnv("PORT", "8080"),
		GroqAPIKey:   getEnv("GROQ_API_KEY", ""),
		GoogleAPIKey: getEnv("GOOGLE_API_KEY", ""),
		DataDir:      getEnvPath("DATA_DIR", "data"),
		ProjectsDir:  getEnvPath("PROJECTS_DIR", "filmforge_projects"),
		LogDir:       getEnvPath("LOG_DIR", "logs"),
		DebugMode:    getEnvBool("DEBUG_MODE", true),
	}

	if config.GroqAPIKey == "" {
		// 只记录警告，不返回错误
		log.Println("警告: 未设置GROQ_API_KEY，文本生成功能不可用")
	}
	if config.GoogleAPIKey == "" {
		log.Println("警告: 未设置GOOGLE_API_KEY，图像生成功能不可用")
	}

	return config, nil
}

// getEnv 获取环境变量，如果不存在则返回默认值
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvPath 获取环境变量表示的路径，如果不存在则返回默认值
func getEnvPath(key, defaultValue string) string {
	path := getEnv(key, defaultValue)

	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := os.MkdirAll(path, 0755); err != nil {
			fmt.Printf("警告: 创建目录失败 %s: %v\n", path, err)
		}
	}

	return path
}

// getEnvBool 获取布尔类型环境变量
func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value == "true" || value == "1" || value == "yes"
}

// InitConfig 初始化配置管理器
func InitConfig(dataDir string) error {
	configFile = filepath.Join(dataDir, "config.json")

	baseConfig, err := Load()
	if err != nil {
		return err
	}

	configMutex.Lock()
	defer configMutex.Unlock()

	currentConfig = &AppConfig{
		Port:         baseConfig.Port,
		GroqAPIKey:   baseConfig.GroqAPIKey,
		GoogleAPIKey: baseConfig.GoogleAPIKey,
		DataDir:      dataDir,
		ProjectsDir:  baseConfig.ProjectsDir,
		LogDir:       baseConfig.LogDir,
		DebugMode:    baseConfig.DebugMode,
		LLMProvider:  "groq",
		LLMConfig: map[string]string{
			"api_key":       baseConfig.GroqAPIKey,
			"default_model": "llama-3.3-70b-versatile",
		},
		ImageProvider: "google",
		ImageConfig: map[string]string{
			"api_key": baseConfig.GoogleAPIKey,
			"model":   "gemini-2.0-flash-preview-image-generation",
		},
	}

	// 尝试从文件加载已保存的配置，保留文件中的提供者设置
	if _, err := os.Stat(configFile); !os.IsNotExist(err) {
		data, err := os.ReadFile(configFile)
		if err == nil {
			var savedConfig AppConfig
			if json.Unmarshal(data, &savedConfig) == nil {
				savedConfig.Port = baseConfig.Port
				savedConfig.DataDir = dataDir
				savedConfig.ProjectsDir = baseConfig.ProjectsDir
				savedConfig.LogDir = baseConfig.LogDir
				savedConfig.DebugMode = baseConfig.DebugMode

				// 文件中没有密钥时回填环境变量的密钥
				if savedConfig.LLMConfig != nil && savedConfig.LLMConfig["api_key"] == "" {
					savedConfig.LLMConfig["api_key"] = baseConfig.GroqAPIKey
				}
				if savedConfig.ImageConfig != nil && savedConfig.ImageConfig["api_key"] == "" {
					savedConfig.ImageConfig["api_key"] = baseConfig.GoogleAPIKey
				}

				currentConfig = &savedConfig
			}
		}
	}

	return SaveConfig()
}

// GetCurrentConfig 返回当前配置的副本
func GetCurrentConfig() *AppConfig {
	configMutex.RLock()
	defer configMutex.RUnlock()

	if currentConfig == nil {
		baseConfig, _ := Load()
		return &AppConfig{
			Port:         baseConfig.Port,
			GroqAPIKey:   baseConfig.GroqAPIKey,
			GoogleAPIKey: baseConfig.GoogleAPIKey,
			DataDir:      baseConfig.DataDir,
			ProjectsDir:  baseConfig.ProjectsDir,
			LogDir:       baseConfig.LogDir,
			DebugMode:    baseConfig.DebugMode,
			LLMProvider:  "groq",
			LLMConfig: map[string]string{
				"api_key": baseConfig.GroqAPIKey,
			},
			ImageProvider: "google",
			ImageConfig: map[string]string{
				"api_key": baseConfig.GoogleAPIKey,
			},
		}
	}

	configCopy := *currentConfig
	return &configCopy
}

// UpdateLLMConfig 更新文本生成提供者配置
func UpdateLLMConfig(provider string, config map[string]string) error {
	configMutex.Lock()
	defer configMutex.Unlock()

	if currentConfig == nil {
		return fmt.Errorf("配置系统未初始化")
	}

	currentConfig.LLMProvider = provider
	currentConfig.LLMConfig = config

	return SaveConfig()
}

// SaveConfig 保存当前配置到文件
func SaveConfig() error {
	if currentConfig == nil {
		return fmt.Errorf("没有配置可保存")
	}

	dir := filepath.Dir(configFile)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("创建配置目录失败: %w", err)
		}
	}

	data, err := json.MarshalIndent(currentConfig, "", "  ")
	if err != nil {
		return fmt.Errorf("序列化配置失败: %w", err)
	}

	return os.WriteFile(configFile, data, 0644)
}
