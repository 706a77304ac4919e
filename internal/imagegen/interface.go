// internal/imagegen/interface.go
package imagegen

import (
	"context"
	"errors"

	"github.com/Corphon/FilmForgeAI/internal/models"
)

// 错误定义
var ErrUnknownProvider = errors.New("未知的图像提供者")

// Provider 定义图像生成提供者必须实现的接口
// 返回有序的内容片段序列；空结果视为失败，由提供者直接返回 error
type Provider interface {
	// 初始化提供者，传入配置
	Initialize(config map[string]string) error

	// 获取提供者名称
	GetName() string

	// 按文本提示生成图像（可能混有文本片段）
	GenerateImages(ctx context.Context, prompt string) ([]models.ContentPart, error)
}

// ProviderFactory 提供者工厂函数类型
type ProviderFactory func() Provider

var providers = make(map[string]ProviderFactory)

// Register 注册提供者工厂
func Register(name string, factory ProviderFactory) {
	providers[name] = factory
}

// GetProvider 创建指定名称的提供者实例
func GetProvider(name string, config map[string]string) (Provider, error) {
	factory, exists := providers[name]
	if !exists {
		return nil, ErrUnknownProvider
	}

	provider := factory()
	err := provider.Initialize(config)
	return provider, err
}

// AllError 判断片段序列是否全部为错误片段
func AllError(parts []models.ContentPart) bool {
	if len(parts) == 0 {
		return true
	}
	for _, part := range parts {
		if part.Type != "error" {
			return false
		}
	}
	return true
}
