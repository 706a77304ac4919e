// internal/services/image_service.go
package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/Corphon/FilmForgeAI/internal/config"
	apperrors "github.com/Corphon/FilmForgeAI/internal/errors"
	"github.com/Corphon/FilmForgeAI/internal/imagegen"
	"github.com/Corphon/FilmForgeAI/internal/models"
	"github.com/Corphon/FilmForgeAI/internal/utils"
)

// ImageService 提供统一的图像生成调用接口
type ImageService struct {
	providerMutex sync.RWMutex
	provider      imagegen.Provider
	providerName  string
	isReady       bool
	readyState    string
}

// NewImageService 创建一个新的图像生成服务
func NewImageService() (*ImageService, error) {
	service := &ImageService{
		readyState: "Uninitialized",
	}

	cfg := config.GetCurrentConfig()
	if cfg == nil {
		service.readyState = "Failed to retrieve configuration"
		return service, nil
	}

	if cfg.ImageProvider == "" || (cfg.ImageConfig != nil && cfg.ImageConfig["api_key"] == "") {
		service.readyState = "API key not configured"
		return service, nil
	}

	provider, err := imagegen.GetProvider(cfg.ImageProvider, cfg.ImageConfig)
	if err != nil {
		service.readyState = fmt.Sprintf("Initialization failed: %v", err)
		return service, nil
	}

	service.provider = provider
	service.providerName = cfg.ImageProvider
	service.isReady = true
	service.readyState = "Ready"

	return service, nil
}

// NewImageServiceWithProvider 使用指定提供商创建图像服务（测试用）
func NewImageServiceWithProvider(provider imagegen.Provider) *ImageService {
	return &ImageService{
		provider:     provider,
		providerName: provider.GetName(),
		isReady:      true,
		readyState:   "Ready",
	}
}

// IsReady 返回服务是否已就绪
func (s *ImageService) IsReady() bool {
	s.providerMutex.RLock()
	defer s.providerMutex.RUnlock()
	return s.provider != nil && s.isReady
}

// GetReadyState 返回服务就绪状态描述
func (s *ImageService) GetReadyState() string {
	s.providerMutex.RLock()
	defer s.providerMutex.RUnlock()

	if s.provider != nil && s.isReady {
		return "Ready"
	}
	return s.readyState
}

// GenerateImages 生成一组图文内容
// 返回的切片全为错误条目或为空时视为生成失败
func (s *ImageService) GenerateImages(ctx context.Context, prompt string) ([]models.ContentPart, error) {
	s.providerMutex.RLock()
	provider := s.provider
	ready := s.isReady
	readyState := s.readyState
	s.providerMutex.RUnlock()

	if !ready || provider == nil {
		return nil, apperrors.NewGenerationError(
			fmt.Sprintf("image generation unavailable: %s", readyState), nil)
	}

	parts, err := provider.GenerateImages(ctx, prompt)
	if err != nil {
		utils.GetLogger().Errorf("Image generation failed: %v", err)
		return nil, apperrors.NewGenerationError("image generation failed", err)
	}

	if imagegen.AllError(parts) {
		return nil, apperrors.NewGenerationError("image generation returned no usable content", nil)
	}

	return parts, nil
}
