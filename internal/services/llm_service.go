// internal/services/llm_service.go
package services

import (
	"context"
	"crypto/md5"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/Corphon/FilmForgeAI/internal/config"
	apperrors "github.com/Corphon/FilmForgeAI/internal/errors"
	"github.com/Corphon/FilmForgeAI/internal/llm"
	"github.com/Corphon/FilmForgeAI/internal/utils"
)

// LLMService 提供统一的大语言模型调用接口
type LLMService struct {
	providerMutex sync.RWMutex
	provider      llm.Provider
	providerName  string
	cache         *llmCache
	isReady       bool
	readyState    string
}

type llmCache struct {
	entries    map[string]*llmCacheEntry
	mutex      sync.RWMutex
	expiration time.Duration
}

type llmCacheEntry struct {
	response  *llm.CompletionResponse
	createdAt time.Time
}

// NewLLMService 创建一个新的LLM服务
func NewLLMService() (*LLMService, error) {
	service := createBaseLLMService()

	cfg := config.GetCurrentConfig()
	if cfg == nil {
		service.readyState = "Failed to retrieve configuration"
		return service, nil
	}

	if cfg.LLMProvider == "" || (cfg.LLMConfig != nil && cfg.LLMConfig["api_key"] == "") {
		service.readyState = "API key not configured"
		return service, nil
	}

	provider, err := llm.GetProvider(cfg.LLMProvider, cfg.LLMConfig)
	if err != nil {
		service.readyState = fmt.Sprintf("Initialization failed: %v", err)
		return service, nil // 返回未就绪服务而不是错误
	}

	service.provider = provider
	service.providerName = cfg.LLMProvider
	service.isReady = true
	service.readyState = "Ready"

	return service, nil
}

// NewEmptyLLMService 创建一个空的LLM服务实例作为后备方案
func NewEmptyLLMService() *LLMService {
	service := createBaseLLMService()
	service.providerName = "empty"
	service.readyState = "Standby Service Mode – Please configure the API key in settings"
	return service
}

// NewLLMServiceWithProvider 使用指定提供商创建LLM服务（测试用）
func NewLLMServiceWithProvider(provider llm.Provider) *LLMService {
	service := createBaseLLMService()
	service.provider = provider
	service.providerName = provider.GetName()
	service.isReady = true
	service.readyState = "Ready"
	return service
}

func createBaseLLMService() *LLMService {
	return &LLMService{
		provider:     nil,
		providerName: "",
		isReady:      false,
		readyState:   "Uninitialized",
		cache: &llmCache{
			entries:    make(map[string]*llmCacheEntry),
			expiration: 30 * time.Minute,
		},
	}
}

// IsReady 返回服务是否已就绪
func (s *LLMService) IsReady() bool {
	s.providerMutex.RLock()
	defer s.providerMutex.RUnlock()

	return s.provider != nil && s.isReady
}

// GetReadyState 返回服务就绪状态描述
func (s *LLMService) GetReadyState() string {
	s.providerMutex.RLock()
	defer s.providerMutex.RUnlock()

	if s.provider != nil && s.isReady {
		return "Ready"
	}
	return s.readyState
}

// GetProviderName 返回当前提供商名称
func (s *LLMService) GetProviderName() string {
	s.providerMutex.RLock()
	defer s.providerMutex.RUnlock()
	return s.providerName
}

// UpdateProvider 更新LLM服务的提供商
func (s *LLMService) UpdateProvider(providerName string, providerConfig map[string]string) error {
	provider, err := llm.GetProvider(providerName, providerConfig)
	if err != nil {
		s.providerMutex.Lock()
		s.isReady = false
		s.readyState = fmt.Sprintf("Configuration failed: %v", err)
		s.providerMutex.Unlock()
		return err
	}

	s.providerMutex.Lock()
	defer s.providerMutex.Unlock()

	s.provider = provider
	s.providerName = providerName
	s.isReady = true
	s.readyState = "Ready"

	// 清理缓存
	s.cache = &llmCache{
		entries:    make(map[string]*llmCacheEntry),
		expiration: 30 * time.Minute,
	}

	return nil
}

// CompleteText 执行一次文本补全，带缓存
// 服务未就绪时返回 generation_failed 错误而不是触网
func (s *LLMService) CompleteText(ctx context.Context, systemPrompt, prompt string) (string, error) {
	s.providerMutex.RLock()
	provider := s.provider
	ready := s.isReady
	readyState := s.readyState
	s.providerMutex.RUnlock()

	if !ready || provider == nil {
		return "", apperrors.NewGenerationError(
			fmt.Sprintf("text generation unavailable: %s", readyState), nil)
	}

	cacheKey := s.generateCacheKey(prompt, systemPrompt)
	if cached := s.checkCache(cacheKey); cached != nil {
		return cached.Text, nil
	}

	resp, err := provider.CompleteText(ctx, llm.CompletionRequest{
		Prompt:       prompt,
		SystemPrompt: systemPrompt,
		MaxTokens:    4096,
		Temperature:  0.7,
	})
	if err != nil {
		utils.GetLogger().Errorf("LLM completion failed: %v", err)
		return "", apperrors.NewGenerationError("text generation failed", err)
	}

	text := strings.TrimSpace(resp.Text)
	if text == "" {
		return "", apperrors.NewGenerationError("text generation returned empty content", nil)
	}

	s.addToCache(cacheKey, resp)
	return text, nil
}

func (s *LLMService) generateCacheKey(prompt, systemPrompt string) string {
	s.providerMutex.RLock()
	providerName := s.providerName
	s.providerMutex.RUnlock()

	data := fmt.Sprintf("%s|%s|%s", providerName, systemPrompt, prompt)
	return fmt.Sprintf("%x", md5.Sum([]byte(data)))
}

func (s *LLMService) checkCache(key string) *llm.CompletionResponse {
	s.cache.mutex.RLock()
	defer s.cache.mutex.RUnlock()

	entry, exists := s.cache.entries[key]
	if !exists || time.Since(entry.createdAt) > s.cache.expiration {
		return nil
	}
	return entry.response
}

func (s *LLMService) addToCache(key string, response *llm.CompletionResponse) {
	s.cache.mutex.Lock()
	defer s.cache.mutex.Unlock()

	s.cache.entries[key] = &llmCacheEntry{
		response:  response,
		createdAt: time.Now(),
	}
}
