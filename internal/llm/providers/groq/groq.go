// internal/llm/providers/groq/groq.go
package groq

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Corphon/FilmForgeAI/internal/llm"
)

func init() {
	llm.Register("groq", func() llm.Provider {
		return &Provider{
			baseURL: "https://api.groq.com/openai/v1",
			recommendedModels: []string{
				"llama-3.3-70b-versatile",
				"llama-3.1-8b-instant",
				"mixtral-8x7b-32768",
			},
			maxRetries:   3,
			initialDelay: 5 * time.Second,
		}
	})
}

type Provider struct {
	apiKey            string
	baseURL           string
	client            *http.Client
	defaultModel      string
	recommendedModels []string

	// 限流重试参数：仅对 429 重试，指数退避
	maxRetries   int
	initialDelay time.Duration
}

func (p *Provider) Initialize(config map[string]string) error {
	apiKey, exists := config["api_key"]
	if !exists || apiKey == "" {
		return errors.New("Groq API密钥未提供")
	}

	p.apiKey = apiKey
	p.client = &http.Client{}

	if model, exists := config["default_model"]; exists && model != "" {
		p.defaultModel = model
	} else {
		p.defaultModel = "llama-3.3-70b-versatile"
	}

	if baseURL, exists := config["base_url"]; exists && baseURL != "" {
		p.baseURL = baseURL
	}

	return nil
}

func (p *Provider) GetName() string {
	return "Groq"
}

func (p *Provider) GetSupportedModels() []string {
	return p.recommendedModels
}

func (p *Provider) CompleteText(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	model := req.Model
	if model == "" {
		model = p.defaultModel
	}

	// 构建请求
	messages := []map[string]string{
		{"role": "user", "content": req.Prompt},
	}
	if req.SystemPrompt != "" {
		messages = append([]map[string]string{
			{"role": "system", "content": req.SystemPrompt},
		}, messages...)
	}

	requestBody := map[string]interface{}{
		"model":    model,
		"messages": messages,
	}
	if req.Temperature > 0 {
		requestBody["temperature"] = req.Temperature
	}
	if req.MaxTokens > 0 {
		requestBody["max_tokens"] = req.MaxTokens
	}
	if len(req.StopWords) > 0 {
		requestBody["stop"] = req.StopWords
	}

	jsonData, err := json.Marshal(requestBody)
	if err != nil {
		return nil, err
	}

	// 限流时指数退避重试，其他失败不重试
	delay := p.initialDelay
	var lastErr error
	for attempt := 0; attempt < p.maxRetries; attempt++ {
		resp, retryable, err := p.doRequest(ctx, jsonData)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if !retryable {
			return nil, err
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}

	return nil, fmt.Errorf("超过最大重试次数(%d): %w", p.maxRetries, lastErr)
}

// doRequest 发送单次请求，retryable 标记是否为限流类失败
func (p *Provider) doRequest(ctx context.Context, jsonData []byte) (*llm.CompletionResponse, bool, error) {
	httpReq, err := http.NewRequestWithContext(
		ctx,
		"POST",
		p.baseURL+"/chat/completions",
		bytes.NewBuffer(jsonData),
	)
	if err != nil {
		return nil, false, err
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)

	httpResp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, false, err
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode == http.StatusTooManyRequests {
		body, _ := io.ReadAll(httpResp.Body)
		return nil, true, fmt.Errorf("Groq API限流(429): %s", string(body))
	}

	if httpResp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(httpResp.Body)
		return nil, false, fmt.Errorf("Groq API错误(%d): %s", httpResp.StatusCode, string(body))
	}

	var response struct {
		Choices []struct {
			Message struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"message"`
			FinishReason string `json:"finish_reason"`
		} `json:"choices"`
		Usage struct {
			PromptTokens     int `json:"prompt_tokens"`
			CompletionTokens int `json:"completion_tokens"`
			TotalTokens      int `json:"total_tokens"`
		} `json:"usage"`
		Model string `json:"model"`
	}

	if err := json.NewDecoder(httpResp.Body).Decode(&response); err != nil {
		return nil, false, err
	}

	if len(response.Choices) == 0 {
		return nil, false, errors.New("Groq未返回任何结果")
	}
	if response.Choices[0].Message.Content == "" {
		return nil, false, errors.New("Groq返回了空响应")
	}

	return &llm.CompletionResponse{
		Text:         response.Choices[0].Message.Content,
		FinishReason: response.Choices[0].FinishReason,
		TokensUsed:   response.Usage.TotalTokens,
		PromptTokens: response.Usage.PromptTokens,
		OutputTokens: response.Usage.CompletionTokens,
		ModelName:    response.Model,
		ProviderName: p.GetName(),
	}, false, nil
}
