// internal/imagegen/providers/google/google.go
package google

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"io"
	"net/http"
	"strings"

	// 注册标准图像解码器，用于识别返回图像的真实格式
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/Corphon/FilmForgeAI/internal/imagegen"
	"github.com/Corphon/FilmForgeAI/internal/models"
)

func init() {
	imagegen.Register("google", func() imagegen.Provider {
		return &Provider{
			baseURL: "https://generativelanguage.googleapis.com/v1beta",
		}
	})
}

type Provider struct {
	apiKey  string
	baseURL string
	client  *http.Client
	model   string
}

func (p *Provider) Initialize(config map[string]string) error {
	apiKey, exists := config["api_key"]
	if !exists || apiKey == "" {
		return errors.New("Google GenAI API密钥未提供")
	}

	p.apiKey = apiKey
	p.client = &http.Client{}

	if model, exists := config["model"]; exists && model != "" {
		p.model = model
	} else {
		p.model = "gemini-2.0-flash-preview-image-generation"
	}

	if baseURL, exists := config["base_url"]; exists && baseURL != "" {
		p.baseURL = baseURL
	}

	return nil
}

func (p *Provider) GetName() string {
	return "GoogleGenAI"
}

// GenerateImages 调用 generateContent，请求文本+图像双模态输出
func (p *Provider) GenerateImages(ctx context.Context, prompt string) ([]models.ContentPart, error) {
	requestBody := map[string]interface{}{
		"contents": []map[string]interface{}{
			{
				"parts": []map[string]string{
					{"text": buildImagePrompt(prompt)},
				},
			},
		},
		"generationConfig": map[string]interface{}{
			"responseModalities": []string{"TEXT", "IMAGE"},
		},
	}

	jsonData, err := json.Marshal(requestBody)
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", p.baseURL, p.model, p.apiKey)
	httpReq, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(httpResp.Body)
		return nil, fmt.Errorf("Google GenAI错误(%d): %s", httpResp.StatusCode, string(body))
	}

	var response struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text       string `json:"text"`
					InlineData *struct {
						MimeType string `json:"mimeType"`
						Data     string `json:"data"`
					} `json:"inlineData"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
		PromptFeedback json.RawMessage `json:"promptFeedback"`
	}

	if err := json.NewDecoder(httpResp.Body).Decode(&response); err != nil {
		return nil, err
	}

	if len(response.Candidates) == 0 {
		detail := "响应中没有候选内容"
		if len(response.PromptFeedback) > 0 {
			detail += ", prompt feedback: " + string(response.PromptFeedback)
		}
		return nil, errors.New("Google GenAI响应结构无效: " + detail)
	}

	var parts []models.ContentPart
	for _, part := range response.Candidates[0].Content.Parts {
		switch {
		case part.InlineData != nil:
			parts = append(parts, decodeImagePart(part.InlineData.MimeType, part.InlineData.Data))
		case part.Text != "":
			parts = append(parts, models.ContentPart{Type: "text", Content: part.Text})
		}
	}

	if len(parts) == 0 {
		return nil, errors.New("图像生成未返回任何内容片段")
	}

	return parts, nil
}

// decodeImagePart 校验图像数据并识别真实格式
// 解码失败时退回API声明的MIME类型，数据本身无效则产出 error 片段
func decodeImagePart(mimeType, data string) models.ContentPart {
	raw, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return models.ContentPart{Type: "error", Content: fmt.Sprintf("无法处理图像数据: %v", err)}
	}

	_, format, err := image.DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		if strings.HasPrefix(mimeType, "image/") {
			return models.ContentPart{Type: mimeType, Content: data}
		}
		return models.ContentPart{Type: "error", Content: fmt.Sprintf("无法识别的图像格式: %v", err)}
	}

	return models.ContentPart{Type: "image/" + format, Content: data}
}

// buildImagePrompt 在调用方提示之上加一层取图指令
func buildImagePrompt(prompt string) string {
	return fmt.Sprintf(`Generate 3 distinct visual concepts or images based on the following ideas and descriptions for a film:

---
%s
---

Focus on creating varied visual styles or content for each image, inspired by the text above.`, prompt)
}
