// internal/llm/providers/openai/openai.go
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/tbellini/arcanum/internal/llm"
)

func init() {
	llm.Register("openai", func() llm.Provider {
		return &Provider{
			supportedModels: []string{
				"gpt-4o",
				"gpt-4o-mini",
				"gpt-4.1",
				"gpt-4.1-mini",
				"o4-mini",
			},
			baseURL: "https://api.openai.com/v1",
		}
	})
}

type Provider struct {
	apiKey          string
	baseURL         string
	client          *http.Client
	defaultModel    string
	supportedModels []string
}

func (p *Provider) Initialize(config map[string]string) error {
	apiKey, exists := config["api_key"]
	if !exists || apiKey == "" {
		return errors.New("OpenAI API key not provided")
	}

	p.apiKey = apiKey
	p.client = &http.Client{}

	if model, exists := config["default_model"]; exists && model != "" {
		p.defaultModel = model
	} else {
		p.defaultModel = "gpt-4o"
	}

	if baseURL, exists := config["base_url"]; exists && baseURL != "" {
		p.baseURL = baseURL
	}

	return nil
}

func (p *Provider) GetName() string {
	return "OpenAI"
}

func (p *Provider) GetSupportedModels() []string {
	return p.supportedModels
}

// buildResponseFormat translates the provider-independent constraint into the
// chat completions response_format parameter.
func buildResponseFormat(rf *llm.ResponseFormat) map[string]any {
	if rf == nil {
		return nil
	}

	switch rf.Type {
	case "json_schema":
		return map[string]any{
			"type": "json_schema",
			"json_schema": map[string]any{
				"name":   rf.Name,
				"schema": rf.Schema,
				"strict": rf.Strict,
			},
		}
	case "json_object":
		return map[string]any{"type": "json_object"}
	default:
		return nil
	}
}

func (p *Provider) CompleteText(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	model := req.Model
	if model == "" {
		model = p.defaultModel
	}

	messages := []map[string]string{
		{"role": "user", "content": req.Prompt},
	}

	if req.SystemPrompt != "" {
		messages = append([]map[string]string{
			{"role": "system", "content": req.SystemPrompt},
		}, messages...)
	}

	requestBody := map[string]interface{}{
		"model":       model,
		"messages":    messages,
		"temperature": req.Temperature,
	}

	if req.MaxTokens > 0 {
		requestBody["max_tokens"] = req.MaxTokens
	}

	if req.TopP > 0 {
		requestBody["top_p"] = req.TopP
	}

	if len(req.StopWords) > 0 {
		requestBody["stop"] = req.StopWords
	}

	for k, v := range req.ExtraParams {
		if k == llm.ResponseFormatParam {
			if rf, ok := v.(*llm.ResponseFormat); ok {
				if format := buildResponseFormat(rf); format != nil {
					requestBody["response_format"] = format
				}
				continue
			}
		}
		requestBody[k] = v
	}

	jsonData, err := json.Marshal(requestBody)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(
		ctx,
		"POST",
		p.baseURL+"/chat/completions",
		bytes.NewBuffer(jsonData),
	)
	if err != nil {
		return nil, err
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)

	httpResp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(httpResp.Body)
		return nil, fmt.Errorf("OpenAI API error (%d): %s", httpResp.StatusCode, string(body))
	}

	var response struct {
		ID      string `json:"id"`
		Model   string `json:"model"`
		Choices []struct {
			Index   int `json:"index"`
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
	}

	if err := json.NewDecoder(httpResp.Body).Decode(&response); err != nil {
		return nil, err
	}

	if len(response.Choices) == 0 {
		return nil, errors.New("OpenAI returned no choices")
	}

	return &llm.CompletionResponse{
		Text:         response.Choices[0].Message.Content,
		FinishReason: response.Choices[0].FinishReason,
		TokensUsed:   response.Usage.TotalTokens,
		PromptTokens: response.Usage.PromptTokens,
		OutputTokens: response.Usage.CompletionTokens,
		ModelName:    response.Model,
		ProviderName: p.GetName(),
	}, nil
}
