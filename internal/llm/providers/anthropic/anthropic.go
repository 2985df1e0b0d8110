// internal/llm/providers/anthropic/anthropic.go
package anthropic

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
	llm.Register("anthropic", func() llm.Provider {
		return &Provider{
			supportedModels: []string{
				"claude-sonnet-4-20250514",
				"claude-3-7-sonnet-20250219",
				"claude-3-5-haiku-20241022",
			},
			baseURL:    "https://api.anthropic.com",
			apiVersion: "2023-06-01",
		}
	})
}

type Provider struct {
	apiKey          string
	baseURL         string
	apiVersion      string
	client          *http.Client
	defaultModel    string
	supportedModels []string
}

func (p *Provider) Initialize(config map[string]string) error {
	apiKey, exists := config["api_key"]
	if !exists || apiKey == "" {
		return errors.New("Anthropic API key not provided")
	}

	p.apiKey = apiKey
	p.client = &http.Client{}

	if model, exists := config["default_model"]; exists && model != "" {
		p.defaultModel = model
	} else {
		p.defaultModel = "claude-3-5-haiku-20241022"
	}

	if baseURL, exists := config["base_url"]; exists && baseURL != "" {
		p.baseURL = baseURL
	}

	if apiVersion, exists := config["api_version"]; exists && apiVersion != "" {
		p.apiVersion = apiVersion
	}

	return nil
}

func (p *Provider) GetName() string {
	return "Anthropic Claude"
}

func (p *Provider) GetSupportedModels() []string {
	return p.supportedModels
}

func (p *Provider) CompleteText(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	model := req.Model
	if model == "" {
		model = p.defaultModel
	}

	systemPrompt := req.SystemPrompt

	// The messages API has no response_format parameter; fold the JSON
	// constraint into the system prompt instead.
	if v, ok := req.ExtraParams[llm.ResponseFormatParam]; ok {
		if rf, ok := v.(*llm.ResponseFormat); ok && rf != nil {
			if systemPrompt != "" {
				systemPrompt += "\n\n"
			}
			systemPrompt += "Respond with a single valid JSON object and nothing else."
			if rf.Type == "json_schema" && rf.Schema != nil {
				if schemaJSON, err := json.Marshal(rf.Schema); err == nil {
					systemPrompt += " The object must conform to this JSON schema:\n" + string(schemaJSON)
				}
			}
		}
	}

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 4096
	}

	requestBody := map[string]interface{}{
		"model": model,
		"messages": []map[string]string{
			{"role": "user", "content": req.Prompt},
		},
		"max_tokens":  maxTokens,
		"temperature": req.Temperature,
	}

	if systemPrompt != "" {
		requestBody["system"] = systemPrompt
	}

	if req.TopP > 0 {
		requestBody["top_p"] = req.TopP
	}

	if len(req.StopWords) > 0 {
		requestBody["stop_sequences"] = req.StopWords
	}

	jsonData, err := json.Marshal(requestBody)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(
		ctx,
		"POST",
		p.baseURL+"/v1/messages",
		bytes.NewBuffer(jsonData),
	)
	if err != nil {
		return nil, err
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Api-Key", p.apiKey)
	httpReq.Header.Set("Anthropic-Version", p.apiVersion)

	httpResp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(httpResp.Body)
		return nil, fmt.Errorf("Anthropic API error (%d): %s", httpResp.StatusCode, string(body))
	}

	var response struct {
		ID      string `json:"id"`
		Model   string `json:"model"`
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
		StopReason string `json:"stop_reason"`
		Usage      struct {
			InputTokens  int `json:"input_tokens"`
			OutputTokens int `json:"output_tokens"`
		} `json:"usage"`
	}

	if err := json.NewDecoder(httpResp.Body).Decode(&response); err != nil {
		return nil, err
	}

	var text string
	for _, block := range response.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}

	if text == "" {
		return nil, errors.New("Anthropic returned no text content")
	}

	return &llm.CompletionResponse{
		Text:         text,
		FinishReason: response.StopReason,
		TokensUsed:   response.Usage.InputTokens + response.Usage.OutputTokens,
		PromptTokens: response.Usage.InputTokens,
		OutputTokens: response.Usage.OutputTokens,
		ModelName:    response.Model,
		ProviderName: p.GetName(),
	}, nil
}
