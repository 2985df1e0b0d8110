// internal/services/llm_service.go
package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode"

	"go.uber.org/zap"

	"github.com/tbellini/arcanum/internal/apperrors"
	"github.com/tbellini/arcanum/internal/config"
	"github.com/tbellini/arcanum/internal/llm"
	"github.com/tbellini/arcanum/internal/storage"
)

// LLMService owns the active model provider and the structured completion
// path every model-backed feature goes through. The provider can be swapped
// at runtime from the settings endpoints.
type LLMService struct {
	provider      llm.Provider
	providerName  string
	providerMutex sync.RWMutex
	isReady       bool
	readyState    string

	cache  *storage.ResponseCache
	logger *zap.SugaredLogger
}

// NewLLMService builds the service from the current configuration. A missing
// API key leaves the service constructed but not ready, so the server can
// still start and be configured through the settings API.
func NewLLMService(logger *zap.SugaredLogger) *LLMService {
	s := &LLMService{
		cache:      storage.NewResponseCache(500, 10*time.Minute),
		logger:     logger,
		readyState: "not configured",
	}

	cfg := config.GetCurrentConfig()
	if cfg.LLMProvider == "" || cfg.LLMConfig["api_key"] == "" {
		logger.Warnw("LLM provider not configured; generation and search are disabled until a key is set")
		return s
	}

	if err := s.UpdateProvider(cfg.LLMProvider, cfg.LLMConfig); err != nil {
		logger.Warnw("LLM provider initialization failed", "provider", cfg.LLMProvider, "error", err)
	}

	return s
}

// NewEmptyLLMService returns an unconfigured service. Used by tests.
func NewEmptyLLMService(logger *zap.SugaredLogger) *LLMService {
	return &LLMService{
		cache:      storage.NewResponseCache(500, 10*time.Minute),
		logger:     logger,
		readyState: "not configured",
	}
}

// IsReady reports whether a provider is initialized.
func (s *LLMService) IsReady() bool {
	s.providerMutex.RLock()
	defer s.providerMutex.RUnlock()
	return s.isReady
}

// GetReadyState describes why the service is or is not ready.
func (s *LLMService) GetReadyState() string {
	s.providerMutex.RLock()
	defer s.providerMutex.RUnlock()
	return s.readyState
}

// GetProviderName returns the active provider's registry name.
func (s *LLMService) GetProviderName() string {
	s.providerMutex.RLock()
	defer s.providerMutex.RUnlock()
	return s.providerName
}

// SupportedModels lists the active provider's models.
func (s *LLMService) SupportedModels() []string {
	s.providerMutex.RLock()
	defer s.providerMutex.RUnlock()

	if s.provider == nil {
		return []string{}
	}
	return s.provider.GetSupportedModels()
}

// UpdateProvider swaps the active provider. The response cache is cleared
// because cached output from the old model must not answer for the new one.
func (s *LLMService) UpdateProvider(providerName string, providerConfig map[string]string) error {
	provider, err := llm.GetProvider(providerName, providerConfig)
	if err != nil {
		return err
	}

	s.providerMutex.Lock()
	s.provider = provider
	s.providerName = providerName
	s.isReady = true
	s.readyState = "ready"
	s.providerMutex.Unlock()

	s.cache.Clear()
	s.logger.Infow("LLM provider updated", "provider", providerName)
	return nil
}

// SetProviderForTest injects a provider directly, bypassing the registry.
func (s *LLMService) SetProviderForTest(name string, provider llm.Provider) {
	s.providerMutex.Lock()
	defer s.providerMutex.Unlock()

	s.provider = provider
	s.providerName = name
	s.isReady = true
	s.readyState = "ready"
}

// CreateStructuredCompletion sends one completion request and parses the
// response into out. The call is not retried: a transport failure, missing
// content or unparseable payload is surfaced as a typed error.
func (s *LLMService) CreateStructuredCompletion(ctx context.Context, prompt, systemPrompt string, format *llm.ResponseFormat, out interface{}) error {
	s.providerMutex.RLock()
	if !s.isReady || s.provider == nil {
		state := s.readyState
		s.providerMutex.RUnlock()
		return apperrors.NewProcessingError("LLM service not ready: "+state, nil)
	}
	provider := s.provider
	s.providerMutex.RUnlock()

	cacheKey := completionCacheKey(prompt, systemPrompt)
	if cached, ok := s.cache.Get(cacheKey); ok {
		if err := json.Unmarshal([]byte(cached), out); err == nil {
			s.logger.Debugw("structured completion cache hit", "key", cacheKey[:8])
			return nil
		}
	}

	// Belt and braces: even providers with a native JSON mode behave better
	// with the constraint repeated in the system prompt.
	structuredSystemPrompt := systemPrompt
	if structuredSystemPrompt != "" {
		structuredSystemPrompt += "\n\n"
	}
	structuredSystemPrompt += "Return your response as a single valid JSON object, without explanations or preamble."

	req := llm.CompletionRequest{
		Prompt:       prompt,
		SystemPrompt: structuredSystemPrompt,
		Temperature:  0.3,
	}
	if format != nil {
		req.ExtraParams = map[string]interface{}{
			llm.ResponseFormatParam: format,
		}
	}

	resp, err := provider.CompleteText(ctx, req)
	if err != nil {
		return apperrors.NewProcessingError("LLM call failed", err)
	}

	if strings.TrimSpace(resp.Text) == "" {
		return apperrors.NewResponseFormatError("no valid content in LLM response", nil)
	}

	text := CleanModelJSON(resp.Text)
	if err := json.Unmarshal([]byte(text), out); err != nil {
		return apperrors.NewResponseFormatError(
			fmt.Sprintf("failed to parse LLM response as JSON: %.200s", text), err)
	}

	s.cache.Set(cacheKey, text)
	return nil
}

func completionCacheKey(prompt, systemPrompt string) string {
	sum := sha256.Sum256([]byte(prompt + "\x1f" + systemPrompt))
	return hex.EncodeToString(sum[:])
}

var jsonNoiseReplacer = strings.NewReplacer(
	"```json", "",
	"```", "",
	"\ufeff", "",
	"\u00a0", " ",
)

// CleanModelJSON strips markdown fences, zero-width runes and surrounding
// prose from a model response, leaving the outermost JSON value.
func CleanModelJSON(raw string) string {
	s := jsonNoiseReplacer.Replace(raw)
	s = strings.TrimSpace(s)

	s = strings.Map(func(r rune) rune {
		switch r {
		case '\u200b', '\u200c', '\u200d', '\u2060':
			return -1
		}
		if unicode.IsControl(r) && r != '\n' && r != '\r' && r != '\t' {
			return -1
		}
		return r
	}, s)

	start := strings.IndexAny(s, "[{")
	if start < 0 {
		return s
	}

	end := strings.LastIndexAny(s, "]}")
	if end < start {
		return s[start:]
	}

	return s[start : end+1]
}
