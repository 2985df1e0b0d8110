// internal/config/config.go
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/joho/godotenv"

	"github.com/tbellini/arcanum/internal/utils"
)

var (
	currentConfig *AppConfig
	configMutex   sync.RWMutex
	configFile    string
)

// AppConfig holds the full application configuration, including the
// runtime-updatable LLM settings persisted to data/config.json.
type AppConfig struct {
	Port        string `json:"port"`
	DataDir     string `json:"data_dir"`
	StaticDir   string `json:"static_dir"`
	CatalogFile string `json:"catalog_file"`
	DebugMode   bool   `json:"debug_mode"`

	AdminTokenSecret string `json:"-"`
	configSecret     string

	LLMProvider string            `json:"llm_provider"`
	LLMConfig   map[string]string `json:"llm_config"`
}

// Config is the environment-derived base configuration.
type Config struct {
	Port             string
	OpenAIAPIKey     string
	DataDir          string
	StaticDir        string
	CatalogFile      string
	DebugMode        bool
	AdminTokenSecret string
	ConfigSecret     string
	LLMProvider      string
}

// Load reads configuration from the environment, with an optional .env file.
func Load() (*Config, error) {
	godotenv.Load()

	config := &Config{
		Port:             getEnv("PORT", "8080"),
		OpenAIAPIKey:     getEnv("OPENAI_API_KEY", ""),
		DataDir:          getEnvPath("DATA_DIR", "data"),
		StaticDir:        getEnvPath("STATIC_DIR", "static"),
		DebugMode:        getEnvBool("DEBUG_MODE", true),
		AdminTokenSecret: getEnv("ADMIN_TOKEN_SECRET", ""),
		ConfigSecret:     getEnv("CONFIG_SECRET", ""),
		LLMProvider:      getEnv("LLM_PROVIDER", "openai"),
	}
	config.CatalogFile = getEnv("CATALOG_FILE", filepath.Join(config.DataDir, "all_magic_items.json"))

	return config, nil
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvPath(key, defaultValue string) string {
	path := getEnv(key, defaultValue)

	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := os.MkdirAll(path, 0755); err != nil {
			fmt.Printf("warning: failed to create directory %s: %v\n", path, err)
		}
	}

	return path
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value == "true" || value == "1" || value == "yes"
}

// InitConfig initializes the configuration singleton, merging any settings
// previously persisted to <dataDir>/config.json.
func InitConfig(dataDir string) error {
	configFile = filepath.Join(dataDir, "config.json")

	baseConfig, err := Load()
	if err != nil {
		return err
	}

	configMutex.Lock()
	defer configMutex.Unlock()

	currentConfig = &AppConfig{
		Port:             baseConfig.Port,
		DataDir:          baseConfig.DataDir,
		StaticDir:        baseConfig.StaticDir,
		CatalogFile:      baseConfig.CatalogFile,
		DebugMode:        baseConfig.DebugMode,
		AdminTokenSecret: baseConfig.AdminTokenSecret,
		configSecret:     baseConfig.ConfigSecret,
		LLMProvider:      baseConfig.LLMProvider,
		LLMConfig: map[string]string{
			"api_key": baseConfig.OpenAIAPIKey,
		},
	}

	if _, err := os.Stat(configFile); !os.IsNotExist(err) {
		data, err := os.ReadFile(configFile)
		if err == nil {
			var savedConfig AppConfig
			if json.Unmarshal(data, &savedConfig) == nil {
				// Keep the LLM settings from the file but always take the
				// current environment for the base fields.
				savedConfig.Port = baseConfig.Port
				savedConfig.DataDir = baseConfig.DataDir
				savedConfig.StaticDir = baseConfig.StaticDir
				savedConfig.CatalogFile = baseConfig.CatalogFile
				savedConfig.DebugMode = baseConfig.DebugMode
				savedConfig.AdminTokenSecret = baseConfig.AdminTokenSecret
				savedConfig.configSecret = baseConfig.ConfigSecret

				if savedConfig.LLMConfig != nil {
					if key := savedConfig.LLMConfig["api_key"]; key != "" && baseConfig.ConfigSecret != "" {
						if decrypted, err := utils.Decrypt(key, baseConfig.ConfigSecret); err == nil {
							savedConfig.LLMConfig["api_key"] = decrypted
						}
					}
					if savedConfig.LLMConfig["api_key"] == "" {
						savedConfig.LLMConfig["api_key"] = baseConfig.OpenAIAPIKey
					}
				}

				currentConfig = &savedConfig
			}
		}
	}

	return saveConfigLocked()
}

// GetCurrentConfig returns a copy of the current configuration.
func GetCurrentConfig() *AppConfig {
	configMutex.RLock()
	defer configMutex.RUnlock()

	if currentConfig == nil {
		baseConfig, _ := Load()
		return &AppConfig{
			Port:        baseConfig.Port,
			DataDir:     baseConfig.DataDir,
			StaticDir:   baseConfig.StaticDir,
			CatalogFile: baseConfig.CatalogFile,
			DebugMode:   baseConfig.DebugMode,
			LLMProvider: baseConfig.LLMProvider,
			LLMConfig: map[string]string{
				"api_key": baseConfig.OpenAIAPIKey,
			},
		}
	}

	configCopy := *currentConfig
	configCopy.LLMConfig = make(map[string]string, len(currentConfig.LLMConfig))
	for k, v := range currentConfig.LLMConfig {
		configCopy.LLMConfig[k] = v
	}
	return &configCopy
}

// UpdateLLMConfig replaces the LLM provider settings and persists them.
func UpdateLLMConfig(provider string, llmConfig map[string]string) error {
	configMutex.Lock()
	defer configMutex.Unlock()

	if currentConfig == nil {
		return fmt.Errorf("configuration not initialized")
	}

	currentConfig.LLMProvider = provider
	currentConfig.LLMConfig = llmConfig

	return saveConfigLocked()
}

// saveConfigLocked writes the current configuration to disk. The API key is
// encrypted at rest when CONFIG_SECRET is set. Caller must hold configMutex.
func saveConfigLocked() error {
	if currentConfig == nil {
		return fmt.Errorf("no configuration to save")
	}

	dir := filepath.Dir(configFile)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}

	toPersist := *currentConfig
	if toPersist.LLMConfig != nil && toPersist.configSecret != "" {
		toPersist.LLMConfig = make(map[string]string, len(currentConfig.LLMConfig))
		for k, v := range currentConfig.LLMConfig {
			toPersist.LLMConfig[k] = v
		}
		if key := toPersist.LLMConfig["api_key"]; key != "" {
			if encrypted, err := utils.Encrypt(key, toPersist.configSecret); err == nil {
				toPersist.LLMConfig["api_key"] = encrypted
			}
		}
	}

	data, err := json.MarshalIndent(&toPersist, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize configuration: %w", err)
	}

	return os.WriteFile(configFile, data, 0644)
}
