package core

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// Config contains the complete configuration for a RecallMem client.
//
// It includes settings for:
//   - Storage backend (memory persistence)
//   - LLM provider (optional, backs AI-assisted scoring)
//   - Retention engine (capacity, thresholds, scope)
//
// Example:
//
//	config := &core.Config{
//	    Storage: core.StorageConfig{
//	        Provider: "sqlite",
//	        Config: map[string]interface{}{
//	            "db_path": "./memories.db",
//	        },
//	    },
//	    Retention: core.RetentionConfig{
//	        MaxMemories:   1000,
//	        CapacityScope: "global",
//	    },
//	}
type Config struct {
	// Storage contains storage backend configuration.
	Storage StorageConfig `json:"storage"`

	// LLM contains LLM provider configuration (optional).
	LLM LLMConfig `json:"llm"`

	// Retention contains retention engine configuration.
	Retention RetentionConfig `json:"retention"`
}

// StorageConfig contains configuration for the storage backend.
//
// Supported providers: sqlite, postgres, mysql
type StorageConfig struct {
	// Provider is the storage provider name (sqlite, postgres, mysql).
	Provider string `json:"provider"`

	// Config contains provider-specific configuration.
	// For SQLite: db_path, table_name
	// For PostgreSQL: host, port, user, password, db_name, table_name, ssl_mode
	// For MySQL: host, port, user, password, db_name, table_name
	Config map[string]interface{} `json:"config"`
}

// LLMConfig contains configuration for the LLM provider backing AI-assisted
// scoring. Leave Provider empty to run on heuristic scoring only.
type LLMConfig struct {
	// Provider is the LLM provider name. Supported: openai.
	Provider string `json:"provider,omitempty"`

	// APIKey is the API key for the LLM provider.
	APIKey string `json:"api_key,omitempty"`

	// Model is the model name to use (e.g., "gpt-4o-mini").
	Model string `json:"model,omitempty"`

	// BaseURL is the base URL for the API (optional, uses provider
	// default if empty).
	BaseURL string `json:"base_url,omitempty"`
}

// RetentionConfig contains configuration for the retention engine.
//
// Zero values fall back to the engine defaults.
type RetentionConfig struct {
	// MaxMemories is the active-memory capacity. Default: 1000.
	MaxMemories int `json:"max_memories,omitempty"`

	// CapacityScope is "global" (capacity shared across all sessions,
	// the default) or "session" (capacity per session partition).
	CapacityScope string `json:"capacity_scope,omitempty"`

	// ImportanceThreshold is the cutoff for importance pruning.
	// Default: 0.3.
	ImportanceThreshold float64 `json:"importance_threshold,omitempty"`

	// MaxAgeDays is the cutoff in days for age pruning. Default: 30.
	MaxAgeDays int `json:"max_age_days,omitempty"`

	// MinAccessCount is the cutoff for access-frequency pruning.
	// Default: 2.
	MinAccessCount int `json:"min_access_count,omitempty"`

	// ArchiveAfterDays is the archival sweep age cutoff. Default: 90.
	ArchiveAfterDays int `json:"archive_after_days,omitempty"`

	// ArchiveImportanceBelow is the archival sweep importance ceiling.
	// Default: 0.3.
	ArchiveImportanceBelow float64 `json:"archive_importance_below,omitempty"`

	// AIScoring enables AI-assisted scoring through the configured LLM
	// provider. Requires LLM configuration; falls back to heuristic
	// scoring per batch when the service misbehaves.
	AIScoring bool `json:"ai_scoring,omitempty"`

	// ScoringBatchSize is the maximum memories per scoring call.
	// Default: 50.
	ScoringBatchSize int `json:"scoring_batch_size,omitempty"`
}

// LoadConfigFromEnv loads configuration from environment variables.
//
// The function:
//  1. Searches for .env or .env.example files (up to 5 directory levels up)
//  2. Loads environment variables from the found file
//  3. Parses environment variables into a Config struct
//
// Supported environment variables:
//   - DATABASE_PROVIDER (sqlite, postgres, mysql)
//   - SQLITE_PATH, SQLITE_TABLE
//   - POSTGRES_HOST, POSTGRES_PORT, POSTGRES_USER, POSTGRES_PASSWORD, etc.
//   - MYSQL_HOST, MYSQL_PORT, MYSQL_USER, MYSQL_PASSWORD, etc.
//   - LLM_PROVIDER, LLM_API_KEY, LLM_MODEL, LLM_BASE_URL
//   - RETENTION_MAX_MEMORIES, RETENTION_CAPACITY_SCOPE,
//     RETENTION_AI_SCORING, RETENTION_SCORING_BATCH_SIZE
//
// Returns a Config instance, or an error if loading fails.
func LoadConfigFromEnv() (*Config, error) {
	envPath, found := FindEnvFile()
	if found {
		_ = godotenv.Load(envPath)
	} else {
		_ = godotenv.Load()
	}

	provider := getEnvOrDefault("DATABASE_PROVIDER", "sqlite")

	storageConfig := make(map[string]interface{})
	switch provider {
	case "sqlite":
		storageConfig = map[string]interface{}{
			"db_path":    getEnvOrDefault("SQLITE_PATH", "./recallmem.db"),
			"table_name": getEnvOrDefault("SQLITE_TABLE", "memories"),
		}
	case "postgres":
		port, _ := strconv.Atoi(getEnvOrDefault("POSTGRES_PORT", "5432"))
		storageConfig = map[string]interface{}{
			"host":       getEnvOrDefault("POSTGRES_HOST", "localhost"),
			"port":       port,
			"user":       getEnvOrDefault("POSTGRES_USER", "postgres"),
			"password":   os.Getenv("POSTGRES_PASSWORD"),
			"db_name":    getEnvOrDefault("POSTGRES_DATABASE", "recallmem"),
			"table_name": getEnvOrDefault("POSTGRES_TABLE", "memories"),
			"ssl_mode":   getEnvOrDefault("POSTGRES_SSLMODE", "disable"),
		}
	case "mysql":
		port, _ := strconv.Atoi(getEnvOrDefault("MYSQL_PORT", "3306"))
		storageConfig = map[string]interface{}{
			"host":       getEnvOrDefault("MYSQL_HOST", "127.0.0.1"),
			"port":       port,
			"user":       getEnvOrDefault("MYSQL_USER", "root"),
			"password":   os.Getenv("MYSQL_PASSWORD"),
			"db_name":    getEnvOrDefault("MYSQL_DATABASE", "recallmem"),
			"table_name": getEnvOrDefault("MYSQL_TABLE", "memories"),
		}
	}

	maxMemories, _ := strconv.Atoi(getEnvOrDefault("RETENTION_MAX_MEMORIES", "1000"))
	batchSize, _ := strconv.Atoi(getEnvOrDefault("RETENTION_SCORING_BATCH_SIZE", "50"))

	config := &Config{
		Storage: StorageConfig{
			Provider: provider,
			Config:   storageConfig,
		},
		LLM: LLMConfig{
			Provider: os.Getenv("LLM_PROVIDER"),
			APIKey:   os.Getenv("LLM_API_KEY"),
			Model:    os.Getenv("LLM_MODEL"),
			BaseURL:  os.Getenv("LLM_BASE_URL"),
		},
		Retention: RetentionConfig{
			MaxMemories:      maxMemories,
			CapacityScope:    getEnvOrDefault("RETENTION_CAPACITY_SCOPE", "global"),
			AIScoring:        os.Getenv("RETENTION_AI_SCORING") == "true",
			ScoringBatchSize: batchSize,
		},
	}

	return config, nil
}

// LoadConfigFromEnvFile loads configuration from a specific .env file.
func LoadConfigFromEnvFile(envPath string) (*Config, error) {
	if err := godotenv.Load(envPath); err != nil {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}
	return LoadConfigFromEnv()
}

// LoadConfigFromJSON loads configuration from a JSON file.
func LoadConfigFromJSON(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, NewMemoryError("LoadConfigFromJSON", err)
	}

	var config Config
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, NewMemoryError("LoadConfigFromJSON", err)
	}

	return &config, nil
}

// Validate validates the configuration.
//
// Checks that the storage provider is set and the capacity scope, if given,
// is one of "global" or "session". AI scoring requires an LLM provider.
//
// Returns an error if validation fails, nil otherwise.
func (c *Config) Validate() error {
	if c.Storage.Provider == "" {
		return NewMemoryError("Validate", fmt.Errorf("%w: storage provider is required", ErrInvalidConfig))
	}
	switch c.Retention.CapacityScope {
	case "", "global", "session":
	default:
		return NewMemoryError("Validate",
			fmt.Errorf("%w: unknown capacity scope %q", ErrInvalidConfig, c.Retention.CapacityScope))
	}
	if c.Retention.AIScoring && c.LLM.Provider == "" {
		return NewMemoryError("Validate",
			fmt.Errorf("%w: ai scoring requires an llm provider", ErrInvalidConfig))
	}
	return nil
}

// getEnvOrDefault gets an environment variable or returns the default value.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// FindEnvFile searches for .env or .env.example files.
//
// The search:
//  1. Checks the current directory
//  2. Searches up to 5 directory levels up
//  3. Returns the first .env or .env.example file found
//
// Returns the path to the found file and whether one was found.
func FindEnvFile() (string, bool) {
	if _, err := os.Stat(".env"); err == nil {
		return ".env", true
	}
	if _, err := os.Stat(".env.example"); err == nil {
		return ".env.example", true
	}

	dir, _ := os.Getwd()
	for i := 0; i < 5; i++ {
		envPath := filepath.Join(dir, ".env")
		envExamplePath := filepath.Join(dir, ".env.example")

		if _, err := os.Stat(envPath); err == nil {
			return envPath, true
		}
		if _, err := os.Stat(envExamplePath); err == nil {
			return envExamplePath, true
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", false
}
