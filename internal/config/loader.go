package config

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Default values for Config.
const (
	DefaultMaxIterations  = 5
	DefaultTimeoutSeconds = 120
	DefaultModel          = "gemini-2.5-flash"
	DefaultAPIKeyEnv      = "GEMINI_API_KEY"
	DefaultMaxRetries     = 3
	DefaultTemperature    = 0.2
	DefaultLogLevel       = "info"

	DefaultSrcDir       = "src"
	DefaultTemplatesDir = "templates"
	DefaultOutputDir    = "output"
	DefaultKnowledgeDir = "knowledge"
	DefaultPromptsDir   = "prompts"
	DefaultWorkDir      = DirName + "/work"
)

// DefaultAgentConfig returns agent settings with sensible defaults.
// The safety rails (diff check, validation, self-review) are on by
// default and must be switched off explicitly.
func DefaultAgentConfig() AgentConfig {
	return AgentConfig{
		MaxIterations: DefaultMaxIterations,
		DiffCheck:     true,
		ValidateXML:   true,
		SelfReview:    true,
		DebugMode:     false,
	}
}

// DefaultCompilerConfig returns compiler settings with sensible
// defaults. The converter path is empty, which means unavailable
// until configured.
func DefaultCompilerConfig() CompilerConfig {
	return CompilerConfig{
		TimeoutSeconds: DefaultTimeoutSeconds,
	}
}

// DefaultGeneratorConfig returns generator settings with sensible
// defaults.
func DefaultGeneratorConfig() GeneratorConfig {
	return GeneratorConfig{
		Model:       DefaultModel,
		APIKeyEnv:   DefaultAPIKeyEnv,
		MaxRetries:  DefaultMaxRetries,
		Temperature: DefaultTemperature,
	}
}

// DefaultPathsConfig returns the standard project layout.
func DefaultPathsConfig() PathsConfig {
	return PathsConfig{
		SrcDir:       DefaultSrcDir,
		TemplatesDir: DefaultTemplatesDir,
		OutputDir:    DefaultOutputDir,
		KnowledgeDir: DefaultKnowledgeDir,
		PromptsDir:   DefaultPromptsDir,
		WorkDir:      DefaultWorkDir,
	}
}

// DefaultLoggingConfig returns logging settings with sensible
// defaults.
func DefaultLoggingConfig() LoggingConfig {
	return LoggingConfig{
		Level: DefaultLogLevel,
	}
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		Agent:     DefaultAgentConfig(),
		Compiler:  DefaultCompilerConfig(),
		Generator: DefaultGeneratorConfig(),
		Paths:     DefaultPathsConfig(),
		Logging:   DefaultLoggingConfig(),
	}
}

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s: %s", e.Field, e.Message)
}

// LoadConfig reads and parses .partforge/config.yaml from the given
// base path. If the file doesn't exist, returns default config.
// Applies defaults for any missing fields.
func LoadConfig(basePath string) (*Config, error) {
	configPath := filepath.Join(basePath, DirName, "config.yaml")

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			cfg := DefaultConfig()
			return &cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := ValidateConfig(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// ValidateConfig checks that all config values are valid.
func ValidateConfig(cfg *Config) error {
	if cfg.Agent.MaxIterations <= 0 {
		return ValidationError{Field: "agent.max_iterations", Message: "must be positive"}
	}
	if cfg.Compiler.TimeoutSeconds <= 0 {
		return ValidationError{Field: "compiler.timeout_seconds", Message: "must be positive"}
	}
	if cfg.Generator.Model == "" {
		return ValidationError{Field: "generator.model", Message: "required field is empty"}
	}
	if cfg.Generator.MaxRetries < 0 {
		return ValidationError{Field: "generator.max_retries", Message: "must not be negative"}
	}
	if cfg.Generator.Temperature < 0 || cfg.Generator.Temperature > 2 {
		return ValidationError{Field: "generator.temperature", Message: "must be between 0 and 2"}
	}
	switch cfg.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return ValidationError{Field: "logging.level", Message: "must be one of debug, info, warn, error"}
	}
	return nil
}

// LoadEnvFile parses the .partforge/.env file into a map of key-value
// pairs. The file format is KEY=VALUE per line. Lines starting with #
// are comments. Empty lines are ignored.
func LoadEnvFile(basePath string) (map[string]string, error) {
	envPath := filepath.Join(basePath, DirName, ".env")

	file, err := os.Open(envPath)
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[string]string), nil
		}
		return nil, fmt.Errorf("failed to open env file: %w", err)
	}
	defer file.Close()

	env := make(map[string]string)
	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Split on first =
		idx := strings.Index(line, "=")
		if idx == -1 {
			return nil, fmt.Errorf("invalid env file line %d: missing '='", lineNum)
		}

		key := strings.TrimSpace(line[:idx])
		value := strings.TrimSpace(line[idx+1:])

		// Strip surrounding quotes (single or double)
		if len(value) >= 2 {
			if (value[0] == '"' && value[len(value)-1] == '"') ||
				(value[0] == '\'' && value[len(value)-1] == '\'') {
				value = value[1 : len(value)-1]
			}
		}

		if key == "" {
			return nil, fmt.Errorf("invalid env file line %d: empty key", lineNum)
		}

		env[key] = value
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read env file: %w", err)
	}

	return env, nil
}

// APIKey resolves the generator API key: the process environment
// wins, then the project env file.
func APIKey(basePath string, cfg *Config) (string, error) {
	if key := os.Getenv(cfg.Generator.APIKeyEnv); key != "" {
		return key, nil
	}
	env, err := LoadEnvFile(basePath)
	if err != nil {
		return "", err
	}
	return env[cfg.Generator.APIKeyEnv], nil
}

// IsValidationError checks if an error is a ValidationError.
func IsValidationError(err error) bool {
	var ve ValidationError
	return errors.As(err, &ve)
}
