package config

import "time"

// DirName is the project-local directory holding configuration, env,
// run records, and sandbox state.
const DirName = ".partforge"

// AgentConfig defines the behavior of the generate/compile loop.
type AgentConfig struct {
	MaxIterations int  `yaml:"max_iterations"`
	DiffCheck     bool `yaml:"diff_check"`
	ValidateXML   bool `yaml:"validate_xml"`
	SelfReview    bool `yaml:"self_review"`
	DebugMode     bool `yaml:"debug_mode"`
}

// CompilerConfig locates and bounds the LP_XMLConverter binary.
type CompilerConfig struct {
	ConverterPath  string `yaml:"converter_path"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// GeneratorConfig selects and tunes the LLM backend.
type GeneratorConfig struct {
	Model       string  `yaml:"model"`
	APIKeyEnv   string  `yaml:"api_key_env"`
	MaxRetries  int     `yaml:"max_retries"`
	Temperature float64 `yaml:"temperature"`
}

// PathsConfig lays out the project directories. All paths are
// relative to the project base unless absolute.
type PathsConfig struct {
	SrcDir       string   `yaml:"src_dir"`
	TemplatesDir string   `yaml:"templates_dir"`
	OutputDir    string   `yaml:"output_dir"`
	KnowledgeDir string   `yaml:"knowledge_dir"`
	PromptsDir   string   `yaml:"prompts_dir"`
	WorkDir      string   `yaml:"work_dir"`
	SearchRoots  []string `yaml:"search_roots,omitempty"`
}

// LoggingConfig configures the structured logger.
type LoggingConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// Config represents the .partforge/config.yaml file.
type Config struct {
	Agent     AgentConfig     `yaml:"agent"`
	Compiler  CompilerConfig  `yaml:"compiler"`
	Generator GeneratorConfig `yaml:"generator"`
	Paths     PathsConfig     `yaml:"paths"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// SearchRoots returns the macro resolution roots in priority order.
// An explicit search_roots list wins; otherwise sources shadow
// templates.
func (c *Config) SearchRoots() []string {
	if len(c.Paths.SearchRoots) > 0 {
		return c.Paths.SearchRoots
	}
	return []string{c.Paths.SrcDir, c.Paths.TemplatesDir}
}

// CompileTimeout returns the converter timeout as a duration.
func (c *Config) CompileTimeout() time.Duration {
	return time.Duration(c.Compiler.TimeoutSeconds) * time.Second
}
