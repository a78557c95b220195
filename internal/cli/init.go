package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"partforge/internal/config"
	"partforge/internal/prompts"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a partforge project",
	Long: `Creates the .partforge/ directory with default configuration plus the
project layout runs expect.

This command sets up:
  - .partforge/config.yaml with agent, compiler, and generator settings
  - .partforge/.env placeholder for the API key (gitignored)
  - src/, templates/, output/ for libpart sources and artifacts
  - prompts/ with editable copies of the built-in prompt templates
  - knowledge/ with a starter GDL reference document`,
	SilenceUsage: true,
	RunE:         runInit,
}

func init() {
	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "overwrite existing configuration")

	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get current directory: %w", err)
	}

	forgeDir := filepath.Join(cwd, config.DirName)
	if dirExists(forgeDir) && !initForce {
		return fmt.Errorf("%s already exists (use --force to overwrite)", config.DirName)
	}

	paths := config.DefaultPathsConfig()
	dirs := []string{
		forgeDir,
		filepath.Join(forgeDir, "runs"),
		filepath.Join(cwd, paths.WorkDir),
		filepath.Join(cwd, paths.SrcDir),
		filepath.Join(cwd, paths.TemplatesDir),
		filepath.Join(cwd, paths.OutputDir),
		filepath.Join(cwd, paths.KnowledgeDir),
		filepath.Join(cwd, paths.PromptsDir),
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	if err := writeConfigYAML(forgeDir); err != nil {
		return err
	}
	if err := writeEnvFile(forgeDir); err != nil {
		return err
	}
	if err := writeGitignore(forgeDir); err != nil {
		return err
	}
	if err := writePromptFiles(filepath.Join(cwd, paths.PromptsDir)); err != nil {
		return err
	}
	if err := writeKnowledgeStarter(filepath.Join(cwd, paths.KnowledgeDir)); err != nil {
		return err
	}

	fmt.Printf("Initialized %s/ project layout\n", config.DirName)
	fmt.Printf("  1. Put your API key in %s/.env\n", config.DirName)
	fmt.Printf("  2. Set compiler.converter_path in %s/config.yaml\n", config.DirName)
	fmt.Printf("  3. partforge run -i \"what to build\" -s %s/part.xml\n", paths.SrcDir)
	return nil
}

// dirExists checks if a directory exists
func dirExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.IsDir()
}

func writeConfigYAML(forgeDir string) error {
	content := `# Partforge configuration

agent:
  # Maximum generate/compile attempts per run
  max_iterations: 5

  # Stop the run when the model repeats the previous attempt verbatim
  diff_check: true

  # Reject malformed XML before it reaches the compiler
  validate_xml: true

  # Ask the model to review its own first attempt
  self_review: true

  # Inject section anchors into scripts to map compiler errors back
  debug_mode: false

compiler:
  # Absolute path to LP_XMLConverter (empty means unavailable)
  converter_path: ""

  # Seconds before a converter invocation is killed
  timeout_seconds: 120

generator:
  # Gemini model identifier
  model: gemini-2.5-flash

  # Environment variable (or .partforge/.env key) holding the API key
  api_key_env: GEMINI_API_KEY

  # Transport-level retries per LLM call
  max_retries: 3

  # Sampling temperature, 0 to 2
  temperature: 0.2

paths:
  src_dir: src
  templates_dir: templates
  output_dir: output
  knowledge_dir: knowledge
  prompts_dir: prompts
  work_dir: .partforge/work

  # Macro resolution roots in priority order (default: src, templates)
  # search_roots: [src, templates, vendor/macros]

logging:
  # debug, info, warn, or error
  level: info
  development: false
`
	return os.WriteFile(filepath.Join(forgeDir, "config.yaml"), []byte(content), 0o644)
}

func writeEnvFile(forgeDir string) error {
	content := `# Project secrets (gitignored)
# The generator reads the key named by generator.api_key_env; the
# process environment takes precedence over this file.

GEMINI_API_KEY="..."
`
	return os.WriteFile(filepath.Join(forgeDir, ".env"), []byte(content), 0o644)
}

func writeGitignore(forgeDir string) error {
	content := `# Credentials
.env

# Scratch state
work/
runs/
`
	return os.WriteFile(filepath.Join(forgeDir, ".gitignore"), []byte(content), 0o644)
}

// writePromptFiles copies the built-in prompt templates into the
// project so they can be edited. Loading prompts later prefers these
// files over the embedded defaults.
func writePromptFiles(promptsDir string) error {
	defaults := prompts.Load("")

	files := map[string]string{
		"system.md":         defaults.System,
		"error_analysis.md": defaults.ErrorAnalysis,
		"self_review.md":    defaults.SelfReview,
	}

	for name, content := range files {
		path := filepath.Join(promptsDir, name)
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			return fmt.Errorf("failed to write prompt %s: %w", name, err)
		}
	}

	return nil
}

func writeKnowledgeStarter(knowledgeDir string) error {
	return os.WriteFile(filepath.Join(knowledgeDir, "gdl_basics.md"), []byte(gdlBasicsContent), 0o644)
}

const gdlBasicsContent = `# GDL Basics

Ground rules the generator follows when writing libpart scripts.
Add project-specific conventions to this directory; every markdown
file here is matched against the instruction and folded into the
system prompt when relevant.

## Structure

- 3D geometry goes in Script_3D, 2D symbol drawing in Script_2D
- Parameter logic and VALUES restrictions go in Script_Parameter
- Master script (Script_1D) runs before every other script
- Declare every parameter in ParamSection before referencing it

## Control flow

- Every IF needs a matching ENDIF; GDL has no ELSE IF chains
- FOR loops close with NEXT, naming the loop variable
- GOSUB targets must be defined labels; end subroutines with RETURN

## Geometry

- Dimensions are in meters unless the parameter says otherwise
- ADD/ROT transformations stack; pair each with DEL to restore
- PRISM_ and BLOCK are cheaper than polygon sweeps for boxy shapes
- Keep RESOL modest (16 to 36) so parts stay light

## Calling macros

- CALL "macro_name" PARAMETERS name = value, ...
- Parameter names must match the macro's declared parameters exactly
- A missing macro fails the compile, not the XML validation
`
