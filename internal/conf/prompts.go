package conf

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// PromptsConfig contains prompt configurations loaded from YAML
type PromptsConfig struct {
	Analysis AnalysisPrompts `yaml:"analysis"`
}

// AnalysisPrompts contains the analysis model prompts
type AnalysisPrompts struct {
	SystemPrompt     string `yaml:"system_prompt"`
	TranscriptHeader string `yaml:"transcript_header"`
}

// LoadPromptsConfig loads prompts configuration from a YAML file
func LoadPromptsConfig(configPath string) (*PromptsConfig, error) {
	// Try multiple paths
	paths := []string{configPath}
	if configPath == "" {
		paths = []string{
			"configs/prompts.yaml",
			"./configs/prompts.yaml",
			"/etc/postbot/prompts.yaml",
		}
		if execPath, err := os.Executable(); err == nil {
			paths = append(paths, filepath.Join(filepath.Dir(execPath), "configs", "prompts.yaml"))
		}
	}

	var data []byte
	var loadedPath string
	var err error

	for _, p := range paths {
		if p == "" {
			continue
		}
		data, err = os.ReadFile(p)
		if err == nil {
			loadedPath = p
			break
		}
	}

	if data == nil {
		fmt.Println("[Config] No prompts.yaml found, using defaults")
		return DefaultPromptsConfig(), nil
	}

	fmt.Printf("[Config] Loading prompts from: %s\n", loadedPath)

	var config PromptsConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse prompts.yaml: %w", err)
	}

	config.fillDefaults()
	return &config, nil
}

// fillDefaults fills in default values for empty fields
func (c *PromptsConfig) fillDefaults() {
	defaults := DefaultPromptsConfig()

	if c.Analysis.SystemPrompt == "" {
		c.Analysis.SystemPrompt = defaults.Analysis.SystemPrompt
	}
	if c.Analysis.TranscriptHeader == "" {
		c.Analysis.TranscriptHeader = defaults.Analysis.TranscriptHeader
	}
}

// DefaultPromptsConfig returns the built-in prompt configuration
func DefaultPromptsConfig() *PromptsConfig {
	return &PromptsConfig{
		Analysis: AnalysisPrompts{
			SystemPrompt: `You review team chat transcripts and decide whether they contain a moment worth sharing publicly: a shipped feature, a measurable win, a hard-earned lesson, or a notable milestone. Routine coordination, scheduling, and small talk are never post-worthy.

Respond with a single JSON object, no surrounding prose:
{
  "isPostWorthy": true or false,
  "reasoning": "one or two sentences explaining the judgment",
  "linkedInDraft": "a LinkedIn-ready draft, or null if not post-worthy",
  "xDraft": "a draft under 280 characters for X, or null if not post-worthy"
}

Drafts must not name individual people and must not include confidential details such as customer names or unreleased dates.`,
			TranscriptHeader: "Here is the conversation transcript:",
		},
	}
}
