package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/fairyhunter13/ai-voice-studio/internal/domain"
)

// Preset is a named voice direction offered to clients.
type Preset struct {
	Name        string                `yaml:"name" json:"name"`
	Description string                `yaml:"description" json:"description"`
	Voice       domain.Voice          `yaml:"voice" json:"voice,omitempty"`
	Direction   domain.VoiceDirection `yaml:"direction" json:"direction"`
}

// PresetsYAML represents the structure of a presets YAML file.
type PresetsYAML struct {
	Presets []Preset `yaml:"presets"`
}

// DefaultPresets are served when no presets file is configured.
func DefaultPresets() []Preset {
	return []Preset{
		{
			Name:        "narrator",
			Description: "Neutral audiobook narration",
			Voice:       domain.VoiceSage,
			Direction: domain.VoiceDirection{
				VoiceAffect: "Calm, composed and measured",
				Tone:        "neutral, informative",
				Pacing:      "steady and unhurried",
				Pauses:      "brief pauses between paragraphs",
			},
		},
		{
			Name:        "cheerful-guide",
			Description: "Upbeat tour guide",
			Voice:       domain.VoiceShimmer,
			Direction: domain.VoiceDirection{
				VoiceAffect: "Bright and welcoming",
				Tone:        "friendly, enthusiastic",
				Emotion:     "excited",
				Pacing:      "moderate",
				Personality: "cheerful guide",
			},
		},
		{
			Name:        "noir-detective",
			Description: "Hard-boiled 1940s detective",
			Voice:       domain.VoiceAsh,
			Direction: domain.VoiceDirection{
				VoiceAffect: "deep and gravelly",
				Tone:        "serious, world-weary",
				Pacing:      "slow",
				Personality: "noir detective",
				Delivery:    "theatrical",
			},
		},
	}
}

// LoadPresets reads presets from path, falling back to DefaultPresets when
// path is empty.
func LoadPresets(path string) ([]Preset, error) {
	if strings.TrimSpace(path) == "" {
		return DefaultPresets(), nil
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("op=config.LoadPresets: failed to get absolute path: %w", err)
	}
	// #nosec G304 -- path comes from operator configuration
	content, err := os.ReadFile(absPath)
	if err != nil {
		return nil, fmt.Errorf("op=config.LoadPresets: failed to read presets file: %w", err)
	}
	var doc PresetsYAML
	if err := yaml.Unmarshal(content, &doc); err != nil {
		return nil, fmt.Errorf("op=config.LoadPresets: failed to parse YAML: %w", err)
	}
	if len(doc.Presets) == 0 {
		return nil, fmt.Errorf("op=config.LoadPresets: no presets found in %s", path)
	}
	seen := make(map[string]struct{}, len(doc.Presets))
	for i, p := range doc.Presets {
		if strings.TrimSpace(p.Name) == "" {
			return nil, fmt.Errorf("op=config.LoadPresets: preset %d has no name", i)
		}
		if _, dup := seen[p.Name]; dup {
			return nil, fmt.Errorf("op=config.LoadPresets: duplicate preset %q", p.Name)
		}
		seen[p.Name] = struct{}{}
		if p.Voice != "" && !p.Voice.Valid() {
			return nil, fmt.Errorf("op=config.LoadPresets: preset %q has unknown voice %q", p.Name, p.Voice)
		}
	}
	return doc.Presets, nil
}
