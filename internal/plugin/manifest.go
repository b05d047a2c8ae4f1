package plugin

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// SkillManifest is a purely descriptive registry entry: unlike Plugin
// it is never invoked. MatchingSkills selects entries by keyword; no
// caller in this module merges the HowTo block into the system prompt.
type SkillManifest struct {
	Name     string   `yaml:"name"`
	Keywords []string `yaml:"keywords"`
	HowTo    string   `yaml:"how_to"`
	Enabled  bool     `yaml:"enabled"`
}

// Manifest is the on-disk shape of plugins.yaml: plugin enable/disable
// toggles plus the descriptive skill entries.
type Manifest struct {
	Plugins map[string]struct {
		Enabled bool `yaml:"enabled"`
	} `yaml:"plugins"`
	Skills []SkillManifest `yaml:"skills"`
}

// LoadManifest reads a plugins.yaml file. A missing file yields an
// empty Manifest rather than an error, since plugin configuration is
// optional; plugins default to the Enabled() their implementation
// reports.
func LoadManifest(path string) (*Manifest, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Manifest{}, nil
		}
		return nil, fmt.Errorf("read plugin manifest %s: %w", path, err)
	}

	var m Manifest
	if err := yaml.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("parse plugin manifest %s: %w", path, err)
	}
	return &m, nil
}

// MatchingSkills returns every enabled skill whose keywords appear in
// userInput.
func (m *Manifest) MatchingSkills(userInput string) []SkillManifest {
	var out []SkillManifest
	lower := strings.ToLower(userInput)
	for _, s := range m.Skills {
		if !s.Enabled {
			continue
		}
		for _, kw := range s.Keywords {
			if kw == "" {
				continue
			}
			if strings.Contains(lower, strings.ToLower(kw)) {
				out = append(out, s)
				break
			}
		}
	}
	return out
}
