package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Roster is a user-supplied set of reviewer profiles, loaded from a yaml
// file when the project config names one. It replaces, not extends, the
// built-in roster.
type Roster struct {
	Version  int       `yaml:"version"`
	Profiles []Profile `yaml:"reviewers"`

	index map[string]*Profile
}

type Profile struct {
	ID         string   `yaml:"id"`
	Name       string   `yaml:"name"`
	Persona    string   `yaml:"persona"`
	Priorities []string `yaml:"priorities"`
	Quirks     []string `yaml:"quirks"`
}

func LoadRoster(path string) (*Roster, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("loading roster: %w", err)
	}

	var roster Roster
	if err := yaml.Unmarshal(data, &roster); err != nil {
		return nil, fmt.Errorf("loading roster: %w", err)
	}

	if err := validateRoster(&roster); err != nil {
		return nil, fmt.Errorf("loading roster: %w", err)
	}

	roster.index = make(map[string]*Profile)
	for i := range roster.Profiles {
		p := &roster.Profiles[i]
		roster.index[strings.ToLower(p.ID)] = p
	}
	return &roster, nil
}

func validateRoster(r *Roster) error {
	if r.Version != 1 {
		return fmt.Errorf("unsupported version: %d", r.Version)
	}
	if len(r.Profiles) == 0 {
		return fmt.Errorf("at least one reviewer is required")
	}

	seen := make(map[string]struct{})
	for i, p := range r.Profiles {
		if strings.TrimSpace(p.ID) == "" {
			return fmt.Errorf("reviewer %d id is required", i)
		}
		if strings.TrimSpace(p.Persona) == "" {
			return fmt.Errorf("reviewer %s persona is required", p.ID)
		}
		key := strings.ToLower(p.ID)
		if _, exists := seen[key]; exists {
			return fmt.Errorf("duplicate reviewer id: %s", p.ID)
		}
		seen[key] = struct{}{}
	}
	return nil
}

func (r *Roster) ProfileByID(id string) (*Profile, bool) {
	if r == nil {
		return nil, false
	}
	p, ok := r.index[strings.ToLower(id)]
	return p, ok
}
