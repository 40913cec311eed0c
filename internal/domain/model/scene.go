package model

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

type sceneFile struct {
	Objects   []objectFile        `yaml:"objects" toml:"objects"`
	WipeTower *WipeTowerPlacement `yaml:"wipe_tower" toml:"wipe_tower"`
}

type objectFile struct {
	ID        string         `yaml:"id" toml:"id"`
	Name      string         `yaml:"name" toml:"name"`
	Config    map[string]any `yaml:"config" toml:"config"`
	Instances []Instance     `yaml:"instances" toml:"instances"`
	Volumes   []volumeFile   `yaml:"volumes" toml:"volumes"`
}

type volumeFile struct {
	Name     string         `yaml:"name" toml:"name"`
	Config   map[string]any `yaml:"config" toml:"config"`
	Sections []Section      `yaml:"sections" toml:"sections"`
}

// LoadScene reads a scene description from a .yaml/.yml or .toml file.
func LoadScene(path string) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scene: %w", err)
	}
	var format string
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		format = "yaml"
	case ".toml":
		format = "toml"
	default:
		return nil, fmt.Errorf("unsupported scene format %q", filepath.Ext(path))
	}
	return ParseScene(data, format)
}

// ParseScene decodes and validates a scene. Objects without an id get one derived
// from their name, so reloading the same file yields the same identities.
func ParseScene(data []byte, format string) (*Model, error) {
	var f sceneFile
	var err error
	switch format {
	case "yaml":
		err = yaml.Unmarshal(data, &f)
	case "toml":
		err = toml.NewDecoder(bytes.NewReader(data)).Decode(&f)
	default:
		return nil, fmt.Errorf("unsupported scene format %q", format)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse scene: %w", err)
	}

	m := &Model{WipeTower: DefaultWipeTowerPlacement()}
	if f.WipeTower != nil {
		m.WipeTower = *f.WipeTower
	}
	seen := make(map[ObjectID]bool)
	for i, of := range f.Objects {
		if of.Name == "" {
			of.Name = fmt.Sprintf("object-%d", i+1)
		}
		id := DerivedObjectID(of.Name)
		if of.ID != "" {
			if id, err = ParseObjectID(of.ID); err != nil {
				return nil, err
			}
		}
		if seen[id] {
			return nil, fmt.Errorf("duplicate object %q", of.Name)
		}
		seen[id] = true

		obj := &Object{ID: id, Name: of.Name, Config: of.Config, Instances: of.Instances}
		for j, vf := range of.Volumes {
			if vf.Name == "" {
				vf.Name = fmt.Sprintf("volume-%d", j+1)
			}
			obj.Volumes = append(obj.Volumes, Volume{Name: vf.Name, Config: vf.Config, Sections: vf.Sections})
		}
		m.Objects = append(m.Objects, obj)
	}

	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}
