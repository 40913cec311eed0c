package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"golang.org/x/mod/semver"
	"gopkg.in/ini.v1"
	"gopkg.in/yaml.v3"
)

// CurrentConfigVersion is the option schema this build understands.
// Files declaring another major version are rejected.
const CurrentConfigVersion = "2.1.0"

// Load reads a configuration file. The format is chosen by extension:
// .ini (native key = value bundles), .yaml/.yml or .toml.
func Load(path string) (Bundle, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Bundle{}, NewConfigNotFoundError(path)
		}
		return Bundle{}, err
	}
	return Parse(data, Format(path))
}

// Format returns the decoder name for a file path.
func Format(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".ini":
		return "ini"
	case ".yaml", ".yml":
		return "yaml"
	case ".toml":
		return "toml"
	default:
		return ""
	}
}

// Parse decodes data in the given format on top of the default bundle.
func Parse(data []byte, format string) (Bundle, error) {
	b := DefaultBundle()

	var keys []string
	var err error
	switch format {
	case "ini":
		keys, err = b.decodeINI(data)
	case "yaml":
		keys, err = b.decodeYAML(data)
	case "toml":
		keys, err = b.decodeTOML(data)
	default:
		return Bundle{}, NewUnsupportedFormatError(format)
	}
	if err != nil {
		return Bundle{}, NewConfigParseError(format, err)
	}

	b.Unknown = unknownKeys(keys)
	if err := CheckVersion(b.Print.ConfigVersion); err != nil {
		return Bundle{}, err
	}
	return b, nil
}

func (b *Bundle) decodeINI(data []byte) ([]string, error) {
	f, err := ini.LoadSources(ini.LoadOptions{IgnoreInlineComment: true}, data)
	if err != nil {
		return nil, err
	}
	sec := f.Section(ini.DefaultSection)
	for _, target := range []any{&b.Print, &b.Object, &b.Region} {
		if err := sec.MapTo(target); err != nil {
			return nil, err
		}
	}
	return sec.KeyStrings(), nil
}

func (b *Bundle) decodeYAML(data []byte) ([]string, error) {
	for _, target := range []any{&b.Print, &b.Object, &b.Region} {
		if err := yaml.Unmarshal(data, target); err != nil {
			return nil, err
		}
	}
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	return mapKeys(raw), nil
}

func (b *Bundle) decodeTOML(data []byte) ([]string, error) {
	for _, target := range []any{&b.Print, &b.Object, &b.Region} {
		if err := toml.NewDecoder(bytes.NewReader(data)).Decode(target); err != nil {
			return nil, err
		}
	}
	var raw map[string]any
	if err := toml.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	return mapKeys(raw), nil
}

func mapKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	return keys
}

// CheckVersion accepts an empty version or one sharing the major version of
// CurrentConfigVersion.
func CheckVersion(version string) error {
	if version == "" {
		return nil
	}
	v := "v" + strings.TrimPrefix(version, "v")
	if !semver.IsValid(v) {
		return NewUserError(ErrCodeConfigVersion, fmt.Sprintf("invalid config_version %q", version)).
			WithContext("config_version").
			WithSuggestion("Use a semantic version such as " + CurrentConfigVersion + ".")
	}
	current := "v" + CurrentConfigVersion
	if semver.Major(v) != semver.Major(current) {
		return NewUserError(ErrCodeConfigVersion,
			fmt.Sprintf("config_version %s is not compatible with %s", version, CurrentConfigVersion)).
			WithContext("config_version").
			WithSuggestion("Re-export the configuration with a matching release.")
	}
	return nil
}

// Validate checks option values that are invalid regardless of the scene.
func (b *Bundle) Validate() error {
	var errs ErrorList

	p := &b.Print
	if len(p.NozzleDiameter) == 0 {
		errs.AddInvalid("nozzle_diameter", "at least one extruder is required")
	}
	for _, d := range p.NozzleDiameter {
		if d <= 0 {
			errs.AddInvalid("nozzle_diameter", "must be positive")
			break
		}
	}
	if p.FirstLayerHeight <= 0 {
		errs.AddInvalid("first_layer_height", "must be positive")
	}
	if p.Skirts < 0 {
		errs.AddInvalid("skirts", "must not be negative")
	}
	if p.SkirtHeight < 0 {
		errs.AddInvalid("skirt_height", "must not be negative")
	}
	switch p.DraftShield {
	case DraftShieldDisabled, DraftShieldLimited, DraftShieldEnabled:
	default:
		errs.AddInvalid("draft_shield", fmt.Sprintf("unknown mode %q", p.DraftShield))
	}
	if p.WipeTower && p.WipeTowerWidth <= 0 {
		errs.AddInvalid("wipe_tower_width", "must be positive when the wipe tower is enabled")
	}

	if b.Object.LayerHeight <= 0 {
		errs.AddInvalid("layer_height", "must be positive")
	}
	switch b.Object.BrimType {
	case BrimNone, BrimOuterOnly:
	default:
		errs.AddInvalid("brim_type", fmt.Sprintf("unknown brim type %q", b.Object.BrimType))
	}

	if d := b.Region.FillDensity; d < 0 || d > 100 {
		errs.AddInvalid("fill_density", "must be between 0 and 100")
	}
	if b.Region.Perimeters < 0 {
		errs.AddInvalid("perimeters", "must not be negative")
	}

	return errs.AsError()
}
