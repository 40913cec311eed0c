package config

import (
	"reflect"
	"slices"
	"strings"
)

// OptionKeys returns the option keys declared by a config struct, in declaration order.
// v must be a struct or a pointer to one.
func OptionKeys(v any) []string {
	t := reflect.TypeOf(v)
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	keys := make([]string, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		if key := optionKey(t.Field(i)); key != "" {
			keys = append(keys, key)
		}
	}
	return keys
}

func optionKey(f reflect.StructField) string {
	tag := f.Tag.Get("yaml")
	if tag == "" || tag == "-" {
		return ""
	}
	name, _, _ := strings.Cut(tag, ",")
	return name
}

// Diff returns the sorted keys whose values differ between a and b.
// a and b must be the same struct type.
func Diff[T any](a, b T) []string {
	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
	t := va.Type()
	var keys []string
	for i := 0; i < t.NumField(); i++ {
		key := optionKey(t.Field(i))
		if key == "" {
			continue
		}
		if !reflect.DeepEqual(va.Field(i).Interface(), vb.Field(i).Interface()) {
			keys = append(keys, key)
		}
	}
	slices.Sort(keys)
	return keys
}

// Bundle is everything a configuration file can carry. Object and region values
// act as defaults for every object in the scene.
type Bundle struct {
	Print  PrintConfig
	Object ObjectConfig
	Region RegionConfig

	// Unknown lists keys found in the file that no option set declares.
	Unknown []string
}

// DefaultBundle returns the default option sets.
func DefaultBundle() Bundle {
	return Bundle{
		Print:  DefaultPrintConfig(),
		Object: DefaultObjectConfig(),
		Region: DefaultRegionConfig(),
	}
}

// KnownKeys returns every key declared by the three option sets.
func KnownKeys() map[string]bool {
	known := make(map[string]bool)
	for _, v := range []any{PrintConfig{}, ObjectConfig{}, RegionConfig{}} {
		for _, k := range OptionKeys(v) {
			known[k] = true
		}
	}
	return known
}

func unknownKeys(keys []string) []string {
	known := KnownKeys()
	var out []string
	for _, k := range keys {
		if !known[k] {
			out = append(out, k)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}
