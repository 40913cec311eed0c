package app

import (
	"context"
	"fmt"

	"github.com/felixgeelhaar/statekit"

	"github.com/felixgeelhaar/slicecore/internal/domain/config"
	"github.com/felixgeelhaar/slicecore/internal/domain/model"
	"github.com/felixgeelhaar/slicecore/internal/domain/print"
)

// Inputs are a scene and the configuration it is sliced with.
type Inputs struct {
	Model  *model.Model
	Bundle config.Bundle
}

// LoadInputs reads a scene and, when configPath is set, a configuration
// bundle. Without a configuration the defaults apply.
func LoadInputs(scenePath, configPath string) (Inputs, error) {
	m, err := model.LoadScene(scenePath)
	if err != nil {
		return Inputs{}, err
	}
	b := config.DefaultBundle()
	if configPath != "" {
		if b, err = config.Load(configPath); err != nil {
			return Inputs{}, err
		}
		if err := b.Validate(); err != nil {
			return Inputs{}, fmt.Errorf("invalid configuration %s: %w", configPath, err)
		}
	}
	return Inputs{Model: m, Bundle: b}, nil
}

// InvalidateKeys stops any running process and invalidates the steps
// depending on keys. It reports whether anything was invalidated.
func (s *Session) InvalidateKeys(ctx context.Context, keys []string) (bool, error) {
	s.applyMu.Lock()
	defer s.applyMu.Unlock()
	if err := s.Stop(ctx); err != nil {
		return false, err
	}
	changed := s.print.InvalidateKeys(keys)
	if changed {
		s.send(statekit.Event{Type: EventReset})
	}
	return changed, nil
}

// Reload reads the scene and configuration again and applies them. Steps
// the changes do not touch keep their results.
func (s *Session) Reload(ctx context.Context, scenePath, configPath string) (print.ApplyStatus, error) {
	in, err := LoadInputs(scenePath, configPath)
	if err != nil {
		return print.ApplyUnchanged, err
	}
	return s.Apply(ctx, in.Model, in.Bundle)
}
