// Package experiments maps setting names to the networks a run evaluates.
// Settings are registered in code at init time or loaded from YAML files in
// the experiments directory before the run starts.
package experiments

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	bferrors "github.com/Brownie44l1/burst-eval/internal/errors"
	"github.com/Brownie44l1/burst-eval/internal/model"
)

// Env carries what settings need to turn network parameters into loadable
// descriptors.
type Env struct {
	NetworksPath string
	Runtime      model.RuntimeOptions
}

type SettingFunc func(env Env) []model.Descriptor

// NetworkParam names one trained network by module and parameter set.
type NetworkParam struct {
	Module      string `yaml:"module"`
	Parameter   string `yaml:"parameter"`
	EpochNum    int    `yaml:"epoch"`
	BurstSize   int    `yaml:"burst_size"`
	DisplayName string `yaml:"display_name"`
}

func (p NetworkParam) UniqueName() string {
	name := fmt.Sprintf("%s_%s", p.Module, p.Parameter)
	if p.EpochNum > 0 {
		name = fmt.Sprintf("%s_ep%04d", name, p.EpochNum)
	}
	return name
}

func (p NetworkParam) Descriptor(env Env) model.Descriptor {
	base := filepath.Join(env.NetworksPath, p.Module, p.UniqueName())
	return &model.OnnxDescriptor{
		Name:         p.UniqueName(),
		Display:      p.DisplayName,
		BurstSz:      p.BurstSize,
		ModelPath:    base + ".onnx",
		MetadataPath: base + ".json",
		Runtime:      env.Runtime,
	}
}

// Networks builds a SettingFunc from a fixed parameter list.
func Networks(params ...NetworkParam) SettingFunc {
	return func(env Env) []model.Descriptor {
		out := make([]model.Descriptor, len(params))
		for i, p := range params {
			out[i] = p.Descriptor(env)
		}
		return out
	}
}

type Registry struct {
	mu       sync.RWMutex
	settings map[string]SettingFunc
}

func NewRegistry() *Registry {
	return &Registry{settings: make(map[string]SettingFunc)}
}

func (r *Registry) Register(name string, fn SettingFunc) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.settings[name]; ok {
		return &bferrors.ConfigError{ErrorMsg: fmt.Sprintf("setting %q registered twice", name)}
	}
	r.settings[name] = fn
	return nil
}

// Resolve returns the descriptors of a setting. An unknown name is a
// configuration error.
func (r *Registry) Resolve(name string, env Env) ([]model.Descriptor, error) {
	r.mu.RLock()
	fn, ok := r.settings[name]
	r.mu.RUnlock()
	if !ok {
		return nil, &bferrors.ConfigError{ErrorMsg: fmt.Sprintf("no experiment setting named %q, known settings: %s",
			name, strings.Join(r.Names(), ", "))}
	}
	return fn(env), nil
}

func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.settings))
	for n := range r.settings {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

var defaultRegistry = NewRegistry()

func Default() *Registry {
	return defaultRegistry
}

// MustRegister adds a setting to the default registry and panics on a
// duplicate name. It is meant for init functions.
func MustRegister(name string, fn SettingFunc) {
	if err := defaultRegistry.Register(name, fn); err != nil {
		panic(err)
	}
}
