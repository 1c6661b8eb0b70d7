package experiments

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	bferrors "github.com/Brownie44l1/burst-eval/internal/errors"
	"gopkg.in/yaml.v3"
)

type settingFile struct {
	Networks []NetworkParam `yaml:"networks"`
}

// LoadDir registers one setting per *.yaml or *.yml file in dir, named after
// the file. A missing directory registers nothing.
func (r *Registry) LoadDir(dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to list experiments directory: %w", err)
	}

	loaded := 0
	for _, e := range entries {
		ext := filepath.Ext(e.Name())
		if e.IsDir() || (ext != ".yaml" && ext != ".yml") {
			continue
		}
		params, err := loadSettingFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return loaded, err
		}
		if err := r.Register(strings.TrimSuffix(e.Name(), ext), Networks(params...)); err != nil {
			return loaded, err
		}
		loaded++
	}
	return loaded, nil
}

func loadSettingFile(path string) ([]NetworkParam, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read setting file: %w", err)
	}
	var sf settingFile
	if err := yaml.Unmarshal(raw, &sf); err != nil {
		return nil, &bferrors.ConfigError{ErrorMsg: fmt.Sprintf("invalid setting file %s: %v", path, err)}
	}
	if len(sf.Networks) == 0 {
		return nil, &bferrors.ConfigError{ErrorMsg: fmt.Sprintf("setting file %s lists no networks", path)}
	}
	for i, p := range sf.Networks {
		if p.Module == "" || p.Parameter == "" {
			return nil, &bferrors.ConfigError{ErrorMsg: fmt.Sprintf("%s: network %d needs module and parameter", path, i)}
		}
		if p.BurstSize < 0 {
			return nil, &bferrors.ConfigError{ErrorMsg: fmt.Sprintf("%s: network %d has negative burst_size", path, i)}
		}
	}
	return sf.Networks, nil
}
