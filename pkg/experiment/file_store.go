package experiment

import (
	"context"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// FileConfigStore reads experiment and flag definitions from a YAML file.
// The file is parsed on every load call; since the engine loads definitions
// exactly once, edits take effect only through a new engine.
//
// Expected shape:
//
//	experiments:
//	  - id: checkout-button-color
//	    status: running
//	    traffic_allocation: 100
//	    variants:
//	      - id: red
//	        allocation: 50
//	        is_control: true
//	      - id: blue
//	        allocation: 50
//	flags:
//	  - id: new-dashboard
//	    enabled: true
//	    rollout_percentage: 25
type FileConfigStore struct {
	path string
}

// NewFileConfigStore creates a store reading from the given path.
func NewFileConfigStore(path string) *FileConfigStore {
	return &FileConfigStore{path: path}
}

type fileDefinitions struct {
	Experiments []Experiment  `yaml:"experiments"`
	Flags       []FeatureFlag `yaml:"flags"`
}

func (s *FileConfigStore) load() (*fileDefinitions, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, errors.Join(ErrStoreUnavailable, err)
	}

	var defs fileDefinitions
	if err := yaml.Unmarshal(data, &defs); err != nil {
		return nil, errors.Join(ErrInvalidDefinition,
			fmt.Errorf("parsing %s: %w", s.path, err))
	}
	return &defs, nil
}

// LoadActiveExperiments returns all validated, non-archived experiments
// from the file.
func (s *FileConfigStore) LoadActiveExperiments(ctx context.Context) ([]Experiment, error) {
	defs, err := s.load()
	if err != nil {
		return nil, err
	}

	result := make([]Experiment, 0, len(defs.Experiments))
	for _, exp := range defs.Experiments {
		if err := exp.Validate(); err != nil {
			return nil, err
		}
		if exp.Status == StatusArchived {
			continue
		}
		result = append(result, exp)
	}
	return result, nil
}

// LoadActiveFlags returns all validated flags from the file.
func (s *FileConfigStore) LoadActiveFlags(ctx context.Context) ([]FeatureFlag, error) {
	defs, err := s.load()
	if err != nil {
		return nil, err
	}

	for _, flag := range defs.Flags {
		if err := flag.Validate(); err != nil {
			return nil, err
		}
	}
	return defs.Flags, nil
}
