package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"jan-server/services/dm-api/internal/domain/model"
	"jan-server/services/dm-api/internal/infrastructure/logger"
)

// ModelCatalogConfig is the parsed MODELS_FILE document.
type ModelCatalogConfig struct {
	DefaultID string
	Models    []model.Model
}

// LoadModelCatalog builds the model catalog, from MODELS_FILE when set and the built-in list otherwise.
func (c *Config) LoadModelCatalog() (*model.Catalog, error) {
	if strings.TrimSpace(c.ModelsFile) == "" {
		return model.NewCatalog(model.DefaultModels(), c.DefaultModel)
	}
	doc, err := LoadModelCatalogConfig(c.ModelsFile)
	if err != nil {
		return nil, err
	}
	defaultID := doc.DefaultID
	if defaultID == "" {
		defaultID = c.DefaultModel
	}
	return model.NewCatalog(doc.Models, defaultID)
}

// LoadModelCatalogConfig parses the yaml file at the provided path.
func LoadModelCatalogConfig(path string) (*ModelCatalogConfig, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("model catalog path is empty")
	}

	log := logger.GetLogger()
	cleanPath := filepath.Clean(path)
	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("read model catalog %q: %w", cleanPath, err)
	}
	log.Info().Str("path", cleanPath).Msg("loading model catalog file")

	var doc modelConfigDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse model catalog %q: %w", cleanPath, err)
	}

	result := &ModelCatalogConfig{DefaultID: strings.TrimSpace(expandWithDefault(doc.Default))}
	for idx, entry := range doc.Models {
		entryLogger := log.With().Int("index", idx).Str("id", entry.ID).Logger()
		enabled, err := parseEnabled(entry.EnableRaw)
		if err != nil {
			return nil, fmt.Errorf("models[%d]: %w", idx, err)
		}
		if !enabled {
			entryLogger.Info().Msg("skipping model (enable=false)")
			continue
		}
		normalized, err := normalizeModelEntry(entry)
		if err != nil {
			return nil, fmt.Errorf("models[%d]: %w", idx, err)
		}
		result.Models = append(result.Models, normalized)
	}

	if len(result.Models) == 0 {
		return nil, fmt.Errorf("model catalog %q has no enabled models", cleanPath)
	}
	return result, nil
}

type modelConfigDocument struct {
	Default string             `yaml:"default"`
	Models  []modelConfigEntry `yaml:"models"`
}

type modelConfigEntry struct {
	EnableRaw         string   `yaml:"enable"`
	ID                string   `yaml:"id"`
	Name              string   `yaml:"name"`
	Traits            []string `yaml:"traits"`
	ParallelToolCalls *bool    `yaml:"supports_parallel_tool_calls"`
}

func normalizeModelEntry(entry modelConfigEntry) (model.Model, error) {
	id := strings.TrimSpace(os.ExpandEnv(entry.ID))
	if id == "" {
		return model.Model{}, errors.New("model id is required")
	}

	name := strings.TrimSpace(os.ExpandEnv(entry.Name))
	if name == "" {
		name = id
	}

	traits := make([]string, 0, len(entry.Traits))
	for _, trait := range entry.Traits {
		if trait = strings.TrimSpace(trait); trait != "" {
			traits = append(traits, trait)
		}
	}

	return model.Model{
		ID:                        id,
		Name:                      name,
		Traits:                    traits,
		SupportsParallelToolCalls: entry.ParallelToolCalls != nil && *entry.ParallelToolCalls,
	}, nil
}

func parseEnabled(raw string) (bool, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return true, nil
	}

	resolved := strings.TrimSpace(expandWithDefault(value))
	if resolved == "" {
		return true, nil
	}

	parsed, err := strconv.ParseBool(resolved)
	if err != nil {
		return false, fmt.Errorf("enable: %w", err)
	}
	return parsed, nil
}

// expandWithDefault expands ${VAR} and ${VAR:-default} syntax using os envs.
func expandWithDefault(raw string) string {
	start := strings.Index(raw, "${")
	if start == -1 {
		return os.ExpandEnv(raw)
	}
	end := strings.Index(raw[start:], "}")
	if end == -1 {
		return os.ExpandEnv(raw)
	}
	end = start + end
	expr := raw[start+2 : end]
	defaultVal := ""
	varName := expr
	if name, fallback, found := strings.Cut(expr, ":-"); found {
		varName = name
		defaultVal = fallback
	}
	val := os.Getenv(varName)
	if val == "" {
		val = defaultVal
	}
	return os.ExpandEnv(raw[:start] + val + raw[end+1:])
}
