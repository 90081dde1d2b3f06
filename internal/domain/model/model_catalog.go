package model

import (
	"fmt"
	"slices"
	"strings"
)

const DefaultModelID = "llama-3.1-70b-instruct"

// Model describes one upstream chat model the DM can run on.
type Model struct {
	ID                        string   `json:"id" yaml:"id"`
	Name                      string   `json:"name" yaml:"name"`
	Traits                    []string `json:"traits,omitempty" yaml:"traits"`
	SupportsParallelToolCalls bool     `json:"supports_parallel_tool_calls" yaml:"supports_parallel_tool_calls"`
}

// DefaultModels mirrors the models the game shipped with.
func DefaultModels() []Model {
	return []Model{
		{
			ID:     "llama-3.1-70b-instruct",
			Name:   "Llama 3.1 70B Instruct",
			Traits: []string{"most_uncensored", "most_intelligent"},
		},
		{
			ID:                        "llama-3.3-70b",
			Name:                      "Llama 3.3 70B",
			Traits:                    []string{"default", "most_intelligent"},
			SupportsParallelToolCalls: true,
		},
		{
			ID:     "llama-3.1-8b-instruct",
			Name:   "Llama 3.1 8B Instruct",
			Traits: []string{"fastest"},
		},
	}
}

// Catalog is the allow-list of selectable models.
type Catalog struct {
	models    []Model
	byID      map[string]Model
	defaultID string
}

func NewCatalog(models []Model, defaultID string) (*Catalog, error) {
	if len(models) == 0 {
		return nil, fmt.Errorf("model catalog is empty")
	}
	byID := make(map[string]Model, len(models))
	for _, m := range models {
		id := strings.TrimSpace(m.ID)
		if id == "" {
			return nil, fmt.Errorf("model catalog entry without id")
		}
		if _, dup := byID[id]; dup {
			return nil, fmt.Errorf("duplicate model id %q", id)
		}
		m.ID = id
		byID[id] = m
	}
	if defaultID == "" {
		defaultID = models[0].ID
	}
	if _, ok := byID[defaultID]; !ok {
		return nil, fmt.Errorf("default model %q is not in the catalog", defaultID)
	}
	return &Catalog{models: slices.Clone(models), byID: byID, defaultID: defaultID}, nil
}

// NewDefaultCatalog builds the catalog from DefaultModels.
func NewDefaultCatalog() *Catalog {
	catalog, err := NewCatalog(DefaultModels(), DefaultModelID)
	if err != nil {
		panic(err)
	}
	return catalog
}

// Resolve returns the model for id. Unknown or empty ids resolve to the default model,
// reported by the second return value being false.
func (c *Catalog) Resolve(id string) (Model, bool) {
	if m, ok := c.byID[strings.TrimSpace(id)]; ok {
		return m, true
	}
	return c.byID[c.defaultID], false
}

func (c *Catalog) Default() Model {
	return c.byID[c.defaultID]
}

func (c *Catalog) Contains(id string) bool {
	_, ok := c.byID[strings.TrimSpace(id)]
	return ok
}

func (c *Catalog) List() []Model {
	return slices.Clone(c.models)
}
