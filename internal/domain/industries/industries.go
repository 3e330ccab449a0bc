package industries

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrUnknownIndustry indicates an industry id that is not configured.
var ErrUnknownIndustry = errors.New("unknown industry")

// General is the pass-through industry: every raw class maps to itself.
const General = "general"

// Class is one target semantic class and the raw-vocabulary names that
// resolve to it.
type Class struct {
	Name     string   `yaml:"name"`
	Synonyms []string `yaml:"synonyms"`
}

// ClassMap maps an industry id to its target classes. Built once at startup,
// immutable afterwards, safe for concurrent reads without locking.
type ClassMap struct {
	profiles map[string]*profile
}

type profile struct {
	classes []string          // declared order
	lookup  map[string]string // lower(synonym) -> target class
}

// New builds a ClassMap from industry id -> class list. Synonym lookup is
// case-insensitive. The "general" industry needs no configuration.
func New(cfg map[string][]Class) *ClassMap {
	m := &ClassMap{profiles: make(map[string]*profile, len(cfg))}
	for industry, classes := range cfg {
		p := &profile{lookup: make(map[string]string)}
		for _, c := range classes {
			p.classes = append(p.classes, c.Name)
			for _, syn := range c.Synonyms {
				p.lookup[strings.ToLower(syn)] = c.Name
			}
		}
		m.profiles[strings.ToLower(industry)] = p
	}
	return m
}

type fileSchema struct {
	Industries map[string]struct {
		Classes []Class `yaml:"classes"`
	} `yaml:"industries"`
}

// LoadFile reads the class-map YAML resource.
func LoadFile(path string) (*ClassMap, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f fileSchema
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing class map %s: %w", path, err)
	}
	cfg := make(map[string][]Class, len(f.Industries))
	for industry, entry := range f.Industries {
		cfg[industry] = entry.Classes
	}
	return New(cfg), nil
}

// Default returns the built-in profiles used when no class-map file is
// configured.
func Default() *ClassMap {
	return New(map[string][]Class{
		"agriculture": {
			{Name: "vine", Synonyms: []string{"vine", "grapevine", "plant", "potted plant"}},
			{Name: "tree", Synonyms: []string{"tree"}},
			{Name: "vehicle", Synonyms: []string{"truck", "tractor"}},
			{Name: "person", Synonyms: []string{"person"}},
			{Name: "animal", Synonyms: []string{"cow", "sheep", "horse", "bird", "dog"}},
		},
		"rescue": {
			{Name: "person", Synonyms: []string{"person", "pedestrian"}},
			{Name: "vehicle", Synonyms: []string{"car", "truck", "bus", "motorcycle", "bicycle"}},
			{Name: "boat", Synonyms: []string{"boat"}},
			{Name: "animal", Synonyms: []string{"dog", "horse", "cow"}},
		},
	})
}

// Has reports whether the industry id is configured. "general" always is.
func (m *ClassMap) Has(industry string) bool {
	industry = strings.ToLower(industry)
	if industry == General {
		return true
	}
	_, ok := m.profiles[industry]
	return ok
}

// Resolve maps a raw class name onto the industry's target vocabulary.
// Returns ok=false when the industry has no mapping for the raw class (the
// detection is dropped downstream), and ErrUnknownIndustry for an industry id
// that is not configured. For "general" resolution is identity.
func (m *ClassMap) Resolve(industry, rawClass string) (string, bool, error) {
	industry = strings.ToLower(industry)
	if industry == General {
		return rawClass, true, nil
	}
	p, ok := m.profiles[industry]
	if !ok {
		return "", false, fmt.Errorf("%w: %q", ErrUnknownIndustry, industry)
	}
	target, ok := p.lookup[strings.ToLower(rawClass)]
	return target, ok, nil
}

// Industries lists the configured industry ids, sorted, plus "general".
func (m *ClassMap) Industries() []string {
	out := make([]string, 0, len(m.profiles)+1)
	for id := range m.profiles {
		out = append(out, id)
	}
	out = append(out, General)
	sort.Strings(out)
	return out
}

// Classes returns the target class names for an industry in declared order.
func (m *ClassMap) Classes(industry string) ([]string, error) {
	p, ok := m.profiles[strings.ToLower(industry)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownIndustry, industry)
	}
	out := make([]string, len(p.classes))
	copy(out, p.classes)
	return out, nil
}
