package factors

import (
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"
)

// DefaultRegion is used whenever a requested region or country is unknown.
const DefaultRegion = "global"

// ErrUnknownSubstance is returned when no table entry exists for a substance in
// any region, including the default one.
var ErrUnknownSubstance = errors.New("unknown substance")

// Factor is a single emission factor resolved from the registry
type Factor struct {
	Substance string  `json:"substance" yaml:"substance"`
	Region    string  `json:"region" yaml:"region"`
	Tier      int     `json:"tier" yaml:"tier"`
	Value     float64 `json:"value" yaml:"value"`
	Unit      string  `json:"unit" yaml:"unit"`
	Source    string  `json:"source_note" yaml:"source"`
	// Fallback is set when the default region answered for a more specific request.
	Fallback bool `json:"fallback" yaml:"-"`
}

type key struct {
	substance string
	region    string
	tier      int
}

// Registry maps (substance, region/country, tier) to emission factors.
// It is safe for concurrent reads; overrides should be loaded before use.
type Registry struct {
	mu      sync.RWMutex
	entries map[key]Factor
	known   map[string]struct{}
}

// NewRegistry creates a registry seeded with the built-in tables
func NewRegistry() *Registry {
	r := &Registry{
		entries: make(map[key]Factor, len(builtin)),
		known:   make(map[string]struct{}),
	}
	for _, f := range builtin {
		r.put(f)
	}
	return r
}

func (r *Registry) put(f Factor) {
	f.Region = normalizeRegion(f.Region)
	f.Fallback = false
	r.entries[key{substance: f.Substance, region: f.Region, tier: f.Tier}] = f
	r.known[f.Substance] = struct{}{}
}

// Set adds or replaces one factor
func (r *Registry) Set(f Factor) error {
	if f.Substance == "" {
		return errors.New("factor substance is required")
	}
	if f.Value < 0 {
		return errors.Newf("factor %s must be non-negative, got %v", f.Substance, f.Value)
	}
	if f.Region == "" {
		f.Region = DefaultRegion
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.put(f)
	return nil
}

// Get resolves a factor. Lookup order is: exact region (or country) at the
// requested tier, then tier-agnostic, then the country's region, then the
// default region. An unknown region never fails; it falls back to the default
// region and marks the returned factor.
func (r *Registry) Get(substance, regionOrCountry string, tier int) (Factor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if _, ok := r.known[substance]; !ok {
		return Factor{}, errors.Wrapf(ErrUnknownSubstance, "%q", substance)
	}

	requested := normalizeRegion(regionOrCountry)
	if requested == "" {
		requested = DefaultRegion
	}

	for _, region := range lookupChain(requested) {
		for _, t := range tierChain(tier) {
			if f, ok := r.entries[key{substance: substance, region: region, tier: t}]; ok {
				f.Fallback = region == DefaultRegion && requested != DefaultRegion
				return f, nil
			}
		}
	}

	return Factor{}, errors.Wrapf(ErrUnknownSubstance, "%q has no entry for tier %d", substance, tier)
}

// Value is a shorthand for Get(...).Value
func (r *Registry) Value(substance, regionOrCountry string, tier int) (float64, error) {
	f, err := r.Get(substance, regionOrCountry, tier)
	if err != nil {
		return 0, err
	}
	return f.Value, nil
}

// Substances lists every substance known to the registry
func (r *Registry) Substances() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.known))
	for s := range r.known {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// IsKnownRegion reports whether the region or country resolves without fallback
func IsKnownRegion(regionOrCountry string) bool {
	n := normalizeRegion(regionOrCountry)
	if _, ok := regions[n]; ok {
		return true
	}
	_, ok := countryRegion[n]
	return ok
}

// RegionOf returns the region a country belongs to, or the input when it is
// already a region. Unknown values resolve to DefaultRegion.
func RegionOf(regionOrCountry string) string {
	n := normalizeRegion(regionOrCountry)
	if _, ok := regions[n]; ok {
		return n
	}
	if region, ok := countryRegion[n]; ok {
		return region
	}
	return DefaultRegion
}

type overrideFile struct {
	Factors []Factor `yaml:"factors"`
}

// LoadOverrides reads a YAML file of factor entries and merges them into the registry
func (r *Registry) LoadOverrides(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, errors.Wrapf(err, "failed to read factor overrides %s", path)
	}

	var file overrideFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return 0, errors.Wrapf(err, "failed to parse factor overrides %s", path)
	}

	for i, f := range file.Factors {
		if err := r.Set(f); err != nil {
			return i, errors.Wrapf(err, "override #%d", i+1)
		}
	}
	return len(file.Factors), nil
}

func lookupChain(requested string) []string {
	chain := []string{requested}
	if region, ok := countryRegion[requested]; ok {
		chain = append(chain, region)
	}
	if requested != DefaultRegion {
		chain = append(chain, DefaultRegion)
	}
	return chain
}

func tierChain(tier int) []int {
	if tier == 0 {
		return []int{0}
	}
	return []int{tier, 0}
}

// normalizeRegion upper-cases two-letter country codes and lower-cases region names
func normalizeRegion(s string) string {
	s = strings.TrimSpace(s)
	if len(s) == 2 {
		upper := strings.ToUpper(s)
		if upper == "UK" {
			return "GB"
		}
		return upper
	}
	return strings.ReplaceAll(strings.ToLower(s), " ", "_")
}
