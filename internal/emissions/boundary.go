package emissions

import (
	"sort"

	"github.com/cockroachdb/errors"
)

// SourceTag identifies one emission category inside a boundary
type SourceTag string

const (
	SourceEnteric SourceTag = "enteric"
	SourceManure  SourceTag = "manure"
	SourceSoil    SourceTag = "soil"
	SourceEnergy  SourceTag = "energy"
	SourceInputs  SourceTag = "inputs"
	SourceFeed    SourceTag = "feed"
)

// AllSourceTags lists every recognized tag in canonical order
var AllSourceTags = []SourceTag{SourceEnteric, SourceManure, SourceSoil, SourceEnergy, SourceInputs, SourceFeed}

// Scope names the kind of footprint boundary
type Scope string

const (
	ScopeFarmGate         Scope = "farm_gate"
	ScopeCradleToFarmGate Scope = "cradle_to_farm_gate"
	ScopePartial          Scope = "partial"
)

var defaultIncludes = map[Scope][]SourceTag{
	ScopeFarmGate:         {SourceEnteric, SourceManure, SourceSoil, SourceEnergy, SourceInputs},
	ScopeCradleToFarmGate: {SourceEnteric, SourceManure, SourceSoil, SourceEnergy, SourceInputs, SourceFeed},
	ScopePartial:          nil,
}

// Boundary is the immutable inclusion set that gates which calculators
// produce non-zero results. A nil *Boundary includes every source.
type Boundary struct {
	scope   Scope
	include map[SourceTag]struct{}
}

// NewBoundary validates the scope and include tags. When no include is passed
// the scope default is used; the partial scope has no default. An explicitly
// passed empty include is rejected.
func NewBoundary(scope Scope, include ...SourceTag) (*Boundary, error) {
	defaults, ok := defaultIncludes[scope]
	if !ok {
		return nil, errors.WithStack(&BoundaryConfigError{Value: string(scope), Message: "unknown scope, must be one of farm_gate, cradle_to_farm_gate, partial"})
	}

	tags := include
	if tags == nil {
		tags = defaults
	}
	if len(tags) == 0 {
		return nil, errors.WithStack(&BoundaryConfigError{Value: string(scope), Message: "scope requires a non-empty include set"})
	}

	b := &Boundary{scope: scope, include: make(map[SourceTag]struct{}, len(tags))}
	for _, tag := range tags {
		if !tag.Valid() {
			return nil, errors.WithStack(&BoundaryConfigError{Value: string(tag), Message: "unrecognized include tag"})
		}
		b.include[tag] = struct{}{}
	}
	return b, nil
}

// ParseBoundary builds a boundary from plain strings (config files, CLI flags, HTTP bodies)
// A nil include selects the scope default; an empty one is an error.
func ParseBoundary(scope string, include []string) (*Boundary, error) {
	if include == nil {
		return NewBoundary(Scope(scope))
	}
	tags := make([]SourceTag, 0, len(include))
	for _, s := range include {
		tags = append(tags, SourceTag(s))
	}
	return NewBoundary(Scope(scope), tags...)
}

// Valid reports whether the tag is recognized
func (t SourceTag) Valid() bool {
	for _, known := range AllSourceTags {
		if t == known {
			return true
		}
	}
	return false
}

// Scope returns the boundary scope
func (b *Boundary) Scope() Scope {
	if b == nil {
		return ""
	}
	return b.scope
}

// Includes reports whether the source is inside the boundary
func (b *Boundary) Includes(tag SourceTag) bool {
	if b == nil {
		return true
	}
	_, ok := b.include[tag]
	return ok
}

// Tags returns the included tags in canonical order
func (b *Boundary) Tags() []SourceTag {
	if b == nil {
		return append([]SourceTag(nil), AllSourceTags...)
	}
	out := make([]SourceTag, 0, len(b.include))
	for tag := range b.include {
		out = append(out, tag)
	}
	sort.Slice(out, func(i, j int) bool { return tagOrder(out[i]) < tagOrder(out[j]) })
	return out
}

// Strings returns the included tags as strings
func (b *Boundary) Strings() []string {
	tags := b.Tags()
	out := make([]string, len(tags))
	for i, t := range tags {
		out[i] = string(t)
	}
	return out
}

func tagOrder(t SourceTag) int {
	for i, known := range AllSourceTags {
		if t == known {
			return i
		}
	}
	return len(AllSourceTags)
}
