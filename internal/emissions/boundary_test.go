package emissions

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBoundaryDefaults(t *testing.T) {
	farm, err := NewBoundary(ScopeFarmGate)
	require.NoError(t, err)
	assert.Equal(t, []string{"enteric", "manure", "soil", "energy", "inputs"}, farm.Strings())
	assert.False(t, farm.Includes(SourceFeed))

	cradle, err := NewBoundary(ScopeCradleToFarmGate)
	require.NoError(t, err)
	assert.True(t, cradle.Includes(SourceFeed))
	assert.Len(t, cradle.Tags(), 6)
}

func TestNewBoundaryExplicitInclude(t *testing.T) {
	b, err := NewBoundary(ScopePartial, SourceManure, SourceEnteric)
	require.NoError(t, err)
	assert.Equal(t, ScopePartial, b.Scope())
	assert.Equal(t, []SourceTag{SourceEnteric, SourceManure}, b.Tags())
	assert.False(t, b.Includes(SourceEnergy))
}

func TestNewBoundaryErrors(t *testing.T) {
	tests := []struct {
		name    string
		scope   Scope
		include []SourceTag
	}{
		{"unknown scope", Scope("whole_planet"), nil},
		{"partial without include", ScopePartial, nil},
		{"unknown tag", ScopeFarmGate, []SourceTag{SourceEnteric, "methane_magic"}},
		{"explicit empty include", ScopeFarmGate, []SourceTag{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewBoundary(tt.scope, tt.include...)
			require.Error(t, err)
			var be *BoundaryConfigError
			assert.True(t, errors.As(err, &be))
			assert.True(t, IsInputError(err))
		})
	}
}

func TestBoundaryTagsReturnsCopy(t *testing.T) {
	b := mustBoundary(t, ScopeFarmGate)
	tags := b.Tags()
	tags[0] = SourceFeed

	assert.True(t, b.Includes(SourceEnteric))
	assert.False(t, b.Includes(SourceFeed))
}

func TestNilBoundaryIncludesEverything(t *testing.T) {
	var b *Boundary
	for _, tag := range AllSourceTags {
		assert.True(t, b.Includes(tag))
	}
	assert.Equal(t, Scope(""), b.Scope())
}

func TestParseBoundary(t *testing.T) {
	b, err := ParseBoundary("partial", []string{"energy"})
	require.NoError(t, err)
	assert.Equal(t, []string{"energy"}, b.Strings())

	_, err = ParseBoundary("farm_gate", []string{"energy", ""})
	assert.Error(t, err)

	b, err = ParseBoundary("farm_gate", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"enteric", "manure", "soil", "energy", "inputs"}, b.Strings())

	_, err = ParseBoundary("farm_gate", []string{})
	var be *BoundaryConfigError
	require.True(t, errors.As(err, &be))
	assert.Contains(t, be.Message, "non-empty include")
}
