package manifest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNamedFeature(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{name: "regular name", input: "cuda", wantErr: false},
		{name: "reserved default name", input: "default", wantErr: true},
		{name: "empty name", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NamedFeature(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.input, got.Name())
			assert.False(t, got.IsDefault())
		})
	}
}

func TestFeatureNameFrom(t *testing.T) {
	assert.True(t, FeatureNameFrom("default").IsDefault())
	assert.True(t, FeatureNameFrom("").IsDefault())
	assert.False(t, FeatureNameFrom("test").IsDefault())
}

func TestFeatureNameString(t *testing.T) {
	assert.Equal(t, "default", DefaultName().String())

	name, err := NamedFeature("lint")
	require.NoError(t, err)
	assert.Equal(t, "lint", name.String())
}

func TestFeatureNameAsMapKey(t *testing.T) {
	// The zero value and the parsed default name must be the same key.
	m := map[FeatureName]int{}
	m[DefaultName()] = 1
	m[FeatureNameFrom("default")] = 2

	assert.Len(t, m, 1)
	assert.Equal(t, 2, m[FeatureName{}])
}
