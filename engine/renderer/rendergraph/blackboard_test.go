package rendergraph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type shadowOutput struct {
	Map Resource
}

type gbufferOutput struct {
	Albedo Resource
	Normal Resource
}

func TestBlackboard(t *testing.T) {
	b := NewBlackboard()

	_, ok := TryGetOutput[shadowOutput](b)
	assert.False(t, ok)
	_, err := GetOutput[shadowOutput](b)
	assert.ErrorIs(t, err, ErrOutputMissing)

	shadow, err := RegisterOutput(b, shadowOutput{Map: Resource{Kind: ResourceKindTexture, Index: 3}})
	require.NoError(t, err)
	_, err = RegisterOutput(b, gbufferOutput{Albedo: Resource{Kind: ResourceKindTexture, Index: 1}})
	require.NoError(t, err)

	got, err := GetOutput[shadowOutput](b)
	require.NoError(t, err)
	assert.Same(t, shadow, got)
	gb, ok := TryGetOutput[gbufferOutput](b)
	require.True(t, ok)
	assert.Equal(t, uint32(1), gb.Albedo.Index)

	_, err = RegisterOutput(b, shadowOutput{})
	assert.ErrorIs(t, err, ErrOutputExists)

	updated := UpdateOutput(b, shadowOutput{Map: Resource{Kind: ResourceKindTexture, Index: 9}})
	got, err = GetOutput[shadowOutput](b)
	require.NoError(t, err)
	assert.Same(t, updated, got)
	assert.Equal(t, uint32(9), got.Map.Index)

	// pointers stay valid for the rest of the frame
	got.Map.Version = 2
	again, _ := GetOutput[shadowOutput](b)
	assert.Equal(t, uint32(2), again.Map.Version)

	b.Clear()
	_, ok = TryGetOutput[shadowOutput](b)
	assert.False(t, ok)
	_, err = RegisterOutput(b, shadowOutput{})
	assert.NoError(t, err, "registering again after a clear")
}

func TestOutputTypeIndexIsStable(t *testing.T) {
	a := outputTypeIndex[shadowOutput]()
	b := outputTypeIndex[gbufferOutput]()
	assert.NotEqual(t, a, b)
	assert.Equal(t, a, outputTypeIndex[shadowOutput]())
}

func TestBlackboardsAreIndependent(t *testing.T) {
	first := NewBlackboard()
	second := NewBlackboard()
	UpdateOutput(first, shadowOutput{})

	_, ok := TryGetOutput[shadowOutput](second)
	assert.False(t, ok)
}
