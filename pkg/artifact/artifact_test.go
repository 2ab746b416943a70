package artifact

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewComputesHash(t *testing.T) {
	a := New(KindText, "hello", "mock", "task-1")
	b := New(KindText, "hello", "mock", "task-2")

	assert.NotEmpty(t, a.ID)
	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, a.Hash, b.Hash, "hash covers content, not identity")
	assert.Len(t, a.Hash, 16)
}

func TestNewFileIncludesPathInHash(t *testing.T) {
	a := NewFile("a.go", "package a", "mock", "t")
	b := NewFile("b.go", "package a", "mock", "t")
	assert.NotEqual(t, a.Hash, b.Hash)
	assert.Equal(t, KindFile, a.Kind)
}

func TestWithMetadataCopies(t *testing.T) {
	a := New(KindText, "x", "mock", "t")
	b := a.WithMetadata("role", "reviewer")

	assert.Empty(t, a.Metadata)
	assert.Equal(t, "reviewer", b.Metadata["role"])
	assert.Equal(t, a.ID, b.ID)
}

func TestFlatten(t *testing.T) {
	a := New(KindText, "a", "mock", "t")
	b := New(KindText, "b", "mock", "t")

	out := Flatten([]*Artifact{a, nil}, nil, []*Artifact{b})
	require.Len(t, out, 2)
	assert.Same(t, a, out[0])
	assert.Same(t, b, out[1])
}
