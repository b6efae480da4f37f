package store

import (
	"context"
	"sync"
	"testing"

	"github.com/gnemet/SlideGraph/internal/asset"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func result(name, checksum string) *asset.PackageResult {
	return &asset.PackageResult{Name: name, Path: "/in/" + name, Checksum: checksum, Parts: []asset.PartResult{{
		Name: "slide1.xml",
		Assets: []asset.Record{
			{ID: "2", ParentID: asset.RootID, Name: "Title 1", Type: asset.TypeShape, Value: asset.None()},
			{ID: "Auto_1", ParentID: "2", Name: "Text", Type: asset.TypeText, Value: asset.Literal("Hello")},
		},
	}}}
}

func TestConsumeReplaces(t *testing.T) {
	s := New()
	ctx := context.Background()
	require.NoError(t, s.Consume(ctx, result("b.pptx", "1")))
	require.NoError(t, s.Consume(ctx, result("a.pptx", "2")))
	require.NoError(t, s.Consume(ctx, result("b.pptx", "3")))

	list := s.List()
	require.Len(t, list, 2)
	assert.Equal(t, "a.pptx", list[0].Name)
	assert.Equal(t, "b.pptx", list[1].Name)
	assert.Equal(t, "3", list[1].Checksum)
	assert.Equal(t, 1, list[1].Parts)

	e, ok := s.Get("b.pptx")
	require.True(t, ok)
	forest, ok := e.Hierarchy.Get("slide1.xml")
	require.True(t, ok)
	assert.Equal(t, []string{"2"}, forest.Keys())

	_, ok = s.Get("c.pptx")
	assert.False(t, ok)
}

func TestConcurrentAccess(t *testing.T) {
	s := New()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = s.Consume(ctx, result("a.pptx", "x"))
		}()
		go func() {
			defer wg.Done()
			_ = s.List()
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, s.Len())
}
