package main

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/gnemet/SlideGraph/internal/testutil"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunPrintsPackage(t *testing.T) {
	fsys := afero.NewMemMapFs()
	testutil.WriteDeck(t, fsys, "/in/deck.pptx", testutil.SampleDeck())

	var buf bytes.Buffer
	require.NoError(t, run(context.Background(), fsys, "/in/deck.pptx", &buf))

	var got struct {
		Name  string `json:"name"`
		Parts []struct {
			Name string `json:"name"`
		} `json:"parts"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "deck.pptx", got.Name)
	assert.NotEmpty(t, got.Parts)
}

func TestRunMissingPackage(t *testing.T) {
	var buf bytes.Buffer
	err := run(context.Background(), afero.NewMemMapFs(), "/in/missing.pptx", &buf)
	assert.Error(t, err)
	assert.Empty(t, buf.String())
}
