package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type doc struct {
	Count int `json:"count"`
}

func empty() doc { return doc{} }

func TestOpenMissingFileStartsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.json")

	f, err := Open(path, empty, nil, nil)
	require.NoError(t, err)

	var got doc
	f.View(func(v doc) { got = v })
	assert.Equal(t, doc{}, got)
}

func TestMutatePersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.json")

	f, err := Open(path, empty, nil, nil)
	require.NoError(t, err)

	err = f.Mutate(func(v doc) (doc, error) {
		v.Count++
		return v, nil
	})
	require.NoError(t, err)

	reopened, err := Open(path, empty, nil, nil)
	require.NoError(t, err)

	var got doc
	reopened.View(func(v doc) { got = v })
	assert.Equal(t, doc{Count: 1}, got)
}

func TestOpenBacksUpCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.json")
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0o644))

	f, err := Open(path, empty, nil, nil)
	require.NoError(t, err)

	var got doc
	f.View(func(v doc) { got = v })
	assert.Equal(t, doc{}, got)

	_, statErr := os.Stat(path + ".bak1")
	assert.NoError(t, statErr)
}
