package songdata

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/technomythic/hitster/internal/game"
)

func TestFilterDropsIncompleteRecords(t *testing.T) {
	in := []game.Song{
		{ID: "ok", Title: "T", Artist: "A", Year: 1999},
		{ID: "", Title: "T", Artist: "A", Year: 1999},
		{ID: "x", Title: "", Artist: "A", Year: 1999},
		{ID: "y", Title: "T", Artist: "", Year: 1999},
		{ID: "z", Title: "T", Artist: "A", Year: 0},
		{ID: "w", Title: "T", Artist: "A", Year: -3},
	}
	out := Filter(in)
	require.Len(t, out, 1)
	assert.Equal(t, "ok", out[0].ID)
}

func TestLibraryLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "songs.json")
	require.NoError(t, os.WriteFile(path, []byte(`[
		{"id":"a","title":"One","artist":"Ana","year":1974,"audio":"a.mp3"},
		{"id":"b","title":"Two","artist":"Bo","year":0},
		{"id":"c","title":"Three","artist":"Cy","year":2012}
	]`), 0o644))

	lib := &Library{Path: path}
	songs, err := lib.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, songs, 2)
	assert.Equal(t, "a", songs[0].ID)
	assert.Equal(t, "c", songs[1].ID)
}

func TestLibraryLoadErrors(t *testing.T) {
	lib := &Library{Path: filepath.Join(t.TempDir(), "missing.json")}
	_, err := lib.Load(context.Background())
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0o644))
	lib = &Library{Path: path}
	_, err = lib.Load(context.Background())
	assert.Error(t, err)
}
