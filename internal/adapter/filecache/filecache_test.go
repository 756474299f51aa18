package filecache

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"cnb-rates/internal/entity"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	logger, _ := test.NewNullLogger()
	return NewStore(filepath.Join(t.TempDir(), DefaultFilename), logger)
}

func TestStore_SaveAndLoad(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	entries := map[string]entity.FallbackEntry{
		"USD": {Rate: 24.688, Amount: 1, Date: time.Date(2015, 12, 9, 0, 0, 0, 0, time.UTC)},
		"HUF": {Rate: 8.629, Amount: 100, Date: time.Date(2015, 12, 4, 0, 0, 0, 0, time.UTC)},
	}
	require.NoError(t, store.Save(ctx, entries))

	raw, err := os.ReadFile(store.Path())
	require.NoError(t, err)
	assert.JSONEq(t, `{"USD":[24.688,1,"09.12.2015"],"HUF":[8.629,100,"04.12.2015"]}`, string(raw))

	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, entries, loaded)
}

func TestStore_LoadMissingFile(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Load(context.Background())
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestStore_LoadCorruptFile(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, os.WriteFile(store.Path(), []byte("{not json"), 0o600))

	_, err := store.Load(context.Background())
	assert.ErrorContains(t, err, "decode fallback file")
}

func TestStore_SaveIntoMissingDir(t *testing.T) {
	logger, _ := test.NewNullLogger()
	store := NewStore(filepath.Join(t.TempDir(), "missing", DefaultFilename), logger)

	err := store.Save(context.Background(), map[string]entity.FallbackEntry{})
	assert.Error(t, err)
}

func TestNewStore_DefaultPath(t *testing.T) {
	logger, _ := test.NewNullLogger()
	assert.Equal(t, DefaultPath(), NewStore("", logger).Path())
}
