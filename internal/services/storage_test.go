package services

import (
	"path/filepath"
	"testing"

	"unfuddle-plugin/internal/common"
	"unfuddle-plugin/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testOptionStore(t *testing.T) *optionStore {
	t.Helper()
	store, err := NewOptionStore(&common.StorageConfig{
		DatabasePath: filepath.Join(t.TempDir(), "plugin.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store.(*optionStore)
}

func sampleOptions() *models.StoredOptions {
	return &models.StoredOptions{
		InstanceURL:       "https://example.unfuddle.com",
		Username:          "rick",
		Password:          "secret",
		DefaultProjectID:  "5",
		DefaultReporterID: "7",
	}
}

func TestOptionStoreRoundTrip(t *testing.T) {
	store := testOptionStore(t)

	require.NoError(t, store.SaveOptions("WEB", sampleOptions()))

	loaded, err := store.LoadOptions("WEB")
	require.NoError(t, err)
	assert.Equal(t, sampleOptions(), loaded)
}

func TestOptionStoreMissingProject(t *testing.T) {
	store := testOptionStore(t)

	loaded, err := store.LoadOptions("ABSENT")
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestOptionStoreOverwrite(t *testing.T) {
	store := testOptionStore(t)

	require.NoError(t, store.SaveOptions("WEB", sampleOptions()))

	updated := sampleOptions()
	updated.DefaultProjectID = "6"
	require.NoError(t, store.SaveOptions("WEB", updated))

	loaded, err := store.LoadOptions("WEB")
	require.NoError(t, err)
	assert.Equal(t, "6", loaded.DefaultProjectID)
}

func TestOptionStoreDelete(t *testing.T) {
	store := testOptionStore(t)

	require.NoError(t, store.SaveOptions("WEB", sampleOptions()))
	require.NoError(t, store.DeleteOptions("WEB"))

	loaded, err := store.LoadOptions("WEB")
	require.NoError(t, err)
	assert.Nil(t, loaded)

	// Deleting an absent key is not an error.
	assert.NoError(t, store.DeleteOptions("WEB"))
}

func TestOptionStoreListProjects(t *testing.T) {
	store := testOptionStore(t)

	projects, err := store.ListProjects()
	require.NoError(t, err)
	assert.Empty(t, projects)

	require.NoError(t, store.SaveOptions("API", sampleOptions()))
	require.NoError(t, store.SaveOptions("WEB", sampleOptions()))

	projects, err = store.ListProjects()
	require.NoError(t, err)
	assert.Equal(t, []string{"API", "WEB"}, projects)
}
