package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/portagehq/portage/internal/db"
	apperrors "github.com/portagehq/portage/internal/errors"
)

func seedEpics(t *testing.T, store *db.TrackerDB, titles map[string]string) {
	t.Helper()
	require.NoError(t, store.SaveProject(&db.Project{ID: "proj-1", Name: "Source"}))
	for id, title := range titles {
		require.NoError(t, store.SaveEpic(&db.Epic{ID: id, ProjectID: "proj-1", Title: title}))
	}
}

func TestDeriveExportPathsDistinctTitles(t *testing.T) {
	t.Parallel()
	store := db.NewTestDB(t)
	seedEpics(t, store, map[string]string{"epic-1": "Auth", "epic-2": "Billing"})

	paths, err := deriveExportPaths(store, "out", []string{"epic-1", "epic-2"})
	require.NoError(t, err)
	assert.Equal(t, "out/auth.portage", paths["epic-1"])
	assert.Equal(t, "out/billing.portage", paths["epic-2"])
}

func TestDeriveExportPathsDisambiguatesSameTitle(t *testing.T) {
	t.Parallel()
	store := db.NewTestDB(t)
	seedEpics(t, store, map[string]string{"epic-1": "Auth", "epic-2": "Auth"})

	paths, err := deriveExportPaths(store, "out", []string{"epic-1", "epic-2"})
	require.NoError(t, err)
	require.Len(t, paths, 2)
	assert.NotEqual(t, paths["epic-1"], paths["epic-2"])
	assert.Equal(t, "out/auth.portage", paths["epic-1"])
	assert.Contains(t, paths["epic-2"], "epic-2")
}

func TestDeriveExportPathsUnknownEpic(t *testing.T) {
	t.Parallel()
	store := db.NewTestDB(t)
	seedEpics(t, store, map[string]string{"epic-1": "Auth"})

	_, err := deriveExportPaths(store, "out", []string{"epic-1", "missing"})
	require.Error(t, err)
	perr := apperrors.AsPortageError(err)
	require.NotNil(t, perr)
	assert.Equal(t, apperrors.CodeEpicNotFound, perr.Code)
}
