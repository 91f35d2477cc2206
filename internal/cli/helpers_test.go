package cli

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/portagehq/portage/internal/config"
	apperrors "github.com/portagehq/portage/internal/errors"
)

func TestOpenStoreRequiresInit(t *testing.T) {
	t.Parallel()
	cfg := config.Default()
	cfg.Database.Path = filepath.Join(t.TempDir(), ".portage", "tracker.db")

	_, err := openStore(cfg)
	require.Error(t, err)
	perr := apperrors.AsPortageError(err)
	require.NotNil(t, perr)
	assert.Equal(t, apperrors.CodeNotInitialized, perr.Code)
}

func TestOpenStoreWithExistingDir(t *testing.T) {
	t.Parallel()
	cfg := config.Default()
	cfg.Database.Path = filepath.Join(t.TempDir(), "tracker.db")

	store, err := openStore(cfg)
	require.NoError(t, err)
	require.NoError(t, store.Close())
}
