package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/portagehq/portage/internal/archive"
	"github.com/portagehq/portage/internal/config"
	"github.com/portagehq/portage/internal/db"
	"github.com/portagehq/portage/internal/db/driver"
	apperrors "github.com/portagehq/portage/internal/errors"
	"github.com/portagehq/portage/internal/manifest"
)

// loadConfig reads the project configuration from the working
// directory, honoring the global --config flag.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(".", cfgFile)
	if err != nil {
		return nil, err
	}
	if verbose && cfgFile != "" {
		fmt.Fprintln(os.Stderr, "Using config file:", cfgFile)
	}
	return cfg, nil
}

// openStore opens the tracker database named by the config. For the
// SQLite dialect the database lives under .portage/, so a missing
// parent directory means init never ran here.
func openStore(cfg *config.Config) (*db.TrackerDB, error) {
	dialect, err := driver.ParseDialect(cfg.Database.Dialect)
	if err != nil {
		return nil, err
	}
	dsn := cfg.Database.Path
	if dialect == driver.DialectPostgres {
		dsn = cfg.Database.DSN
	} else if _, err := os.Stat(filepath.Dir(cfg.Database.Path)); os.IsNotExist(err) {
		return nil, apperrors.ErrNotInitialized()
	}
	store, err := db.OpenTrackerWithDialect(dsn, dialect)
	if err != nil {
		return nil, apperrors.Wrap(err, "opening tracker database")
	}
	return store, nil
}

// newCodec builds the archive codec from config limits.
func newCodec(cfg *config.Config) *archive.Codec {
	return archive.New(manifest.Version, cfg.Archive.MaxSizeBytes)
}
