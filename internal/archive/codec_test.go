package archive

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	apperrors "github.com/portagehq/portage/internal/errors"
	"github.com/portagehq/portage/internal/manifest"
)

func sampleManifest() *manifest.Manifest {
	epicID := "epic-1"
	return &manifest.Manifest{
		Version:       manifest.Version,
		ExportType:    manifest.ExportTypeEpic,
		ExportedAt:    time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
		ExportedBy:    "alice",
		AppVersion:    "0.1.0",
		SourceProject: manifest.SourceProject{Name: "Source"},
		Epics: []manifest.Epic{
			{ID: "epic-1", Title: "Auth", Status: "open", CreatedAt: time.Now().UTC()},
		},
		Tickets: []manifest.Ticket{
			{ID: "tick-1", EpicID: &epicID, Title: "Add login", Status: "backlog", Priority: "high"},
		},
		AttachmentFiles: []manifest.AttachmentFile{
			{ArchivePath: "attachments/tick-1/shot.png", TicketID: "tick-1", Filename: "shot.png"},
		},
	}
}

func writeSample(t *testing.T, blobs map[string][]byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sample.portage")
	require.NoError(t, Default().WriteFile(path, sampleManifest(), blobs))
	return path
}

func TestRoundTrip(t *testing.T) {
	t.Parallel()
	blobs := map[string][]byte{"attachments/tick-1/shot.png": []byte("png-bytes")}
	path := writeSample(t, blobs)

	m, gotBlobs, err := Default().Read(path)
	require.NoError(t, err)

	assert.Equal(t, manifest.Version, m.Version)
	assert.Equal(t, "alice", m.ExportedBy)
	require.Len(t, m.Tickets, 1)
	assert.Equal(t, "Add login", m.Tickets[0].Title)
	assert.Equal(t, blobs, gotBlobs)
}

func TestEmptyArchiveIsValid(t *testing.T) {
	t.Parallel()
	m := sampleManifest()
	m.Epics = nil
	m.Tickets = nil
	m.AttachmentFiles = nil

	path := filepath.Join(t.TempDir(), "empty.portage")
	require.NoError(t, Default().WriteFile(path, m, nil))

	got, blobs, err := Default().Read(path)
	require.NoError(t, err)
	assert.Empty(t, got.Tickets)
	assert.Empty(t, blobs)
}

func TestEmptyCollectionsSerializeAsArrays(t *testing.T) {
	t.Parallel()
	m := sampleManifest()
	m.Epics = nil
	m.Tickets = nil
	m.AttachmentFiles = nil

	path := filepath.Join(t.TempDir(), "empty.portage")
	require.NoError(t, Default().WriteFile(path, m, nil))

	raw := rawManifest(t, path)
	for _, field := range []string{
		"epics", "tickets", "comments", "reviewFindings",
		"demoScripts", "workflowStates", "epicWorkflowStates",
		"attachmentFiles",
	} {
		v := gjson.GetBytes(raw, field)
		require.True(t, v.Exists(), "%s missing from manifest", field)
		assert.True(t, v.IsArray(), "%s must be an array, got %s", field, v.Type)
	}
}

func TestSizeGuardBeforeDecompression(t *testing.T) {
	t.Parallel()
	path := writeSample(t, nil)

	info, err := os.Stat(path)
	require.NoError(t, err)

	small := New(manifest.Version, info.Size()-1)
	_, _, err = small.Read(path)
	require.ErrorIs(t, err, apperrors.ErrArchiveTooLarge(0, 0))

	_, err = small.Preview(path)
	assert.ErrorIs(t, err, apperrors.ErrArchiveTooLarge(0, 0))
}

func TestNotAZipFile(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "garbage.portage")
	require.NoError(t, os.WriteFile(path, []byte("not a zip"), 0o644))

	_, _, err := Default().Read(path)
	require.ErrorIs(t, err, apperrors.ErrInvalidArchive(""))
	perr := apperrors.AsPortageError(err)
	require.NotNil(t, perr)
	assert.Contains(t, perr.What, "not a valid archive")
}

func TestMissingManifestEntry(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "nomanifest.portage")
	f, err := os.Create(path)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	entry, err := zw.Create("attachments/tick-1/shot.png")
	require.NoError(t, err)
	_, err = entry.Write([]byte("data"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())

	_, _, err = Default().Read(path)
	perr := apperrors.AsPortageError(err)
	require.NotNil(t, perr)
	assert.Contains(t, perr.What, "missing manifest")
}

func TestUnparsableManifest(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "bad.portage")
	f, err := os.Create(path)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	entry, err := zw.Create(ManifestEntry)
	require.NoError(t, err)
	_, err = entry.Write([]byte("{not json"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())

	_, _, err = Default().Read(path)
	perr := apperrors.AsPortageError(err)
	require.NotNil(t, perr)
	assert.Contains(t, perr.What, "corrupted")
}

func TestVersionGate(t *testing.T) {
	t.Parallel()
	path := writeSample(t, map[string][]byte{"attachments/tick-1/shot.png": []byte("x")})

	future := New(manifest.Version+1, DefaultMaxSize)
	_, _, err := future.Read(path)
	perr := apperrors.AsPortageError(err)
	require.NotNil(t, perr)
	assert.Contains(t, perr.What, "incompatible manifest version")

	_, err = future.Preview(path)
	assert.ErrorIs(t, err, apperrors.ErrInvalidArchive(""))
}

// Preview must not open attachment entries, so an archive whose blob
// entries are unreadable still previews and reports the same counts
// the manifest lists.
func TestPreviewIgnoresCorruptAttachments(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "badblob.portage")
	f, err := os.Create(path)
	require.NoError(t, err)
	zw := zip.NewWriter(f)

	entry, err := zw.Create(ManifestEntry)
	require.NoError(t, err)
	data, err := os.ReadFile(extractManifestTo(t))
	require.NoError(t, err)
	_, err = entry.Write(data)
	require.NoError(t, err)

	// A stored entry whose declared CRC does not match its bytes.
	hdr := &zip.FileHeader{Name: "attachments/tick-1/shot.png", Method: zip.Store}
	hdr.CRC32 = 0xdeadbeef
	hdr.UncompressedSize64 = 3
	hdr.CompressedSize64 = 3
	w, err := zw.CreateRaw(hdr)
	require.NoError(t, err)
	_, err = w.Write([]byte("xyz"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())

	summary, err := Default().Preview(path)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Tickets)
	assert.Equal(t, 1, summary.Attachments)
	assert.Equal(t, []string{"Auth"}, summary.EpicTitles)

	// Full extraction does fail on the bad entry.
	_, _, err = Default().Read(path)
	assert.Error(t, err)
}

func TestSuggestFilename(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "auth.portage", SuggestFilename("Auth"))
	assert.Equal(t, "user-login-flow.portage", SuggestFilename("  User  Login Flow "))
	assert.Equal(t, "export.portage", SuggestFilename("   "))
}

// rawManifest returns the manifest entry bytes exactly as written to
// the archive at path.
func rawManifest(t *testing.T, archivePath string) []byte {
	t.Helper()
	zr, err := zip.OpenReader(archivePath)
	require.NoError(t, err)
	defer zr.Close()
	for _, f := range zr.File {
		if f.Name != ManifestEntry {
			continue
		}
		rc, err := f.Open()
		require.NoError(t, err)
		defer rc.Close()
		data, err := io.ReadAll(rc)
		require.NoError(t, err)
		return data
	}
	t.Fatal("manifest entry not found")
	return nil
}

// extractManifestTo writes the sample manifest JSON to a temp file and
// returns its path.
func extractManifestTo(t *testing.T) string {
	t.Helper()
	archivePath := writeSample(t, nil)
	zr, err := zip.OpenReader(archivePath)
	require.NoError(t, err)
	defer zr.Close()
	for _, f := range zr.File {
		if f.Name != ManifestEntry {
			continue
		}
		rc, err := f.Open()
		require.NoError(t, err)
		defer rc.Close()
		out := filepath.Join(t.TempDir(), "manifest.json")
		dst, err := os.Create(out)
		require.NoError(t, err)
		_, err = dst.ReadFrom(rc)
		require.NoError(t, err)
		require.NoError(t, dst.Close())
		return out
	}
	t.Fatal("manifest entry not found")
	return ""
}
