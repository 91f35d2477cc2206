// Package archive reads and writes the portable container format: a
// zip holding manifest.json plus one entry per attachment blob under
// attachments/{ticketId}/{filename}.
package archive

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/klauspost/compress/flate"
	apperrors "github.com/portagehq/portage/internal/errors"
	"github.com/portagehq/portage/internal/manifest"
	"github.com/tidwall/gjson"
)

// ManifestEntry is the name of the manifest entry inside the archive.
const ManifestEntry = "manifest.json"

// DefaultMaxSize caps how large an archive file may be before Read
// refuses to decompress it.
const DefaultMaxSize int64 = 100 << 20 // 100 MiB

const attachmentGlob = manifest.AttachmentDir + "/**"

// Codec encodes and decodes archives for one manifest format version.
type Codec struct {
	version int
	maxSize int64
}

// New returns a Codec accepting the given manifest version and
// rejecting archive files larger than maxSize bytes. A maxSize of
// zero or below falls back to DefaultMaxSize.
func New(version int, maxSize int64) *Codec {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	return &Codec{version: version, maxSize: maxSize}
}

// Default returns a Codec for the current manifest version with the
// default size cap.
func Default() *Codec {
	return New(manifest.Version, DefaultMaxSize)
}

// Write serializes the manifest and blobs to w. Nil collections are
// normalized to empty arrays so the wire format never carries null.
// The manifest entry is written first; blob entries follow in sorted
// path order so identical input produces byte-identical archives.
func (c *Codec) Write(w io.Writer, m *manifest.Manifest, blobs map[string][]byte) error {
	zw := zip.NewWriter(w)
	zw.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(out, flate.DefaultCompression)
	})

	m.Normalize()
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	entry, err := zw.Create(ManifestEntry)
	if err != nil {
		return err
	}
	if _, err := entry.Write(data); err != nil {
		return err
	}

	paths := make([]string, 0, len(blobs))
	for p := range blobs {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	for _, p := range paths {
		entry, err := zw.Create(p)
		if err != nil {
			return err
		}
		if _, err := entry.Write(blobs[p]); err != nil {
			return err
		}
	}
	return zw.Close()
}

// WriteFile writes the archive to path, creating or truncating it.
func (c *Codec) WriteFile(path string, m *manifest.Manifest, blobs map[string][]byte) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := c.Write(f, m, blobs); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Read opens, validates, and fully extracts the archive at path. The
// size cap is enforced on the file itself before any decompression
// happens, the manifest version is checked before any attachment entry
// is opened, and only entries under attachments/ are extracted.
func (c *Codec) Read(path string) (*manifest.Manifest, map[string][]byte, error) {
	zr, closer, err := c.open(path)
	if err != nil {
		return nil, nil, err
	}
	defer closer.Close()

	m, err := c.readManifest(zr)
	if err != nil {
		return nil, nil, err
	}

	blobs := map[string][]byte{}
	for _, f := range zr.File {
		if f.Name == ManifestEntry {
			continue
		}
		ok, err := doublestar.Match(attachmentGlob, f.Name)
		if err != nil || !ok {
			continue // foreign entries are ignored, not fatal
		}
		data, err := readEntry(f)
		if err != nil {
			return nil, nil, apperrors.ErrInvalidArchive("corrupted").WithCause(err)
		}
		blobs[f.Name] = data
	}
	return m, blobs, nil
}

// Preview validates the archive and parses its manifest without
// opening a single attachment entry, then reduces it to a Summary.
// Corrupt attachment data does not fail a preview.
func (c *Codec) Preview(path string) (*manifest.Summary, error) {
	zr, closer, err := c.open(path)
	if err != nil {
		return nil, err
	}
	defer closer.Close()

	m, err := c.readManifest(zr)
	if err != nil {
		return nil, err
	}
	s := m.Summarize()
	return &s, nil
}

// open stats and opens the archive, enforcing the size cap first.
func (c *Codec) open(path string) (*zip.Reader, io.Closer, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, nil, apperrors.ErrInvalidArchive("not a valid archive").WithCause(err)
	}
	if info.Size() > c.maxSize {
		return nil, nil, apperrors.ErrArchiveTooLarge(info.Size(), c.maxSize)
	}
	rc, err := zip.OpenReader(path)
	if err != nil {
		return nil, nil, apperrors.ErrInvalidArchive("not a valid archive").WithCause(err)
	}
	return &rc.Reader, rc, nil
}

// readManifest locates and parses the manifest entry. The version is
// probed on the raw bytes before the full decode so an incompatible
// archive is rejected without deserializing its collections.
func (c *Codec) readManifest(zr *zip.Reader) (*manifest.Manifest, error) {
	var entry *zip.File
	for _, f := range zr.File {
		if f.Name == ManifestEntry {
			entry = f
			break
		}
	}
	if entry == nil {
		return nil, apperrors.ErrInvalidArchive("missing manifest")
	}
	raw, err := readEntry(entry)
	if err != nil {
		return nil, apperrors.ErrInvalidArchive("corrupted").WithCause(err)
	}
	if !gjson.ValidBytes(raw) {
		return nil, apperrors.ErrInvalidArchive("corrupted")
	}
	version := gjson.GetBytes(raw, "version")
	if !version.Exists() || version.Int() != int64(c.version) {
		return nil, apperrors.ErrInvalidArchive("incompatible manifest version")
	}
	var m manifest.Manifest
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, apperrors.ErrInvalidArchive("corrupted").WithCause(err)
	}
	return &m, nil
}

func readEntry(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, rc); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// SuggestFilename derives a default archive filename from an epic or
// project title: lowercase, spaces collapsed to dashes, with the
// .portage extension.
func SuggestFilename(title string) string {
	slug := strings.ToLower(strings.TrimSpace(title))
	slug = strings.Join(strings.Fields(slug), "-")
	if slug == "" {
		slug = "export"
	}
	return slug + ".portage"
}
