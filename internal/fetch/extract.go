package fetch

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ErrCorruptArchive indicates the downloaded file could not be opened as a
// ZIP archive.
var ErrCorruptArchive = errors.New("corrupt archive")

// docExtensions is the fixed set of document file types worth extracting.
// Everything else inside a spec archive (change histories, cover sheets in
// odd formats) is skipped silently.
var docExtensions = map[string]bool{
	".pdf":  true,
	".doc":  true,
	".docx": true,
}

// ExtractDocuments unpacks only document entries (.pdf/.doc/.docx,
// case-insensitive) from the archive into destDir, preserving the entry
// paths relative to destDir. Re-running into the same directory replaces
// prior output; the extracted set is stable. Returns the extracted entry
// names in archive order.
func ExtractDocuments(archivePath, destDir string) ([]string, error) {
	zr, err := zip.OpenReader(archivePath)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorruptArchive, archivePath, err)
	}
	defer zr.Close()

	var extracted []string
	for _, entry := range zr.File {
		if entry.FileInfo().IsDir() {
			continue
		}
		if !docExtensions[strings.ToLower(filepath.Ext(entry.Name))] {
			continue
		}
		if err := extractEntry(entry, destDir); err != nil {
			return extracted, err
		}
		extracted = append(extracted, entry.Name)
	}
	return extracted, nil
}

func extractEntry(entry *zip.File, destDir string) error {
	target := filepath.Join(destDir, filepath.FromSlash(entry.Name))

	// Reject entries that would escape destDir.
	rel, err := filepath.Rel(destDir, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return fmt.Errorf("archive entry escapes output dir: %s", entry.Name)
	}

	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("create dir for %s: %w", entry.Name, err)
	}

	rc, err := entry.Open()
	if err != nil {
		return fmt.Errorf("open entry %s: %w", entry.Name, err)
	}
	defer rc.Close()

	out, err := os.Create(target)
	if err != nil {
		return fmt.Errorf("create %s: %w", target, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, rc); err != nil {
		return fmt.Errorf("extract %s: %w", entry.Name, err)
	}
	return nil
}
