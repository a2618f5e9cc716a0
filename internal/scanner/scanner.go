// Package scanner walks a folder tree and fingerprints the documents the
// remote parse API can handle.
package scanner

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/timmy/retention/internal/domain"
	"github.com/timmy/retention/internal/logger"
)

// supportedExtensions are the file types the remote parse API accepts.
var supportedExtensions = map[string]struct{}{
	".jpg":  {},
	".jpeg": {},
	".png":  {},
	".pdf":  {},
}

// Supported reports whether path has a file extension the pipeline can
// process. The check is case-insensitive.
func Supported(path string) bool {
	_, ok := supportedExtensions[strings.ToLower(filepath.Ext(path))]
	return ok
}

// ScanFolder recursively scans root for supported files, computing a content
// fingerprint and metadata for each. Unreadable files are logged and skipped
// rather than failing the scan.
// Parameters:
//   - ctx: context for cancellation.
//   - root: absolute or relative path to the top-level folder.
// Returns:
//   - []domain.ScannedFile: discovered files, sorted by path.
//   - error: non-nil if root does not exist or is not a directory.
func ScanFolder(ctx context.Context, root string) ([]domain.ScannedFile, error) {
	resolved, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %q: %w", root, err)
	}

	info, err := os.Stat(resolved)
	if err != nil {
		return nil, fmt.Errorf("folder not found: %s", resolved)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("path is not a directory: %s", resolved)
	}

	var matched []string
	err = filepath.WalkDir(resolved, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			logger.CtxWarn(ctx, "Skipping unreadable entry %s: %v", path, err)
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !d.IsDir() && Supported(path) {
			matched = append(matched, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(matched)

	logger.CtxInfo(ctx, "Scanning %s: found %d supported file(s)", resolved, len(matched))

	scanned := make([]domain.ScannedFile, 0, len(matched))
	for _, path := range matched {
		stat, err := os.Stat(path)
		if err != nil {
			logger.CtxWarn(ctx, "Skipping %s: %v", path, err)
			continue
		}
		fingerprint, err := fingerprintFile(path)
		if err != nil {
			logger.CtxWarn(ctx, "Skipping unreadable file %s: %v", path, err)
			continue
		}
		scanned = append(scanned, domain.ScannedFile{
			Path:         path,
			Fingerprint:  fingerprint,
			Size:         stat.Size(),
			LastModified: stat.ModTime().UTC(),
		})
	}

	return scanned, nil
}

// fingerprintFile computes the SHA-256 of a file's content, streaming so
// large documents never load fully into memory.
func fingerprintFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
